package export

const (
	watermarkSize    = 60.0
	watermarkGray    = 230
	watermarkOpacity = 0.5
	watermarkAngle   = 45.0

	ptToMM = 25.4 / 72
)

// watermark stamps label diagonally across the center of the current page.
func (l *layout) watermark(label string) {
	pdf := l.pdf
	text := l.tr(label)

	pdf.SetFont(l.family, "I", watermarkSize)
	pdf.SetTextColor(watermarkGray, watermarkGray, watermarkGray)
	pdf.SetAlpha(watermarkOpacity, "Normal")

	pageW, pageH := pdf.GetPageSize()
	cx, cy := pageW/2, pageH/2
	textW := pdf.GetStringWidth(text)

	pdf.TransformBegin()
	pdf.TransformRotate(watermarkAngle, cx, cy)
	pdf.Text(cx-textW/2, cy+watermarkSize*ptToMM/3, text)
	pdf.TransformEnd()

	pdf.SetAlpha(1.0, "Normal")
}
