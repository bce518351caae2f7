package docforge

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Color is an RGB color value.
type Color struct {
	R, G, B uint8
}

// ParseColor parses "#rrggbb" or "#rgb" (the leading '#' is optional).
func ParseColor(s string) (Color, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return Color{}, fmt.Errorf("%q: %w", s, ErrInvalidColor)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return Color{}, fmt.Errorf("%q: %w", s, ErrInvalidColor)
	}
	return Color{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v)}, nil
}

// MustParseColor is like ParseColor but panics on malformed input.
func MustParseColor(s string) Color {
	c, err := ParseColor(s)
	if err != nil {
		panic(err)
	}
	return c
}

// Hex returns the color as "#rrggbb".
func (c Color) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// RGB returns the components as ints, the form the PDF engine expects.
func (c Color) RGB() (r, g, b int) {
	return int(c.R), int(c.G), int(c.B)
}

// MarshalJSON encodes the color as a "#rrggbb" string.
func (c Color) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Hex())
}

// UnmarshalJSON decodes a "#rrggbb" or "#rgb" string.
func (c *Color) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseColor(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Font is a brand font family name.
type Font string

// Supported brand fonts.
const (
	FontInter      Font = "Inter"
	FontRoboto     Font = "Roboto"
	FontPlayfair   Font = "Playfair Display"
	FontMontserrat Font = "Montserrat"
)

var fonts = []Font{FontInter, FontRoboto, FontPlayfair, FontMontserrat}

// Fonts returns the supported brand fonts.
func Fonts() []Font {
	out := make([]Font, len(fonts))
	copy(out, fonts)
	return out
}

// Valid reports whether f is a supported brand font.
func (f Font) Valid() bool {
	for _, v := range fonts {
		if v == f {
			return true
		}
	}
	return false
}

// Serif reports whether the font belongs to the serif family.
func (f Font) Serif() bool {
	return f == FontPlayfair
}

// Channel selects which theme color to change.
type Channel string

// Color channels.
const (
	ChannelPrimary   Channel = "primary"
	ChannelSecondary Channel = "secondary"
)

// Theme is the branding applied uniformly across an exported document.
// A Theme is a value: setters return a modified copy.
type Theme struct {
	PrimaryColor   Color
	SecondaryColor Color
	FontFamily     Font
	Logo           *Image // optional
	Watermark      string // optional diagonal label stamped on PDF pages
}

// DefaultTheme returns the theme new documents start with.
func DefaultTheme() Theme {
	return Theme{
		PrimaryColor:   MustParseColor("#4f46e5"),
		SecondaryColor: MustParseColor("#6366f1"),
		FontFamily:     FontInter,
	}
}

// WithLogo returns a copy of t using img as logo. A nil img removes the logo.
func (t Theme) WithLogo(img *Image) Theme {
	t.Logo = img
	return t
}

// WithColor returns a copy of t with the color of channel ch replaced.
func (t Theme) WithColor(ch Channel, c Color) (Theme, error) {
	switch ch {
	case ChannelPrimary:
		t.PrimaryColor = c
	case ChannelSecondary:
		t.SecondaryColor = c
	default:
		return t, fmt.Errorf("%q: %w", ch, ErrInvalidChannel)
	}
	return t, nil
}

// WithFont returns a copy of t using font f.
func (t Theme) WithFont(f Font) (Theme, error) {
	if !f.Valid() {
		return t, fmt.Errorf("%q: %w", f, ErrUnsupportedFont)
	}
	t.FontFamily = f
	return t, nil
}

// WithWatermark returns a copy of t stamping label diagonally across every
// exported PDF page. An empty label removes the watermark.
func (t Theme) WithWatermark(label string) Theme {
	t.Watermark = label
	return t
}

type themeJSON struct {
	PrimaryColor   Color  `json:"primaryColor"`
	SecondaryColor Color  `json:"secondaryColor"`
	FontFamily     Font   `json:"fontFamily"`
	Logo           string `json:"logo,omitempty"`
	Watermark      string `json:"watermark,omitempty"`
}

// MarshalJSON encodes the theme with the logo as a data URI.
func (t Theme) MarshalJSON() ([]byte, error) {
	return json.Marshal(themeJSON{
		PrimaryColor:   t.PrimaryColor,
		SecondaryColor: t.SecondaryColor,
		FontFamily:     t.FontFamily,
		Logo:           t.Logo.DataURI(),
		Watermark:      t.Watermark,
	})
}

// UnmarshalJSON decodes the form written by MarshalJSON.
func (t *Theme) UnmarshalJSON(data []byte) error {
	var raw themeJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	var logo *Image
	if raw.Logo != "" {
		img, err := ParseDataURI(raw.Logo)
		if err != nil {
			return fmt.Errorf("theme logo: %w", err)
		}
		logo = img
	}
	*t = Theme{
		PrimaryColor:   raw.PrimaryColor,
		SecondaryColor: raw.SecondaryColor,
		FontFamily:     raw.FontFamily,
		Logo:           logo,
		Watermark:      raw.Watermark,
	}
	return nil
}
