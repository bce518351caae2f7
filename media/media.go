// Package media reads user-supplied images (logos and image blocks) into the
// forms the exporters can embed.
//
// PNG, JPEG and GIF data is kept byte for byte. BMP, TIFF and WebP, and PNGs
// with 16-bit channels or Adam7 interlacing, are decoded and re-encoded as
// 8-bit PNG because the PDF engine cannot embed them directly.
package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io"

	"go.uber.org/zap"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/lvillar/docforge"
)

// DefaultMaxBytes is the upload size limit used when none is configured.
const DefaultMaxBytes = 10 << 20

// ErrTooLarge is returned when an image exceeds the loader's size limit.
var ErrTooLarge = errors.New("media: image too large")

var passthrough = map[string]string{
	"png":  "image/png",
	"jpeg": "image/jpeg",
	"gif":  "image/gif",
}

// PNG header layout: 8 byte signature, IHDR chunk length and type, then
// width, height, bit depth, color type, compression, filter and interlace.
const (
	pngChunkType = 12
	pngBitDepth  = 24
	pngInterlace = 28
)

// embeddablePNG reports whether data can be embedded as is: at most 8 bits
// per channel and no interlacing.
func embeddablePNG(data []byte) bool {
	if len(data) <= pngInterlace || string(data[pngChunkType:pngChunkType+4]) != "IHDR" {
		return false
	}
	return data[pngBitDepth] <= 8 && data[pngInterlace] == 0
}

// Result is the outcome of an asynchronous Load.
type Result struct {
	Image *docforge.Image
	Err   error
}

// Loader decodes uploaded images.
type Loader struct {
	maxBytes int64
	logger   *zap.Logger
}

// NewLoader returns a loader that rejects images larger than maxBytes.
// A non-positive maxBytes selects DefaultMaxBytes.
func NewLoader(maxBytes int64, logger *zap.Logger) *Loader {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{
		maxBytes: maxBytes,
		logger:   logger.With(zap.String("service", "media")),
	}
}

// Decode reads an image from r using the default size limit.
func Decode(r io.Reader) (*docforge.Image, error) {
	return NewLoader(0, nil).Decode(r)
}

// Decode reads all of r and returns it as an embeddable image.
func (l *Loader) Decode(r io.Reader) (*docforge.Image, error) {
	data, err := io.ReadAll(io.LimitReader(r, l.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("media: reading image: %w", err)
	}
	if int64(len(data)) > l.maxBytes {
		return nil, fmt.Errorf("%w: limit is %d bytes", ErrTooLarge, l.maxBytes)
	}

	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("media: %v: %w", err, docforge.ErrUnsupportedImage)
	}
	if mime, ok := passthrough[format]; ok && (format != "png" || embeddablePNG(data)) {
		return &docforge.Image{MIME: mime, Data: data}, nil
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("media: decoding %s: %v: %w", format, err, docforge.ErrUnsupportedImage)
	}
	bounds := img.Bounds()
	flat := image.NewNRGBA(bounds)
	draw.Draw(flat, bounds, img, bounds.Min, draw.Src)

	var buf bytes.Buffer
	if err := png.Encode(&buf, flat); err != nil {
		return nil, fmt.Errorf("media: transcoding %s: %w", format, err)
	}
	l.logger.Debug("transcoded image",
		zap.String("format", format),
		zap.Int("inputBytes", len(data)),
		zap.Int("outputBytes", buf.Len()),
	)
	return &docforge.Image{MIME: "image/png", Data: buf.Bytes()}, nil
}

// Load decodes r in the background. The returned channel delivers exactly one
// Result and is then closed. Once started, a read is never cancelled; ctx only
// prevents a read that has not begun.
func (l *Loader) Load(ctx context.Context, r io.Reader) <-chan Result {
	ch := make(chan Result, 1)
	go func() {
		defer close(ch)
		if err := ctx.Err(); err != nil {
			ch <- Result{Err: err}
			return
		}
		img, err := l.Decode(r)
		ch <- Result{Image: img, Err: err}
	}()
	return ch
}
