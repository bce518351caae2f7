package docforge

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// Image is decoded image data used for logos and image blocks.
type Image struct {
	MIME string // image/png, image/jpeg or image/gif
	Data []byte
}

// ImageType returns the short image type understood by the PDF engine
// ("PNG", "JPG", "GIF"), or an empty string for unsupported MIME types.
func (img *Image) ImageType() string {
	if img == nil {
		return ""
	}
	switch img.MIME {
	case "image/png":
		return "PNG"
	case "image/jpeg", "image/jpg":
		return "JPG"
	case "image/gif":
		return "GIF"
	}
	return ""
}

// Empty reports whether the image carries no data.
func (img *Image) Empty() bool {
	return img == nil || len(img.Data) == 0
}

// DataURI encodes the image as a base64 data URI.
func (img *Image) DataURI() string {
	if img == nil {
		return ""
	}
	return "data:" + img.MIME + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
}

// ParseDataURI decodes a base64 image data URI such as
// "data:image/png;base64,iVBORw0...".
func ParseDataURI(uri string) (*Image, error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return nil, fmt.Errorf("missing data: scheme: %w", ErrUnsupportedImage)
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, fmt.Errorf("missing data separator: %w", ErrUnsupportedImage)
	}
	mime, ok := strings.CutSuffix(meta, ";base64")
	if !ok {
		return nil, fmt.Errorf("only base64 data URIs are supported: %w", ErrUnsupportedImage)
	}
	if !strings.HasPrefix(mime, "image/") {
		return nil, fmt.Errorf("%q: %w", mime, ErrUnsupportedImage)
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("decode data URI: %w", err)
	}
	return &Image{MIME: mime, Data: data}, nil
}
