package docforge

import (
	"encoding/json"
	"fmt"
)

// BlockType is the kind of a content block.
type BlockType string

// Block types. Table and signature are declared for future templates; no
// exporter renders them yet.
const (
	BlockText      BlockType = "text"
	BlockHeading   BlockType = "heading"
	BlockImage     BlockType = "image"
	BlockTable     BlockType = "table"
	BlockSignature BlockType = "signature"
)

// Content is the payload of a content block. Each block type has exactly one
// concrete variant: Heading, Text, *Image, Table or Signature.
type Content interface {
	BlockType() BlockType
}

// Heading is the payload of a heading block.
type Heading string

// BlockType implements Content.
func (Heading) BlockType() BlockType { return BlockHeading }

// Text is the payload of a body text block.
type Text string

// BlockType implements Content.
func (Text) BlockType() BlockType { return BlockText }

// BlockType implements Content.
func (*Image) BlockType() BlockType { return BlockImage }

// Table is the placeholder payload of a table block.
type Table struct{}

// BlockType implements Content.
func (Table) BlockType() BlockType { return BlockTable }

// Signature is the placeholder payload of a signature block.
type Signature struct{}

// BlockType implements Content.
func (Signature) BlockType() BlockType { return BlockSignature }

// Component is one ordered content block of a document.
type Component struct {
	ID      string
	Order   int
	Content Content
}

// Type returns the block type carried by the component's content.
func (c Component) Type() BlockType {
	if c.Content == nil {
		return ""
	}
	return c.Content.BlockType()
}

// String returns the textual payload of heading and text blocks, and an
// empty string for every other block type.
func (c Component) String() string {
	switch v := c.Content.(type) {
	case Heading:
		return string(v)
	case Text:
		return string(v)
	}
	return ""
}

type componentJSON struct {
	ID      string          `json:"id"`
	Type    BlockType       `json:"type"`
	Content json.RawMessage `json:"content"`
	Order   int             `json:"order"`
}

// MarshalJSON encodes the component as {"id","type","content","order"}.
// Text and heading content is a string, image content a data URI and
// table/signature content null.
func (c Component) MarshalJSON() ([]byte, error) {
	var content interface{}
	switch v := c.Content.(type) {
	case Heading:
		content = string(v)
	case Text:
		content = string(v)
	case *Image:
		if v != nil {
			content = v.DataURI()
		}
	}

	raw, err := json.Marshal(content)
	if err != nil {
		return nil, err
	}
	return json.Marshal(componentJSON{
		ID:      c.ID,
		Type:    c.Type(),
		Content: raw,
		Order:   c.Order,
	})
}

// UnmarshalJSON decodes the wire form written by MarshalJSON.
func (c *Component) UnmarshalJSON(data []byte) error {
	var raw componentJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	content, err := DecodeContent(raw.Type, raw.Content)
	if err != nil {
		return fmt.Errorf("component %q: %w", raw.ID, err)
	}

	c.ID = raw.ID
	c.Order = raw.Order
	c.Content = content
	return nil
}

// DecodeContent builds the Content variant for t from its JSON payload.
func DecodeContent(t BlockType, payload json.RawMessage) (Content, error) {
	var s string
	if len(payload) > 0 && string(payload) != "null" {
		if err := json.Unmarshal(payload, &s); err != nil && t != BlockTable && t != BlockSignature {
			return nil, fmt.Errorf("decode %s content: %w", t, err)
		}
	}

	switch t {
	case BlockHeading:
		return Heading(s), nil
	case BlockText:
		return Text(s), nil
	case BlockImage:
		if s == "" {
			return (*Image)(nil), nil
		}
		return ParseDataURI(s)
	case BlockTable:
		return Table{}, nil
	case BlockSignature:
		return Signature{}, nil
	}
	return nil, fmt.Errorf("unknown block type %q", t)
}
