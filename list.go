package docforge

import (
	"fmt"
)

// List is the ordered sequence of content blocks of a document. Operations
// never modify the receiver; they return a new List so that a caller holding
// an earlier snapshot keeps seeing it unchanged.
type List []Component

// BlockTypeFor returns the block type a submitted field of the given kind
// becomes: textarea fields become text blocks, every other kind becomes a
// heading block.
func BlockTypeFor(kind FieldKind) BlockType {
	if kind == KindTextarea {
		return BlockText
	}
	return BlockHeading
}

// BuildFromFormData converts a submitted form record into content blocks, one
// per submitted value, in submission order. Values whose ID has no matching
// field descriptor are treated like any non-textarea field.
func BuildFromFormData(values []FormValue, fields []FormField) List {
	kinds := make(map[string]FieldKind, len(fields))
	for _, f := range fields {
		kinds[f.ID] = f.Kind
	}

	list := make(List, 0, len(values))
	for i, v := range values {
		var content Content = Heading(v.Value)
		if BlockTypeFor(kinds[v.ID]) == BlockText {
			content = Text(v.Value)
		}
		list = append(list, Component{
			ID:      v.ID,
			Order:   i,
			Content: content,
		})
	}
	return list
}

// Clone returns a copy of l that shares no backing array with it.
func (l List) Clone() List {
	if l == nil {
		return nil
	}
	out := make(List, len(l))
	copy(out, l)
	return out
}

// Index returns the position of the component with the given id, or -1.
func (l List) Index(id string) int {
	for i, c := range l {
		if c.ID == id {
			return i
		}
	}
	return -1
}

// Get returns the component with the given id.
func (l List) Get(id string) (Component, bool) {
	if i := l.Index(id); i >= 0 {
		return l[i], true
	}
	return Component{}, false
}

// Reorder moves the component activeID to the position currently held by
// overID, shifting the components in between by one. Order values are
// renumbered to match the new positions. Dropping a component onto itself
// returns the list unchanged.
//
// If either id is unknown the list is returned unchanged together with
// ErrComponentNotFound.
func (l List) Reorder(activeID, overID string) (List, error) {
	from := l.Index(activeID)
	if from < 0 {
		return l, fmt.Errorf("reorder %q: %w", activeID, ErrComponentNotFound)
	}
	to := l.Index(overID)
	if to < 0 {
		return l, fmt.Errorf("reorder onto %q: %w", overID, ErrComponentNotFound)
	}
	if from == to {
		return l, nil
	}

	out := make(List, 0, len(l))
	moved := l[from]
	for i, c := range l {
		if i == from {
			continue
		}
		if i == to && from > to {
			out = append(out, moved)
		}
		out = append(out, c)
		if i == to && from < to {
			out = append(out, moved)
		}
	}
	for i := range out {
		out[i].Order = i
	}
	return out, nil
}

// Edit replaces the content of the component with the given id. Its id,
// position and order are left untouched, as is every other component.
//
// If id is unknown the list is returned unchanged together with
// ErrComponentNotFound. Content of a different block type is rejected with
// ErrContentMismatch.
func (l List) Edit(id string, content Content) (List, error) {
	i := l.Index(id)
	if i < 0 {
		return l, fmt.Errorf("edit %q: %w", id, ErrComponentNotFound)
	}
	if content == nil || content.BlockType() != l[i].Type() {
		return l, fmt.Errorf("edit %q: %w", id, ErrContentMismatch)
	}

	out := l.Clone()
	out[i].Content = content
	return out, nil
}
