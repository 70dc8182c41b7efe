package node

import "encoding/json"

// Item is a transport-safe value: either a primitive carried verbatim or a
// reference token naming a retained object. Raw object references never
// cross the serialization boundary.
type Item struct {
	value any
	ref   string
}

// Primitive wraps a primitive value (callers guarantee it is one).
func Primitive(v any) Item { return Item{value: v} }

// Reference wraps a retained-object id.
func Reference(id string) Item { return Item{ref: id} }

// IsReference reports whether the item is a reference token.
func (it Item) IsReference() bool { return it.ref != "" }

// ID returns the reference token, empty for primitives.
func (it Item) ID() string { return it.ref }

// Value returns the primitive value, nil for references.
func (it Item) Value() any {
	if it.ref != "" {
		return nil
	}
	return it.value
}

// refToken is the wire form of a reference.
type refToken struct {
	ID string `json:"id"`
}

// MarshalJSON emits the primitive verbatim or {"id": "..."} for references.
func (it Item) MarshalJSON() ([]byte, error) {
	if it.ref != "" {
		return json.Marshal(refToken{ID: it.ref})
	}
	return json.Marshal(it.value)
}

// UnmarshalJSON accepts both wire forms. An object with a non-empty "id"
// field decodes as a reference, everything else as a primitive.
func (it *Item) UnmarshalJSON(data []byte) error {
	var tok refToken
	if err := json.Unmarshal(data, &tok); err == nil && tok.ID != "" {
		*it = Item{ref: tok.ID}
		return nil
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*it = Item{value: v}
	return nil
}
