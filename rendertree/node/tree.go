package node

import "encoding/json"

// Tree is one capture's output envelope, the unit emitted to sinks.
type Tree struct {
	ID         string            `json:"id"` // UUIDv7
	Roots      []*SerializedNode `json:"roots"`
	NodeCount  int               `json:"node_count"`
	Timestamp  int64             `json:"timestamp"` // epoch milliseconds
	DurationMS int64             `json:"duration_ms"`
}

// MarshalTree serialises a Tree to JSON.
func MarshalTree(t *Tree) ([]byte, error) {
	return json.Marshal(t)
}

// UnmarshalTree deserialises a Tree from JSON.
func UnmarshalTree(data []byte) (*Tree, error) {
	var t Tree
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// Count returns the number of nodes in a serialized forest.
func Count(roots []*SerializedNode) int {
	n := 0
	for _, r := range roots {
		n += 1 + Count(r.Children)
	}
	return n
}
