// Package node defines the structured types exchanged between the capture
// engine, its collaborators, and transport consumers. Any devtools frontend
// or pipeline importing treescope speaks these types.
package node

import (
	"context"

	"github.com/hazyhaar/treescope/dom"
)

// Kind classifies a render node.
type Kind string

const (
	KindOutlet        Kind = "outlet"
	KindEngine        Kind = "engine"
	KindRouteTemplate Kind = "route-template"
	KindComponent     Kind = "component"
)

// Bounds is the contiguous DOM region a render node owns: a single node or
// a sibling span under one parent element.
type Bounds struct {
	ParentElement dom.Node
	FirstNode     dom.Node
	LastNode      dom.Node
}

// RawArgs carries a node's arguments as the host framework reports them:
// named and positional, values of any host type including live objects.
type RawArgs struct {
	Named      map[string]any
	Positional []any
}

// RawNode is one entry of the host framework's render tree, valid for the
// duration of one capture. Ids are unique within a capture; cross-capture
// stability is not guaranteed.
type RawNode struct {
	ID       string
	Kind     Kind
	Name     string
	Args     RawArgs
	Instance any
	Template string
	Bounds   *Bounds
	Children []*RawNode
}

// BoundsKind is the transport-side collapse of Bounds: only the shape
// crosses the wire, never the DOM handles themselves.
type BoundsKind string

const (
	BoundsSingle BoundsKind = "single"
	BoundsRange  BoundsKind = "range"
)

// SerializedArgs mirrors RawArgs with transport-safe values.
type SerializedArgs struct {
	Named      map[string]Item `json:"named"`
	Positional []Item          `json:"positional"`
}

// SerializedNode is the transport-safe form of a RawNode.
type SerializedNode struct {
	ID       string            `json:"id"`
	Kind     Kind              `json:"type"`
	Name     string            `json:"name"`
	Args     SerializedArgs    `json:"args"`
	Instance Item              `json:"instance"`
	Template string            `json:"template,omitempty"`
	Bounds   BoundsKind        `json:"bounds,omitempty"`
	Children []*SerializedNode `json:"children"`
}

// Source captures the current render tree from the host framework. The
// returned forest must be a tree (unique ids, single parents); treescope
// trusts this invariant rather than re-validating it.
type Source interface {
	CaptureTree(ctx context.Context) ([]*RawNode, error)
}

// Retainer keeps live values addressable by id across the serialization
// boundary. Retain must return a fresh id per call; Release frees one.
type Retainer interface {
	Retain(v any) string
	Release(id string)
}
