// Package dom defines the host-agnostic DOM handle contract treescope
// operates on. The capture engine never touches a concrete DOM library;
// it sees live nodes only through the Node interface and acts on them
// through the small collaborator interfaces below. Backends exist for
// parsed x/net/html documents (htmldom) and live pages over CDP (cdphost).
package dom

// NodeType mirrors the DOM numeric node types.
type NodeType int

const (
	ElementNode  NodeType = 1
	TextNode     NodeType = 3
	CommentNode  NodeType = 8
	DocumentNode NodeType = 9
	DoctypeNode  NodeType = 10
)

// Node is a handle on one live DOM node.
//
// Implementations must be comparable: two Node values compare equal exactly
// when they reference the same underlying DOM node. The engine relies on ==
// for parent checks and sibling scans.
type Node interface {
	Type() NodeType
	// Name is the lowercase tag name for elements, "#text" / "#comment"
	// for character data.
	Name() string
	Parent() Node
	NextSibling() Node
	FirstChild() Node
}

// Layout resolves on-screen geometry for a node. Backends without layout
// information report ok=false.
type Layout interface {
	NodeRect(n Node) (Rect, bool)
}

// Scroller brings a node into view (smooth, centered where the backend
// supports it).
type Scroller interface {
	ScrollIntoView(n Node) error
}

// Inspector reveals a node in the host's element inspection UI.
type Inspector interface {
	Inspect(n Node) error
}

// Resolver looks up a node by its path (the htmldom path dialect). Used by
// the transport layer, where live handles cannot cross the wire.
type Resolver interface {
	LookupNode(path string) (Node, bool)
}

// HTMLSource is implemented by backends that can serialise a node back to
// HTML, e.g. for previews.
type HTMLSource interface {
	OuterHTML() (string, error)
}

// OuterHTML re-serialises a node when its backend supports it.
func OuterHTML(n Node) (string, bool) {
	src, ok := n.(HTMLSource)
	if !ok {
		return "", false
	}
	s, err := src.OuterHTML()
	if err != nil {
		return "", false
	}
	return s, true
}
