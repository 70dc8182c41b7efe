// Package htmldom backs the dom contract with parsed golang.org/x/net/html
// documents. A Document is a static snapshot: it indexes every node under a
// stable path (the same dialect cdphost's capture script emits) and can
// carry per-node client rects supplied by the capture source.
package htmldom

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"golang.org/x/net/html"

	"github.com/hazyhaar/treescope/dom"
)

// Node wraps one *html.Node as a comparable dom.Node value.
type Node struct {
	n *html.Node
}

// Wrap adapts a raw html node. Returns a zero Node for nil.
func Wrap(n *html.Node) Node { return Node{n: n} }

// Unwrap exposes the underlying html node.
func (nd Node) Unwrap() *html.Node { return nd.n }

func (nd Node) Type() dom.NodeType {
	if nd.n == nil {
		return 0
	}
	switch nd.n.Type {
	case html.ElementNode:
		return dom.ElementNode
	case html.TextNode:
		return dom.TextNode
	case html.CommentNode:
		return dom.CommentNode
	case html.DocumentNode:
		return dom.DocumentNode
	case html.DoctypeNode:
		return dom.DoctypeNode
	default:
		return 0
	}
}

func (nd Node) Name() string {
	if nd.n == nil {
		return ""
	}
	switch nd.n.Type {
	case html.ElementNode:
		return strings.ToLower(nd.n.Data)
	case html.TextNode:
		return "#text"
	case html.CommentNode:
		return "#comment"
	case html.DocumentNode:
		return "#document"
	default:
		return nd.n.Data
	}
}

func (nd Node) Parent() dom.Node {
	if nd.n == nil || nd.n.Parent == nil {
		return nil
	}
	return Node{n: nd.n.Parent}
}

func (nd Node) NextSibling() dom.Node {
	if nd.n == nil || nd.n.NextSibling == nil {
		return nil
	}
	return Node{n: nd.n.NextSibling}
}

func (nd Node) FirstChild() dom.Node {
	if nd.n == nil || nd.n.FirstChild == nil {
		return nil
	}
	return Node{n: nd.n.FirstChild}
}

// OuterHTML re-serialises the node, implementing dom.HTMLSource.
func (nd Node) OuterHTML() (string, error) {
	if nd.n == nil {
		return "", fmt.Errorf("htmldom: nil node")
	}
	var sb strings.Builder
	if err := html.Render(&sb, nd.n); err != nil {
		return "", fmt.Errorf("htmldom: render: %w", err)
	}
	return sb.String(), nil
}

// Document is an indexed snapshot of one parsed HTML tree.
type Document struct {
	root  *html.Node
	paths map[*html.Node]string
	nodes map[string]*html.Node

	mu    sync.RWMutex
	rects map[*html.Node]dom.Rect
}

// Parse reads and indexes an HTML document.
func Parse(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("htmldom: parse: %w", err)
	}
	d := &Document{
		root:  root,
		paths: make(map[*html.Node]string),
		nodes: make(map[string]*html.Node),
		rects: make(map[*html.Node]dom.Rect),
	}
	d.index(root, "")
	return d, nil
}

// ParseString is Parse over a string.
func ParseString(s string) (*Document, error) {
	return Parse(strings.NewReader(s))
}

// Root returns the document node.
func (d *Document) Root() dom.Node { return Node{n: d.root} }

// index walks the tree assigning every addressable node a path. Elements
// get sibling-indexed steps ("div[2]") when the tag repeats among element
// siblings; text and comment nodes get "text()" / "comment()" steps,
// indexed likewise.
func (d *Document) index(n *html.Node, parentPath string) {
	path := parentPath
	switch n.Type {
	case html.DocumentNode:
		path = ""
	case html.ElementNode, html.TextNode, html.CommentNode:
		path = parentPath + "/" + step(n)
	case html.DoctypeNode:
		// Not addressable.
		path = ""
	}
	if path != "" || n.Type == html.DocumentNode {
		d.paths[n] = path
		d.nodes[path] = n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		d.index(c, path)
	}
}

// step computes one path segment with its sibling index.
func step(n *html.Node) string {
	name := segName(n)
	idx, total := 0, 0
	if n.Parent != nil {
		for sib := n.Parent.FirstChild; sib != nil; sib = sib.NextSibling {
			if segName(sib) != name {
				continue
			}
			total++
			if sib == n {
				idx = total
			}
		}
	}
	if total > 1 {
		return fmt.Sprintf("%s[%d]", name, idx)
	}
	return name
}

func segName(n *html.Node) string {
	switch n.Type {
	case html.ElementNode:
		return strings.ToLower(n.Data)
	case html.TextNode:
		return "text()"
	case html.CommentNode:
		return "comment()"
	default:
		return ""
	}
}

// LookupNode resolves a path to its node, implementing dom.Resolver.
func (d *Document) LookupNode(path string) (dom.Node, bool) {
	n, ok := d.nodes[path]
	if !ok {
		return nil, false
	}
	return Node{n: n}, true
}

// PathOf returns the path assigned to a node from this document.
func (d *Document) PathOf(n dom.Node) (string, bool) {
	hn, ok := n.(Node)
	if !ok || hn.n == nil {
		return "", false
	}
	p, ok := d.paths[hn.n]
	return p, ok
}

// SetRect records a client rect for the node at path. Unknown paths are
// reported, not an error: sources may send rects for nodes that did not
// survive parsing.
func (d *Document) SetRect(path string, r dom.Rect) bool {
	n, ok := d.nodes[path]
	if !ok {
		return false
	}
	d.mu.Lock()
	d.rects[n] = r
	d.mu.Unlock()
	return true
}

// NodeRect implements dom.Layout over the recorded rect table.
func (d *Document) NodeRect(n dom.Node) (dom.Rect, bool) {
	hn, ok := n.(Node)
	if !ok || hn.n == nil {
		return dom.Rect{}, false
	}
	d.mu.RLock()
	r, ok := d.rects[hn.n]
	d.mu.RUnlock()
	return r, ok
}
