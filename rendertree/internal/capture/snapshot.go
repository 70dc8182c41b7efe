package capture

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hazyhaar/treescope/dom"
	"github.com/hazyhaar/treescope/rendertree/node"
)

// Config wires a Snapshotter to its collaborators. Source and Retainer are
// required; Layout, Scroller and Inspector are optional, and the dependent
// operations degrade to absent results / no-ops without them.
type Config struct {
	Source    node.Source
	Retainer  node.Retainer
	Layout    dom.Layout
	Scroller  dom.Scroller
	Inspector dom.Inspector
	Logger    *slog.Logger
}

// Snapshotter owns one capture cycle at a time: four id-keyed tables
// populated during Build and wholesale discarded at the next one. Ids are
// the sole join key across the tables and are only valid within a cycle.
//
// Not safe for concurrent use; the session serialises access.
type Snapshotter struct {
	source    node.Source
	items     *serializer
	layout    dom.Layout
	scroller  dom.Scroller
	inspector dom.Inspector
	logger    *slog.Logger

	roots      []*node.RawNode
	nodes      map[string]*node.RawNode
	parents    map[string]*node.RawNode
	serialized map[string]*node.SerializedNode
	ranges     map[string]*dom.Range
}

// New creates a Snapshotter with empty tables.
func New(cfg Config) *Snapshotter {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	s := &Snapshotter{
		source:    cfg.Source,
		items:     newSerializer(cfg.Retainer),
		layout:    cfg.Layout,
		scroller:  cfg.Scroller,
		inspector: cfg.Inspector,
		logger:    cfg.Logger,
	}
	s.reset()
	return s
}

func (s *Snapshotter) reset() {
	s.roots = nil
	s.nodes = make(map[string]*node.RawNode)
	s.parents = make(map[string]*node.RawNode)
	s.serialized = make(map[string]*node.SerializedNode)
	s.ranges = make(map[string]*dom.Range)
}

// Build runs one capture cycle: releases the previous cycle's retained
// objects, resets all tables, pulls a fresh raw forest from the source and
// serializes it depth-first, parents before children. Ids from earlier
// cycles stop resolving once Build returns.
func (s *Snapshotter) Build(ctx context.Context) ([]*node.SerializedNode, error) {
	s.items.drain()
	s.reset()

	roots, err := s.source.CaptureTree(ctx)
	if err != nil {
		return nil, fmt.Errorf("capture: tree source: %w", err)
	}
	s.roots = roots

	out := make([]*node.SerializedNode, 0, len(roots))
	for _, r := range roots {
		out = append(out, s.serializeNode(r, nil))
	}

	s.logger.Debug("capture: built render tree",
		"roots", len(roots), "nodes", len(s.nodes))
	return out, nil
}

// serializeNode memoizes per id within one cycle. A revisited id returns
// the first serialization unchanged: unique ids are an upstream invariant,
// not re-validated here.
func (s *Snapshotter) serializeNode(raw, parent *node.RawNode) *node.SerializedNode {
	if sn, ok := s.serialized[raw.ID]; ok {
		return sn
	}

	s.nodes[raw.ID] = raw
	if parent != nil {
		s.parents[raw.ID] = parent
	}

	sn := &node.SerializedNode{
		ID:       raw.ID,
		Kind:     raw.Kind,
		Name:     raw.Name,
		Template: raw.Template,
		Args: node.SerializedArgs{
			Named:      s.items.dict(raw.Args.Named),
			Positional: s.items.array(raw.Args.Positional),
		},
		Instance: s.items.item(raw.Instance),
		Bounds:   collapseBounds(raw.Bounds),
	}
	sn.Children = make([]*node.SerializedNode, 0, len(raw.Children))
	for _, c := range raw.Children {
		sn.Children = append(sn.Children, s.serializeNode(c, raw))
	}

	s.serialized[raw.ID] = sn
	return sn
}

// collapseBounds reduces bounds to their transport tag: the DOM handles
// stay server-side, addressable by node id.
func collapseBounds(b *node.Bounds) node.BoundsKind {
	switch {
	case b == nil:
		return ""
	case b.FirstNode == b.LastNode:
		return node.BoundsSingle
	default:
		return node.BoundsRange
	}
}

// Find returns the serialized node for id, or nil when the id is not part
// of the current cycle. Repeat calls within a cycle hit the cache.
func (s *Snapshotter) Find(id string) *node.SerializedNode {
	raw, ok := s.nodes[id]
	if !ok {
		return nil
	}
	return s.serializeNode(raw, s.parents[raw.ID])
}

// Range lazily computes and memoizes the DOM range for id. nil is a valid
// cached result, meaning no bounds or bounds detached from their recorded
// parent element (a stale snapshot against a mutated DOM).
func (s *Snapshotter) Range(id string) *dom.Range {
	if r, ok := s.ranges[id]; ok {
		return r
	}
	raw, ok := s.nodes[id]
	if !ok {
		return nil
	}
	rng := computeRange(raw.Bounds)
	s.ranges[id] = rng
	return rng
}

func computeRange(b *node.Bounds) *dom.Range {
	if b == nil || b.ParentElement == nil || b.FirstNode == nil || b.LastNode == nil {
		return nil
	}
	if b.FirstNode.Parent() != b.ParentElement || b.LastNode.Parent() != b.ParentElement {
		return nil
	}
	return dom.NewRange(b.ParentElement, b.FirstNode, b.LastNode)
}

// BoundingRect resolves the on-screen rectangle for id. Single-element
// bounds query the element directly, which stays reliable for clipped or
// hidden content where a range rectangle collapses; spans fall back to the
// range's union rectangle.
func (s *Snapshotter) BoundingRect(id string) (dom.Rect, bool) {
	raw, ok := s.nodes[id]
	if !ok || raw.Bounds == nil || s.layout == nil {
		return dom.Rect{}, false
	}
	b := raw.Bounds
	if b.FirstNode != nil && b.FirstNode == b.LastNode && b.FirstNode.Type() == dom.ElementNode {
		return s.layout.NodeRect(b.FirstNode)
	}
	return dom.RangeRect(s.layout, s.Range(id))
}

// ScrollIntoView brings the node's first element anchor into view. No-op
// for unknown ids, bound-less nodes, or when no scroller is wired.
func (s *Snapshotter) ScrollIntoView(id string) error {
	raw, ok := s.nodes[id]
	if !ok || raw.Bounds == nil || s.scroller == nil {
		return nil
	}
	anchor := findAnchor(raw.Bounds, dom.ElementNode)
	if anchor == nil {
		return nil
	}
	return s.scroller.ScrollIntoView(anchor)
}

// InspectElement reveals the node's DOM in the host inspector. Text nodes
// cannot be shown there, so the anchor scan accepts elements and comments.
func (s *Snapshotter) InspectElement(id string) error {
	raw, ok := s.nodes[id]
	if !ok || raw.Bounds == nil || s.inspector == nil {
		return nil
	}
	anchor := findAnchor(raw.Bounds, dom.ElementNode, dom.CommentNode)
	if anchor == nil {
		return nil
	}
	return s.inspector.Inspect(anchor)
}

// RawBounds exposes the raw bounds for id, for preview rendering.
func (s *Snapshotter) RawBounds(id string) *node.Bounds {
	raw, ok := s.nodes[id]
	if !ok {
		return nil
	}
	return raw.Bounds
}
