package capture

import (
	"github.com/hazyhaar/treescope/dom"
	"github.com/hazyhaar/treescope/rendertree/node"
)

// FindNearest resolves the most specific render node whose bounds contain
// target. A hint id surviving from a previous match narrows the first
// search to a nearby subtree (mouse movement is spatially local); hints
// from a destroyed cycle are silently ignored and the full forest is
// searched. The deepest containing match wins, siblings in document order.
func (s *Snapshotter) FindNearest(target dom.Node, hintID string) *node.SerializedNode {
	if target == nil {
		return nil
	}

	var candidates []*node.RawNode
	if hint, ok := s.nodes[hintID]; ok {
		candidates = append(candidates, s.searchRoot(hint))
	}
	candidates = append(candidates, s.roots...)

	m := s.matchNodes(candidates, target, true)
	if m == nil {
		return nil
	}
	return s.serializeNode(m, s.parents[m.ID])
}

// searchRoot climbs from the hint past ancestors whose bounds share its
// enclosing parent element (an outlet and its route template occupy the
// identical region) and returns the first ancestor owning a genuinely
// different one. The true match, if nearby, lies in that ancestor's
// subtree. A hint with no such ancestor is its own search root.
func (s *Snapshotter) searchRoot(n *node.RawNode) *node.RawNode {
	for {
		p := s.parents[n.ID]
		if p == nil {
			return n
		}
		if p.Bounds == nil || n.Bounds == nil || p.Bounds.ParentElement != n.Bounds.ParentElement {
			return p
		}
		n = p
	}
}

// matchNodes runs a worklist search over cands. A containing candidate is
// refined through its children only (deep=false): descend just into what
// still contains the target. While deep is set, children of non-matching
// candidates stay reachable, because portal-style nodes are not spatially
// contained by their logical parents; nodes without a resolvable range
// never rule out their descendants.
func (s *Snapshotter) matchNodes(cands []*node.RawNode, target dom.Node, deep bool) *node.RawNode {
	queue := append([]*node.RawNode(nil), cands...)
	for i := 0; i < len(queue); i++ {
		cand := queue[i]
		rng := s.Range(cand.ID)
		switch {
		case rng != nil && rng.ContainsNode(target):
			if m := s.matchNodes(cand.Children, target, false); m != nil {
				return m
			}
			return cand
		case rng == nil || deep:
			queue = append(queue, cand.Children...)
		}
	}
	return nil
}
