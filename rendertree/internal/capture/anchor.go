package capture

import (
	"github.com/hazyhaar/treescope/dom"
	"github.com/hazyhaar/treescope/rendertree/node"
)

// findAnchor scans the bounds span for the first node of an accepted type
// and falls back to the parent element, so callers always get a usable
// anchor even when a node's DOM bounds are pure text.
func findAnchor(b *node.Bounds, accepted ...dom.NodeType) dom.Node {
	for n := b.FirstNode; n != nil; n = n.NextSibling() {
		for _, t := range accepted {
			if n.Type() == t {
				return n
			}
		}
		if n == b.LastNode {
			break
		}
	}
	return b.ParentElement
}
