package dom

// Range is a contiguous sibling span under one parent element: everything
// from just before Start to just after End. A single-node range has
// Start == End.
type Range struct {
	Parent Node
	Start  Node
	End    Node
}

// NewRange builds a range over the span [start, end] under parent. Returns
// nil when any endpoint is missing.
func NewRange(parent, start, end Node) *Range {
	if parent == nil || start == nil || end == nil {
		return nil
	}
	return &Range{Parent: parent, Start: start, End: end}
}

// ContainsNode reports whether the boundary point (n, 0) lies inside the
// range. A descendant is contained when its ancestor directly under
// Parent falls within the [Start, End] sibling window. The parent element
// itself is contained only when the range starts at its first child.
func (r *Range) ContainsNode(n Node) bool {
	if r == nil || n == nil {
		return false
	}
	if n == r.Parent {
		return r.Parent.FirstChild() == r.Start
	}

	// Climb to the ancestor that is a direct child of Parent.
	top := n
	for {
		p := top.Parent()
		if p == nil {
			return false
		}
		if p == r.Parent {
			break
		}
		top = p
	}

	for sib := r.Start; sib != nil; sib = sib.NextSibling() {
		if sib == top {
			return true
		}
		if sib == r.End {
			break
		}
	}
	return false
}

// Nodes returns the member span [Start, End] in document order.
func (r *Range) Nodes() []Node {
	if r == nil {
		return nil
	}
	var out []Node
	for sib := r.Start; sib != nil; sib = sib.NextSibling() {
		out = append(out, sib)
		if sib == r.End {
			break
		}
	}
	return out
}

// RangeRect computes the union of the member nodes' rects. ok=false when
// the layout knows none of them.
func RangeRect(l Layout, r *Range) (Rect, bool) {
	if l == nil || r == nil {
		return Rect{}, false
	}
	var acc Rect
	found := false
	for _, n := range r.Nodes() {
		rect, ok := l.NodeRect(n)
		if !ok {
			continue
		}
		if !found {
			acc = rect
			found = true
			continue
		}
		acc = acc.Union(rect)
	}
	return acc, found
}
