package capture

import (
	"context"
	"fmt"
	"testing"

	"github.com/hazyhaar/treescope/dom"
	"github.com/hazyhaar/treescope/dom/htmldom"
	"github.com/hazyhaar/treescope/rendertree/node"
)

// stubSource serves a fixed raw forest.
type stubSource struct {
	roots []*node.RawNode
	err   error
}

func (s *stubSource) CaptureTree(ctx context.Context) ([]*node.RawNode, error) {
	return s.roots, s.err
}

// stubRetainer issues sequential tokens and records releases.
type stubRetainer struct {
	seq      int
	live     map[string]any
	released []string
}

func newStubRetainer() *stubRetainer {
	return &stubRetainer{live: make(map[string]any)}
}

func (r *stubRetainer) Retain(v any) string {
	r.seq++
	id := fmt.Sprintf("obj_%d", r.seq)
	r.live[id] = v
	return id
}

func (r *stubRetainer) Release(id string) {
	delete(r.live, id)
	r.released = append(r.released, id)
}

type scrollSpy struct {
	nodes []dom.Node
}

func (s *scrollSpy) ScrollIntoView(n dom.Node) error {
	s.nodes = append(s.nodes, n)
	return nil
}

type inspectSpy struct {
	nodes []dom.Node
}

func (s *inspectSpy) Inspect(n dom.Node) error {
	s.nodes = append(s.nodes, n)
	return nil
}

func parseDoc(t *testing.T, body string) *htmldom.Document {
	t.Helper()
	d, err := htmldom.ParseString("<html><head></head><body>" + body + "</body></html>")
	if err != nil {
		t.Fatalf("parse fixture: %v", err)
	}
	return d
}

func nodeAt(t *testing.T, d *htmldom.Document, path string) dom.Node {
	t.Helper()
	n, ok := d.LookupNode(path)
	if !ok {
		t.Fatalf("fixture has no node at %q", path)
	}
	return n
}

func boundsAt(t *testing.T, d *htmldom.Document, parent, first, last string) *node.Bounds {
	t.Helper()
	return &node.Bounds{
		ParentElement: nodeAt(t, d, parent),
		FirstNode:     nodeAt(t, d, first),
		LastNode:      nodeAt(t, d, last),
	}
}

func newTestSnapshotter(src *stubSource, layout dom.Layout) (*Snapshotter, *stubRetainer) {
	ret := newStubRetainer()
	s := New(Config{Source: src, Retainer: ret, Layout: layout})
	return s, ret
}

func build(t *testing.T, s *Snapshotter) []*node.SerializedNode {
	t.Helper()
	roots, err := s.Build(context.Background())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	return roots
}
