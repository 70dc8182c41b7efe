package rendertree

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hazyhaar/treescope/dom"
	"github.com/hazyhaar/treescope/dom/htmldom"
	"github.com/hazyhaar/treescope/rendertree/internal/config"
	"github.com/hazyhaar/treescope/rendertree/node"
)

type stubSource struct {
	mu    sync.Mutex
	roots []*node.RawNode
	calls int
}

func (s *stubSource) CaptureTree(context.Context) ([]*node.RawNode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.roots, nil
}

func (s *stubSource) captureCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type treeCollector struct {
	mu    sync.Mutex
	trees []node.Tree
}

func (c *treeCollector) onTree(_ context.Context, tree node.Tree) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.trees = append(c.trees, tree)
	return nil
}

func (c *treeCollector) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.trees)
}

const sessionFixture = `<html><head></head><body><div id="a"><span>one</span><span>two</span></div></body></html>`

func sessionDoc(t *testing.T) *htmldom.Document {
	t.Helper()
	doc, err := htmldom.ParseString(sessionFixture)
	if err != nil {
		t.Fatalf("parse fixture: %v", err)
	}
	return doc
}

func fixtureNode(t *testing.T, doc *htmldom.Document, path string) dom.Node {
	t.Helper()
	n, ok := doc.LookupNode(path)
	if !ok {
		t.Fatalf("fixture node not found: %s", path)
	}
	return n
}

func fixtureRoots(t *testing.T, doc *htmldom.Document) []*node.RawNode {
	t.Helper()
	return []*node.RawNode{{
		ID:   "render-1",
		Kind: node.KindComponent,
		Name: "app",
		Bounds: &node.Bounds{
			ParentElement: fixtureNode(t, doc, "/html/body/div"),
			FirstNode:     fixtureNode(t, doc, "/html/body/div/span[1]"),
			LastNode:      fixtureNode(t, doc, "/html/body/div/span[2]"),
		},
	}}
}

func newTestSession(t *testing.T, cfg *config.Config, sinks ...Sink) (*Session, *stubSource, *htmldom.Document) {
	t.Helper()
	if cfg == nil {
		cfg = config.Default()
	}

	doc := sessionDoc(t)
	src := &stubSource{roots: fixtureRoots(t, doc)}

	s, err := NewSession(cfg, Host{
		Source:   src,
		Layout:   doc,
		Resolver: doc,
	}, nil, sinks...)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	t.Cleanup(s.Stop)
	return s, src, doc
}

func TestNewSessionRequiresSource(t *testing.T) {
	if _, err := NewSession(nil, Host{}, nil); err == nil {
		t.Fatal("expected error for missing source")
	}
}

func TestRebuildEmitsToSinks(t *testing.T) {
	col := &treeCollector{}
	s, _, _ := newTestSession(t, nil, NewCallbackSink(col.onTree))

	tree, err := s.Rebuild(context.Background())
	if err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	if tree.ID == "" {
		t.Error("tree has no capture id")
	}
	if tree.NodeCount != 1 {
		t.Errorf("NodeCount = %d, want 1", tree.NodeCount)
	}
	if col.count() != 1 {
		t.Fatalf("sink received %d trees, want 1", col.count())
	}
	if got := s.Tree(); got != tree {
		t.Error("Tree() does not return the last capture")
	}
}

func TestNotifyRenderCycle_DebouncesBursts(t *testing.T) {
	cfg := config.Default()
	cfg.Debounce.Window = 30 * time.Millisecond

	col := &treeCollector{}
	s, src, _ := newTestSession(t, cfg, NewCallbackSink(col.onTree))

	for i := 0; i < 10; i++ {
		s.NotifyRenderCycle()
	}
	time.Sleep(150 * time.Millisecond)

	if got := src.captureCalls(); got != 1 {
		t.Errorf("burst caused %d captures, want 1", got)
	}
	if col.count() != 1 {
		t.Errorf("sink received %d trees, want 1", col.count())
	}

	// A signal after the window fired schedules a fresh rebuild.
	s.NotifyRenderCycle()
	time.Sleep(150 * time.Millisecond)
	if got := src.captureCalls(); got != 2 {
		t.Errorf("second cycle: %d captures, want 2", got)
	}
}

func TestStopCancelsPendingRebuild(t *testing.T) {
	cfg := config.Default()
	cfg.Debounce.Window = 50 * time.Millisecond

	col := &treeCollector{}
	s, src, _ := newTestSession(t, cfg, NewCallbackSink(col.onTree))

	s.NotifyRenderCycle()
	s.Stop()
	time.Sleep(150 * time.Millisecond)

	if got := src.captureCalls(); got != 0 {
		t.Errorf("capture ran after Stop: %d calls", got)
	}
	if s.Tree() != nil {
		t.Error("Tree() non-nil after cancelled rebuild")
	}

	// Signals after Stop are ignored.
	s.NotifyRenderCycle()
	time.Sleep(100 * time.Millisecond)
	if got := src.captureCalls(); got != 0 {
		t.Errorf("capture ran after Stop: %d calls", got)
	}
}

func TestHandleUnknownCommand(t *testing.T) {
	s, _, _ := newTestSession(t, nil)
	if _, err := s.Handle(context.Background(), "tree_bogus", nil); err == nil {
		t.Fatal("expected error for unknown command")
	}
}

func TestHandleBuildAndFind(t *testing.T) {
	s, _, _ := newTestSession(t, nil)
	ctx := context.Background()

	out, err := s.Handle(ctx, "tree_build", nil)
	if err != nil {
		t.Fatalf("tree_build: %v", err)
	}
	tree, err := node.UnmarshalTree(out)
	if err != nil {
		t.Fatalf("unmarshal tree: %v", err)
	}
	if len(tree.Roots) != 1 || tree.Roots[0].ID != "render-1" {
		t.Fatalf("unexpected roots: %+v", tree.Roots)
	}

	out, err = s.Handle(ctx, "tree_find", []byte(`{"id":"render-1"}`))
	if err != nil {
		t.Fatalf("tree_find: %v", err)
	}
	var found struct {
		Node *node.SerializedNode `json:"node"`
	}
	if err := json.Unmarshal(out, &found); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if found.Node == nil || found.Node.Name != "app" {
		t.Errorf("tree_find returned %+v", found.Node)
	}

	// Stale id yields a null node, not an error.
	out, err = s.Handle(ctx, "tree_find", []byte(`{"id":"render-9"}`))
	if err != nil {
		t.Fatalf("tree_find stale: %v", err)
	}
	found.Node = nil
	json.Unmarshal(out, &found)
	if found.Node != nil {
		t.Errorf("stale id matched: %+v", found.Node)
	}
}

func TestHandleFindNearest(t *testing.T) {
	s, _, _ := newTestSession(t, nil)
	ctx := context.Background()

	if _, err := s.Handle(ctx, "tree_build", nil); err != nil {
		t.Fatalf("tree_build: %v", err)
	}

	out, err := s.Handle(ctx, "tree_find_nearest", []byte(`{"path":"/html/body/div/span[1]"}`))
	if err != nil {
		t.Fatalf("tree_find_nearest: %v", err)
	}
	var resp struct {
		Node *node.SerializedNode `json:"node"`
	}
	if err := json.Unmarshal(out, &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Node == nil || resp.Node.ID != "render-1" {
		t.Errorf("nearest = %+v, want render-1", resp.Node)
	}

	// Unresolvable paths yield a null node.
	out, err = s.Handle(ctx, "tree_find_nearest", []byte(`{"path":"/html/body/nope"}`))
	if err != nil {
		t.Fatalf("tree_find_nearest miss: %v", err)
	}
	resp.Node = nil
	json.Unmarshal(out, &resp)
	if resp.Node != nil {
		t.Errorf("unresolvable path matched: %+v", resp.Node)
	}
}

func TestHandleRect(t *testing.T) {
	s, _, doc := newTestSession(t, nil)
	ctx := context.Background()

	doc.SetRect("/html/body/div/span[1]", dom.Rect{X: 0, Y: 0, Width: 50, Height: 20})
	doc.SetRect("/html/body/div/span[2]", dom.Rect{X: 0, Y: 20, Width: 80, Height: 20})

	if _, err := s.Handle(ctx, "tree_build", nil); err != nil {
		t.Fatalf("tree_build: %v", err)
	}

	out, err := s.Handle(ctx, "tree_rect", []byte(`{"id":"render-1"}`))
	if err != nil {
		t.Fatalf("tree_rect: %v", err)
	}
	var resp struct {
		Found bool     `json:"found"`
		Rect  dom.Rect `json:"rect"`
	}
	if err := json.Unmarshal(out, &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !resp.Found {
		t.Fatal("rect not found")
	}
	want := dom.Rect{X: 0, Y: 0, Width: 80, Height: 40}
	if resp.Rect != want {
		t.Errorf("rect = %+v, want %+v", resp.Rect, want)
	}
}

func TestHandleRange(t *testing.T) {
	s, _, _ := newTestSession(t, nil)
	ctx := context.Background()

	if _, err := s.Handle(ctx, "tree_build", nil); err != nil {
		t.Fatalf("tree_build: %v", err)
	}

	out, err := s.Handle(ctx, "tree_range", []byte(`{"id":"render-1"}`))
	if err != nil {
		t.Fatalf("tree_range: %v", err)
	}
	var resp struct {
		Present    bool   `json:"present"`
		NodeCount  int    `json:"node_count"`
		ParentPath string `json:"parent_path"`
		StartPath  string `json:"start_path"`
		EndPath    string `json:"end_path"`
	}
	if err := json.Unmarshal(out, &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !resp.Present {
		t.Fatal("range not present")
	}
	if resp.NodeCount != 2 {
		t.Errorf("node_count = %d, want 2", resp.NodeCount)
	}
	if resp.ParentPath != "/html/body/div" {
		t.Errorf("parent_path = %q", resp.ParentPath)
	}
	if resp.StartPath != "/html/body/div/span[1]" || resp.EndPath != "/html/body/div/span[2]" {
		t.Errorf("endpoint paths = %q..%q", resp.StartPath, resp.EndPath)
	}

	out, err = s.Handle(ctx, "tree_range", []byte(`{"id":"render-9"}`))
	if err != nil {
		t.Fatalf("tree_range stale: %v", err)
	}
	resp.Present = true
	json.Unmarshal(out, &resp)
	if resp.Present {
		t.Error("stale id reported a present range")
	}
}

func TestHandlePreview(t *testing.T) {
	cfg := config.Default()
	cfg.Preview.Markdown = false
	s, _, _ := newTestSession(t, cfg)
	ctx := context.Background()

	if _, err := s.Handle(ctx, "tree_build", nil); err != nil {
		t.Fatalf("tree_build: %v", err)
	}

	out, err := s.Handle(ctx, "tree_preview", []byte(`{"id":"render-1"}`))
	if err != nil {
		t.Fatalf("tree_preview: %v", err)
	}
	var resp struct {
		Found   bool   `json:"found"`
		Preview string `json:"preview"`
	}
	if err := json.Unmarshal(out, &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !resp.Found {
		t.Fatal("preview not found")
	}
	if !strings.Contains(resp.Preview, "one") || !strings.Contains(resp.Preview, "two") {
		t.Errorf("preview lost content: %q", resp.Preview)
	}
}

func TestHandleHistory(t *testing.T) {
	cfg := config.Default()
	cfg.History.Path = filepath.Join(t.TempDir(), "history.db")
	s, _, _ := newTestSession(t, cfg)
	ctx := context.Background()

	if _, err := s.Handle(ctx, "tree_build", nil); err != nil {
		t.Fatalf("tree_build: %v", err)
	}

	out, err := s.Handle(ctx, "tree_history", []byte(`{"limit":5}`))
	if err != nil {
		t.Fatalf("tree_history: %v", err)
	}
	var resp struct {
		Captures []struct {
			ID        string `json:"capture_id"`
			NodeCount int    `json:"node_count"`
		} `json:"captures"`
	}
	if err := json.Unmarshal(out, &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(resp.Captures) != 1 {
		t.Fatalf("history has %d rows, want 1", len(resp.Captures))
	}
	if resp.Captures[0].NodeCount != 1 {
		t.Errorf("node_count = %d, want 1", resp.Captures[0].NodeCount)
	}
}

func TestHandleHistoryWithoutStore(t *testing.T) {
	s, _, _ := newTestSession(t, nil)
	if _, err := s.Handle(context.Background(), "tree_history", nil); err == nil {
		t.Fatal("expected error when history store is not configured")
	}
}
