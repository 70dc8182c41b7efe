package rendertree

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hazyhaar/treescope/dom"
	"github.com/hazyhaar/treescope/rendertree/node"
)

// CommandFunc handles one command with a JSON payload.
type CommandFunc func(ctx context.Context, payload []byte) ([]byte, error)

// pathResolver is the optional reverse mapping a host resolver may support.
type pathResolver interface {
	PathOf(dom.Node) (string, bool)
}

// Commands returns the command table. Names are stable and shared by the
// MCP and HTTP surfaces.
func (s *Session) Commands() map[string]CommandFunc {
	return map[string]CommandFunc{
		"tree_build":            s.handleBuild,
		"tree_find":             s.handleFind,
		"tree_find_nearest":     s.handleFindNearest,
		"tree_rect":             s.handleRect,
		"tree_range":            s.handleRange,
		"tree_scroll_into_view": s.handleScrollIntoView,
		"tree_inspect_element":  s.handleInspectElement,
		"tree_preview":          s.handlePreview,
		"tree_history":          s.handleHistory,
	}
}

// Handle dispatches one named command. An empty payload is treated as {}.
func (s *Session) Handle(ctx context.Context, name string, payload []byte) ([]byte, error) {
	cmd, ok := s.Commands()[name]
	if !ok {
		return nil, fmt.Errorf("rendertree: unknown command %q", name)
	}
	if len(payload) == 0 {
		payload = []byte("{}")
	}
	return cmd(ctx, payload)
}

// handleBuild captures the tree now and returns the full snapshot.
// Payload: {}
func (s *Session) handleBuild(ctx context.Context, _ []byte) ([]byte, error) {
	tree, err := s.Rebuild(ctx)
	if err != nil {
		return nil, err
	}
	return node.MarshalTree(tree)
}

// handleFind looks up a node of the current capture by id.
// Payload: {"id": "..."}
func (s *Session) handleFind(_ context.Context, payload []byte) ([]byte, error) {
	var req struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, fmt.Errorf("tree_find: unmarshal: %w", err)
	}
	s.opMu.Lock()
	found := s.snap.Find(req.ID)
	s.opMu.Unlock()
	return marshalResponse(map[string]any{"node": found})
}

// handleFindNearest resolves a DOM path and returns the render node whose
// bounds most closely contain it. The optional hint names the node that
// matched the same element in a previous capture.
// Payload: {"path": "...", "hint_id": "..."}
func (s *Session) handleFindNearest(_ context.Context, payload []byte) ([]byte, error) {
	var req struct {
		Path   string `json:"path"`
		HintID string `json:"hint_id"`
	}
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, fmt.Errorf("tree_find_nearest: unmarshal: %w", err)
	}
	if s.resolver == nil {
		return nil, fmt.Errorf("tree_find_nearest: host has no resolver")
	}

	target, ok := s.resolver.LookupNode(req.Path)
	if !ok {
		return marshalResponse(map[string]any{"node": nil})
	}
	s.opMu.Lock()
	match := s.snap.FindNearest(target, req.HintID)
	s.opMu.Unlock()
	return marshalResponse(map[string]any{"node": match})
}

// handleRect returns the bounding rect of a node's rendered output.
// Payload: {"id": "..."}
func (s *Session) handleRect(_ context.Context, payload []byte) ([]byte, error) {
	var req struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, fmt.Errorf("tree_rect: unmarshal: %w", err)
	}

	s.opMu.Lock()
	rect, ok := s.snap.BoundingRect(req.ID)
	s.opMu.Unlock()
	resp := map[string]any{"found": ok}
	if ok {
		resp["rect"] = rect
	}
	return marshalResponse(resp)
}

// handleRange describes a node's live DOM range: whether it still resolves,
// how many top-level nodes it spans, and (when the host resolver supports
// reverse lookups) the paths of its parent and endpoints.
// Payload: {"id": "..."}
func (s *Session) handleRange(_ context.Context, payload []byte) ([]byte, error) {
	var req struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, fmt.Errorf("tree_range: unmarshal: %w", err)
	}

	s.opMu.Lock()
	rng := s.snap.Range(req.ID)
	s.opMu.Unlock()
	if rng == nil {
		return marshalResponse(map[string]any{"present": false})
	}

	resp := map[string]any{
		"present":    true,
		"node_count": len(rng.Nodes()),
	}
	if pr, ok := s.resolver.(pathResolver); ok {
		if p, ok := pr.PathOf(rng.Parent); ok {
			resp["parent_path"] = p
		}
		if p, ok := pr.PathOf(rng.Start); ok {
			resp["start_path"] = p
		}
		if p, ok := pr.PathOf(rng.End); ok {
			resp["end_path"] = p
		}
	}
	return marshalResponse(resp)
}

// handleScrollIntoView scrolls the first suitable element of a node's
// bounds into view. Unknown ids are a no-op.
// Payload: {"id": "..."}
func (s *Session) handleScrollIntoView(_ context.Context, payload []byte) ([]byte, error) {
	var req struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, fmt.Errorf("tree_scroll_into_view: unmarshal: %w", err)
	}
	s.opMu.Lock()
	err := s.snap.ScrollIntoView(req.ID)
	s.opMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("tree_scroll_into_view: %w", err)
	}
	return marshalResponse(map[string]string{"status": "ok"})
}

// handleInspectElement reveals a node's anchor element in the host
// inspector. Unknown ids are a no-op.
// Payload: {"id": "..."}
func (s *Session) handleInspectElement(_ context.Context, payload []byte) ([]byte, error) {
	var req struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, fmt.Errorf("tree_inspect_element: unmarshal: %w", err)
	}
	s.opMu.Lock()
	err := s.snap.InspectElement(req.ID)
	s.opMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("tree_inspect_element: %w", err)
	}
	return marshalResponse(map[string]string{"status": "ok"})
}

// handlePreview returns a sanitized text preview of the markup a node
// rendered.
// Payload: {"id": "..."}
func (s *Session) handlePreview(_ context.Context, payload []byte) ([]byte, error) {
	var req struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, fmt.Errorf("tree_preview: unmarshal: %w", err)
	}

	html, ok := s.outerHTML(req.ID)
	if !ok {
		return marshalResponse(map[string]any{"found": false})
	}
	text, err := s.prev.Render(html)
	if err != nil {
		return nil, fmt.Errorf("tree_preview: %w", err)
	}
	return marshalResponse(map[string]any{"found": true, "preview": text})
}

// handleHistory lists recent capture summaries from the history store.
// Payload: {"limit": 20}
func (s *Session) handleHistory(ctx context.Context, payload []byte) ([]byte, error) {
	var req struct {
		Limit int `json:"limit"`
	}
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, fmt.Errorf("tree_history: unmarshal: %w", err)
	}
	if s.hist == nil {
		return nil, fmt.Errorf("tree_history: history store not configured")
	}

	captures, err := s.hist.Recent(ctx, req.Limit)
	if err != nil {
		return nil, err
	}
	return marshalResponse(map[string]any{"captures": captures})
}
