// Package rendertree provides a render-tree inspection session for a running
// UI application. It captures the application's tree of outlets, engines,
// route templates and components, serializes it into a transportable
// snapshot, and answers element-level queries (bounds, rects, nearest node,
// previews) against the current capture.
//
// rendertree observes, it does not interpret. Snapshots are emitted to sinks
// (stdout, callback) for consumers to process; commands are exposed over MCP
// and a debug HTTP surface.
package rendertree

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/hazyhaar/treescope/dom"
	"github.com/hazyhaar/treescope/idgen"
	"github.com/hazyhaar/treescope/rendertree/internal/capture"
	"github.com/hazyhaar/treescope/rendertree/internal/config"
	"github.com/hazyhaar/treescope/rendertree/internal/history"
	"github.com/hazyhaar/treescope/rendertree/internal/preview"
	"github.com/hazyhaar/treescope/rendertree/internal/sink"
	"github.com/hazyhaar/treescope/rendertree/node"
	"github.com/hazyhaar/treescope/retain"
)

// Host groups the collaborators a Session needs from the page host. Source
// is required; the rest degrade gracefully when absent (rect queries report
// unknown, scroll and inspect become no-ops, path lookups fail).
type Host struct {
	Source    node.Source
	Retainer  node.Retainer
	Layout    dom.Layout
	Scroller  dom.Scroller
	Inspector dom.Inspector
	Resolver  dom.Resolver
}

// Session is the top-level orchestrator. It owns the snapshotter, debounces
// render-cycle signals into rebuilds, and emits each capture to sinks.
// Create one per inspected page.
type Session struct {
	cfg      *config.Config
	snap     *capture.Snapshotter
	sinkR    *sink.Router
	hist     *history.Log
	prev     *preview.Renderer
	resolver dom.Resolver
	logger   *slog.Logger
	newID    idgen.Generator

	// opMu serializes snapshotter access: one rebuild or query at a time,
	// the single-threaded model the cache semantics assume.
	opMu sync.Mutex

	mu      sync.Mutex
	timer   *time.Timer
	last    *node.Tree
	stopped bool
}

// NewSession creates a Session from configuration. The capture history store
// is opened when cfg.History.Path is set.
func NewSession(cfg *config.Config, host Host, logger *slog.Logger, sinks ...sink.Sink) (*Session, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = slog.Default()
	}
	if host.Source == nil {
		return nil, fmt.Errorf("rendertree: host source is required")
	}

	retainer := host.Retainer
	if retainer == nil {
		retainer = retain.NewArena()
	}

	var hist *history.Log
	if cfg.History.Path != "" {
		var err error
		hist, err = history.Open(cfg.History.Path, logger)
		if err != nil {
			return nil, fmt.Errorf("rendertree: open history: %w", err)
		}
	}

	return &Session{
		cfg: cfg,
		snap: capture.New(capture.Config{
			Source:    host.Source,
			Retainer:  retainer,
			Layout:    host.Layout,
			Scroller:  host.Scroller,
			Inspector: host.Inspector,
			Logger:    logger,
		}),
		sinkR: sink.NewRouter(logger, sinks...),
		hist:  hist,
		prev: preview.New(preview.Options{
			Markdown: cfg.Preview.Markdown,
			MaxBytes: cfg.Preview.MaxBytes,
		}),
		resolver: host.Resolver,
		logger:   logger,
		newID:    idgen.UUIDv7(),
	}, nil
}

// NotifyRenderCycle signals that the application finished a render cycle.
// Bursts collapse into a single rebuild: the first signal arms a timer for
// the debounce window, later signals within the window are dropped.
func (s *Session) NotifyRenderCycle() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped || s.timer != nil {
		return
	}
	s.timer = time.AfterFunc(s.cfg.Debounce.Window, s.rebuildFromTimer)
}

func (s *Session) rebuildFromTimer() {
	s.mu.Lock()
	s.timer = nil
	stopped := s.stopped
	s.mu.Unlock()
	if stopped {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Page.CaptureTimeout)
	defer cancel()

	if _, err := s.Rebuild(ctx); err != nil {
		s.logger.Error("rendertree: scheduled rebuild failed", "error", err)
	}
}

// Rebuild captures the render tree now, emits the snapshot to sinks, and
// records it in the capture history.
func (s *Session) Rebuild(ctx context.Context) (*node.Tree, error) {
	start := time.Now()

	s.opMu.Lock()
	roots, err := s.snap.Build(ctx)
	s.opMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("rendertree: rebuild: %w", err)
	}

	tree := &node.Tree{
		ID:         s.newID(),
		Roots:      roots,
		NodeCount:  node.Count(roots),
		Timestamp:  start.UnixMilli(),
		DurationMS: time.Since(start).Milliseconds(),
	}

	s.mu.Lock()
	s.last = tree
	s.mu.Unlock()

	if err := s.sinkR.Send(ctx, *tree); err != nil {
		s.logger.Error("rendertree: emit tree failed", "error", err, "capture_id", tree.ID)
	}
	if s.hist != nil {
		s.hist.LogCapture(ctx, *tree)
	}

	s.logger.Info("rendertree: captured tree",
		"capture_id", tree.ID, "nodes", tree.NodeCount, "duration_ms", tree.DurationMS)
	return tree, nil
}

// Tree returns the most recent capture, or nil before the first rebuild.
func (s *Session) Tree() *node.Tree {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// Stop cancels any pending rebuild and closes sinks and the history store.
func (s *Session) Stop() {
	s.mu.Lock()
	s.stopped = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.mu.Unlock()

	s.sinkR.Close()
	if s.hist != nil {
		if err := s.hist.Close(); err != nil {
			s.logger.Warn("rendertree: close history failed", "error", err)
		}
	}
}

// outerHTML collects the markup covered by a node's bounds: the outer HTML
// of each node in the sibling window, or of the parent element when the
// window is empty.
func (s *Session) outerHTML(id string) (string, bool) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	b := s.snap.RawBounds(id)
	if b == nil {
		return "", false
	}

	var parts []string
	if b.FirstNode != nil && b.LastNode != nil {
		for n := b.FirstNode; n != nil; n = n.NextSibling() {
			if h, ok := dom.OuterHTML(n); ok {
				parts = append(parts, h)
			}
			if n == b.LastNode {
				break
			}
		}
	}
	if len(parts) == 0 && b.ParentElement != nil {
		if h, ok := dom.OuterHTML(b.ParentElement); ok {
			parts = append(parts, h)
		}
	}
	if len(parts) == 0 {
		return "", false
	}
	return strings.Join(parts, ""), true
}

func marshalResponse(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("rendertree: marshal response: %w", err)
	}
	return data, nil
}
