// Package cdphost attaches treescope to a live page over the Chrome
// DevTools Protocol. It drives Chrome via Rod, injects a capture script
// that bridges the application's devtools hook, and mirrors each capture's
// DOM so the matching engine can work on stable node handles.
package cdphost

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/hazyhaar/treescope/dom"
	"github.com/hazyhaar/treescope/dom/htmldom"
)

//go:embed capture.js
var captureJS string

const renderBinding = "__treescope_render"

// Config configures the page attachment.
type Config struct {
	// URL is the page to open.
	URL string

	// Remote is the WebSocket control URL of an external Chrome instance.
	// Empty = launch a local headless Chrome via launcher.
	Remote string

	// Hook is the global the inspected application exposes. It must provide
	// getRenderTree() and onRender(cb). Default: "__TREESCOPE_HOOK__".
	Hook string

	// CaptureTimeout bounds one capture round trip. Default: 10s.
	CaptureTimeout time.Duration

	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.Hook == "" {
		c.Hook = "__TREESCOPE_HOOK__"
	}
	if c.CaptureTimeout <= 0 {
		c.CaptureTimeout = 10 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Host is a live page attachment. It is the session's tree source and its
// layout, scroll, inspect and path-resolution collaborator.
type Host struct {
	cfg    Config
	lnch   *launcher.Launcher
	brw    *rod.Browser
	page   *rod.Page
	logger *slog.Logger

	// doc mirrors the DOM of the most recent capture.
	mu  sync.Mutex
	doc *htmldom.Document
}

// Connect opens the page and injects the capture bridge. The returned Host
// must be closed.
func Connect(ctx context.Context, cfg Config) (*Host, error) {
	cfg.defaults()
	log := cfg.Logger

	var wsURL string
	var lnch *launcher.Launcher
	if cfg.Remote != "" {
		wsURL = cfg.Remote
		log.Info("cdphost: connecting to remote chrome", "url", wsURL)
	} else {
		l := launcher.New().Headless(true)
		l = l.Set("disable-blink-features", "AutomationControlled")
		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("cdphost: launch: %w", err)
		}
		wsURL = u
		lnch = l
		log.Info("cdphost: launched local chrome", "url", wsURL)
	}

	brw := rod.New().ControlURL(wsURL)
	if err := brw.Connect(); err != nil {
		return nil, fmt.Errorf("cdphost: connect: %w", err)
	}

	page, err := stealth.Page(brw)
	if err != nil {
		brw.Close()
		return nil, fmt.Errorf("cdphost: create page: %w", err)
	}

	navCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := page.Context(navCtx).Navigate(cfg.URL); err != nil {
		page.Close()
		brw.Close()
		return nil, fmt.Errorf("cdphost: navigate %s: %w", cfg.URL, err)
	}
	if err := page.Context(navCtx).WaitLoad(); err != nil {
		log.Warn("cdphost: wait load timeout", "url", cfg.URL, "error", err)
	}

	h := &Host{cfg: cfg, lnch: lnch, brw: brw, page: page, logger: log}
	if _, err := page.Eval(captureJS); err != nil {
		h.Close()
		return nil, fmt.Errorf("cdphost: inject capture bridge: %w", err)
	}

	log.Info("cdphost: attached", "url", cfg.URL, "hook", cfg.Hook)
	return h, nil
}

// OnRenderCycle subscribes fn to the application's render signal. fn runs
// on the event goroutine; keep it cheap. Returns after the subscription is
// installed; delivery stops when ctx is cancelled.
func (h *Host) OnRenderCycle(ctx context.Context, fn func()) error {
	err := proto.RuntimeAddBinding{Name: renderBinding}.Call(h.page)
	if err != nil {
		h.logger.Warn("cdphost: addBinding failed (may already exist)", "error", err)
	}

	_, err = h.page.Eval(`(hook, binding) => window.__treescope.subscribe(hook, binding)`,
		h.cfg.Hook, renderBinding)
	if err != nil {
		return fmt.Errorf("cdphost: subscribe render signal: %w", err)
	}

	go func() {
		h.page.Context(ctx).EachEvent(func(e *proto.RuntimeBindingCalled) {
			if e.Name == renderBinding {
				fn()
			}
		})()
	}()
	return nil
}

// Close shuts down the page, the browser, and a locally launched Chrome.
func (h *Host) Close() {
	if h.page != nil {
		h.page.Close()
	}
	if h.brw != nil {
		h.brw.Close()
	}
	if h.lnch != nil {
		h.lnch.Cleanup()
	}
}

// document returns the DOM mirror of the most recent capture.
func (h *Host) document() *htmldom.Document {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.doc
}

func (h *Host) setDocument(doc *htmldom.Document) {
	h.mu.Lock()
	h.doc = doc
	h.mu.Unlock()
}

// LookupNode resolves a path against the current DOM mirror.
func (h *Host) LookupNode(path string) (dom.Node, bool) {
	doc := h.document()
	if doc == nil {
		return nil, false
	}
	return doc.LookupNode(path)
}

// PathOf returns the path of a mirrored node.
func (h *Host) PathOf(n dom.Node) (string, bool) {
	doc := h.document()
	if doc == nil {
		return "", false
	}
	return doc.PathOf(n)
}

// NodeRect returns a node's viewport rect as measured at capture time.
func (h *Host) NodeRect(n dom.Node) (dom.Rect, bool) {
	doc := h.document()
	if doc == nil {
		return dom.Rect{}, false
	}
	return doc.NodeRect(n)
}

// ScrollIntoView scrolls the element matching the mirrored node's path into
// view on the live page.
func (h *Host) ScrollIntoView(n dom.Node) error {
	path, ok := h.PathOf(n)
	if !ok {
		return fmt.Errorf("cdphost: node has no path")
	}
	_, err := h.page.Eval(`(path) => {
		const r = document.evaluate(path, document, null, XPathResult.FIRST_ORDERED_NODE_TYPE, null);
		const el = r.singleNodeValue;
		if (el && el.scrollIntoView) el.scrollIntoView({ behavior: "smooth", block: "center" });
	}`, path)
	if err != nil {
		return fmt.Errorf("cdphost: scroll into view: %w", err)
	}
	return nil
}

// Inspect reveals the element matching the mirrored node's path in the
// devtools elements panel.
func (h *Host) Inspect(n dom.Node) error {
	path, ok := h.PathOf(n)
	if !ok {
		return fmt.Errorf("cdphost: node has no path")
	}

	el, err := h.page.ElementX(path)
	if err != nil {
		return fmt.Errorf("cdphost: resolve %s: %w", path, err)
	}
	res, err := proto.DOMRequestNode{ObjectID: el.Object.ObjectID}.Call(h.page)
	if err != nil {
		return fmt.Errorf("cdphost: request node: %w", err)
	}
	if err := (proto.DOMSetInspectedNode{NodeID: res.NodeID}.Call(h.page)); err != nil {
		return fmt.Errorf("cdphost: set inspected node: %w", err)
	}
	return nil
}
