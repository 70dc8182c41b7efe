package cdphost

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hazyhaar/treescope/dom"
	"github.com/hazyhaar/treescope/dom/htmldom"
	"github.com/hazyhaar/treescope/rendertree/node"
)

// RemoteObject is an opaque handle to a live page object. The page-side
// bridge keeps the real object addressable by Token until the next capture.
type RemoteObject struct {
	Token string `json:"@ref"`
}

type capturePayload struct {
	HTML  string           `json:"html"`
	Nodes []captureNode    `json:"nodes"`
	Rects map[string]cRect `json:"rects"`
}

type captureNode struct {
	ID       string          `json:"id"`
	Kind     string          `json:"type"`
	Name     string          `json:"name"`
	Args     captureArgs     `json:"args"`
	Instance json.RawMessage `json:"instance"`
	Template string          `json:"template"`
	Bounds   *captureBounds  `json:"bounds"`
	Children []captureNode   `json:"children"`
}

type captureArgs struct {
	Named      map[string]json.RawMessage `json:"named"`
	Positional []json.RawMessage          `json:"positional"`
}

type captureBounds struct {
	Parent string `json:"parent"`
	First  string `json:"first"`
	Last   string `json:"last"`
}

type cRect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// CaptureTree pulls the render tree from the page's devtools hook and
// rebuilds the DOM mirror. Bound DOM handles of the returned nodes point
// into the fresh mirror; handles from earlier captures stay valid against
// their own mirror but no longer resolve here.
func (h *Host) CaptureTree(ctx context.Context) ([]*node.RawNode, error) {
	evalCtx, cancel := context.WithTimeout(ctx, h.cfg.CaptureTimeout)
	defer cancel()

	res, err := h.page.Context(evalCtx).Eval(
		`(hook) => window.__treescope.capture(hook)`, h.cfg.Hook)
	if err != nil {
		return nil, fmt.Errorf("cdphost: capture: %w", err)
	}

	var payload capturePayload
	if err := json.Unmarshal([]byte(res.Value.Str()), &payload); err != nil {
		return nil, fmt.Errorf("cdphost: parse capture payload: %w", err)
	}

	doc, err := htmldom.ParseString(payload.HTML)
	if err != nil {
		return nil, fmt.Errorf("cdphost: mirror dom: %w", err)
	}
	for path, r := range payload.Rects {
		doc.SetRect(path, dom.Rect{X: r.X, Y: r.Y, Width: r.Width, Height: r.Height})
	}
	h.setDocument(doc)

	roots := make([]*node.RawNode, 0, len(payload.Nodes))
	for i := range payload.Nodes {
		roots = append(roots, h.rawNode(doc, &payload.Nodes[i]))
	}

	h.logger.Debug("cdphost: captured tree",
		"roots", len(roots), "rects", len(payload.Rects))
	return roots, nil
}

func (h *Host) rawNode(doc *htmldom.Document, cn *captureNode) *node.RawNode {
	raw := &node.RawNode{
		ID:       cn.ID,
		Kind:     node.Kind(cn.Kind),
		Name:     cn.Name,
		Template: cn.Template,
		Instance: h.decodeValue(cn.Instance),
	}

	if len(cn.Args.Named) > 0 {
		raw.Args.Named = make(map[string]any, len(cn.Args.Named))
		for k, v := range cn.Args.Named {
			raw.Args.Named[k] = h.decodeValue(v)
		}
	}
	for _, v := range cn.Args.Positional {
		raw.Args.Positional = append(raw.Args.Positional, h.decodeValue(v))
	}

	if cn.Bounds != nil {
		// Empty paths mean the node was detached mid-capture; the sentinel
		// "" would otherwise resolve to the document itself.
		b := &node.Bounds{}
		if cn.Bounds.Parent != "" {
			if n, ok := doc.LookupNode(cn.Bounds.Parent); ok {
				b.ParentElement = n
			}
		}
		if cn.Bounds.First != "" {
			if n, ok := doc.LookupNode(cn.Bounds.First); ok {
				b.FirstNode = n
			}
		}
		if cn.Bounds.Last != "" {
			if n, ok := doc.LookupNode(cn.Bounds.Last); ok {
				b.LastNode = n
			}
		}
		raw.Bounds = b
	}

	for i := range cn.Children {
		raw.Children = append(raw.Children, h.rawNode(doc, &cn.Children[i]))
	}
	return raw
}

// decodeValue turns one bridge value into its Go form: primitives as
// themselves, page-object references as RemoteObject handles. Malformed
// values decode to nil, logged so they stay distinguishable from a real
// null argument.
func (h *Host) decodeValue(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}

	var ref RemoteObject
	if err := json.Unmarshal(raw, &ref); err == nil && ref.Token != "" {
		return ref
	}

	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		h.logger.Debug("cdphost: malformed bridge value dropped",
			"raw", string(raw), "error", err)
		return nil
	}
	return v
}
