package cdphost

import (
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/hazyhaar/treescope/dom"
	"github.com/hazyhaar/treescope/dom/htmldom"
	"github.com/hazyhaar/treescope/rendertree/node"
)

func testHost(t *testing.T) *Host {
	t.Helper()
	return &Host{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

func TestDecodeValue(t *testing.T) {
	tests := []struct {
		raw  string
		want any
	}{
		{`"hello"`, "hello"},
		{`42`, float64(42)},
		{`true`, true},
		{`null`, nil},
		{`{"@ref":"page_3"}`, RemoteObject{Token: "page_3"}},
	}
	h := testHost(t)
	for _, tt := range tests {
		got := h.decodeValue(json.RawMessage(tt.raw))
		if got != tt.want {
			t.Errorf("decodeValue(%s) = %#v, want %#v", tt.raw, got, tt.want)
		}
	}
}

func TestDecodeValue_MalformedBecomesNil(t *testing.T) {
	h := testHost(t)
	for _, raw := range []string{`{"broken`, `[1,`, `nope`} {
		if got := h.decodeValue(json.RawMessage(raw)); got != nil {
			t.Errorf("decodeValue(%s) = %#v, want nil", raw, got)
		}
	}
}

func TestDecodeValue_PlainObjectIsNotARef(t *testing.T) {
	got := testHost(t).decodeValue(json.RawMessage(`{"other":"field"}`))
	if _, ok := got.(RemoteObject); ok {
		t.Fatalf("plain object decoded as remote ref: %#v", got)
	}
	m, ok := got.(map[string]any)
	if !ok || m["other"] != "field" {
		t.Errorf("decodeValue = %#v", got)
	}
}

func TestRawNodeResolvesBounds(t *testing.T) {
	doc, err := htmldom.ParseString(
		`<html><head></head><body><div><span>one</span><span>two</span></div></body></html>`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	var payload capturePayload
	err = json.Unmarshal([]byte(`{
		"html": "",
		"nodes": [{
			"id": "n1",
			"type": "component",
			"name": "list",
			"args": {
				"named": {"title": "Items", "model": {"@ref": "page_1"}},
				"positional": [1, 2]
			},
			"instance": {"@ref": "page_2"},
			"bounds": {
				"parent": "/html/body/div",
				"first": "/html/body/div/span[1]",
				"last": "/html/body/div/span[2]"
			},
			"children": [{
				"id": "n2", "type": "component", "name": "item",
				"args": {"named": {}, "positional": []},
				"instance": null, "bounds": null, "children": []
			}]
		}],
		"rects": {"/html/body/div": {"x": 1, "y": 2, "width": 3, "height": 4}}
	}`), &payload)
	if err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}

	h := testHost(t)
	raw := h.rawNode(doc, &payload.Nodes[0])

	if raw.ID != "n1" || raw.Kind != node.KindComponent || raw.Name != "list" {
		t.Errorf("header mismatch: %+v", raw)
	}
	if raw.Args.Named["title"] != "Items" {
		t.Errorf("named arg = %#v", raw.Args.Named["title"])
	}
	if ref, ok := raw.Args.Named["model"].(RemoteObject); !ok || ref.Token != "page_1" {
		t.Errorf("model arg = %#v", raw.Args.Named["model"])
	}
	if len(raw.Args.Positional) != 2 || raw.Args.Positional[0] != float64(1) {
		t.Errorf("positional args = %#v", raw.Args.Positional)
	}
	if ref, ok := raw.Instance.(RemoteObject); !ok || ref.Token != "page_2" {
		t.Errorf("instance = %#v", raw.Instance)
	}

	if raw.Bounds == nil {
		t.Fatal("bounds not resolved")
	}
	parent, _ := doc.LookupNode("/html/body/div")
	first, _ := doc.LookupNode("/html/body/div/span[1]")
	if raw.Bounds.ParentElement != parent || raw.Bounds.FirstNode != first {
		t.Error("bounds do not point into the mirror")
	}

	if len(raw.Children) != 1 || raw.Children[0].ID != "n2" {
		t.Errorf("children = %+v", raw.Children)
	}
	if raw.Children[0].Instance != nil {
		t.Errorf("null instance decoded as %#v", raw.Children[0].Instance)
	}

	// Rects from the payload apply to the mirror.
	for path, r := range payload.Rects {
		doc.SetRect(path, dom.Rect{X: r.X, Y: r.Y, Width: r.Width, Height: r.Height})
	}
	rect, ok := doc.NodeRect(parent)
	if !ok || rect != (dom.Rect{X: 1, Y: 2, Width: 3, Height: 4}) {
		t.Errorf("rect = %+v, ok=%v", rect, ok)
	}
}
