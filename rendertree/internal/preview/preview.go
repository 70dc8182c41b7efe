// Package preview turns a node's rendered HTML into a short, safe text
// summary suitable for display in a tool listing. The source markup is
// sanitized first, then converted to markdown and truncated.
package preview

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/microcosm-cc/bluemonday"
)

// Renderer produces previews from raw outer HTML.
type Renderer struct {
	policy    *bluemonday.Policy
	converter *converter.Converter
	markdown  bool
	maxBytes  int
}

// Options configures a Renderer.
type Options struct {
	// Markdown converts the sanitized HTML to markdown. When false the
	// sanitized HTML is returned as-is.
	Markdown bool
	// MaxBytes caps the preview length. Zero means no cap.
	MaxBytes int
}

// New creates a Renderer.
func New(opts Options) *Renderer {
	return &Renderer{
		policy: bluemonday.UGCPolicy(),
		converter: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
			),
		),
		markdown: opts.Markdown,
		maxBytes: opts.MaxBytes,
	}
}

// Render sanitizes html and returns the preview text.
func (r *Renderer) Render(html string) (string, error) {
	clean := r.policy.Sanitize(html)
	out := clean
	if r.markdown {
		md, err := r.converter.ConvertString(clean)
		if err != nil {
			return "", fmt.Errorf("preview: convert: %w", err)
		}
		out = md
	}
	out = strings.TrimSpace(out)
	if r.maxBytes > 0 && len(out) > r.maxBytes {
		out = truncate(out, r.maxBytes)
	}
	return out, nil
}

// truncate cuts s to at most max bytes without splitting a UTF-8 sequence.
// Only called when len(s) > max.
func truncate(s string, max int) string {
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
