package sink

import (
	"context"

	"github.com/hazyhaar/treescope/rendertree/node"
)

// TreeFunc is called for each capture (in-process, zero serialisation).
type TreeFunc func(ctx context.Context, tree node.Tree) error

// Callback delivers trees via a Go function call, for consumers living in
// the same binary as the session.
type Callback struct {
	onTree TreeFunc
}

// NewCallback creates a Callback sink. A nil handler drops trees.
func NewCallback(onTree TreeFunc) *Callback {
	return &Callback{onTree: onTree}
}

func (c *Callback) Send(ctx context.Context, tree node.Tree) error {
	if c.onTree != nil {
		return c.onTree(ctx, tree)
	}
	return nil
}

func (c *Callback) Close() error { return nil }
