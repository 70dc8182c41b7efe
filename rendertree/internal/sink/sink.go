// Package sink defines output backends for captured render trees.
package sink

import (
	"context"

	"github.com/hazyhaar/treescope/rendertree/node"
)

// Sink receives every freshly built render tree. Implementations deliver
// to different backends (stdout, in-process callback).
type Sink interface {
	Send(ctx context.Context, tree node.Tree) error
	Close() error
}
