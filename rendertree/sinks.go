package rendertree

import (
	"context"
	"io"

	"github.com/hazyhaar/treescope/rendertree/internal/sink"
	"github.com/hazyhaar/treescope/rendertree/node"
)

// Sink is the output interface for captured trees.
type Sink = sink.Sink

// TreeFunc is called for each captured tree.
type TreeFunc = sink.TreeFunc

// NewStdoutSink creates a JSON-lines sink on w.
func NewStdoutSink(w io.Writer) Sink {
	return sink.NewStdout(w)
}

// NewCallbackSink creates an in-process callback sink, for consumers living
// in the same process as the session. Zero serialisation.
func NewCallbackSink(onTree func(ctx context.Context, tree node.Tree) error) Sink {
	return sink.NewCallback(onTree)
}
