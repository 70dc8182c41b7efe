package history

import (
	"context"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/hazyhaar/treescope/rendertree/node"
)

func openTestLog(t *testing.T) *Log {
	t.Helper()
	l, err := Open(filepath.Join(t.TempDir(), "history.db"), nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { l.Close() })
	return l
}

func TestLogCaptureAndRecent(t *testing.T) {
	l := openTestLog(t)
	ctx := context.Background()

	trees := []node.Tree{
		{ID: "cap-1", Timestamp: 1000, NodeCount: 3, DurationMS: 12, Roots: []*node.SerializedNode{{ID: "r"}}},
		{ID: "cap-2", Timestamp: 2000, NodeCount: 7, DurationMS: 4, Roots: []*node.SerializedNode{{ID: "r"}, {ID: "s"}}},
	}
	for _, tr := range trees {
		l.LogCapture(ctx, tr)
	}

	got, err := l.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Recent returned %d rows, want 2", len(got))
	}
	if got[0].ID != "cap-2" {
		t.Errorf("newest first: got %q, want cap-2", got[0].ID)
	}
	if got[0].RootCount != 2 || got[0].NodeCount != 7 || got[0].DurationMS != 4 {
		t.Errorf("row mismatch: %+v", got[0])
	}
}

func TestRecentLimit(t *testing.T) {
	l := openTestLog(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		l.LogCapture(ctx, node.Tree{ID: string(rune('a' + i)), Timestamp: int64(i)})
	}
	got, err := l.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("limit not applied: got %d rows", len(got))
	}
}

func TestLogCaptureDuplicateDoesNotFail(t *testing.T) {
	l := openTestLog(t)
	ctx := context.Background()

	// Same primary key twice: second insert fails inside LogCapture and
	// must be swallowed.
	l.LogCapture(ctx, node.Tree{ID: "dup", Timestamp: 1})
	l.LogCapture(ctx, node.Tree{ID: "dup", Timestamp: 2})

	got, err := l.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("got %d rows, want 1", len(got))
	}
}
