// Package history persists a per-capture audit trail to SQLite, so a
// devtools session can be reviewed after the fact. The capture path never
// blocks on it: write errors are logged and dropped.
//
// The caller provides the driver:
//
//	import _ "modernc.org/sqlite"
package history

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/hazyhaar/treescope/rendertree/node"
)

// Schema holds the capture log tables.
const Schema = `
CREATE TABLE IF NOT EXISTS captures (
	capture_id  TEXT PRIMARY KEY,
	created_at  INTEGER NOT NULL,
	root_count  INTEGER NOT NULL,
	node_count  INTEGER NOT NULL,
	duration_ms INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_captures_created ON captures(created_at);
`

// Capture is one logged capture summary.
type Capture struct {
	ID         string `json:"capture_id"`
	CreatedAt  int64  `json:"created_at"` // epoch milliseconds
	RootCount  int    `json:"root_count"`
	NodeCount  int    `json:"node_count"`
	DurationMS int64  `json:"duration_ms"`
}

// Log is the capture history store.
type Log struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (creating if needed) the capture log at path and applies the
// production pragmas and schema.
func Open(path string, logger *slog.Logger) (*Log, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("history: open %s: %w", path, err)
	}

	for _, pragma := range []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 10000",
		"PRAGMA synchronous = NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("history: %s: %w", pragma, err)
		}
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: apply schema: %w", err)
	}

	return &Log{db: db, logger: logger}, nil
}

// LogCapture records one tree's summary. Errors are logged, not returned,
// so a failing history store never breaks the capture path.
func (l *Log) LogCapture(ctx context.Context, tree node.Tree) {
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO captures (capture_id, created_at, root_count, node_count, duration_ms)
		VALUES (?,?,?,?,?)`,
		tree.ID, tree.Timestamp, len(tree.Roots), tree.NodeCount, tree.DurationMS)
	if err != nil {
		l.logger.Warn("history: log capture failed", "error", err, "capture_id", tree.ID)
	}
}

// Recent returns the latest capture summaries, newest first.
func (l *Log) Recent(ctx context.Context, limit int) ([]Capture, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := l.db.QueryContext(ctx, `
		SELECT capture_id, created_at, root_count, node_count, duration_ms
		FROM captures ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("history: recent: %w", err)
	}
	defer rows.Close()

	var out []Capture
	for rows.Next() {
		var c Capture
		if err := rows.Scan(&c.ID, &c.CreatedAt, &c.RootCount, &c.NodeCount, &c.DurationMS); err != nil {
			return nil, fmt.Errorf("history: scan: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Close closes the underlying database.
func (l *Log) Close() error {
	return l.db.Close()
}
