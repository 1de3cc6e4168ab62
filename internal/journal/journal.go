// Package journal records the API requests served by the mock server in a
// SQLite database, so that a test run can be inspected after the fact.
package journal

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/stephenafamo/bob"
	"github.com/stephenafamo/bob/dialect/sqlite"
	"github.com/stephenafamo/bob/dialect/sqlite/im"
	"github.com/stephenafamo/bob/dialect/sqlite/sm"
	"github.com/stephenafamo/scan"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schema string

// Entry is one served request.
type Entry struct {
	ID        int64  `db:"id"`
	Method    string `db:"method"`
	Path      string `db:"path"`
	Status    int    `db:"status"`
	RequestID string `db:"request_id"`
	Created   int64  `db:"created"`
}

type Journal struct {
	db bob.DB
}

// Open opens or creates the journal database at path.
func Open(ctx context.Context, path string) (*Journal, error) {
	if path == "" {
		return nil, fmt.Errorf("journal path not configured")
	}

	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("ensure journal directory %q: %w", dir, err)
		}
	}

	db, err := bob.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("exec schema: %w", err)
	}

	return &Journal{db: db}, nil
}

// Record appends e to the journal. A zero Created is set to the current
// time.
func (j *Journal) Record(ctx context.Context, e Entry) error {
	if e.Created == 0 {
		e.Created = time.Now().Unix()
	}
	q := sqlite.Insert(
		im.Into("requests", "method", "path", "status", "request_id", "created"),
		im.Values(sqlite.Arg(e.Method, e.Path, e.Status, e.RequestID, e.Created)),
	)
	if _, err := bob.Exec(ctx, j.db, q); err != nil {
		return fmt.Errorf("record request: %w", err)
	}
	return nil
}

// Entries returns every recorded request, oldest first.
func (j *Journal) Entries(ctx context.Context) ([]Entry, error) {
	q := sqlite.Select(
		sm.Columns("id", "method", "path", "status", "request_id", "created"),
		sm.From("requests"),
		sm.OrderBy("id"),
	)
	entries, err := bob.All(ctx, j.db, q, scan.StructMapper[Entry]())
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	return entries, nil
}

func (j *Journal) Close() error {
	return j.db.Close()
}
