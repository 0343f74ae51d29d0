package infra

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
)

type recordingExec struct {
	queries []string
}

func (r *recordingExec) Exec(_ context.Context, query string, _ ...any) (pgconn.CommandTag, error) {
	r.queries = append(r.queries, query)
	return pgconn.NewCommandTag("UPDATE 1"), nil
}

func (r *recordingExec) QueryRow(_ context.Context, query string, _ ...any) pgx.Row {
	r.queries = append(r.queries, query)
	return errorRow{err: pgx.ErrNoRows}
}

func (r *recordingExec) Query(_ context.Context, query string, _ ...any) (pgx.Rows, error) {
	r.queries = append(r.queries, query)
	return nil, errors.New("not supported")
}

func TestSplitMarker(t *testing.T) {
	marker, body, err := SplitMarker("\n--sql 0f0557a2-1731-4fc6-8cbe-8540b1d2b6df\nselect 1;\n")
	if err != nil {
		t.Fatalf("SplitMarker returned error: %v", err)
	}
	if marker != "0f0557a2-1731-4fc6-8cbe-8540b1d2b6df" {
		t.Fatalf("marker = %q", marker)
	}
	if body != "select 1;" {
		t.Fatalf("body = %q", body)
	}

	for _, bad := range []string{"", "select 1;", "--sql nope\nselect 1;"} {
		if _, _, err := SplitMarker(bad); !errors.Is(err, ErrMissingMarker) {
			t.Fatalf("SplitMarker(%q) err = %v, want ErrMissingMarker", bad, err)
		}
	}
}

func TestSQLRunnerStripsMarker(t *testing.T) {
	exec := &recordingExec{}
	runner := NewSQLRunner(exec, zerolog.Nop())
	const q = "--sql 2caa5b21-4c2b-4b72-8a36-7d3d0f9b77a1\nupdate iffy set status = $1;"

	if _, err := runner.Exec(context.Background(), q, "failed"); err != nil {
		t.Fatalf("Exec returned error: %v", err)
	}
	var id string
	if err := runner.QueryRow(context.Background(), q).Scan(&id); !IsNoRows(err) {
		t.Fatalf("QueryRow scan err = %v, want no rows", err)
	}
	if len(exec.queries) != 2 || exec.queries[0] != "update iffy set status = $1;" {
		t.Fatalf("unexpected forwarded queries: %#v", exec.queries)
	}

	if _, err := runner.Exec(context.Background(), "update iffy set status = 'x';"); !errors.Is(err, ErrMissingMarker) {
		t.Fatalf("unmarked Exec err = %v", err)
	}
	if len(exec.queries) != 2 {
		t.Fatal("unmarked statement must not reach the database")
	}
}
