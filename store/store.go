package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jerryduan07/gametime"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS results (
	id          TEXT PRIMARY KEY,
	run_id      TEXT NOT NULL,
	query_hash  TEXT NOT NULL,
	solver      TEXT NOT NULL,
	status      TEXT NOT NULL,
	unsat_core  TEXT,
	model       TEXT,
	error       TEXT,
	elapsed_ns  INTEGER NOT NULL,
	created_at  TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS results_run_id ON results (run_id);
CREATE INDEX IF NOT EXISTS results_query_hash ON results (query_hash);
`

// DB records the outcome of solver checks in SQLite.
type DB struct {
	db *sql.DB
}

// Open opens a SQLite database and creates the schema if needed.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma busy timeout: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &DB{db: db}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.db.Close()
}

// Result represents the outcome of checking one query.
type Result struct {
	ID        string
	RunID     string
	QueryHash uint64
	Solver    string
	Status    gametime.Status

	// Constraint ids of the unsat core. Nil unless Status is Unsat.
	UnsatCore []int

	// Raw model text. Blank unless Status is Sat.
	Model string

	// Error returned by the solver, if any.
	Err string

	Elapsed   time.Duration
	CreatedAt time.Time
}

// Insert writes r to the database. A blank ID and a zero CreatedAt are
// filled in before writing.
func (db *DB) Insert(ctx context.Context, r *Result) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}

	_, err := db.db.ExecContext(ctx,
		`INSERT INTO results (id, run_id, query_hash, solver, status, unsat_core, model, error, elapsed_ns, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID,
		r.RunID,
		formatHash(r.QueryHash),
		r.Solver,
		r.Status.String(),
		formatCore(r.UnsatCore),
		nullIfEmpty(r.Model),
		nullIfEmpty(r.Err),
		int64(r.Elapsed),
		r.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert result: %w", err)
	}
	return nil
}

// Results returns the results recorded for a run in insertion order.
func (db *DB) Results(ctx context.Context, runID string) ([]*Result, error) {
	return db.query(ctx, `WHERE run_id = ? ORDER BY rowid`, runID)
}

// ResultsByQuery returns every result recorded for a query, oldest first.
func (db *DB) ResultsByQuery(ctx context.Context, queryHash uint64) ([]*Result, error) {
	return db.query(ctx, `WHERE query_hash = ? ORDER BY rowid`, formatHash(queryHash))
}

func (db *DB) query(ctx context.Context, where string, args ...interface{}) ([]*Result, error) {
	rows, err := db.db.QueryContext(ctx,
		`SELECT id, run_id, query_hash, solver, status, unsat_core, model, error, elapsed_ns, created_at
		 FROM results `+where, args...)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer rows.Close()

	var a []*Result
	for rows.Next() {
		var r Result
		var hash, status, createdAt string
		var core, model, errMsg sql.NullString
		var elapsed int64
		if err := rows.Scan(&r.ID, &r.RunID, &hash, &r.Solver, &status, &core, &model, &errMsg, &elapsed, &createdAt); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}

		if r.QueryHash, err = strconv.ParseUint(hash, 16, 64); err != nil {
			return nil, fmt.Errorf("parse query hash: %w", err)
		} else if r.Status, err = parseStatus(status); err != nil {
			return nil, err
		} else if r.UnsatCore, err = parseCore(core); err != nil {
			return nil, err
		} else if r.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, fmt.Errorf("parse created_at: %w", err)
		}
		r.Model, r.Err = model.String, errMsg.String
		r.Elapsed = time.Duration(elapsed)

		a = append(a, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate results: %w", err)
	}
	return a, nil
}

func formatHash(h uint64) string {
	return fmt.Sprintf("%016x", h)
}

// formatCore encodes a core as comma-separated ids. A nil core is NULL so it
// stays distinct from an empty core.
func formatCore(core []int) interface{} {
	if core == nil {
		return nil
	}
	a := make([]string, len(core))
	for i, id := range core {
		a[i] = strconv.Itoa(id)
	}
	return strings.Join(a, ",")
}

func parseCore(s sql.NullString) ([]int, error) {
	if !s.Valid {
		return nil, nil
	}
	core := []int{}
	if s.String == "" {
		return core, nil
	}
	for _, field := range strings.Split(s.String, ",") {
		id, err := strconv.Atoi(field)
		if err != nil {
			return nil, fmt.Errorf("parse unsat core: %w", err)
		}
		core = append(core, id)
	}
	return core, nil
}

func parseStatus(s string) (gametime.Status, error) {
	for _, status := range []gametime.Status{gametime.Pending, gametime.Sat, gametime.Unsat, gametime.Unknown} {
		if status.String() == s {
			return status, nil
		}
	}
	return 0, fmt.Errorf("unknown status: %q", s)
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
