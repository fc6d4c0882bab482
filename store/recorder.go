package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jerryduan07/gametime"
)

// Ensure recorder implements interface.
var _ gametime.Solver = (*Recorder)(nil)

// Recorder wraps a solver and writes the outcome of every check to a DB.
type Recorder struct {
	Solver gametime.Solver
	DB     *DB

	// Identifies the results written by this recorder.
	RunID string

	// Solver name stored with each result.
	Name string
}

// NewRecorder returns a new instance of Recorder with a fresh run id.
func NewRecorder(solver gametime.Solver, db *DB, name string) *Recorder {
	return &Recorder{
		Solver: solver,
		DB:     db,
		RunID:  uuid.New().String(),
		Name:   name,
	}
}

// CheckSat checks q with the underlying solver and records the outcome,
// including solver failures. Queries rejected as already labeled are not
// recorded. If the result cannot be written, an error is returned and q
// keeps its label.
func (r *Recorder) CheckSat(ctx context.Context, q *gametime.Query) error {
	t := time.Now()
	err := r.Solver.CheckSat(ctx, q)
	if err == gametime.ErrQueryLabeled {
		return err
	}

	result := &Result{
		RunID:     r.RunID,
		QueryHash: q.Hash(),
		Solver:    r.Name,
		Status:    q.Status(),
		UnsatCore: q.UnsatCore(),
		Elapsed:   time.Since(t),
	}
	if m := q.Model(); m != nil {
		result.Model = m.Text()
	}
	if err != nil {
		result.Err = err.Error()
	}

	// Outcomes of interrupted checks are still recorded.
	if ierr := r.DB.Insert(context.WithoutCancel(ctx), result); ierr != nil {
		if err != nil {
			return fmt.Errorf("%w (record result: %s)", err, ierr)
		}
		return fmt.Errorf("record result: %w", ierr)
	}
	return err
}
