//go:build !z3

package z3

import (
	"context"

	"github.com/jerryduan07/gametime"
)

// Solver is unavailable in binaries built without the z3 tag.
type Solver struct{}

// NewSolver returns gametime.ErrSolverNotBuilt. Build with -tags z3 and
// libz3 installed to enable the in-process solver.
func NewSolver(config gametime.Config) (*Solver, error) {
	return nil, gametime.ErrSolverNotBuilt
}

// Stats returns empty statistics.
func (s *Solver) Stats() gametime.Stats { return gametime.Stats{} }

// CheckSat returns gametime.ErrSolverNotBuilt.
func (s *Solver) CheckSat(ctx context.Context, q *gametime.Query) error {
	return gametime.ErrSolverNotBuilt
}
