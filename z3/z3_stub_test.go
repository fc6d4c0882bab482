//go:build !z3

package z3_test

import (
	"context"
	"testing"

	"github.com/jerryduan07/gametime"
	"github.com/jerryduan07/gametime/z3"
)

func TestNewSolver_NotBuilt(t *testing.T) {
	if _, err := z3.NewSolver(gametime.DefaultConfig()); err != gametime.ErrSolverNotBuilt {
		t.Fatalf("unexpected error: %v", err)
	}

	var s z3.Solver
	q := gametime.NewQuery(`(assert (and (and true)))`, nil)
	if err := s.CheckSat(context.Background(), q); err != gametime.ErrSolverNotBuilt {
		t.Fatalf("unexpected error: %v", err)
	} else if q.Status() != gametime.Pending {
		t.Fatalf("unexpected status: %s", q.Status())
	}
}
