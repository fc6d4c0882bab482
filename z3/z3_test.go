//go:build z3

package z3_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/jerryduan07/gametime"
	"github.com/jerryduan07/gametime/z3"
)

func TestSolver_CheckSat(t *testing.T) {
	t.Run("Sat", func(t *testing.T) {
		s := MustNewSolver(t)
		q := MustParseQuery(t, `
(declare-fun x () (_ BitVec 32))
(declare-fun __gtCONSTRAINT0 () Bool)
(declare-fun __gtCONSTRAINT1 () Bool)
(assert (and
  (= __gtCONSTRAINT0 (bvult x #x00000008))
  (= __gtCONSTRAINT1 (bvugt x #x00000006))
  (and __gtCONSTRAINT0 __gtCONSTRAINT1)))
`)
		if err := s.CheckSat(context.Background(), q); err != nil {
			t.Fatal(err)
		} else if q.Status() != gametime.Sat {
			t.Fatalf("unexpected status: %s", q.Status())
		} else if got := q.Model().Get("x").Uint64(); got != 7 {
			t.Fatalf("x=%d, want 7", got)
		} else if got := s.Stats(); got.CheckN != 1 || got.SatN != 1 {
			t.Fatalf("unexpected stats: %+v", got)
		}
	})

	t.Run("Unsat", func(t *testing.T) {
		s := MustNewSolver(t)
		q := MustParseQuery(t, `
(declare-fun x () (_ BitVec 32))
(declare-fun __gtCONSTRAINT1 () Bool)
(declare-fun __gtCONSTRAINT2 () Bool)
(declare-fun __gtCONSTRAINT3 () Bool)
(assert (and
  (= __gtCONSTRAINT1 (bvult x #x00000064))
  (= __gtCONSTRAINT2 (= x #x00000000))
  (= __gtCONSTRAINT3 (not (= x #x00000000)))
  (and __gtCONSTRAINT1 __gtCONSTRAINT2 __gtCONSTRAINT3)))
`)
		if err := s.CheckSat(context.Background(), q); err != nil {
			t.Fatal(err)
		} else if q.Status() != gametime.Unsat {
			t.Fatalf("unexpected status: %s", q.Status())
		} else if q.Model() != nil {
			t.Fatal("expected no model")
		}

		// Constraints 2 and 3 conflict. The core need not be minimal.
		core := q.UnsatCore()
		set := make(map[int]bool)
		for _, id := range core {
			set[id] = true
		}
		if diff := cmp.Diff(set[2] && set[3], true); diff != "" {
			t.Fatalf("unexpected core %v: %s", core, diff)
		} else if len(core) > 3 {
			t.Fatalf("unexpected core size: %v", core)
		}
	})

	t.Run("Array", func(t *testing.T) {
		s := MustNewSolver(t)
		q := MustParseQuery(t, `
(declare-fun a () (Array (_ BitVec 32) (_ BitVec 8)))
(declare-fun __gtCONSTRAINT0 () Bool)
(assert (and
  (= __gtCONSTRAINT0 (= (select a #x00000003) #x2a))
  (and __gtCONSTRAINT0)))
`)
		if err := s.CheckSat(context.Background(), q); err != nil {
			t.Fatal(err)
		} else if q.Status() != gametime.Sat {
			t.Fatalf("unexpected status: %s", q.Status())
		} else if got := q.Model().Get("a", gametime.NewUintValue(3, 32)).Uint64(); got != 42 {
			t.Fatalf("a[3]=%d, want 42", got)
		}
	})

	t.Run("MultipleAssertions", func(t *testing.T) {
		s := MustNewSolver(t)
		q := MustParseQuery(t, `
(declare-fun x () (_ BitVec 32))
(declare-fun __gtCONSTRAINT0 () Bool)
(declare-fun __gtCONSTRAINT1 () Bool)
(assert (= __gtCONSTRAINT0 (bvult x #x00000008)))
(assert (= __gtCONSTRAINT1 (bvugt x #x00000006)))
(assert (and __gtCONSTRAINT0 __gtCONSTRAINT1))
`)
		if err := s.CheckSat(context.Background(), q); err != nil {
			t.Fatal(err)
		} else if q.Status() != gametime.Sat {
			t.Fatalf("unexpected status: %s", q.Status())
		} else if got := q.Model().Get("x").Uint64(); got != 7 {
			t.Fatalf("x=%d, want 7", got)
		}
	})

	t.Run("NestedArray", func(t *testing.T) {
		config := gametime.DefaultConfig()
		config.ModelAsNestedArrays = true
		s, err := z3.NewSolver(config)
		if err != nil {
			t.Fatal(err)
		}

		q := MustParseQuery(t, `
(declare-fun a () (Array (_ BitVec 32) (Array (_ BitVec 32) (_ BitVec 8))))
(declare-fun __gtCONSTRAINT0 () Bool)
(declare-fun __gtCONSTRAINT1 () Bool)
(assert (and
  (= __gtCONSTRAINT0 (= (select (select a #x00000001) #x00000002) #x2a))
  (= __gtCONSTRAINT1 (= (select (select a #x00000003) #x00000004) #x07))
  (and __gtCONSTRAINT0 __gtCONSTRAINT1)))
`)
		if err := s.CheckSat(context.Background(), q); err != nil {
			t.Fatal(err)
		} else if q.Status() != gametime.Sat {
			t.Fatalf("unexpected status: %s", q.Status())
		}

		m := q.Model()
		if got := m.Get("a", gametime.NewUintValue(1, 32), gametime.NewUintValue(2, 32)).Uint64(); got != 42 {
			t.Fatalf("a[1][2]=%d, want 42", got)
		} else if got := m.Get("a", gametime.NewUintValue(3, 32), gametime.NewUintValue(4, 32)).Uint64(); got != 7 {
			t.Fatalf("a[3][4]=%d, want 7", got)
		}
	})

	t.Run("PackedArray", func(t *testing.T) {
		s := MustNewSolver(t)
		q := MustParseQuery(t, `
(declare-fun a () (Array (_ BitVec 64) (_ BitVec 8)))
(declare-fun __gtCONSTRAINT0 () Bool)
(assert (and
  (= __gtCONSTRAINT0 (= (select a #x0000000100000002) #x2a))
  (and __gtCONSTRAINT0)))
`)
		if err := s.CheckSat(context.Background(), q); err != nil {
			t.Fatal(err)
		} else if q.Status() != gametime.Sat {
			t.Fatalf("unexpected status: %s", q.Status())
		} else if got := q.Model().Get("a", gametime.NewUintValue(1, 32), gametime.NewUintValue(2, 32)).Uint64(); got != 42 {
			t.Fatalf("a[1][2]=%d, want 42", got)
		}
	})

	t.Run("ErrFormat", func(t *testing.T) {
		s := MustNewSolver(t)
		q := gametime.NewQuery(`(declare-fun x () Bool) (assert (or x (not x)))`, nil)
		var e *gametime.FormatError
		if err := s.CheckSat(context.Background(), q); !errors.As(err, &e) {
			t.Fatalf("unexpected error: %#v", err)
		} else if q.Status() != gametime.Pending {
			t.Fatalf("unexpected status: %s", q.Status())
		}
	})

	t.Run("ErrQueryLabeled", func(t *testing.T) {
		s := MustNewSolver(t)
		q := gametime.NewQuery(`(assert (and (and true)))`, nil)
		if err := q.LabelUnknown(); err != nil {
			t.Fatal(err)
		} else if err := s.CheckSat(context.Background(), q); err != gametime.ErrQueryLabeled {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("Canceled", func(t *testing.T) {
		s := MustNewSolver(t)
		q := gametime.NewQuery(`(assert (and (and true)))`, nil)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if err := s.CheckSat(ctx, q); err != context.Canceled {
			t.Fatalf("unexpected error: %v", err)
		} else if q.Status() != gametime.Pending {
			t.Fatalf("unexpected status: %s", q.Status())
		}
	})
}

// MustNewSolver returns a solver with the default configuration.
func MustNewSolver(tb testing.TB) *z3.Solver {
	tb.Helper()
	s, err := z3.NewSolver(gametime.DefaultConfig())
	if err != nil {
		tb.Fatal(err)
	}
	return s
}

// MustParseQuery returns a query for text or fails the test.
func MustParseQuery(tb testing.TB, text string) *gametime.Query {
	tb.Helper()
	q, err := gametime.ParseQuery(text, gametime.DefaultConfig())
	if err != nil {
		tb.Fatal(err)
	}
	return q
}
