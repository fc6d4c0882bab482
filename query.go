package gametime

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// Status represents the outcome of checking a query.
type Status int

// Query statuses.
const (
	Pending Status = iota
	Sat
	Unsat
	Unknown
)

var statuses = [...]string{
	Pending: "pending",
	Sat:     "sat",
	Unsat:   "unsat",
	Unknown: "unknown",
}

// String returns the string representation of the status.
func (s Status) String() string {
	if s >= 0 && s < Status(len(statuses)) {
		return statuses[s]
	}
	return fmt.Sprintf("Status<%d>", s)
}

// Query represents an SMT query for the feasibility of one candidate path.
//
// A query is created pending and is labeled exactly once by a Solver as
// satisfiable (with a model), unsatisfiable (with an unsat core), or unknown.
type Query struct {
	mu sync.Mutex

	text          string
	constraintIDs []int

	status    Status
	model     *Model
	unsatCore []int
}

// NewQuery returns a new pending query.
func NewQuery(text string, constraintIDs []int) *Query {
	return &Query{
		text:          text,
		constraintIDs: append([]int(nil), constraintIDs...),
	}
}

// ParseQuery validates the structure of text and returns a pending query
// whose constraint ids are decoded from the indicator variables.
func ParseQuery(text string, config Config) (*Query, error) {
	shape, err := ReadQueryShape(text)
	if err != nil {
		return nil, err
	}

	ids := make([]int, 0, len(shape.Indicators))
	for _, name := range shape.Indicators {
		id, ok := ConstraintID(name, config.ConstraintPrefix)
		if !ok {
			return nil, &FormatError{Message: fmt.Sprintf("indicator %q does not have prefix %q", name, config.ConstraintPrefix)}
		}
		ids = append(ids, id)
	}
	return NewQuery(text, ids), nil
}

// Text returns the SMT-LIB text of the query.
func (q *Query) Text() string { return q.text }

// ConstraintIDs returns the ids of the path constraints, in query order.
func (q *Query) ConstraintIDs() []int {
	return append([]int(nil), q.constraintIDs...)
}

// Hash returns a fingerprint of the query text.
func (q *Query) Hash() uint64 {
	return xxhash.Sum64String(q.text)
}

// Status returns the current status of the query.
func (q *Query) Status() Status {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.status
}

// Model returns the satisfying model. Returns nil unless the query is sat.
func (q *Query) Model() *Model {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.model
}

// UnsatCore returns the ids of the constraints in the unsat core, sorted.
// Returns nil unless the query is unsat. An empty core means the solver
// reported no refinement information, not that every constraint conflicts.
func (q *Query) UnsatCore() []int {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.unsatCore == nil {
		return nil
	}
	return append([]int{}, q.unsatCore...)
}

// LabelSat marks the query as satisfiable with the given model.
func (q *Query) LabelSat(model *Model) error {
	assert(model != nil, "LabelSat: nil model")
	return q.label(Sat, func() { q.model = model })
}

// LabelUnsat marks the query as unsatisfiable. Duplicate ids in core are
// collapsed.
func (q *Query) LabelUnsat(core []int) error {
	set := make(map[int]struct{}, len(core))
	ids := make([]int, 0, len(core))
	for _, id := range core {
		if _, ok := set[id]; ok {
			continue
		}
		set[id] = struct{}{}
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return q.label(Unsat, func() { q.unsatCore = ids })
}

// LabelUnknown marks the query as undecided by the solver.
func (q *Query) LabelUnknown() error {
	return q.label(Unknown, func() {})
}

func (q *Query) label(status Status, fn func()) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.status != Pending {
		return ErrQueryLabeled
	}
	q.status = status
	fn()
	return nil
}

// String returns a short description of the query.
func (q *Query) String() string {
	return fmt.Sprintf("query %016x (%s)", q.Hash(), q.Status())
}

// Solver decides the satisfiability of path queries.
type Solver interface {
	// CheckSat checks q and labels it with the outcome. Returns an error,
	// leaving q pending, if the query is malformed or the solver fails.
	CheckSat(ctx context.Context, q *Query) error
}
