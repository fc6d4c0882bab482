//go:build z3

package z3

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"
	"unsafe"

	"github.com/jerryduan07/gametime"
)

/*
#cgo LDFLAGS: -lz3
#include <z3.h>
#include <stdlib.h>
*/
import "C"

// Ensure solver implements interface.
var _ gametime.Solver = (*Solver)(nil)

// Solver represents a solver that uses an embedded Z3 solver.
//
// Each check runs in a fresh Z3 context so a Solver holds no state between
// calls other than its statistics and may be shared between goroutines.
type Solver struct {
	mu     sync.Mutex
	stats  gametime.Stats
	config gametime.Config
}

// NewSolver returns a new instance of Solver.
func NewSolver(config gametime.Config) (*Solver, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Solver{config: config}, nil
}

// Stats returns statistics for the solver.
func (s *Solver) Stats() gametime.Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// CheckSat checks the feasibility of q and labels it with the outcome.
// The equivalences of the query are asserted and the indicator variables
// are passed as assumptions so an unsat core names the conflicting
// constraints.
func (s *Solver) CheckSat(ctx context.Context, q *gametime.Query) error {
	if q.Status() != gametime.Pending {
		return gametime.ErrQueryLabeled
	} else if err := ctx.Err(); err != nil {
		return err
	}

	t := time.Now()
	result, err := s.check(ctx, q.Text())
	if err != nil {
		return err
	}

	elapsed := time.Since(t)
	s.mu.Lock()
	s.stats.Add(result.status, elapsed)
	s.mu.Unlock()
	log.Printf("[z3] %016x %s (%s)", q.Hash(), result.status, elapsed)

	switch result.status {
	case gametime.Sat:
		return q.LabelSat(result.model)
	case gametime.Unsat:
		return q.LabelUnsat(result.core)
	default:
		return q.LabelUnknown()
	}
}

// checkResult holds the outcome of a single check.
type checkResult struct {
	status gametime.Status
	model  *gametime.Model
	core   []int
}

func (s *Solver) check(ctx context.Context, text string) (*checkResult, error) {
	c := NewContext()
	defer c.Close()

	// Forward cancellation to the solver until the check returns.
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		select {
		case <-ctx.Done():
			C.Z3_interrupt(c.raw)
		case <-done:
		}
	}()
	defer wg.Wait()
	defer close(done)

	asts, err := c.parse(text)
	if err != nil {
		return nil, err
	}
	defer C.Z3_ast_vector_dec_ref(c.raw, asts)

	root, err := c.formula(asts)
	if err != nil {
		return nil, err
	}

	equivs, err := c.conjuncts(root)
	if err != nil {
		return nil, err
	}

	solver := C.Z3_mk_solver(c.raw)
	if err := c.err("Z3_mk_solver"); err != nil {
		return nil, solverError("check", err)
	}
	C.Z3_solver_inc_ref(c.raw, solver)
	defer C.Z3_solver_dec_ref(c.raw, solver)

	// Assert each equivalence and collect its indicator as an assumption.
	indicators := make([]C.Z3_ast, 0, len(equivs))
	for _, equiv := range equivs {
		indicator, err := c.indicator(equiv)
		if err != nil {
			return nil, err
		}
		indicators = append(indicators, indicator)

		C.Z3_solver_assert(c.raw, solver, equiv)
		if err := c.err("Z3_solver_assert"); err != nil {
			return nil, solverError("check", err)
		}
	}

	var assumptions *C.Z3_ast
	if len(indicators) > 0 {
		assumptions = &indicators[0]
	}
	ret := C.Z3_solver_check_assumptions(c.raw, solver, C.uint(len(indicators)), assumptions)
	if err := c.err("Z3_solver_check_assumptions"); err != nil {
		return nil, solverError("check", err)
	}

	switch ret {
	case C.Z3_L_TRUE:
		model, err := s.model(c, solver)
		if err != nil {
			return nil, err
		}
		return &checkResult{status: gametime.Sat, model: model}, nil
	case C.Z3_L_FALSE:
		core, err := s.unsatCore(c, solver)
		if err != nil {
			return nil, err
		}
		return &checkResult{status: gametime.Unsat, core: core}, nil
	default:
		log.Printf("[z3] unknown: %s", C.GoString(C.Z3_solver_get_reason_unknown(c.raw, solver)))
		return &checkResult{status: gametime.Unknown}, nil
	}
}

// model returns the parsed model of a satisfiable solver.
func (s *Solver) model(c *Context, solver C.Z3_solver) (*gametime.Model, error) {
	model := C.Z3_solver_get_model(c.raw, solver)
	if err := c.err("Z3_solver_get_model"); err != nil {
		return nil, solverError("model", err)
	}
	C.Z3_model_inc_ref(c.raw, model)
	defer C.Z3_model_dec_ref(c.raw, model)

	text := C.GoString(C.Z3_model_to_string(c.raw, model))
	if err := c.err("Z3_model_to_string"); err != nil {
		return nil, solverError("model", err)
	}

	m, err := gametime.NewModelParser(gametime.DialectZ3, s.config).Parse(text)
	if err != nil {
		return nil, solverError("parse model", err)
	}
	return m, nil
}

// unsatCore returns the constraint ids of the indicators in the unsat core.
func (s *Solver) unsatCore(c *Context, solver C.Z3_solver) ([]int, error) {
	core := C.Z3_solver_get_unsat_core(c.raw, solver)
	if err := c.err("Z3_solver_get_unsat_core"); err != nil {
		return nil, solverError("unsat core", err)
	}
	C.Z3_ast_vector_inc_ref(c.raw, core)
	defer C.Z3_ast_vector_dec_ref(c.raw, core)

	n := int(C.Z3_ast_vector_size(c.raw, core))
	ids := make([]int, 0, n)
	for i := 0; i < n; i++ {
		name := c.constName(C.Z3_ast_vector_get(c.raw, core, C.uint(i)))
		id, ok := gametime.ConstraintID(name, s.config.ConstraintPrefix)
		if !ok {
			return nil, solverError("unsat core", fmt.Errorf("unexpected core member: %q", name))
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Context represents a Z3 context object.
type Context struct {
	raw C.Z3_context
}

// NewContext returns a new instance of Context.
func NewContext() *Context {
	config := C.Z3_mk_config()
	defer C.Z3_del_config(config)

	raw := C.Z3_mk_context(config)
	C.Z3_set_error_handler(raw, nil)
	C.Z3_set_ast_print_mode(raw, C.Z3_PRINT_SMTLIB2_COMPLIANT)
	return &Context{raw: raw}
}

// Close deletes the underlying Z3 context.
func (c *Context) Close() error {
	C.Z3_del_context(c.raw)
	return nil
}

// err returns the error for the last API call. Returns nil if last call was successful.
func (c *Context) err(op string) error {
	if code := C.Z3_get_error_code(c.raw); code != C.Z3_OK {
		return &Error{Code: int(code), Op: op, Message: C.GoString(C.Z3_get_error_msg(c.raw, code))}
	}
	return nil
}

// parse parses an SMT-LIB2 query and returns its assertions. The caller
// owns a reference to the returned vector, which keeps the assertions alive.
func (c *Context) parse(text string) (C.Z3_ast_vector, error) {
	ctext := C.CString(text)
	defer C.free(unsafe.Pointer(ctext))

	asts := C.Z3_parse_smtlib2_string(c.raw, ctext, 0, nil, nil, 0, nil, nil)
	if err := c.err("Z3_parse_smtlib2_string"); err != nil {
		return nil, &gametime.FormatError{Message: err.Error()}
	}
	C.Z3_ast_vector_inc_ref(c.raw, asts)
	return asts, nil
}

// formula returns the assertions in asts as one formula.
func (c *Context) formula(asts C.Z3_ast_vector) (C.Z3_ast, error) {
	n := int(C.Z3_ast_vector_size(c.raw, asts))
	switch n {
	case 0:
		return nil, &gametime.FormatError{Message: "no assertion found"}
	case 1:
		return C.Z3_ast_vector_get(c.raw, asts, 0), nil
	}

	args := make([]C.Z3_ast, n)
	for i := range args {
		args[i] = C.Z3_ast_vector_get(c.raw, asts, C.uint(i))
	}
	root := C.Z3_mk_and(c.raw, C.uint(n), &args[0])
	if err := c.err("Z3_mk_and"); err != nil {
		return nil, solverError("parse", err)
	}
	return root, nil
}

// conjuncts validates that root is a conjunction whose last argument is a
// conjunction and returns the other arguments.
func (c *Context) conjuncts(root C.Z3_ast) ([]C.Z3_ast, error) {
	if !c.isApp(root, C.Z3_OP_AND) {
		return nil, &gametime.FormatError{Message: "top-level expression is not a conjunction"}
	}
	args := c.args(root)
	if len(args) == 0 {
		return nil, &gametime.FormatError{Message: "top-level expression is not a conjunction"}
	} else if last := args[len(args)-1]; !c.isApp(last, C.Z3_OP_AND) {
		return nil, &gametime.FormatError{Message: fmt.Sprintf("last conjunct is not a conjunction: %s", c.astToString(last))}
	}
	return args[:len(args)-1], nil
}

// indicator returns the left-hand side of an equivalence.
func (c *Context) indicator(equiv C.Z3_ast) (C.Z3_ast, error) {
	if !c.isApp(equiv, C.Z3_OP_EQ) {
		return nil, &gametime.FormatError{Message: fmt.Sprintf("conjunct is not an equivalence: %s", c.astToString(equiv))}
	}
	lhs := c.args(equiv)[0]
	if !c.isApp(lhs, C.Z3_OP_UNINTERPRETED) || len(c.args(lhs)) != 0 {
		return nil, &gametime.FormatError{Message: fmt.Sprintf("indicator is not a variable: %s", c.astToString(lhs))}
	}
	return lhs, nil
}

// isApp returns true if a is an application of a declaration of the given kind.
func (c *Context) isApp(a C.Z3_ast, kind C.Z3_decl_kind) bool {
	if C.Z3_get_ast_kind(c.raw, a) != C.Z3_APP_AST {
		return false
	}
	decl := C.Z3_get_app_decl(c.raw, C.Z3_to_app(c.raw, a))
	return C.Z3_get_decl_kind(c.raw, decl) == kind
}

// args returns the arguments of an application.
func (c *Context) args(a C.Z3_ast) []C.Z3_ast {
	app := C.Z3_to_app(c.raw, a)
	n := int(C.Z3_get_app_num_args(c.raw, app))
	other := make([]C.Z3_ast, n)
	for i := range other {
		other[i] = C.Z3_get_app_arg(c.raw, app, C.uint(i))
	}
	return other
}

// constName returns the name of a constant.
func (c *Context) constName(a C.Z3_ast) string {
	decl := C.Z3_get_app_decl(c.raw, C.Z3_to_app(c.raw, a))
	return C.GoString(C.Z3_get_symbol_string(c.raw, C.Z3_get_decl_name(c.raw, decl)))
}

func (c *Context) astToString(a C.Z3_ast) string {
	return C.GoString(C.Z3_ast_to_string(c.raw, a))
}

// solverError wraps err as a failure of the z3 solver.
func solverError(op string, err error) error {
	return &gametime.SolverError{Solver: "z3", Op: op, Err: err}
}
