package boolector

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/jerryduan07/gametime"
)

// DefaultBinary is the name of the Boolector executable looked up in PATH.
const DefaultBinary = "boolector"

// waitDelay bounds how long output is read after the process is killed.
const waitDelay = 100 * time.Millisecond

// Backend represents the SAT solver used by Boolector.
type Backend int

// SAT back-ends.
const (
	Lingeling Backend = iota
	MiniSat
	PicoSat
)

var backends = [...]string{
	Lingeling: "lingeling",
	MiniSat:   "minisat",
	PicoSat:   "picosat",
}

// String returns the name of the back-end as passed on the command line.
func (b Backend) String() string {
	if b >= 0 && b < Backend(len(backends)) {
		return backends[b]
	}
	return fmt.Sprintf("Backend<%d>", b)
}

// ParseBackend returns the back-end with the given case-insensitive name.
// An empty name selects Lingeling.
func ParseBackend(s string) (Backend, error) {
	switch strings.ToLower(s) {
	case "", "lingeling":
		return Lingeling, nil
	case "minisat":
		return MiniSat, nil
	case "picosat":
		return PicoSat, nil
	default:
		return 0, &gametime.ConfigError{Field: "Backend", Message: fmt.Sprintf("unknown backend SAT solver for Boolector: %q", s)}
	}
}

// Ensure solver implements interface.
var _ gametime.Solver = (*Solver)(nil)

// Solver represents a solver that runs the Boolector executable once per query.
type Solver struct {
	mu    sync.Mutex
	stats gametime.Stats

	path    string
	backend Backend
	config  gametime.Config

	// Directory where query files are written. Uses os.TempDir() if blank.
	TempDir string

	// Maximum duration of a single check. No limit if zero.
	Timeout time.Duration
}

// NewSolver returns a new instance of Solver. binary is resolved with
// exec.LookPath; DefaultBinary is used if it is blank.
func NewSolver(binary string, backend Backend, config gametime.Config) (*Solver, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	} else if backend < 0 || backend >= Backend(len(backends)) {
		return nil, &gametime.ConfigError{Field: "Backend", Message: fmt.Sprintf("unknown backend SAT solver for Boolector: %s", backend)}
	}

	if binary == "" {
		binary = DefaultBinary
	}
	path, err := exec.LookPath(binary)
	if err != nil {
		return nil, &gametime.ConfigError{Field: "Binary", Message: err.Error()}
	}

	return &Solver{
		path:    path,
		backend: backend,
		config:  config,
	}, nil
}

// Path returns the resolved path of the executable.
func (s *Solver) Path() string { return s.path }

// Backend returns the SAT back-end passed to the executable.
func (s *Solver) Backend() Backend { return s.backend }

// Stats returns statistics for the solver.
func (s *Solver) Stats() gametime.Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// String returns the solver name and back-end, e.g. "boolector-lingeling".
func (s *Solver) String() string {
	return "boolector-" + s.backend.String()
}

// CheckSat checks the feasibility of q and labels it with the outcome.
//
// Boolector does not report unsat cores so unsatisfiable queries are labeled
// with an empty core. A check cut short by the context or by Timeout is
// labeled unknown.
func (s *Solver) CheckSat(ctx context.Context, q *gametime.Query) error {
	if q.Status() != gametime.Pending {
		return gametime.ErrQueryLabeled
	} else if _, err := gametime.ReadQueryShape(q.Text()); err != nil {
		return err
	} else if err := ctx.Err(); err != nil {
		return err
	}

	t := time.Now()
	status, model, err := s.check(ctx, q.Text())
	if err != nil {
		return err
	}

	elapsed := time.Since(t)
	s.mu.Lock()
	s.stats.Add(status, elapsed)
	s.mu.Unlock()
	log.Printf("[boolector] %016x %s (%s)", q.Hash(), status, elapsed)

	switch status {
	case gametime.Sat:
		return q.LabelSat(model)
	case gametime.Unsat:
		return q.LabelUnsat([]int{})
	default:
		return q.LabelUnknown()
	}
}

func (s *Solver) check(ctx context.Context, text string) (gametime.Status, *gametime.Model, error) {
	path, err := s.writeQuery(text)
	if err != nil {
		return gametime.Pending, nil, solverError("write query", err)
	}
	defer os.Remove(path)

	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, s.path, "--model", "--smt2", "-"+s.backend.String(), path)
	cmd.Stdout, cmd.Stderr = &stdout, &stderr
	cmd.WaitDelay = waitDelay

	// Boolector exits with a non-zero status on a decision so the exit
	// status is only consulted when no decision was printed. A decision
	// printed before an interrupt still stands.
	runErr := cmd.Run()
	valid := utf8.Valid(stdout.Bytes())

	status, modelText := gametime.Pending, ""
	if valid {
		status, modelText = scrape(stdout.String())
	}
	switch status {
	case gametime.Sat:
		m, err := gametime.NewModelParser(gametime.DialectBoolector, s.config).Parse(modelText)
		if err == nil {
			return gametime.Sat, m, nil
		} else if ctx.Err() == nil {
			return gametime.Pending, nil, solverError("parse model", err)
		}
	case gametime.Unsat, gametime.Unknown:
		return status, nil, nil
	}

	if ctx.Err() != nil {
		log.Printf("[boolector] interrupted: %s", ctx.Err())
		return gametime.Unknown, nil, nil
	}

	var exitErr *exec.ExitError
	if runErr != nil && !errors.As(runErr, &exitErr) {
		return gametime.Pending, nil, solverError("run", runErr)
	} else if !valid {
		return gametime.Pending, nil, solverError("read output", errors.New("output is not valid UTF-8"))
	} else if exitErr != nil {
		return gametime.Pending, nil, solverError("run", fmt.Errorf("%s: %s", exitErr, strings.TrimSpace(stderr.String())))
	}
	return gametime.Unknown, nil, nil
}

// writeQuery writes text to a new temporary file and returns its path.
func (s *Solver) writeQuery(text string) (string, error) {
	f, err := os.CreateTemp(s.TempDir, "gametime-*.smt2")
	if err != nil {
		return "", err
	}

	if _, err := f.WriteString(text); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", err
	} else if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}

// scrape finds the decision in the output of Boolector. A "sat" line is
// followed by the model. Returns Pending if no decision was printed.
func scrape(output string) (status gametime.Status, model string) {
	lines := strings.Split(output, "\n")
	for i := range lines {
		lines[i] = strings.TrimSpace(lines[i])
	}

	for i, line := range lines {
		if line == "sat" {
			return gametime.Sat, strings.Join(lines[i+1:], "\n")
		}
	}
	for _, line := range lines {
		switch line {
		case "unsat":
			return gametime.Unsat, ""
		case "unknown":
			return gametime.Unknown, ""
		}
	}
	return gametime.Pending, ""
}

// solverError wraps err as a failure of the boolector solver.
func solverError(op string, err error) error {
	return &gametime.SolverError{Solver: "boolector", Op: op, Err: err}
}
