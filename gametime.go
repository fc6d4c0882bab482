package gametime

import (
	"errors"
	"fmt"
	"time"
)

// Standard widths.
const (
	WidthBool = 1
	Width8    = 8
	Width16   = 16
	Width32   = 32
	Width64   = 64
)

// Default identifier prefixes used by the query encoder.
const (
	DefaultConstraintPrefix = "__gtCONSTRAINT"
	DefaultIndexPrefix      = "__gtINDEX"
	DefaultEFCPrefix        = "__gtEFC"
)

var (
	ErrQueryLabeled   = errors.New("gametime: query already labeled")
	ErrSolverNotBuilt = errors.New("gametime: solver not built into this binary")
)

// Config holds the settings shared by the solver adapters and the model parsers.
type Config struct {
	// Bit width of a machine word. Used to pack multi-dimensional array indices.
	WordBitWidth uint

	// If true, multi-dimensional arrays are modeled as arrays of arrays and
	// resolved one dimension at a time. Otherwise indices are packed into one.
	ModelAsNestedArrays bool

	// Prefixes of the identifiers generated by the query encoder.
	ConstraintPrefix string
	IndexPrefix      string
	EFCPrefix        string
}

// DefaultConfig returns the configuration used when none is provided.
func DefaultConfig() Config {
	return Config{
		WordBitWidth:     Width32,
		ConstraintPrefix: DefaultConstraintPrefix,
		IndexPrefix:      DefaultIndexPrefix,
		EFCPrefix:        DefaultEFCPrefix,
	}
}

// Validate returns a *ConfigError if c cannot be used.
func (c Config) Validate() error {
	if c.WordBitWidth == 0 || c.WordBitWidth%4 != 0 {
		return &ConfigError{Field: "WordBitWidth", Message: fmt.Sprintf("word bit width must be a positive multiple of 4: %d", c.WordBitWidth)}
	} else if c.ConstraintPrefix == "" {
		return &ConfigError{Field: "ConstraintPrefix", Message: "constraint prefix required"}
	} else if c.IndexPrefix == "" {
		return &ConfigError{Field: "IndexPrefix", Message: "index prefix required"}
	} else if c.EFCPrefix == "" {
		return &ConfigError{Field: "EFCPrefix", Message: "efc prefix required"}
	}
	return nil
}

// ConfigError is returned when a solver or parser is misconfigured.
// These errors are fatal and are never retried.
type ConfigError struct {
	Field   string
	Message string
}

// Error returns the error as a string.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("gametime: invalid %s: %s", e.Field, e.Message)
}

// FormatError is returned when a query does not have the structure expected
// by the solvers: a conjunction of equivalences followed by a conjunction.
type FormatError struct {
	Message string
}

// Error returns the error as a string.
func (e *FormatError) Error() string {
	return "gametime: SMT query is not in the form expected: " + e.Message
}

// SolverError is returned when a solver fails to produce a decision, either
// because it could not be run or because its output could not be understood.
type SolverError struct {
	Solver string
	Op     string
	Err    error
}

// Error returns the error as a string.
func (e *SolverError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Solver, e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *SolverError) Unwrap() error { return e.Err }

// Stats holds counters for a solver.
type Stats struct {
	CheckN    int
	SatN      int
	UnsatN    int
	UnknownN  int
	CheckTime time.Duration
}

// Add records one check that finished with status after elapsed time.
func (s *Stats) Add(status Status, elapsed time.Duration) {
	s.CheckN++
	s.CheckTime += elapsed
	switch status {
	case Sat:
		s.SatN++
	case Unsat:
		s.UnsatN++
	case Unknown:
		s.UnknownN++
	}
}

// assert panics if condition is false.
func assert(condition bool, format string, args ...interface{}) {
	if !condition {
		panic(fmt.Sprintf("assert: "+format, args...))
	}
}
