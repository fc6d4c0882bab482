package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/jerryduan07/gametime"
	"github.com/jerryduan07/gametime/boolector"
	"github.com/jerryduan07/gametime/store"
	"github.com/jerryduan07/gametime/z3"
)

// CheckCommand represents a command for checking path queries.
type CheckCommand struct {
	Stdout io.Writer
}

// NewCheckCommand returns a new instance of CheckCommand.
func NewCheckCommand() *CheckCommand {
	return &CheckCommand{Stdout: os.Stdout}
}

// Run executes the "check" subcommand.
func (cmd *CheckCommand) Run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("gametime-check", flag.ContinueOnError)
	configPath := fs.String("config", "", "config file")
	solverName := fs.String("solver", "", "solver")
	backend := fs.String("backend", "", "boolector SAT back-end")
	binary := fs.String("binary", "", "boolector executable")
	width := fs.Uint("width", 0, "word bit width")
	nested := fs.Bool("nested", false, "model arrays as nested arrays")
	timeout := fs.Duration("timeout", 0, "per-query timeout")
	dbPath := fs.String("db", "", "results database")
	jobs := fs.Int("j", 0, "parallel checks")
	verbose := fs.Bool("v", false, "verbose")
	fs.Usage = cmd.usage
	if err := fs.Parse(args); err != nil {
		return err
	} else if fs.NArg() == 0 {
		return fmt.Errorf("query file required")
	}

	log.SetFlags(0)
	if !*verbose {
		log.SetOutput(io.Discard)
	}

	config := DefaultConfig()
	if *configPath != "" {
		var err error
		if config, err = ReadConfigFile(*configPath); err != nil {
			return err
		}
	}

	// Flags override the config file.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "solver":
			config.Solver.Name = *solverName
		case "backend":
			config.Boolector.Backend = *backend
		case "binary":
			config.Boolector.Binary = *binary
		case "width":
			config.Model.WordBitWidth = *width
		case "nested":
			config.Model.NestedArrays = *nested
		case "timeout":
			config.Solver.Timeout = timeout.String()
		case "db":
			config.Store.Path = *dbPath
		case "j":
			config.Solver.Jobs = *jobs
		}
	})

	d, err := config.Timeout()
	if err != nil {
		return err
	}

	solver, name, err := newSolver(config)
	if err != nil {
		return err
	}

	if config.Store.Path != "" {
		db, err := store.Open(config.Store.Path)
		if err != nil {
			return err
		}
		defer db.Close()

		r := store.NewRecorder(solver, db, name)
		log.Printf("[check] run %s", r.RunID)
		solver = r
	}

	// Read all queries up front so malformed files are reported in order.
	checks := make([]*check, fs.NArg())
	for i, path := range fs.Args() {
		checks[i] = &check{path: path}
		buf, err := os.ReadFile(path)
		if err != nil {
			checks[i].err = err
			continue
		}
		checks[i].query, checks[i].err = gametime.ParseQuery(string(buf), config.ParserConfig())
	}

	runChecks(ctx, solver, checks, config.Solver.Jobs, d)

	var failed int
	for _, c := range checks {
		if c.err != nil {
			failed++
		}
		c.print(cmd.Stdout)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d queries failed", failed, len(checks))
	}
	return nil
}

// check holds a query file and the outcome of checking it.
type check struct {
	path  string
	query *gametime.Query
	err   error
}

// print writes the outcome of c to w.
func (c *check) print(w io.Writer) {
	if c.err != nil {
		fmt.Fprintf(w, "%s: error: %s\n", c.path, c.err)
		return
	}

	switch q := c.query; q.Status() {
	case gametime.Sat:
		fmt.Fprintf(w, "%s: sat\n", c.path)
		for _, a := range q.Model().Assignments() {
			fmt.Fprintf(w, "\t%s\n", a)
		}
	case gametime.Unsat:
		fmt.Fprintf(w, "%s: unsat core=%v\n", c.path, q.UnsatCore())
	default:
		fmt.Fprintf(w, "%s: %s\n", c.path, q.Status())
	}
}

// runChecks checks every parsed query using up to jobs goroutines.
func runChecks(ctx context.Context, solver gametime.Solver, checks []*check, jobs int, timeout time.Duration) {
	if jobs < 1 {
		jobs = 1
	}

	ch := make(chan *check)
	var wg sync.WaitGroup
	for i := 0; i < jobs; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for c := range ch {
				c.err = checkOne(ctx, solver, c.query, timeout)
			}
		}()
	}

	for _, c := range checks {
		if c.err == nil {
			ch <- c
		}
	}
	close(ch)
	wg.Wait()
}

func checkOne(ctx context.Context, solver gametime.Solver, q *gametime.Query, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return solver.CheckSat(ctx, q)
}

// newSolver returns the solver selected by config and its name.
func newSolver(config Config) (gametime.Solver, string, error) {
	switch strings.ToLower(config.Solver.Name) {
	case "z3":
		s, err := z3.NewSolver(config.ParserConfig())
		if err != nil {
			return nil, "", err
		}
		return s, "z3", nil

	case "boolector":
		backend, err := boolector.ParseBackend(config.Boolector.Backend)
		if err != nil {
			return nil, "", err
		}
		s, err := boolector.NewSolver(config.Boolector.Binary, backend, config.ParserConfig())
		if err != nil {
			return nil, "", err
		}
		s.TempDir = config.Boolector.TempDir
		return s, s.String(), nil

	default:
		return nil, "", &gametime.ConfigError{Field: "solver", Message: fmt.Sprintf("unknown solver: %q", config.Solver.Name)}
	}
}

func (cmd *CheckCommand) usage() {
	fmt.Fprintln(os.Stderr, `
Checks the feasibility of one or more path queries. Satisfiable queries
print their variable assignments. Unsatisfiable queries print the ids of
the constraints in the unsat core.

Usage:

	gametime check [arguments] QUERY...

Arguments:

	-config PATH
	    Read settings from a TOML file. Flags override the file.

	-solver NAME
	    Solver to use: z3 or boolector. Defaults to z3.

	-backend NAME
	    SAT back-end for boolector: lingeling, minisat or picosat.

	-binary PATH
	    Path to the boolector executable.

	-width N
	    Word bit width used to pack array indices. Defaults to 32.

	-nested
	    Model multi-dimensional arrays as nested arrays.

	-timeout DURATION
	    Maximum time spent on each query.

	-db PATH
	    Record results in a SQLite database.

	-j N
	    Number of queries checked in parallel.

	-v
	    Enable verbose logging.
`[1:])
}
