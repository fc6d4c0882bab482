package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/davecgh/go-spew/spew"
	"github.com/jerryduan07/gametime"
)

// ModelCommand represents a command for parsing a saved solver model.
type ModelCommand struct {
	Stdin  io.Reader
	Stdout io.Writer
}

// NewModelCommand returns a new instance of ModelCommand.
func NewModelCommand() *ModelCommand {
	return &ModelCommand{Stdin: os.Stdin, Stdout: os.Stdout}
}

// Run executes the "model" subcommand.
func (cmd *ModelCommand) Run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("gametime-model", flag.ContinueOnError)
	configPath := fs.String("config", "", "config file")
	dialect := fs.String("dialect", "z3", "model dialect")
	width := fs.Uint("width", 0, "word bit width")
	nested := fs.Bool("nested", false, "model arrays as nested arrays")
	dump := fs.Bool("dump", false, "dump parsed mappings")
	fs.Usage = cmd.usage
	if err := fs.Parse(args); err != nil {
		return err
	} else if fs.NArg() == 0 {
		return fmt.Errorf("model file required")
	}

	config := DefaultConfig()
	if *configPath != "" {
		var err error
		if config, err = ReadConfigFile(*configPath); err != nil {
			return err
		}
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "width":
			config.Model.WordBitWidth = *width
		case "nested":
			config.Model.NestedArrays = *nested
		}
	})

	d, err := gametime.ParseDialect(*dialect)
	if err != nil {
		return err
	}

	text, err := cmd.readFile(fs.Arg(0))
	if err != nil {
		return err
	}

	m, err := gametime.NewModelParser(d, config.ParserConfig()).Parse(text)
	if err != nil {
		return err
	}

	// Print every scalar when no variables are requested.
	if fs.NArg() == 1 {
		for _, a := range m.Assignments() {
			fmt.Fprintln(cmd.Stdout, a)
		}
	}

	for _, ref := range fs.Args()[1:] {
		name, indices, err := parseRef(ref, config.Model.WordBitWidth)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.Stdout, "%s = %s\n", ref, m.Get(name, indices...))
	}

	if *dump {
		mappings := make([]gametime.Mapping, 0)
		for _, name := range m.MappingNames() {
			mapping, _ := m.Mapping(name)
			mappings = append(mappings, mapping)
		}
		dumper := &spew.ConfigState{Indent: " ", DisableMethods: true}
		dumper.Fdump(cmd.Stdout, mappings)
	}
	return nil
}

// readFile returns the contents of path, or of stdin if path is "-".
func (cmd *ModelCommand) readFile(path string) (string, error) {
	if path == "-" {
		buf, err := io.ReadAll(cmd.Stdin)
		return string(buf), err
	}
	buf, err := os.ReadFile(path)
	return string(buf), err
}

// parseRef parses a variable reference such as "x", "a[3]" or "a[0x1][2]".
func parseRef(ref string, width uint) (string, []gametime.Value, error) {
	i := strings.IndexByte(ref, '[')
	if i < 0 {
		return ref, nil, nil
	} else if i == 0 {
		return "", nil, fmt.Errorf("invalid variable reference: %q", ref)
	}

	name, rest := ref[:i], ref[i:]
	var indices []gametime.Value
	for rest != "" {
		end := strings.IndexByte(rest, ']')
		if rest[0] != '[' || end < 0 {
			return "", nil, fmt.Errorf("invalid variable reference: %q", ref)
		}

		x, err := strconv.ParseUint(rest[1:end], 0, 64)
		if err != nil {
			return "", nil, fmt.Errorf("invalid index in %q: %w", ref, err)
		}
		indices = append(indices, gametime.NewUintValue(x, width))
		rest = rest[end+1:]
	}
	return name, indices, nil
}

func (cmd *ModelCommand) usage() {
	fmt.Fprintln(os.Stderr, `
Parses a model printed by a solver and prints the values of variables.
With no variables, prints every scalar assignment. Array elements are
selected with one bracketed index per dimension, e.g. a[1][2].

Usage:

	gametime model [arguments] MODEL [VARIABLE...]

Arguments:

	-config PATH
	    Read settings from a TOML file. Flags override the file.

	-dialect NAME
	    Solver that printed the model: z3 or boolector. Defaults to z3.

	-width N
	    Word bit width used to pack array indices. Defaults to 32.

	-nested
	    Model multi-dimensional arrays as nested arrays.

	-dump
	    Dump the parsed functions and arrays.

Use "-" as MODEL to read from stdin.
`[1:])
}
