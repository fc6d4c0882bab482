package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/jerryduan07/gametime"
	"github.com/jerryduan07/gametime/store"
)

const pathQuery = `(declare-fun x () (_ BitVec 32))
(declare-fun __gtCONSTRAINT0 () Bool)
(assert (and
  (= __gtCONSTRAINT0 (bvult x #x00000008))
  (and __gtCONSTRAINT0)))
`

func TestRun_UnknownCommand(t *testing.T) {
	if err := run(context.Background(), []string{"bogus"}); err == nil || err.Error() != "gametime bogus: unknown command" {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCheckCommand_Run(t *testing.T) {
	t.Run("Boolector", func(t *testing.T) {
		bin := writeFakeBoolector(t, "echo sat\necho '(define-fun x () (_ BitVec 32) #x00000007)'")
		query := writeFile(t, "a.smt2", pathQuery)

		var buf bytes.Buffer
		cmd := NewCheckCommand()
		cmd.Stdout = &buf
		if err := cmd.Run(context.Background(), []string{"-solver", "boolector", "-binary", bin, query}); err != nil {
			t.Fatal(err)
		} else if diff := cmp.Diff(buf.String(), query+": sat\n\tx = 7\n"); diff != "" {
			t.Fatal(diff)
		}
	})

	t.Run("InputOrder", func(t *testing.T) {
		bin := writeFakeBoolector(t, "echo unsat")
		a := writeFile(t, "a.smt2", pathQuery)
		b := writeFile(t, "b.smt2", `(assert (or x y))`)
		c := writeFile(t, "c.smt2", pathQuery)

		var buf bytes.Buffer
		cmd := NewCheckCommand()
		cmd.Stdout = &buf
		err := cmd.Run(context.Background(), []string{"-solver", "boolector", "-binary", bin, "-j", "4", a, b, c})
		if err == nil || err.Error() != "1 of 3 queries failed" {
			t.Fatalf("unexpected error: %v", err)
		}

		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		if len(lines) != 3 {
			t.Fatalf("unexpected output: %s", buf.String())
		} else if lines[0] != a+": unsat core=[]" {
			t.Fatalf("unexpected line: %s", lines[0])
		} else if !strings.HasPrefix(lines[1], b+": error: gametime: SMT query is not in the form expected") {
			t.Fatalf("unexpected line: %s", lines[1])
		} else if lines[2] != c+": unsat core=[]" {
			t.Fatalf("unexpected line: %s", lines[2])
		}
	})

	t.Run("ConfigFile", func(t *testing.T) {
		bin := writeFakeBoolector(t, "echo \"$3\"\necho unknown")
		dbPath := filepath.Join(t.TempDir(), "results.db")
		config := writeFile(t, "gametime.toml", `
[solver]
name = "boolector"
timeout = "10s"

[boolector]
binary = "`+bin+`"
backend = "PicoSAT"

[store]
path = "`+dbPath+`"
`)
		query := writeFile(t, "a.smt2", pathQuery)

		var buf bytes.Buffer
		cmd := NewCheckCommand()
		cmd.Stdout = &buf
		if err := cmd.Run(context.Background(), []string{"-config", config, query}); err != nil {
			t.Fatal(err)
		} else if diff := cmp.Diff(buf.String(), query+": unknown\n"); diff != "" {
			t.Fatal(diff)
		}

		db, err := store.Open(dbPath)
		if err != nil {
			t.Fatal(err)
		}
		defer db.Close()

		q := gametime.NewQuery(pathQuery, nil)
		if results, err := db.ResultsByQuery(context.Background(), q.Hash()); err != nil {
			t.Fatal(err)
		} else if len(results) != 1 {
			t.Fatalf("unexpected result count: %d", len(results))
		} else if got := results[0]; got.Status != gametime.Unknown || got.Solver != "boolector-picosat" {
			t.Fatalf("unexpected result: %+v", got)
		}
	})

	t.Run("ErrUnknownSolver", func(t *testing.T) {
		query := writeFile(t, "a.smt2", pathQuery)
		err := NewCheckCommand().Run(context.Background(), []string{"-solver", "cvc5", query})
		if _, ok := err.(*gametime.ConfigError); !ok {
			t.Fatalf("unexpected error: %#v", err)
		}
	})

	t.Run("ErrConfigFile", func(t *testing.T) {
		config := writeFile(t, "gametime.toml", "[solver\nname = ")
		query := writeFile(t, "a.smt2", pathQuery)
		err := NewCheckCommand().Run(context.Background(), []string{"-config", config, query})
		if _, ok := err.(*gametime.ConfigError); !ok {
			t.Fatalf("unexpected error: %#v", err)
		}
	})
}

func TestModelCommand_Run(t *testing.T) {
	const model = `
(define-fun y () (_ BitVec 8) #x2a)
(define-fun x () (_ BitVec 32) #x00000007)
(define-fun a () (Array (_ BitVec 16) (_ BitVec 8)) (_ as-array k!0))
(define-fun k!0 ((x!0 (_ BitVec 16))) (_ BitVec 8)
  (ite (= x!0 #x0102) #x05
    #x00))
`

	t.Run("Assignments", func(t *testing.T) {
		var buf bytes.Buffer
		cmd := NewModelCommand()
		cmd.Stdin, cmd.Stdout = strings.NewReader(model), &buf
		if err := cmd.Run(context.Background(), []string{"-"}); err != nil {
			t.Fatal(err)
		} else if diff := cmp.Diff(buf.String(), "x = 7\ny = 42\n"); diff != "" {
			t.Fatal(diff)
		}
	})

	t.Run("Lookup", func(t *testing.T) {
		var buf bytes.Buffer
		cmd := NewModelCommand()
		cmd.Stdout = &buf
		path := writeFile(t, "model.smt2", model)
		if err := cmd.Run(context.Background(), []string{"-width", "8", path, "x", "a[1][0x2]", "a[2][1]"}); err != nil {
			t.Fatal(err)
		} else if diff := cmp.Diff(buf.String(), "x = 7\na[1][0x2] = 5\na[2][1] = 0\n"); diff != "" {
			t.Fatal(diff)
		}
	})

	t.Run("Dump", func(t *testing.T) {
		var buf bytes.Buffer
		cmd := NewModelCommand()
		cmd.Stdin, cmd.Stdout = strings.NewReader(model), &buf
		if err := cmd.Run(context.Background(), []string{"-dump", "-"}); err != nil {
			t.Fatal(err)
		} else if !strings.Contains(buf.String(), "FunctionName: (string) (len=3) \"k!0\"") {
			t.Fatalf("unexpected dump: %s", buf.String())
		} else if strings.Contains(buf.String(), "(array a k!0)") {
			t.Fatalf("expected fields rather than String output: %s", buf.String())
		}
	})

	t.Run("ErrDialect", func(t *testing.T) {
		cmd := NewModelCommand()
		cmd.Stdin = strings.NewReader(model)
		if err := cmd.Run(context.Background(), []string{"-dialect", "cvc5", "-"}); err == nil {
			t.Fatal("expected error")
		}
	})
}

func TestParseRef(t *testing.T) {
	t.Run("OK", func(t *testing.T) {
		name, indices, err := parseRef("a[1][0x10]", 32)
		if err != nil {
			t.Fatal(err)
		} else if name != "a" {
			t.Fatalf("unexpected name: %s", name)
		}

		var a []string
		for _, index := range indices {
			a = append(a, index.Literal())
		}
		if diff := cmp.Diff(a, []string{"#x00000001", "#x00000010"}); diff != "" {
			t.Fatal(diff)
		}
	})

	t.Run("Err", func(t *testing.T) {
		for _, ref := range []string{"[1]", "a[1", "a[x]", "a[1]b"} {
			if _, _, err := parseRef(ref, 32); err == nil {
				t.Errorf("%q: expected error", ref)
			}
		}
	})
}

func writeFakeBoolector(tb testing.TB, body string) string {
	tb.Helper()
	return writeFileMode(tb, "boolector", "#!/bin/sh\n"+body+"\n", 0o755)
}

func writeFile(tb testing.TB, name, data string) string {
	tb.Helper()
	return writeFileMode(tb, name, data, 0o644)
}

func writeFileMode(tb testing.TB, name, data string, mode os.FileMode) string {
	tb.Helper()
	path := filepath.Join(tb.TempDir(), name)
	if err := os.WriteFile(path, []byte(data), mode); err != nil {
		tb.Fatal(err)
	}
	return path
}
