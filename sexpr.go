package gametime

import (
	"fmt"
	"strings"
)

// node represents an s-expression read from SMT-LIB text.
type node struct {
	tok  Token
	lit  string
	pos  int
	list []*node // children, if tok is LPAREN
}

// isList returns true if n is a parenthesized list.
func (n *node) isList() bool { return n.tok == LPAREN }

// head returns the leading symbol of a list, if any.
func (n *node) head() string {
	if !n.isList() || len(n.list) == 0 || n.list[0].tok != SYMBOL {
		return ""
	}
	return n.list[0].lit
}

// String returns the node formatted as SMT-LIB text.
func (n *node) String() string {
	if !n.isList() {
		return n.lit
	}
	a := make([]string, len(n.list))
	for i, child := range n.list {
		a[i] = child.String()
	}
	return "(" + strings.Join(a, " ") + ")"
}

// readNodes reads all top-level s-expressions from src.
func readNodes(src string) ([]*node, error) {
	s := NewScanner(src)

	var stack []*node
	var top []*node
	for {
		tok, lit, pos := s.Scan()
		switch tok {
		case EOF:
			if len(stack) > 0 {
				return nil, fmt.Errorf("unbalanced parenthesis at offset %d", stack[len(stack)-1].pos)
			}
			return top, nil
		case ILLEGAL:
			return nil, fmt.Errorf("illegal token %q at offset %d", lit, pos)
		case LPAREN:
			stack = append(stack, &node{tok: LPAREN, lit: lit, pos: pos})
			continue
		case RPAREN:
			if len(stack) == 0 {
				return nil, fmt.Errorf("unexpected ')' at offset %d", pos)
			}
			n := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				top = append(top, n)
			} else {
				parent := stack[len(stack)-1]
				parent.list = append(parent.list, n)
			}
		default:
			n := &node{tok: tok, lit: lit, pos: pos}
			if len(stack) == 0 {
				top = append(top, n)
			} else {
				parent := stack[len(stack)-1]
				parent.list = append(parent.list, n)
			}
		}
	}
}

// QueryShape describes the top-level structure of a path query: a
// conjunction of equivalences, one per path constraint, followed by a
// conjunction that states the feasibility goal.
type QueryShape struct {
	// Indicator variable on the left-hand side of each equivalence, in the
	// order the equivalences appear in the query.
	Indicators []string
}

// ReadQueryShape validates the structure of a query and returns its shape.
// Multiple assertions are treated as one conjunction. Returns a *FormatError
// if the query does not have the expected structure.
func ReadQueryShape(text string) (*QueryShape, error) {
	forms, err := readNodes(text)
	if err != nil {
		return nil, &FormatError{Message: err.Error()}
	}

	var conjuncts []*node
	var asserts int
	for _, form := range forms {
		if form.head() != "assert" {
			continue
		} else if len(form.list) != 2 {
			return nil, &FormatError{Message: fmt.Sprintf("malformed assertion: %s", form)}
		}
		asserts++

		body := form.list[1]
		conjuncts = append(conjuncts, body)
	}

	switch asserts {
	case 0:
		return nil, &FormatError{Message: "no assertion found"}
	case 1:
		root := conjuncts[0]
		if root.head() != "and" || len(root.list) < 2 {
			return nil, &FormatError{Message: "top-level expression is not a conjunction"}
		}
		conjuncts = root.list[1:]
	}

	last := conjuncts[len(conjuncts)-1]
	if last.head() != "and" {
		return nil, &FormatError{Message: fmt.Sprintf("last conjunct is not a conjunction: %s", truncate(last.String()))}
	}

	shape := &QueryShape{}
	for _, equiv := range conjuncts[:len(conjuncts)-1] {
		if equiv.head() != "=" || len(equiv.list) != 3 || equiv.list[1].tok != SYMBOL {
			return nil, &FormatError{Message: fmt.Sprintf("conjunct is not an equivalence: %s", truncate(equiv.String()))}
		}
		shape.Indicators = append(shape.Indicators, equiv.list[1].lit)
	}
	return shape, nil
}

// truncate shortens s for use in error messages.
func truncate(s string) string {
	const maxLen = 80
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
