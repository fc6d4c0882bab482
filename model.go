package gametime

import (
	"fmt"

	"github.com/benbjohnson/immutable"
)

// maxRefDepth bounds the number of array references followed in one lookup.
const maxRefDepth = 256

// Model represents a satisfying assignment produced by a solver. It holds
// the raw text of the model alongside the assignments parsed from it.
//
// A Model is immutable once returned by a parser and is safe for
// concurrent use.
type Model struct {
	text   string
	config Config

	scalars   *immutable.SortedMap // name -> Value
	mappings  *immutable.SortedMap // name -> Mapping
	indexVars *immutable.SortedMap // name -> Value, solver temporaries
}

// newModel returns an empty model for the given text.
func newModel(text string, config Config) *Model {
	return &Model{
		text:      text,
		config:    config,
		scalars:   immutable.NewSortedMap(&stringComparer{}),
		mappings:  immutable.NewSortedMap(&stringComparer{}),
		indexVars: immutable.NewSortedMap(&stringComparer{}),
	}
}

// Text returns the raw model text as produced by the solver.
func (m *Model) Text() string { return m.text }

// Scalar returns the value assigned to a scalar variable.
func (m *Model) Scalar(name string) (Value, bool) {
	v, ok := m.scalars.Get(name)
	if !ok {
		return Value{}, false
	}
	return v.(Value), true
}

// Mapping returns the function or array with the given name.
func (m *Model) Mapping(name string) (Mapping, bool) {
	v, ok := m.mappings.Get(name)
	if !ok {
		return nil, false
	}
	return v.(Mapping), true
}

// ScalarNames returns the names of all scalar assignments, sorted.
func (m *Model) ScalarNames() []string {
	return sortedKeys(m.scalars)
}

// MappingNames returns the names of all functions and arrays, sorted.
func (m *Model) MappingNames() []string {
	return sortedKeys(m.mappings)
}

// Get returns the value of a variable. Indices select an element of an array
// variable, outermost dimension first. Returns zero if the variable has no
// value in the model.
func (m *Model) Get(name string, indices ...Value) Value {
	v, _ := m.Lookup(name, indices...)
	return v
}

// Lookup returns the value of a variable and whether the model determines it.
//
// Array elements not listed by the solver resolve to the default of the
// underlying function, or to zero if it has none. If nested arrays are not
// enabled, multiple indices are packed into a single index first.
func (m *Model) Lookup(name string, indices ...Value) (Value, bool) {
	if len(indices) == 0 {
		return m.Scalar(name)
	}

	mapping, ok := m.Mapping(name)
	if !ok {
		return Value{}, false
	}

	if !m.config.ModelAsNestedArrays && len(indices) > 1 {
		indices = []Value{PackIndices(indices, m.config.WordBitWidth)}
	}
	return m.index(mapping, indices, 0)
}

// index resolves one index at a time against t.
func (m *Model) index(t Term, indices []Value, depth int) (Value, bool) {
	if depth > maxRefDepth {
		return Value{}, false
	}

	if len(indices) == 0 {
		switch t := t.(type) {
		case nil:
			return Value{}, true
		case Value:
			return t, true
		default:
			return Value{}, false // partially indexed array
		}
	}

	switch t := t.(type) {
	case nil:
		return Value{}, true
	case *ArrayRef:
		fn, ok := m.Mapping(t.FunctionName)
		if !ok {
			return Value{}, false
		}
		return m.index(fn, indices, depth+1)
	case *ConstantFunction:
		return m.index(t.Output, indices[1:], depth+1)
	case *Function:
		if output, ok := t.Output(indices[0]); ok {
			return m.index(output, indices[1:], depth+1)
		}
		return m.index(t.Default, indices[1:], depth+1)
	default:
		return Value{}, false // scalar cannot be indexed
	}
}

// Assignments returns the scalar assignments of the model, sorted by name.
func (m *Model) Assignments() []Assignment {
	a := make([]Assignment, 0, m.scalars.Len())
	itr := m.scalars.Iterator()
	for !itr.Done() {
		k, v := itr.Next()
		a = append(a, Assignment{Name: k.(string), Value: v.(Value)})
	}
	return a
}

// String returns the raw model text.
func (m *Model) String() string { return m.text }

// Assignment represents a value assigned to a variable.
type Assignment struct {
	Name  string
	Value Value
}

// String returns the assignment formatted as "name = value".
func (a Assignment) String() string {
	return fmt.Sprintf("%s = %s", a.Name, a.Value)
}

// sortedKeys returns the string keys of m in order.
func sortedKeys(m *immutable.SortedMap) []string {
	a := make([]string, 0, m.Len())
	itr := m.Iterator()
	for !itr.Done() {
		k, _ := itr.Next()
		a = append(a, k.(string))
	}
	return a
}
