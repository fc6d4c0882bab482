package gametime

import (
	"fmt"
	"strings"

	"github.com/benbjohnson/immutable"
)

// Term represents an output of a Mapping: either a Value or another Mapping.
type Term interface {
	term()
}

func (*ConstantFunction) term() {}
func (*Function) term()         {}
func (*ArrayRef) term()         {}

// Mapping represents a function or an array defined by a solver model.
type Mapping interface {
	Term
	Name() string
	mapping()
}

func (*ConstantFunction) mapping() {}
func (*Function) mapping()         {}
func (*ArrayRef) mapping()         {}

// ConstantFunction maps every input to the same output.
type ConstantFunction struct {
	name   string
	Output Term
}

// NewConstantFunction returns a new instance of ConstantFunction.
func NewConstantFunction(name string, output Term) *ConstantFunction {
	return &ConstantFunction{name: name, Output: output}
}

// Name returns the name of the function.
func (f *ConstantFunction) Name() string { return f.name }

// String returns a string representation of the function.
func (f *ConstantFunction) String() string {
	return fmt.Sprintf("(const %s %s)", f.name, termString(f.Output))
}

// Function represents a function with a finite table of observed inputs and
// a default output for every other input.
//
// Entries keep the order in which they were added. The first output added
// for an input takes precedence; later duplicates are ignored.
type Function struct {
	name    string
	inputs  []Value              // insertion order
	outputs *immutable.SortedMap // Value -> Term

	// Output for inputs not in the table. A nil default maps to zero.
	Default Term
}

// NewFunction returns a new instance of Function.
func NewFunction(name string, def Term) *Function {
	return &Function{
		name:    name,
		outputs: immutable.NewSortedMap(&valueComparer{}),
		Default: def,
	}
}

// Name returns the name of the function.
func (f *Function) Name() string { return f.name }

// Len returns the number of entries in the function table.
func (f *Function) Len() int { return len(f.inputs) }

// Add adds an entry to the function table. Returns false if input already
// has an output, in which case the existing output is kept.
func (f *Function) Add(input Value, output Term) bool {
	assert(output != nil, "Function.Add: nil output for %s", input)
	if _, ok := f.outputs.Get(input); ok {
		return false
	}
	f.inputs = append(f.inputs, input)
	f.outputs = f.outputs.Set(input, output)
	return true
}

// Output returns the table entry for input. Does not consult the default.
func (f *Function) Output(input Value) (Term, bool) {
	v, ok := f.outputs.Get(input)
	if !ok {
		return nil, false
	}
	return v.(Term), true
}

// Entries returns the entries of the function table in insertion order.
func (f *Function) Entries() []Entry {
	a := make([]Entry, len(f.inputs))
	for i, input := range f.inputs {
		output, _ := f.Output(input)
		a[i] = Entry{Input: input, Output: output}
	}
	return a
}

// String returns a string representation of the function.
func (f *Function) String() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "(function %s", f.name)
	for _, e := range f.Entries() {
		fmt.Fprintf(&buf, " (%s %s)", e.Input, termString(e.Output))
	}
	if f.Default != nil {
		fmt.Fprintf(&buf, " (else %s)", termString(f.Default))
	}
	buf.WriteString(")")
	return buf.String()
}

// Entry represents a single input/output pair of a Function.
type Entry struct {
	Input  Value
	Output Term
}

// ArrayRef represents an array whose contents are defined by another
// function in the same model. The function is resolved by name on lookup so
// it may be defined before or after the array.
type ArrayRef struct {
	name         string
	FunctionName string
}

// NewArrayRef returns a new instance of ArrayRef.
func NewArrayRef(name, functionName string) *ArrayRef {
	return &ArrayRef{name: name, FunctionName: functionName}
}

// Name returns the name of the array.
func (a *ArrayRef) Name() string { return a.name }

// String returns a string representation of the array.
func (a *ArrayRef) String() string {
	return fmt.Sprintf("(array %s %s)", a.name, a.FunctionName)
}

// termString returns a string representation of a term.
func termString(t Term) string {
	switch t := t.(type) {
	case nil:
		return "0"
	case Value:
		return t.String()
	case *ArrayRef:
		if t.name == "" {
			return "(as-array " + t.FunctionName + ")"
		}
		return t.String()
	case fmt.Stringer:
		return t.String()
	default:
		panic("unreachable")
	}
}

// valueComparer compares two values by integer. Implements immutable.Comparer.
type valueComparer struct{}

// Compare returns -1 if a is less than b, returns 1 if a is greater than b, and
// returns 0 if a is equal to b. Panic if a or b is not a Value.
func (c *valueComparer) Compare(a, b interface{}) int {
	return a.(Value).Cmp(b.(Value))
}

// stringComparer compares two strings. Implements immutable.Comparer.
type stringComparer struct{}

// Compare returns -1 if a is less than b, returns 1 if a is greater than b, and
// returns 0 if a is equal to b. Panic if a or b is not a string.
func (c *stringComparer) Compare(a, b interface{}) int {
	return strings.Compare(a.(string), b.(string))
}
