package gametime

import (
	"fmt"
	"math/big"
	"strings"
)

// Dialect identifies the solver that produced a model.
type Dialect int

// Model dialects.
const (
	DialectZ3 Dialect = iota
	DialectBoolector
)

// String returns the name of the dialect.
func (d Dialect) String() string {
	switch d {
	case DialectZ3:
		return "z3"
	case DialectBoolector:
		return "boolector"
	default:
		return fmt.Sprintf("Dialect<%d>", d)
	}
}

// ParseDialect returns the dialect with the given name.
func ParseDialect(s string) (Dialect, error) {
	switch strings.ToLower(s) {
	case "z3":
		return DialectZ3, nil
	case "boolector":
		return DialectBoolector, nil
	default:
		return 0, &ConfigError{Field: "Dialect", Message: fmt.Sprintf("unknown model dialect: %q", s)}
	}
}

// ParseError is returned when a model contains a definition the parser
// cannot interpret.
type ParseError struct {
	Fragment string
	Pos      int
	Message  string
}

// Error returns the error as a string.
func (e *ParseError) Error() string {
	if e.Fragment == "" {
		return "gametime: cannot parse model: " + e.Message
	}
	return fmt.Sprintf("gametime: cannot parse model at offset %d: %s: %s", e.Pos, e.Message, e.Fragment)
}

// ModelParser converts the textual model printed by a solver into a Model.
// A ModelParser holds no state between calls and is safe for concurrent use.
type ModelParser struct {
	Dialect Dialect
	Config  Config
}

// NewModelParser returns a new instance of ModelParser.
func NewModelParser(dialect Dialect, config Config) *ModelParser {
	return &ModelParser{Dialect: dialect, Config: config}
}

// Parse parses a sequence of define-fun definitions, optionally wrapped in
// an outer list, and returns the model they describe.
func (p *ModelParser) Parse(text string) (*Model, error) {
	if err := p.Config.Validate(); err != nil {
		return nil, err
	}

	forms, err := readNodes(text)
	if err != nil {
		return nil, &ParseError{Message: err.Error()}
	}

	// Unwrap "(model ...)" or a bare list of definitions.
	if len(forms) == 1 && forms[0].isList() {
		if form := forms[0]; form.head() == "model" {
			forms = form.list[1:]
		} else if len(form.list) == 0 || form.list[0].isList() {
			forms = form.list
		}
	}

	pc := &parseContext{
		dialect:    p.Dialect,
		classifier: newNameClassifier(p.Config),
		model:      newModel(text, p.Config),
	}
	for _, form := range forms {
		if err := pc.define(form); err != nil {
			return nil, err
		}
	}
	if err := pc.resolveStores(); err != nil {
		return nil, err
	}
	return pc.model, nil
}

// parseContext holds the state of a single Parse call.
type parseContext struct {
	dialect    Dialect
	classifier *nameClassifier
	model      *Model

	defined map[string]struct{}
	stores  []pendingStore
}

// pendingStore is a store chain over an array defined elsewhere in the model.
// Its base is merged in once every definition has been read.
type pendingStore struct {
	fn   *Function
	base string
	node *node
}

// sortKind represents the kind of an SMT sort.
type sortKind int

const (
	boolSort sortKind = iota
	bitVecSort
	arraySort
)

// smtSort represents a Bool, bit-vector or array sort.
type smtSort struct {
	kind   sortKind
	width  uint     // bit-vector width
	domain *smtSort // array index sort
	rng    *smtSort // array element sort
}

// define processes a single define-fun form.
func (pc *parseContext) define(form *node) error {
	if form.head() != "define-fun" {
		return errorf(form, "expected define-fun")
	} else if len(form.list) != 5 || form.list[1].tok != SYMBOL || !form.list[2].isList() {
		return errorf(form, "malformed definition")
	}

	name := form.list[1].lit
	if _, ok := pc.defined[name]; ok {
		return errorf(form, "duplicate definition of %s", name)
	}
	if pc.defined == nil {
		pc.defined = make(map[string]struct{})
	}
	pc.defined[name] = struct{}{}

	sort, err := parseSort(form.list[3])
	if err != nil {
		return err
	}

	params, body := form.list[2].list, form.list[4]
	switch len(params) {
	case 0:
		return pc.defineConst(name, sort, body)
	case 1:
		return pc.defineFunc(name, params[0], sort, body)
	default:
		return errorf(form.list[2], "unsupported number of parameters: %d", len(params))
	}
}

// defineConst processes a definition with no parameters.
func (pc *parseContext) defineConst(name string, sort *smtSort, body *node) error {
	shape := pc.classifier.classify(name)

	switch sort.kind {
	case boolSort:
		if shape != ConstraintName {
			return errorf(body, "unexpected boolean variable %s", name)
		} else if body.tok != SYMBOL || (body.lit != "true" && body.lit != "false") {
			return errorf(body, "expected boolean literal")
		}
		return nil // indicator values carry no information

	case bitVecSort:
		v, err := parseValue(body, sort.width)
		if err != nil {
			return err
		}
		switch shape {
		case ConstraintName:
			if sort.width != 1 {
				return errorf(body, "unexpected %d-bit constraint variable %s", sort.width, name)
			}
			return nil // indicators printed as bv1 by boolector
		case PlainName, EFCName:
			pc.model.scalars = pc.model.scalars.Set(name, v)
		case TempName, IndexName, FunctionName:
			pc.model.indexVars = pc.model.indexVars.Set(name, v)
		default:
			return errorf(body, "unexpected bit-vector variable %s", name)
		}
		return nil

	default:
		if shape == ConstraintName {
			return errorf(body, "unexpected array variable %s", name)
		}
		m, err := pc.array(name, body, sort)
		if err != nil {
			return err
		}
		pc.model.mappings = pc.model.mappings.Set(name, m)
		return nil
	}
}

// defineFunc processes a definition with a single bit-vector parameter.
func (pc *parseContext) defineFunc(name string, param *node, rng *smtSort, body *node) error {
	if pc.dialect == DialectZ3 && pc.classifier.classify(name) != FunctionName {
		return errorf(body, "unexpected function %s", name)
	} else if !param.isList() || len(param.list) != 2 || param.list[0].tok != SYMBOL {
		return errorf(param, "malformed parameter")
	}

	domain, err := parseSort(param.list[1])
	if err != nil {
		return err
	} else if domain.kind != bitVecSort {
		return errorf(param, "unsupported parameter sort")
	} else if rng.kind == boolSort {
		return errorf(body, "unsupported function range")
	}

	var m Mapping
	if body.head() == "ite" {
		fn := NewFunction(name, nil)
		if err := pc.ite(fn, param.list[0].lit, domain, rng, body); err != nil {
			return err
		}
		m = fn
	} else {
		output, err := pc.term(body, rng)
		if err != nil {
			return err
		}
		m = NewConstantFunction(name, output)
	}
	pc.model.mappings = pc.model.mappings.Set(name, m)
	return nil
}

// ite adds the entries of an ite chain to fn, outermost condition first.
// The final else branch becomes the default.
func (pc *parseContext) ite(fn *Function, param string, domain, rng *smtSort, body *node) error {
	n := body
	for ; n.head() == "ite"; n = n.list[3] {
		if len(n.list) != 4 {
			return errorf(n, "malformed ite")
		}

		input, err := parseCondition(n.list[1], param, domain.width)
		if err != nil {
			return err
		}
		output, err := pc.term(n.list[2], rng)
		if err != nil {
			return err
		}
		fn.Add(input, output)
	}

	def, err := pc.term(n, rng)
	if err != nil {
		return err
	}
	fn.Default = def
	return nil
}

// term parses a function output of the given sort.
func (pc *parseContext) term(n *node, sort *smtSort) (Term, error) {
	switch sort.kind {
	case bitVecSort:
		return parseValue(n, sort.width)
	case arraySort:
		return pc.array("", n, sort)
	default:
		return nil, errorf(n, "unsupported output sort")
	}
}

// array parses an array-valued expression.
func (pc *parseContext) array(name string, n *node, sort *smtSort) (Mapping, error) {
	if fname, ok := asArray(n); ok {
		return NewArrayRef(name, fname), nil
	} else if elem, ok := constArray(n); ok {
		output, err := pc.term(elem, sort.rng)
		if err != nil {
			return nil, err
		}
		return NewConstantFunction(name, output), nil
	} else if n.head() == "store" {
		return pc.store(name, n, sort)
	}
	return nil, errorf(n, "unsupported array expression")
}

// store parses a chain of store expressions. The outermost store is the most
// recent write so its entries are added first.
func (pc *parseContext) store(name string, n *node, sort *smtSort) (Mapping, error) {
	fn := NewFunction(name, nil)
	for ; n.head() == "store"; n = n.list[1] {
		if len(n.list) != 4 {
			return nil, errorf(n, "malformed store")
		}
		input, err := parseValue(n.list[2], sort.domain.width)
		if err != nil {
			return nil, err
		}
		output, err := pc.term(n.list[3], sort.rng)
		if err != nil {
			return nil, err
		}
		fn.Add(input, output)
	}

	if elem, ok := constArray(n); ok {
		def, err := pc.term(elem, sort.rng)
		if err != nil {
			return nil, err
		}
		fn.Default = def
	} else if fname, ok := asArray(n); ok {
		pc.stores = append(pc.stores, pendingStore{fn: fn, base: fname, node: n})
	} else {
		return nil, errorf(n, "unsupported store base")
	}
	return fn, nil
}

// resolveStores merges the base arrays of pending store chains.
func (pc *parseContext) resolveStores() error {
	for _, s := range pc.stores {
		name := s.base
		for depth := 0; ; depth++ {
			base, ok := pc.model.Mapping(name)
			if !ok {
				return errorf(s.node, "undefined array %s", name)
			} else if depth > maxRefDepth {
				return errorf(s.node, "array reference cycle at %s", name)
			}

			switch base := base.(type) {
			case *ArrayRef:
				name = base.FunctionName
				continue
			case *ConstantFunction:
				s.fn.Default = base.Output
			case *Function:
				for _, e := range base.Entries() {
					s.fn.Add(e.Input, e.Output)
				}
				s.fn.Default = base.Default
			}
			break
		}
	}
	return nil
}

// parseSort parses Bool, (_ BitVec n) or (Array s s).
func parseSort(n *node) (*smtSort, error) {
	if n.tok == SYMBOL && n.lit == "Bool" {
		return &smtSort{kind: boolSort}, nil
	}

	switch n.head() {
	case "_":
		if len(n.list) != 3 || n.list[1].lit != "BitVec" || n.list[2].tok != NUMERAL {
			break
		}
		width, ok := new(big.Int).SetString(n.list[2].lit, 10)
		if !ok || width.Sign() <= 0 || !width.IsUint64() {
			return nil, errorf(n, "invalid bit-vector width")
		}
		return &smtSort{kind: bitVecSort, width: uint(width.Uint64())}, nil

	case "Array":
		if len(n.list) != 3 {
			break
		}
		domain, err := parseSort(n.list[1])
		if err != nil {
			return nil, err
		} else if domain.kind != bitVecSort {
			return nil, errorf(n, "unsupported array index sort")
		}
		rng, err := parseSort(n.list[2])
		if err != nil {
			return nil, err
		} else if rng.kind == boolSort {
			return nil, errorf(n, "unsupported array element sort")
		}
		return &smtSort{kind: arraySort, domain: domain, rng: rng}, nil
	}
	return nil, errorf(n, "unsupported sort")
}

// parseValue parses a bit-vector literal of the given width: #x, #b or
// the indexed (_ bvN w) form.
func parseValue(n *node, width uint) (Value, error) {
	switch n.tok {
	case HEXADECIMAL, BINARY:
		v, err := ParseLiteral(n.lit)
		if err != nil {
			return Value{}, errorf(n, "%s", err)
		} else if v.Width() != width {
			return Value{}, errorf(n, "literal width %d does not match sort width %d", v.Width(), width)
		}
		return v, nil
	}

	if n.head() == "_" && len(n.list) == 3 && strings.HasPrefix(n.list[1].lit, "bv") && n.list[2].tok == NUMERAL {
		digits := strings.TrimPrefix(n.list[1].lit, "bv")
		x, ok := new(big.Int).SetString(digits, 10)
		if !ok || x.Sign() < 0 || strings.HasPrefix(digits, "+") {
			return Value{}, errorf(n, "invalid bit-vector literal")
		} else if n.list[2].lit != fmt.Sprint(width) {
			return Value{}, errorf(n, "literal width %s does not match sort width %d", n.list[2].lit, width)
		} else if uint(x.BitLen()) > width {
			return Value{}, errorf(n, "literal does not fit in %d bits", width)
		}
		return NewValue(x, width), nil
	}
	return Value{}, errorf(n, "expected bit-vector literal")
}

// parseCondition parses (= param K) or (= K param) and returns K.
func parseCondition(n *node, param string, width uint) (Value, error) {
	if n.head() != "=" || len(n.list) != 3 {
		return Value{}, errorf(n, "unsupported ite condition")
	}

	lhs, rhs := n.list[1], n.list[2]
	if lhs.tok == SYMBOL && lhs.lit == param {
		return parseValue(rhs, width)
	} else if rhs.tok == SYMBOL && rhs.lit == param {
		return parseValue(lhs, width)
	}
	return Value{}, errorf(n, "ite condition does not test parameter %s", param)
}

// asArray returns the function name of an (_ as-array f) expression.
func asArray(n *node) (string, bool) {
	if n.head() != "_" || len(n.list) != 3 || n.list[1].lit != "as-array" || n.list[2].tok != SYMBOL {
		return "", false
	}
	return n.list[2].lit, true
}

// constArray returns the element of a ((as const (Array ...)) v) expression.
func constArray(n *node) (*node, bool) {
	if !n.isList() || len(n.list) != 2 {
		return nil, false
	}
	if as := n.list[0]; as.head() != "as" || len(as.list) != 3 || as.list[1].lit != "const" {
		return nil, false
	}
	return n.list[1], true
}

// errorf returns a *ParseError for the fragment at n.
func errorf(n *node, format string, args ...interface{}) error {
	return &ParseError{
		Fragment: truncate(n.String()),
		Pos:      n.pos,
		Message:  fmt.Sprintf(format, args...),
	}
}
