package gametime

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Token represents a lexical token of SMT-LIB text.
type Token int

// Tokens.
const (
	ILLEGAL Token = iota
	EOF
	LPAREN
	RPAREN
	SYMBOL
	KEYWORD
	NUMERAL
	HEXADECIMAL
	BINARY
	STRING
)

var tokens = [...]string{
	ILLEGAL:     "ILLEGAL",
	EOF:         "EOF",
	LPAREN:      "(",
	RPAREN:      ")",
	SYMBOL:      "SYMBOL",
	KEYWORD:     "KEYWORD",
	NUMERAL:     "NUMERAL",
	HEXADECIMAL: "HEXADECIMAL",
	BINARY:      "BINARY",
	STRING:      "STRING",
}

// String returns the string representation of the token.
func (tok Token) String() string {
	if tok >= 0 && tok < Token(len(tokens)) && tokens[tok] != "" {
		return tokens[tok]
	}
	return fmt.Sprintf("Token<%d>", tok)
}

// Scanner splits SMT-LIB text into tokens.
type Scanner struct {
	src string
	pos int
}

// NewScanner returns a new instance of Scanner.
func NewScanner(src string) *Scanner {
	return &Scanner{src: src}
}

// Scan returns the next token, its literal text and its byte offset.
// Quoted symbols are returned without their enclosing bars.
func (s *Scanner) Scan() (tok Token, lit string, pos int) {
	s.skipWhitespaceAndComments()

	pos = s.pos
	if s.pos >= len(s.src) {
		return EOF, "", pos
	}

	ch := s.src[s.pos]
	switch {
	case ch == '(':
		s.pos++
		return LPAREN, "(", pos
	case ch == ')':
		s.pos++
		return RPAREN, ")", pos
	case ch == '|':
		end := strings.IndexByte(s.src[s.pos+1:], '|')
		if end < 0 {
			s.pos = len(s.src)
			return ILLEGAL, s.src[pos:], pos
		}
		s.pos += end + 2
		return SYMBOL, s.src[pos+1 : s.pos-1], pos
	case ch == '"':
		return s.scanString()
	case ch == '#':
		return s.scanBitVector()
	case ch == ':':
		s.pos++
		s.skipSymbolChars()
		return KEYWORD, s.src[pos:s.pos], pos
	case isDigit(ch):
		for s.pos < len(s.src) && (isDigit(s.src[s.pos]) || s.src[s.pos] == '.') {
			s.pos++
		}
		return NUMERAL, s.src[pos:s.pos], pos
	case isSymbolChar(ch):
		s.skipSymbolChars()
		return SYMBOL, s.src[pos:s.pos], pos
	default:
		s.pos++
		return ILLEGAL, string(ch), pos
	}
}

func (s *Scanner) scanString() (Token, string, int) {
	pos := s.pos
	for s.pos++; s.pos < len(s.src); s.pos++ {
		if s.src[s.pos] != '"' {
			continue
		}
		// A doubled quote is an escaped quote.
		if s.pos+1 < len(s.src) && s.src[s.pos+1] == '"' {
			s.pos++
			continue
		}
		s.pos++
		return STRING, s.src[pos:s.pos], pos
	}
	return ILLEGAL, s.src[pos:], pos
}

func (s *Scanner) scanBitVector() (Token, string, int) {
	pos := s.pos
	if s.pos+1 >= len(s.src) {
		s.pos++
		return ILLEGAL, "#", pos
	}

	var tok Token
	var valid func(byte) bool
	switch s.src[s.pos+1] {
	case 'x':
		tok, valid = HEXADECIMAL, isHexDigit
	case 'b':
		tok, valid = BINARY, isBinaryDigit
	default:
		s.pos++
		return ILLEGAL, "#", pos
	}

	s.pos += 2
	start := s.pos
	for s.pos < len(s.src) && valid(s.src[s.pos]) {
		s.pos++
	}
	if s.pos == start {
		return ILLEGAL, s.src[pos:s.pos], pos
	}
	return tok, s.src[pos:s.pos], pos
}

func (s *Scanner) skipWhitespaceAndComments() {
	for s.pos < len(s.src) {
		switch ch := s.src[s.pos]; {
		case ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r':
			s.pos++
		case ch == ';':
			if i := strings.IndexByte(s.src[s.pos:], '\n'); i >= 0 {
				s.pos += i + 1
			} else {
				s.pos = len(s.src)
			}
		default:
			return
		}
	}
}

func (s *Scanner) skipSymbolChars() {
	for s.pos < len(s.src) && isSymbolChar(s.src[s.pos]) {
		s.pos++
	}
}

func isDigit(ch byte) bool       { return ch >= '0' && ch <= '9' }
func isBinaryDigit(ch byte) bool { return ch == '0' || ch == '1' }

func isHexDigit(ch byte) bool {
	return isDigit(ch) || (ch >= 'a' && ch <= 'f') || (ch >= 'A' && ch <= 'F')
}

func isSymbolChar(ch byte) bool {
	switch {
	case ch >= 'a' && ch <= 'z', ch >= 'A' && ch <= 'Z', isDigit(ch):
		return true
	case strings.IndexByte("~!@$%^&*_-+=<>.?/", ch) >= 0:
		return true
	}
	return false
}

// NameShape classifies variable names generated by the query encoder and
// by the solvers.
type NameShape int

// Name shapes.
const (
	PlainName      NameShape = iota // x
	TempName                        // x<3>
	IndexName                       // __gtINDEX3
	FunctionName                    // k!0
	ConstraintName                  // __gtCONSTRAINT3
	EFCName                         // __gtEFCfoo@3
)

var nameShapes = [...]string{
	PlainName:      "plain",
	TempName:       "temp",
	IndexName:      "index",
	FunctionName:   "function",
	ConstraintName: "constraint",
	EFCName:        "efc",
}

// String returns the string representation of the shape.
func (shape NameShape) String() string {
	if shape >= 0 && shape < NameShape(len(nameShapes)) {
		return nameShapes[shape]
	}
	return fmt.Sprintf("NameShape<%d>", shape)
}

var (
	tempNameRegex     = regexp.MustCompile(`^.+<[0-9]+>$`)
	functionNameRegex = regexp.MustCompile(`^.+![0-9]+$`)
)

// nameClassifier assigns a NameShape to symbols using the configured prefixes.
type nameClassifier struct {
	constraint *regexp.Regexp
	index      *regexp.Regexp
	efc        *regexp.Regexp
}

func newNameClassifier(config Config) *nameClassifier {
	return &nameClassifier{
		constraint: regexp.MustCompile(`^` + regexp.QuoteMeta(config.ConstraintPrefix) + `[0-9]+$`),
		index:      regexp.MustCompile(`^` + regexp.QuoteMeta(config.IndexPrefix) + `[0-9]+$`),
		efc:        regexp.MustCompile(`^` + regexp.QuoteMeta(config.EFCPrefix) + `.+@[0-9]+$`),
	}
}

// classify returns the shape of name.
func (c *nameClassifier) classify(name string) NameShape {
	switch {
	case c.constraint.MatchString(name):
		return ConstraintName
	case c.index.MatchString(name):
		return IndexName
	case c.efc.MatchString(name):
		return EFCName
	case functionNameRegex.MatchString(name):
		return FunctionName
	case tempNameRegex.MatchString(name):
		return TempName
	default:
		return PlainName
	}
}

// ConstraintID decodes the integer id from a constraint indicator name such
// as "__gtCONSTRAINT3". Returns false if name does not have that shape.
func ConstraintID(name, prefix string) (int, bool) {
	if !strings.HasPrefix(name, prefix) {
		return 0, false
	}
	id, err := strconv.Atoi(name[len(prefix):])
	if err != nil || id < 0 || strings.HasPrefix(name[len(prefix):], "+") {
		return 0, false
	}
	return id, true
}
