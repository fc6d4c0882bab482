package gametime

import (
	"fmt"
	"math/big"
	"strings"
)

var bigZero = big.NewInt(0)

// Value represents a fixed-width bit-vector value from a solver model.
//
// Values compare by their integer value only. The base of the literal the
// value was decoded from is not retained.
type Value struct {
	x     *big.Int
	width uint
}

// NewValue returns a new Value of the given width. x must be non-negative.
func NewValue(x *big.Int, width uint) Value {
	assert(x == nil || x.Sign() >= 0, "NewValue: negative value: %s", x)
	v := Value{width: width}
	if x != nil && x.Sign() != 0 {
		v.x = new(big.Int).Set(x)
	}
	return v
}

// NewUintValue returns a new Value of the given width from a uint64.
func NewUintValue(x uint64, width uint) Value {
	return NewValue(new(big.Int).SetUint64(x), width)
}

// ParseLiteral decodes an SMT-LIB hexadecimal (#x) or binary (#b) literal.
// The width of the value is the number of bits spelled out by the literal.
func ParseLiteral(lit string) (Value, error) {
	var base int
	var bitsPerDigit uint
	switch {
	case strings.HasPrefix(lit, "#x"):
		base, bitsPerDigit = 16, 4
	case strings.HasPrefix(lit, "#b"):
		base, bitsPerDigit = 2, 1
	default:
		return Value{}, fmt.Errorf("invalid bit-vector literal: %q", lit)
	}

	digits := lit[2:]
	x, ok := new(big.Int).SetString(digits, base)
	if !ok || digits == "" || strings.ContainsAny(digits, "+-_") {
		return Value{}, fmt.Errorf("invalid bit-vector literal: %q", lit)
	}
	return NewValue(x, uint(len(digits))*bitsPerDigit), nil
}

// term marks Value as a possible output of a Mapping.
func (Value) term() {}

// Width returns the width of the value, in bits.
func (v Value) Width() uint { return v.width }

// Int returns a copy of the value as an unsigned big integer.
func (v Value) Int() *big.Int {
	if v.x == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(v.x)
}

// Uint64 returns the low 64 bits of the value.
func (v Value) Uint64() uint64 {
	if v.x == nil {
		return 0
	}
	return v.x.Uint64()
}

// Int64 returns the value interpreted as a two's complement integer of its
// width. Only meaningful for widths up to 64 bits.
func (v Value) Int64() int64 {
	u := v.Uint64()
	if v.width == 0 || v.width >= Width64 {
		return int64(u)
	}
	if u&(1<<(v.width-1)) != 0 {
		u |= ^uint64(0) << v.width
	}
	return int64(u)
}

// IsZero returns true if the integer value is zero.
func (v Value) IsZero() bool { return v.x == nil || v.x.Sign() == 0 }

// Cmp compares the integer values of v and other.
// The result will be 0 if v==other, -1 if v < other, and +1 if v > other.
func (v Value) Cmp(other Value) int {
	return v.int().Cmp(other.int())
}

// Equal returns true if v and other hold the same integer. Widths are ignored.
func (v Value) Equal(other Value) bool { return v.Cmp(other) == 0 }

// String returns the decimal representation of the value.
func (v Value) String() string { return v.int().String() }

// Literal returns the value as an SMT-LIB literal of its width. Widths that
// are a multiple of four are written in hexadecimal, others in binary.
func (v Value) Literal() string {
	if v.width > 0 && v.width%4 == 0 {
		return "#x" + zeroPad(v.int().Text(16), int(v.width/4))
	}
	return "#b" + zeroPad(v.int().Text(2), int(v.width))
}

func (v Value) int() *big.Int {
	if v.x == nil {
		return bigZero
	}
	return v.x
}

// PackIndices packs a tuple of array indices into a single index. Each index
// is written in hexadecimal, zero-padded to wordBitWidth/4 digits, and the
// digits are concatenated with the first index as the most significant.
func PackIndices(indices []Value, wordBitWidth uint) Value {
	digits := int(wordBitWidth / 4)

	var buf strings.Builder
	for _, index := range indices {
		buf.WriteString(zeroPad(index.int().Text(16), digits))
	}
	if buf.Len() == 0 {
		return NewUintValue(0, wordBitWidth)
	}

	x, ok := new(big.Int).SetString(buf.String(), 16)
	assert(ok, "PackIndices: invalid hex: %s", buf.String())
	return NewValue(x, uint(buf.Len())*4)
}

// zeroPad left-pads s with zeros up to n characters.
func zeroPad(s string, n int) string {
	if len(s) >= n {
		return s
	}
	return strings.Repeat("0", n-len(s)) + s
}
