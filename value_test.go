package gametime_test

import (
	"math/big"
	"testing"

	"github.com/jerryduan07/gametime"
)

func TestParseLiteral(t *testing.T) {
	t.Run("Hex", func(t *testing.T) {
		v, err := gametime.ParseLiteral("#x2A")
		if err != nil {
			t.Fatal(err)
		} else if got, want := v.String(), "42"; got != want {
			t.Fatalf("String()=%s, want %s", got, want)
		} else if got, want := v.Width(), uint(8); got != want {
			t.Fatalf("Width()=%d, want %d", got, want)
		}
	})

	t.Run("Binary", func(t *testing.T) {
		v, err := gametime.ParseLiteral("#b00101010")
		if err != nil {
			t.Fatal(err)
		} else if got, want := v.Uint64(), uint64(42); got != want {
			t.Fatalf("Uint64()=%d, want %d", got, want)
		} else if got, want := v.Width(), uint(8); got != want {
			t.Fatalf("Width()=%d, want %d", got, want)
		}
	})

	// The base of a literal is not part of its identity.
	t.Run("BaseIndependent", func(t *testing.T) {
		hex, err := gametime.ParseLiteral("#x2A")
		if err != nil {
			t.Fatal(err)
		}
		bin, err := gametime.ParseLiteral("#b00101010")
		if err != nil {
			t.Fatal(err)
		}
		if !hex.Equal(bin) {
			t.Fatalf("expected %s to equal %s", hex, bin)
		}
	})

	t.Run("Wide", func(t *testing.T) {
		v, err := gametime.ParseLiteral("#xffffffffffffffffff")
		if err != nil {
			t.Fatal(err)
		}
		want, _ := new(big.Int).SetString("ffffffffffffffffff", 16)
		if v.Int().Cmp(want) != 0 {
			t.Fatalf("Int()=%s, want %s", v.Int(), want)
		} else if got, want := v.Width(), uint(72); got != want {
			t.Fatalf("Width()=%d, want %d", got, want)
		}
	})

	t.Run("ErrInvalid", func(t *testing.T) {
		for _, lit := range []string{"", "42", "#x", "#b", "#b102", "#xZZ", "#x-1", "#o17"} {
			if _, err := gametime.ParseLiteral(lit); err == nil {
				t.Errorf("%q: expected error", lit)
			}
		}
	})
}

func TestValue_Literal(t *testing.T) {
	if got, want := gametime.NewUintValue(7, 32).Literal(), "#x00000007"; got != want {
		t.Fatalf("Literal()=%s, want %s", got, want)
	} else if got, want := gametime.NewUintValue(5, 3).Literal(), "#b101"; got != want {
		t.Fatalf("Literal()=%s, want %s", got, want)
	} else if got, want := gametime.NewUintValue(0, 8).Literal(), "#x00"; got != want {
		t.Fatalf("Literal()=%s, want %s", got, want)
	}
}

func TestValue_Int64(t *testing.T) {
	if got, want := gametime.NewUintValue(0xFF, 8).Int64(), int64(-1); got != want {
		t.Fatalf("Int64()=%d, want %d", got, want)
	} else if got, want := gametime.NewUintValue(0x7F, 8).Int64(), int64(127); got != want {
		t.Fatalf("Int64()=%d, want %d", got, want)
	} else if got, want := gametime.NewUintValue(0xFFFFFFFF, 32).Int64(), int64(-1); got != want {
		t.Fatalf("Int64()=%d, want %d", got, want)
	}
}

func TestValue_Zero(t *testing.T) {
	var v gametime.Value
	if !v.IsZero() {
		t.Fatal("expected zero")
	} else if v.String() != "0" {
		t.Fatalf("unexpected string: %s", v.String())
	} else if !v.Equal(gametime.NewUintValue(0, 32)) {
		t.Fatal("expected zero values to be equal")
	}
}

func TestPackIndices(t *testing.T) {
	t.Run("TwoDimensions", func(t *testing.T) {
		v := gametime.PackIndices([]gametime.Value{gametime.NewUintValue(1, 8), gametime.NewUintValue(2, 8)}, 8)
		if got, want := v.Uint64(), uint64(258); got != want {
			t.Fatalf("Uint64()=%d, want %d", got, want)
		} else if got, want := v.Width(), uint(16); got != want {
			t.Fatalf("Width()=%d, want %d", got, want)
		}
	})

	t.Run("Word32", func(t *testing.T) {
		v := gametime.PackIndices([]gametime.Value{gametime.NewUintValue(1, 32), gametime.NewUintValue(0xAB, 32)}, 32)
		if got, want := v.Literal(), "#x00000001000000ab"; got != want {
			t.Fatalf("Literal()=%s, want %s", got, want)
		}
	})

	t.Run("Single", func(t *testing.T) {
		v := gametime.PackIndices([]gametime.Value{gametime.NewUintValue(3, 32)}, 32)
		if got, want := v.Uint64(), uint64(3); got != want {
			t.Fatalf("Uint64()=%d, want %d", got, want)
		}
	})
}
