package basic

import (
	"math"
	"strconv"
	"strings"
)

// Value is the result of evaluating a node. A nil Value means no operation was
// performed, e.g. an if without a matching branch.
type Value interface {
	String() string
	isValue()
}

// Number is the single numeric kind. It holds either an integer or a float and
// optionally the position of the literal it came from. Booleans are 0 and 1.
type Number struct {
	float bool
	i     int64
	f     float64
	Pos   Position
}

func Int(v int64) Number     { return Number{i: v} }
func Float(v float64) Number { return Number{float: true, f: v} }

func Bool(b bool) Number {
	if b {
		return Int(1)
	}
	return Int(0)
}

func (Number) isValue() {}

func (n Number) WithPos(pos Position) Number {
	n.Pos = pos
	return n
}

func (n Number) IsFloat() bool { return n.float }

func (n Number) Float64() float64 {
	if n.float {
		return n.f
	}
	return float64(n.i)
}

// Int64 truncates floats toward zero.
func (n Number) Int64() int64 {
	if n.float {
		return int64(n.f)
	}
	return n.i
}

func (n Number) IsTrue() bool {
	if n.float {
		return n.f != 0
	}
	return n.i != 0
}

func (n Number) IsZero() bool { return !n.IsTrue() }

// Equal compares numerically, so 1 == 1.0.
func (n Number) Equal(other Number) bool {
	return n.Compare(other) == 0
}

// Compare returns -1, 0 or 1, or 2 when either side is NaN.
func (n Number) Compare(other Number) int {
	if !n.float && !other.float {
		switch {
		case n.i < other.i:
			return -1
		case n.i > other.i:
			return 1
		}
		return 0
	}
	a, b := n.Float64(), other.Float64()
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	case a == b:
		return 0
	}
	return 2
}

func (n Number) Add(other Number) Number {
	if !n.float && !other.float {
		sum := n.i + other.i
		if (sum > n.i) == (other.i > 0) {
			return Int(sum)
		}
	}
	return Float(n.Float64() + other.Float64())
}

func (n Number) Sub(other Number) Number {
	if !n.float && !other.float {
		diff := n.i - other.i
		if (diff < n.i) == (other.i > 0) {
			return Int(diff)
		}
	}
	return Float(n.Float64() - other.Float64())
}

func (n Number) Mul(other Number) Number {
	if !n.float && !other.float {
		if p, ok := mulInt(n.i, other.i); ok {
			return Int(p)
		}
	}
	return Float(n.Float64() * other.Float64())
}

// Div is true division and always yields a float. The caller rejects zero
// divisors.
func (n Number) Div(other Number) Number {
	return Float(n.Float64() / other.Float64())
}

// Mod takes the sign of the divisor. The caller rejects zero divisors.
func (n Number) Mod(other Number) Number {
	if !n.float && !other.float {
		r := n.i % other.i
		if r != 0 && (r < 0) != (other.i < 0) {
			r += other.i
		}
		return Int(r)
	}
	a, b := n.Float64(), other.Float64()
	r := math.Mod(a, b)
	if r != 0 && (r < 0) != (b < 0) {
		r += b
	}
	return Float(r)
}

// Pow stays integral for integer operands with a non-negative exponent and
// otherwise follows math.Pow.
func (n Number) Pow(other Number) Number {
	if !n.float && !other.float && other.i >= 0 {
		if p, ok := powInt(n.i, other.i); ok {
			return Int(p)
		}
	}
	return Float(math.Pow(n.Float64(), other.Float64()))
}

func (n Number) Neg() Number {
	return n.Mul(Int(-1))
}

func (n Number) String() string {
	if !n.float {
		return strconv.FormatInt(n.i, 10)
	}
	switch {
	case math.IsInf(n.f, 1):
		return "inf"
	case math.IsInf(n.f, -1):
		return "-inf"
	case math.IsNaN(n.f):
		return "nan"
	}
	abs := math.Abs(n.f)
	if abs != 0 && (abs >= 1e16 || abs < 1e-4) {
		return strconv.FormatFloat(n.f, 'g', -1, 64)
	}
	s := strconv.FormatFloat(n.f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

func mulInt(a, b int64) (int64, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	p := a * b
	if p/b != a || (a == -1 && b == math.MinInt64) || (b == -1 && a == math.MinInt64) {
		return 0, false
	}
	return p, true
}

func powInt(base, exp int64) (int64, bool) {
	result := int64(1)
	for exp > 0 {
		if exp&1 == 1 {
			var ok bool
			if result, ok = mulInt(result, base); !ok {
				return 0, false
			}
		}
		exp >>= 1
		if exp > 0 {
			var ok bool
			if base, ok = mulInt(base, base); !ok {
				return 0, false
			}
		}
	}
	return result, true
}

// List is the result of a statement list, in evaluation order. Elements may
// be nil.
type List []Value

func (List) isValue() {}

func (l List) String() string {
	parts := make([]string, len(l))
	for i, v := range l {
		parts[i] = FormatValue(v)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// FormatValue renders v, printing "null" for no value.
func FormatValue(v Value) string {
	if v == nil {
		return "null"
	}
	return v.String()
}
