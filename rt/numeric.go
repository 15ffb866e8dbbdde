package rt

import (
	"math"
)

// ---------------------------------------------------------------------------
// Shifts: counts are masked to the operand width
// ---------------------------------------------------------------------------

// Ushr32 shifts the bit pattern of v right as unsigned, by s masked to its
// low 5 bits.
func Ushr32(v int32, s int32) int32 {
	return int32(uint32(v) >> (uint32(s) & 31))
}

// Ushr64 shifts the bit pattern of v right as unsigned, by s masked to its
// low 6 bits.
func Ushr64(v int64, s int32) int64 {
	return int64(uint64(v) >> (uint32(s) & 63))
}

// Ushr dispatches to Ushr32 or Ushr64 by operand width.
func Ushr[T int32 | int64](v T, s int32) T {
	switch x := any(v).(type) {
	case int32:
		return T(Ushr32(x, s))
	case int64:
		return T(Ushr64(x, s))
	}
	panic("unreachable")
}

// Shl32 shifts left by s masked to 5 bits.
func Shl32(v int32, s int32) int32 { return v << (uint32(s) & 31) }

// Shl64 shifts left by s masked to 6 bits.
func Shl64(v int64, s int32) int64 { return v << (uint32(s) & 63) }

// Shr32 shifts right arithmetically by s masked to 5 bits.
func Shr32(v int32, s int32) int32 { return v >> (uint32(s) & 31) }

// Shr64 shifts right arithmetically by s masked to 6 bits.
func Shr64(v int64, s int32) int64 { return v >> (uint32(s) & 63) }

// ---------------------------------------------------------------------------
// Three-way comparisons
// ---------------------------------------------------------------------------

// Cmp compares two integers: -1 if a < b, 0 if equal, 1 if a > b.
func Cmp(a, b int64) int {
	if a == b {
		return 0
	}
	if a > b {
		return 1
	}
	return -1
}

// Cmpl compares two floats, treating an unordered pair (NaN involved) as
// less: it returns -1.
func Cmpl(a, b float64) int {
	switch {
	case a > b:
		return 1
	case a < b:
		return -1
	case a == b:
		return 0
	}
	return -1
}

// Cmpg compares two floats, treating an unordered pair (NaN involved) as
// greater: it returns 1.
func Cmpg(a, b float64) int {
	switch {
	case a > b:
		return 1
	case a < b:
		return -1
	case a == b:
		return 0
	}
	return 1
}

// ---------------------------------------------------------------------------
// Checked division
// ---------------------------------------------------------------------------

// Div32 divides, raising ArithmeticFailure on a zero divisor.
// MinInt32 / -1 wraps to MinInt32.
func Div32(f *Frame, a, b int32) int32 {
	if b == 0 {
		Raise(ArithmeticFailure, f, "/ by zero")
	}
	if b == -1 {
		return -a
	}
	return a / b
}

// Div64 divides, raising ArithmeticFailure on a zero divisor.
// MinInt64 / -1 wraps to MinInt64.
func Div64(f *Frame, a, b int64) int64 {
	if b == 0 {
		Raise(ArithmeticFailure, f, "/ by zero")
	}
	if b == -1 {
		return -a
	}
	return a / b
}

// Rem32 is the remainder matching Div32; its sign follows the dividend.
func Rem32(f *Frame, a, b int32) int32 {
	if b == 0 {
		Raise(ArithmeticFailure, f, "%% by zero")
	}
	if b == -1 {
		return 0
	}
	return a % b
}

// Rem64 is the remainder matching Div64; its sign follows the dividend.
func Rem64(f *Frame, a, b int64) int64 {
	if b == 0 {
		Raise(ArithmeticFailure, f, "%% by zero")
	}
	if b == -1 {
		return 0
	}
	return a % b
}

// ---------------------------------------------------------------------------
// Float to integer conversions: saturating, NaN converts to 0
// ---------------------------------------------------------------------------

// D2I converts a float64 to int32.
func D2I(v float64) int32 {
	switch {
	case math.IsNaN(v):
		return 0
	case v >= math.MaxInt32:
		return math.MaxInt32
	case v <= math.MinInt32:
		return math.MinInt32
	}
	return int32(v)
}

// D2L converts a float64 to int64.
func D2L(v float64) int64 {
	switch {
	case math.IsNaN(v):
		return 0
	case v >= math.MaxInt64:
		return math.MaxInt64
	case v <= math.MinInt64:
		return math.MinInt64
	}
	return int64(v)
}

// F2I converts a float32 to int32.
func F2I(v float32) int32 { return D2I(float64(v)) }

// F2L converts a float32 to int64.
func F2L(v float32) int64 { return D2L(float64(v)) }
