package value

import "fmt"

// Compare imposes the total order embeddb's B-tree keys rely on. It panics
// if a and b are not the same Kind or are a Kind with no defined order
// (sequences, maps, products, sums, and option are not valid key types);
// callers that accept arbitrary values must check Kind first via
// Orderable.
func Compare(a, b Value) int {
	if a.kind != b.kind {
		panic(fmt.Sprintf("value: cannot compare %s with %s", a.kind, b.kind))
	}
	switch a.kind {
	case KindBool:
		if a.b == b.b {
			return 0
		}
		if !a.b {
			return -1
		}
		return 1
	case KindI8, KindI16, KindI32, KindI64:
		return cmpInt64(a.i, b.i)
	case KindU8, KindU16, KindU32, KindU64:
		return cmpUint64(a.u, b.u)
	case KindF32:
		return cmpFloat64(float64(a.f32), float64(b.f32))
	case KindF64:
		return cmpFloat64(a.f64, b.f64)
	case KindChar:
		return cmpInt64(int64(a.r), int64(b.r))
	case KindString:
		if a.str < b.str {
			return -1
		}
		if a.str > b.str {
			return 1
		}
		return 0
	case KindBytes:
		return compareBytes(a.bytes, b.bytes)
	default:
		panic(fmt.Sprintf("value: kind %s has no defined total order", a.kind))
	}
}

// Orderable reports whether values of this Kind may serve as B-tree/table
// keys under Compare's total order.
func (k Kind) Orderable() bool {
	switch k {
	case KindBool, KindI8, KindI16, KindI32, KindI64, KindU8, KindU16, KindU32,
		KindU64, KindF32, KindF64, KindChar, KindString, KindBytes:
		return true
	default:
		return false
	}
}

func cmpInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func cmpUint64(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func cmpFloat64(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareBytes(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	return cmpInt64(int64(len(a)), int64(len(b)))
}
