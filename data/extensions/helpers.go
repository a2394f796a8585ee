package extensions

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Number covers the numeric types the helpers below are used with
type Number interface {
	~int | ~int32 | ~int64 | ~float32 | ~float64
}

// FilterMultiple return all elements that satisfy the predicate
func FilterMultiple[T any](elements []T, predicate func(T) bool) (results []T) {
	for _, element := range elements {
		if predicate(element) {
			results = append(results, element)
		}
	}
	return
}

// Map applies fn to every element
func Map[T, R any](elements []T, fn func(T) R) []R {
	res := make([]R, len(elements))
	for i, element := range elements {
		res[i] = fn(element)
	}
	return res
}

// AreEqual is a simple case invariant string comparason
func AreEqual(s, c string) bool {
	return strings.EqualFold(s, c)
}

// FmtShort formats a time in a date only string
func FmtShort(t time.Time) string {
	return t.Format(time.DateOnly)
}

// ParseShort parses a date only string in UTC
func ParseShort(s string) (time.Time, error) {
	return time.ParseInLocation(time.DateOnly, strings.TrimSpace(s), time.UTC)
}

func DotProduct[T Number](a, b []T) (res T, err error) {
	if len(a) != len(b) {
		return res, fmt.Errorf("error in dotproduct, lengths of vectors are not equal")
	}

	for i, v := range a {
		res += v * b[i]
	}

	return
}

func Min[T Number](a, b T) T {
	if a < b {
		return a
	}
	return b
}

func Sum[T Number](inp []T) (res T) {
	for _, v := range inp {
		res += v
	}
	return
}

// Bounds returns the smallest and largest value, both zero for an empty slice
func Bounds(values []float64) (lo, hi float64) {
	if len(values) == 0 {
		return 0, 0
	}

	lo, hi = values[0], values[0]
	for _, v := range values[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return
}

// IsFinite reports whether v is neither NaN nor an infinity
func IsFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
