package extensions

import (
	"math"
	"testing"
)

// AssertSeriesInDelta compares two float series point by point
func AssertSeriesInDelta(t *testing.T, name string, expected, actual []float64, delta float64) {
	t.Helper()
	if len(expected) != len(actual) {
		t.Fatalf("length mismatch for %s, expected %d, got %d", name, len(expected), len(actual))
	}
	for i := range expected {
		if math.Abs(expected[i]-actual[i]) > delta {
			t.Fatalf("value mismatch for %s at %d, expected %v, got %v", name, i, expected[i], actual[i])
		}
	}
}
