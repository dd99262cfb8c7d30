// Package testkit holds assertions and seam helpers shared by package tests
package testkit

import (
	"math"
	"strings"
	"sync"
	"testing"
	"time"
)

func recovered(fn func()) (r any, panicked bool) {
	defer func() {
		r = recover()
		if r != nil {
			panicked = true
		}
	}()
	fn()
	return nil, false
}

// MustPanic fails unless fn panics
func MustPanic(t *testing.T, fn func()) {
	t.Helper()
	if _, ok := recovered(fn); !ok {
		t.Fatal("expected a panic")
	}
}

// MustNotPanic fails if fn panics
func MustNotPanic(t *testing.T, fn func()) {
	t.Helper()
	if r, ok := recovered(fn); ok {
		t.Fatalf("unexpected panic: %v", r)
	}
}

// MustContain fails unless s contains sub
func MustContain(t *testing.T, s, sub string) {
	t.Helper()
	if !strings.Contains(s, sub) {
		t.Fatalf("missing %q in:\n%s", sub, s)
	}
}

// Near fails unless got is within eps of want; NaN never is
func Near(t *testing.T, name string, got, want, eps float64) {
	t.Helper()
	if d := math.Abs(got - want); math.IsNaN(d) || d > eps {
		t.Fatalf("%s = %v, want %v ±%v", name, got, want, eps)
	}
}

// Clock pins a day and returns at(h, m, s) for instants on it, in the day's zone
func Clock(day time.Time) func(h, m, s int) time.Time {
	y, mo, d := day.Date()
	loc := day.Location()
	return func(h, m, s int) time.Time { return time.Date(y, mo, d, h, m, s, 0, loc) }
}

// seams serializes tests that Swap package-level vars
var seams sync.Mutex

// Serial keeps other Serial tests out until this one ends
func Serial(t *testing.T) {
	t.Helper()
	seams.Lock()
	t.Cleanup(seams.Unlock)
}

// Swap sets *target for the rest of the test
func Swap[T any](t *testing.T, target *T, v T) {
	t.Helper()
	old := *target
	*target = v
	t.Cleanup(func() { *target = old })
}
