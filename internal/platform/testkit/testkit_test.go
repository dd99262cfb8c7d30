package testkit

import (
	"testing"
	"time"
)

func TestPanicHelpers(t *testing.T) {
	t.Parallel()

	MustPanic(t, func() { panic("boom") })
	MustNotPanic(t, func() {})
	MustContain(t, "window 09:00 labeled", "labeled")
}

func TestNear(t *testing.T) {
	t.Parallel()

	Near(t, "mean", 72.0000001, 72, 1e-6)
}

func TestClock(t *testing.T) {
	t.Parallel()

	at := Clock(time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC))
	if got := at(9, 0, 30); !got.Equal(time.Date(2025, 3, 4, 9, 0, 30, 0, time.UTC)) {
		t.Fatalf("Clock = %v", got)
	}
}

var dialTimeout = 5 * time.Second

func TestSwapRestores(t *testing.T) {
	t.Run("swapped", func(t *testing.T) {
		Serial(t)
		Swap(t, &dialTimeout, time.Millisecond)
		if dialTimeout != time.Millisecond {
			t.Fatalf("dialTimeout = %v", dialTimeout)
		}
	})
	if dialTimeout != 5*time.Second {
		t.Fatalf("not restored: %v", dialTimeout)
	}
}
