package probability

import (
	"math"
	"testing"
)

func TestGetSaturatesCount(t *testing.T) {
	table, err := New(20)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got, want := table.Get(1, MaxCount+500), table.Get(1, MaxCount); got != want {
		t.Errorf("Get did not saturate: got %v, want %v", got, want)
	}
}

func TestGetIsNonNegative(t *testing.T) {
	table, err := New(20)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for copies := 0; copies <= 2; copies++ {
		for _, n := range []uint16{0, 1, 10, 20, 40, MaxCount} {
			if v := table.Get(copies, n); v < 0 {
				t.Errorf("Get(%d,%d) = %v, want >= 0", copies, n, v)
			}
		}
	}
}

func TestPoissonModeNearExpectedMean(t *testing.T) {
	table, err := New(20)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	// expected_copies==1 models mean==coverage==20; the mode of a Poisson(20)
	// should sit at or adjacent to 20, clearly above tail values.
	if table.Get(1, 20) <= table.Get(1, 60) {
		t.Errorf("Poisson row 1 should peak near coverage, not decay slower than the tail")
	}
	// expected_copies==2 models mean==2*coverage==40.
	if table.Get(2, 40) <= table.Get(2, 100) {
		t.Errorf("Poisson row 2 should peak near 2*coverage")
	}
}

func TestBackgroundRowIsMonotoneDecreasing(t *testing.T) {
	table, err := New(20)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	prev := math.Inf(1)
	for n := 0; n <= 50; n++ {
		v := table.Get(0, uint16(n))
		if v > prev {
			t.Fatalf("background row not monotone decreasing at n=%d: %v > %v", n, v, prev)
		}
		prev = v
	}
}

func TestNewRejectsInvalidInputs(t *testing.T) {
	if _, err := New(-1); err == nil {
		t.Errorf("expected error for negative coverage")
	}
	if _, err := NewWithBackgroundDecay(20, 0); err == nil {
		t.Errorf("expected error for decay=0")
	}
	if _, err := NewWithBackgroundDecay(20, 1); err == nil {
		t.Errorf("expected error for decay=1")
	}
}

func TestGetPanicsOnInvalidCopies(t *testing.T) {
	table, _ := New(20)
	defer func() {
		if recover() == nil {
			t.Errorf("expected panic for copies out of range")
		}
	}()
	table.Get(3, 0)
}
