package colindex

import "testing"

func TestIndexRoundTrip(t *testing.T) {
	ix := New(5)
	if ix.NumStates() != 25 {
		t.Fatalf("NumStates() = %d, want 25", ix.NumStates())
	}
	for p1 := 0; p1 < 5; p1++ {
		for p2 := 0; p2 < 5; p2++ {
			idx := ix.IndexOf(p1, p2)
			gotP1, gotP2 := ix.PairOf(idx)
			if gotP1 != p1 || gotP2 != p2 {
				t.Errorf("PairOf(IndexOf(%d,%d)) = (%d,%d)", p1, p2, gotP1, gotP2)
			}
		}
	}
}

func TestRowMajorOrder(t *testing.T) {
	ix := New(3)
	// Row-major by p1 then p2: (0,0),(0,1),(0,2),(1,0),...
	want := [][2]int{{0, 0}, {0, 1}, {0, 2}, {1, 0}, {1, 1}, {1, 2}, {2, 0}, {2, 1}, {2, 2}}
	for idx, w := range want {
		p1, p2 := ix.PairOf(idx)
		if p1 != w[0] || p2 != w[1] {
			t.Errorf("PairOf(%d) = (%d,%d), want (%d,%d)", idx, p1, p2, w[0], w[1])
		}
	}
}
