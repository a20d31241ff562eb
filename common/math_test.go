package common

import "testing"

func TestClampAndSign(t *testing.T) {
	cases := []struct {
		name      string
		v, lo, hi float64
		want      float64
	}{
		{"below", -2, 0, 1, 0},
		{"inside", 0.5, 0, 1, 0.5},
		{"above", 3, 0, 1, 1},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := Clamp(c.v, c.lo, c.hi); got != c.want {
				t.Fatalf("Clamp(%v) = %v, want %v", c.v, got, c.want)
			}
		})
	}

	if Sign(-3) != -1 || Sign(0) != 0 || Sign(2) != 1 {
		t.Fatalf("unexpected Sign results")
	}
}

func TestFloorDiv(t *testing.T) {
	if FloorDiv(-0.5, 16) != -1 {
		t.Fatalf("expected -1 for negative fraction")
	}
	if FloorDiv(31.99, 16) != 1 {
		t.Fatalf("expected 1")
	}
}
