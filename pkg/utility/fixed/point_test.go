package fixed

import (
	"testing"
)

func TestPoint_arithmetic(t *testing.T) {
	tests := []struct {
		name     string
		got      Point
		expected string
	}{
		{"add", FromInt(1, 0).Add(FromInt(25, 1)), "3.5"},
		{"sub", FromInt(1, 0).Sub(FromInt(25, 1)), "-1.5"},
		{"mul", FromInt(15, 1).Mul(FromInt(4, 0)), "6"},
		{"div", FromInt(3, 0).Div(FromInt(2, 0)), "1.5"},
		{"neg", FromInt(7, 0).Neg(), "-7"},
		{"abs", FromInt(-7, 0).Abs(), "7"},
		{"mul int", FromFloat64(0.5).MulInt(10), "5"},
		{"div int64", FromInt(9, 0).DivInt64(3), "3"},
		{"sqrt", FromInt(9, 0).Sqrt(), "3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got.String() != tt.expected {
				t.Errorf("got %s, expected %s", tt.got, tt.expected)
			}
		})
	}
}

func TestPoint_comparison(t *testing.T) {
	a := FromFloat64(1.25)
	b := FromInt(125, 2)
	c := FromInt(2, 0)

	if !a.Eq(b) {
		t.Errorf("expected %s == %s", a, b)
	}
	if !a.Lt(c) || !c.Gt(a) {
		t.Errorf("expected %s < %s", a, c)
	}
	if a.Cmp(b) != 0 || a.Cmp(c) != -1 || c.Cmp(a) != 1 {
		t.Error("cmp mismatch")
	}
	if !Zero.IsZero() || One.IsZero() {
		t.Error("zero detection mismatch")
	}
}

func TestPoint_minMaxClamp(t *testing.T) {
	lo, hi := FromInt(1, 0), FromInt(10, 0)

	if got := Min(lo, hi); !got.Eq(lo) {
		t.Errorf("min: got %s", got)
	}
	if got := Max(lo, hi); !got.Eq(hi) {
		t.Errorf("max: got %s", got)
	}
	if got := Clamp(FromInt(15, 0), lo, hi); !got.Eq(hi) {
		t.Errorf("clamp above: got %s", got)
	}
	if got := Clamp(FromInt(-3, 0), lo, hi); !got.Eq(lo) {
		t.Errorf("clamp below: got %s", got)
	}
	if got := Clamp(FromInt(5, 0), lo, hi); !got.Eq(FromInt(5, 0)) {
		t.Errorf("clamp inside: got %s", got)
	}
}

func TestPoint_textRoundTrip(t *testing.T) {
	orig := FromFloat64(1234.5678)

	text, err := orig.MarshalText()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back Point
	if err := back.UnmarshalText(text); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !back.Eq(orig) {
		t.Errorf("round trip mismatch: %s != %s", back, orig)
	}
}

func TestMath_statistics(t *testing.T) {
	points := []Point{
		FromInt(2, 0), FromInt(4, 0), FromInt(4, 0),
		FromInt(4, 0), FromInt(5, 0), FromInt(5, 0),
		FromInt(7, 0), FromInt(9, 0),
	}

	if got := Mean(points); !got.Eq(FromInt(5, 0)) {
		t.Errorf("mean: got %s", got)
	}
	if got := StdDev(points); !got.Eq(FromInt(2, 0)) {
		t.Errorf("stddev: got %s", got)
	}
	if got := Mean(nil); !got.IsZero() {
		t.Errorf("empty mean: got %s", got)
	}
	if got := SampleStdDev(points[:1]); !got.IsZero() {
		t.Errorf("single sample stddev: got %s", got)
	}
}
