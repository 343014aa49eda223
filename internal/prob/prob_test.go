package prob

import (
	"errors"
	"math"
	"testing"
)

func TestSafeguard(t *testing.T) {
	tests := []struct {
		name string
		raw  Triple
		want Triple
	}{
		{
			name: "already valid",
			raw:  Triple{Home: 0.5, Draw: 0.3, Away: 0.2},
			want: Triple{Home: 0.5, Draw: 0.3, Away: 0.2},
		},
		{
			name: "unnormalized input",
			raw:  Triple{Home: 1, Draw: 1, Away: 2},
			want: Triple{Home: 0.25, Draw: 0.25, Away: 0.5},
		},
		{
			name: "home clamped to max, draw floored",
			raw:  Triple{Home: 0.999, Draw: 0.0005, Away: 0.0005},
			want: Triple{Home: 0.98, Draw: 0.01, Away: 0.01},
		},
		{
			name: "away clamped to min",
			raw:  Triple{Home: 0.7, Draw: 0.299, Away: 0.001},
			want: Triple{Home: 0.7, Draw: 0.29, Away: 0.01},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Safeguard(tt.raw)
			if math.Abs(got.Home-tt.want.Home) > 1e-9 ||
				math.Abs(got.Draw-tt.want.Draw) > 1e-9 ||
				math.Abs(got.Away-tt.want.Away) > 1e-9 {
				t.Errorf("Safeguard(%+v) = %+v, want %+v", tt.raw, got, tt.want)
			}
			if math.Abs(got.Sum()-1) > 1e-9 {
				t.Errorf("sum = %v, want 1", got.Sum())
			}
		})
	}
}

func TestSafeguardDrawFloorKeepsSum(t *testing.T) {
	// No draw mass at all: the floor has to be funded by the larger side.
	got := Safeguard(Triple{Home: 0.5, Draw: 0, Away: 0.5})
	if got.Draw < MinDraw-1e-12 {
		t.Errorf("draw = %v, want >= %v", got.Draw, MinDraw)
	}
	if math.Abs(got.Sum()-1) > 1e-9 {
		t.Errorf("sum = %v, want 1", got.Sum())
	}
}

func TestArgmaxTies(t *testing.T) {
	tests := []struct {
		name string
		t    Triple
		want Result
	}{
		{"home clear", Triple{0.5, 0.3, 0.2}, Home},
		{"draw clear", Triple{0.3, 0.4, 0.3}, Draw},
		{"away clear", Triple{0.2, 0.3, 0.5}, Away},
		{"home ties away", Triple{0.4, 0.2, 0.4}, Away},
		{"home ties draw", Triple{0.4, 0.4, 0.2}, Draw},
		{"draw ties away", Triple{0.2, 0.4, 0.4}, Away},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.t.Argmax(); got != tt.want {
				t.Errorf("Argmax(%+v) = %s, want %s", tt.t, got, tt.want)
			}
		})
	}
}

func TestDNB(t *testing.T) {
	d, err := Triple{Home: 0.45, Draw: 0.25, Away: 0.30}.DNB()
	if err != nil {
		t.Fatalf("DNB: %v", err)
	}
	if math.Abs(d.Home-0.6) > 1e-9 || math.Abs(d.Away-0.4) > 1e-9 {
		t.Errorf("DNB = %+v, want {0.6 0.4}", d)
	}

	_, err = Triple{Draw: 1}.DNB()
	if !errors.Is(err, ErrNumericDegenerate) {
		t.Errorf("DNB of pure draw: err = %v, want ErrNumericDegenerate", err)
	}
}

func TestParseResult(t *testing.T) {
	for in, want := range map[string]Result{"H": Home, "d": Draw, " A ": Away} {
		got, err := ParseResult(in)
		if err != nil || got != want {
			t.Errorf("ParseResult(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParseResult("X"); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("ParseResult(X) err = %v, want ErrInvalidParameter", err)
	}
}
