package prob

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"football-odds-engine/internal/mathutil"
)

// Error taxonomy shared by every model package. Callers match with errors.Is.
var (
	ErrInvalidParameter  = errors.New("invalid parameter")
	ErrInvalidOdds       = errors.New("invalid odds")
	ErrUnresolvedTeam    = errors.New("unresolved team")
	ErrEmptyDataset      = errors.New("empty dataset")
	ErrNumericDegenerate = errors.New("numeric degenerate")
)

// Bounds applied by Safeguard.
const (
	MinSide = 0.01
	MaxSide = 0.98
	MinDraw = 0.01
)

// Result is a full-time match outcome.
type Result string

const (
	Home Result = "H"
	Draw Result = "D"
	Away Result = "A"
)

// ParseResult accepts H, D or A (case-insensitive, surrounding space ignored).
func ParseResult(s string) (Result, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "H":
		return Home, nil
	case "D":
		return Draw, nil
	case "A":
		return Away, nil
	}
	return "", fmt.Errorf("result %q: %w", s, ErrInvalidParameter)
}

// Triple is a home/draw/away probability distribution.
type Triple struct {
	Home float64 `json:"home" yaml:"home"`
	Draw float64 `json:"draw" yaml:"draw"`
	Away float64 `json:"away" yaml:"away"`
}

// DNB is the draw-no-bet pair obtained by removing the draw outcome.
type DNB struct {
	Home float64 `json:"home" yaml:"home"`
	Away float64 `json:"away" yaml:"away"`
}

// Fixture is a single match to be priced.
type Fixture struct {
	League     string   `json:"league"`
	HomeTeam   string   `json:"home_team"`
	AwayTeam   string   `json:"away_team"`
	HomeRating float64  `json:"home_rating"`
	AwayRating float64  `json:"away_rating"`
	TotalXG    *float64 `json:"total_xg,omitempty"`
}

// Sum returns home + draw + away.
func (t Triple) Sum() float64 {
	return t.Home + t.Draw + t.Away
}

// Prob returns the probability assigned to r.
func (t Triple) Prob(r Result) float64 {
	switch r {
	case Home:
		return t.Home
	case Draw:
		return t.Draw
	default:
		return t.Away
	}
}

// Argmax picks the predicted outcome. Home needs to beat both others strictly,
// draw needs to beat away strictly, anything else is away.
func (t Triple) Argmax() Result {
	if t.Home > t.Draw && t.Home > t.Away {
		return Home
	}
	if t.Draw > t.Away {
		return Draw
	}
	return Away
}

// DNB redistributes the draw mass proportionally between home and away.
func (t Triple) DNB() (DNB, error) {
	denom := t.Home + t.Away
	if denom <= 0 || math.IsNaN(denom) {
		return DNB{}, fmt.Errorf("draw-no-bet of %+v: %w", t, ErrNumericDegenerate)
	}
	return DNB{Home: t.Home / denom, Away: t.Away / denom}, nil
}

// Safeguard normalizes raw, clamps home and away to [MinSide, MaxSide] and
// derives draw as the remainder with a MinDraw floor. When the floor kicks in
// the shortfall comes out of the larger side so the result still sums to 1.
func Safeguard(raw Triple) Triple {
	sum := raw.Sum()
	if sum > 0 && !math.IsInf(sum, 0) {
		raw = Triple{Home: raw.Home / sum, Draw: raw.Draw / sum, Away: raw.Away / sum}
	}

	t := Triple{
		Home: mathutil.Clamp(raw.Home, MinSide, MaxSide),
		Away: mathutil.Clamp(raw.Away, MinSide, MaxSide),
	}
	t.Draw = 1 - t.Home - t.Away
	if t.Draw < MinDraw {
		deficit := MinDraw - t.Draw
		t.Draw = MinDraw
		if t.Home >= t.Away {
			t.Home -= deficit
		} else {
			t.Away -= deficit
		}
	}
	return t
}
