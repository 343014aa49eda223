package poisson

import (
	"fmt"
	"math"

	"football-odds-engine/internal/mathutil"
	"football-odds-engine/internal/prob"
)

// Search range for the home share of total xG.
const (
	minShare = 0.01
	maxShare = 0.99
)

// SolveOptions controls the bisection.
type SolveOptions struct {
	Tolerance     float64
	MaxIterations int
}

// DefaultSolveOptions returns tolerance 1e-4 and 50 iterations.
func DefaultSolveOptions() SolveOptions {
	return SolveOptions{
		Tolerance:     1e-4,
		MaxIterations: 50,
	}
}

// Split is the home/away division of a match's total expected goals.
type Split struct {
	HomeXG     float64 `json:"home_xg"`
	AwayXG     float64 `json:"away_xg"`
	DNBHome    float64 `json:"dnb_home"`
	Iterations int     `json:"iterations"`
	Converged  bool    `json:"converged"`
}

// SolveSplit finds the home share r of totalXG such that the plain Poisson
// draw-no-bet home probability matches targetDNBHome.
//
// The DNB home probability rises monotonically with r, so the search is a
// bisection over r in [0.01, 0.99]: below target moves the lower bound up,
// otherwise the upper bound comes down. It stops once within Tolerance or
// after MaxIterations, returning the midpoint of the final bounds. AwayXG is
// computed as totalXG - HomeXG, so the two sum to totalXG within one ulp.
func SolveSplit(totalXG, targetDNBHome float64, opts SolveOptions) (Split, error) {
	if !mathutil.IsFinite(totalXG) || totalXG <= 0 {
		return Split{}, fmt.Errorf("total xG %v: %w", totalXG, prob.ErrInvalidParameter)
	}
	if !mathutil.IsFinite(targetDNBHome) || targetDNBHome <= 0 || targetDNBHome >= 1 {
		return Split{}, fmt.Errorf("DNB target %v: %w", targetDNBHome, prob.ErrInvalidParameter)
	}
	if opts.Tolerance <= 0 {
		opts.Tolerance = DefaultSolveOptions().Tolerance
	}
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = DefaultSolveOptions().MaxIterations
	}

	low, high := minShare, maxShare

	for i := 1; i <= opts.MaxIterations; i++ {
		mid := (low + high) / 2
		s := evaluateShare(totalXG, mid)
		s.Iterations = i

		if math.Abs(s.DNBHome-targetDNBHome) < opts.Tolerance {
			s.Converged = true
			return s, nil
		}

		if s.DNBHome < targetDNBHome {
			low = mid
		} else {
			high = mid
		}
	}

	s := evaluateShare(totalXG, (low+high)/2)
	s.Iterations = opts.MaxIterations
	return s, nil
}

func evaluateShare(totalXG, share float64) Split {
	homeXG := totalXG * share
	awayXG := totalXG - homeXG
	s := Split{HomeXG: homeXG, AwayXG: awayXG, DNBHome: 0.5}
	if m, err := NewMatrix(homeXG, awayXG); err == nil {
		s.DNBHome = m.DNBHome()
	}
	return s
}
