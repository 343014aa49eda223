package poisson

import (
	"fmt"
	"math"

	"football-odds-engine/internal/mathutil"
	"football-odds-engine/internal/prob"
)

// MaxGoals caps the goal count per side in a scoreline matrix.
const MaxGoals = 10

// PMF calculates P(X = k) for a Poisson distribution with mean lambda.
// A zero mean puts all mass on k = 0.
func PMF(k int, lambda float64) float64 {
	if k < 0 || lambda < 0 {
		return 0
	}
	if lambda == 0 {
		if k == 0 {
			return 1
		}
		return 0
	}
	// Computed in log space to avoid overflow of lambda^k and k!.
	logProb := -lambda + float64(k)*math.Log(lambda) - mathutil.LogFactorial(k)
	return math.Exp(logProb)
}

// Matrix holds joint scoreline probabilities: Matrix[i][j] is
// P(home scores i, away scores j).
type Matrix [][]float64

// NewMatrix builds the independent-Poisson scoreline matrix for the given
// expected goals, truncated at MaxGoals per side and renormalized so the
// cells sum to 1.
func NewMatrix(homeXG, awayXG float64) (Matrix, error) {
	if !mathutil.IsFinite(homeXG) || !mathutil.IsFinite(awayXG) || homeXG < 0 || awayXG < 0 {
		return nil, fmt.Errorf("xG %v/%v: %w", homeXG, awayXG, prob.ErrInvalidParameter)
	}

	home := make([]float64, MaxGoals+1)
	away := make([]float64, MaxGoals+1)
	for k := 0; k <= MaxGoals; k++ {
		home[k] = PMF(k, homeXG)
		away[k] = PMF(k, awayXG)
	}

	m := make(Matrix, MaxGoals+1)
	total := 0.0
	for i := range m {
		m[i] = make([]float64, MaxGoals+1)
		for j := range m[i] {
			m[i][j] = home[i] * away[j]
			total += m[i][j]
		}
	}
	if total <= 0 {
		return nil, fmt.Errorf("empty scoreline matrix for xG %v/%v: %w", homeXG, awayXG, prob.ErrNumericDegenerate)
	}
	m.scale(1 / total)
	return m, nil
}

// Sum returns the total probability mass.
func (m Matrix) Sum() float64 {
	total := 0.0
	for i := range m {
		for j := range m[i] {
			total += m[i][j]
		}
	}
	return total
}

// Outcomes aggregates the matrix into home win (i > j), draw (i == j) and
// away win (i < j).
func (m Matrix) Outcomes() prob.Triple {
	var t prob.Triple
	for i := range m {
		for j := range m[i] {
			switch {
			case i > j:
				t.Home += m[i][j]
			case i == j:
				t.Draw += m[i][j]
			default:
				t.Away += m[i][j]
			}
		}
	}
	return t
}

// DNBHome is home / (home + away), ignoring draws.
func (m Matrix) DNBHome() float64 {
	t := m.Outcomes()
	if t.Home+t.Away == 0 {
		return 0.5
	}
	return t.Home / (t.Home + t.Away)
}

// MostLikelyScore returns the single most probable scoreline.
func (m Matrix) MostLikelyScore() (home, away int) {
	best := -1.0
	for i := range m {
		for j := range m[i] {
			if m[i][j] > best {
				best = m[i][j]
				home, away = i, j
			}
		}
	}
	return home, away
}

// OverProbability returns P(home + away > line), e.g. line 2.5 for "over 2.5 goals".
func (m Matrix) OverProbability(line float64) float64 {
	over := 0.0
	for i := range m {
		for j := range m[i] {
			if float64(i+j) > line {
				over += m[i][j]
			}
		}
	}
	return over
}

func (m Matrix) clone() Matrix {
	out := make(Matrix, len(m))
	for i := range m {
		out[i] = append([]float64(nil), m[i]...)
	}
	return out
}

func (m Matrix) scale(f float64) {
	for i := range m {
		for j := range m[i] {
			m[i][j] *= f
		}
	}
}
