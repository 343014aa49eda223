package poisson

import "math"

// DefaultRho is the low-score dependence parameter. Negative values move mass
// onto 0-0 and 1-1.
const DefaultRho = -0.04

// ApplyDixonColes returns a copy of m with the Dixon-Coles low-score
// adjustment applied to the 0-0, 1-0, 0-1 and 1-1 cells, negative cells
// floored at zero and the whole matrix renormalized.
func (m Matrix) ApplyDixonColes(homeXG, awayXG, rho float64) Matrix {
	out := m.clone()
	if len(out) < 2 || len(out[0]) < 2 {
		return out
	}

	out[0][0] *= 1 - homeXG*awayXG*rho
	out[1][0] *= 1 + awayXG*rho
	out[0][1] *= 1 + homeXG*rho
	out[1][1] *= 1 - rho

	total := 0.0
	for i := range out {
		for j := range out[i] {
			if out[i][j] < 0 {
				out[i][j] = 0
			}
			total += out[i][j]
		}
	}
	if total > 0 && math.Abs(total-1) > 1e-12 {
		out.scale(1 / total)
	}
	return out
}
