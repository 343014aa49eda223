package elo

import (
	"fmt"

	"football-odds-engine/internal/mathutil"
	"football-odds-engine/internal/prob"
)

// DefaultDrawWidth is the rating-point half-width of the draw band used when
// no calibrated value is available.
const DefaultDrawWidth = 90.0

// Probabilities converts a rating pair into home/draw/away probabilities.
//
// The rating difference d is placed on the Elo logistic curve F twice, shifted
// by the draw width w:
//
//	home = F(d - w)
//	draw = F(d + w) - F(d - w)
//	away = 1 - F(d + w)
//
// The result is passed through prob.Safeguard.
func Probabilities(homeRating, awayRating, drawWidth float64) (prob.Triple, error) {
	if !mathutil.IsFinite(drawWidth) || drawWidth <= 0 {
		return prob.Triple{}, fmt.Errorf("draw width %v: %w", drawWidth, prob.ErrInvalidParameter)
	}
	if !mathutil.IsFinite(homeRating) || !mathutil.IsFinite(awayRating) {
		return prob.Triple{}, fmt.Errorf("ratings %v/%v: %w", homeRating, awayRating, prob.ErrInvalidParameter)
	}

	diff := homeRating - awayRating
	lower := mathutil.EloLogistic(diff - drawWidth)
	upper := mathutil.EloLogistic(diff + drawWidth)

	return prob.Safeguard(prob.Triple{
		Home: lower,
		Draw: upper - lower,
		Away: 1 - upper,
	}), nil
}

// DNBTarget is the binary-contest home probability F(home - away). It is the
// target handed to the xG split solver and is not the same number as the DNB
// obtained by dropping the draw from Probabilities.
func DNBTarget(homeRating, awayRating float64) float64 {
	return mathutil.EloLogistic(homeRating - awayRating)
}
