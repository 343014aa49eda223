package odds

import (
	"fmt"
	"math"
	"strings"

	"football-odds-engine/internal/prob"
)

// MarginMethod selects how a bookmaker margin is stripped from a 1X2 market.
type MarginMethod string

const (
	// Proportional divides each implied probability by the overround.
	Proportional MarginMethod = "proportional"
	// Power finds k with Σ p_i^k = 1, deflating longshots more than favourites.
	Power MarginMethod = "power"
)

// ParseMarginMethod accepts "proportional" or "power"; empty means proportional.
func ParseMarginMethod(s string) (MarginMethod, error) {
	switch MarginMethod(strings.ToLower(strings.TrimSpace(s))) {
	case "", Proportional:
		return Proportional, nil
	case Power:
		return Power, nil
	}
	return "", fmt.Errorf("margin method %q: %w", s, prob.ErrInvalidParameter)
}

// BookmakerMargin returns Σ 1/odds − 1 for a 1X2 market.
func BookmakerMargin(m Market) (float64, error) {
	implied, err := m.Implied()
	if err != nil {
		return 0, err
	}
	return implied.Sum() - 1, nil
}

// DNBMargin returns 1/home + 1/away − 1.
func DNBMargin(d DNBOdds) (float64, error) {
	if err := d.Validate(); err != nil {
		return 0, err
	}
	return 1/d.Home + 1/d.Away - 1, nil
}

// ApplyMargin loads fair odds with a bookmaker margin: each implied probability
// is normalized and scaled by (1 + margin) before inverting back to odds.
func ApplyMargin(fair Market, margin float64) (Market, error) {
	implied, err := fair.Implied()
	if err != nil {
		return Market{}, err
	}
	if margin <= -1 {
		return Market{}, fmt.Errorf("margin %v: %w", margin, prob.ErrInvalidParameter)
	}
	sum := implied.Sum()
	scale := (1 + margin) / sum
	return Market{
		Home: 1 / (implied.Home * scale),
		Draw: 1 / (implied.Draw * scale),
		Away: 1 / (implied.Away * scale),
	}, nil
}

// ApplyMarginDNB is ApplyMargin for a two-way draw-no-bet market.
func ApplyMarginDNB(fair DNBOdds, margin float64) (DNBOdds, error) {
	if err := fair.Validate(); err != nil {
		return DNBOdds{}, err
	}
	if margin <= -1 {
		return DNBOdds{}, fmt.Errorf("margin %v: %w", margin, prob.ErrInvalidParameter)
	}
	ih, ia := 1/fair.Home, 1/fair.Away
	scale := (1 + margin) / (ih + ia)
	return DNBOdds{Home: 1 / (ih * scale), Away: 1 / (ia * scale)}, nil
}

// RemoveMargin returns fair odds from a 1X2 market using proportional
// normalization of the implied probabilities.
func RemoveMargin(m Market) (Market, error) {
	fair, err := FairProbabilities(m, Proportional)
	if err != nil {
		return Market{}, err
	}
	return Market{Home: 1 / fair.Home, Draw: 1 / fair.Draw, Away: 1 / fair.Away}, nil
}

// RemoveMarginPower is RemoveMargin using the power method.
func RemoveMarginPower(m Market) (Market, error) {
	fair, err := FairProbabilities(m, Power)
	if err != nil {
		return Market{}, err
	}
	return Market{Home: 1 / fair.Home, Draw: 1 / fair.Draw, Away: 1 / fair.Away}, nil
}

// RemoveMarginDNB returns fair odds from a two-way draw-no-bet market.
func RemoveMarginDNB(d DNBOdds) (DNBOdds, error) {
	if err := d.Validate(); err != nil {
		return DNBOdds{}, err
	}
	ih, ia := 1/d.Home, 1/d.Away
	sum := ih + ia
	return DNBOdds{Home: sum / ih, Away: sum / ia}, nil
}

// FairProbabilities strips the margin from a 1X2 market with the given method
// and returns probabilities summing to 1.
func FairProbabilities(m Market, method MarginMethod) (prob.Triple, error) {
	implied, err := m.Implied()
	if err != nil {
		return prob.Triple{}, err
	}

	if method == Power {
		p := []float64{implied.Home, implied.Draw, implied.Away}
		if math.Abs(implied.Sum()-1) < 1e-9 {
			return implied, nil
		}
		if k, ok := findPowerExponent(p); ok {
			return prob.Triple{
				Home: math.Pow(p[0], k),
				Draw: math.Pow(p[1], k),
				Away: math.Pow(p[2], k),
			}, nil
		}
		// Power method is undefined once any implied probability reaches 1.
	}

	sum := implied.Sum()
	return prob.Triple{Home: implied.Home / sum, Draw: implied.Draw / sum, Away: implied.Away / sum}, nil
}

// DNBFromMarket derives draw-no-bet odds from a 1X2 market: normalize the
// implied probabilities, redistribute the draw between home and away and
// re-apply the original margin to the two-way market.
func DNBFromMarket(m Market) (DNBOdds, error) {
	implied, err := m.Implied()
	if err != nil {
		return DNBOdds{}, err
	}
	margin := implied.Sum() - 1
	sum := implied.Sum()
	fair := prob.Triple{Home: implied.Home / sum, Draw: implied.Draw / sum, Away: implied.Away / sum}

	dnb, err := fair.DNB()
	if err != nil {
		return DNBOdds{}, err
	}
	return DNBOdds{
		Home: 1 / (dnb.Home * (1 + margin)),
		Away: 1 / (dnb.Away * (1 + margin)),
	}, nil
}

// findPowerExponent finds k such that Σ p_i^k = 1 using bisection search.
// For 0 < p < 1, higher k reduces every p^k, so overround markets need k > 1
// and underround markets k < 1.
func findPowerExponent(p []float64) (float64, bool) {
	const (
		tolerance = 1e-9
		maxIters  = 100
	)
	for _, v := range p {
		if v <= 0 || v >= 1 {
			return 0, false
		}
	}

	sumAt := func(k float64) float64 {
		s := 0.0
		for _, v := range p {
			s += math.Pow(v, k)
		}
		return s
	}

	low, high := 0.01, 10.0
	for i := 0; i < maxIters; i++ {
		mid := (low + high) / 2
		currentSum := sumAt(mid)

		if math.Abs(currentSum-1.0) < tolerance {
			return mid, true
		}
		if currentSum > 1 {
			low = mid
		} else {
			high = mid
		}
	}
	return (low + high) / 2, true
}
