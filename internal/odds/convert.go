package odds

import (
	"fmt"

	"football-odds-engine/internal/mathutil"
	"football-odds-engine/internal/prob"
)

// MinOdds is the floor returned for (near-)certain outcomes.
const MinOdds = 1.01

// maxPriceableProb is the probability above which ProbabilityToOdds returns MinOdds.
const maxPriceableProb = 0.99

// Market holds decimal odds for a 1X2 market.
type Market struct {
	Home float64 `json:"home" yaml:"home"`
	Draw float64 `json:"draw" yaml:"draw"`
	Away float64 `json:"away" yaml:"away"`
}

// DNBOdds holds decimal odds for a draw-no-bet market.
type DNBOdds struct {
	Home float64 `json:"home" yaml:"home"`
	Away float64 `json:"away" yaml:"away"`
}

// Validate rejects non-positive or non-finite prices.
func (m Market) Validate() error {
	for _, o := range []float64{m.Home, m.Draw, m.Away} {
		if err := checkOdds(o); err != nil {
			return err
		}
	}
	return nil
}

// Validate rejects non-positive or non-finite prices.
func (d DNBOdds) Validate() error {
	if err := checkOdds(d.Home); err != nil {
		return err
	}
	return checkOdds(d.Away)
}

func checkOdds(o float64) error {
	if !mathutil.IsFinite(o) || o <= 0 {
		return fmt.Errorf("decimal odds %v: %w", o, prob.ErrInvalidOdds)
	}
	return nil
}

// ImpliedProbability converts decimal odds to 1/odds.
func ImpliedProbability(decimalOdds float64) (float64, error) {
	if err := checkOdds(decimalOdds); err != nil {
		return 0, err
	}
	return 1 / decimalOdds, nil
}

// Implied returns the raw implied probabilities, margin included.
func (m Market) Implied() (prob.Triple, error) {
	if err := m.Validate(); err != nil {
		return prob.Triple{}, err
	}
	return prob.Triple{Home: 1 / m.Home, Draw: 1 / m.Draw, Away: 1 / m.Away}, nil
}

// ProbabilityToOdds converts a probability to fair decimal odds. Probabilities
// outside (0, 0.99) map to MinOdds.
func ProbabilityToOdds(p float64) float64 {
	if !mathutil.IsFinite(p) || p <= 0 || p >= maxPriceableProb {
		return MinOdds
	}
	return 1 / p
}

// FromTriple converts probabilities to fair 1X2 odds.
func FromTriple(t prob.Triple) Market {
	return Market{
		Home: ProbabilityToOdds(t.Home),
		Draw: ProbabilityToOdds(t.Draw),
		Away: ProbabilityToOdds(t.Away),
	}
}

// FromDNB converts a draw-no-bet pair to fair odds.
func FromDNB(d prob.DNB) DNBOdds {
	return DNBOdds{Home: ProbabilityToOdds(d.Home), Away: ProbabilityToOdds(d.Away)}
}
