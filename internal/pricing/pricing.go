package pricing

import (
	"errors"
	"fmt"
	"strings"

	"football-odds-engine/internal/elo"
	"football-odds-engine/internal/league"
	"football-odds-engine/internal/odds"
	"football-odds-engine/internal/poisson"
	"football-odds-engine/internal/prob"
)

// MarginMode controls how bookmaker margin is handled when our fair odds are
// compared with market odds.
type MarginMode string

const (
	// MarginNone compares raw fair odds against raw market odds.
	MarginNone MarginMode = "NONE"
	// MarginApplyToFair loads our fair odds with the market's margin first.
	MarginApplyToFair MarginMode = "APPLY_TO_FAIR"
	// MarginStripFromMarket removes the margin from the market odds first.
	MarginStripFromMarket MarginMode = "STRIP_FROM_MARKET"
)

// ParseMarginMode accepts the mode names case-insensitively; empty is NONE.
func ParseMarginMode(s string) (MarginMode, error) {
	switch MarginMode(strings.ToUpper(strings.TrimSpace(s))) {
	case "", MarginNone:
		return MarginNone, nil
	case MarginApplyToFair:
		return MarginApplyToFair, nil
	case MarginStripFromMarket:
		return MarginStripFromMarket, nil
	}
	return "", fmt.Errorf("margin mode %q: %w", s, prob.ErrInvalidParameter)
}

// Model names reported on a Quote.
const (
	ModelElo     = "elo"
	ModelPoisson = "poisson"
)

// Config carries every tunable used to price a fixture.
type Config struct {
	DrawWidth     float64
	Rho           float64
	MarginMode    MarginMode
	MarginMethod  odds.MarginMethod
	EVThreshold   float64 // percent
	KellyFraction float64
	Solve         poisson.SolveOptions
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		DrawWidth:     elo.DefaultDrawWidth,
		Rho:           poisson.DefaultRho,
		MarginMode:    MarginNone,
		MarginMethod:  odds.Proportional,
		EVThreshold:   5.0,
		KellyFraction: 0.25,
		Solve:         poisson.DefaultSolveOptions(),
	}
}

// FairOdds are margin-free decimal odds with the probabilities behind them.
type FairOdds struct {
	Home             float64     `json:"home"`
	Draw             float64     `json:"draw"`
	Away             float64     `json:"away"`
	DNBHome          float64     `json:"dnb_home"`
	DNBAway          float64     `json:"dnb_away"`
	Probabilities    prob.Triple `json:"probabilities"`
	DNBProbabilities prob.DNB    `json:"dnb_probabilities"`
}

// Market returns the 1X2 part as odds.Market.
func (f FairOdds) Market() odds.Market {
	return odds.Market{Home: f.Home, Draw: f.Draw, Away: f.Away}
}

// DNB returns the draw-no-bet part as odds.DNBOdds.
func (f FairOdds) DNB() odds.DNBOdds {
	return odds.DNBOdds{Home: f.DNBHome, Away: f.DNBAway}
}

// PoissonResult is the outcome of the Poisson + Dixon-Coles path.
type PoissonResult struct {
	Probabilities  prob.Triple   `json:"probabilities"`
	HomeXG         float64       `json:"home_xg"`
	AwayXG         float64       `json:"away_xg"`
	EloDNBTarget   float64       `json:"elo_dnb_target"`
	Split          poisson.Split `json:"split"`
	Over15         float64       `json:"over_1_5"`
	Over25         float64       `json:"over_2_5"`
	MostLikelyHome int           `json:"most_likely_home"`
	MostLikelyAway int           `json:"most_likely_away"`
}

// ComputeEloProbabilities is the draw-width Elo model.
func ComputeEloProbabilities(homeRating, awayRating, drawWidth float64) (prob.Triple, error) {
	return elo.Probabilities(homeRating, awayRating, drawWidth)
}

// ComputePoissonDixonColes splits totalXG so the plain Poisson DNB matches the
// Elo binary-contest probability, then applies the Dixon-Coles correction to
// the resulting scoreline matrix. A nil totalXG yields (nil, nil): the caller
// should fall back to the Elo model.
func ComputePoissonDixonColes(homeRating, awayRating float64, totalXG *float64, rho float64, opts poisson.SolveOptions) (*PoissonResult, error) {
	if totalXG == nil {
		return nil, nil
	}

	target := elo.DNBTarget(homeRating, awayRating)
	split, err := poisson.SolveSplit(*totalXG, target, opts)
	if err != nil {
		return nil, fmt.Errorf("solving xG split: %w", err)
	}

	m, err := poisson.NewMatrix(split.HomeXG, split.AwayXG)
	if err != nil {
		return nil, fmt.Errorf("building scoreline matrix: %w", err)
	}
	m = m.ApplyDixonColes(split.HomeXG, split.AwayXG, rho)

	res := &PoissonResult{
		Probabilities: prob.Safeguard(m.Outcomes()),
		HomeXG:        split.HomeXG,
		AwayXG:        split.AwayXG,
		EloDNBTarget:  target,
		Split:         split,
		Over15:        m.OverProbability(1.5),
		Over25:        m.OverProbability(2.5),
	}
	res.MostLikelyHome, res.MostLikelyAway = m.MostLikelyScore()
	return res, nil
}

// OddsFromProbabilities converts a triple to fair 1X2 and draw-no-bet odds.
func OddsFromProbabilities(t prob.Triple) (FairOdds, error) {
	dnb, err := t.DNB()
	if err != nil {
		return FairOdds{}, err
	}
	m := odds.FromTriple(t)
	d := odds.FromDNB(dnb)
	return FairOdds{
		Home:             m.Home,
		Draw:             m.Draw,
		Away:             m.Away,
		DNBHome:          d.Home,
		DNBAway:          d.Away,
		Probabilities:    t,
		DNBProbabilities: dnb,
	}, nil
}

// Quote is a priced fixture.
type Quote struct {
	Fixture        prob.Fixture   `json:"fixture"`
	Model          string         `json:"model"`
	Elo            prob.Triple    `json:"elo"`
	Poisson        *PoissonResult `json:"poisson,omitempty"`
	Odds           FairOdds       `json:"odds"`
	DrawWidth      float64        `json:"draw_width"`
	FallbackReason string         `json:"fallback_reason,omitempty"`
}

// Price runs the full model for one fixture. When f.TotalXG is nil and a
// table is given, total xG is taken from the table. An unresolved team or a
// missing table is not an error: the quote falls back to the Elo model and
// records why.
func Price(f prob.Fixture, table *league.Table, cfg Config) (Quote, error) {
	eloTriple, err := ComputeEloProbabilities(f.HomeRating, f.AwayRating, cfg.DrawWidth)
	if err != nil {
		return Quote{}, err
	}

	q := Quote{Fixture: f, Model: ModelElo, Elo: eloTriple, DrawWidth: cfg.DrawWidth}
	final := eloTriple

	totalXG := f.TotalXG
	if totalXG == nil {
		switch {
		case table == nil:
			q.FallbackReason = "no league table"
		default:
			total, err := table.MatchTotalXG(f.HomeTeam, f.AwayTeam)
			switch {
			case errors.Is(err, prob.ErrUnresolvedTeam):
				q.FallbackReason = err.Error()
			case err != nil:
				return Quote{}, err
			case total <= 0:
				q.FallbackReason = "no goals recorded in table"
			default:
				totalXG = &total
			}
		}
	}

	if totalXG != nil {
		res, err := ComputePoissonDixonColes(f.HomeRating, f.AwayRating, totalXG, cfg.Rho, cfg.Solve)
		if err != nil {
			return Quote{}, err
		}
		q.Poisson = res
		q.Model = ModelPoisson
		q.Fixture.TotalXG = totalXG
		final = res.Probabilities
	}

	q.Odds, err = OddsFromProbabilities(final)
	if err != nil {
		return Quote{}, err
	}
	return q, nil
}
