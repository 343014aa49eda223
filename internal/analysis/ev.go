package analysis

import (
	"fmt"
	"sort"

	"football-odds-engine/internal/odds"
	"football-odds-engine/internal/pricing"
)

// ValueThreshold is the default EV (percent) above which an outcome is
// flagged as a value bet.
const ValueThreshold = 5.0

// Outcome labels.
const (
	OutcomeHome    = "Home Win"
	OutcomeDraw    = "Draw"
	OutcomeAway    = "Away Win"
	OutcomeDNBHome = "Home DNB"
	OutcomeDNBAway = "Away DNB"
)

// Config holds analysis configuration
type Config struct {
	Mode          pricing.MarginMode
	Method        odds.MarginMethod
	EVThreshold   float64 // Minimum EV in percent to flag an outcome (e.g. 5 = 5%)
	KellyFraction float64 // Fraction of Kelly to use (e.g., 0.25 = quarter Kelly)
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Mode:          pricing.MarginNone,
		Method:        odds.Proportional,
		EVThreshold:   ValueThreshold,
		KellyFraction: 0.25,
	}
}

// ConfigFromPricing copies the comparison settings out of a pricing config.
func ConfigFromPricing(cfg pricing.Config) Config {
	return Config{
		Mode:          cfg.MarginMode,
		Method:        cfg.MarginMethod,
		EVThreshold:   cfg.EVThreshold,
		KellyFraction: cfg.KellyFraction,
	}
}

// OutcomeComparison compares our price for one outcome with the market's.
type OutcomeComparison struct {
	Outcome     string  `json:"outcome"`
	Calculated  float64 `json:"calculated"`
	Market      float64 `json:"market"`
	Compared    float64 `json:"compared"` // market price EV was measured against
	EV          float64 `json:"ev"`
	HasValue    bool    `json:"has_value"`
	Probability float64 `json:"probability"`
	KellyStake  float64 `json:"kelly_stake"`
}

// Comparison covers all five outcomes of a fixture.
type Comparison struct {
	Home      OutcomeComparison  `json:"home"`
	Draw      OutcomeComparison  `json:"draw"`
	Away      OutcomeComparison  `json:"away"`
	DNBHome   OutcomeComparison  `json:"dnb_home"`
	DNBAway   OutcomeComparison  `json:"dnb_away"`
	Margin    float64            `json:"margin"`
	DNBMargin float64            `json:"dnb_margin"`
	Mode      pricing.MarginMode `json:"mode"`
}

// ExpectedValue returns the value of market odds against fair odds in
// percent: (market / fair − 1) · 100.
func ExpectedValue(marketOdds, fairOdds float64) (float64, error) {
	if _, err := odds.ImpliedProbability(marketOdds); err != nil {
		return 0, err
	}
	if _, err := odds.ImpliedProbability(fairOdds); err != nil {
		return 0, err
	}
	return (marketOdds/fairOdds - 1) * 100, nil
}

// CompareToMarket evaluates every outcome of calc against the market 1X2 odds
// and the DNB odds derived from them, after applying cfg.Mode.
func CompareToMarket(calc pricing.FairOdds, market odds.Market, cfg Config) (Comparison, error) {
	margin, err := odds.BookmakerMargin(market)
	if err != nil {
		return Comparison{}, err
	}
	marketDNB, err := odds.DNBFromMarket(market)
	if err != nil {
		return Comparison{}, err
	}
	dnbMargin, err := odds.DNBMargin(marketDNB)
	if err != nil {
		return Comparison{}, err
	}

	ours := calc.Market()
	oursDNB := calc.DNB()
	// EV is measured against priced; stakes and reports use the offered odds.
	priced, pricedDNB := market, marketDNB

	switch cfg.Mode {
	case pricing.MarginApplyToFair:
		if ours, err = odds.ApplyMargin(ours, margin); err != nil {
			return Comparison{}, fmt.Errorf("applying margin to fair odds: %w", err)
		}
		if oursDNB, err = odds.ApplyMarginDNB(oursDNB, margin); err != nil {
			return Comparison{}, fmt.Errorf("applying margin to fair DNB odds: %w", err)
		}
	case pricing.MarginStripFromMarket:
		strip := odds.RemoveMargin
		if cfg.Method == odds.Power {
			strip = odds.RemoveMarginPower
		}
		if priced, err = strip(market); err != nil {
			return Comparison{}, fmt.Errorf("stripping market margin: %w", err)
		}
		if pricedDNB, err = odds.RemoveMarginDNB(marketDNB); err != nil {
			return Comparison{}, fmt.Errorf("stripping market DNB margin: %w", err)
		}
	}

	threshold := cfg.EVThreshold
	if threshold == 0 {
		threshold = ValueThreshold
	}

	c := Comparison{Margin: margin, DNBMargin: dnbMargin, Mode: cfg.Mode}
	entries := []struct {
		dst        *OutcomeComparison
		label      string
		calculated float64
		market     float64
		priced     float64
		p          float64
	}{
		{&c.Home, OutcomeHome, ours.Home, market.Home, priced.Home, calc.Probabilities.Home},
		{&c.Draw, OutcomeDraw, ours.Draw, market.Draw, priced.Draw, calc.Probabilities.Draw},
		{&c.Away, OutcomeAway, ours.Away, market.Away, priced.Away, calc.Probabilities.Away},
		{&c.DNBHome, OutcomeDNBHome, oursDNB.Home, marketDNB.Home, pricedDNB.Home, calc.DNBProbabilities.Home},
		{&c.DNBAway, OutcomeDNBAway, oursDNB.Away, marketDNB.Away, pricedDNB.Away, calc.DNBProbabilities.Away},
	}
	for _, e := range entries {
		ev, err := ExpectedValue(e.priced, e.calculated)
		if err != nil {
			return Comparison{}, fmt.Errorf("%s: %w", e.label, err)
		}
		*e.dst = OutcomeComparison{
			Outcome:     e.label,
			Calculated:  e.calculated,
			Market:      e.market,
			Compared:    e.priced,
			EV:          ev,
			HasValue:    ev > threshold,
			Probability: e.p,
		}
		if e.dst.HasValue {
			e.dst.KellyStake = KellyStake(e.p, e.market, cfg.KellyFraction)
		}
	}
	return c, nil
}

// All returns the five outcome comparisons in fixed order.
func (c Comparison) All() []OutcomeComparison {
	return []OutcomeComparison{c.Home, c.Draw, c.Away, c.DNBHome, c.DNBAway}
}

// ValueBets returns outcomes flagged as value, best EV first.
func (c Comparison) ValueBets() []OutcomeComparison {
	var bets []OutcomeComparison
	for _, o := range c.All() {
		if o.HasValue {
			bets = append(bets, o)
		}
	}
	sort.SliceStable(bets, func(i, j int) bool {
		return bets[i].EV > bets[j].EV
	})
	return bets
}
