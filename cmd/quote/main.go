// Command quote prices a single fixture from ratings and optional market odds.
package main

import (
	"encoding/json"
	"flag"
	"log"
	"os"

	"football-odds-engine/internal/analysis"
	"football-odds-engine/internal/config"
	"football-odds-engine/internal/odds"
	"football-odds-engine/internal/pricing"
	"football-odds-engine/internal/prob"
)

type output struct {
	Quote      pricing.Quote                `json:"quote"`
	Market     *odds.Market                 `json:"market,omitempty"`
	Comparison *analysis.Comparison         `json:"comparison,omitempty"`
	ValueBets  []analysis.OutcomeComparison `json:"value_bets,omitempty"`
}

func main() {
	cfg := config.Load()

	home := flag.String("home", "Home", "home team name")
	away := flag.String("away", "Away", "away team name")
	homeRating := flag.Float64("home-rating", 1500, "home Elo rating")
	awayRating := flag.Float64("away-rating", 1500, "away Elo rating")
	totalXG := flag.Float64("xg", 0, "total expected goals; 0 prices with Elo only")
	width := flag.Float64("width", cfg.DrawWidth, "Elo draw width")
	rho := flag.Float64("rho", cfg.Rho, "Dixon-Coles rho")
	marginMode := flag.String("margin", cfg.MarginMode, "margin mode: none, apply_to_fair or strip_from_market")
	marketHome := flag.Float64("odds-home", 0, "market home odds")
	marketDraw := flag.Float64("odds-draw", 0, "market draw odds")
	marketAway := flag.Float64("odds-away", 0, "market away odds")
	flag.Parse()

	cfg.DrawWidth = *width
	cfg.Rho = *rho
	cfg.MarginMode = *marginMode
	if err := config.Validate(cfg); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	fixture := prob.Fixture{
		HomeTeam:   *home,
		AwayTeam:   *away,
		HomeRating: *homeRating,
		AwayRating: *awayRating,
	}
	if *totalXG > 0 {
		fixture.TotalXG = totalXG
	}

	pcfg := cfg.Pricing()
	quote, err := pricing.Price(fixture, nil, pcfg)
	if err != nil {
		log.Fatalf("Pricing failed: %v", err)
	}
	out := output{Quote: quote}

	if *marketHome > 0 || *marketDraw > 0 || *marketAway > 0 {
		market := odds.Market{Home: *marketHome, Draw: *marketDraw, Away: *marketAway}
		cmp, err := analysis.CompareToMarket(quote.Odds, market, analysis.ConfigFromPricing(pcfg))
		if err != nil {
			log.Fatalf("Comparing to market: %v", err)
		}
		out.Market = &market
		out.Comparison = &cmp
		out.ValueBets = cmp.ValueBets()
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		log.Fatal(err)
	}
}
