// Package provider supplies team ratings, league tables and market odds to
// the engine. Implementations deliver structured values only; any scraping or
// markup parsing happens upstream of this interface.
package provider

import (
	"context"
	"errors"
	"time"

	"football-odds-engine/internal/league"
	"football-odds-engine/internal/odds"
)

// ErrUnknownLeague is returned when a provider has no data for a league.
var ErrUnknownLeague = errors.New("unknown league")

// MarketFixture is an upcoming match with its quoted 1X2 odds. When Books is
// non-empty the engine prices against the best available line across books
// rather than Odds.
type MarketFixture struct {
	HomeTeam string           `json:"home_team" yaml:"home_team"`
	AwayTeam string           `json:"away_team" yaml:"away_team"`
	Odds     odds.Market      `json:"odds" yaml:"odds"`
	Books    []odds.BookQuote `json:"books,omitempty" yaml:"books,omitempty"`
	Kickoff  time.Time        `json:"kickoff" yaml:"kickoff"`
	TotalXG  *float64         `json:"total_xg,omitempty" yaml:"total_xg,omitempty"`
}

// Provider is the engine's data source.
type Provider interface {
	// TeamRatings returns Elo ratings keyed by team name.
	TeamRatings(ctx context.Context, leagueName string) (map[string]float64, error)
	// LeagueTable returns home/away goal records. A nil table with a nil
	// error means none is available and fixtures are priced on Elo alone.
	LeagueTable(ctx context.Context, leagueName string) (*league.Table, error)
	// MarketOdds returns the league's upcoming fixtures.
	MarketOdds(ctx context.Context, leagueName string) ([]MarketFixture, error)
}
