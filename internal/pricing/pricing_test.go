package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"football-odds-engine/internal/league"
	"football-odds-engine/internal/odds"
	"football-odds-engine/internal/prob"
)

func ptr(v float64) *float64 { return &v }

func TestParseMarginMode(t *testing.T) {
	tests := []struct {
		in   string
		want MarginMode
	}{
		{"", MarginNone},
		{"none", MarginNone},
		{"apply_to_fair", MarginApplyToFair},
		{" STRIP_FROM_MARKET ", MarginStripFromMarket},
	}
	for _, tt := range tests {
		got, err := ParseMarginMode(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
	_, err := ParseMarginMode("sometimes")
	assert.ErrorIs(t, err, prob.ErrInvalidParameter)
}

func TestComputePoissonDixonColesNilTotal(t *testing.T) {
	res, err := ComputePoissonDixonColes(1600, 1500, nil, -0.04, DefaultConfig().Solve)
	assert.NoError(t, err)
	assert.Nil(t, res)
}

func TestComputePoissonDixonColes(t *testing.T) {
	cfg := DefaultConfig()
	res, err := ComputePoissonDixonColes(1600, 1500, ptr(2.8), cfg.Rho, cfg.Solve)
	require.NoError(t, err)
	require.NotNil(t, res)

	assert.InDelta(t, 0.64006, res.EloDNBTarget, 1e-5)
	assert.InDelta(t, 2.8, res.HomeXG+res.AwayXG, 1e-12)
	assert.InDelta(t, 1.6351, res.HomeXG, 1e-3)
	assert.InDelta(t, 1, res.Probabilities.Sum(), 1e-9)
	assert.InDelta(t, 0.4786, res.Probabilities.Home, 1e-3)
	assert.InDelta(t, 0.2542, res.Probabilities.Draw, 1e-3)
	assert.Greater(t, res.Over15, res.Over25)
	assert.Equal(t, 1, res.MostLikelyHome)
	assert.Equal(t, 1, res.MostLikelyAway)
}

func TestOddsFromProbabilities(t *testing.T) {
	fair, err := OddsFromProbabilities(prob.Triple{Home: 0.5, Draw: 0.25, Away: 0.25})
	require.NoError(t, err)

	assert.InDelta(t, 2.0, fair.Home, 1e-12)
	assert.InDelta(t, 4.0, fair.Draw, 1e-12)
	assert.InDelta(t, 4.0, fair.Away, 1e-12)
	assert.InDelta(t, 1.5, fair.DNBHome, 1e-12)
	assert.InDelta(t, 3.0, fair.DNBAway, 1e-12)
	assert.InDelta(t, 2.0/3.0, fair.DNBProbabilities.Home, 1e-12)
	assert.Equal(t, odds.Market{Home: fair.Home, Draw: fair.Draw, Away: fair.Away}, fair.Market())
}

func table() *league.Table {
	return league.NewTable("E0", []league.Record{
		{Team: "Arsenal", HomePlayed: 10, HomeGoalsFor: 18, AwayPlayed: 10, AwayGoalsFor: 14},
		{Team: "Everton", HomePlayed: 10, HomeGoalsFor: 11, AwayPlayed: 10, AwayGoalsFor: 10},
	})
}

func TestPriceUsesPoissonWhenTeamsResolve(t *testing.T) {
	f := prob.Fixture{League: "E0", HomeTeam: "Arsenal FC", AwayTeam: "Everton", HomeRating: 1600, AwayRating: 1500}
	q, err := Price(f, table(), DefaultConfig())
	require.NoError(t, err)

	assert.Equal(t, ModelPoisson, q.Model)
	require.NotNil(t, q.Poisson)
	require.NotNil(t, q.Fixture.TotalXG)
	assert.InDelta(t, 2.8, *q.Fixture.TotalXG, 1e-12)
	assert.Empty(t, q.FallbackReason)
	assert.Equal(t, q.Poisson.Probabilities, q.Odds.Probabilities)

	// Dixon-Coles moves mass onto draws relative to the plain Poisson split.
	assert.Greater(t, q.Odds.Probabilities.Draw, 0.245)
}

func TestPriceFallsBackToElo(t *testing.T) {
	f := prob.Fixture{League: "E0", HomeTeam: "Arsenal", AwayTeam: "Chelsea", HomeRating: 1600, AwayRating: 1500}

	q, err := Price(f, table(), DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, ModelElo, q.Model)
	assert.Nil(t, q.Poisson)
	assert.Contains(t, q.FallbackReason, "Chelsea")
	assert.Equal(t, q.Elo, q.Odds.Probabilities)

	q, err = Price(f, nil, DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, ModelElo, q.Model)
	assert.Equal(t, "no league table", q.FallbackReason)
}

func TestPriceExplicitTotalXGOverridesTable(t *testing.T) {
	f := prob.Fixture{HomeTeam: "x", AwayTeam: "y", HomeRating: 1500, AwayRating: 1500, TotalXG: ptr(2.2)}
	q, err := Price(f, nil, DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, ModelPoisson, q.Model)
	assert.InDelta(t, q.Odds.Probabilities.Home, q.Odds.Probabilities.Away, 1e-3)
}

func TestPriceInvalidDrawWidth(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DrawWidth = 0
	_, err := Price(prob.Fixture{HomeRating: 1500, AwayRating: 1500}, nil, cfg)
	assert.ErrorIs(t, err, prob.ErrInvalidParameter)
}
