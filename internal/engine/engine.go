package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"football-odds-engine/internal/alerts"
	"football-odds-engine/internal/analysis"
	"football-odds-engine/internal/calibration"
	"football-odds-engine/internal/config"
	"football-odds-engine/internal/league"
	"football-odds-engine/internal/odds"
	"football-odds-engine/internal/pricing"
	"football-odds-engine/internal/prob"
	"football-odds-engine/internal/provider"
	"football-odds-engine/internal/store"
)

// Market sources reported on an Evaluation.
const (
	MarketQuoted    = "quoted"
	MarketBestPrice = "best_price"
)

// Evaluation is the priced result for one market fixture. Err is set when the
// fixture could not be priced; the other fields are then partial.
type Evaluation struct {
	League       string                 `json:"league"`
	Fixture      provider.MarketFixture `json:"fixture"`
	Market       odds.Market            `json:"market"`
	MarketSource string                 `json:"market_source"`
	Consensus    *odds.Consensus        `json:"consensus,omitempty"` // set when book quotes were used
	Quote        pricing.Quote          `json:"quote"`
	Comparison   analysis.Comparison    `json:"comparison"`
	Err          error                  `json:"-"`
	Error        string                 `json:"error,omitempty"`
}

// ValueBets converts the flagged outcomes to store records, best EV first.
func (ev Evaluation) ValueBets() []store.ValueBet {
	if ev.Err != nil {
		return nil
	}
	var bets []store.ValueBet
	for _, o := range ev.Comparison.ValueBets() {
		bets = append(bets, store.ValueBet{
			League:      ev.League,
			HomeTeam:    ev.Fixture.HomeTeam,
			AwayTeam:    ev.Fixture.AwayTeam,
			Outcome:     o.Outcome,
			Model:       ev.Quote.Model,
			FairOdds:    o.Calculated,
			MarketOdds:  o.Market,
			EV:          o.EV,
			Probability: o.Probability,
			KellyStake:  o.KellyStake,
		})
	}
	return bets
}

// ScanResult summarises one pass over every configured league.
type ScanResult struct {
	Leagues   int
	Fixtures  int
	Failed    []string
	ValueBets []store.ValueBet
}

// Engine is the main orchestrator that polls providers, prices fixtures and
// flags value against the market.
type Engine struct {
	provider  provider.Provider
	notifier  *alerts.Notifier
	db        *store.DB
	cfg       config.Config
	pricing   pricing.Config
	overrides map[string]float64
	now       func() time.Time
}

// New creates a new Engine with all dependencies. db may be nil, in which
// case draw widths come from overrides and config only and value bets are
// not recorded.
func New(
	p provider.Provider,
	notifier *alerts.Notifier,
	db *store.DB,
	cfg config.Config,
	overrides map[string]float64,
) *Engine {
	return &Engine{
		provider:  p,
		notifier:  notifier,
		db:        db,
		cfg:       cfg,
		pricing:   cfg.Pricing(),
		overrides: overrides,
		now:       time.Now,
	}
}

// DrawWidth resolves the width for a league: file override, stored
// calibration (league then global), global file override, configured default.
func (e *Engine) DrawWidth(ctx context.Context, leagueName string) float64 {
	if w, ok := e.overrides[leagueName]; ok {
		return w
	}
	if e.db != nil {
		w, ok, err := e.db.DrawWidth(ctx, leagueName)
		if err != nil {
			slog.Warn("Draw width lookup failed", "league", leagueName, "err", err)
		} else if ok {
			return w
		}
	}
	if w, ok := e.overrides[calibration.GlobalKey]; ok {
		return w
	}
	return e.pricing.DrawWidth
}

// EvaluateLeague prices every market fixture in a league. Provider failures
// for ratings or odds fail the league; a table failure degrades to Elo-only
// pricing. Per-fixture failures are recorded on the Evaluation.
func (e *Engine) EvaluateLeague(ctx context.Context, leagueName string) ([]Evaluation, error) {
	ratings, err := e.provider.TeamRatings(ctx, leagueName)
	if err != nil {
		return nil, fmt.Errorf("fetching ratings for %s: %w", leagueName, err)
	}

	table, err := e.provider.LeagueTable(ctx, leagueName)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		slog.Warn("League table unavailable, pricing on Elo only", "league", leagueName, "err", err)
		table = nil
	}

	fixtures, err := e.provider.MarketOdds(ctx, leagueName)
	if err != nil {
		return nil, fmt.Errorf("fetching odds for %s: %w", leagueName, err)
	}

	cfg := e.pricing
	cfg.DrawWidth = e.DrawWidth(ctx, leagueName)
	now := e.now()

	evals := make([]Evaluation, 0, len(fixtures))
	for _, f := range fixtures {
		ev := e.evaluateFixture(leagueName, f, ratings, table, cfg, now)
		if ev.Err != nil {
			ev.Error = ev.Err.Error()
			slog.Warn("Skipping fixture",
				"league", leagueName,
				"home", f.HomeTeam,
				"away", f.AwayTeam,
				"err", ev.Err,
			)
		}
		evals = append(evals, ev)
	}
	return evals, nil
}

func (e *Engine) evaluateFixture(
	leagueName string,
	f provider.MarketFixture,
	ratings map[string]float64,
	table *league.Table,
	cfg pricing.Config,
	now time.Time,
) Evaluation {
	ev := Evaluation{League: leagueName, Fixture: f, Market: f.Odds, MarketSource: MarketQuoted}

	homeRating, _, ok := league.Lookup(f.HomeTeam, ratings)
	if !ok {
		ev.Err = fmt.Errorf("rating for %q: %w", f.HomeTeam, prob.ErrUnresolvedTeam)
		return ev
	}
	awayRating, _, ok := league.Lookup(f.AwayTeam, ratings)
	if !ok {
		ev.Err = fmt.Errorf("rating for %q: %w", f.AwayTeam, prob.ErrUnresolvedTeam)
		return ev
	}

	if len(f.Books) > 0 {
		cons, err := odds.CalculateConsensus(f.Books, cfg.MarginMethod, e.cfg.OddsMaxAge, now)
		switch {
		case err == nil:
			ev.Market = cons.Best
			ev.MarketSource = MarketBestPrice
			ev.Consensus = &cons
		case errors.Is(err, prob.ErrEmptyDataset):
			slog.Debug("No fresh book quotes, using quoted odds", "home", f.HomeTeam, "away", f.AwayTeam)
		default:
			ev.Err = err
			return ev
		}
	}

	fixture := prob.Fixture{
		League:     leagueName,
		HomeTeam:   f.HomeTeam,
		AwayTeam:   f.AwayTeam,
		HomeRating: homeRating,
		AwayRating: awayRating,
		TotalXG:    f.TotalXG,
	}

	q, err := pricing.Price(fixture, table, cfg)
	if err != nil {
		ev.Err = fmt.Errorf("pricing: %w", err)
		return ev
	}
	ev.Quote = q

	cmp, err := analysis.CompareToMarket(q.Odds, ev.Market, analysis.ConfigFromPricing(cfg))
	if err != nil {
		ev.Err = fmt.Errorf("comparing to market: %w", err)
		return ev
	}
	ev.Comparison = cmp
	return ev
}

// Scan evaluates every configured league concurrently, alerts on value bets
// in descending EV order and records the ones alerted. A failed league is
// logged and skipped; only cancellation is returned as an error.
func (e *Engine) Scan(ctx context.Context) (ScanResult, error) {
	leagues := e.cfg.Leagues
	results := make([][]Evaluation, len(leagues))
	errs := make([]error, len(leagues))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(e.cfg.MaxConcurrent, 1))
	for i, name := range leagues {
		i, name := i, name
		g.Go(func() error {
			results[i], errs[i] = e.EvaluateLeague(gctx, name)
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return ScanResult{}, err
	}

	res := ScanResult{Leagues: len(leagues)}
	for i, name := range leagues {
		if errs[i] != nil {
			e.notifier.LogError(ctx, name, errs[i])
			res.Failed = append(res.Failed, name)
			continue
		}
		for _, ev := range results[i] {
			res.Fixtures++
			res.ValueBets = append(res.ValueBets, ev.ValueBets()...)
		}
	}

	sort.SliceStable(res.ValueBets, func(i, j int) bool {
		return res.ValueBets[i].EV > res.ValueBets[j].EV
	})

	for _, bet := range res.ValueBets {
		if !e.notifier.AlertValueBet(bet) || e.db == nil {
			continue
		}
		if _, err := e.db.RecordValueBet(ctx, bet); err != nil {
			e.notifier.LogError(ctx, "recording value bet", err)
		}
	}

	e.notifier.LogScan(res.Leagues, res.Fixtures, len(res.ValueBets))
	return res, nil
}

// Run starts the main polling loop. It blocks until ctx is cancelled.
func (e *Engine) Run(ctx context.Context) {
	ticker := time.NewTicker(e.cfg.PollInterval)
	defer ticker.Stop()

	cleanupInterval := e.cfg.CleanupInterval
	if cleanupInterval <= 0 {
		cleanupInterval = config.DefaultCleanupInterval
	}
	cleanupTicker := time.NewTicker(cleanupInterval)
	defer cleanupTicker.Stop()

	slog.Info("Starting polling loop", "leagues", e.cfg.Leagues, "interval", e.cfg.PollInterval)

	scan := func() {
		if _, err := e.Scan(ctx); err != nil && ctx.Err() == nil {
			e.notifier.LogError(ctx, "scan", err)
		}
	}
	scan()

	for {
		select {
		case <-ctx.Done():
			slog.Info("Engine stopped gracefully")
			return

		case <-cleanupTicker.C:
			e.cleanup(ctx)

		case <-ticker.C:
			scan()
		}
	}
}

func (e *Engine) cleanup(ctx context.Context) {
	e.notifier.CleanupOldAlerts()
	if e.db == nil || e.cfg.ValueBetRetention <= 0 {
		return
	}
	n, err := e.db.DeleteValueBetsBefore(ctx, e.now().Add(-e.cfg.ValueBetRetention))
	if err != nil {
		e.notifier.LogError(ctx, "value bet cleanup", err)
		return
	}
	if n > 0 {
		slog.Debug("Pruned value bets", "deleted", n)
	}
}
