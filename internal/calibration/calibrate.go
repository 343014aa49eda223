package calibration

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"football-odds-engine/internal/elo"
	"football-odds-engine/internal/mathutil"
	"football-odds-engine/internal/prob"
)

// GlobalKey names the pooled all-league result in a width table.
const GlobalKey = "global"

// Probability bounds used by the log-loss.
const (
	minLogLossProb = 0.0001
	maxLogLossProb = 0.9999
)

// WidthRange is the inclusive grid of candidate draw widths.
type WidthRange struct {
	Min  float64 `json:"min" yaml:"min"`
	Max  float64 `json:"max" yaml:"max"`
	Step float64 `json:"step" yaml:"step"`
}

// DefaultWidthRange is 50..150 in steps of 5.
func DefaultWidthRange() WidthRange {
	return WidthRange{Min: 50, Max: 150, Step: 5}
}

// Validate rejects empty or non-positive ranges.
func (r WidthRange) Validate() error {
	if !mathutil.IsFinite(r.Min) || !mathutil.IsFinite(r.Max) || !mathutil.IsFinite(r.Step) {
		return fmt.Errorf("width range %+v: %w", r, prob.ErrInvalidParameter)
	}
	if r.Min <= 0 || r.Step <= 0 || r.Max < r.Min {
		return fmt.Errorf("width range %+v: %w", r, prob.ErrInvalidParameter)
	}
	return nil
}

// Candidates lists every width in the range. Widths are computed as
// Min + i*Step from an integer count so accumulated rounding cannot drop the
// upper bound.
func (r WidthRange) Candidates() []float64 {
	n := int(math.Floor((r.Max-r.Min)/r.Step+1e-9)) + 1
	out := make([]float64, n)
	for i := range out {
		out[i] = r.Min + float64(i)*r.Step
	}
	return out
}

// WidthScore holds the metrics for one candidate width.
type WidthScore struct {
	Width      float64 `json:"width" yaml:"width"`
	LogLoss    float64 `json:"log_loss" yaml:"log_loss"`
	BrierScore float64 `json:"brier_score" yaml:"brier_score"`
	Accuracy   float64 `json:"accuracy" yaml:"accuracy"`
}

// Score evaluates one draw width over samples.
func Score(samples []Sample, width float64) (WidthScore, error) {
	if len(samples) == 0 {
		return WidthScore{}, prob.ErrEmptyDataset
	}

	var logLoss, brier float64
	var correct int
	for _, s := range samples {
		t, err := elo.Probabilities(s.HomeRating, s.AwayRating, width)
		if err != nil {
			return WidthScore{}, err
		}

		p := mathutil.Clamp(t.Prob(s.Result), minLogLossProb, maxLogLossProb)
		logLoss -= math.Log(p)

		var oh, od, oa float64
		switch s.Result {
		case prob.Home:
			oh = 1
		case prob.Draw:
			od = 1
		default:
			oa = 1
		}
		brier += (t.Home-oh)*(t.Home-oh) + (t.Draw-od)*(t.Draw-od) + (t.Away-oa)*(t.Away-oa)

		if t.Argmax() == s.Result {
			correct++
		}
	}

	n := float64(len(samples))
	return WidthScore{
		Width:      width,
		LogLoss:    logLoss / n,
		BrierScore: brier / n,
		Accuracy:   float64(correct) / n,
	}, nil
}

// Result is the outcome of a grid search over one sample set.
type Result struct {
	OptimalWidth float64            `json:"optimal_width" yaml:"optimal_width"`
	LogLoss      float64            `json:"log_loss" yaml:"log_loss"`
	BrierScore   float64            `json:"brier_score" yaml:"brier_score"`
	Accuracy     float64            `json:"accuracy" yaml:"accuracy"`
	Samples      int                `json:"samples" yaml:"samples"`
	Outcomes     OutcomeShare       `json:"outcomes" yaml:"outcomes"`
	EloStats     elo.TrackerStats   `json:"elo_stats" yaml:"-"`
	Ratings      map[string]float64 `json:"ratings,omitempty" yaml:"-"` // end-of-replay Elo, per-league runs only
	Dropped      int                `json:"dropped" yaml:"dropped"`
	Table        []WidthScore       `json:"table" yaml:"table"`
}

// Calibrate scores every candidate in rng and picks the lowest log-loss.
// Ties go to the smaller width. Candidates are scored concurrently.
func Calibrate(samples []Sample, rng WidthRange) (Result, error) {
	if err := rng.Validate(); err != nil {
		return Result{}, err
	}
	if len(samples) == 0 {
		return Result{}, fmt.Errorf("calibrating draw width: %w", prob.ErrEmptyDataset)
	}

	candidates := rng.Candidates()
	table := make([]WidthScore, len(candidates))

	var g errgroup.Group
	for i, w := range candidates {
		i, w := i, w
		g.Go(func() error {
			score, err := Score(samples, w)
			if err != nil {
				return fmt.Errorf("width %v: %w", w, err)
			}
			table[i] = score
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	best := 0
	for i := 1; i < len(table); i++ {
		if table[i].LogLoss < table[best].LogLoss {
			best = i
		}
	}

	return Result{
		OptimalWidth: table[best].Width,
		LogLoss:      table[best].LogLoss,
		BrierScore:   table[best].BrierScore,
		Accuracy:     table[best].Accuracy,
		Samples:      len(samples),
		Outcomes:     AnalyzeOutcomes(samples),
		Table:        table,
	}, nil
}

// Report collects per-league and pooled calibration results.
type Report struct {
	RunID     string            `json:"run_id"`
	CreatedAt time.Time         `json:"created_at"`
	Range     WidthRange        `json:"range"`
	Leagues   map[string]Result `json:"leagues"`
	Global    *Result           `json:"global,omitempty"`
	Skipped   map[string]string `json:"skipped,omitempty"`
}

// Widths returns the per-league optimal widths plus the pooled value under
// GlobalKey.
func (r Report) Widths() map[string]float64 {
	out := make(map[string]float64, len(r.Leagues)+1)
	for league, res := range r.Leagues {
		out[league] = res.OptimalWidth
	}
	if r.Global != nil {
		out[GlobalKey] = r.Global.OptimalWidth
	}
	return out
}

// LeagueNames returns calibrated leagues in sorted order.
func (r Report) LeagueNames() []string {
	names := make([]string, 0, len(r.Leagues))
	for name := range r.Leagues {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RunAll calibrates each league independently (each with its own Elo replay)
// and then once more over the pooled samples of every league. A league that
// fails or has no usable samples is skipped with a warning; the pooled run
// still goes ahead. Only an empty pool or a cancelled context is an error.
func RunAll(ctx context.Context, leagues map[string][]Match, params TrackerParams, rng WidthRange) (Report, error) {
	if err := rng.Validate(); err != nil {
		return Report{}, err
	}

	type leagueOutcome struct {
		name    string
		samples []Sample
		result  Result
		err     error
	}

	names := make([]string, 0, len(leagues))
	for name := range leagues {
		names = append(names, name)
	}
	sort.Strings(names)

	outcomes := make([]leagueOutcome, len(names))
	g, gctx := errgroup.WithContext(ctx)
	for i, name := range names {
		i, name := i, name
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			samples, tracker, dropped := BuildSamples(leagues[name], params)
			res, err := Calibrate(samples, rng)
			res.EloStats = tracker.Stats()
			res.Ratings = tracker.Snapshot()
			res.Dropped = dropped
			outcomes[i] = leagueOutcome{name: name, samples: samples, result: res, err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Report{}, err
	}

	report := Report{
		RunID:     uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		Range:     rng,
		Leagues:   make(map[string]Result),
		Skipped:   make(map[string]string),
	}

	var pooled []Sample
	for _, o := range outcomes {
		if o.err != nil {
			slog.Warn("Skipping league calibration", "league", o.name, "err", o.err)
			report.Skipped[o.name] = o.err.Error()
			continue
		}
		slog.Info("League calibrated",
			"league", o.name,
			"samples", o.result.Samples,
			"dropped", o.result.Dropped,
			"width", o.result.OptimalWidth,
			"logLoss", o.result.LogLoss,
		)
		report.Leagues[o.name] = o.result
		pooled = append(pooled, o.samples...)
	}

	global, err := Calibrate(pooled, rng)
	if err != nil {
		return report, fmt.Errorf("global calibration: %w", err)
	}
	report.Global = &global
	return report, nil
}
