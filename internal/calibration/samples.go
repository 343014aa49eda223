package calibration

import (
	"regexp"
	"sort"
	"strings"
	"time"

	"football-odds-engine/internal/elo"
	"football-odds-engine/internal/prob"
)

// Match is one historical result as loaded from a data source.
type Match struct {
	Date     time.Time
	League   string
	HomeTeam string
	AwayTeam string
	Result   string // H, D or A
}

// Sample is a match paired with both teams' ratings before kick-off.
type Sample struct {
	Date       time.Time
	League     string
	HomeTeam   string
	AwayTeam   string
	HomeRating float64
	AwayRating float64
	Result     prob.Result
}

// TrackerParams configures the Elo replay.
type TrackerParams struct {
	InitialRating float64
	KFactor       float64
}

// DefaultTrackerParams returns 1500 / 32.
func DefaultTrackerParams() TrackerParams {
	return TrackerParams{InitialRating: elo.DefaultInitialRating, KFactor: elo.DefaultKFactor}
}

var nonSlug = regexp.MustCompile(`[^a-z0-9-]`)

// TeamKey folds a team name to a lowercase hyphenated key so spelling
// variants across seasons map to the same rating.
func TeamKey(name string) string {
	key := strings.Join(strings.Fields(strings.ToLower(name)), "-")
	key = nonSlug.ReplaceAllString(key, "")
	return strings.Trim(key, "-")
}

// BuildSamples replays matches in date order through a fresh Elo tracker,
// recording pre-match ratings for each. The returned tracker holds the
// ratings after the last match. Records with a missing team or an
// unparsable result are dropped and counted. Matches sharing a date keep
// their input order.
func BuildSamples(matches []Match, params TrackerParams) (samples []Sample, tracker *elo.Tracker, dropped int) {
	type valid struct {
		m      Match
		home   string
		away   string
		result prob.Result
	}

	usable := make([]valid, 0, len(matches))
	for _, m := range matches {
		home, away := TeamKey(m.HomeTeam), TeamKey(m.AwayTeam)
		result, err := prob.ParseResult(m.Result)
		if home == "" || away == "" || err != nil {
			dropped++
			continue
		}
		usable = append(usable, valid{m: m, home: home, away: away, result: result})
	}

	sort.SliceStable(usable, func(i, j int) bool {
		return usable[i].m.Date.Before(usable[j].m.Date)
	})

	tracker = elo.NewTracker(params.InitialRating, params.KFactor)
	samples = make([]Sample, 0, len(usable))
	for _, u := range usable {
		samples = append(samples, Sample{
			Date:       u.m.Date,
			League:     u.m.League,
			HomeTeam:   u.home,
			AwayTeam:   u.away,
			HomeRating: tracker.Rating(u.home),
			AwayRating: tracker.Rating(u.away),
			Result:     u.result,
		})
		tracker.Update(u.home, u.away, u.result)
	}

	return samples, tracker, dropped
}

// OutcomeShare is the observed H/D/A frequency of a sample set.
type OutcomeShare struct {
	Home  float64 `json:"home" yaml:"home"`
	Draw  float64 `json:"draw" yaml:"draw"`
	Away  float64 `json:"away" yaml:"away"`
	Total int     `json:"total" yaml:"total"`
}

// AnalyzeOutcomes counts result frequencies.
func AnalyzeOutcomes(samples []Sample) OutcomeShare {
	var h, d, a int
	for _, s := range samples {
		switch s.Result {
		case prob.Home:
			h++
		case prob.Draw:
			d++
		case prob.Away:
			a++
		}
	}
	total := len(samples)
	if total == 0 {
		return OutcomeShare{}
	}
	n := float64(total)
	return OutcomeShare{Home: float64(h) / n, Draw: float64(d) / n, Away: float64(a) / n, Total: total}
}
