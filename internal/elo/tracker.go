package elo

import (
	"math"

	"football-odds-engine/internal/mathutil"
	"football-odds-engine/internal/prob"
)

// Tracker defaults.
const (
	DefaultInitialRating = 1500.0
	DefaultKFactor       = 32.0
)

// Tracker maintains running Elo ratings, updated one match at a time.
// It is not safe for concurrent use.
type Tracker struct {
	initial float64
	k       float64
	ratings map[string]float64
}

// TrackerStats summarises the current rating pool.
type TrackerStats struct {
	Teams int
	Avg   float64
	Min   float64
	Max   float64
}

// NewTracker returns an empty tracker. Non-positive arguments fall back to
// the defaults.
func NewTracker(initialRating, kFactor float64) *Tracker {
	if initialRating <= 0 {
		initialRating = DefaultInitialRating
	}
	if kFactor <= 0 {
		kFactor = DefaultKFactor
	}
	return &Tracker{
		initial: initialRating,
		k:       kFactor,
		ratings: make(map[string]float64),
	}
}

// Rating returns the team's current rating, registering it at the initial
// rating if it has not been seen yet.
func (t *Tracker) Rating(team string) float64 {
	r, ok := t.ratings[team]
	if !ok {
		r = t.initial
		t.ratings[team] = r
	}
	return r
}

// Update applies one result to both teams.
func (t *Tracker) Update(home, away string, result prob.Result) {
	rh := t.Rating(home)
	ra := t.Rating(away)

	expectedHome := mathutil.EloLogistic(rh - ra)
	expectedAway := mathutil.EloLogistic(ra - rh)

	var actualHome float64
	switch result {
	case prob.Home:
		actualHome = 1
	case prob.Draw:
		actualHome = 0.5
	}

	t.ratings[home] = rh + t.k*(actualHome-expectedHome)
	t.ratings[away] = ra + t.k*((1-actualHome)-expectedAway)
}

// Snapshot returns a copy of all ratings.
func (t *Tracker) Snapshot() map[string]float64 {
	out := make(map[string]float64, len(t.ratings))
	for team, r := range t.ratings {
		out[team] = r
	}
	return out
}

// Stats reports count, mean and range of the current ratings.
func (t *Tracker) Stats() TrackerStats {
	if len(t.ratings) == 0 {
		return TrackerStats{}
	}
	stats := TrackerStats{Min: math.Inf(1), Max: math.Inf(-1)}
	var sum float64
	for _, r := range t.ratings {
		sum += r
		stats.Min = math.Min(stats.Min, r)
		stats.Max = math.Max(stats.Max, r)
	}
	stats.Teams = len(t.ratings)
	stats.Avg = sum / float64(stats.Teams)
	return stats
}
