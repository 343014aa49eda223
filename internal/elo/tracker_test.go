package elo

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"football-odds-engine/internal/prob"
)

func TestTrackerDefaults(t *testing.T) {
	tr := NewTracker(0, 0)
	assert.Equal(t, DefaultInitialRating, tr.Rating("arsenal"))
	assert.Equal(t, 1, tr.Stats().Teams)
}

func TestTrackerUpdate(t *testing.T) {
	tests := []struct {
		name     string
		result   prob.Result
		wantHome float64
		wantAway float64
	}{
		{"home win", prob.Home, 1516, 1484},
		{"draw", prob.Draw, 1500, 1500},
		{"away win", prob.Away, 1484, 1516},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := NewTracker(1500, 32)
			tr.Update("home", "away", tt.result)
			assert.InDelta(t, tt.wantHome, tr.Rating("home"), 1e-9)
			assert.InDelta(t, tt.wantAway, tr.Rating("away"), 1e-9)
		})
	}
}

func TestTrackerConservesPoints(t *testing.T) {
	tr := NewTracker(1500, 32)
	tr.Update("a", "b", prob.Home)
	tr.Update("b", "c", prob.Draw)
	tr.Update("c", "a", prob.Away)
	tr.Update("a", "c", prob.Draw)

	stats := tr.Stats()
	assert.Equal(t, 3, stats.Teams)
	assert.InDelta(t, 1500, stats.Avg, 1e-9)
	assert.Less(t, stats.Min, stats.Max)
}

func TestTrackerUpsetMovesMore(t *testing.T) {
	tr := NewTracker(1500, 32)
	for i := 0; i < 5; i++ {
		tr.Update("strong", "weak", prob.Home)
	}
	before := tr.Rating("weak")
	tr.Update("strong", "weak", prob.Away)
	gain := tr.Rating("weak") - before
	assert.Greater(t, gain, 16.0)
}

func TestSnapshotIsCopy(t *testing.T) {
	tr := NewTracker(1500, 32)
	tr.Update("x", "y", prob.Home)
	snap := tr.Snapshot()
	snap["x"] = 0
	assert.InDelta(t, 1516, tr.Rating("x"), 1e-9)
}
