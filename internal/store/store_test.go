package store

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"football-odds-engine/internal/calibration"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(DriverSQLite, filepath.Join(t.TempDir(), "engine.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func testReport() calibration.Report {
	table := []calibration.WidthScore{
		{Width: 80, LogLoss: 1.01, BrierScore: 0.60, Accuracy: 0.50},
		{Width: 85, LogLoss: 0.99, BrierScore: 0.59, Accuracy: 0.51},
	}
	return calibration.Report{
		RunID:     "run-1",
		CreatedAt: time.Date(2024, 5, 20, 9, 0, 0, 0, time.UTC),
		Leagues: map[string]calibration.Result{
			"E0": {OptimalWidth: 85, LogLoss: 0.99, BrierScore: 0.59, Accuracy: 0.51, Samples: 380, Table: table},
		},
		Global: &calibration.Result{OptimalWidth: 95, LogLoss: 1.0, Samples: 760, Table: table},
	}
}

func TestOpenUnsupportedDriver(t *testing.T) {
	_, err := Open("mysql", "")
	assert.Error(t, err)
}

func TestPureGoDriver(t *testing.T) {
	db, err := Open(DriverSQLitePure, filepath.Join(t.TempDir(), "pure.db"))
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	require.NoError(t, db.SaveReport(ctx, testReport()))
	w, ok, err := db.DrawWidth(ctx, "E0")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 85.0, w)
}

func TestRebind(t *testing.T) {
	pg := &DB{driver: DriverPostgres}
	assert.Equal(t, "SELECT a FROM t WHERE x = $1 AND y = $2", pg.rebind("SELECT a FROM t WHERE x = ? AND y = ?"))

	lite := &DB{driver: DriverSQLite}
	assert.Equal(t, "x = ?", lite.rebind("x = ?"))
}

func TestSaveReportAndDrawWidth(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	_, ok, err := db.DrawWidth(ctx, "E0")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, db.SaveReport(ctx, testReport()))

	w, ok, err := db.DrawWidth(ctx, "E0")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 85.0, w)

	// Uncalibrated league falls back to the pooled width.
	w, ok, err = db.DrawWidth(ctx, "SP1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 95.0, w)

	widths, err := db.DrawWidths(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"E0": 85, calibration.GlobalKey: 95}, widths)

	rows, err := db.DrawWidthRows(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "E0", rows[0].League)
	assert.Equal(t, 380, rows[0].Samples)
	assert.Equal(t, "run-1", rows[0].RunID)
	assert.True(t, rows[0].CalibratedAt.Equal(time.Date(2024, 5, 20, 9, 0, 0, 0, time.UTC)))
}

func TestSaveReportOverwritesWidth(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.SaveReport(ctx, testReport()))

	next := testReport()
	next.RunID = "run-2"
	res := next.Leagues["E0"]
	res.OptimalWidth = 70
	next.Leagues["E0"] = res
	require.NoError(t, db.SaveReport(ctx, next))

	w, _, err := db.DrawWidth(ctx, "E0")
	require.NoError(t, err)
	assert.Equal(t, 70.0, w)
}

func TestValueBets(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	base := time.Date(2024, 3, 2, 12, 0, 0, 0, time.UTC)

	for i, ev := range []float64{6.5, 9.1, 12.0} {
		id, err := db.RecordValueBet(ctx, ValueBet{
			League:     "E0",
			HomeTeam:   "Arsenal",
			AwayTeam:   "Chelsea",
			Outcome:    "Home Win",
			Model:      "poisson",
			FairOdds:   1.9,
			MarketOdds: 2.05,
			EV:         ev,
			CreatedAt:  base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
		assert.NotEmpty(t, id)
	}
	_, err := db.RecordValueBet(ctx, ValueBet{League: "I1", HomeTeam: "Inter", AwayTeam: "Milan", Outcome: "Draw"})
	require.NoError(t, err)

	bets, err := db.ValueBets(ctx, "E0", 2)
	require.NoError(t, err)
	require.Len(t, bets, 2)
	assert.Equal(t, 12.0, bets[0].EV)
	assert.Equal(t, 9.1, bets[1].EV)

	all, err := db.ValueBets(ctx, "E0", 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	n, err := db.DeleteValueBetsBefore(ctx, base.Add(90*time.Second))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestExportWidthsYAML(t *testing.T) {
	var buf bytes.Buffer
	widths := map[string]float64{"E0": 85, "global": 95, "I1": 110}
	require.NoError(t, ExportWidthsYAML(&buf, widths))

	var back map[string]float64
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &back))
	assert.Equal(t, widths, back)
}
