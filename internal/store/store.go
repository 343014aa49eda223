// Package store persists calibrated draw widths and detected value bets.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"gopkg.in/yaml.v3"
	_ "modernc.org/sqlite"

	"football-odds-engine/internal/calibration"
)

// Supported database drivers. DriverSQLitePure is the cgo-free SQLite
// driver for builds without a C toolchain.
const (
	DriverSQLite     = "sqlite3"
	DriverSQLitePure = "sqlite"
	DriverPostgres   = "postgres"
)

// SupportedDriver reports whether Open accepts driver.
func SupportedDriver(driver string) bool {
	switch driver {
	case DriverSQLite, DriverSQLitePure, DriverPostgres:
		return true
	}
	return false
}

// ValueBet is one flagged outcome as recorded by the engine.
type ValueBet struct {
	ID          string    `json:"id"`
	League      string    `json:"league"`
	HomeTeam    string    `json:"home_team"`
	AwayTeam    string    `json:"away_team"`
	Outcome     string    `json:"outcome"`
	Model       string    `json:"model"`
	FairOdds    float64   `json:"fair_odds"`
	MarketOdds  float64   `json:"market_odds"`
	EV          float64   `json:"ev"`
	Probability float64   `json:"probability"`
	KellyStake  float64   `json:"kelly_stake"`
	CreatedAt   time.Time `json:"created_at"`
}

// DrawWidthRow is the stored calibration result for one league.
type DrawWidthRow struct {
	League       string    `json:"league"`
	Width        float64   `json:"width"`
	LogLoss      float64   `json:"log_loss"`
	BrierScore   float64   `json:"brier_score"`
	Accuracy     float64   `json:"accuracy"`
	Samples      int       `json:"samples"`
	RunID        string    `json:"run_id"`
	CalibratedAt time.Time `json:"calibrated_at"`
}

// DB handles calibration and value-bet storage.
type DB struct {
	db     *sql.DB
	driver string
}

// Open connects to the database and creates tables if needed.
func Open(driver, dsn string) (*DB, error) {
	if !SupportedDriver(driver) {
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if driver != DriverPostgres {
		// SQLite allows one writer; serialise through a single connection.
		db.SetMaxOpenConns(1)
	}

	if err := createTables(db); err != nil {
		db.Close()
		return nil, err
	}

	return &DB{db: db, driver: driver}, nil
}

func createTables(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS draw_widths (
		league TEXT PRIMARY KEY,
		width DOUBLE PRECISION NOT NULL,
		log_loss DOUBLE PRECISION NOT NULL,
		brier_score DOUBLE PRECISION NOT NULL,
		accuracy DOUBLE PRECISION NOT NULL,
		samples INTEGER NOT NULL,
		run_id TEXT NOT NULL,
		calibrated_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS calibration_scores (
		run_id TEXT NOT NULL,
		league TEXT NOT NULL,
		width DOUBLE PRECISION NOT NULL,
		log_loss DOUBLE PRECISION NOT NULL,
		brier_score DOUBLE PRECISION NOT NULL,
		accuracy DOUBLE PRECISION NOT NULL,
		PRIMARY KEY (run_id, league, width)
	);

	CREATE TABLE IF NOT EXISTS value_bets (
		id TEXT PRIMARY KEY,
		league TEXT NOT NULL,
		home_team TEXT NOT NULL,
		away_team TEXT NOT NULL,
		outcome TEXT NOT NULL,
		model TEXT NOT NULL,
		fair_odds DOUBLE PRECISION NOT NULL,
		market_odds DOUBLE PRECISION NOT NULL,
		ev DOUBLE PRECISION NOT NULL,
		probability DOUBLE PRECISION NOT NULL,
		kelly_stake DOUBLE PRECISION NOT NULL,
		created_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_value_bets_league ON value_bets(league, created_at);
	`

	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("creating tables: %w", err)
	}
	return nil
}

// Close closes the database connection
func (d *DB) Close() error {
	return d.db.Close()
}

// Ping checks the connection.
func (d *DB) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

// rebind rewrites ? placeholders as $1, $2, ... for postgres.
func (d *DB) rebind(query string) string {
	if d.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

const upsertWidth = `
	INSERT INTO draw_widths (league, width, log_loss, brier_score, accuracy, samples, run_id, calibrated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (league) DO UPDATE SET
		width = excluded.width,
		log_loss = excluded.log_loss,
		brier_score = excluded.brier_score,
		accuracy = excluded.accuracy,
		samples = excluded.samples,
		run_id = excluded.run_id,
		calibrated_at = excluded.calibrated_at
`

const insertScore = `
	INSERT INTO calibration_scores (run_id, league, width, log_loss, brier_score, accuracy)
	VALUES (?, ?, ?, ?, ?, ?)
`

// SaveReport stores every league's optimal width (and the pooled width under
// calibration.GlobalKey) together with the full score grid, in one
// transaction.
func (d *DB) SaveReport(ctx context.Context, report calibration.Report) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	results := make(map[string]calibration.Result, len(report.Leagues)+1)
	for name, res := range report.Leagues {
		results[name] = res
	}
	if report.Global != nil {
		results[calibration.GlobalKey] = *report.Global
	}

	calibratedAt := report.CreatedAt
	if calibratedAt.IsZero() {
		calibratedAt = time.Now().UTC()
	}

	for name, res := range results {
		if _, err := tx.ExecContext(ctx, d.rebind(upsertWidth),
			name, res.OptimalWidth, res.LogLoss, res.BrierScore, res.Accuracy, res.Samples,
			report.RunID, calibratedAt); err != nil {
			return fmt.Errorf("saving width for %s: %w", name, err)
		}
		for _, s := range res.Table {
			if _, err := tx.ExecContext(ctx, d.rebind(insertScore),
				report.RunID, name, s.Width, s.LogLoss, s.BrierScore, s.Accuracy); err != nil {
				return fmt.Errorf("saving score for %s at %v: %w", name, s.Width, err)
			}
		}
	}

	return tx.Commit()
}

// DrawWidth returns the stored width for league, falling back to the pooled
// global width. ok is false when neither exists.
func (d *DB) DrawWidth(ctx context.Context, league string) (width float64, ok bool, err error) {
	for _, key := range []string{league, calibration.GlobalKey} {
		err := d.db.QueryRowContext(ctx, d.rebind(`SELECT width FROM draw_widths WHERE league = ?`), key).Scan(&width)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return 0, false, fmt.Errorf("querying draw width for %s: %w", key, err)
		}
		return width, true, nil
	}
	return 0, false, nil
}

// DrawWidthRows returns every stored calibration result ordered by league.
func (d *DB) DrawWidthRows(ctx context.Context) ([]DrawWidthRow, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT league, width, log_loss, brier_score, accuracy, samples, run_id, calibrated_at
		FROM draw_widths
		ORDER BY league
	`)
	if err != nil {
		return nil, fmt.Errorf("querying draw widths: %w", err)
	}
	defer rows.Close()

	var out []DrawWidthRow
	for rows.Next() {
		var r DrawWidthRow
		if err := rows.Scan(&r.League, &r.Width, &r.LogLoss, &r.BrierScore, &r.Accuracy,
			&r.Samples, &r.RunID, &r.CalibratedAt); err != nil {
			return nil, fmt.Errorf("scanning draw width row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// DrawWidths returns the stored league to width mapping.
func (d *DB) DrawWidths(ctx context.Context) (map[string]float64, error) {
	rows, err := d.DrawWidthRows(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]float64, len(rows))
	for _, r := range rows {
		out[r.League] = r.Width
	}
	return out, nil
}

// RecordValueBet inserts bet, assigning an ID and timestamp if unset, and
// returns the stored ID.
func (d *DB) RecordValueBet(ctx context.Context, bet ValueBet) (string, error) {
	if bet.ID == "" {
		bet.ID = uuid.NewString()
	}
	if bet.CreatedAt.IsZero() {
		bet.CreatedAt = time.Now().UTC()
	}

	_, err := d.db.ExecContext(ctx, d.rebind(`
		INSERT INTO value_bets (id, league, home_team, away_team, outcome, model, fair_odds, market_odds,
			ev, probability, kelly_stake, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`), bet.ID, bet.League, bet.HomeTeam, bet.AwayTeam, bet.Outcome, bet.Model, bet.FairOdds,
		bet.MarketOdds, bet.EV, bet.Probability, bet.KellyStake, bet.CreatedAt)
	if err != nil {
		return "", fmt.Errorf("inserting value bet: %w", err)
	}
	return bet.ID, nil
}

// ValueBets returns the most recent bets for league, newest first. A
// non-positive limit returns all of them.
func (d *DB) ValueBets(ctx context.Context, league string, limit int) ([]ValueBet, error) {
	query := `
		SELECT id, league, home_team, away_team, outcome, model, fair_odds, market_odds,
			ev, probability, kelly_stake, created_at
		FROM value_bets
		WHERE league = ?
		ORDER BY created_at DESC, ev DESC
	`
	args := []any{league}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := d.db.QueryContext(ctx, d.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("querying value bets: %w", err)
	}
	defer rows.Close()

	var bets []ValueBet
	for rows.Next() {
		var b ValueBet
		if err := rows.Scan(&b.ID, &b.League, &b.HomeTeam, &b.AwayTeam, &b.Outcome, &b.Model,
			&b.FairOdds, &b.MarketOdds, &b.EV, &b.Probability, &b.KellyStake, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning value bet row: %w", err)
		}
		bets = append(bets, b)
	}
	return bets, rows.Err()
}

// DeleteValueBetsBefore removes bets created before cutoff and returns how
// many were deleted.
func (d *DB) DeleteValueBetsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := d.db.ExecContext(ctx, d.rebind(`DELETE FROM value_bets WHERE created_at < ?`), cutoff)
	if err != nil {
		return 0, fmt.Errorf("deleting value bets: %w", err)
	}
	return res.RowsAffected()
}

// ExportWidthsYAML writes widths as a flat league: width mapping, the format
// read back by config.LoadWidthOverrides.
func ExportWidthsYAML(w io.Writer, widths map[string]float64) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(widths); err != nil {
		return fmt.Errorf("encoding widths: %w", err)
	}
	return enc.Close()
}
