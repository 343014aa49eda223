// Package history loads historical match results for draw-width calibration.
package history

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"football-odds-engine/internal/calibration"
	"football-odds-engine/internal/league"
)

// Column names in football-data.co.uk result files.
const (
	colDate     = "Date"
	colHomeTeam = "HomeTeam"
	colAwayTeam = "AwayTeam"
	colResult   = "FTR"
)

// maxConcurrentLoads bounds parallel source fetches.
const maxConcurrentLoads = 4

var dateLayouts = []string{"02/01/06", "02/01/2006"}

// ErrMissingColumn is returned when a required header is absent.
var ErrMissingColumn = errors.New("missing required column")

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}

// ParseCSV reads a football-data.co.uk results file. Rows with an
// unparsable date or a blank team are skipped and counted in dropped.
// Result codes are passed through untouched; the calibrator validates them.
func ParseCSV(r io.Reader, leagueName string) (matches []calibration.Match, dropped int, err error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("reading header: %w", err)
	}

	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.TrimPrefix(strings.TrimSpace(h), "\ufeff")] = i
	}
	for _, col := range []string{colDate, colHomeTeam, colAwayTeam, colResult} {
		if _, ok := idx[col]; !ok {
			return nil, 0, fmt.Errorf("%s: %w", col, ErrMissingColumn)
		}
	}

	field := func(rec []string, col string) string {
		i := idx[col]
		if i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return matches, dropped, fmt.Errorf("reading row %d: %w", len(matches)+dropped+2, err)
		}

		date, err := parseDate(field(rec, colDate))
		home := league.NormalizeTeamName(field(rec, colHomeTeam))
		away := league.NormalizeTeamName(field(rec, colAwayTeam))
		if err != nil || home == "" || away == "" {
			dropped++
			continue
		}

		matches = append(matches, calibration.Match{
			Date:     date,
			League:   leagueName,
			HomeTeam: home,
			AwayTeam: away,
			Result:   field(rec, colResult),
		})
	}

	return matches, dropped, nil
}

// Fetcher retrieves a remote document.
type Fetcher interface {
	Get(ctx context.Context, url string, headers map[string]string) ([]byte, error)
}

// Source is one season file for a league, either a local path or a URL.
type Source struct {
	League   string `yaml:"league"`
	Location string `yaml:"location"`
}

func isURL(loc string) bool {
	return strings.HasPrefix(loc, "http://") || strings.HasPrefix(loc, "https://")
}

func (s Source) open(ctx context.Context, fetcher Fetcher) (io.ReadCloser, error) {
	if !isURL(s.Location) {
		return os.Open(s.Location)
	}
	if fetcher == nil {
		return nil, fmt.Errorf("%s: no fetcher for remote source", s.Location)
	}
	body, err := fetcher.Get(ctx, s.Location, nil)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(body)), nil
}

// LoadSources loads every source and groups matches by league. Sources are
// fetched concurrently but each league's matches keep the order in which
// its sources were listed. A source that cannot be opened or parsed is
// logged and skipped; LoadSources fails only when ctx is cancelled or no
// source loads at all.
func LoadSources(ctx context.Context, fetcher Fetcher, sources []Source) (map[string][]calibration.Match, error) {
	loaded := make([][]calibration.Match, len(sources))
	errs := make([]error, len(sources))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentLoads)
	for i, src := range sources {
		i, src := i, src
		g.Go(func() error {
			loaded[i], errs[i] = src.load(gctx, fetcher)
			if errs[i] != nil && gctx.Err() == nil {
				slog.Warn("Skipping history source", "league", src.League, "location", src.Location, "err", errs[i])
			}
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make(map[string][]calibration.Match)
	var failed []error
	for i, src := range sources {
		if errs[i] != nil {
			failed = append(failed, errs[i])
			continue
		}
		out[src.League] = append(out[src.League], loaded[i]...)
	}
	if len(sources) > 0 && len(failed) == len(sources) {
		return nil, fmt.Errorf("all %d history sources failed: %w", len(sources), errors.Join(failed...))
	}
	return out, nil
}

func (s Source) load(ctx context.Context, fetcher Fetcher) ([]calibration.Match, error) {
	rc, err := s.open(ctx, fetcher)
	if err != nil {
		return nil, fmt.Errorf("opening %s source %s: %w", s.League, s.Location, err)
	}
	defer rc.Close()

	matches, _, err := ParseCSV(rc, s.League)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", s.Location, err)
	}
	return matches, nil
}
