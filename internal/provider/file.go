package provider

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"football-odds-engine/internal/league"
)

// Snapshot is the on-disk layout of one league file.
type Snapshot struct {
	Ratings  map[string]float64 `yaml:"ratings"`
	Table    []league.Record    `yaml:"table,omitempty"`
	Fixtures []MarketFixture    `yaml:"fixtures"`
}

// FileProvider reads a <league>.yaml snapshot from a directory on every call,
// so files can be replaced between polls.
type FileProvider struct {
	dir string
}

// NewFileProvider returns a provider rooted at dir.
func NewFileProvider(dir string) *FileProvider {
	return &FileProvider{dir: dir}
}

func (p *FileProvider) load(leagueName string) (Snapshot, error) {
	path := filepath.Join(p.dir, leagueName+".yaml")
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Snapshot{}, fmt.Errorf("%s: %w", leagueName, ErrUnknownLeague)
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("reading %s: %w", path, err)
	}

	var snap Snapshot
	if err := yaml.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("parsing %s: %w", path, err)
	}
	return snap, nil
}

// TeamRatings implements Provider.
func (p *FileProvider) TeamRatings(_ context.Context, leagueName string) (map[string]float64, error) {
	snap, err := p.load(leagueName)
	if err != nil {
		return nil, err
	}
	return snap.Ratings, nil
}

// LeagueTable implements Provider. A snapshot without a table yields nil.
func (p *FileProvider) LeagueTable(_ context.Context, leagueName string) (*league.Table, error) {
	snap, err := p.load(leagueName)
	if err != nil {
		return nil, err
	}
	if len(snap.Table) == 0 {
		return nil, nil
	}
	return league.NewTable(leagueName, snap.Table), nil
}

// MarketOdds implements Provider.
func (p *FileProvider) MarketOdds(_ context.Context, leagueName string) ([]MarketFixture, error) {
	snap, err := p.load(leagueName)
	if err != nil {
		return nil, err
	}
	return snap.Fixtures, nil
}

// WriteSnapshot stores snap as <dir>/<league>.yaml.
func WriteSnapshot(dir, leagueName string, snap Snapshot) error {
	data, err := yaml.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	return os.WriteFile(filepath.Join(dir, leagueName+".yaml"), data, 0o644)
}
