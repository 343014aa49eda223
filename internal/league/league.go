package league

import (
	"fmt"
	"sort"
	"strings"

	"football-odds-engine/internal/prob"
)

// minSubstringLen is the shortest normalized name allowed to match by
// containment. Shorter names ("fc", "utd") would match almost anything.
const minSubstringLen = 4

// Record is one team's home/away scoring record from a league table.
type Record struct {
	Team             string `json:"team" yaml:"team"`
	HomePlayed       int    `json:"home_played" yaml:"home_played"`
	HomeGoalsFor     int    `json:"home_goals_for" yaml:"home_goals_for"`
	HomeGoalsAgainst int    `json:"home_goals_against" yaml:"home_goals_against"`
	AwayPlayed       int    `json:"away_played" yaml:"away_played"`
	AwayGoalsFor     int    `json:"away_goals_for" yaml:"away_goals_for"`
	AwayGoalsAgainst int    `json:"away_goals_against" yaml:"away_goals_against"`
}

func perMatch(goals, played int) float64 {
	if played <= 0 {
		return 0
	}
	return float64(goals) / float64(played)
}

func (r Record) HomeGFPerMatch() float64 { return perMatch(r.HomeGoalsFor, r.HomePlayed) }
func (r Record) HomeGAPerMatch() float64 { return perMatch(r.HomeGoalsAgainst, r.HomePlayed) }
func (r Record) AwayGFPerMatch() float64 { return perMatch(r.AwayGoalsFor, r.AwayPlayed) }
func (r Record) AwayGAPerMatch() float64 { return perMatch(r.AwayGoalsAgainst, r.AwayPlayed) }

// Table is a league table keyed by team name as supplied by the data source.
type Table struct {
	League string
	Teams  map[string]Record
}

// NewTable indexes records by team name. Later duplicates replace earlier ones.
func NewTable(league string, records []Record) *Table {
	t := &Table{League: league, Teams: make(map[string]Record, len(records))}
	for _, r := range records {
		t.Teams[r.Team] = r
	}
	return t
}

// Find resolves name against the table using Lookup.
func (t *Table) Find(name string) (Record, error) {
	if t == nil {
		return Record{}, fmt.Errorf("%q: no table: %w", name, prob.ErrUnresolvedTeam)
	}
	rec, _, ok := Lookup(name, t.Teams)
	if !ok {
		return Record{}, fmt.Errorf("%q in %s: %w", name, t.League, prob.ErrUnresolvedTeam)
	}
	return rec, nil
}

// MatchTotalXG is the expected total goals for a fixture: the home team's
// home goals-for rate plus the away team's away goals-for rate.
func (t *Table) MatchTotalXG(homeTeam, awayTeam string) (float64, error) {
	home, homeErr := t.Find(homeTeam)
	away, awayErr := t.Find(awayTeam)
	switch {
	case homeErr != nil && awayErr != nil:
		return 0, fmt.Errorf("home %q and away %q: %w", homeTeam, awayTeam, prob.ErrUnresolvedTeam)
	case homeErr != nil:
		return 0, homeErr
	case awayErr != nil:
		return 0, awayErr
	}
	return home.HomeGFPerMatch() + away.AwayGFPerMatch(), nil
}

var affixes = struct {
	prefixes []string
	suffixes []string
}{
	prefixes: []string{"fc "},
	suffixes: []string{" fc", " afc", " sc", " cf"},
}

// NormalizeTeamName lowercases, strips club-type affixes such as "FC" and
// collapses whitespace.
func NormalizeTeamName(name string) string {
	n := strings.Join(strings.Fields(strings.ToLower(name)), " ")
	for _, p := range affixes.prefixes {
		n = strings.TrimPrefix(n, p)
	}
	for _, s := range affixes.suffixes {
		n = strings.TrimSuffix(n, s)
	}
	return strings.TrimSpace(n)
}

// Lookup resolves name against entries, trying in order:
//  1. exact key
//  2. equal normalized names
//  3. one normalized name containing the other, where the shorter one has at
//     least four characters
//
// Keys are visited in sorted order so ties resolve deterministically. The
// matched key is returned alongside the value.
func Lookup[T any](name string, entries map[string]T) (T, string, bool) {
	var zero T
	if v, ok := entries[name]; ok {
		return v, name, true
	}

	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	target := NormalizeTeamName(name)
	if target == "" {
		return zero, "", false
	}

	for _, k := range keys {
		if NormalizeTeamName(k) == target {
			return entries[k], k, true
		}
	}

	for _, k := range keys {
		candidate := NormalizeTeamName(k)
		shorter := min(len(candidate), len(target))
		if shorter < minSubstringLen {
			continue
		}
		if strings.Contains(candidate, target) || strings.Contains(target, candidate) {
			return entries[k], k, true
		}
	}

	return zero, "", false
}
