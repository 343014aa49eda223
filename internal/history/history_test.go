package history

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCSV = "\ufeffDiv,Date,Time,HomeTeam,AwayTeam,FTHG,FTAG,FTR\n" +
	"E0,11/08/2023,20:00,Burnley,Man City,0,3,A\n" +
	"E0,12/08/23,12:30,Arsenal FC,Nott'm Forest,2,1,H\n" +
	"E0,not-a-date,15:00,Bournemouth,West Ham,1,1,D\n" +
	"E0,12/08/2023,15:00,,Luton,1,1,D\n" +
	"E0,12/08/2023,15:00,Brighton,Luton,4,1\n"

func TestParseCSV(t *testing.T) {
	matches, dropped, err := ParseCSV(strings.NewReader(sampleCSV), "E0")
	require.NoError(t, err)
	assert.Equal(t, 2, dropped)
	require.Len(t, matches, 3)

	assert.Equal(t, time.Date(2023, 8, 11, 0, 0, 0, 0, time.UTC), matches[0].Date)
	assert.Equal(t, "burnley", matches[0].HomeTeam)
	assert.Equal(t, "man city", matches[0].AwayTeam)
	assert.Equal(t, "A", matches[0].Result)
	assert.Equal(t, "E0", matches[0].League)

	// Two-digit year and club suffix.
	assert.Equal(t, time.Date(2023, 8, 12, 0, 0, 0, 0, time.UTC), matches[1].Date)
	assert.Equal(t, "arsenal", matches[1].HomeTeam)

	// Short row keeps a blank result for the calibrator to drop.
	assert.Equal(t, "", matches[2].Result)
}

func TestParseCSVMissingColumn(t *testing.T) {
	_, _, err := ParseCSV(strings.NewReader("Date,HomeTeam,AwayTeam\n01/01/20,a,b\n"), "E0")
	assert.True(t, errors.Is(err, ErrMissingColumn), "err = %v", err)
}

func TestParseCSVEmpty(t *testing.T) {
	matches, dropped, err := ParseCSV(strings.NewReader(""), "E0")
	require.NoError(t, err)
	assert.Empty(t, matches)
	assert.Zero(t, dropped)
}

type fakeFetcher map[string]string

func (f fakeFetcher) Get(_ context.Context, url string, _ map[string]string) ([]byte, error) {
	body, ok := f[url]
	if !ok {
		return nil, errors.New("not found")
	}
	return []byte(body), nil
}

func TestLoadSources(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "E0_2223.csv")
	require.NoError(t, os.WriteFile(path, []byte("Date,HomeTeam,AwayTeam,FTR\n05/08/2022,Crystal Palace,Arsenal,A\n"), 0o644))

	fetcher := fakeFetcher{
		"https://example.test/E0_2324.csv": "Date,HomeTeam,AwayTeam,FTR\n11/08/2023,Burnley,Man City,A\n",
		"https://example.test/I1_2324.csv": "Date,HomeTeam,AwayTeam,FTR\n19/08/2023,Empoli,Verona,D\n",
	}
	sources := []Source{
		{League: "E0", Location: path},
		{League: "E0", Location: "https://example.test/E0_2324.csv"},
		{League: "I1", Location: "https://example.test/I1_2324.csv"},
	}

	byLeague, err := LoadSources(context.Background(), fetcher, sources)
	require.NoError(t, err)
	require.Len(t, byLeague["E0"], 2)
	assert.Equal(t, "crystal palace", byLeague["E0"][0].HomeTeam)
	assert.Equal(t, "burnley", byLeague["E0"][1].HomeTeam)
	require.Len(t, byLeague["I1"], 1)
	assert.Equal(t, "D", byLeague["I1"][0].Result)
}

func TestLoadSourcesSkipsFailedSource(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.csv")
	require.NoError(t, os.WriteFile(good, []byte("Date,HomeTeam,AwayTeam,FTR\n05/08/2022,Crystal Palace,Arsenal,A\n"), 0o644))

	byLeague, err := LoadSources(context.Background(), nil, []Source{
		{League: "E0", Location: good},
		{League: "SP1", Location: filepath.Join(dir, "missing.csv")},
	})
	require.NoError(t, err)
	require.Len(t, byLeague["E0"], 1)
	assert.Equal(t, "crystal palace", byLeague["E0"][0].HomeTeam)
	assert.NotContains(t, byLeague, "SP1")
}

func TestLoadSourcesCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := LoadSources(ctx, fakeFetcher{}, []Source{{League: "E0", Location: "https://example.test/a.csv"}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLoadSourcesFailure(t *testing.T) {
	_, err := LoadSources(context.Background(), fakeFetcher{}, []Source{
		{League: "E0", Location: "https://example.test/missing.csv"},
	})
	assert.ErrorContains(t, err, "missing.csv")

	_, err = LoadSources(context.Background(), nil, []Source{
		{League: "E0", Location: "https://example.test/x.csv"},
	})
	assert.Error(t, err)
}
