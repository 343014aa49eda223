package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"football-odds-engine/internal/calibration"
)

func sampleReport() calibration.Report {
	return calibration.Report{
		RunID:     "run-1",
		CreatedAt: time.Now(),
		Leagues: map[string]calibration.Result{
			"E0":  {OptimalWidth: 90, Samples: 380, Ratings: map[string]float64{"Arsenal": 1540, "Everton": 1470}},
			"SP1": {OptimalWidth: 95, Samples: 380, Ratings: map[string]float64{"Getafe": 1490}},
		},
		Skipped: map[string]string{"I1": "no usable samples", "D1": "no usable samples", "F1": "no usable samples"},
	}
}

func TestPrintReportSkippedSorted(t *testing.T) {
	report := sampleReport()

	var first string
	for i := 0; i < 5; i++ {
		var buf bytes.Buffer
		printReport(&buf, report)
		if i == 0 {
			first = buf.String()
			continue
		}
		assert.Equal(t, first, buf.String(), "output changed between runs")
	}

	d1 := strings.Index(first, "skipped D1")
	f1 := strings.Index(first, "skipped F1")
	i1 := strings.Index(first, "skipped I1")
	require.True(t, d1 >= 0 && f1 >= 0 && i1 >= 0, first)
	assert.Less(t, d1, f1)
	assert.Less(t, f1, i1)
	assert.Less(t, strings.Index(first, "E0"), strings.Index(first, "SP1"))
}

func TestWriteRatings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ratings.yaml")
	require.NoError(t, writeRatings(path, sampleReport()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var got map[string]map[string]float64
	require.NoError(t, yaml.Unmarshal(data, &got))
	assert.Equal(t, 1540.0, got["E0"]["Arsenal"])
	assert.Equal(t, 1490.0, got["SP1"]["Getafe"])
	assert.NotContains(t, got, "I1")
}

func TestWriteRatingsBadPath(t *testing.T) {
	err := writeRatings(filepath.Join(t.TempDir(), "missing", "ratings.yaml"), sampleReport())
	assert.Error(t, err)
}
