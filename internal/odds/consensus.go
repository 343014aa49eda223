package odds

import (
	"fmt"
	"time"

	"football-odds-engine/internal/prob"
)

// BookQuote is one bookmaker's 1X2 price for a fixture.
type BookQuote struct {
	Bookmaker string    `json:"bookmaker" yaml:"bookmaker"`
	Odds      Market    `json:"odds" yaml:"odds"`
	Weight    float64   `json:"weight,omitempty" yaml:"weight,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty" yaml:"updated_at,omitempty"`
}

// Consensus summarises several bookmakers' quotes for the same fixture.
type Consensus struct {
	// Fair is the weighted average of each book's margin-free probabilities.
	Fair prob.Triple `json:"fair"`
	// Best holds the longest price on each outcome across books.
	Best Market `json:"best"`
	// BestBooks names the bookmaker offering each best price.
	BestBooks [3]string `json:"best_books"`
	BookCount int       `json:"book_count"`
}

// isQuoteFresh reports whether q was updated within maxAge of now. A zero
// maxAge or a missing timestamp disables the check.
func isQuoteFresh(q BookQuote, maxAge time.Duration, now time.Time) bool {
	if maxAge <= 0 || q.UpdatedAt.IsZero() {
		return true
	}
	return now.Sub(q.UpdatedAt) <= maxAge
}

// CalculateConsensus combines quotes into a consensus. Stale quotes and quotes
// with invalid odds are skipped; an empty result is ErrEmptyDataset.
// Weights default to 1.
func CalculateConsensus(quotes []BookQuote, method MarginMethod, maxAge time.Duration, now time.Time) (Consensus, error) {
	var c Consensus
	var home, draw, away, wSum float64

	for _, q := range quotes {
		if !isQuoteFresh(q, maxAge, now) {
			continue
		}
		fair, err := FairProbabilities(q.Odds, method)
		if err != nil {
			continue
		}

		w := q.Weight
		if w <= 0 {
			w = 1
		}
		home += fair.Home * w
		draw += fair.Draw * w
		away += fair.Away * w
		wSum += w
		c.BookCount++

		if q.Odds.Home > c.Best.Home {
			c.Best.Home, c.BestBooks[0] = q.Odds.Home, q.Bookmaker
		}
		if q.Odds.Draw > c.Best.Draw {
			c.Best.Draw, c.BestBooks[1] = q.Odds.Draw, q.Bookmaker
		}
		if q.Odds.Away > c.Best.Away {
			c.Best.Away, c.BestBooks[2] = q.Odds.Away, q.Bookmaker
		}
	}

	if c.BookCount == 0 {
		return Consensus{}, fmt.Errorf("no usable quotes out of %d: %w", len(quotes), prob.ErrEmptyDataset)
	}

	c.Fair = prob.Triple{Home: home / wSum, Draw: draw / wSum, Away: away / wSum}
	return c, nil
}
