package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"football-odds-engine/internal/api"
	"football-odds-engine/internal/league"
)

// HTTPProvider reads JSON from
//
//	GET {base}/leagues/{league}/ratings
//	GET {base}/leagues/{league}/table
//	GET {base}/leagues/{league}/odds
type HTTPProvider struct {
	base   string
	client *api.Client
}

// NewHTTPProvider returns a provider for the service at baseURL.
func NewHTTPProvider(baseURL string, client *api.Client) *HTTPProvider {
	return &HTTPProvider{base: strings.TrimRight(baseURL, "/"), client: client}
}

func (p *HTTPProvider) endpoint(leagueName, resource string) string {
	return fmt.Sprintf("%s/leagues/%s/%s", p.base, url.PathEscape(leagueName), resource)
}

func (p *HTTPProvider) get(ctx context.Context, leagueName, resource string, v any) error {
	err := p.client.GetJSON(ctx, p.endpoint(leagueName, resource), v)
	var se *api.StatusError
	if errors.As(err, &se) && se.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%s %s: %w", leagueName, resource, ErrUnknownLeague)
	}
	return err
}

// TeamRatings implements Provider.
func (p *HTTPProvider) TeamRatings(ctx context.Context, leagueName string) (map[string]float64, error) {
	var ratings map[string]float64
	if err := p.get(ctx, leagueName, "ratings", &ratings); err != nil {
		return nil, err
	}
	return ratings, nil
}

// LeagueTable implements Provider. A 404 or an empty table yields nil so the
// engine falls back to Elo pricing.
func (p *HTTPProvider) LeagueTable(ctx context.Context, leagueName string) (*league.Table, error) {
	var records []league.Record
	err := p.get(ctx, leagueName, "table", &records)
	if errors.Is(err, ErrUnknownLeague) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return league.NewTable(leagueName, records), nil
}

// MarketOdds implements Provider.
func (p *HTTPProvider) MarketOdds(ctx context.Context, leagueName string) ([]MarketFixture, error) {
	var fixtures []MarketFixture
	if err := p.get(ctx, leagueName, "odds", &fixtures); err != nil {
		return nil, err
	}
	return fixtures, nil
}
