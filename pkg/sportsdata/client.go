package sportsdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	pkgerrors "github.com/angelmondragon/oddsvault-backend/pkg/errors"
)

const (
	defaultBaseURL              = "https://v3.football.api-sports.io"
	apiKeyHeader                = "x-apisports-key"
	responseBodyReadLimit int64 = 1024
)

var errAPIKeyRequired = errors.New("sports data api key is required")

// Cache stores raw upstream bodies keyed by request path and query.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	CacheKey(parts ...string) string
}

// Client wraps the API-Football endpoints used by the importer and the admin
// research screens.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	cache      Cache
	cacheTTL   time.Duration
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the provider base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if trimmed := strings.TrimSpace(baseURL); trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// WithCache enables response caching for ttl.
func WithCache(cache Cache, ttl time.Duration) Option {
	return func(c *Client) {
		if cache != nil && ttl > 0 {
			c.cache = cache
			c.cacheTTL = ttl
		}
	}
}

func NewClient(apiKey string, opts ...Option) (*Client, error) {
	trimmedKey := strings.TrimSpace(apiKey)
	if trimmedKey == "" {
		return nil, errAPIKeyRequired
	}

	client := &Client{
		apiKey:     trimmedKey,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

// Fixtures lists every fixture scheduled on date (YYYY-MM-DD).
func (c *Client) Fixtures(ctx context.Context, date string) ([]Fixture, error) {
	if strings.TrimSpace(date) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "date is required")
	}
	var resp envelope[[]fixtureItem]
	if err := c.get(ctx, "fixtures", url.Values{"date": {date}}, &resp); err != nil {
		return nil, err
	}
	return mapFixtures(resp.Response), nil
}

// Odds returns the bookmaker markets for a fixture. The first bookmaker that
// carries markets wins.
func (c *Client) Odds(ctx context.Context, fixtureID int64) (*FixtureOdds, error) {
	if fixtureID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "fixture id is required")
	}
	var resp envelope[[]oddsItem]
	if err := c.get(ctx, "odds", url.Values{"fixture": {strconv.FormatInt(fixtureID, 10)}}, &resp); err != nil {
		return nil, err
	}

	result := &FixtureOdds{FixtureID: fixtureID}
	for _, item := range resp.Response {
		for _, bookmaker := range item.Bookmakers {
			if len(bookmaker.Bets) == 0 {
				continue
			}
			result.Bookmaker = bookmaker.Name
			for _, bet := range bookmaker.Bets {
				market := Market{Name: bet.Name}
				for _, v := range bet.Values {
					odd, err := strconv.ParseFloat(strings.TrimSpace(v.Odd), 64)
					if err != nil {
						continue
					}
					market.Values = append(market.Values, MarketValue{Label: fmt.Sprint(v.Value), Odd: odd})
				}
				result.Markets = append(result.Markets, market)
			}
			return result, nil
		}
	}
	return result, nil
}

// HeadToHead lists previous meetings between two teams.
func (c *Client) HeadToHead(ctx context.Context, homeTeamID, awayTeamID int64, last int) ([]Fixture, error) {
	if homeTeamID <= 0 || awayTeamID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "both team ids are required")
	}
	query := url.Values{"h2h": {fmt.Sprintf("%d-%d", homeTeamID, awayTeamID)}}
	if last > 0 {
		query.Set("last", strconv.Itoa(last))
	}
	var resp envelope[[]fixtureItem]
	if err := c.get(ctx, "fixtures/headtohead", query, &resp); err != nil {
		return nil, err
	}
	return mapFixtures(resp.Response), nil
}

// Standings returns the league table for a season.
func (c *Client) Standings(ctx context.Context, leagueID int64, season int) ([]Standing, error) {
	if leagueID <= 0 || season <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "league and season are required")
	}
	query := url.Values{
		"league": {strconv.FormatInt(leagueID, 10)},
		"season": {strconv.Itoa(season)},
	}
	var resp envelope[[]standingsItem]
	if err := c.get(ctx, "standings", query, &resp); err != nil {
		return nil, err
	}

	var out []Standing
	for _, item := range resp.Response {
		for _, group := range item.League.Standings {
			for _, row := range group {
				out = append(out, Standing{
					Rank:     row.Rank,
					TeamID:   row.Team.ID,
					TeamName: row.Team.Name,
					Points:   row.Points,
					GoalDiff: row.GoalsDiff,
					Played:   row.All.Played,
					Won:      row.All.Win,
					Drawn:    row.All.Draw,
					Lost:     row.All.Lose,
					Form:     row.Form,
					Group:    row.Group,
				})
			}
		}
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	if c == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "sports data client not configured")
	}

	cacheKey := ""
	if c.cache != nil {
		cacheKey = c.cache.CacheKey("sports", path, query.Encode())
		if cached, err := c.cache.Get(ctx, cacheKey); err == nil && cached != "" {
			if err := json.Unmarshal([]byte(cached), out); err == nil {
				return nil
			}
		}
	}

	endpoint := c.buildURL(path)
	if encoded := query.Encode(); encoded != "" {
		endpoint += "?" + encoded
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build sports data request")
	}
	req.Header.Set(apiKeyHeader, c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute sports data request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		return pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), path+" request failed")
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read sports data response")
	}

	var apiErr struct {
		Errors json.RawMessage `json:"errors"`
	}
	if err := json.Unmarshal(body, &apiErr); err == nil && hasProviderErrors(apiErr.Errors) {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("provider errors: %s", string(apiErr.Errors)), path+" request rejected")
	}

	if err := json.Unmarshal(body, out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode "+path+" response")
	}

	if cacheKey != "" {
		_ = c.cache.Set(ctx, cacheKey, string(body), c.cacheTTL)
	}
	return nil
}

// API-Football reports errors as either [] or a non-empty object.
func hasProviderErrors(raw json.RawMessage) bool {
	trimmed := strings.TrimSpace(string(raw))
	switch trimmed {
	case "", "null", "[]", "{}":
		return false
	}
	return true
}

func (c *Client) buildURL(path string) string {
	return fmt.Sprintf("%s/%s", strings.TrimRight(c.baseURL, "/"), strings.TrimLeft(path, "/"))
}
