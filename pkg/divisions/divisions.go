// Package divisions resolves OCD division identifiers and elected officials
// via the Google Civic Information API - the bridge between a user's address
// and the jurisdictions whose measures concern them.
package divisions

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/civicsignal/civicsync/internal/resilience"
)

// Division is one OCD division a user's address belongs to.
type Division struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Official is one elected official returned for an address, with the
// division they represent.
type Official struct {
	Name       string `json:"name"`
	Office     string `json:"office"`
	Party      string `json:"party,omitempty"`
	DivisionID string `json:"division_id"`
}

// Result is a representative lookup for one address.
type Result struct {
	Divisions []Division `json:"divisions"`
	Officials []Official `json:"officials"`
}

// Client looks up divisions and representatives.
type Client interface {
	// RepresentativesByAddress returns the divisions covering an address and
	// the officials elected from them.
	RepresentativesByAddress(ctx context.Context, address string) (*Result, error)
}

// Option configures the client.
type Option func(*client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *client) {
		c.httpClient = hc
	}
}

// WithBaseURL overrides the API base URL.
func WithBaseURL(base string) Option {
	return func(c *client) {
		c.baseURL = strings.TrimRight(base, "/")
	}
}

// WithRateLimit sets the requests-per-second limit for API calls.
func WithRateLimit(rps float64) Option {
	return func(c *client) {
		c.limiter = rate.NewLimiter(rate.Limit(rps), int(rps))
	}
}

// WithCacheTTL sets how long address lookups are cached. Division membership
// changes on redistricting timescales, so long TTLs are safe.
func WithCacheTTL(ttl time.Duration) Option {
	return func(c *client) {
		c.cache = cache.New(ttl, 2*ttl)
	}
}

type client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	cache      *cache.Cache
}

// NewClient creates a Civic Information client with the given options.
func NewClient(apiKey string, opts ...Option) Client {
	c := &client{
		apiKey:     apiKey,
		baseURL:    "https://www.googleapis.com/civicinfo/v2",
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(10, 10),
		cache:      cache.New(24*time.Hour, 48*time.Hour),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// representativesResponse mirrors the representativeInfoByAddress payload.
// Offices join officials to divisions by index.
type representativesResponse struct {
	Divisions map[string]struct {
		Name string `json:"name"`
	} `json:"divisions"`
	Offices []struct {
		Name            string `json:"name"`
		DivisionID      string `json:"divisionId"`
		OfficialIndices []int  `json:"officialIndices"`
	} `json:"offices"`
	Officials []struct {
		Name  string `json:"name"`
		Party string `json:"party"`
	} `json:"officials"`
}

func (c *client) RepresentativesByAddress(ctx context.Context, address string) (*Result, error) {
	key := strings.ToLower(strings.Join(strings.Fields(address), " "))
	if cached, ok := c.cache.Get(key); ok {
		return cached.(*Result), nil
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "divisions: rate limit wait")
	}

	reqURL := fmt.Sprintf("%s/representatives?key=%s&address=%s",
		c.baseURL, url.QueryEscape(c.apiKey), url.QueryEscape(address))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "divisions: build request")
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, resilience.NewTransientError(eris.Wrap(err, "divisions: representatives request"), 0)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		err := eris.Errorf("divisions: representatives lookup returned %d", resp.StatusCode)
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(err, resp.StatusCode)
		}
		return nil, err
	}

	var payload representativesResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, eris.Wrap(err, "divisions: decode representatives response")
	}

	result := fromResponse(&payload)
	c.cache.Set(key, result, cache.DefaultExpiration)
	zap.L().Debug("resolved representatives",
		zap.Int("divisions", len(result.Divisions)),
		zap.Int("officials", len(result.Officials)),
	)
	return result, nil
}

func fromResponse(payload *representativesResponse) *Result {
	result := &Result{}
	for id, d := range payload.Divisions {
		result.Divisions = append(result.Divisions, Division{ID: id, Name: d.Name})
	}
	for _, office := range payload.Offices {
		for _, idx := range office.OfficialIndices {
			if idx < 0 || idx >= len(payload.Officials) {
				continue
			}
			o := payload.Officials[idx]
			result.Officials = append(result.Officials, Official{
				Name:       o.Name,
				Office:     office.Name,
				Party:      o.Party,
				DivisionID: office.DivisionID,
			})
		}
	}
	return result
}

// DivisionForJurisdiction maps an internal jurisdiction path onto its OCD
// division identifier. The mapping is structural; no API call is needed.
// "us" -> country, "us/az" -> state, "us/az/phoenix" -> place.
func DivisionForJurisdiction(jurisdiction string) string {
	parts := strings.Split(strings.Trim(jurisdiction, "/"), "/")
	switch len(parts) {
	case 1:
		if parts[0] == "" {
			return ""
		}
		return "ocd-division/country:" + parts[0]
	case 2:
		return fmt.Sprintf("ocd-division/country:%s/state:%s", parts[0], parts[1])
	case 3:
		return fmt.Sprintf("ocd-division/country:%s/state:%s/place:%s", parts[0], parts[1], parts[2])
	default:
		return ""
	}
}

// CoversJurisdiction reports whether an address whose divisions include the
// given OCD ids is covered by the jurisdiction. City measures require the
// place division; state and federal measures require their prefix division.
func CoversJurisdiction(divisionIDs []string, jurisdiction string) bool {
	want := DivisionForJurisdiction(jurisdiction)
	if want == "" {
		return false
	}
	for _, id := range divisionIDs {
		if id == want {
			return true
		}
	}
	return false
}
