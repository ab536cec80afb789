package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// HTTPAdapter is a generic templated-endpoint marketplace adapter. No
// marketplace client SDK fits a "fetch, buildUrl, isHealthy" adapter
// contract this generic, so this ships a single stdlib net/http
// implementation rather than a per-marketplace SDK, for the same reason
// internal/pricing/cluster and internal/pricing/v3 talk to their
// endpoints directly. Production deployments are expected to supply
// their own Adapter per marketplace; HTTPAdapter covers marketplaces
// that expose a simple JSON search API.
type HTTPAdapter struct {
	name        string
	searchURL   string // e.g. "https://api.example.com/search"
	apiKey      string
	healthURL   string
	http        *http.Client
}

// HTTPAdapterConfig configures one HTTPAdapter instance.
type HTTPAdapterConfig struct {
	Name      string
	SearchURL string
	APIKey    string
	HealthURL string
}

func NewHTTPAdapter(cfg HTTPAdapterConfig, client *http.Client) *HTTPAdapter {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPAdapter{
		name:      cfg.Name,
		searchURL: cfg.SearchURL,
		apiKey:    cfg.APIKey,
		healthURL: cfg.HealthURL,
		http:      client,
	}
}

func (a *HTTPAdapter) ID() string { return a.name }

type httpAdapterListing struct {
	Title     string  `json:"title"`
	Price     float64 `json:"price"`
	Currency  string  `json:"currency"`
	Condition string  `json:"condition,omitempty"`
	URL       string  `json:"url,omitempty"`
}

type httpAdapterResponse struct {
	Listings []httpAdapterListing `json:"listings"`
}

// FetchListings calls the configured search endpoint with q build from
// the QueryPlan-derived Query, honoring ctx cancellation (the caller
// wraps this in its own per-adapter timeout).
func (a *HTTPAdapter) FetchListings(ctx context.Context, q Query) ([]FetchedListing, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.BuildSearchURL(q), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if a.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+a.apiKey)
	}

	resp, err := a.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s: unexpected status %d", a.name, resp.StatusCode)
	}

	var out httpAdapterResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	listings := make([]FetchedListing, 0, len(out.Listings))
	for _, l := range out.Listings {
		listings = append(listings, FetchedListing{
			Title:     l.Title,
			Price:     l.Price,
			Currency:  l.Currency,
			Condition: l.Condition,
			Source:    a.name,
			URL:       l.URL,
		})
	}
	return listings, nil
}

// BuildSearchURL renders the query plan's text, category id, and
// max-results into the adapter's search endpoint.
func (a *HTTPAdapter) BuildSearchURL(q Query) string {
	u, err := url.Parse(a.searchURL)
	if err != nil {
		return a.searchURL
	}
	qs := u.Query()
	qs.Set("q", q.Q)
	if q.CategoryID != "" {
		qs.Set("category", q.CategoryID)
	}
	if q.CountryCode != "" {
		qs.Set("country", q.CountryCode)
	}
	if q.MaxResults > 0 {
		qs.Set("limit", strconv.Itoa(q.MaxResults))
	}
	u.RawQuery = qs.Encode()
	return u.String()
}

// IsHealthy probes the adapter's configured health endpoint, if any. An
// adapter without a health URL is assumed healthy ("isHealthy() ->
// bool", best-effort when the marketplace exposes no status endpoint).
func (a *HTTPAdapter) IsHealthy(ctx context.Context) bool {
	if a.healthURL == "" {
		return true
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.healthURL, nil)
	if err != nil {
		return false
	}
	resp, err := a.http.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
