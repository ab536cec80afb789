// Package adapter defines the marketplace adapter boundary and the
// isolated, per-adapter-timeout fan-out that invokes every configured
// adapter in parallel and joins their results at one synchronization
// point in the pricing pipeline. One failing or slow adapter never fails
// the request; its error is recorded and the rest proceed.
package adapter

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/your-org/scancore/internal/observability"
)

// Query is the per-marketplace request built from a QueryPlan.
type Query struct {
	Q           string
	Brand       string
	Model       string
	ProductType string
	Condition   string
	CountryCode string
	CategoryID  string
	Filters     []string
	MaxResults  int
}

// FetchedListing is one listing returned by an adapter, before filtering
// or clustering.
type FetchedListing struct {
	Title     string
	Price     float64
	Currency  string // 3-letter ISO code
	Condition string // optional, adapter-reported
	Source    string // marketplace id
	URL       string
}

// Adapter is the small dynamic-dispatch interface every marketplace
// integration implements. This package carries the contract, an
// HTTP-backed adapter (HTTPAdapter), and a static adapter for tests.
type Adapter interface {
	ID() string
	FetchListings(ctx context.Context, q Query) ([]FetchedListing, error)
	BuildSearchURL(q Query) string
	IsHealthy(ctx context.Context) bool
}

// Outcome is one adapter's result from a fan-out round, always present in
// the returned slice regardless of success so callers can report metrics
// and sources summaries without re-deriving which adapters ran.
type Outcome struct {
	AdapterID string
	Listings  []FetchedListing
	Err       error
	TimedOut  bool
	Latency   time.Duration
}

// Status is a terse outcome classification for metrics labels.
func (o Outcome) Status() string {
	switch {
	case o.TimedOut:
		return "timeout"
	case o.Err != nil:
		return "error"
	default:
		return "success"
	}
}

// Request pairs one adapter with the query plan-derived Query it should
// be invoked with (each marketplace resolves its own category id and
// filters).
type Request struct {
	Adapter Adapter
	Query   Query
}

// FetchAll invokes every adapter in parallel with its own query, each
// under its own timeout, and returns one Outcome per adapter once all
// have settled (or timed out). A failing or slow adapter cannot block or
// fail the others — per-adapter errors and timeouts are isolated.
func FetchAll(ctx context.Context, reqs []Request, timeout time.Duration) []Outcome {
	outcomes := make([]Outcome, len(reqs))
	var wg sync.WaitGroup
	wg.Add(len(reqs))

	for i, r := range reqs {
		i, r := i, r
		go func() {
			defer wg.Done()
			outcomes[i] = fetchOne(ctx, r.Adapter, r.Query, timeout)

			observability.AdapterLatency.WithLabelValues(r.Adapter.ID()).Observe(outcomes[i].Latency.Seconds())
			observability.AdapterResults.WithLabelValues(r.Adapter.ID(), outcomes[i].Status()).Inc()
		}()
	}
	wg.Wait()

	return outcomes
}

func fetchOne(ctx context.Context, a Adapter, q Query, timeout time.Duration) Outcome {
	start := time.Now()
	fetchCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		listings []FetchedListing
		err      error
	}
	done := make(chan result, 1)
	go func() {
		listings, err := a.FetchListings(fetchCtx, q)
		done <- result{listings: listings, err: err}
	}()

	select {
	case r := <-done:
		latency := time.Since(start)
		if r.err != nil {
			slog.Warn("adapter fetch failed", "adapter", a.ID(), "error", r.err)
			return Outcome{AdapterID: a.ID(), Err: r.err, Latency: latency}
		}
		return Outcome{AdapterID: a.ID(), Listings: r.listings, Latency: latency}
	case <-fetchCtx.Done():
		latency := time.Since(start)
		slog.Warn("adapter fetch timed out", "adapter", a.ID(), "timeout", timeout)
		return Outcome{AdapterID: a.ID(), TimedOut: true, Err: fetchCtx.Err(), Latency: latency}
	}
}

// SuccessfulListings flattens every successful outcome's listings,
// tagged with the source adapter id.
func SuccessfulListings(outcomes []Outcome) []FetchedListing {
	var all []FetchedListing
	for _, o := range outcomes {
		if o.Err != nil {
			continue
		}
		for _, l := range o.Listings {
			l.Source = firstNonEmpty(l.Source, o.AdapterID)
			all = append(all, l)
		}
	}
	return all
}

// AllFailed reports whether every adapter in the round failed or timed out.
func AllFailed(outcomes []Outcome) bool {
	for _, o := range outcomes {
		if o.Err == nil {
			return false
		}
	}
	return true
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}
