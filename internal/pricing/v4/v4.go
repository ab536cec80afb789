// Package v4 implements the V4 pricing service: glue, cache, and
// fallback-to-V3 policy over the query plan builder, marketplace
// adapters, listing filter, AI clusterer, and price aggregator.
package v4

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/your-org/scancore/internal/observability"
	"github.com/your-org/scancore/internal/pricing/adapter"
	"github.com/your-org/scancore/internal/pricing/aggregate"
	"github.com/your-org/scancore/internal/pricing/cache"
	"github.com/your-org/scancore/internal/pricing/cluster"
	"github.com/your-org/scancore/internal/pricing/filter"
	"github.com/your-org/scancore/internal/pricing/queryplan"
	"github.com/your-org/scancore/internal/pricing/v3"
)

// Status is the closed set of V4 result statuses.
type Status string

const (
	StatusOK        Status = "OK"
	StatusNoResults Status = "NO_RESULTS"
	StatusFallback  Status = "FALLBACK"
	StatusError     Status = "ERROR"
	StatusTimeout   Status = "TIMEOUT"
)

// Request is the V4 input tuple.
type Request struct {
	ItemID                string
	Brand                 string
	ProductType           string
	Model                 string
	Condition             string
	CountryCode           string
	PreferredMarketplaces []string
	VariantAttributes     map[string]string
	Completeness          []string
	Identifier            string
}

// SourceSummary reports how many listings one marketplace contributed.
type SourceSummary struct {
	Marketplace  string
	ListingCount int
}

// Insights is the pricing result returned to callers.
type Insights struct {
	Status                Status
	Sources               []SourceSummary
	TotalListingsAnalyzed int
	TimeWindowDays        int
	Range                 *aggregate.Range
	Samples               []cluster.NormalizedListing
	Confidence            aggregate.Confidence
	FallbackReason        string
}

// Config carries the thresholds the V4 algorithm needs, mirroring
// config.PricingConfig (kept as a separate type so this package doesn't
// import internal/config and stays unit-testable).
type Config struct {
	Enabled           bool
	FallbackToV3      bool
	AINormalization   bool
	NoiseRatioTrigger float64
	AdapterTimeout    time.Duration
	OverallTimeout    time.Duration
	TimeWindowDays    int
}

// Service is the V4 glue/cache/fallback service.
type Service struct {
	cfg       Config
	adapters  []adapter.Adapter
	resolvers map[string]*queryplan.CategoryResolver // by marketplace id
	rules     filter.Rules
	clusterer *cluster.Client
	v3svc     *v3.Service
	cache     *cache.Cache
}

func NewService(cfg Config, adapters []adapter.Adapter, resolvers map[string]*queryplan.CategoryResolver, rules filter.Rules, clusterer *cluster.Client, v3svc *v3.Service, c *cache.Cache) *Service {
	return &Service{
		cfg:       cfg,
		adapters:  adapters,
		resolvers: resolvers,
		rules:     rules,
		clusterer: clusterer,
		v3svc:     v3svc,
		cache:     c,
	}
}

// Price runs the V4 pricing algorithm end to end.
func (s *Service) Price(ctx context.Context, req Request) Insights {
	if !s.cfg.Enabled {
		return Insights{Status: StatusError, FallbackReason: "disabled"}
	}

	key := s.cacheKey(req)
	if s.cache != nil {
		if raw, ok := s.cache.Get(key); ok {
			var cached Insights
			if err := json.Unmarshal(raw, &cached); err == nil {
				observability.PricingCacheHits.WithLabelValues("v4").Inc()
				return cached
			}
		}
		observability.PricingCacheMisses.WithLabelValues("v4").Inc()
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.OverallTimeout)
	defer cancel()

	insights := s.priceLive(ctx, req)

	if insights.Status == StatusOK && s.cache != nil {
		if raw, err := json.Marshal(insights); err == nil {
			s.cache.Set(key, raw)
		}
	}
	return insights
}

func (s *Service) priceLive(ctx context.Context, req Request) Insights {
	active := s.activeAdapters(req.PreferredMarketplaces)

	plans := make(map[string]queryplan.QueryPlan, len(active))
	fetchReqs := make([]adapter.Request, 0, len(active))
	for _, a := range active {
		plan := s.buildPlan(a.ID(), req)
		plans[a.ID()] = plan
		for _, w := range plan.Telemetry.Warnings {
			slog.Warn("query plan warning", "marketplace", a.ID(), "warning", w)
		}
		fetchReqs = append(fetchReqs, adapter.Request{Adapter: a, Query: s.queryFor(req, plan)})
	}

	outcomes := adapter.FetchAll(ctx, fetchReqs, s.cfg.AdapterTimeout)

	var allFetched []adapter.FetchedListing
	sourceCounts := map[string]int{}
	for _, o := range outcomes {
		if o.Err == nil {
			sourceCounts[o.AdapterID] += len(o.Listings)
			allFetched = append(allFetched, taggedListings(o)...)
		}
	}

	if adapter.AllFailed(outcomes) {
		return s.fallbackOrTimeout(ctx, req, outcomes)
	}

	survivors := filterAllAdapters(allFetched, plans, s.rules)
	noise := filter.NoiseRatio(len(allFetched), len(survivors))

	var normalized []cluster.NormalizedListing
	if s.cfg.AINormalization && noise > s.cfg.NoiseRatioTrigger && s.clusterer != nil {
		itemText := req.Brand + " " + req.Model + " " + req.ProductType
		clustered, err := s.clusterer.Normalize(ctx, itemText, survivors)
		if err != nil {
			slog.Warn("ai clusterer degraded to keep-all-high", "error", err)
			normalized = cluster.AllAsHigh(survivors)
		} else {
			normalized = cluster.KeepHighMed(clustered)
		}
	} else {
		normalized = cluster.AllAsHigh(survivors)
	}

	if len(normalized) == 0 {
		if s.cfg.FallbackToV3 {
			return s.fallbackOrTimeout(ctx, req, outcomes)
		}
		return Insights{
			Status:                StatusNoResults,
			Sources:               sourceSummaries(sourceCounts),
			TotalListingsAnalyzed: len(allFetched),
			TimeWindowDays:        s.cfg.TimeWindowDays,
		}
	}

	rng, _ := aggregate.Aggregate(normalized, firstCurrency(normalized))
	confidence := aggregate.ScoreConfidence(len(normalized), noise)

	return Insights{
		Status:                StatusOK,
		Sources:               sourceSummaries(sourceCounts),
		TotalListingsAnalyzed: len(allFetched),
		TimeWindowDays:        s.cfg.TimeWindowDays,
		Range:                 &rng,
		Samples:               aggregate.SelectSamples(normalized, 3),
		Confidence:            confidence,
	}
}

func (s *Service) fallbackOrTimeout(ctx context.Context, req Request, outcomes []adapter.Outcome) Insights {
	if !s.cfg.FallbackToV3 || s.v3svc == nil {
		if allTimedOut(outcomes) {
			return Insights{Status: StatusTimeout, FallbackReason: "all adapters timed out"}
		}
		return Insights{Status: StatusNoResults}
	}

	est := s.v3svc.Estimate(ctx, v3.Request{
		Brand:       req.Brand,
		ProductType: req.ProductType,
		Model:       req.Model,
		Condition:   req.Condition,
		CountryCode: req.CountryCode,
	})
	if est.Status != v3.StatusOK {
		return Insights{Status: StatusError, FallbackReason: "v3 fallback failed: " + string(est.Status)}
	}

	rng := aggregate.Range{
		Low:      est.Low,
		Median:   (est.Low + est.High) / 2,
		High:     est.High,
		Currency: est.Currency,
	}
	return Insights{
		Status:         StatusFallback,
		TimeWindowDays: s.cfg.TimeWindowDays,
		Range:          &rng,
		Confidence:     aggregate.Confidence(est.Confidence),
		FallbackReason: "all marketplace adapters failed; estimated via v3 (" + est.Why + ")",
	}
}

func (s *Service) activeAdapters(preferred []string) []adapter.Adapter {
	if len(preferred) == 0 {
		return s.adapters
	}
	want := map[string]bool{}
	for _, p := range preferred {
		want[p] = true
	}
	var out []adapter.Adapter
	for _, a := range s.adapters {
		if want[a.ID()] {
			out = append(out, a)
		}
	}
	if len(out) == 0 {
		return s.adapters
	}
	return out
}

func (s *Service) buildPlan(marketplace string, req Request) queryplan.QueryPlan {
	return queryplan.Build(queryplan.Input{
		Brand:             req.Brand,
		Model:             req.Model,
		Subtype:           req.ProductType,
		Identifier:        req.Identifier,
		VariantAttributes: req.VariantAttributes,
		Completeness:      req.Completeness,
		Marketplace:       marketplace,
	}, s.resolvers[marketplace])
}

func (s *Service) queryFor(req Request, plan queryplan.QueryPlan) adapter.Query {
	q := adapter.Query{
		Q:           plan.Q,
		Brand:       req.Brand,
		Model:       req.Model,
		ProductType: req.ProductType,
		Condition:   req.Condition,
		CountryCode: req.CountryCode,
		CategoryID:  plan.CategoryID,
		MaxResults:  50,
	}
	for _, f := range plan.Filters {
		q.Filters = append(q.Filters, string(f))
	}
	if req.Identifier != "" {
		q.Q = req.Identifier
	}
	return q
}

// filterAllAdapters applies each listing's own marketplace query plan
// (its filters/post-filter rules may differ per adapter) before
// merging survivors for aggregation.
func filterAllAdapters(listings []adapter.FetchedListing, plans map[string]queryplan.QueryPlan, rules filter.Rules) []adapter.FetchedListing {
	bySource := map[string][]adapter.FetchedListing{}
	order := []string{}
	for _, l := range listings {
		if _, ok := bySource[l.Source]; !ok {
			order = append(order, l.Source)
		}
		bySource[l.Source] = append(bySource[l.Source], l)
	}

	var survivors []adapter.FetchedListing
	for _, source := range order {
		plan, ok := plans[source]
		if !ok {
			plan = queryplan.QueryPlan{
				Filters:         []queryplan.Filter{queryplan.FilterExcludeParts, queryplan.FilterExcludeBundles},
				PostFilterRules: []queryplan.PostFilterRule{queryplan.PostFilterExcludeAccessoryLike},
			}
		}
		survivors = append(survivors, filter.Apply(bySource[source], plan, rules)...)
	}
	return survivors
}

func (s *Service) cacheKey(req Request) string {
	parts := []string{req.Brand, req.ProductType, req.Model, req.Condition, req.CountryCode, req.Identifier}
	parts = append(parts, cache.SortedPairs(req.VariantAttributes)...)
	parts = append(parts, cache.SortedList(req.Completeness)...)
	return cache.Key(parts...)
}

func taggedListings(o adapter.Outcome) []adapter.FetchedListing {
	out := make([]adapter.FetchedListing, len(o.Listings))
	for i, l := range o.Listings {
		if l.Source == "" {
			l.Source = o.AdapterID
		}
		out[i] = l
	}
	return out
}

func sourceSummaries(counts map[string]int) []SourceSummary {
	out := make([]SourceSummary, 0, len(counts))
	for marketplace, count := range counts {
		out = append(out, SourceSummary{Marketplace: marketplace, ListingCount: count})
	}
	return out
}

func firstCurrency(listings []cluster.NormalizedListing) string {
	if len(listings) == 0 {
		return "EUR"
	}
	return listings[0].Currency
}

func allTimedOut(outcomes []adapter.Outcome) bool {
	for _, o := range outcomes {
		if !o.TimedOut {
			return false
		}
	}
	return len(outcomes) > 0
}
