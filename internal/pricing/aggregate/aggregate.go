// Package aggregate implements the Price Aggregator: it
// produces a verifiable (p25, median, p75) range over a listing cohort's
// prices, picks a currency, and scores a confidence tier from sample
// size and noise ratio.
package aggregate

import (
	"sort"

	"github.com/your-org/scancore/internal/pricing/cluster"
)

// Confidence mirrors cluster.Confidence's closed set for the final
// pricing result.
type Confidence string

const (
	ConfidenceHigh Confidence = "HIGH"
	ConfidenceMed  Confidence = "MED"
	ConfidenceLow  Confidence = "LOW"
)

// Range is the (low, median, high, currency) verifiable range.
type Range struct {
	Low      float64
	Median   float64
	High     float64
	Currency string
}

// Aggregate computes a Range over the survivors' prices
// (p25 <= median <= p75). Identical listings (every field equal) count
// once, so duplicates don't change the result; distinct listings that
// share a price each contribute.
// Returns ok=false when there are no survivors.
func Aggregate(listings []cluster.NormalizedListing, fallbackCurrency string) (Range, bool) {
	if len(listings) == 0 {
		return Range{}, false
	}

	seen := make(map[cluster.NormalizedListing]bool, len(listings))
	prices := make([]float64, 0, len(listings))
	for _, l := range listings {
		if seen[l] {
			continue
		}
		seen[l] = true
		prices = append(prices, l.Price)
	}
	sort.Float64s(prices)

	return Range{
		Low:      percentile(prices, 0.25),
		Median:   percentile(prices, 0.5),
		High:     percentile(prices, 0.75),
		Currency: modeCurrency(listings, fallbackCurrency),
	}, true
}

// percentile interpolates linearly between the two order statistics
// straddling p (the "type 7" definition: for a two-element cohort,
// percentile(0.5) is the mean of the two values, not either one of
// them). gonum's stat.Quantile has no cumulant kind that does this: its
// Empirical kind returns a raw order statistic, and its LinInterp kind
// still lands exactly on a lower order statistic whenever h is a whole
// number, so median([120,140]) would come back 120 under either one.
func percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return sorted[0]
	}
	h := p * float64(n-1)
	lo := int(h)
	frac := h - float64(lo)
	if lo >= n-1 {
		return sorted[n-1]
	}
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}

// modeCurrency picks the most frequent currency among survivors,
// tie-breaking on the first listing's currency, falling back to "EUR"
// when nothing survives (this implementation takes the mode).
func modeCurrency(listings []cluster.NormalizedListing, fallback string) string {
	if len(listings) == 0 {
		if fallback != "" {
			return fallback
		}
		return "EUR"
	}

	counts := map[string]int{}
	order := map[string]int{}
	for i, l := range listings {
		cur := l.Currency
		if cur == "" {
			continue
		}
		counts[cur]++
		if _, seen := order[cur]; !seen {
			order[cur] = i
		}
	}
	if len(counts) == 0 {
		if fallback != "" {
			return fallback
		}
		return "EUR"
	}

	best := ""
	bestCount := -1
	bestOrder := len(listings) + 1
	for cur, count := range counts {
		if count > bestCount || (count == bestCount && order[cur] < bestOrder) {
			best = cur
			bestCount = count
			bestOrder = order[cur]
		}
	}
	return best
}

// Confidence scores the result confidence from sample size and noise
// ratio.
func ScoreConfidence(sampleSize int, noiseRatio float64) Confidence {
	switch {
	case sampleSize >= 10 && noiseRatio < 0.3:
		return ConfidenceHigh
	case sampleSize >= 5:
		return ConfidenceMed
	default:
		return ConfidenceLow
	}
}

// SelectSamples picks up to max sample listings, preferring one per
// distinct normalized condition before filling any remaining slots from
// whatever listings are left, regardless of condition.
func SelectSamples(listings []cluster.NormalizedListing, max int) []cluster.NormalizedListing {
	if len(listings) <= max {
		out := make([]cluster.NormalizedListing, len(listings))
		copy(out, listings)
		return out
	}

	seenCond := map[string]bool{}
	included := map[int]bool{}
	var samples []cluster.NormalizedListing

	for i, l := range listings {
		if len(samples) >= max {
			break
		}
		cond := l.NormalizedCondition
		if cond == "" || seenCond[cond] {
			continue
		}
		seenCond[cond] = true
		included[i] = true
		samples = append(samples, l)
	}
	for i, l := range listings {
		if len(samples) >= max {
			break
		}
		if included[i] {
			continue
		}
		samples = append(samples, l)
	}
	return samples
}
