// Package filter implements the Listing Filter: it removes
// accessories, parts, and bundles from a fetched listing cohort per the
// query plan's filters and post-filter rules. The accessory/bundle
// pattern lists are domain-driven and therefore config input (an open
// question), never hardcoded.
package filter

import (
	"regexp"
	"strings"

	"github.com/your-org/scancore/internal/pricing/adapter"
	"github.com/your-org/scancore/internal/pricing/queryplan"
)

// Rules compiles the accessory/bundle regex patterns once so Apply can be
// called per-listing without recompiling.
type Rules struct {
	accessory []*regexp.Regexp
	bundle    []*regexp.Regexp
}

// NewRules compiles the configured pattern lists. An invalid pattern is
// skipped rather than failing the whole ruleset, since these are
// operator-editable config values, not code.
func NewRules(accessoryPatterns, bundlePatterns []string) Rules {
	return Rules{
		accessory: compileAll(accessoryPatterns),
		bundle:    compileAll(bundlePatterns),
	}
}

func compileAll(patterns []string) []*regexp.Regexp {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			continue
		}
		compiled = append(compiled, re)
	}
	return compiled
}

// Apply removes listings that match the plan's active filters and
// post-filter rules, returning the surviving subset. Order is preserved.
func Apply(listings []adapter.FetchedListing, plan queryplan.QueryPlan, rules Rules) []adapter.FetchedListing {
	excludeParts := hasFilter(plan.Filters, queryplan.FilterExcludeParts)
	excludeBundles := hasFilter(plan.Filters, queryplan.FilterExcludeBundles)
	excludeAccessoryLike := hasPostFilter(plan.PostFilterRules, queryplan.PostFilterExcludeAccessoryLike)

	survivors := make([]adapter.FetchedListing, 0, len(listings))
	for _, l := range listings {
		if l.Price <= 0 {
			continue
		}
		title := strings.ToLower(l.Title)
		if excludeAccessoryLike && matchesAny(rules.accessory, title) {
			continue
		}
		if excludeParts && matchesAny(rules.accessory, title) {
			continue
		}
		if excludeBundles && matchesAny(rules.bundle, title) {
			continue
		}
		survivors = append(survivors, l)
	}
	return survivors
}

// NoiseRatio is (totalFetched - surviving) / totalFetched, the trigger
// signal the V4 service uses to decide whether AI clustering runs
// step 5).
func NoiseRatio(totalFetched, surviving int) float64 {
	if totalFetched == 0 {
		return 0
	}
	return float64(totalFetched-surviving) / float64(totalFetched)
}

func hasFilter(filters []queryplan.Filter, f queryplan.Filter) bool {
	for _, x := range filters {
		if x == f {
			return true
		}
	}
	return false
}

func hasPostFilter(rules []queryplan.PostFilterRule, r queryplan.PostFilterRule) bool {
	for _, x := range rules {
		if x == r {
			return true
		}
	}
	return false
}

func matchesAny(patterns []*regexp.Regexp, text string) bool {
	for _, re := range patterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}
