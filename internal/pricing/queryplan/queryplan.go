// Package queryplan builds deterministic per-marketplace query plans from
// an item tuple: the query text, category id (when a mapping
// exists), and the filter/post-filter rule sets downstream stages apply.
package queryplan

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Filter is one of the closed set of pre-filter rules a query plan carries.
type Filter string

const (
	FilterExcludeParts   Filter = "excludeParts"
	FilterExcludeBundles Filter = "excludeBundles"
)

// PostFilterRule is one of the closed set of post-filter rules applied
// after fetch, before aggregation.
type PostFilterRule string

const (
	PostFilterExcludeAccessoryLike PostFilterRule = "exclude_accessory_like"
)

// Telemetry records non-fatal notices from building the plan (e.g. a
// missing category mapping), surfaced to logs/metrics by the caller.
type Telemetry struct {
	Warnings []string
}

// QueryPlan is the deterministic output of Build for one (item, marketplace)
// pair.
type QueryPlan struct {
	Q               string
	CategoryID      string
	Filters         []Filter
	PostFilterRules []PostFilterRule
	Telemetry       Telemetry
}

// Input is the item tuple the plan is built from.
type Input struct {
	Brand             string
	Model             string
	Subtype           string // e.g. "electronics_smartphone"
	Identifier        string // optional EAN/UPC
	VariantAttributes map[string]string
	Completeness      []string
	Marketplace       string
}

// CategoryResolver resolves a normalized subtype to a marketplace-specific
// category id, e.g. eBay's "sacat" numeric category.
type CategoryResolver struct {
	bySubtype map[string]string
}

// LoadCategoryResolver reads a JSON mapping {subtype: categoryId} from
// catalogDir/<marketplace>_categories.json. A missing file is not an
// error: the resolver simply never resolves, and Build records a warning.
func LoadCategoryResolver(catalogDir, marketplace string) (*CategoryResolver, error) {
	path := filepath.Join(catalogDir, fmt.Sprintf("%s_categories.json", marketplace))
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &CategoryResolver{bySubtype: map[string]string{}}, nil
		}
		return nil, fmt.Errorf("read category mapping %s: %w", path, err)
	}

	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse category mapping %s: %w", path, err)
	}
	return &CategoryResolver{bySubtype: raw}, nil
}

func (r *CategoryResolver) resolve(subtype string) (string, bool) {
	id, ok := r.bySubtype[normalize(subtype)]
	return id, ok
}

// Build produces a deterministic QueryPlan for one marketplace.
func Build(in Input, resolver *CategoryResolver) QueryPlan {
	plan := QueryPlan{
		Filters:         []Filter{FilterExcludeParts, FilterExcludeBundles},
		PostFilterRules: []PostFilterRule{PostFilterExcludeAccessoryLike},
	}

	plan.Q = buildQueryText(in)

	if resolver != nil && in.Subtype != "" {
		if id, ok := resolver.resolve(in.Subtype); ok {
			plan.CategoryID = id
		} else {
			plan.Telemetry.Warnings = append(plan.Telemetry.Warnings,
				fmt.Sprintf("no category mapping for subtype %q on marketplace %q", in.Subtype, in.Marketplace))
		}
	}

	return plan
}

func buildQueryText(in Input) string {
	if in.Brand == "" && in.Model == "" {
		if in.Identifier != "" {
			return in.Identifier
		}
		return in.Subtype
	}

	terms := map[string]struct{}{}
	if in.Brand != "" {
		terms[in.Brand] = struct{}{}
	}
	if in.Model != "" {
		terms[in.Model] = struct{}{}
	}
	for _, v := range in.VariantAttributes {
		if v != "" {
			terms[v] = struct{}{}
		}
	}

	sorted := make([]string, 0, len(terms))
	for t := range terms {
		sorted = append(sorted, t)
	}
	sort.Strings(sorted)

	return strings.Join(sorted, " ")
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
