package filter

import (
	"testing"

	"github.com/your-org/scancore/internal/pricing/adapter"
	"github.com/your-org/scancore/internal/pricing/queryplan"
)

func TestApply_ExcludesAccessoryLikeAndBundles(t *testing.T) {
	rules := NewRules([]string{"case", "charger"}, []string{"bundle", "lot of"})
	plan := queryplan.QueryPlan{
		Filters:         []queryplan.Filter{queryplan.FilterExcludeParts, queryplan.FilterExcludeBundles},
		PostFilterRules: []queryplan.PostFilterRule{queryplan.PostFilterExcludeAccessoryLike},
	}

	listings := []adapter.FetchedListing{
		{Title: "iPhone 13 128GB", Price: 400},
		{Title: "iPhone 13 charging case", Price: 15},
		{Title: "iPhone 13 bundle lot of 3", Price: 900},
		{Title: "Free item", Price: 0},
	}

	survivors := Apply(listings, plan, rules)
	if len(survivors) != 1 || survivors[0].Title != "iPhone 13 128GB" {
		t.Fatalf("survivors = %+v, want only the clean listing", survivors)
	}
}

func TestNoiseRatio(t *testing.T) {
	if got := NoiseRatio(10, 7); got != 0.3 {
		t.Fatalf("NoiseRatio(10,7) = %v, want 0.3", got)
	}
	if got := NoiseRatio(0, 0); got != 0 {
		t.Fatalf("NoiseRatio(0,0) = %v, want 0", got)
	}
}
