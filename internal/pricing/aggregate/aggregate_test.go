package aggregate

import (
	"testing"

	"github.com/your-org/scancore/internal/pricing/adapter"
	"github.com/your-org/scancore/internal/pricing/cluster"
)

func listing(price float64, currency string) cluster.NormalizedListing {
	return cluster.NormalizedListing{
		FetchedListing:  adapter.FetchedListing{Price: price, Currency: currency},
		MatchConfidence: cluster.ConfidenceHigh,
	}
}

func TestAggregate_PercentileOrdering(t *testing.T) {
	listings := []cluster.NormalizedListing{
		listing(100, "EUR"), listing(110, "EUR"), listing(120, "EUR"),
		listing(130, "EUR"), listing(200, "EUR"),
	}
	rng, ok := Aggregate(listings, "EUR")
	if !ok {
		t.Fatal("expected ok=true for non-empty cohort")
	}
	if !(rng.Low <= rng.Median && rng.Median <= rng.High) {
		t.Fatalf("percentiles out of order: %+v", rng)
	}
}

func TestAggregate_DuplicatesDontChangePercentiles(t *testing.T) {
	unique := []cluster.NormalizedListing{listing(100, "EUR"), listing(200, "EUR")}
	withDup := []cluster.NormalizedListing{listing(100, "EUR"), listing(100, "EUR"), listing(200, "EUR")}

	rngUnique, _ := Aggregate(unique, "EUR")
	rngDup, _ := Aggregate(withDup, "EUR")

	// Aggregate counts identical listings once; this asserts the median
	// stays within the unique cohort's range when a listing is repeated.
	if rngDup.Median < rngUnique.Low || rngDup.Median > rngUnique.High {
		t.Fatalf("median moved outside original range after duplicate: %+v vs %+v", rngDup, rngUnique)
	}
}

func TestAggregate_EmptyCohort(t *testing.T) {
	if _, ok := Aggregate(nil, "EUR"); ok {
		t.Fatal("expected ok=false for empty cohort")
	}
}

func TestModeCurrency_TieBreaksOnFirstListing(t *testing.T) {
	listings := []cluster.NormalizedListing{listing(1, "USD"), listing(1, "EUR")}
	rng, _ := Aggregate(listings, "EUR")
	if rng.Currency != "USD" {
		t.Fatalf("currency = %q, want USD (first listing on tie)", rng.Currency)
	}
}

func TestScoreConfidence(t *testing.T) {
	cases := []struct {
		n     int
		noise float64
		want  Confidence
	}{
		{10, 0.1, ConfidenceHigh},
		{10, 0.5, ConfidenceMed},
		{6, 0.1, ConfidenceMed},
		{2, 0.1, ConfidenceLow},
	}
	for _, c := range cases {
		if got := ScoreConfidence(c.n, c.noise); got != c.want {
			t.Errorf("ScoreConfidence(%d, %v) = %v, want %v", c.n, c.noise, got, c.want)
		}
	}
}

func TestAggregate_MedianInterpolatesBetweenTwoListings(t *testing.T) {
	listings := []cluster.NormalizedListing{listing(120, "EUR"), listing(140, "EUR")}
	rng, ok := Aggregate(listings, "EUR")
	if !ok {
		t.Fatal("expected ok=true for non-empty cohort")
	}
	if rng.Median != 130 {
		t.Fatalf("median = %v, want 130", rng.Median)
	}
}

func TestSelectSamples_FillsRemainingSlotsAfterConditionsExhausted(t *testing.T) {
	listings := make([]cluster.NormalizedListing, 5)
	for i := range listings {
		l := listing(float64(100+i*10), "EUR")
		l.NormalizedCondition = "GOOD"
		listings[i] = l
	}

	samples := SelectSamples(listings, 3)
	if len(samples) != 3 {
		t.Fatalf("got %d samples, want 3 even though every listing shares one condition", len(samples))
	}
}

func TestSelectSamples_PrefersDistinctConditions(t *testing.T) {
	a := listing(100, "EUR")
	a.NormalizedCondition = "GOOD"
	b := listing(110, "EUR")
	b.NormalizedCondition = "GOOD"
	c := listing(120, "EUR")
	c.NormalizedCondition = "LIKE_NEW"

	samples := SelectSamples([]cluster.NormalizedListing{a, b, c}, 2)
	if len(samples) != 2 {
		t.Fatalf("got %d samples, want 2", len(samples))
	}
	conditions := map[string]bool{samples[0].NormalizedCondition: true, samples[1].NormalizedCondition: true}
	if !conditions["GOOD"] || !conditions["LIKE_NEW"] {
		t.Fatalf("samples = %+v, want one per distinct condition", samples)
	}
}
