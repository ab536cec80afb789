package adapter

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestFetchAll_IsolatesAFailingAdapterFromTheRest(t *testing.T) {
	good := &StaticAdapter{Name: "ebay", Listings: []FetchedListing{{Title: "iPhone 13"}}}
	bad := &StaticAdapter{Name: "marktplaats", Err: errors.New("boom")}

	outcomes := FetchAll(context.Background(), []Request{
		{Adapter: good, Query: Query{Q: "iphone 13"}},
		{Adapter: bad, Query: Query{Q: "iphone 13"}},
	}, time.Second)

	if len(outcomes) != 2 {
		t.Fatalf("len(outcomes) = %d, want 2", len(outcomes))
	}

	byID := map[string]Outcome{}
	for _, o := range outcomes {
		byID[o.AdapterID] = o
	}
	if byID["ebay"].Err != nil || len(byID["ebay"].Listings) != 1 {
		t.Fatalf("ebay outcome = %+v, want one successful listing", byID["ebay"])
	}
	if byID["marktplaats"].Err == nil {
		t.Fatalf("marktplaats outcome = %+v, want an error", byID["marktplaats"])
	}
}

func TestFetchAll_SlowAdapterTimesOutWithoutBlockingOthers(t *testing.T) {
	slow := &slowAdapter{name: "slow", delay: 50 * time.Millisecond}
	fast := &StaticAdapter{Name: "fast", Listings: []FetchedListing{{Title: "x"}}}

	start := time.Now()
	outcomes := FetchAll(context.Background(), []Request{
		{Adapter: slow},
		{Adapter: fast},
	}, 5*time.Millisecond)
	elapsed := time.Since(start)

	if elapsed > 40*time.Millisecond {
		t.Fatalf("FetchAll took %v, want it bounded by the adapter timeout, not the slow adapter's delay", elapsed)
	}

	var slowOutcome Outcome
	for _, o := range outcomes {
		if o.AdapterID == "slow" {
			slowOutcome = o
		}
	}
	if !slowOutcome.TimedOut {
		t.Fatalf("slow outcome = %+v, want TimedOut = true", slowOutcome)
	}
}

func TestSuccessfulListings_SkipsFailedOutcomesAndTagsSource(t *testing.T) {
	outcomes := []Outcome{
		{AdapterID: "ebay", Listings: []FetchedListing{{Title: "a"}}},
		{AdapterID: "marktplaats", Err: errors.New("boom")},
	}
	got := SuccessfulListings(outcomes)
	if len(got) != 1 || got[0].Source != "ebay" {
		t.Fatalf("SuccessfulListings = %+v, want one listing tagged ebay", got)
	}
}

func TestAllFailed(t *testing.T) {
	if AllFailed([]Outcome{{Err: nil}, {Err: errors.New("x")}}) {
		t.Fatalf("AllFailed = true, want false when one outcome succeeded")
	}
	if !AllFailed([]Outcome{{Err: errors.New("x")}, {Err: errors.New("y")}}) {
		t.Fatalf("AllFailed = false, want true when every outcome errored")
	}
}

type slowAdapter struct {
	name  string
	delay time.Duration
}

func (s *slowAdapter) ID() string { return s.name }

func (s *slowAdapter) FetchListings(ctx context.Context, q Query) ([]FetchedListing, error) {
	select {
	case <-time.After(s.delay):
		return nil, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *slowAdapter) BuildSearchURL(q Query) string { return "" }
func (s *slowAdapter) IsHealthy(ctx context.Context) bool { return true }
