package cluster

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/your-org/scancore/internal/pricing/adapter"
)

func listings() []adapter.FetchedListing {
	return []adapter.FetchedListing{
		{Title: "iPhone 13 128GB good condition", Source: "ebay"},
		{Title: "iPhone 13 case only", Source: "ebay"},
	}
}

func TestNormalize_TagsByIndex(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(clusterResponse{Tags: []listingTag{
			{Index: 0, Match: "HIGH", Condition: "GOOD"},
			{Index: 1, Match: "low", Condition: "UNKNOWN"},
		}})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", "cluster-mini", time.Second)
	got, err := c.Normalize(context.Background(), "iPhone 13", listings())
	if err != nil {
		t.Fatalf("Normalize returned error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len(got) = %d, want 2", len(got))
	}
	if got[0].MatchConfidence != ConfidenceHigh {
		t.Fatalf("got[0].MatchConfidence = %v, want HIGH", got[0].MatchConfidence)
	}
	if got[1].MatchConfidence != ConfidenceLow {
		t.Fatalf("got[1].MatchConfidence = %v, want LOW", got[1].MatchConfidence)
	}
}

func TestNormalize_EmptyInputReturnsNil(t *testing.T) {
	c := NewClient("http://unused.invalid", "", "cluster-mini", time.Second)
	got, err := c.Normalize(context.Background(), "iPhone 13", nil)
	if err != nil || got != nil {
		t.Fatalf("Normalize(nil) = %v, %v, want nil, nil", got, err)
	}
}

func TestNormalize_NonOKStatusIsNormalizationError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", "cluster-mini", time.Second)
	_, err := c.Normalize(context.Background(), "iPhone 13", listings())

	var nerr *NormalizationError
	if err == nil {
		t.Fatalf("Normalize returned nil error, want NormalizationError")
	}
	if !asNormalizationError(err, &nerr) {
		t.Fatalf("error %v is not a *NormalizationError", err)
	}
}

func asNormalizationError(err error, target **NormalizationError) bool {
	if ne, ok := err.(*NormalizationError); ok {
		*target = ne
		return true
	}
	return false
}

func TestKeepHighMed_DropsLowConfidence(t *testing.T) {
	in := []NormalizedListing{
		{MatchConfidence: ConfidenceHigh},
		{MatchConfidence: ConfidenceMed},
		{MatchConfidence: ConfidenceLow},
	}
	got := KeepHighMed(in)
	if len(got) != 2 {
		t.Fatalf("KeepHighMed returned %d listings, want 2", len(got))
	}
}

func TestAllAsHigh_TagsEverythingHigh(t *testing.T) {
	got := AllAsHigh(listings())
	for _, l := range got {
		if l.MatchConfidence != ConfidenceHigh {
			t.Fatalf("AllAsHigh produced %v, want HIGH for every listing", l.MatchConfidence)
		}
	}
}
