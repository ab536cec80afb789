package v3

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/your-org/scancore/internal/pricing/cache"
)

func req() Request {
	return Request{Brand: "Apple", ProductType: "electronics_smartphone", Model: "iPhone 13", Condition: "GOOD", CountryCode: "NL"}
}

func TestEstimate_Disabled(t *testing.T) {
	svc := NewService(false, "", "", "", time.Second, nil)
	got := svc.Estimate(context.Background(), req())
	if got.Status != StatusDisabled {
		t.Fatalf("status = %v, want DISABLED", got.Status)
	}
}

func TestEstimate_OK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(llmResponse{Low: 100, High: 200, Currency: "EUR", Confidence: "MED", Why: "typical asking price"})
	}))
	defer srv.Close()

	svc := NewService(true, srv.URL, "", "estimate-mini", time.Second, nil)
	got := svc.Estimate(context.Background(), req())
	if got.Status != StatusOK {
		t.Fatalf("status = %v, want OK", got.Status)
	}
	if got.Low != 100 || got.High != 200 || got.Currency != "EUR" {
		t.Fatalf("estimate = %+v, want {100 200 EUR}", got)
	}
}

func TestEstimate_InvalidRangeIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(llmResponse{Low: 200, High: 100, Currency: "EUR"})
	}))
	defer srv.Close()

	svc := NewService(true, srv.URL, "", "estimate-mini", time.Second, nil)
	got := svc.Estimate(context.Background(), req())
	if got.Status != StatusError {
		t.Fatalf("status = %v, want ERROR for low > high", got.Status)
	}
}

func TestEstimate_RateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	svc := NewService(true, srv.URL, "", "estimate-mini", time.Second, nil)
	got := svc.Estimate(context.Background(), req())
	if got.Status != StatusRateLimited {
		t.Fatalf("status = %v, want RATE_LIMITED", got.Status)
	}
}

func TestEstimate_CacheHitSkipsLiveCall(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		json.NewEncoder(w).Encode(llmResponse{Low: 100, High: 200, Currency: "EUR"})
	}))
	defer srv.Close()

	c := cache.New(time.Hour, time.Hour)
	defer c.Close()

	svc := NewService(true, srv.URL, "", "estimate-mini", time.Second, c)
	first := svc.Estimate(context.Background(), req())
	second := svc.Estimate(context.Background(), req())

	if calls != 1 {
		t.Fatalf("live endpoint called %d times, want 1", calls)
	}
	if second.Low != first.Low || second.High != first.High {
		t.Fatalf("cached estimate = %+v, want it to match first call %+v", second, first)
	}
}

func TestBuildPrompt_MentionsAllFields(t *testing.T) {
	p := buildPrompt(req())
	for _, want := range []string{"Apple", "iPhone 13", "electronics_smartphone", "GOOD", "NL"} {
		if !strings.Contains(p, want) {
			t.Fatalf("prompt %q missing %q", p, want)
		}
	}
}
