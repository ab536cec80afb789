// Package v3 implements the V3 single-shot LLM estimator: a
// pure-function-with-respect-to-its-inputs service that asks an LLM for
// a {low, high, currency, confidence, why} estimate, validates the JSON
// shape, and caches the result. It is used both directly (behind the
// /v1/pricing/v3 HTTP endpoint) and as the V4 service's fallback when
// every marketplace adapter fails.
package v3

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/your-org/scancore/internal/pricing/cache"
)

// Status is the closed set of V3 result statuses.
type Status string

const (
	StatusOK          Status = "OK"
	StatusError       Status = "ERROR"
	StatusDisabled    Status = "DISABLED"
	StatusTimeout     Status = "TIMEOUT"
	StatusRateLimited Status = "RATE_LIMITED"
)

// Request is the V3 input tuple.
type Request struct {
	Brand       string
	ProductType string
	Model       string
	Condition   string
	CountryCode string
}

// Estimate is the validated {low, high, currency, confidence, why} result.
type Estimate struct {
	Status     Status
	Low        float64
	High       float64
	Currency   string
	Confidence string
	Why        string
	Reason     string
}

const maxWhyChars = 200

// Service is the V3 single-shot estimator.
type Service struct {
	enabled  bool
	endpoint string
	apiKey   string
	model    string
	http     *http.Client
	cache    *cache.Cache
}

func NewService(enabled bool, endpoint, apiKey, model string, timeout time.Duration, c *cache.Cache) *Service {
	return &Service{
		enabled:  enabled,
		endpoint: endpoint,
		apiKey:   apiKey,
		model:    model,
		http:     &http.Client{Timeout: timeout},
		cache:    c,
	}
}

// Estimate runs the V3 algorithm: cache lookup, then (on miss) a
// token-budgeted prompt to the LLM, JSON validation, and a fresh cache
// write.
func (s *Service) Estimate(ctx context.Context, req Request) Estimate {
	if !s.enabled {
		return Estimate{Status: StatusDisabled, Reason: "disabled"}
	}

	key := cache.Key(req.Brand, req.ProductType, req.Model, req.Condition, req.CountryCode)
	if s.cache != nil {
		if raw, ok := s.cache.Get(key); ok {
			var est Estimate
			if err := json.Unmarshal(raw, &est); err == nil {
				return est
			}
		}
	}

	est := s.estimateLive(ctx, req)
	if est.Status == StatusOK && s.cache != nil {
		if raw, err := json.Marshal(est); err == nil {
			s.cache.Set(key, raw)
		}
	}
	return est
}

type llmRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type llmResponse struct {
	Low        float64 `json:"low"`
	High       float64 `json:"high"`
	Currency   string  `json:"cur"`
	Confidence string  `json:"conf"`
	Why        string  `json:"why"`
}

func (s *Service) estimateLive(ctx context.Context, req Request) Estimate {
	prompt := buildPrompt(req)

	body, err := json.Marshal(llmRequest{Model: s.model, Prompt: prompt})
	if err != nil {
		return Estimate{Status: StatusError, Reason: err.Error()}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return Estimate{Status: StatusError, Reason: err.Error()}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.http.Do(httpReq)
	if err != nil {
		return classifyTransportError(ctx, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return Estimate{Status: StatusRateLimited, Reason: "rate limited"}
	}
	if resp.StatusCode != http.StatusOK {
		return Estimate{Status: StatusError, Reason: fmt.Sprintf("status %d", resp.StatusCode)}
	}

	var out llmResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Estimate{Status: StatusError, Reason: "invalid json: " + err.Error()}
	}

	if out.Low <= 0 || out.Low > out.High {
		return Estimate{Status: StatusError, Reason: "invalid range: low/high must satisfy 0 < low <= high"}
	}

	why := out.Why
	if len(why) > maxWhyChars {
		why = why[:maxWhyChars]
	}

	return Estimate{
		Status:     StatusOK,
		Low:        out.Low,
		High:       out.High,
		Currency:   out.Currency,
		Confidence: out.Confidence,
		Why:        why,
	}
}

func classifyTransportError(ctx context.Context, err error) Estimate {
	if ctx.Err() != nil {
		return Estimate{Status: StatusTimeout, Reason: "timeout"}
	}
	if strings.Contains(strings.ToLower(err.Error()), "timeout") {
		return Estimate{Status: StatusTimeout, Reason: "timeout"}
	}
	if strings.Contains(strings.ToLower(err.Error()), "rate limit") {
		return Estimate{Status: StatusRateLimited, Reason: "rate limited"}
	}
	return Estimate{Status: StatusError, Reason: err.Error()}
}

// buildPrompt keeps to a token budget of roughly 250 tokens.
func buildPrompt(req Request) string {
	return fmt.Sprintf(
		"Estimate a resale price range in the local currency for a used %s %s %s in %s condition, sold in %s. "+
			"Respond with compact JSON only: {\"low\":number,\"high\":number,\"cur\":\"XXX\",\"conf\":\"HIGH|MED|LOW\",\"why\":\"<=200 chars\"}.",
		req.Brand, req.Model, req.ProductType, req.Condition, req.CountryCode,
	)
}
