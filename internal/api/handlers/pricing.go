package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/your-org/scancore/internal/pricing/v3"
	"github.com/your-org/scancore/internal/pricing/v4"
	"github.com/your-org/scancore/pkg/dto"
)

// PricingHandler serves the HTTP boundary for /v1/pricing/v3 and
// /v1/pricing/v4.
type PricingHandler struct {
	v3            *v3.Service
	v4            *v4.Service
	promptVersion string
}

func NewPricingHandler(v3svc *v3.Service, v4svc *v4.Service, promptVersion string) *PricingHandler {
	return &PricingHandler{v3: v3svc, v4: v4svc, promptVersion: promptVersion}
}

// V3 handles POST /v1/pricing/v3.
func (h *PricingHandler) V3(c *gin.Context) {
	var req dto.PricingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Success: false, Error: "INVALID_REQUEST", Reason: err.Error()})
		return
	}

	if h.v3 == nil {
		c.JSON(http.StatusServiceUnavailable, dto.ErrorResponse{Success: false, Error: "DISABLED"})
		return
	}

	start := time.Now()
	est := h.v3.Estimate(c.Request.Context(), v3.Request{
		Brand:       req.Brand,
		ProductType: req.ProductType,
		Model:       req.Model,
		Condition:   req.Condition,
		CountryCode: req.CountryCode,
	})
	elapsed := time.Since(start)

	status, httpStatus := mapV3Status(est.Status)
	resp := dto.V3Response{
		Success: httpStatus == http.StatusOK,
		Pricing: dto.V3Pricing{
			Status:      status,
			CountryCode: req.CountryCode,
			Reason:      est.Reason,
		},
		Cached:           elapsed < time.Millisecond, // a cache hit resolves essentially instantly
		ProcessingTimeMs: elapsed.Milliseconds(),
		PromptVersion:    h.promptVersion,
	}
	if est.Status == v3.StatusOK {
		resp.Pricing.Range = &dto.PriceRange{Low: est.Low, Median: (est.Low + est.High) / 2, High: est.High, Currency: est.Currency}
		resp.Pricing.Confidence = est.Confidence
		resp.Pricing.ResultCount = 1
	}

	c.JSON(httpStatus, resp)
}

// V4 handles POST /v1/pricing/v4.
func (h *PricingHandler) V4(c *gin.Context) {
	var req dto.PricingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Success: false, Error: "INVALID_REQUEST", Reason: err.Error()})
		return
	}

	if h.v4 == nil {
		c.JSON(http.StatusServiceUnavailable, dto.ErrorResponse{Success: false, Error: "DISABLED"})
		return
	}

	start := time.Now()
	insights := h.v4.Price(c.Request.Context(), v4.Request{
		ItemID:                req.ItemID,
		Brand:                 req.Brand,
		ProductType:           req.ProductType,
		Model:                 req.Model,
		Condition:             req.Condition,
		CountryCode:           req.CountryCode,
		PreferredMarketplaces: req.PreferredMarketplaces,
		VariantAttributes:     req.VariantAttributes,
		Completeness:          req.Completeness,
		Identifier:            req.Identifier,
	})
	elapsed := time.Since(start)

	httpStatus := mapV4Status(insights.Status)
	resp := dto.V4Response{
		Success: httpStatus == http.StatusOK,
		Pricing: dto.V4Pricing{
			Status:                string(insights.Status),
			CountryCode:           req.CountryCode,
			Sources:               toSourceSummaries(insights.Sources),
			TotalListingsAnalyzed: insights.TotalListingsAnalyzed,
			TimeWindowDays:        insights.TimeWindowDays,
			Confidence:            string(insights.Confidence),
			FallbackReason:        insights.FallbackReason,
		},
		Cached:           elapsed < time.Millisecond,
		ProcessingTimeMs: elapsed.Milliseconds(),
	}
	if insights.Range != nil {
		resp.Pricing.Range = &dto.PriceRange{
			Low: insights.Range.Low, Median: insights.Range.Median,
			High: insights.Range.High, Currency: insights.Range.Currency,
		}
	}
	for _, l := range insights.Samples {
		resp.Pricing.SampleListings = append(resp.Pricing.SampleListings, dto.SampleListing{
			Title: l.Title, Price: l.Price, Currency: l.Currency,
			Condition: l.NormalizedCondition, URL: l.URL, Source: l.Source,
		})
	}

	c.JSON(httpStatus, resp)
}

func toSourceSummaries(sources []v4.SourceSummary) []dto.SourceSummary {
	out := make([]dto.SourceSummary, 0, len(sources))
	for _, s := range sources {
		out = append(out, dto.SourceSummary{Marketplace: s.Marketplace, ListingCount: s.ListingCount})
	}
	return out
}

func mapV3Status(s v3.Status) (string, int) {
	switch s {
	case v3.StatusOK:
		return "OK", http.StatusOK
	case v3.StatusDisabled:
		return "DISABLED", http.StatusServiceUnavailable
	case v3.StatusTimeout:
		return "TIMEOUT", http.StatusGatewayTimeout
	case v3.StatusRateLimited:
		return "RATE_LIMITED", http.StatusTooManyRequests
	default:
		return "ERROR", http.StatusInternalServerError
	}
}

func mapV4Status(s v4.Status) int {
	switch s {
	case v4.StatusOK, v4.StatusNoResults, v4.StatusFallback:
		return http.StatusOK
	case v4.StatusTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
