package dto

// PricingRequest is the common body shape for /v1/pricing/v3 and /v1/pricing/v4.
type PricingRequest struct {
	ItemID                string            `json:"itemId" binding:"required"`
	Brand                 string            `json:"brand" binding:"required"`
	ProductType           string            `json:"productType" binding:"required"`
	Model                 string            `json:"model"`
	Condition             string            `json:"condition" binding:"required,oneof=NEW_SEALED NEW_WITH_TAGS NEW_WITHOUT_TAGS LIKE_NEW GOOD FAIR POOR"`
	CountryCode           string            `json:"countryCode" binding:"required,len=2"`
	PreferredMarketplaces []string          `json:"preferredMarketplaces,omitempty"`
	VariantAttributes     map[string]string `json:"variantAttributes,omitempty"`
	Completeness          []string          `json:"completeness,omitempty"`
	Identifier            string            `json:"identifier,omitempty"`
}

// PriceRange is the {low, median, high, currency} verifiable range.
type PriceRange struct {
	Low      float64 `json:"low"`
	Median   float64 `json:"median"`
	High     float64 `json:"high"`
	Currency string  `json:"currency"`
}

// V3Pricing is the pricing block returned under /v1/pricing/v3.
type V3Pricing struct {
	Status           string      `json:"status"` // OK | ERROR | DISABLED | TIMEOUT | RATE_LIMITED
	CountryCode      string      `json:"countryCode"`
	MarketplacesUsed []string    `json:"marketplacesUsed,omitempty"`
	Range            *PriceRange `json:"range,omitempty"`
	Confidence       string      `json:"confidence,omitempty"`
	Reason           string      `json:"reason,omitempty"`
	ResultCount      int         `json:"resultCount,omitempty"`
}

// V3Response is the full envelope returned by /v1/pricing/v3.
type V3Response struct {
	Success          bool      `json:"success"`
	Pricing          V3Pricing `json:"pricing"`
	Cached           bool      `json:"cached"`
	ProcessingTimeMs int64     `json:"processingTimeMs"`
	PromptVersion    string    `json:"promptVersion"`
}

// SampleListing is one of up to three listings surfaced for manual review.
type SampleListing struct {
	Title     string  `json:"title"`
	Price     float64 `json:"price"`
	Currency  string  `json:"currency"`
	Condition string  `json:"condition,omitempty"`
	URL       string  `json:"url,omitempty"`
	Source    string  `json:"source"`
}

// V4Pricing is the pricing block returned under /v1/pricing/v4.
type V4Pricing struct {
	Status                string          `json:"status"` // OK | NO_RESULTS | FALLBACK | ERROR | TIMEOUT
	CountryCode           string          `json:"countryCode"`
	Sources               []SourceSummary `json:"sources,omitempty"`
	TotalListingsAnalyzed int             `json:"totalListingsAnalyzed"`
	TimeWindowDays        int             `json:"timeWindowDays"`
	Range                 *PriceRange     `json:"range,omitempty"`
	SampleListings        []SampleListing `json:"sampleListings,omitempty"`
	Confidence            string          `json:"confidence,omitempty"`
	FallbackReason        string          `json:"fallbackReason,omitempty"`
}

// SourceSummary reports how many listings a single marketplace contributed.
type SourceSummary struct {
	Marketplace  string `json:"marketplace"`
	ListingCount int    `json:"listingCount"`
}

// V4Response is the full envelope returned by /v1/pricing/v4.
type V4Response struct {
	Success          bool      `json:"success"`
	Pricing          V4Pricing `json:"pricing"`
	Cached           bool      `json:"cached"`
	ProcessingTimeMs int64     `json:"processingTimeMs"`
}

// ErrorResponse is returned for every non-2xx pricing response.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Reason  string `json:"reason,omitempty"`
}
