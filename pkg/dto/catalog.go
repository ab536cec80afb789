package dto

// BrandListResponse is returned by GET /v1/catalog/{subtype}/brands.
type BrandListResponse struct {
	Brands []string `json:"brands"`
}

// ModelListResponse is returned by GET /v1/catalog/{subtype}/models?brand=….
type ModelListResponse struct {
	Brand  string   `json:"brand"`
	Models []string `json:"models"`
}
