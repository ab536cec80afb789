package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/your-org/scancore/internal/pricing/catalog"
	"github.com/your-org/scancore/pkg/dto"
)

// CatalogHandler serves GET /v1/catalog/{subtype}/brands and
// GET /v1/catalog/{subtype}/models.
type CatalogHandler struct {
	store *catalog.Store
}

func NewCatalogHandler(store *catalog.Store) *CatalogHandler {
	return &CatalogHandler{store: store}
}

const catalogCacheControl = "public, max-age=3600"

func (h *CatalogHandler) Brands(c *gin.Context) {
	subtype := c.Param("subtype")
	c.Header("Cache-Control", catalogCacheControl)
	c.JSON(http.StatusOK, dto.BrandListResponse{Brands: h.store.Brands(subtype)})
}

func (h *CatalogHandler) Models(c *gin.Context) {
	subtype := c.Param("subtype")
	brand := c.Query("brand")
	if brand == "" {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Success: false, Error: "INVALID_REQUEST", Reason: "brand query parameter is required"})
		return
	}
	c.Header("Cache-Control", catalogCacheControl)
	c.JSON(http.StatusOK, dto.ModelListResponse{Brand: brand, Models: h.store.Models(subtype, brand)})
}
