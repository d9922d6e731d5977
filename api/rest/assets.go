package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/platemarket/resource"
)

// AssetHandler serves the static asset lookup.
type AssetHandler struct {
	catalog *resource.Catalog
}

// NewAssetHandler creates an AssetHandler.
func NewAssetHandler(catalog *resource.Catalog) *AssetHandler {
	return &AssetHandler{catalog: catalog}
}

// Lookup handles GET /api/assets/:key. Unknown keys resolve to the default
// asset with found=false.
func (h *AssetHandler) Lookup(c *gin.Context) {
	a, found := h.catalog.Lookup(c.Param("key"))
	c.JSON(http.StatusOK, gin.H{
		"key":         c.Param("key"),
		"found":       found,
		"image":       a.Image,
		"sound":       a.Sound,
		"engine_type": a.EngineType,
	})
}
