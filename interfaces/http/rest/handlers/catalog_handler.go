package handlers

import (
	"net/http"

	"studio-backend/application/services"
)

// CatalogHandler serves the node type catalog
type CatalogHandler struct {
	catalogs services.CatalogSource
}

// NewCatalogHandler creates a catalog handler
func NewCatalogHandler(catalogs services.CatalogSource) *CatalogHandler {
	return &CatalogHandler{catalogs: catalogs}
}

// GetCatalog handles GET /api/catalog
func (h *CatalogHandler) GetCatalog(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"nodeTypes": h.catalogs.Current().Types(),
	})
}
