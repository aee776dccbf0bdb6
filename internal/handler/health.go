package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"valuation-catalog-api/internal/catalog"
	"valuation-catalog-api/internal/model"
)

// Pinger is satisfied by *pgxpool.Pool
type Pinger interface {
	Ping(ctx context.Context) error
}

// CatalogStatus is satisfied by *catalog.Manager
type CatalogStatus interface {
	State() catalog.State
	Snapshot() *catalog.Index
}

type HealthHandler struct {
	catalog CatalogStatus
	db      Pinger
}

// NewHealthHandler cria o handler; db pode ser nil quando o catalogo nao usa banco
func NewHealthHandler(catalog CatalogStatus, db Pinger) *HealthHandler {
	return &HealthHandler{catalog: catalog, db: db}
}

func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	response := model.HealthResponse{
		Status:    "ok",
		Catalog:   catalogStatus(h.catalog),
		Timestamp: time.Now(),
	}

	if h.db != nil {
		response.Database = "connected"
		if err := h.db.Ping(ctx); err != nil {
			response.Database = "disconnected"
			response.Status = "degraded"
		}
	}
	if response.Catalog.State == catalog.StateFailed.String() {
		response.Status = "degraded"
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

func catalogStatus(c CatalogStatus) model.CatalogStatus {
	status := model.CatalogStatus{State: c.State().String()}
	if index := c.Snapshot(); index != nil {
		createdAt := index.CreatedAt
		status.CreatedAt = &createdAt
		status.RowCount = index.RowCount
		status.Brands = index.BrandCount()
	}
	return status
}
