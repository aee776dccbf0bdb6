package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"valuation-catalog-api/internal/model"
)

// ValuationResolver is satisfied by *service.ValuationService
type ValuationResolver interface {
	Resolve(ctx context.Context, brand, reference, year string) (*model.ValuationRecord, error)
	Brands(ctx context.Context) (*model.BrandsResponse, error)
}

// CacheResetter is satisfied by *catalog.Manager
type CacheResetter interface {
	Reset()
}

type ValuationHandler struct {
	svc    ValuationResolver
	cache  CacheResetter
	logger *slog.Logger
}

func NewValuationHandler(svc ValuationResolver, cache CacheResetter, logger *slog.Logger) *ValuationHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ValuationHandler{svc: svc, cache: cache, logger: logger}
}

// Resolve busca o valor sugerido por marca, referencia e ano
func (h *ValuationHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	brand := queryParam(r, "brand", "marca")
	reference := queryParam(r, "reference", "referencia")
	year := queryParam(r, "year", "anio", "año")

	var missing []string
	if brand == "" {
		missing = append(missing, "brand")
	}
	if reference == "" {
		missing = append(missing, "reference")
	}
	if year == "" {
		missing = append(missing, "year")
	}
	if len(missing) > 0 {
		writeError(w, http.StatusBadRequest, "missing_param",
			"Parametros obrigatorios ausentes: "+strings.Join(missing, ", "))
		return
	}

	record, err := h.svc.Resolve(ctx, brand, reference, year)
	if err != nil {
		if ctx.Err() != nil {
			writeError(w, http.StatusGatewayTimeout, "timeout", "Tempo esgotado aguardando o catalogo")
			return
		}
		h.logger.Error("catalog unavailable", "error", err)
		writeError(w, http.StatusBadGateway, "catalog_unavailable", "Erro ao carregar o catalogo de valores")
		return
	}
	if record == nil {
		writeError(w, http.StatusNotFound, "not_found", "Nenhum valor encontrado para o veiculo informado")
		return
	}

	writeJSON(w, http.StatusOK, record)
}

// Brands lista as marcas do catalogo
func (h *ValuationHandler) Brands(w http.ResponseWriter, r *http.Request) {
	response, err := h.svc.Brands(r.Context())
	if err != nil {
		h.logger.Error("catalog unavailable", "error", err)
		writeError(w, http.StatusBadGateway, "catalog_unavailable", "Erro ao carregar o catalogo de valores")
		return
	}
	if response.Brands == nil {
		response.Brands = []model.BrandSummary{}
	}
	writeJSON(w, http.StatusOK, response)
}

// ResetCache descarta o indice atual; o proximo pedido reconstroi
func (h *ValuationHandler) ResetCache(w http.ResponseWriter, r *http.Request) {
	h.cache.Reset()
	w.WriteHeader(http.StatusNoContent)
}

func queryParam(r *http.Request, names ...string) string {
	q := r.URL.Query()
	for _, name := range names {
		if v := strings.TrimSpace(q.Get(name)); v != "" {
			return v
		}
	}
	return ""
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, model.ErrorResponse{
		Error:   code,
		Message: message,
	})
}
