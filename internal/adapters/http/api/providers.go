package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/fixitall/intake/internal/domain/provider"
	"github.com/fixitall/intake/pkg/logger"
	"github.com/fixitall/intake/pkg/metrics"
)

// Response messages for GET /providers.
const (
	msgMissingCategory   = "Missing category"
	msgProviderFileError = "Error reading provider file: "
)

// ProvidersDependencies defines what the lookup endpoint needs.
type ProvidersDependencies interface {
	Providers(ctx context.Context, category string) ([]provider.Record, error)
}

// ProvidersHandler handles provider lookup requests.
type ProvidersHandler struct {
	deps   ProvidersDependencies
	logger logger.Logger
}

// NewProvidersHandler creates a new provider lookup handler.
func NewProvidersHandler(deps ProvidersDependencies, l logger.Logger) *ProvidersHandler {
	return &ProvidersHandler{deps: deps, logger: l}
}

type providersResponse struct {
	Success   bool              `json:"success"`
	Providers []json.RawMessage `json:"providers"`
}

// HandleGetProviders handles GET /providers?category=X requests.
func (h *ProvidersHandler) HandleGetProviders(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_providers"
	ctx := r.Context()

	category := r.URL.Query().Get("category")
	if category == "" {
		metrics.RecordProviderLookup("bad_request")
		h.logger.Debug(ctx, "lookup rejected", logger.Error(NewKind(op, ErrMissingCategory)))
		writeFailure(w, http.StatusBadRequest, msgMissingCategory)
		return
	}

	matched, err := h.deps.Providers(ctx, category)
	if err != nil {
		h.logger.Error(ctx, "lookup failed", logger.String("category", category), logger.Error(WrapKind(op, ErrProviderFile, err)))
		writeFailure(w, http.StatusInternalServerError, msgProviderFileError+err.Error())
		return
	}

	out := make([]json.RawMessage, len(matched))
	for i, p := range matched {
		out[i] = json.RawMessage(p)
	}
	writeJSON(w, http.StatusOK, providersResponse{Success: true, Providers: out})
}
