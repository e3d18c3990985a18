// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/fixitall/intake/internal/domain/input"
	"github.com/fixitall/intake/internal/domain/provider"
	"github.com/fixitall/intake/pkg/logger"
)

const defaultMaxInputBytes = 1 << 20

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// StoreInput appends one recorded input.
	StoreInput(ctx context.Context, rec input.Record) error

	// Providers returns the catalog providers in category.
	Providers(ctx context.Context, category string) ([]provider.Record, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler     *HealthHandler
	statsHandler      *StatsHandler
	storeInputHandler *StoreInputHandler
	providersHandler  *ProvidersHandler
	logger            logger.Logger
}

// ServerOption configures a Server.
type ServerOption func(*serverOptions)

type serverOptions struct {
	maxInputBytes int64
	logger        logger.Logger
}

// WithMaxInputBytes caps the accepted POST /store_input body size.
func WithMaxInputBytes(n int64) ServerOption {
	return func(o *serverOptions) {
		if n > 0 {
			o.maxInputBytes = n
		}
	}
}

// WithLogger sets the logger used by handlers and the request logger.
func WithLogger(l logger.Logger) ServerOption {
	return func(o *serverOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...ServerOption) *Server {
	o := serverOptions{maxInputBytes: defaultMaxInputBytes}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logger.Named("api")
	}
	return &Server{
		healthHandler:     NewHealthHandler(),
		statsHandler:      NewStatsHandler(statsProvider),
		storeInputHandler: NewStoreInputHandler(deps, o.maxInputBytes, o.logger),
		providersHandler:  NewProvidersHandler(deps, o.logger),
		logger:            o.logger,
	}
}

// Register installs the middleware chain and attaches all HTTP routes to r.
// chi requires middleware before routes, so call it before registering
// anything else on r.
func (s *Server) Register(_ context.Context, r chi.Router) {
	r.Use(middleware.Recoverer)
	r.Use(RequestLogger(s.logger))
	r.Use(CORS)

	r.Get("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	r.Get("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	r.Post("/store_input", MetricsMiddleware(s.storeInputHandler.HandleStoreInput, "store_input"))
	r.Get("/providers", MetricsMiddleware(s.providersHandler.HandleGetProviders, "providers"))
}

// failureResponse is the body of every non-2xx business response.
type failureResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeFailure(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, failureResponse{Success: false, Message: message})
}
