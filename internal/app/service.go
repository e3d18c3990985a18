// Package service owns the input store and provider catalog and implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sync"

	"github.com/fixitall/intake/internal/adapters/catalog"
	repository "github.com/fixitall/intake/internal/adapters/repository"
	"github.com/fixitall/intake/internal/config"
	"github.com/fixitall/intake/internal/domain/input"
	"github.com/fixitall/intake/internal/domain/provider"
	"github.com/fixitall/intake/pkg/logger"
	"github.com/fixitall/intake/pkg/metrics"
)

// Sentinel kinds for service errors.
var (
	ErrNotStarted = errors.New("service not started")
)

// Catalog looks providers up by category.
type Catalog interface {
	Lookup(ctx context.Context, category string) ([]provider.Record, error)
}

// Service implements the API dependencies for the intake endpoints.
type Service struct {
	mu sync.RWMutex

	// Core components
	store   repository.Store
	catalog Catalog

	// Configuration
	backend        string
	inputStorePath string
	fileMode       fs.FileMode
	sqlitePath     string
	catalogPath    string

	// State
	started   bool
	ownsStore bool

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithBackend selects the input store backend opened by Start.
func WithBackend(backend string) Option {
	return func(s *Service) {
		if backend != "" {
			s.backend = backend
		}
	}
}

// WithInputStorePath sets the JSON file used by the file backend.
func WithInputStorePath(path string) Option {
	return func(s *Service) {
		if path != "" {
			s.inputStorePath = path
		}
	}
}

// WithInputStoreFileMode sets the permission bits of the file backend's store file.
func WithInputStoreFileMode(mode fs.FileMode) Option {
	return func(s *Service) {
		s.fileMode = mode
	}
}

// WithSQLitePath sets the database file used by the sqlite backend.
func WithSQLitePath(path string) Option {
	return func(s *Service) {
		if path != "" {
			s.sqlitePath = path
		}
	}
}

// WithCatalogPath sets the provider catalog file.
func WithCatalogPath(path string) Option {
	return func(s *Service) {
		if path != "" {
			s.catalogPath = path
		}
	}
}

// WithStore injects an already opened store. The service will not close it.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithCatalog injects a catalog implementation.
func WithCatalog(c Catalog) Option {
	return func(s *Service) {
		if c != nil {
			s.catalog = c
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		backend:        config.BackendFile,
		inputStorePath: "user_inputs.json",
		sqlitePath:     "user_inputs.db",
		catalogPath:    "../updated_dummy_service_providers.json",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start opens the configured store and catalog.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}

	if s.store == nil {
		store, err := s.openStore(ctx)
		if err != nil {
			return err
		}
		s.store = store
		s.ownsStore = true
	}
	if s.catalog == nil {
		s.catalog = catalog.NewFileCatalog(s.catalogPath)
	}

	if n, err := s.store.Count(ctx); err != nil {
		s.logger.Warn(ctx, "could not count stored inputs", logger.Error(err))
	} else {
		metrics.UpdateStoredInputs(n)
	}

	s.started = true
	s.logger.Info(ctx, "intake service started",
		logger.String("backend", s.store.Backend()),
		logger.String("inputStorePath", s.inputStorePath),
		logger.String("catalogPath", s.catalogPath),
		logger.Bool("ownsStore", s.ownsStore),
	)
	return nil
}

func (s *Service) openStore(ctx context.Context) (repository.Store, error) {
	switch s.backend {
	case config.BackendFile:
		// zero mode keeps the store default
		return repository.NewFileStore(s.inputStorePath, repository.WithFileMode(s.fileMode)), nil
	case config.BackendSQLite:
		store, err := repository.OpenSQLite(ctx, s.sqlitePath)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite input store: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown input store backend %q", s.backend)
	}
}

// Stop releases the store if the service opened it.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx := context.Background()
	if s.ownsStore && s.store != nil {
		if err := s.store.Close(); err != nil {
			s.logger.Error(ctx, "closing input store failed", logger.Error(err))
		}
		s.store = nil
		s.ownsStore = false
	}
	s.started = false
	s.logger.Info(ctx, "intake service stopped")
}

func (s *Service) components() (repository.Store, Catalog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, nil, ErrNotStarted
	}
	return s.store, s.catalog, nil
}

// StoreInput appends rec to the input store.
func (s *Service) StoreInput(ctx context.Context, rec input.Record) error {
	store, _, err := s.components()
	if err != nil {
		return err
	}
	if err := store.Append(ctx, rec); err != nil {
		s.logger.Error(ctx, "storing input failed", logger.String("backend", store.Backend()), logger.Error(err))
		return err
	}
	metrics.RecordInputStored(store.Backend())
	s.logger.Debug(ctx, "input stored", logger.String("backend", store.Backend()), logger.Int("bytes", len(rec)))
	return nil
}

// Inputs returns every stored record in append order.
func (s *Service) Inputs(ctx context.Context) ([]input.Record, error) {
	store, _, err := s.components()
	if err != nil {
		return nil, err
	}
	return store.List(ctx)
}

// Providers returns the catalog providers in category.
func (s *Service) Providers(ctx context.Context, category string) ([]provider.Record, error) {
	_, c, err := s.components()
	if err != nil {
		return nil, err
	}
	matched, err := c.Lookup(ctx, category)
	if err != nil {
		metrics.RecordProviderLookup("error")
		s.logger.Warn(ctx, "provider lookup failed", logger.String("category", category), logger.Error(err))
		return nil, err
	}

	outcome := "matched"
	if len(matched) == 0 {
		outcome = "empty"
	}
	metrics.RecordProviderLookup(outcome)
	metrics.RecordProviderMatches(len(matched))
	s.logger.Debug(ctx, "provider lookup", logger.String("category", category), logger.Int("matches", len(matched)))
	return matched, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":     s.started,
		"backend":     s.backend,
		"catalogPath": s.catalogPath,
	}
	if s.started {
		stats["backend"] = s.store.Backend()
		if n, err := s.store.Count(context.Background()); err == nil {
			stats["storedInputs"] = n
			metrics.UpdateStoredInputs(n)
		} else {
			stats["storedInputsError"] = err.Error()
		}
	}
	return stats
}
