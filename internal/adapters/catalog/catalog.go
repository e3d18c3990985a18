// Package catalog reads the externally maintained provider catalog file.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/fixitall/intake/internal/domain/provider"
	"github.com/fixitall/intake/pkg/metrics"
)

// ErrReadCatalog matches every failure to read or parse the catalog.
var ErrReadCatalog = errors.New("read provider catalog failed")

// ReadError carries the underlying cause of a catalog failure. Its message is
// the cause alone so callers can surface it verbatim.
type ReadError struct {
	Path string
	Err  error
}

func (e *ReadError) Error() string { return e.Err.Error() }

func (e *ReadError) Unwrap() error { return e.Err }

// Is reports ErrReadCatalog so callers can use errors.Is.
func (e *ReadError) Is(target error) bool { return target == ErrReadCatalog }

// FileCatalog loads provider records from a JSON array file. It holds no
// cache: every call goes back to disk.
type FileCatalog struct {
	path string
}

// NewFileCatalog returns a catalog reading path.
func NewFileCatalog(path string) *FileCatalog {
	return &FileCatalog{path: path}
}

// Path returns the catalog file path.
func (c *FileCatalog) Path() string { return c.path }

// Load reads and parses the whole catalog.
func (c *FileCatalog) Load(ctx context.Context) ([]provider.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()
	defer func() {
		metrics.RecordCatalogReadLatency(float64(time.Since(start).Milliseconds()))
	}()

	data, err := os.ReadFile(c.path)
	if err != nil {
		metrics.RecordCatalogReadError("read")
		return nil, &ReadError{Path: c.path, Err: err}
	}

	var records []provider.Record
	if err := json.Unmarshal(data, &records); err != nil {
		metrics.RecordCatalogReadError("parse")
		return nil, &ReadError{Path: c.path, Err: fmt.Errorf("parsing %s: %w", c.path, err)}
	}
	return records, nil
}

// Lookup loads the catalog and returns the providers in category.
func (c *FileCatalog) Lookup(ctx context.Context, category string) ([]provider.Record, error) {
	records, err := c.Load(ctx)
	if err != nil {
		return nil, err
	}
	matched, err := provider.FilterByCategory(records, category)
	if err != nil {
		metrics.RecordCatalogReadError("parse")
		return nil, &ReadError{Path: c.path, Err: err}
	}
	return matched, nil
}
