package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fixitall/intake/internal/domain/input"
	"github.com/fixitall/intake/pkg/metrics"
)

const (
	backendFile = "file"
	// indent used when rewriting the store file
	fileIndent      = "  "
	defaultFileMode = 0o644
)

// FileStore keeps every record in one JSON array file. Each Append reloads
// the array, appends and rewrites the whole file, all under mu.
type FileStore struct {
	mu     sync.Mutex
	path   string
	mode   fs.FileMode
	closed bool
}

// NewFileStore returns a store backed by path. The file is created on the
// first Append; a missing file reads as an empty sequence.
func NewFileStore(path string, opts ...FileOption) *FileStore {
	s := &FileStore{
		path: path,
		mode: defaultFileMode,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the backing file path.
func (s *FileStore) Path() string { return s.path }

// Backend implements Store.
func (s *FileStore) Backend() string { return backendFile }

// Append implements Store.
func (s *FileStore) Append(ctx context.Context, rec input.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	start := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	records, err := s.load()
	if err != nil {
		metrics.RecordInputStoreError(backendFile, "append")
		return err
	}
	records = append(records, rec)
	if err := s.write(records); err != nil {
		metrics.RecordInputStoreError(backendFile, "append")
		return err
	}

	metrics.RecordInputStoreLatency(backendFile, "append", float64(time.Since(start).Milliseconds()))
	metrics.UpdateStoredInputs(len(records))
	return nil
}

// List implements Store.
func (s *FileStore) List(ctx context.Context) ([]input.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	return s.load()
}

// Count implements Store.
func (s *FileStore) Count(ctx context.Context) (int, error) {
	records, err := s.List(ctx)
	if err != nil {
		return 0, err
	}
	return len(records), nil
}

// Close implements Store. Further calls fail with ErrClosed.
func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *FileStore) load() ([]input.Record, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []input.Record{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReadStore, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return []input.Record{}, nil
	}

	var records []input.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrReadStore, s.path, err)
	}
	if records == nil {
		records = []input.Record{}
	}
	return records, nil
}

// write replaces the file through a temp file in the same directory so a
// crash mid-write never leaves a truncated array behind.
func (s *FileStore) write(records []input.Record) error {
	data, err := json.MarshalIndent(records, "", fileIndent)
	if err != nil {
		return fmt.Errorf("%w: encode: %w", ErrWriteStore, err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: %w", ErrWriteStore, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrWriteStore, err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%w: %w", ErrWriteStore, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%w: %w", ErrWriteStore, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: %w", ErrWriteStore, err)
	}
	if err := os.Chmod(tmpName, s.mode); err != nil {
		return fmt.Errorf("%w: %w", ErrWriteStore, err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("%w: %w", ErrWriteStore, err)
	}
	return nil
}
