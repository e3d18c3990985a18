package repository

import (
	"io/fs"
	"time"
)

// FileOption applies a configuration option to the FileStore.
type FileOption func(*FileStore)

// WithFileMode sets the permission bits of the written store file.
func WithFileMode(mode fs.FileMode) FileOption {
	return func(s *FileStore) {
		if mode != 0 {
			s.mode = mode
		}
	}
}

// SQLiteOption applies a configuration option to the SQLiteStore.
type SQLiteOption func(*SQLiteStore)

// WithClock overrides the time source used for received_at.
func WithClock(now func() time.Time) SQLiteOption {
	return func(s *SQLiteStore) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator overrides how envelope ids are minted.
func WithIDGenerator(gen func() string) SQLiteOption {
	return func(s *SQLiteStore) {
		if gen != nil {
			s.newID = gen
		}
	}
}
