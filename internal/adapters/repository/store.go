// Package repository persists recorded inputs.
package repository

import (
	"context"
	"time"

	"github.com/fixitall/intake/internal/domain/input"
)

// Store is the single owner of the input sequence. Implementations serialize
// Append so concurrent callers never lose each other's records.
type Store interface {
	// Append adds rec to the end of the sequence.
	Append(ctx context.Context, rec input.Record) error

	// List returns every stored record in append order.
	List(ctx context.Context) ([]input.Record, error)

	// Count returns the number of stored records.
	Count(ctx context.Context) (int, error)

	// Backend names the storage kind for logs and metrics.
	Backend() string

	Close() error
}

// Envelope is a stored record plus server-assigned metadata.
type Envelope struct {
	ID         string
	Seq        int64
	ReceivedAt time.Time
	Payload    input.Record
}
