package repository

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/fixitall/intake/internal/domain/input"
	"github.com/fixitall/intake/pkg/metrics"
)

const backendSQLite = "sqlite"

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteStore keeps each record as its own row wrapped in an Envelope.
type SQLiteStore struct {
	db    *sql.DB
	now   func() time.Time
	newID func() string
}

// OpenSQLite opens (or creates) the database at path and runs pending
// migrations. Pass ":memory:" for an in-memory database.
func OpenSQLite(ctx context.Context, path string, opts ...SQLiteOption) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// One connection: appends are serialized and :memory: stays a single database.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{"PRAGMA busy_timeout = 5000", "PRAGMA journal_mode=WAL"} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("applying %q: %w", pragma, err)
		}
	}

	s := &SQLiteStore{
		db:    db,
		now:   time.Now,
		newID: func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// Backend implements Store.
func (s *SQLiteStore) Backend() string { return backendSQLite }

// Close implements Store.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		var version int
		if _, err := fmt.Sscanf(entry.Name(), "%d_", &version); err != nil {
			return fmt.Errorf("parsing migration version from %q: %w", entry.Name(), err)
		}

		var exists int
		if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_version WHERE version = ?", version).Scan(&exists); err != nil {
			return fmt.Errorf("checking migration %d: %w", version, err)
		}
		if exists > 0 {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", entry.Name(), err)
		}

		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("beginning transaction for migration %d: %w", version, err)
		}
		if _, err := tx.ExecContext(ctx, string(content)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("applying migration %d: %w", version, err)
		}
		if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", version); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", version, err)
		}
	}
	return nil
}

// Append implements Store.
func (s *SQLiteStore) Append(ctx context.Context, rec input.Record) error {
	_, err := s.AppendEnvelope(ctx, rec)
	return err
}

// AppendEnvelope stores rec and returns the envelope it was wrapped in.
func (s *SQLiteStore) AppendEnvelope(ctx context.Context, rec input.Record) (Envelope, error) {
	start := time.Now()
	env := Envelope{
		ID:         s.newID(),
		ReceivedAt: s.now().UTC(),
		Payload:    rec,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		metrics.RecordInputStoreError(backendSQLite, "append")
		return Envelope{}, fmt.Errorf("%w: %w", ErrWriteStore, err)
	}
	res, err := tx.ExecContext(ctx,
		"INSERT INTO inputs (id, received_at, payload) VALUES (?, ?, ?)",
		env.ID, env.ReceivedAt.Format(time.RFC3339Nano), string(rec),
	)
	if err != nil {
		_ = tx.Rollback()
		metrics.RecordInputStoreError(backendSQLite, "append")
		return Envelope{}, fmt.Errorf("%w: %w", ErrWriteStore, err)
	}
	if env.Seq, err = res.LastInsertId(); err != nil {
		_ = tx.Rollback()
		metrics.RecordInputStoreError(backendSQLite, "append")
		return Envelope{}, fmt.Errorf("%w: %w", ErrWriteStore, err)
	}
	// Count inside the transaction so the gauge matches what was committed.
	var total int
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM inputs").Scan(&total); err != nil {
		_ = tx.Rollback()
		metrics.RecordInputStoreError(backendSQLite, "append")
		return Envelope{}, fmt.Errorf("%w: %w", ErrWriteStore, err)
	}
	if err := tx.Commit(); err != nil {
		metrics.RecordInputStoreError(backendSQLite, "append")
		return Envelope{}, fmt.Errorf("%w: %w", ErrWriteStore, err)
	}

	metrics.RecordInputStoreLatency(backendSQLite, "append", float64(time.Since(start).Milliseconds()))
	metrics.UpdateStoredInputs(total)
	return env, nil
}

// Envelopes returns every stored envelope in append order.
func (s *SQLiteStore) Envelopes(ctx context.Context) ([]Envelope, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT seq, id, received_at, payload FROM inputs ORDER BY seq ASC")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReadStore, err)
	}
	defer rows.Close()

	envs := make([]Envelope, 0)
	for rows.Next() {
		var (
			env        Envelope
			receivedAt string
			payload    string
		)
		if err := rows.Scan(&env.Seq, &env.ID, &receivedAt, &payload); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrReadStore, err)
		}
		if env.ReceivedAt, err = time.Parse(time.RFC3339Nano, receivedAt); err != nil {
			return nil, fmt.Errorf("%w: parsing received_at of %s: %w", ErrReadStore, env.ID, err)
		}
		env.Payload = input.Record(payload)
		envs = append(envs, env)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReadStore, err)
	}
	return envs, nil
}

// List implements Store.
func (s *SQLiteStore) List(ctx context.Context) ([]input.Record, error) {
	envs, err := s.Envelopes(ctx)
	if err != nil {
		return nil, err
	}
	records := make([]input.Record, len(envs))
	for i, env := range envs {
		records[i] = env.Payload
	}
	return records, nil
}

// Count implements Store.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM inputs").Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrReadStore, err)
	}
	return n, nil
}
