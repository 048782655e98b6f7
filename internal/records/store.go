package records

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// DefaultStorageURL is used when no storage URL is configured.
const DefaultStorageURL = "sqlite://data/sheetdash.db"

// Store is a record persistence backend.
type Store interface {
	// Insert appends one record.
	Insert(ctx context.Context, rec StoredRecord) error

	// FindAll returns every record in insertion order.
	FindAll(ctx context.Context) ([]StoredRecord, error)

	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error

	// Backend names the implementation, e.g. "sqlite".
	Backend() string

	Close() error
}

// Open returns the store addressed by rawURL:
//
//	sqlite://path/to/file.db   SQLite file (relative or absolute path)
//	path/to/file.db            same as sqlite://
//	postgres://user@host/db    PostgreSQL
//	memory://                  in-process store, lost on exit
func Open(ctx context.Context, rawURL string) (Store, error) {
	if rawURL == "" {
		rawURL = DefaultStorageURL
	}

	scheme, rest, found := strings.Cut(rawURL, "://")
	if !found {
		return sqlStore(OpenSQLite(ctx, rawURL))
	}

	switch strings.ToLower(scheme) {
	case "sqlite", "file":
		return sqlStore(OpenSQLite(ctx, rest))
	case "postgres", "postgresql":
		if _, err := url.Parse(rawURL); err != nil {
			return nil, &StorageError{Op: OpOpen, Err: fmt.Errorf("invalid postgres URL: %w", err)}
		}
		return sqlStore(OpenPostgres(ctx, rawURL))
	case "memory", "mem":
		return NewMemoryStore(), nil
	case "mongodb", "mongodb+srv":
		return nil, &StorageError{Op: OpOpen, Err: fmt.Errorf("unsupported storage scheme %q: use sqlite://, postgres:// or memory://", scheme)}
	default:
		return nil, &StorageError{Op: OpOpen, Err: fmt.Errorf("unknown storage scheme %q", scheme)}
	}
}

// sqlStore avoids returning a typed nil inside the Store interface.
func sqlStore(s *SQLStore, err error) (Store, error) {
	if err != nil {
		return nil, err
	}
	return s, nil
}
