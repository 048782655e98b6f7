package records

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"  // PostgreSQL driver
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/teemow/sheetdash/internal/records/migrations"
)

func init() {
	// modernc registers as "sqlite", which sqlx does not know about.
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// SQLStore keeps records in a SQL database through sqlx. The same queries
// serve SQLite and PostgreSQL; placeholders are rebound per driver.
type SQLStore struct {
	db      *sqlx.DB
	backend string
}

// OpenSQLite opens (creating if needed) the SQLite database at path and
// applies pending migrations. ":memory:" opens a private in-memory database.
func OpenSQLite(ctx context.Context, path string) (*SQLStore, error) {
	if path == "" {
		return nil, &StorageError{Op: OpOpen, Err: fmt.Errorf("sqlite path is empty")}
	}

	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
			return nil, &StorageError{Op: OpOpen, Err: fmt.Errorf("creating data directory: %w", err)}
		}
	}

	// WAL mode for better concurrency
	db, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, &StorageError{Op: OpOpen, Err: err}
	}
	// A single connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	s := &SQLStore{db: db, backend: "sqlite"}
	if err := s.migrate(ctx, migrations.SQLite, "sqlite"); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// OpenPostgres connects to the database at dsn and applies pending migrations.
func OpenPostgres(ctx context.Context, dsn string) (*SQLStore, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, &StorageError{Op: OpOpen, Err: err}
	}

	s := &SQLStore{db: db, backend: "postgres"}
	if err := s.migrate(ctx, migrations.Postgres, "postgres"); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLStore) migrate(ctx context.Context, fsys fs.FS, dir string) error {
	wrap := func(err error) error { return &StorageError{Op: OpMigrate, Err: err} }

	if _, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return wrap(fmt.Errorf("creating schema_migrations table: %w", err))
	}

	var current int
	if err := s.db.GetContext(ctx, &current, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations"); err != nil {
		return wrap(fmt.Errorf("getting current version: %w", err))
	}

	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return wrap(fmt.Errorf("reading migrations directory: %w", err))
	}

	var upFiles []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".up.sql") {
			upFiles = append(upFiles, entry.Name())
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// "001_records.up.sql" -> 1
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= current {
			continue
		}

		content, err := fs.ReadFile(fsys, dir+"/"+name)
		if err != nil {
			return wrap(fmt.Errorf("reading migration %s: %w", name, err))
		}

		tx, err := s.db.BeginTxx(ctx, nil)
		if err != nil {
			return wrap(err)
		}
		if _, err := tx.ExecContext(ctx, string(content)); err != nil {
			_ = tx.Rollback()
			return wrap(fmt.Errorf("executing migration %s: %w", name, err))
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind("INSERT INTO schema_migrations (version) VALUES (?)"), version); err != nil {
			_ = tx.Rollback()
			return wrap(fmt.Errorf("recording migration %s: %w", name, err))
		}
		if err := tx.Commit(); err != nil {
			return wrap(fmt.Errorf("committing migration %s: %w", name, err))
		}
	}
	return nil
}

// Insert implements Store.
func (s *SQLStore) Insert(ctx context.Context, rec StoredRecord) error {
	fields, err := json.Marshal(rec.Fields)
	if err != nil {
		return fmt.Errorf("encoding fields: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		s.db.Rebind("INSERT INTO sheet_records (id, fields, created_at) VALUES (?, ?, ?)"),
		rec.ID.String(), string(fields), rec.CreatedAt.UTC())
	return err
}

type recordRow struct {
	ID        string    `db:"id"`
	Fields    string    `db:"fields"`
	CreatedAt time.Time `db:"created_at"`
}

// FindAll implements Store.
func (s *SQLStore) FindAll(ctx context.Context) ([]StoredRecord, error) {
	var rows []recordRow
	if err := s.db.SelectContext(ctx, &rows, "SELECT id, fields, created_at FROM sheet_records ORDER BY seq"); err != nil {
		return nil, err
	}

	out := make([]StoredRecord, 0, len(rows))
	for _, row := range rows {
		id, err := uuid.Parse(row.ID)
		if err != nil {
			return nil, fmt.Errorf("parsing record id %q: %w", row.ID, err)
		}
		var fields map[string]any
		if err := json.Unmarshal([]byte(row.Fields), &fields); err != nil {
			return nil, fmt.Errorf("decoding fields of record %s: %w", row.ID, err)
		}
		out = append(out, StoredRecord{ID: id, Fields: fields, CreatedAt: row.CreatedAt.UTC()})
	}
	return out, nil
}

// Ping implements Store.
func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Backend implements Store.
func (s *SQLStore) Backend() string { return s.backend }

// Close implements Store.
func (s *SQLStore) Close() error {
	return s.db.Close()
}
