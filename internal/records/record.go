// Package records persists keyed sheet rows and reads them back.
//
// A Gateway appends records to a Store and lists everything stored so far.
// Stores are selected by URL: a SQLite file (the default), a PostgreSQL
// database, or an in-memory store for tests and development.
package records

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Reserved JSON keys added to a record's fields.
const (
	FieldID        = "_id"
	FieldCreatedAt = "_createdAt"
)

// StoredRecord is one persisted row.
type StoredRecord struct {
	ID        uuid.UUID
	Fields    map[string]any
	CreatedAt time.Time
}

// MarshalJSON flattens the fields and adds the _id and _createdAt keys.
// The metadata keys take precedence: a field whose header is _id or
// _createdAt is left out of the JSON but kept in Fields and in the store.
func (r StoredRecord) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.Fields)+2)
	for k, v := range r.Fields {
		out[k] = v
	}
	out[FieldID] = r.ID.String()
	out[FieldCreatedAt] = r.CreatedAt.UTC().Format(time.RFC3339Nano)
	return json.Marshal(out)
}

// Operations reported in StorageError.Op.
const (
	OpOpen    = "open"
	OpMigrate = "migrate"
	OpInsert  = "insert"
	OpFind    = "find"
)

// StorageError is returned when the backing store fails.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s failed: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// ErrClosed is returned by stores used after Close.
var ErrClosed = errors.New("store is closed")
