// Package store persists profile values as flat key/value pairs scoped to a profile ID.
// Standard fields are stored under their profile key; custom fields are stored as one
// JSON array under CustomFieldsKey.
package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// CustomFieldsKey holds the JSON-encoded custom field list.
const CustomFieldsKey = "customFields"

// Supported drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// DefaultProfileID is used when no profile ID is configured.
var DefaultProfileID = uuid.NewSHA1(uuid.NameSpaceURL, []byte("form-autofill:default-profile"))

// Values is a set of stored keys and their values.
type Values map[string]string

// Store reads and writes the values of one profile.
type Store interface {
	// Get returns the stored values for keys; with no keys every stored value is returned.
	// Keys that were never stored are absent from the result.
	Get(ctx context.Context, keys ...string) (Values, error)
	// Set upserts values. Keys not present in values are left unchanged.
	Set(ctx context.Context, values Values) error
	Close() error
}

// Options selects and configures a Store.
type Options struct {
	Driver      string
	SQLitePath  string
	DatabaseURL string
	ProfileID   uuid.UUID
}

// Open returns the Store selected by opts.Driver.
func Open(ctx context.Context, opts Options) (Store, error) {
	id := opts.ProfileID
	if id == uuid.Nil {
		id = DefaultProfileID
	}

	switch opts.Driver {
	case DriverMemory:
		return NewMemory(), nil
	case "", DriverSQLite:
		return OpenSQLite(ctx, opts.SQLitePath, id)
	case DriverPostgres:
		return ConnectPostgres(ctx, opts.DatabaseURL, id)
	default:
		return nil, fmt.Errorf("unknown store driver %q", opts.Driver)
	}
}
