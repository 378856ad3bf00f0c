package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// exerciseStore runs the behaviour every Store must share.
func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	got, err := s.Get(ctx)
	require.NoError(t, err)
	assert.Empty(t, got, "new store is empty")

	require.NoError(t, s.Set(ctx, Values{
		"fullName":      "Jane Doe",
		"email":         "jane@x.com",
		CustomFieldsKey: `[{"name":"Skills","value":"Go"}]`,
	}))

	got, err = s.Get(ctx, "fullName", "phone")
	require.NoError(t, err)
	assert.Equal(t, Values{"fullName": "Jane Doe"}, got, "unknown keys are absent")

	require.NoError(t, s.Set(ctx, Values{"email": "jane@y.com", "phone": ""}))

	got, err = s.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, Values{
		"fullName":      "Jane Doe",
		"email":         "jane@y.com",
		"phone":         "",
		CustomFieldsKey: `[{"name":"Skills","value":"Go"}]`,
	}, got)

	require.NoError(t, s.Set(ctx, Values{}))
}

func TestMemory(t *testing.T) {
	exerciseStore(t, NewMemory())
}

func TestMemory_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m := NewMemory()
	_, err := m.Get(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, m.Set(ctx, Values{"a": "b"}), context.Canceled)
}

func TestSQLite_InMemory(t *testing.T) {
	s, err := OpenSQLite(context.Background(), ":memory:", DefaultProfileID)
	require.NoError(t, err)
	defer s.Close()

	exerciseStore(t, s)
}

func TestSQLite_Migrations(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "data", "profile.db")

	s, err := OpenSQLite(ctx, path, DefaultProfileID)
	require.NoError(t, err)
	versions, err := s.appliedMigrations(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, versions)
	require.NoError(t, s.Set(ctx, Values{"fullName": "Jane Doe"}))
	require.NoError(t, s.Close())

	// Reopening applies nothing twice and keeps the data.
	s, err = OpenSQLite(ctx, path, DefaultProfileID)
	require.NoError(t, err)
	defer s.Close()

	versions, err = s.appliedMigrations(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, versions)

	got, err := s.Get(ctx, "fullName")
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", got["fullName"])
}

func TestSQLite_ProfilesAreIsolated(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "profile.db")

	first, err := OpenSQLite(ctx, path, DefaultProfileID)
	require.NoError(t, err)
	require.NoError(t, first.Set(ctx, Values{"fullName": "Jane Doe"}))
	require.NoError(t, first.Close())

	second, err := OpenSQLite(ctx, path, uuid.New())
	require.NoError(t, err)
	defer second.Close()

	got, err := second.Get(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, Options{Driver: DriverMemory})
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, s)

	s, err = Open(ctx, Options{Driver: DriverSQLite, SQLitePath: filepath.Join(t.TempDir(), "p.db")})
	require.NoError(t, err)
	assert.IsType(t, &SQLite{}, s)
	require.NoError(t, s.Close())

	_, err = Open(ctx, Options{Driver: DriverSQLite})
	assert.Error(t, err, "sqlite needs a path")

	_, err = Open(ctx, Options{Driver: DriverPostgres})
	assert.Error(t, err, "postgres needs a URL")

	_, err = Open(ctx, Options{Driver: "redis"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown store driver "redis"`)
}

func TestDefaultProfileID_IsStable(t *testing.T) {
	assert.Equal(t, uuid.NewSHA1(uuid.NameSpaceURL, []byte("form-autofill:default-profile")), DefaultProfileID)
	assert.NotEqual(t, uuid.Nil, DefaultProfileID)
}
