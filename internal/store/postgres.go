package store

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed postgres.sql
var postgresSchema string

// Postgres stores profile values in PostgreSQL.
type Postgres struct {
	pool      *pgxpool.Pool
	profileID uuid.UUID
}

// ConnectPostgres establishes a connection pool and ensures the schema exists.
func ConnectPostgres(ctx context.Context, databaseURL string, profileID uuid.UUID) (*Postgres, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("database URL is required")
	}
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ensure schema: %w", err)
	}

	return &Postgres{pool: pool, profileID: profileID}, nil
}

// Close implements Store.
func (p *Postgres) Close() error {
	if p.pool != nil {
		p.pool.Close()
	}
	return nil
}

// Get implements Store.
func (p *Postgres) Get(ctx context.Context, keys ...string) (Values, error) {
	var rows pgx.Rows
	var err error
	if len(keys) == 0 {
		rows, err = p.pool.Query(ctx,
			`SELECT key, value FROM profile_values WHERE profile_id = $1`,
			p.profileID,
		)
	} else {
		rows, err = p.pool.Query(ctx,
			`SELECT key, value FROM profile_values WHERE profile_id = $1 AND key = ANY($2)`,
			p.profileID, keys,
		)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read profile values: %w", err)
	}
	defer rows.Close()

	out := Values{}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("failed to scan profile value: %w", err)
		}
		out[k] = v
	}
	return out, rows.Err()
}

// Set implements Store.
func (p *Postgres) Set(ctx context.Context, values Values) error {
	batch := &pgx.Batch{}
	for k, v := range values {
		batch.Queue(
			`INSERT INTO profile_values (profile_id, key, value) VALUES ($1, $2, $3)
			 ON CONFLICT (profile_id, key) DO UPDATE SET value = $3, updated_at = NOW()`,
			p.profileID, k, v,
		)
	}
	if batch.Len() == 0 {
		return nil
	}

	if err := p.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to save profile values: %w", err)
	}
	return nil
}
