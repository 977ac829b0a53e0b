package storage

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const (
	loadEntry = `SELECT value FROM kv_entries WHERE scope = $1 AND key = $2`

	saveEntry = `INSERT INTO kv_entries (scope, key, value)
VALUES ($1, $2, $3)
ON CONFLICT (scope, key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`

	deleteEntry = `DELETE FROM kv_entries WHERE scope = $1 AND key = $2`
)

// Postgres stores values as JSONB rows keyed by (scope, key).
type Postgres struct {
	pool  *pgxpool.Pool
	scope uuid.UUID
}

func NewPostgres(pool *pgxpool.Pool, scope uuid.UUID) (*Postgres, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}

	return &Postgres{
		pool:  pool,
		scope: scope,
	}, nil
}

func (s *Postgres) Load(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte

	err := s.pool.QueryRow(ctx, loadEntry, s.scope, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("pool.QueryRow: %w", err)
	}

	return value, true, nil
}

func (s *Postgres) Save(ctx context.Context, key string, value []byte) error {
	if _, err := s.pool.Exec(ctx, saveEntry, s.scope, key, value); err != nil {
		return fmt.Errorf("pool.Exec: %w", err)
	}
	return nil
}

func (s *Postgres) Delete(ctx context.Context, key string) error {
	if _, err := s.pool.Exec(ctx, deleteEntry, s.scope, key); err != nil {
		return fmt.Errorf("pool.Exec: %w", err)
	}
	return nil
}

// Migrate applies the embedded schema migrations to databaseURL.
func Migrate(databaseURL string) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("iofs.New: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, migrateURL(databaseURL))
	if err != nil {
		return fmt.Errorf("migrate.NewWithSourceInstance: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("m.Up: %w", err)
	}

	return nil
}

// migrateURL switches a postgres:// URL to the scheme of the pgx v5 migrate driver.
func migrateURL(databaseURL string) string {
	for _, prefix := range []string{"postgres://", "postgresql://"} {
		if strings.HasPrefix(databaseURL, prefix) {
			return "pgx5://" + strings.TrimPrefix(databaseURL, prefix)
		}
	}
	return databaseURL
}
