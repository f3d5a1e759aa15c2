package kvstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres keeps entries in the kv_entries table created by postgres.Migrate.
type Postgres struct {
	pool      *pgxpool.Pool
	namespace string
}

func NewPostgres(pool *pgxpool.Pool, namespace string) *Postgres {
	return &Postgres{pool: pool, namespace: namespace}
}

func (p *Postgres) Load(ctx context.Context, key string) (string, error) {
	var v string
	err := p.pool.QueryRow(ctx,
		`SELECT value FROM kv_entries WHERE namespace=$1 AND key=$2`, p.namespace, key).Scan(&v)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("select kv: %w", err)
	}
	return v, nil
}

func (p *Postgres) Save(ctx context.Context, key, value string) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO kv_entries(namespace, key, value, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (namespace, key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()
	`, p.namespace, key, value)
	if err != nil {
		return fmt.Errorf("upsert kv: %w", err)
	}
	return nil
}

func (p *Postgres) Delete(ctx context.Context, key string) error {
	if _, err := p.pool.Exec(ctx,
		`DELETE FROM kv_entries WHERE namespace=$1 AND key=$2`, p.namespace, key); err != nil {
		return fmt.Errorf("delete kv: %w", err)
	}
	return nil
}
