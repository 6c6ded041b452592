package storage

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hooplab/goatindex/pkg/config"
	"github.com/hooplab/goatindex/pkg/logger"
)

// Postgres is the remote backend: a key/value object table reachable over
// a connection string. The upsert gives atomic replace semantics, so a
// concurrent reader sees either the prior object or the new one, never a
// partial write.
type Postgres struct {
	pool   *pgxpool.Pool
	table  string
	logger *logger.Logger
}

var bucketPattern = regexp.MustCompile(`^[a-z][a-z0-9_]{0,47}$`)

// NewPostgres connects to the remote store and ensures the object table
// for the configured bucket exists.
func NewPostgres(ctx context.Context, cfg config.StorageConfig, log *logger.Logger) (*Postgres, error) {
	if !bucketPattern.MatchString(cfg.Bucket) {
		return nil, fmt.Errorf("invalid bucket name: %q", cfg.Bucket)
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse storage URL: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", normalizePGErr(err))
	}

	p := &Postgres{
		pool:   pool,
		table:  cfg.Bucket + "_objects",
		logger: log,
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping remote store: %w", normalizePGErr(err))
	}

	if err := p.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	log.WithField("table", p.table).Debug("Postgres store initialized")

	return p, nil
}

// ensureSchema creates the object table if missing. The bucket name is
// validated against bucketPattern before it is interpolated.
func (p *Postgres) ensureSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			key        TEXT PRIMARY KEY,
			data       BYTEA NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`, p.table)

	if _, err := p.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("ensure schema: %w", normalizePGErr(err))
	}
	return nil
}

// Read returns the object at key.
func (p *Postgres) Read(ctx context.Context, key string) ([]byte, error) {
	query := fmt.Sprintf(`SELECT data FROM %s WHERE key = $1`, p.table)

	var data []byte
	err := p.pool.QueryRow(ctx, query, key).Scan(&data)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, normalizePGErr(err))
	}

	return data, nil
}

// Write upserts the object at key.
func (p *Postgres) Write(ctx context.Context, key string, data []byte) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (key, data, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET data = EXCLUDED.data, updated_at = now()
	`, p.table)

	if _, err := p.pool.Exec(ctx, query, key, data); err != nil {
		return fmt.Errorf("write %s: %w", key, normalizePGErr(err))
	}
	return nil
}

// List returns all keys under prefix, sorted.
func (p *Postgres) List(ctx context.Context, prefix string) ([]string, error) {
	query := fmt.Sprintf(`SELECT key FROM %s WHERE key LIKE $1 ORDER BY key`, p.table)

	rows, err := p.pool.Query(ctx, query, escapeLike(prefix)+"%")
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", prefix, normalizePGErr(err))
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("list %s: %w", prefix, normalizePGErr(err))
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list %s: %w", prefix, normalizePGErr(err))
	}

	return keys, nil
}

// Exists reports whether an object is present at key.
func (p *Postgres) Exists(ctx context.Context, key string) (bool, error) {
	query := fmt.Sprintf(`SELECT EXISTS(SELECT 1 FROM %s WHERE key = $1)`, p.table)

	var exists bool
	if err := p.pool.QueryRow(ctx, query, key).Scan(&exists); err != nil {
		return false, fmt.Errorf("exists %s: %w", key, normalizePGErr(err))
	}
	return exists, nil
}

// Ping checks the backend is reachable.
func (p *Postgres) Ping(ctx context.Context) error {
	if err := p.pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", normalizePGErr(err))
	}
	return nil
}

// Close releases the connection pool.
func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

// escapeLike escapes LIKE wildcards so a key prefix matches literally.
func escapeLike(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '%', '_', '\\':
			out = append(out, '\\')
		}
		out = append(out, s[i])
	}
	return string(out)
}

// normalizePGErr maps driver errors onto the storage taxonomy.
func normalizePGErr(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "42501", "28000", "28P01": // insufficient_privilege, auth failures
			return fmt.Errorf("%w: %v", ErrPermission, err)
		}
	}

	// Connection failures, timeouts, cancellations: transient.
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}
