// Package store owns the relational and vector state of the pipeline:
// the feed catalog, the entry table with its (feed, link) uniqueness
// constraint, and the HNSW index used for approximate search.
package store

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rssai/internal/config"
	"github.com/rssai/pkg/models"
)

// Store is a Postgres-backed feed and entry catalog
type Store struct {
	pool *pgxpool.Pool
}

// New connects to Postgres, verifies the connection and applies any
// pending migrations.
func New(ctx context.Context, cfg config.DatabaseConfig) (*Store, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, models.E(models.ErrStore, "store.New", "", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = int32(cfg.MaxConns)
	}
	if cfg.ConnTimeout > 0 {
		poolCfg.ConnConfig.ConnectTimeout = cfg.ConnTimeout.Std()
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, models.E(models.ErrStore, "store.New", "", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, models.E(models.ErrStore, "store.New", "", err)
	}

	s := &Store{pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Reset drops all feeds and entries. Entries cascade with their feed.
func (s *Store) Reset(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, `TRUNCATE feeds CASCADE`); err != nil {
		return models.E(models.ErrStore, "store.Reset", "", err)
	}
	log.Printf("store: corpus reset")
	return nil
}

func (s *Store) migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS migration
		(id SERIAL PRIMARY KEY, query TEXT)
	`)
	if err != nil {
		return models.E(models.ErrStore, "store.migrate", "", err)
	}

	rows, err := s.pool.Query(ctx, `SELECT query FROM migration ORDER BY id`)
	if err != nil {
		return models.E(models.ErrStore, "store.migrate", "", err)
	}
	var existing []string
	for rows.Next() {
		var query string
		if err := rows.Scan(&query); err != nil {
			rows.Close()
			return models.E(models.ErrStore, "store.migrate", "", err)
		}
		existing = append(existing, query)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return models.E(models.ErrStore, "store.migrate", "", err)
	}

	if len(existing) > len(migrations) {
		return models.Errorf(models.ErrStore, "store.migrate", "",
			"database has %d migrations, source has %d", len(existing), len(migrations))
	}
	for i, query := range existing {
		if query != migrations[i] {
			return models.Errorf(models.ErrStore, "store.migrate", "",
				"migration %d differs from source", i+1)
		}
	}

	for _, query := range migrations[len(existing):] {
		if _, err := s.pool.Exec(ctx, query); err != nil {
			return models.Errorf(models.ErrStore, "store.migrate", "", "%q failed: %v", query, err)
		}
		if _, err := s.pool.Exec(ctx, `INSERT INTO migration (query) VALUES ($1)`, query); err != nil {
			return models.E(models.ErrStore, "store.migrate", "", err)
		}
		log.Printf("store: applied migration %.60q", query)
	}
	return nil
}

// isUniqueViolation reports a Postgres unique constraint error.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func storeErr(op, subject string, err error) error {
	return models.E(models.ErrStore, op, subject, fmt.Errorf("postgres: %w", err))
}
