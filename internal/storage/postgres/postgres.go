// Package postgres persists combatd's player health snapshots in PostgreSQL
// using pgx v5.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/rpgcombat/internal/config"
)

// Pool owns the connections behind the health snapshot store.
type Pool struct {
	pool *pgxpool.Pool
}

// NewPool opens the snapshot store's connection pool and pings it once.
//
// Precondition: cfg.Enabled is true and cfg names a reachable database.
// Postcondition: Returns a connected Pool or a non-nil error.
func NewPool(ctx context.Context, cfg config.DatabaseConfig) (*Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parsing database config: %w", err)
	}

	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return &Pool{pool: pool}, nil
}

// Close releases the pool. combatd calls it after the shutdown flush.
func (p *Pool) Close() {
	p.pool.Close()
}

// DB returns the pgx pool backing HealthRepository.
func (p *Pool) DB() *pgxpool.Pool {
	return p.pool
}
