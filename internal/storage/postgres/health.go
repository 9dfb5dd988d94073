package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/rpgcombat/internal/game/profile"
)

// ErrHealthNotFound is returned when no health row exists for an entity.
var ErrHealthNotFound = errors.New("health snapshot not found")

// HealthRepository persists entity health across sessions.
type HealthRepository struct {
	db *pgxpool.Pool
}

// NewHealthRepository creates a HealthRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewHealthRepository(db *pgxpool.Pool) *HealthRepository {
	return &HealthRepository{db: db}
}

const upsertHealth = `
	INSERT INTO combat_health (entity_id, kind, current_health, max_health, base_max_health, updated_at)
	VALUES ($1, $2, $3, $4, $5, NOW())
	ON CONFLICT (entity_id) DO UPDATE SET
		kind            = EXCLUDED.kind,
		current_health  = EXCLUDED.current_health,
		max_health      = EXCLUDED.max_health,
		base_max_health = EXCLUDED.base_max_health,
		updated_at      = NOW()`

// Save writes s, replacing any previous row for the entity.
//
// Precondition: s.EntityID must be non-empty; s.BaseMax > 0.
func (r *HealthRepository) Save(ctx context.Context, s profile.HealthSnapshot) error {
	_, err := r.db.Exec(ctx, upsertHealth, s.EntityID, s.Kind.String(), s.Current, s.Max, s.BaseMax)
	if err != nil {
		return fmt.Errorf("saving health for %q: %w", s.EntityID, err)
	}
	return nil
}

// SaveAll writes every snapshot in one batch.
//
// Postcondition: Either all rows are written or an error is returned.
func (r *HealthRepository) SaveAll(ctx context.Context, snaps []profile.HealthSnapshot) error {
	if len(snaps) == 0 {
		return nil
	}
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning health batch: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	batch := &pgx.Batch{}
	for _, s := range snaps {
		batch.Queue(upsertHealth, s.EntityID, s.Kind.String(), s.Current, s.Max, s.BaseMax)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("saving health batch: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing health batch: %w", err)
	}
	return nil
}

// Load returns the persisted health for id.
//
// Postcondition: Returns ErrHealthNotFound if no row exists.
func (r *HealthRepository) Load(ctx context.Context, id string) (profile.HealthSnapshot, error) {
	var (
		s    profile.HealthSnapshot
		kind string
	)
	err := r.db.QueryRow(ctx,
		`SELECT entity_id, kind, current_health, max_health, base_max_health
		 FROM combat_health WHERE entity_id = $1`, id,
	).Scan(&s.EntityID, &kind, &s.Current, &s.Max, &s.BaseMax)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return profile.HealthSnapshot{}, ErrHealthNotFound
		}
		return profile.HealthSnapshot{}, fmt.Errorf("loading health for %q: %w", id, err)
	}
	s.Kind, err = profile.ParseKind(kind)
	if err != nil {
		return profile.HealthSnapshot{}, fmt.Errorf("loading health for %q: %w", id, err)
	}
	return s, nil
}

// Delete removes the row for id.
//
// Postcondition: Returns ErrHealthNotFound if no row existed.
func (r *HealthRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM combat_health WHERE entity_id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting health for %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrHealthNotFound
	}
	return nil
}
