package repository

import (
	"context"

	"viloai/internal/entities"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ConfigRepository stores the business facts the classifier grounds replies on.
type ConfigRepository struct {
	db *pgxpool.Pool
}

func NewConfigRepository(db *pgxpool.Pool) *ConfigRepository {
	return &ConfigRepository{db: db}
}

func (r *ConfigRepository) ListFacts(ctx context.Context, userID int) ([]entities.BusinessRule, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, user_id, category, key, value, updated_at
		FROM business_rules WHERE user_id = $1
		ORDER BY category, key
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	facts := []entities.BusinessRule{}
	for rows.Next() {
		var f entities.BusinessRule
		if err := rows.Scan(&f.ID, &f.UserID, &f.Category, &f.Key, &f.Value, &f.UpdatedAt); err != nil {
			return nil, err
		}
		facts = append(facts, f)
	}
	return facts, rows.Err()
}

// UpsertFact replaces the value of an existing (category, key) pair.
func (r *ConfigRepository) UpsertFact(ctx context.Context, f *entities.BusinessRule) error {
	return r.db.QueryRow(ctx, `
		INSERT INTO business_rules (id, user_id, category, key, value, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id, category, key)
		DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at
		RETURNING id
	`, f.ID, f.UserID, f.Category, f.Key, f.Value, f.UpdatedAt).Scan(&f.ID)
}

func (r *ConfigRepository) DeleteFact(ctx context.Context, userID int, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, "DELETE FROM business_rules WHERE user_id = $1 AND id = $2", userID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return entities.ErrNotFound
	}
	return nil
}
