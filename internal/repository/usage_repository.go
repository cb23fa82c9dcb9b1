package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type UsageRepository struct {
	db *pgxpool.Pool
}

func NewUsageRepository(db *pgxpool.Pool) *UsageRepository {
	return &UsageRepository{db: db}
}

// IncrementUsage counts one AI analysis for the month ("2006-01").
func (r *UsageRepository) IncrementUsage(ctx context.Context, userID int, month string) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO ai_usage (user_id, month, analyses)
		VALUES ($1, $2, 1)
		ON CONFLICT (user_id, month)
		DO UPDATE SET analyses = ai_usage.analyses + 1
	`, userID, month)
	return err
}

func (r *UsageRepository) GetUsage(ctx context.Context, userID int, month string) (int, error) {
	var n int
	err := r.db.QueryRow(ctx,
		"SELECT analyses FROM ai_usage WHERE user_id = $1 AND month = $2", userID, month).Scan(&n)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil // No record means no usage yet
	}
	return n, err
}
