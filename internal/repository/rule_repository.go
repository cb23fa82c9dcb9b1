package repository

import (
	"context"
	"errors"
	"time"

	"viloai/internal/entities"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type RuleRepository struct {
	db *pgxpool.Pool
}

func NewRuleRepository(db *pgxpool.Pool) *RuleRepository {
	return &RuleRepository{db: db}
}

const ruleColumns = `id, user_id, trigger_text, reply_text, match_type, trigger_type, is_active, usage_count, last_used_at, created_at`

func scanRule(row pgx.Row) (*entities.AutomationRule, error) {
	var r entities.AutomationRule
	if err := row.Scan(&r.ID, &r.UserID, &r.TriggerText, &r.ReplyText, &r.MatchType, &r.TriggerType,
		&r.IsActive, &r.UsageCount, &r.LastUsedAt, &r.CreatedAt); err != nil {
		return nil, err
	}
	return &r, nil
}

// ListRules returns rules in creation order, which is their match priority.
func (r *RuleRepository) ListRules(ctx context.Context, userID int) ([]entities.AutomationRule, error) {
	rows, err := r.db.Query(ctx,
		"SELECT "+ruleColumns+" FROM automation_rules WHERE user_id = $1 ORDER BY created_at ASC, id ASC", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rules := []entities.AutomationRule{}
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		rules = append(rules, *rule)
	}
	return rules, rows.Err()
}

func (r *RuleRepository) GetRule(ctx context.Context, userID int, id uuid.UUID) (*entities.AutomationRule, error) {
	rule, err := scanRule(r.db.QueryRow(ctx,
		"SELECT "+ruleColumns+" FROM automation_rules WHERE user_id = $1 AND id = $2", userID, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, entities.ErrNotFound
	}
	return rule, err
}

func (r *RuleRepository) CreateRule(ctx context.Context, rule *entities.AutomationRule) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO automation_rules (`+ruleColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, rule.ID, rule.UserID, rule.TriggerText, rule.ReplyText, rule.MatchType, rule.TriggerType,
		rule.IsActive, rule.UsageCount, rule.LastUsedAt, rule.CreatedAt)
	return err
}

func (r *RuleRepository) UpdateRule(ctx context.Context, rule *entities.AutomationRule) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE automation_rules
		SET trigger_text = $3, reply_text = $4, match_type = $5, trigger_type = $6, is_active = $7
		WHERE user_id = $1 AND id = $2
	`, rule.UserID, rule.ID, rule.TriggerText, rule.ReplyText, rule.MatchType, rule.TriggerType, rule.IsActive)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return entities.ErrNotFound
	}
	return nil
}

func (r *RuleRepository) DeleteRule(ctx context.Context, userID int, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, "DELETE FROM automation_rules WHERE user_id = $1 AND id = $2", userID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return entities.ErrNotFound
	}
	return nil
}

// RecordRuleUsage increments the counter in place so concurrent firings are not lost.
func (r *RuleRepository) RecordRuleUsage(ctx context.Context, userID int, id uuid.UUID, at time.Time) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE automation_rules SET usage_count = usage_count + 1, last_used_at = $3
		WHERE user_id = $1 AND id = $2
	`, userID, id, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return entities.ErrNotFound
	}
	return nil
}
