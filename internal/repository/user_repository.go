package repository

import (
	"context"
	"errors"

	"viloai/internal/entities"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type UserRepository struct {
	db *pgxpool.Pool
}

func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, username, password_hash, role, is_active, monthly_limit, auto_reply_dms,
	auto_reply_comments, instagram_account_id, instagram_token, telegram_chat_id, created_at`

func scanUser(row pgx.Row) (*entities.User, error) {
	var u entities.User
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role, &u.IsActive, &u.MonthlyLimit, &u.AutoReplyDMs,
		&u.AutoReplyComments, &u.InstagramAccountID, &u.InstagramToken, &u.TelegramChatID, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, entities.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) CreateUser(ctx context.Context, user *entities.User) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO users (username, password_hash, role, is_active, monthly_limit)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`, user.Username, user.PasswordHash, user.Role, user.IsActive, user.MonthlyLimit).Scan(&user.ID, &user.CreatedAt)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return entities.ErrDuplicate
	}
	return err
}

func (r *UserRepository) GetByID(ctx context.Context, id int) (*entities.User, error) {
	return scanUser(r.db.QueryRow(ctx, "SELECT "+userColumns+" FROM users WHERE id = $1", id))
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*entities.User, error) {
	return scanUser(r.db.QueryRow(ctx, "SELECT "+userColumns+" FROM users WHERE username = $1", username))
}

func (r *UserRepository) GetByInstagramAccount(ctx context.Context, accountID string) (*entities.User, error) {
	if accountID == "" {
		return nil, entities.ErrNotFound
	}
	return scanUser(r.db.QueryRow(ctx, "SELECT "+userColumns+" FROM users WHERE instagram_account_id = $1", accountID))
}

func (r *UserRepository) ListUsers(ctx context.Context) ([]entities.User, error) {
	rows, err := r.db.Query(ctx, "SELECT "+userColumns+" FROM users ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []entities.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// UpdateSettings writes only the fields that are set.
func (r *UserRepository) UpdateSettings(ctx context.Context, id int, s entities.Settings) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE users SET
			auto_reply_dms = COALESCE($2, auto_reply_dms),
			auto_reply_comments = COALESCE($3, auto_reply_comments),
			instagram_account_id = COALESCE($4, instagram_account_id),
			instagram_token = COALESCE($5, instagram_token),
			telegram_chat_id = COALESCE($6, telegram_chat_id)
		WHERE id = $1
	`, id, s.AutoReplyDMs, s.AutoReplyComments, s.InstagramAccountID, s.InstagramToken, s.TelegramChatID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return entities.ErrNotFound
	}
	return nil
}

func (r *UserRepository) UpdateLimit(ctx context.Context, id int, monthlyLimit int) error {
	tag, err := r.db.Exec(ctx, "UPDATE users SET monthly_limit = $2 WHERE id = $1", id, monthlyLimit)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return entities.ErrNotFound
	}
	return nil
}

func (r *UserRepository) SetActive(ctx context.Context, id int, active bool) error {
	tag, err := r.db.Exec(ctx, "UPDATE users SET is_active = $2 WHERE id = $1", id, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return entities.ErrNotFound
	}
	return nil
}
