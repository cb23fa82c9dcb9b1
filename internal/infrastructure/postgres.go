package infrastructure

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresClient struct {
	Pool *pgxpool.Pool
}

func NewPostgresClient(ctx context.Context, connString string) (*PostgresClient, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("unable to parse connection string: %w", err)
	}

	// Pool configuration
	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = time.Hour
	config.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	client := &PostgresClient{Pool: pool}

	if err := client.Migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return client, nil
}

var migrations = []struct {
	name string
	sql  string
}{
	{"users", `
		CREATE TABLE IF NOT EXISTS users (
			id SERIAL PRIMARY KEY,
			username VARCHAR(50) UNIQUE NOT NULL,
			password_hash VARCHAR(255) NOT NULL,
			role VARCHAR(20) NOT NULL DEFAULT 'user',
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			monthly_limit INT NOT NULL DEFAULT 0,
			auto_reply_dms BOOLEAN NOT NULL DEFAULT FALSE,
			auto_reply_comments BOOLEAN NOT NULL DEFAULT FALSE,
			instagram_account_id VARCHAR(64) NOT NULL DEFAULT '',
			instagram_token TEXT NOT NULL DEFAULT '',
			telegram_chat_id BIGINT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`},
	{"users instagram index", `
		CREATE INDEX IF NOT EXISTS idx_users_instagram_account ON users (instagram_account_id);`},
	{"instagram_messages", `
		CREATE TABLE IF NOT EXISTS instagram_messages (
			id UUID PRIMARY KEY,
			user_id INT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			platform_id VARCHAR(255) NOT NULL,
			conversation_id VARCHAR(255) NOT NULL DEFAULT '',
			sender_id VARCHAR(255) NOT NULL DEFAULT '',
			sender_username VARCHAR(255) NOT NULL DEFAULT '',
			sender_name VARCHAR(255) NOT NULL DEFAULT '',
			text TEXT NOT NULL DEFAULT '',
			channel VARCHAR(10) NOT NULL,
			parent_post_id VARCHAR(255) NOT NULL DEFAULT '',
			received_at TIMESTAMPTZ NOT NULL,
			intent VARCHAR(32) NOT NULL DEFAULT '',
			confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
			detected_language VARCHAR(2) NOT NULL DEFAULT '',
			suggested_reply_fi TEXT NOT NULL DEFAULT '',
			suggested_reply_en TEXT NOT NULL DEFAULT '',
			is_question BOOLEAN NOT NULL DEFAULT FALSE,
			replied BOOLEAN NOT NULL DEFAULT FALSE,
			reply_text TEXT NOT NULL DEFAULT '',
			replied_by VARCHAR(20) NOT NULL DEFAULT '',
			replied_at TIMESTAMPTZ,
			external_reply_id VARCHAR(255) NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (user_id, platform_id)
		);`},
	{"instagram_messages conversation index", `
		CREATE INDEX IF NOT EXISTS idx_messages_conversation
		ON instagram_messages (user_id, conversation_id, received_at);`},
	{"automation_rules", `
		CREATE TABLE IF NOT EXISTS automation_rules (
			id UUID PRIMARY KEY,
			user_id INT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			trigger_text VARCHAR(500) NOT NULL,
			reply_text VARCHAR(1000) NOT NULL,
			match_type VARCHAR(20) NOT NULL,
			trigger_type VARCHAR(10) NOT NULL,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			usage_count INT NOT NULL DEFAULT 0,
			last_used_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`},
	{"business_rules", `
		CREATE TABLE IF NOT EXISTS business_rules (
			id UUID PRIMARY KEY,
			user_id INT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			category VARCHAR(20) NOT NULL,
			key VARCHAR(100) NOT NULL,
			value TEXT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (user_id, category, key)
		);`},
	{"reply_queue", `
		CREATE TABLE IF NOT EXISTS reply_queue (
			id UUID PRIMARY KEY,
			user_id INT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			message_id UUID NOT NULL UNIQUE REFERENCES instagram_messages(id) ON DELETE CASCADE,
			channel VARCHAR(10) NOT NULL,
			recipient_ref VARCHAR(255) NOT NULL,
			original_text TEXT NOT NULL DEFAULT '',
			suggested_reply TEXT NOT NULL,
			detected_language VARCHAR(2) NOT NULL DEFAULT '',
			status VARCHAR(10) NOT NULL DEFAULT 'pending',
			final_reply TEXT NOT NULL DEFAULT '',
			rejection_reason TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			approved_at TIMESTAMPTZ,
			rejected_at TIMESTAMPTZ
		);`},
	{"reply_logs", `
		CREATE TABLE IF NOT EXISTS reply_logs (
			id UUID PRIMARY KEY,
			user_id INT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			message_id UUID NOT NULL,
			channel VARCHAR(10) NOT NULL,
			reply_type VARCHAR(20) NOT NULL,
			recipient_ref VARCHAR(255) NOT NULL,
			reply_text TEXT NOT NULL,
			success BOOLEAN NOT NULL,
			error_message TEXT NOT NULL DEFAULT '',
			external_reply_id VARCHAR(255) NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`},
	{"ai_usage", `
		CREATE TABLE IF NOT EXISTS ai_usage (
			user_id INT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			month VARCHAR(7) NOT NULL,
			analyses INT NOT NULL DEFAULT 0,
			PRIMARY KEY (user_id, month)
		);`},
}

// Migrate creates the schema. Every statement is idempotent.
func (p *PostgresClient) Migrate(ctx context.Context) error {
	for _, m := range migrations {
		if _, err := p.Pool.Exec(ctx, m.sql); err != nil {
			return fmt.Errorf("create %s: %w", m.name, err)
		}
	}
	return nil
}

func (p *PostgresClient) Close() {
	p.Pool.Close()
}
