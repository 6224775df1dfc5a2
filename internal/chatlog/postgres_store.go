package chatlog

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type pgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore writes to the users and chat_logs tables.
type PostgresStore struct {
	pool pgxQuerier
}

var _ Store = (*PostgresStore)(nil)

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	if pool == nil {
		panic("chatlog: pgx pool required")
	}
	return &PostgresStore{pool: pool}
}

func newPostgresStoreWithQuerier(q pgxQuerier) *PostgresStore {
	if q == nil {
		panic("chatlog: querier required")
	}
	return &PostgresStore{pool: q}
}

func (s *PostgresStore) Append(ctx context.Context, e Entry) error {
	if !e.Sender.Valid() {
		return ErrInvalidSender
	}
	query := `
		INSERT INTO chat_logs (timestamp, user_id, message, sender, intent, sales_flag, success_flag, context_snapshot)
		VALUES ($1, $2, $3, $4::chat_sender, $5, $6, $7::yes_no, $8)
	`
	salesFlag := 0
	if e.SalesFlag {
		salesFlag = 1
	}
	if _, err := s.pool.Exec(ctx, query,
		e.Timestamp,
		e.UserID,
		e.Message,
		string(e.Sender),
		nullIfEmpty(e.Intent),
		salesFlag,
		yesNo(e.SuccessFlag),
		nullIfEmpty(e.ContextSnapshot),
	); err != nil {
		return fmt.Errorf("chatlog: insert chat log: %w", err)
	}
	return nil
}

// UpsertUser keeps the first name and phone seen for an email.
func (s *PostgresStore) UpsertUser(ctx context.Context, name, email, phone string) (int64, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return 0, ErrEmailRequired
	}
	query := `
		INSERT INTO users (name, email, phone)
		VALUES ($1, $2, $3)
		ON CONFLICT (email) DO UPDATE SET email = EXCLUDED.email
		RETURNING id
	`
	var id int64
	if err := s.pool.QueryRow(ctx, query, name, email, phone).Scan(&id); err != nil {
		return 0, fmt.Errorf("chatlog: upsert user: %w", err)
	}
	return id, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
