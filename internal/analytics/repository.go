// Package analytics serves read-only reporting projections of the chat log.
package analytics

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/wolfman30/supportchat/internal/chatlog"
)

// TimestampLayout is the wire format of SalesSeries timestamps.
const TimestampLayout = "2006-01-02 15:04:05"

const (
	DefaultPageSize = 100
	MaxPageSize     = 1000
)

// SalesSeries is the chat log as parallel arrays, oldest first.
type SalesSeries struct {
	Timestamps []string `json:"timestamps"`
	SalesFlags []int    `json:"sales_flags"`
}

type Repository interface {
	SalesSeries(ctx context.Context) (SalesSeries, error)
	// ListMessages returns entries newest first.
	ListMessages(ctx context.Context, limit, offset int) ([]chatlog.Entry, error)
}

// SQLRepository reads chat_logs through database/sql.
type SQLRepository struct {
	db *sql.DB
}

var _ Repository = (*SQLRepository)(nil)

func NewSQLRepository(db *sql.DB) *SQLRepository {
	if db == nil {
		panic("analytics: db required")
	}
	return &SQLRepository{db: db}
}

func (r *SQLRepository) SalesSeries(ctx context.Context) (SalesSeries, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT timestamp, COALESCE(sales_flag, 0) FROM chat_logs ORDER BY timestamp ASC`)
	if err != nil {
		return SalesSeries{}, fmt.Errorf("analytics: query sales series: %w", err)
	}
	defer rows.Close()

	series := SalesSeries{Timestamps: []string{}, SalesFlags: []int{}}
	for rows.Next() {
		var ts time.Time
		var flag int
		if err := rows.Scan(&ts, &flag); err != nil {
			return SalesSeries{}, fmt.Errorf("analytics: scan sales series: %w", err)
		}
		series.Timestamps = append(series.Timestamps, ts.Format(TimestampLayout))
		series.SalesFlags = append(series.SalesFlags, flag)
	}
	if err := rows.Err(); err != nil {
		return SalesSeries{}, fmt.Errorf("analytics: iterate sales series: %w", err)
	}
	return series, nil
}

func (r *SQLRepository) ListMessages(ctx context.Context, limit, offset int) ([]chatlog.Entry, error) {
	limit, offset = clampPage(limit, offset)
	query := `
		SELECT id, timestamp, user_id, message, sender::text, COALESCE(intent, ''),
		       COALESCE(sales_flag, 0), success_flag::text, COALESCE(context_snapshot, '')
		FROM chat_logs
		ORDER BY timestamp DESC, id DESC
		LIMIT $1 OFFSET $2
	`
	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("analytics: query messages: %w", err)
	}
	defer rows.Close()

	entries := []chatlog.Entry{}
	for rows.Next() {
		var (
			e       chatlog.Entry
			sender  string
			sales   int
			success string
		)
		if err := rows.Scan(&e.ID, &e.Timestamp, &e.UserID, &e.Message, &sender, &e.Intent, &sales, &success, &e.ContextSnapshot); err != nil {
			return nil, fmt.Errorf("analytics: scan message: %w", err)
		}
		e.Sender = chatlog.Sender(sender)
		e.SalesFlag = sales != 0
		e.SuccessFlag = success == "Yes"
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("analytics: iterate messages: %w", err)
	}
	return entries, nil
}

// MemoryRepository projects the entries of an in-process chat log.
type MemoryRepository struct {
	entries func() []chatlog.Entry
}

var _ Repository = (*MemoryRepository)(nil)

func NewMemoryRepository(store *chatlog.MemoryStore) *MemoryRepository {
	if store == nil {
		panic("analytics: store required")
	}
	return &MemoryRepository{entries: store.Entries}
}

func (r *MemoryRepository) SalesSeries(context.Context) (SalesSeries, error) {
	entries := r.entries()
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Timestamp.Before(entries[j].Timestamp) })

	series := SalesSeries{Timestamps: make([]string, 0, len(entries)), SalesFlags: make([]int, 0, len(entries))}
	for _, e := range entries {
		flag := 0
		if e.SalesFlag {
			flag = 1
		}
		series.Timestamps = append(series.Timestamps, e.Timestamp.Format(TimestampLayout))
		series.SalesFlags = append(series.SalesFlags, flag)
	}
	return series, nil
}

func (r *MemoryRepository) ListMessages(_ context.Context, limit, offset int) ([]chatlog.Entry, error) {
	limit, offset = clampPage(limit, offset)
	entries := r.entries()
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Timestamp.Equal(entries[j].Timestamp) {
			return entries[i].ID > entries[j].ID
		}
		return entries[i].Timestamp.After(entries[j].Timestamp)
	})
	if offset >= len(entries) {
		return []chatlog.Entry{}, nil
	}
	end := offset + limit
	if end > len(entries) {
		end = len(entries)
	}
	return entries[offset:end], nil
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
