package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/supportchat/internal/chatlog"
	"github.com/wolfman30/supportchat/pkg/logging"
)

func TestSQLRepository_SalesSeries(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"timestamp", "sales_flag"}).
		AddRow(time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC), 0).
		AddRow(time.Date(2024, 5, 1, 9, 0, 5, 0, time.UTC), 1)
	mock.ExpectQuery("SELECT timestamp, COALESCE\\(sales_flag, 0\\) FROM chat_logs ORDER BY timestamp ASC").WillReturnRows(rows)

	series, err := NewSQLRepository(db).SalesSeries(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-05-01 09:00:00", "2024-05-01 09:00:05"}, series.Timestamps)
	assert.Equal(t, []int{0, 1}, series.SalesFlags)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLRepository_ListMessages(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	ts := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "timestamp", "user_id", "message", "sender", "intent", "sales_flag", "success_flag", "context_snapshot"}).
		AddRow(int64(2), ts, "ada@example.com", "Thanks!", "bot", "interest", 1, "No", "")
	mock.ExpectQuery("FROM chat_logs").WithArgs(DefaultPageSize, 0).WillReturnRows(rows)

	entries, err := NewSQLRepository(db).ListMessages(context.Background(), 0, -5)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, chatlog.SenderBot, entries[0].Sender)
	assert.True(t, entries[0].SalesFlag)
	assert.False(t, entries[0].SuccessFlag)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMemoryRepository(t *testing.T) {
	store := chatlog.NewMemoryStore()
	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, store.Append(context.Background(), chatlog.Entry{Timestamp: base.Add(time.Second), Sender: chatlog.SenderBot, SalesFlag: true, Message: "second"}))
	require.NoError(t, store.Append(context.Background(), chatlog.Entry{Timestamp: base, Sender: chatlog.SenderUser, Message: "first"}))

	repo := NewMemoryRepository(store)
	series, err := repo.SalesSeries(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-05-01 09:00:00", "2024-05-01 09:00:01"}, series.Timestamps)
	assert.Equal(t, []int{0, 1}, series.SalesFlags)

	msgs, err := repo.ListMessages(context.Background(), 1, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "second", msgs[0].Message)

	msgs, err = repo.ListMessages(context.Background(), 10, 5)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

type brokenRepo struct{}

func (brokenRepo) SalesSeries(context.Context) (SalesSeries, error) {
	return SalesSeries{}, errors.New("db down")
}

func (brokenRepo) ListMessages(context.Context, int, int) ([]chatlog.Entry, error) {
	return nil, errors.New("db down")
}

func TestHandler(t *testing.T) {
	store := chatlog.NewMemoryStore()
	require.NoError(t, store.Append(context.Background(), chatlog.Entry{Timestamp: time.Now(), Sender: chatlog.SenderUser, Message: "hi"}))
	h := NewHandler(NewMemoryRepository(store), logging.Default())

	rec := httptest.NewRecorder()
	h.SalesData(rec, httptest.NewRequest(http.MethodGet, "/analytics_data", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var series SalesSeries
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&series))
	assert.Len(t, series.Timestamps, 1)

	rec = httptest.NewRecorder()
	h.Messages(rec, httptest.NewRequest(http.MethodGet, "/analytics/messages?limit=5000", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var page MessagesResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&page))
	assert.Equal(t, MaxPageSize, page.Limit)
	assert.Len(t, page.Messages, 1)

	rec = httptest.NewRecorder()
	h.Messages(rec, httptest.NewRequest(http.MethodGet, "/analytics/messages?offset=abc", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	broken := NewHandler(brokenRepo{}, nil)
	rec = httptest.NewRecorder()
	broken.SalesData(rec, httptest.NewRequest(http.MethodGet, "/analytics_data", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
