// Package chatlog persists chat turns and visitor contact records.
package chatlog

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/wolfman30/supportchat/pkg/logging"
)

type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

func (s Sender) Valid() bool {
	return s == SenderUser || s == SenderBot
}

// Entry is one logged message.
type Entry struct {
	ID              int64     `json:"id,omitempty"`
	Timestamp       time.Time `json:"timestamp"`
	UserID          string    `json:"user_id"`
	Message         string    `json:"message"`
	Sender          Sender    `json:"sender"`
	Intent          string    `json:"intent,omitempty"`
	SalesFlag       bool      `json:"sales_flag"`
	SuccessFlag     bool      `json:"success_flag"`
	ContextSnapshot string    `json:"context_snapshot,omitempty"`
}

// User is a visitor who left contact details.
type User struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"created_at"`
}

var (
	ErrInvalidSender = errors.New("chatlog: sender must be user or bot")
	ErrEmailRequired = errors.New("chatlog: email is required")
)

// Store appends entries and upserts users. UpsertUser is idempotent on email
// and returns the existing id when the email is already known.
type Store interface {
	Append(ctx context.Context, entry Entry) error
	UpsertUser(ctx context.Context, name, email, phone string) (int64, error)
}

// FailureObserver counts swallowed persistence errors.
type FailureObserver interface {
	ObservePersistenceFailure(operation string)
}

// SalesIntent is the only intent for which SuccessFlag defaults to true. The
// classifier never produces it, so the default is effectively always false.
const SalesIntent = "sales"

// Logger writes chat turns best-effort: storage errors are logged and never
// returned to the chat flow.
type Logger struct {
	store    Store
	observer FailureObserver
	logger   *logging.Logger
	now      func() time.Time
}

func NewLogger(store Store, observer FailureObserver, logger *logging.Logger) *Logger {
	if store == nil {
		panic("chatlog: store cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Logger{store: store, observer: observer, logger: logger, now: time.Now}
}

type LogOption func(*logOptions)

type logOptions struct {
	intent      string
	salesFlag   *bool
	successFlag *bool
	snapshot    string
}

func WithIntent(intent string) LogOption {
	return func(o *logOptions) { o.intent = intent }
}

func WithSalesFlag(flag bool) LogOption {
	return func(o *logOptions) { o.salesFlag = &flag }
}

func WithSuccessFlag(flag bool) LogOption {
	return func(o *logOptions) { o.successFlag = &flag }
}

// WithContextSnapshot attaches free-form diagnostic context to the entry.
func WithContextSnapshot(snapshot string) LogOption {
	return func(o *logOptions) { o.snapshot = snapshot }
}

// BuildEntry applies the logging defaults: SalesFlag false and SuccessFlag
// true only for the sales intent.
func BuildEntry(ts time.Time, userID, message string, sender Sender, opts ...LogOption) Entry {
	var o logOptions
	for _, opt := range opts {
		opt(&o)
	}
	entry := Entry{
		Timestamp:       ts,
		UserID:          userID,
		Message:         message,
		Sender:          sender,
		Intent:          o.intent,
		SuccessFlag:     o.intent == SalesIntent,
		ContextSnapshot: o.snapshot,
	}
	if o.salesFlag != nil {
		entry.SalesFlag = *o.salesFlag
	}
	if o.successFlag != nil {
		entry.SuccessFlag = *o.successFlag
	}
	return entry
}

func (l *Logger) Log(ctx context.Context, userID, message string, sender Sender, opts ...LogOption) {
	entry := BuildEntry(l.now(), userID, message, sender, opts...)
	if err := l.store.Append(ctx, entry); err != nil {
		l.logger.Error("chatlog: failed to log chat", "error", err, "sender", sender, "intent", entry.Intent)
		l.fail("append")
	}
}

// RegisterUser upserts a contact record and returns its id, or 0 when the
// write failed or no email was given.
func (l *Logger) RegisterUser(ctx context.Context, name, email, phone string) int64 {
	if strings.TrimSpace(email) == "" {
		return 0
	}
	id, err := l.store.UpsertUser(ctx, name, email, phone)
	if err != nil {
		l.logger.Error("chatlog: failed to upsert user", "error", err)
		l.fail("upsert_user")
		return 0
	}
	return id
}

func (l *Logger) fail(op string) {
	if l.observer != nil {
		l.observer.ObservePersistenceFailure(op)
	}
}

func yesNo(v bool) string {
	if v {
		return "Yes"
	}
	return "No"
}
