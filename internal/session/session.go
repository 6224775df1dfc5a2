// Package session tracks short-lived per-visitor chat state keyed by an
// opaque server-chosen id.
package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrEmptyID is returned when a store is asked for a session without an id.
var ErrEmptyID = errors.New("session: id required")

// Session is the mutable routing state for one browser session.
type Session struct {
	ID                   string    `json:"id" dynamodbav:"sessionId"`
	UserName             string    `json:"user_name,omitempty" dynamodbav:"userName,omitempty"`
	UserEmail            string    `json:"user_email,omitempty" dynamodbav:"userEmail,omitempty"`
	UserPhone            string    `json:"user_phone,omitempty" dynamodbav:"userPhone,omitempty"`
	UserDBID             int64     `json:"user_db_id,omitempty" dynamodbav:"userDbId,omitempty"`
	Personality          string    `json:"personality,omitempty" dynamodbav:"personality,omitempty"`
	MessageCount         int       `json:"message_count" dynamodbav:"messageCount"`
	GreetingSent         bool      `json:"greeting_sent" dynamodbav:"greetingSent"`
	AwaitingSalesConfirm bool      `json:"awaiting_sales_confirm" dynamodbav:"awaitingSalesConfirm"`
	ProspectPrompted     bool      `json:"prospect_prompted" dynamodbav:"prospectPrompted"`
	InquiryCount         int       `json:"inquiry_count" dynamodbav:"inquiryCount"`
	CreatedAt            time.Time `json:"created_at" dynamodbav:"createdAt"`
	UpdatedAt            time.Time `json:"updated_at" dynamodbav:"updatedAt"`
}

// New returns a fresh session for id.
func New(id string) *Session {
	now := time.Now().UTC()
	return &Session{ID: id, CreatedAt: now, UpdatedAt: now}
}

// Store persists sessions. Get returns a fresh session for unknown or expired ids;
// Exists reports whether id names a live stored session.
type Store interface {
	Get(ctx context.Context, id string) (*Session, error)
	Exists(ctx context.Context, id string) (bool, error)
	Save(ctx context.Context, s *Session) error
	Clear(ctx context.Context, id string) error
}

// NewID generates an opaque 32 character hex session id.
func NewID() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return strings.ReplaceAll(uuid.NewString(), "-", "")
	}
	return hex.EncodeToString(buf)
}

// BindContact records visitor contact details on the session.
func (s *Session) BindContact(name, email, phone string, userID int64) {
	if name = strings.TrimSpace(name); name != "" {
		s.UserName = name
	}
	if email = strings.TrimSpace(email); email != "" {
		s.UserEmail = email
	}
	if phone = strings.TrimSpace(phone); phone != "" {
		s.UserPhone = phone
	}
	if userID > 0 {
		s.UserDBID = userID
	}
}

func validID(id string) error {
	if strings.TrimSpace(id) == "" {
		return ErrEmptyID
	}
	return nil
}
