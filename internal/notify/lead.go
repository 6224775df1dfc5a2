package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/wolfman30/supportchat/pkg/logging"
)

// LeadSubject is the subject line of every lead email.
const LeadSubject = "New Lead from Chatbot"

// Lead is a prospect who expressed interest in working with the company.
type Lead struct {
	Name    string `json:"name,omitempty"`
	Email   string `json:"email,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Message string `json:"message"`
}

// LeadNotifier tells a human about a new lead.
type LeadNotifier interface {
	NotifyLead(ctx context.Context, lead Lead) error
}

// FormatLeadBody renders the plain-text lead email. Missing contact fields
// are shown as N/A.
func FormatLeadBody(lead Lead) string {
	var b strings.Builder
	b.WriteString("New lead from chatbot:\n\n")
	fmt.Fprintf(&b, "Name: %s\n", orNA(lead.Name))
	fmt.Fprintf(&b, "Email: %s\n", orNA(lead.Email))
	fmt.Fprintf(&b, "Phone: %s\n", orNA(lead.Phone))
	fmt.Fprintf(&b, "Message: %s\n", lead.Message)
	return b.String()
}

func orNA(v string) string {
	if strings.TrimSpace(v) == "" {
		return "N/A"
	}
	return v
}

// EmailLeadNotifier emails each lead to a fixed recipient.
type EmailLeadNotifier struct {
	sender    EmailSender
	recipient string
	logger    *logging.Logger
}

var _ LeadNotifier = (*EmailLeadNotifier)(nil)

func NewEmailLeadNotifier(sender EmailSender, recipient string, logger *logging.Logger) *EmailLeadNotifier {
	if sender == nil {
		panic("notify: email sender cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &EmailLeadNotifier{sender: sender, recipient: strings.TrimSpace(recipient), logger: logger}
}

func (n *EmailLeadNotifier) NotifyLead(ctx context.Context, lead Lead) error {
	if n.recipient == "" {
		return errors.New("notify: lead recipient not configured")
	}
	err := n.sender.Send(ctx, EmailMessage{
		To:      n.recipient,
		Subject: LeadSubject,
		Body:    FormatLeadBody(lead),
	})
	if err != nil {
		return fmt.Errorf("notify: send lead email: %w", err)
	}
	n.logger.Info("notify: lead email sent", "has_email", lead.Email != "", "has_phone", lead.Phone != "")
	return nil
}
