package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

type fakeSendGrid struct {
	sent   []*mail.SGMailV3
	status int
	err    error
}

func (f *fakeSendGrid) SendWithContext(_ context.Context, email *mail.SGMailV3) (*rest.Response, error) {
	f.sent = append(f.sent, email)
	if f.err != nil {
		return nil, f.err
	}
	return &rest.Response{StatusCode: f.status}, nil
}

func TestNewSendGridSender_NilWithoutAPIKey(t *testing.T) {
	if sender := NewSendGridSender(SendGridConfig{FromEmail: "bot@example.com"}, nil); sender != nil {
		t.Error("expected nil sender when API key is empty")
	}
}

func TestNewSendGridSender_DefaultFromName(t *testing.T) {
	sender := NewSendGridSender(SendGridConfig{APIKey: "key", FromEmail: "bot@example.com"}, nil)
	if sender == nil {
		t.Fatal("expected non-nil sender")
	}
	if sender.fromName != DefaultFromName {
		t.Errorf("expected default from name %q, got %q", DefaultFromName, sender.fromName)
	}
}

func TestSendGridSender_Send(t *testing.T) {
	api := &fakeSendGrid{status: 202}
	sender := newSendGridSender(api, SendGridConfig{FromEmail: "bot@example.com", FromName: "Bot"}, nil)

	err := sender.Send(context.Background(), EmailMessage{To: "sales@example.com", Subject: LeadSubject, Body: "line1\nline2"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(api.sent) != 1 {
		t.Fatalf("expected 1 message, got %d", len(api.sent))
	}
	msg := api.sent[0]
	if msg.Subject != LeadSubject {
		t.Errorf("unexpected subject %q", msg.Subject)
	}
	if msg.From.Address != "bot@example.com" || msg.From.Name != "Bot" {
		t.Errorf("unexpected from %+v", msg.From)
	}
	if len(msg.Content) != 2 || msg.Content[1].Value != "line1<br>line2" {
		t.Errorf("expected html body derived from text, got %+v", msg.Content)
	}
}

func TestSendGridSender_SendErrors(t *testing.T) {
	rejected := newSendGridSender(&fakeSendGrid{status: 401}, SendGridConfig{FromEmail: "bot@example.com"}, nil)
	if err := rejected.Send(context.Background(), EmailMessage{To: "a@example.com", Subject: "s"}); err == nil {
		t.Error("expected error for 4xx status")
	}

	broken := newSendGridSender(&fakeSendGrid{err: errors.New("dial tcp")}, SendGridConfig{FromEmail: "bot@example.com"}, nil)
	if err := broken.Send(context.Background(), EmailMessage{To: "a@example.com", Subject: "s"}); err == nil {
		t.Error("expected transport error")
	}

	if err := (&SendGridSender{}).Send(context.Background(), EmailMessage{To: "a@example.com", Subject: "s"}); err == nil {
		t.Error("expected error when client is nil")
	}
}

type fakeSES struct {
	input *sesv2.SendEmailInput
	err   error
}

func (f *fakeSES) SendEmail(_ context.Context, in *sesv2.SendEmailInput, _ ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	f.input = in
	if f.err != nil {
		return nil, f.err
	}
	return &sesv2.SendEmailOutput{MessageId: aws.String("msg-1")}, nil
}

func TestSESSender_Send(t *testing.T) {
	api := &fakeSES{}
	sender := NewSESSender(api, SESConfig{FromEmail: "bot@example.com"}, nil)

	if err := sender.Send(context.Background(), EmailMessage{To: "sales@example.com", Subject: "Hi", Body: "text"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := aws.ToString(api.input.FromEmailAddress); got != DefaultFromName+" <bot@example.com>" {
		t.Errorf("unexpected from address %q", got)
	}
	if got := api.input.Destination.ToAddresses; len(got) != 1 || got[0] != "sales@example.com" {
		t.Errorf("unexpected destination %v", got)
	}
	body := api.input.Content.Simple.Body
	if body.Text == nil || aws.ToString(body.Text.Data) != "text" {
		t.Error("expected text body")
	}
	if body.Html != nil {
		t.Error("expected no html body")
	}

	api.err = errors.New("throttled")
	if err := sender.Send(context.Background(), EmailMessage{To: "sales@example.com", Subject: "Hi"}); err == nil {
		t.Error("expected SES error")
	}
}

func TestStubEmailSender_Send(t *testing.T) {
	sender := NewStubEmailSender(nil)
	if err := sender.Send(context.Background(), EmailMessage{To: "a@example.com", Subject: "s", Body: "b"}); err != nil {
		t.Errorf("stub sender should not return error, got: %v", err)
	}
	if err := sender.Send(context.Background(), EmailMessage{Subject: "s"}); err == nil {
		t.Error("expected error for missing recipient")
	}
}
