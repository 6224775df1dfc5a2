package webchat

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wolfman30/supportchat/internal/chat"
)

func TestStatusFor(t *testing.T) {
	out := chat.TurnOutput{Response: "hello"}

	status, text := statusFor(nil, out)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "hello", text)

	status, text = statusFor(chat.ErrInvalidInput, out)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "No input provided.", text)

	status, text = statusFor(fmt.Errorf("%w: timeout", chat.ErrUpstreamGeneration), out)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "Error contacting the AI model.", text)

	status, _ = statusFor(fmt.Errorf("%w: redis", chat.ErrSessionUnavailable), out)
	assert.Equal(t, http.StatusServiceUnavailable, status)

	status, text = statusFor(errors.New("boom"), out)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, unavailableReply, text)
}

func TestClientAddr(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "203.0.113.7:5123"
	assert.Equal(t, "203.0.113.7", clientAddr(req))

	req.RemoteAddr = "203.0.113.8"
	assert.Equal(t, "203.0.113.8", clientAddr(req))
}

func TestTurnInput(t *testing.T) {
	req := ChatRequest{Message: "hi", Initial: true, Name: "Ada", Email: "a@b.c", Phone: "1", Personality: "casual"}
	in := req.turnInput("s1", "10.0.0.1")
	assert.Equal(t, chat.TurnInput{
		SessionID: "s1", RemoteAddr: "10.0.0.1", Message: "hi", Initial: true,
		Name: "Ada", Email: "a@b.c", Phone: "1", Personality: "casual",
	}, in)
}
