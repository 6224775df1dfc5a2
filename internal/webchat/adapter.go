package webchat

import (
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/wolfman30/supportchat/internal/chat"
)

// ChatRequest is the body of POST /chat and of inbound WebSocket messages.
type ChatRequest struct {
	Type        string `json:"type,omitempty"` // websocket only: "message", "ping"
	Message     string `json:"message"`
	Initial     bool   `json:"initial"`
	Name        string `json:"name"`
	Phone       string `json:"phone"`
	Email       string `json:"email"`
	Personality string `json:"personality"`
}

// ChatResponse is what the widget renders.
type ChatResponse struct {
	Response         string   `json:"response"`
	SuggestedButtons []string `json:"suggested_buttons,omitempty"`
}

func (req ChatRequest) turnInput(sessionID, remoteAddr string) chat.TurnInput {
	return chat.TurnInput{
		SessionID:   sessionID,
		RemoteAddr:  remoteAddr,
		Message:     req.Message,
		Initial:     req.Initial,
		Name:        req.Name,
		Phone:       req.Phone,
		Email:       req.Email,
		Personality: req.Personality,
	}
}

func toResponse(out chat.TurnOutput) ChatResponse {
	return ChatResponse{Response: out.Response, SuggestedButtons: out.SuggestedButtons}
}

// statusFor maps router errors to HTTP status codes and the reply shown to
// the visitor.
func statusFor(err error, out chat.TurnOutput) (int, string) {
	switch {
	case err == nil:
		return http.StatusOK, out.Response
	case errors.Is(err, chat.ErrInvalidInput):
		return http.StatusBadRequest, chat.InvalidInputReply
	case errors.Is(err, chat.ErrUpstreamGeneration):
		return http.StatusInternalServerError, chat.GenerationErrorReply
	case errors.Is(err, chat.ErrSessionUnavailable):
		return http.StatusServiceUnavailable, unavailableReply
	default:
		return http.StatusInternalServerError, unavailableReply
	}
}

const unavailableReply = "Sorry, something went wrong. Please try again."

// clientAddr strips the port from r.RemoteAddr. chi's RealIP middleware has
// already replaced it with the forwarded address when present.
func clientAddr(r *http.Request) string {
	addr := strings.TrimSpace(r.RemoteAddr)
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}
