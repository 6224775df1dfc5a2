// Package webchat exposes the chat router to the embeddable widget over HTTP
// and WebSocket.
package webchat

import (
	"context"
	_ "embed"
	"encoding/json"
	"net/http"
	"strings"

	"golang.org/x/net/websocket"

	"github.com/wolfman30/supportchat/internal/chat"
	"github.com/wolfman30/supportchat/internal/memory"
	"github.com/wolfman30/supportchat/internal/session"
	"github.com/wolfman30/supportchat/pkg/logging"
)

const (
	DefaultCookieName = "chat_session"
	SessionHeader     = "X-Chat-Session"
)

//go:embed static/embed.js
var defaultWidgetJS []byte

// TurnHandler runs one chat turn.
type TurnHandler interface {
	HandleTurn(ctx context.Context, in chat.TurnInput) (chat.TurnOutput, error)
}

// OutboundMessage is what the WebSocket sends to the widget.
type OutboundMessage struct {
	Type             string   `json:"type"` // "message", "session", "pong", "error"
	Text             string   `json:"text,omitempty"`
	Role             string   `json:"role,omitempty"`
	SessionID        string   `json:"session_id,omitempty"`
	SuggestedButtons []string `json:"suggested_buttons,omitempty"`
}

// Handler serves the widget endpoints.
type Handler struct {
	router       TurnHandler
	sessions     session.Store
	memory       *memory.Memory
	logger       *logging.Logger
	widgetJS     []byte
	cookieName   string
	secureCookie bool
}

type Option func(*Handler)

func WithCookieName(name string) Option {
	return func(h *Handler) {
		if name = strings.TrimSpace(name); name != "" {
			h.cookieName = name
		}
	}
}

// WithSecureCookie marks the session cookie Secure; set it outside development.
func WithSecureCookie(secure bool) Option {
	return func(h *Handler) { h.secureCookie = secure }
}

func WithWidgetJS(js []byte) Option {
	return func(h *Handler) {
		if len(js) > 0 {
			h.widgetJS = js
		}
	}
}

// NewHandler creates a web chat handler. mem may be nil.
func NewHandler(router TurnHandler, sessions session.Store, mem *memory.Memory, logger *logging.Logger, opts ...Option) *Handler {
	if router == nil {
		panic("webchat: router cannot be nil")
	}
	if sessions == nil {
		panic("webchat: session store cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	h := &Handler{
		router:     router,
		sessions:   sessions,
		memory:     mem,
		logger:     logger,
		widgetJS:   defaultWidgetJS,
		cookieName: DefaultCookieName,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// sessionID returns the caller's session id, preferring the cookie over the
// header, and whether it names a live session. Ids the store does not know
// are replaced with a fresh server-chosen id.
func (h *Handler) sessionID(r *http.Request) (string, bool) {
	if c, err := r.Cookie(h.cookieName); err == nil && strings.TrimSpace(c.Value) != "" {
		return h.resolve(r.Context(), c.Value)
	}
	return h.resolve(r.Context(), r.Header.Get(SessionHeader))
}

func (h *Handler) resolve(ctx context.Context, candidate string) (string, bool) {
	candidate = strings.TrimSpace(candidate)
	if candidate == "" {
		return session.NewID(), false
	}
	ok, err := h.sessions.Exists(ctx, candidate)
	if err != nil {
		// Keep the id; the turn itself reports the store outage.
		h.logger.Warn("webchat: failed to check session", "error", err)
		return candidate, true
	}
	if !ok {
		return session.NewID(), false
	}
	return candidate, true
}

func (h *Handler) setCookie(w http.ResponseWriter, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

// HandleChat serves POST /chat.
func (h *Handler) HandleChat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ChatResponse{Response: chat.InvalidInputReply})
		return
	}

	id, existed := h.sessionID(r)
	if !existed {
		h.setCookie(w, id)
	}
	w.Header().Set(SessionHeader, id)

	out, err := h.router.HandleTurn(r.Context(), req.turnInput(id, clientAddr(r)))
	status, text := statusFor(err, out)
	if err != nil && status >= http.StatusInternalServerError {
		h.logger.Error("webchat: turn failed", "error", err, "status", status)
	}
	resp := toResponse(out)
	resp.Response = text
	writeJSON(w, status, resp)
}

// HandleReset serves GET / and GET /widget: the landing page starts a new
// conversation and lists the starter prompts.
func (h *Handler) HandleReset(w http.ResponseWriter, r *http.Request) {
	if id, existed := h.sessionID(r); existed {
		if err := h.sessions.Clear(r.Context(), id); err != nil {
			h.logger.Warn("webchat: failed to clear session", "error", err)
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"suggested_messages": chat.SuggestedMessages})
}

// HandleMemory serves GET /chat/memory for the caller's session.
func (h *Handler) HandleMemory(w http.ResponseWriter, r *http.Request) {
	if h.memory == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "conversation memory disabled"})
		return
	}
	id, existed := h.sessionID(r)
	var sess *session.Session
	if existed {
		s, err := h.sessions.Get(r.Context(), id)
		if err != nil {
			h.logger.Error("webchat: failed to load session", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "session store unavailable"})
			return
		}
		sess = s
	}
	writeJSON(w, http.StatusOK, h.memory.Summary(chat.UserID(sess, clientAddr(r))))
}

// HandleWidgetJS serves the embeddable widget JavaScript.
func (h *Handler) HandleWidgetJS(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/javascript")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	_, _ = w.Write(h.widgetJS)
}

// HandleWebSocket upgrades to WebSocket and runs one turn per inbound message.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	websocket.Handler(func(conn *websocket.Conn) {
		h.serveWS(conn, r)
	}).ServeHTTP(w, r)
}

func (h *Handler) serveWS(conn *websocket.Conn, r *http.Request) {
	var id string
	if q := strings.TrimSpace(r.URL.Query().Get("session")); q != "" {
		id, _ = h.resolve(r.Context(), q)
	} else {
		id, _ = h.sessionID(r)
	}
	remote := clientAddr(r)
	_ = websocket.JSON.Send(conn, OutboundMessage{Type: "session", SessionID: id})
	h.logger.Info("webchat: connection opened", "remote_ip", remote)

	for {
		var msg ChatRequest
		if err := websocket.JSON.Receive(conn, &msg); err != nil {
			h.logger.Debug("webchat: connection closed", "error", err)
			return
		}
		switch msg.Type {
		case "ping":
			_ = websocket.JSON.Send(conn, OutboundMessage{Type: "pong"})
			continue
		case "", "message":
		default:
			continue
		}

		out, err := h.router.HandleTurn(r.Context(), msg.turnInput(id, remote))
		status, text := statusFor(err, out)
		if err != nil {
			if status >= http.StatusInternalServerError {
				h.logger.Error("webchat: turn failed", "error", err, "status", status)
			}
			_ = websocket.JSON.Send(conn, OutboundMessage{Type: "error", Role: "assistant", Text: text})
			continue
		}
		_ = websocket.JSON.Send(conn, OutboundMessage{
			Type:             "message",
			Role:             "assistant",
			Text:             text,
			SuggestedButtons: out.SuggestedButtons,
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
