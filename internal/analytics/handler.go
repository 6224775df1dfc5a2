package analytics

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/wolfman30/supportchat/internal/chatlog"
	"github.com/wolfman30/supportchat/pkg/logging"
)

type Handler struct {
	repo   Repository
	logger *logging.Logger
}

func NewHandler(repo Repository, logger *logging.Logger) *Handler {
	if repo == nil {
		panic("analytics: repository required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{repo: repo, logger: logger}
}

// SalesData serves GET /analytics_data.
func (h *Handler) SalesData(w http.ResponseWriter, r *http.Request) {
	series, err := h.repo.SalesSeries(r.Context())
	if err != nil {
		h.logger.Error("analytics: sales series failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load analytics"})
		return
	}
	writeJSON(w, http.StatusOK, series)
}

type MessagesResponse struct {
	Messages []chatlog.Entry `json:"messages"`
	Limit    int             `json:"limit"`
	Offset   int             `json:"offset"`
}

// Messages serves GET /analytics/messages?limit=&offset=.
func (h *Handler) Messages(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid limit"})
		return
	}
	offset, err := queryInt(r, "offset")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid offset"})
		return
	}
	limit, offset = clampPage(limit, offset)

	messages, err := h.repo.ListMessages(r.Context(), limit, offset)
	if err != nil {
		h.logger.Error("analytics: list messages failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load messages"})
		return
	}
	writeJSON(w, http.StatusOK, MessagesResponse{Messages: messages, Limit: limit, Offset: offset})
}

func queryInt(r *http.Request, key string) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
