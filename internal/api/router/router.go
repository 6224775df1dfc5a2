package router

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/supportchat/internal/analytics"
	httpmiddleware "github.com/wolfman30/supportchat/internal/http/middleware"
	"github.com/wolfman30/supportchat/internal/webchat"
	"github.com/wolfman30/supportchat/pkg/logging"
)

// ReadinessCheck reports whether a backing dependency is reachable.
type ReadinessCheck func(ctx context.Context) error

// Config holds router configuration
type Config struct {
	Logger             *logging.Logger
	Chat               *webchat.Handler
	Analytics          *analytics.Handler
	AdminAuthSecret    string
	MetricsHandler     http.Handler
	HTTPObserver       httpmiddleware.HTTPObserver
	CORSAllowedOrigins []string

	// ChatLimiter throttles POST /chat per client when set.
	ChatLimiter *httpmiddleware.RateLimiter

	// ReadinessChecks back GET /ready, keyed by dependency name.
	ReadinessChecks map[string]ReadinessCheck
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	if cfg.Chat == nil {
		panic("router: chat handler cannot be nil")
	}
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	r.Use(httpmiddleware.RequestLogger(cfg.Logger, cfg.HTTPObserver))

	r.Group(func(public chi.Router) {
		public.Get("/health", health)
		public.Get("/ready", readiness(cfg.ReadinessChecks))
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}

		public.Get("/", cfg.Chat.HandleReset)
		public.Get("/widget", cfg.Chat.HandleReset)
		public.Get("/embed.js", cfg.Chat.HandleWidgetJS)
		public.Route("/chat", func(c chi.Router) {
			if cfg.ChatLimiter != nil {
				c.With(httpmiddleware.RateLimit(cfg.ChatLimiter)).Post("/", cfg.Chat.HandleChat)
			} else {
				c.Post("/", cfg.Chat.HandleChat)
			}
			c.Get("/ws", cfg.Chat.HandleWebSocket)
			c.Get("/memory", cfg.Chat.HandleMemory)
		})
	})

	if cfg.Analytics != nil {
		r.Group(func(admin chi.Router) {
			admin.Use(httpmiddleware.AdminJWT(cfg.AdminAuthSecret))
			admin.Use(middleware.Compress(5))
			admin.Get("/analytics_data", cfg.Analytics.SalesData)
			admin.Get("/analytics/messages", cfg.Analytics.Messages)
		})
	}

	return r
}

func health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func readiness(checks map[string]ReadinessCheck) http.HandlerFunc {
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		status := http.StatusOK
		result := make(map[string]string, len(names))
		for _, name := range names {
			if err := checks[name](ctx); err != nil {
				result[name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			result[name] = "ok"
		}
		writeJSON(w, status, map[string]any{"status": http.StatusText(status), "checks": result})
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
