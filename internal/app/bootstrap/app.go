// Package bootstrap assembles the chat service from configuration.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/supportchat/internal/analytics"
	"github.com/wolfman30/supportchat/internal/api/router"
	"github.com/wolfman30/supportchat/internal/chat"
	"github.com/wolfman30/supportchat/internal/chatlog"
	appconfig "github.com/wolfman30/supportchat/internal/config"
	"github.com/wolfman30/supportchat/internal/faq"
	httpmiddleware "github.com/wolfman30/supportchat/internal/http/middleware"
	"github.com/wolfman30/supportchat/internal/intent"
	"github.com/wolfman30/supportchat/internal/knowledge"
	"github.com/wolfman30/supportchat/internal/memory"
	"github.com/wolfman30/supportchat/internal/notify"
	"github.com/wolfman30/supportchat/internal/observability/metrics"
	"github.com/wolfman30/supportchat/internal/session"
	"github.com/wolfman30/supportchat/internal/webchat"
	"github.com/wolfman30/supportchat/pkg/logging"
)

// App is the assembled HTTP service and the resources it owns.
type App struct {
	Handler http.Handler
	Router  *chat.Router
	Memory  *memory.Memory

	cfg       *appconfig.Config
	logger    *logging.Logger
	pool      *pgxpool.Pool
	redis     *redis.Client
	notifier  *notify.AsyncNotifier
	scheduler *memory.CleanupScheduler
	limiter   *httpmiddleware.RateLimiter
	sessions  *session.MemoryStore
	closers   []io.Closer
}

// Build wires every component named in cfg. awsCfg may be nil when
// NeedsAWS(cfg) is false. reg defaults to the global Prometheus registry.
func Build(ctx context.Context, cfg *appconfig.Config, awsCfg *aws.Config, reg *prometheus.Registry, logger *logging.Logger) (app *App, err error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	app = &App{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			app.closeResources()
		}
	}()

	var registerer prometheus.Registerer = prometheus.DefaultRegisterer
	var gatherer prometheus.Gatherer = prometheus.DefaultGatherer
	if reg != nil {
		registerer, gatherer = reg, reg
	}
	chatMetrics := metrics.NewChatMetrics(registerer)

	// Sessions.
	if cfg.SessionBackend == "redis" {
		app.redis = BuildRedisClient(ctx, cfg, logger, true)
	}
	sessions, err := BuildSessionStore(cfg, app.redis, awsCfg, logger)
	if err != nil {
		return nil, err
	}
	if ms, ok := sessions.(*session.MemoryStore); ok {
		app.sessions = ms
		app.closers = append(app.closers, ms)
	}

	// Chat log and analytics.
	app.pool, err = BuildPostgresPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	var (
		logStore      chatlog.Store
		analyticsRepo analytics.Repository
	)
	if app.pool != nil {
		logStore = chatlog.NewPostgresStore(app.pool)
		db := stdlib.OpenDBFromPool(app.pool)
		app.closers = append(app.closers, db)
		analyticsRepo = analytics.NewSQLRepository(db)
	} else {
		logger.Warn("DATABASE_URL not set; chat log kept in memory")
		mem := chatlog.NewMemoryStore()
		logStore = mem
		analyticsRepo = analytics.NewMemoryRepository(mem)
	}
	chatLogger := chatlog.NewLogger(logStore, chatMetrics, logger)

	// Routing content.
	matcher, err := faq.LoadOrDefault(cfg.FAQPath)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: %w", err)
	}
	classifier, err := intent.LoadOrTrain(cfg.ClassifierModelPath)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	// Retrieval and generation.
	embedder, err := BuildEmbedder(cfg, awsCfg)
	if err != nil {
		return nil, err
	}
	index, closer, err := BuildKnowledgeIndex(cfg, embedder, logger)
	if err != nil {
		return nil, err
	}
	if closer != nil {
		app.closers = append(app.closers, closer)
	}
	if n, err := SeedKnowledge(ctx, cfg, awsCfg, index, logger); err != nil {
		logger.Warn("failed to seed knowledge", "error", err)
	} else if n > 0 {
		logger.Info("knowledge seeded", "chunks", n)
	}
	client, llmClosers, err := BuildLLMClient(ctx, cfg, awsCfg, logger)
	if err != nil {
		return nil, err
	}
	app.closers = append(app.closers, llmClosers...)
	generator := BuildGenerator(cfg, client, chatMetrics, logger)

	// Leads.
	app.notifier, err = BuildLeadNotifier(cfg, awsCfg, chatMetrics, logger)
	if err != nil {
		return nil, err
	}

	// Conversation memory.
	profiles, err := memory.LoadProfiles(cfg.PersonalitiesPath)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: %w", err)
	}
	app.Memory = memory.New(memory.WithProfiles(profiles))
	app.loadMemorySnapshot()
	app.scheduler, err = memory.NewCleanupScheduler(app.Memory, cfg.MemoryCleanupSchedule, cfg.MemoryMaxAge, logger)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	app.Router = chat.NewRouter(chat.Deps{
		Sessions:   sessions,
		FAQ:        matcher,
		Classifier: classifier,
		Retriever:  knowledge.NewRetriever(index),
		Generator:  generator,
		Notifier:   app.notifier,
		ChatLog:    chatLogger,
		Memory:     app.Memory,
		Metrics:    chatMetrics,
		Logger:     logger,
	},
		chat.WithRetrievalK(cfg.RetrievalK),
		chat.WithPhraseVariation(cfg.PhraseVariation),
		chat.WithRestrictedTopics(cfg.RestrictedTopics),
	)

	chatHandler := webchat.NewHandler(app.Router, sessions, app.Memory, logger,
		webchat.WithCookieName(cfg.SessionCookie),
		webchat.WithSecureCookie(cfg.Env == "production"),
	)
	if cfg.RateLimitPerSecond > 0 {
		app.limiter = httpmiddleware.NewRateLimiter(float64(cfg.RateLimitPerSecond), cfg.RateLimitBurst)
	}

	var analyticsHandler *analytics.Handler
	if cfg.AdminJWTSecret != "" {
		analyticsHandler = analytics.NewHandler(analyticsRepo, logger)
	} else {
		logger.Warn("ADMIN_JWT_SECRET not set; analytics endpoints disabled")
	}

	app.Handler = router.New(&router.Config{
		Logger:             logger,
		Chat:               chatHandler,
		Analytics:          analyticsHandler,
		AdminAuthSecret:    cfg.AdminJWTSecret,
		MetricsHandler:     promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}),
		HTTPObserver:       chatMetrics,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		ChatLimiter:        app.limiter,
		ReadinessChecks:    app.readinessChecks(),
	})
	return app, nil
}

// Start launches background jobs.
func (a *App) Start() {
	a.scheduler.Start()
	if a.sessions != nil {
		a.sessions.StartSweeper(a.cfg.SessionSweep)
	}
}

// Close stops background jobs, drains pending lead deliveries, persists the
// memory snapshot and releases connections.
func (a *App) Close(ctx context.Context) error {
	if a.scheduler != nil {
		a.scheduler.Stop()
	}
	if a.notifier != nil {
		done := make(chan struct{})
		go func() {
			a.notifier.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-ctx.Done():
			a.logger.Warn("shutdown: pending lead notifications abandoned")
		}
	}
	err := a.saveMemorySnapshot()
	a.closeResources()
	return err
}

func (a *App) closeResources() {
	if a.limiter != nil {
		a.limiter.Close()
	}
	closeAll(a.closers)
	if a.pool != nil {
		a.pool.Close()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
}

func (a *App) readinessChecks() map[string]router.ReadinessCheck {
	checks := map[string]router.ReadinessCheck{}
	if a.pool != nil {
		checks["postgres"] = a.pool.Ping
	}
	if a.redis != nil {
		checks["redis"] = func(ctx context.Context) error { return a.redis.Ping(ctx).Err() }
	}
	return checks
}

func (a *App) loadMemorySnapshot() {
	path := a.cfg.MemorySnapshotPath
	if path == "" {
		return
	}
	fh, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return
	}
	if err != nil {
		a.logger.Warn("failed to open memory snapshot", "error", err, "path", path)
		return
	}
	defer fh.Close()
	if err := a.Memory.Load(fh); err != nil {
		a.logger.Warn("failed to load memory snapshot", "error", err, "path", path)
		return
	}
	a.logger.Info("conversation memory restored", "path", path, "conversations", a.Memory.Len())
}

func (a *App) saveMemorySnapshot() error {
	path := a.cfg.MemorySnapshotPath
	if path == "" || a.Memory == nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("bootstrap: memory snapshot dir: %w", err)
	}
	tmp := path + ".tmp"
	fh, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("bootstrap: create memory snapshot: %w", err)
	}
	if err := a.Memory.Save(fh); err != nil {
		fh.Close()
		return fmt.Errorf("bootstrap: write memory snapshot: %w", err)
	}
	if err := fh.Close(); err != nil {
		return fmt.Errorf("bootstrap: close memory snapshot: %w", err)
	}
	return os.Rename(tmp, path)
}
