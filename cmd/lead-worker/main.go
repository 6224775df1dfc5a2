package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/wolfman30/supportchat/cmd/mainconfig"
	"github.com/wolfman30/supportchat/internal/app/bootstrap"
	appconfig "github.com/wolfman30/supportchat/internal/config"
	"github.com/wolfman30/supportchat/internal/notify"
	"github.com/wolfman30/supportchat/pkg/logging"
)

var errNoQueue = errors.New("lead worker requires LEAD_QUEUE_URL")

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()
	logger := logging.NewWithOptions(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	worker, err := buildWorker(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to start lead worker", "error", err)
		os.Exit(1)
	}

	worker.Start(ctx)
	logger.Info("lead worker started", "workers", cfg.LeadWorkerCount, "provider", cfg.LeadEmailProvider)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	logger.Info("lead worker shutting down")
	cancel()

	done := make(chan struct{})
	go func() {
		worker.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(30 * time.Second):
		logger.Warn("lead worker shutdown timed out")
	}
}

// buildWorker drains the lead queue into the configured email provider.
func buildWorker(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (*notify.LeadWorker, error) {
	if cfg.LeadQueueURL == "" {
		return nil, errNoQueue
	}
	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	queue, err := bootstrap.BuildLeadQueue(cfg, &awsCfg)
	if err != nil {
		return nil, err
	}
	sender := bootstrap.BuildEmailSender(cfg, &awsCfg, logger)
	notifier := notify.NewEmailLeadNotifier(sender, cfg.LeadRecipient, logger)
	return notify.NewLeadWorker(queue, notifier, logger, notify.WithWorkerCount(cfg.LeadWorkerCount)), nil
}
