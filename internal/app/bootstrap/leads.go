package bootstrap

import (
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	appconfig "github.com/wolfman30/supportchat/internal/config"
	"github.com/wolfman30/supportchat/internal/notify"
	"github.com/wolfman30/supportchat/pkg/logging"
)

// BuildEmailSender selects the lead email provider, falling back to the stub
// sender when the chosen provider is not configured.
func BuildEmailSender(cfg *appconfig.Config, awsCfg *aws.Config, logger *logging.Logger) notify.EmailSender {
	if logger == nil {
		logger = logging.Default()
	}
	switch cfg.LeadEmailProvider {
	case "sendgrid":
		if sender := notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.LeadFromEmail,
			FromName:  cfg.LeadFromName,
		}, logger); sender != nil {
			return sender
		}
		logger.Warn("sendgrid selected but SENDGRID_API_KEY is empty; using stub email sender")
	case "ses":
		if awsCfg != nil {
			return notify.NewSESSender(sesv2.NewFromConfig(*awsCfg), notify.SESConfig{
				FromEmail: cfg.LeadFromEmail,
				FromName:  cfg.LeadFromName,
			}, logger)
		}
		logger.Warn("ses selected without aws config; using stub email sender")
	case "", "stub":
	default:
		logger.Warn("unknown lead email provider; using stub email sender", "provider", cfg.LeadEmailProvider)
	}
	return notify.NewStubEmailSender(logger)
}

// BuildLeadQueue returns the SQS lead queue, or nil when LEAD_QUEUE_URL is unset.
func BuildLeadQueue(cfg *appconfig.Config, awsCfg *aws.Config) (notify.Queue, error) {
	url := strings.TrimSpace(cfg.LeadQueueURL)
	if url == "" {
		return nil, nil
	}
	if awsCfg == nil {
		return nil, fmt.Errorf("bootstrap: lead queue requires aws config")
	}
	return notify.NewSQSQueue(sqs.NewFromConfig(*awsCfg), url), nil
}

// BuildLeadNotifier enqueues leads when a queue is configured and emails them
// directly otherwise. Delivery always runs off the request path.
func BuildLeadNotifier(cfg *appconfig.Config, awsCfg *aws.Config, observer notify.StatusObserver, logger *logging.Logger) (*notify.AsyncNotifier, error) {
	if logger == nil {
		logger = logging.Default()
	}
	queue, err := BuildLeadQueue(cfg, awsCfg)
	if err != nil {
		return nil, err
	}
	var next notify.LeadNotifier
	if queue != nil {
		next = notify.NewQueueLeadNotifier(queue)
		logger.Info("lead notifications queued", "queue_url", cfg.LeadQueueURL)
	} else {
		if strings.TrimSpace(cfg.LeadRecipient) == "" {
			logger.Warn("LEAD_RECIPIENT is empty; lead emails will fail")
		}
		next = notify.NewEmailLeadNotifier(BuildEmailSender(cfg, awsCfg, logger), cfg.LeadRecipient, logger)
	}
	return notify.NewAsyncNotifier(next, cfg.LeadNotifyTimeout, observer, logger), nil
}
