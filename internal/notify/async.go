package notify

import (
	"context"
	"sync"
	"time"

	"github.com/wolfman30/supportchat/pkg/logging"
)

// DefaultNotifyTimeout bounds a single background delivery.
const DefaultNotifyTimeout = 15 * time.Second

// Delivery outcomes reported to a StatusObserver.
const (
	StatusSent   = "sent"
	StatusFailed = "failed"
)

// StatusObserver records lead delivery outcomes.
type StatusObserver interface {
	ObserveLeadNotification(status string)
}

// AsyncNotifier delivers leads in the background so a chat turn never waits
// on the email provider. NotifyLead always returns nil; failures are logged.
type AsyncNotifier struct {
	next     LeadNotifier
	timeout  time.Duration
	observer StatusObserver
	logger   *logging.Logger
	wg       sync.WaitGroup
}

var _ LeadNotifier = (*AsyncNotifier)(nil)

func NewAsyncNotifier(next LeadNotifier, timeout time.Duration, observer StatusObserver, logger *logging.Logger) *AsyncNotifier {
	if next == nil {
		panic("notify: lead notifier cannot be nil")
	}
	if timeout <= 0 {
		timeout = DefaultNotifyTimeout
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &AsyncNotifier{next: next, timeout: timeout, observer: observer, logger: logger}
}

func (a *AsyncNotifier) NotifyLead(_ context.Context, lead Lead) error {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				a.logger.Error("notify: lead notifier panicked", "panic", r)
				a.observe(StatusFailed)
			}
		}()

		// Detached from the request context: the turn finishes before delivery does.
		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		defer cancel()

		if err := a.next.NotifyLead(ctx, lead); err != nil {
			a.logger.Warn("notify: lead notification failed", "error", err)
			a.observe(StatusFailed)
			return
		}
		a.observe(StatusSent)
	}()
	return nil
}

// Wait blocks until in-flight deliveries finish. Used on shutdown and in tests.
func (a *AsyncNotifier) Wait() {
	a.wg.Wait()
}

func (a *AsyncNotifier) observe(status string) {
	if a.observer != nil {
		a.observer.ObserveLeadNotification(status)
	}
}
