package notify

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/wolfman30/supportchat/pkg/logging"
)

const deleteTimeout = 5 * time.Second

// LeadWorker drains a lead Queue and delivers each lead with a LeadNotifier.
// Messages whose delivery fails are left on the queue for redelivery.
type LeadWorker struct {
	queue    Queue
	notifier LeadNotifier
	logger   *logging.Logger

	workers     int
	batchSize   int
	waitSeconds int
	wg          sync.WaitGroup
}

type WorkerOption func(*LeadWorker)

func WithWorkerCount(n int) WorkerOption {
	return func(w *LeadWorker) {
		if n > 0 {
			w.workers = n
		}
	}
}

func WithReceiveWaitSeconds(seconds int) WorkerOption {
	return func(w *LeadWorker) {
		if seconds >= 0 {
			w.waitSeconds = seconds
		}
	}
}

func WithReceiveBatchSize(size int) WorkerOption {
	return func(w *LeadWorker) {
		if size > 0 && size <= 10 {
			w.batchSize = size
		}
	}
}

func NewLeadWorker(queue Queue, notifier LeadNotifier, logger *logging.Logger, opts ...WorkerOption) *LeadWorker {
	if queue == nil {
		panic("notify: queue cannot be nil")
	}
	if notifier == nil {
		panic("notify: lead notifier cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	w := &LeadWorker{
		queue:       queue,
		notifier:    notifier,
		logger:      logger,
		workers:     1,
		batchSize:   10,
		waitSeconds: 20,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start launches the worker goroutines; they exit when ctx is cancelled.
func (w *LeadWorker) Start(ctx context.Context) {
	for i := 0; i < w.workers; i++ {
		w.wg.Add(1)
		go w.run(ctx, i+1)
	}
}

func (w *LeadWorker) Wait() {
	w.wg.Wait()
}

func (w *LeadWorker) run(ctx context.Context, workerID int) {
	defer w.wg.Done()
	w.logger.Debug("notify: lead worker started", "worker_id", workerID)

	backoff := time.Second
	for {
		if ctx.Err() != nil {
			w.logger.Debug("notify: lead worker stopping", "worker_id", workerID)
			return
		}

		messages, err := w.queue.Receive(ctx, w.batchSize, w.waitSeconds)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return
			}
			w.logger.Error("notify: failed to receive leads", "error", err, "worker_id", workerID)
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			if backoff < 5*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		for _, msg := range messages {
			w.handle(ctx, msg)
		}
	}
}

func (w *LeadWorker) handle(ctx context.Context, msg QueueMessage) {
	var env leadEnvelope
	if err := json.Unmarshal([]byte(msg.Body), &env); err != nil {
		w.logger.Error("notify: dropping undecodable lead", "error", err, "msg_id", msg.ID)
		w.delete(msg.ReceiptHandle)
		return
	}

	if err := w.notifier.NotifyLead(ctx, env.Lead); err != nil {
		w.logger.Error("notify: lead delivery failed", "error", err, "lead_id", env.ID)
		return
	}
	w.logger.Info("notify: lead delivered", "lead_id", env.ID, "queued_for", time.Since(env.EnqueuedAt).String())
	w.delete(msg.ReceiptHandle)
}

func (w *LeadWorker) delete(receiptHandle string) {
	ctx, cancel := context.WithTimeout(context.Background(), deleteTimeout)
	defer cancel()
	if err := w.queue.Delete(ctx, receiptHandle); err != nil {
		w.logger.Error("notify: failed to delete lead message", "error", err)
	}
}
