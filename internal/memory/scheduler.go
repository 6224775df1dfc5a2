package memory

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/wolfman30/supportchat/pkg/logging"
)

const (
	DefaultCleanupSchedule = "@daily"
	DefaultMaxAge          = 30 * 24 * time.Hour
)

// CleanupScheduler periodically forgets idle visitors.
type CleanupScheduler struct {
	cron   *cron.Cron
	memory *Memory
	maxAge time.Duration
	logger *logging.Logger
}

// NewCleanupScheduler accepts standard five-field cron specs and descriptors
// such as "@daily" or "@every 1h".
func NewCleanupScheduler(m *Memory, schedule string, maxAge time.Duration, logger *logging.Logger) (*CleanupScheduler, error) {
	if m == nil {
		panic("memory: memory cannot be nil")
	}
	if schedule == "" {
		schedule = DefaultCleanupSchedule
	}
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	if logger == nil {
		logger = logging.Default()
	}

	s := &CleanupScheduler{cron: cron.New(), memory: m, maxAge: maxAge, logger: logger}
	if _, err := s.cron.AddFunc(schedule, s.RunOnce); err != nil {
		return nil, fmt.Errorf("memory: invalid cleanup schedule %q: %w", schedule, err)
	}
	return s, nil
}

// RunOnce performs a single cleanup pass.
func (s *CleanupScheduler) RunOnce() {
	removed := s.memory.Cleanup(s.maxAge)
	s.logger.Info("memory: cleanup complete", "removed", removed, "remaining", s.memory.Len())
}

func (s *CleanupScheduler) Start() {
	s.cron.Start()
}

// Stop halts scheduling and waits for a running cleanup to finish.
func (s *CleanupScheduler) Stop() {
	<-s.cron.Stop().Done()
}
