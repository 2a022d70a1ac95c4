package cache

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const DefaultSweepSchedule = "@every 10m"

// Sweeper periodically reclaims expired entries.
type Sweeper struct {
	cron     *cron.Cron
	cache    *Cache
	schedule string
	logger   *zap.Logger
	now      func() time.Time
}

func NewSweeper(c *Cache, schedule string, logger *zap.Logger) *Sweeper {
	if logger == nil {
		logger = zap.NewNop()
	}
	if schedule == "" {
		schedule = DefaultSweepSchedule
	}
	return &Sweeper{
		cron:     cron.New(),
		cache:    c,
		schedule: schedule,
		logger:   logger,
		now:      time.Now,
	}
}

// Start registers the sweep job and starts the scheduler.
func (s *Sweeper) Start() error {
	if _, err := s.cron.AddFunc(s.schedule, s.run); err != nil {
		return fmt.Errorf("scheduling cache sweep %q: %w", s.schedule, err)
	}
	s.cron.Start()
	s.logger.Info("cache sweeper started", zap.String("schedule", s.schedule))
	return nil
}

// Stop halts the scheduler and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("cache sweeper stopped")
}

func (s *Sweeper) run() {
	removed := s.cache.Sweep(s.now())
	s.logger.Debug("cache sweep finished", zap.Int("removed", removed))
}
