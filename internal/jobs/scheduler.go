package jobs

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"linkbio/internal/config"
)

// Scheduler enqueues periodic maintenance for the cleanup worker.
type Scheduler struct {
	cron  *cron.Cron
	queue *redis.Client
	cfg   *config.AppConfig
	log   zerolog.Logger
}

func NewScheduler(queue *redis.Client, cfg *config.AppConfig, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron:  cron.New(cron.WithSeconds()),
		queue: queue,
		cfg:   cfg,
		log:   log,
	}
}

func (s *Scheduler) Start() error {
	if s.queue == nil {
		return nil
	}

	// Hourly sweep of superseded assets whose inline delete failed.
	if _, err := s.cron.AddFunc("0 0 * * * *", s.enqueueOrphanSweep); err != nil {
		return err
	}

	s.cron.Start()
	return nil
}

func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	select {
	case <-ctx.Done():
	case <-time.After(5 * time.Second):
		s.log.Warn().Msg("scheduler stop timed out")
	}
}

func (s *Scheduler) enqueueOrphanSweep() {
	err := s.queue.XAdd(context.Background(), &redis.XAddArgs{
		Stream: s.cfg.Redis.CleanupStream,
		Values: map[string]any{"type": "orphan_sweep"},
	}).Err()
	if err != nil {
		s.log.Error().Err(err).Msg("enqueue orphan sweep failed")
	}
}
