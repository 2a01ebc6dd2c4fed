package sched

import (
	"context"
	"time"

	"portrait-studio/internal/infra/metrics"

	"github.com/rs/zerolog"
)

// PoolSampler reports the connection pool counters.
type PoolSampler func() (total, idle, inUse int32)

// PoolStatsWorker periodically publishes the database pool state as gauges.
type PoolStatsWorker struct {
	interval time.Duration
	sample   PoolSampler
	log      *zerolog.Logger
}

func NewPoolStatsWorker(interval time.Duration, sample PoolSampler, logger *zerolog.Logger) *PoolStatsWorker {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	l := logger.With().Str("component", "PoolStatsWorker").Logger()
	return &PoolStatsWorker{interval: interval, sample: sample, log: &l}
}

func (w *PoolStatsWorker) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.interval).Msg("Starting pool stats worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.publish()
	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping pool stats worker")
			return ctx.Err()
		case <-ticker.C:
			w.publish()
		}
	}
}

func (w *PoolStatsWorker) publish() {
	total, idle, inUse := w.sample()
	metrics.SetDBPoolStats(total, idle, inUse)
	if inUse == total && total > 0 {
		w.log.Warn().Int32("total", total).Msg("database pool saturated")
	}
}
