// Package schedule drives the two recurring jobs off wall-clock
// minutes, so scans land just after hourly candles close.
package schedule

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Scan runs at minute 1 of every hour, one minute after the 1H candle
// closes. Monitoring runs every five minutes.
const (
	scanMinute      = 1
	monitorInterval = 5
)

// Scheduler ticks once a minute and dispatches the scan and monitor
// jobs. A job still running when its minute comes around again is
// skipped, never stacked.
type Scheduler struct {
	scan    func(context.Context)
	monitor func(context.Context)

	scanMu    sync.Mutex
	monitorMu sync.Mutex
	logger    zerolog.Logger
}

// New creates a scheduler for the given jobs.
func New(scan, monitor func(context.Context)) *Scheduler {
	return &Scheduler{
		scan:    scan,
		monitor: monitor,
		logger:  log.With().Str("component", "scheduler").Logger(),
	}
}

// Run blocks until ctx is cancelled. Both jobs fire once immediately so
// a restart does not wait out the clock.
func (s *Scheduler) Run(ctx context.Context) {
	s.logger.Info().Msg("Scheduler started")
	s.dispatch(ctx, true, true)

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("Scheduler stopped")
			return
		case now := <-ticker.C:
			minute := now.Minute()
			s.dispatch(ctx, minute == scanMinute, minute%monitorInterval == 0)
		}
	}
}

func (s *Scheduler) dispatch(ctx context.Context, runScan, runMonitor bool) {
	if runScan {
		go s.runLocked(ctx, &s.scanMu, "scan", s.scan)
	}
	if runMonitor {
		go s.runLocked(ctx, &s.monitorMu, "monitor", s.monitor)
	}
}

func (s *Scheduler) runLocked(ctx context.Context, mu *sync.Mutex, name string, job func(context.Context)) {
	if !mu.TryLock() {
		s.logger.Warn().Str("job", name).Msg("Previous run still active, skipping")
		return
	}
	defer mu.Unlock()

	start := time.Now()
	job(ctx)
	s.logger.Debug().Str("job", name).Dur("took", time.Since(start)).Msg("Job finished")
}
