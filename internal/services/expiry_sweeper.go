package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/SAP-F-2025/lms-service/internal/repositories"
)

const defaultSweepBatch = 100

// ExpirySweeper finalizes lapsed attempts in the background. Lazy expiry on
// every read stays in place; the sweeper only shortens how long a lapsed
// attempt keeps its in_progress status.
type ExpirySweeper struct {
	repo     repositories.Repository
	attempts AttemptService
	clock    Clock
	logger   *slog.Logger
	interval time.Duration
	batch    int
}

func NewExpirySweeper(repo repositories.Repository, attempts AttemptService, clock Clock, logger *slog.Logger, interval time.Duration, batch int) *ExpirySweeper {
	if clock == nil {
		clock = SystemClock()
	}
	if batch <= 0 {
		batch = defaultSweepBatch
	}
	return &ExpirySweeper{
		repo:     repo,
		attempts: attempts,
		clock:    clock,
		logger:   logger.With("component", "expiry_sweeper"),
		interval: interval,
		batch:    batch,
	}
}

// Run sweeps every interval until ctx is cancelled. A non-positive interval
// returns immediately.
func (s *ExpirySweeper) Run(ctx context.Context) {
	if s.interval <= 0 {
		return
	}

	s.logger.Info("Expiry sweeper started", "interval", s.interval.String(), "batch", s.batch)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Expiry sweeper stopped")
			return
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil && ctx.Err() == nil {
				s.logger.Error("Expiry sweep failed", "error", err)
			}
		}
	}
}

// Sweep expires one batch of lapsed attempts and returns how many this call
// finalized. Attempts finalized concurrently by a request are skipped.
func (s *ExpirySweeper) Sweep(ctx context.Context) (int, error) {
	lapsed, err := s.repo.Attempt().GetLapsed(ctx, s.clock.Now(), s.batch)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, attempt := range lapsed {
		if ctx.Err() != nil {
			return expired, ctx.Err()
		}
		won, err := s.attempts.Expire(ctx, attempt.ID)
		if err != nil {
			s.logger.Warn("Failed to expire attempt", "attempt_id", attempt.ID, "error", err)
			continue
		}
		if won {
			expired++
		}
	}

	if expired > 0 {
		s.logger.Info("Lapsed attempts expired", "count", expired)
	}
	return expired, nil
}
