package scheduler

import (
	"context"
	"time"

	"github.com/findash/bank-import-service/internal/domain"
	"github.com/findash/bank-import-service/pkg/logger"
)

// OverdueScheduler periodically flips PENDING ledger entries whose due date
// has passed to OVERDUE.
type OverdueScheduler struct {
	ledger   domain.LedgerRepository
	logger   *logger.Logger
	interval time.Duration
	cancel   context.CancelFunc
	done     chan struct{}
}

func NewOverdueScheduler(ledger domain.LedgerRepository, log *logger.Logger, interval time.Duration) *OverdueScheduler {
	return &OverdueScheduler{
		ledger:   ledger,
		logger:   log,
		interval: interval,
		done:     make(chan struct{}),
	}
}

func (s *OverdueScheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)

	go func() {
		defer close(s.done)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.logger.Info(ctx, "Overdue scheduler started",
			"interval", s.interval.String(),
		)

		s.run(ctx)
		for {
			select {
			case <-ctx.Done():
				s.logger.Info(context.Background(), "Overdue scheduler stopped")
				return
			case <-ticker.C:
				s.run(ctx)
			}
		}
	}()
}

func (s *OverdueScheduler) run(ctx context.Context) {
	today := time.Now()
	today = time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)

	updated, err := s.ledger.MarkOverdue(ctx, today)
	if err != nil {
		s.logger.Error(ctx, "Failed to mark overdue entries",
			"error", err,
		)
		return
	}
	if updated > 0 {
		s.logger.Info(ctx, "Marked entries as overdue",
			"count", updated,
		)
	}
}

func (s *OverdueScheduler) Stop(ctx context.Context) error {
	if s.cancel != nil {
		s.cancel()
	}

	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
