package service

import (
	"context"
	"log/slog"
	"time"
)

// Sweeper is the part of the lifecycle manager the background loop drives.
type Sweeper interface {
	Sweep(ctx context.Context) (int, error)
}

// SweeperService runs the readiness sweep on a fixed interval. It shares
// nothing with request handling except the record store, and stops when its
// context is cancelled.
type SweeperService struct {
	sweeper  Sweeper
	interval time.Duration
}

func NewSweeperService(sweeper Sweeper, interval time.Duration) *SweeperService {
	if interval <= 0 {
		interval = time.Minute
	}
	return &SweeperService{
		sweeper:  sweeper,
		interval: interval,
	}
}

// Run blocks until ctx is cancelled.
func (s *SweeperService) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	slog.Info("sweeper started",
		slog.Duration("interval", s.interval),
		slog.String("module", "sweep"),
	)

	for {
		select {
		case <-ctx.Done():
			slog.Info("sweeper stopped", slog.String("module", "sweep"))
			return
		case <-ticker.C:
			promoted, err := s.sweeper.Sweep(ctx)
			if err != nil {
				slog.ErrorContext(ctx, "sweep failed",
					slog.String("error", err.Error()),
					slog.String("module", "sweep"),
				)
				continue
			}
			if promoted > 0 {
				slog.InfoContext(ctx, "capsules promoted to ready",
					slog.Int("count", promoted),
					slog.String("module", "sweep"),
				)
			}
		}
	}
}
