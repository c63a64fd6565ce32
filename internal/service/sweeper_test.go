package service

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

type countingSweeper struct {
	calls atomic.Int64
}

func (s *countingSweeper) Sweep(ctx context.Context) (int, error) {
	s.calls.Add(1)
	return 0, nil
}

func TestSweeperRunsOnInterval(t *testing.T) {
	sweeper := &countingSweeper{}
	svc := NewSweeperService(sweeper, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		svc.Run(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for sweeper.calls.Load() < 2 {
		select {
		case <-deadline:
			t.Fatalf("expected at least 2 sweeps, got %d", sweeper.calls.Load())
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("sweeper did not stop on cancellation")
	}
}

func TestSweeperDefaultsInterval(t *testing.T) {
	svc := NewSweeperService(&countingSweeper{}, 0)
	if svc.interval != time.Minute {
		t.Fatalf("expected default interval of 1m got %v", svc.interval)
	}
}
