package call

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"courier-assistant/internal/models"
)

type countingChecker struct {
	pending int32
	retries int32
}

func (c *countingChecker) CheckPendingCalls(_ context.Context, _ time.Time) ([]models.CallNotification, error) {
	atomic.AddInt32(&c.pending, 1)
	return nil, nil
}

func (c *countingChecker) CheckRetryCalls(_ context.Context, _ time.Time) ([]models.CallNotification, error) {
	atomic.AddInt32(&c.retries, 1)
	return nil, nil
}

func TestCheckerRunsBothPasses(t *testing.T) {
	svc := &countingChecker{}
	checker := NewChecker(svc, 10*time.Millisecond)
	checker.Start()

	deadline := time.After(2 * time.Second)
	for atomic.LoadInt32(&svc.pending) < 2 || atomic.LoadInt32(&svc.retries) < 2 {
		select {
		case <-deadline:
			t.Fatalf("checker ticked pending=%d retries=%d, want at least 2 each",
				atomic.LoadInt32(&svc.pending), atomic.LoadInt32(&svc.retries))
		case <-time.After(5 * time.Millisecond):
		}
	}
	checker.Stop()

	// No iterations after Stop returns.
	p, r := atomic.LoadInt32(&svc.pending), atomic.LoadInt32(&svc.retries)
	time.Sleep(50 * time.Millisecond)
	if atomic.LoadInt32(&svc.pending) != p || atomic.LoadInt32(&svc.retries) != r {
		t.Fatal("checker kept ticking after Stop")
	}
}
