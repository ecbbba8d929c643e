package call

import (
	"context"
	"time"

	"courier-assistant/internal/metrics"
	"courier-assistant/internal/models"

	"github.com/sirupsen/logrus"
)

// CheckerService is the slice of the scheduler the background checker
// drives.
type CheckerService interface {
	CheckPendingCalls(ctx context.Context, now time.Time) ([]models.CallNotification, error)
	CheckRetryCalls(ctx context.Context, now time.Time) ([]models.CallNotification, error)
}

// Checker polls for due calls on a fixed interval. Iterations are
// synchronous and never overlap; the interval must exceed worst-case
// iteration latency.
type Checker struct {
	svc      CheckerService
	interval time.Duration
	stop     chan struct{}
	done     chan struct{}
}

// NewChecker creates a checker that fires every interval.
func NewChecker(svc CheckerService, interval time.Duration) *Checker {
	return &Checker{
		svc:      svc,
		interval: interval,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start runs the polling loop until Stop is called. The first pass fires
// after one full interval.
func (c *Checker) Start() {
	go c.run()
}

func (c *Checker) run() {
	defer close(c.done)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	logrus.WithField("interval", c.interval.String()).Info("call checker started")
	for {
		select {
		case <-c.stop:
			logrus.Info("call checker stopped")
			return
		case <-ticker.C:
			c.runOnce(context.Background())
		}
	}
}

// runOnce performs one pending pass followed by one retry pass.
func (c *Checker) runOnce(ctx context.Context) {
	started := time.Now()
	now := time.Now()

	pending, err := c.svc.CheckPendingCalls(ctx, now)
	if err != nil {
		logrus.WithError(err).Error("pending call check failed")
	}
	retries, err := c.svc.CheckRetryCalls(ctx, now)
	if err != nil {
		logrus.WithError(err).Error("retry call check failed")
	}

	metrics.CheckerIterations.Observe(time.Since(started).Seconds())
	if len(pending) > 0 || len(retries) > 0 {
		logrus.WithFields(logrus.Fields{
			"pending_sent": len(pending),
			"retries_sent": len(retries),
		}).Info("call checker iteration delivered reminders")
	}
}

// Stop halts the loop and waits for an in-flight iteration to finish.
func (c *Checker) Stop() {
	close(c.stop)
	<-c.done
}
