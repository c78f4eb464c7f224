/*
autoclose.go - Background closer for forgotten clock-outs

PURPOSE:
  Staff forget to clock out. Left alone, those sessions accrue provisional
  hours forever and the month view fills with open rows. The AutoCloser
  periodically ends any session still open past a cutoff, marking it
  auto_closed so the payroll page can flag it for manual review.

DESIGN:
  - Runs a background goroutine with a configurable check interval
  - A session qualifies once it has been open longer than MaxOpenDuration
  - The close lands at start + MaxOpenDuration, not at "now": the employee
    did not work the hours between the cutoff and whenever the sweep ran
  - Closing is idempotent at the store: a session the employee closed in
    the meantime is skipped

USAGE:
  closer := payroll.NewAutoCloser(store, log)
  closer.Start()
  defer closer.Stop()

SEE ALSO:
  - reconciler.go: Derives the auto_close flag from the marker
  - store.go: OpenSessionStore contract
*/
package payroll

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	// DefaultMaxOpenDuration is how long a session may stay open before the
	// sweep closes it. Long enough for a genuine double shift.
	DefaultMaxOpenDuration = 16 * time.Hour

	// DefaultSweepInterval is how often the sweep runs.
	DefaultSweepInterval = 30 * time.Minute
)

// AutoCloser ends sessions whose clock-out never came.
type AutoCloser struct {
	Sessions OpenSessionStore
	Log      *logrus.Logger

	MaxOpenDuration time.Duration
	SweepInterval   time.Duration
	Now             func() time.Time

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

func NewAutoCloser(sessions OpenSessionStore, log *logrus.Logger) *AutoCloser {
	if log == nil {
		log = logrus.New()
	}
	return &AutoCloser{
		Sessions:        sessions,
		Log:             log,
		MaxOpenDuration: DefaultMaxOpenDuration,
		SweepInterval:   DefaultSweepInterval,
		Now:             time.Now,
		stop:            make(chan struct{}),
	}
}

// Start begins the background sweep. The first sweep runs immediately.
func (c *AutoCloser) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ticker != nil {
		return
	}

	c.ticker = time.NewTicker(c.SweepInterval)
	c.wg.Add(1)
	go c.run()

	c.Log.WithField("interval", c.SweepInterval.String()).Info("session auto-closer started")
}

// Stop halts the sweep and waits for an in-flight run to finish.
func (c *AutoCloser) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ticker == nil {
		return
	}

	c.ticker.Stop()
	close(c.stop)
	c.wg.Wait()
	c.ticker = nil
	c.Log.Info("session auto-closer stopped")
}

func (c *AutoCloser) run() {
	defer c.wg.Done()

	c.sweep(context.Background())

	for {
		select {
		case <-c.ticker.C:
			c.sweep(context.Background())
		case <-c.stop:
			return
		}
	}
}

// Sweep closes every qualifying session once and reports how many it
// closed. Exposed for tests and for a manual admin trigger.
func (c *AutoCloser) Sweep(ctx context.Context) (int, error) {
	cutoff := c.Now().Add(-c.MaxOpenDuration)
	open, err := c.Sessions.OpenSessionsBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	closed := 0
	for _, session := range open {
		end := session.Start.Add(c.MaxOpenDuration)
		if err := c.Sessions.CloseSessionAuto(ctx, session.ID, end); err != nil {
			c.Log.WithError(err).WithField("session_id", session.ID).Error("auto-close failed")
			continue
		}
		closed++
		c.Log.WithFields(logrus.Fields{
			"session_id":  session.ID,
			"employee_id": session.EmployeeID,
			"closed_at":   end.Format(time.RFC3339),
		}).Warn("auto-closed forgotten clock-out")
	}
	return closed, nil
}

func (c *AutoCloser) sweep(ctx context.Context) {
	if _, err := c.Sweep(ctx); err != nil {
		c.Log.WithError(err).Error("auto-close sweep failed")
	}
}
