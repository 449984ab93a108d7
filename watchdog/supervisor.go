// Package watchdog runs the background loop that reconciles stored printer
// page counters with the counters reported by the devices.
package watchdog

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/devadigapratham/printsync/metrics"
	"github.com/sirupsen/logrus"
)

// DefaultStopGrace bounds how long Stop waits for the loop to exit
const DefaultStopGrace = 100 * time.Millisecond

// ErrStopTimeout is returned by Stop when the loop was cancelled but did not
// exit within the grace period.
var ErrStopTimeout = errors.New("watchdog did not exit within grace period")

// Result is the outcome of a control command
type Result string

const (
	Started        Result = "started"
	AlreadyRunning Result = "already_running"
	Stopped        Result = "stopped"
	NotRunning     Result = "not_running"
)

// Status reports the run state of the loop
type Status struct {
	Running bool `json:"running"`
}

// Runner is a loop that runs until its context is cancelled
type Runner interface {
	Run(ctx context.Context)
}

// Supervisor owns the single poll loop of the process
type Supervisor struct {
	mu     sync.Mutex
	runner Runner
	grace  time.Duration
	log    logrus.FieldLogger

	cancel context.CancelFunc
	done   chan struct{}
}

// NewSupervisor creates a new Supervisor; a non-positive grace means DefaultStopGrace
func NewSupervisor(runner Runner, grace time.Duration, log logrus.FieldLogger) *Supervisor {
	if grace <= 0 {
		grace = DefaultStopGrace
	}
	return &Supervisor{
		runner: runner,
		grace:  grace,
		log:    log.WithField("component", "watchdog"),
	}
}

// Start launches the loop unless one is already running
func (s *Supervisor) Start() Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.runningLocked() {
		return AlreadyRunning
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done

	metrics.SetWatchdogRunning(true)
	go func() {
		defer close(done)
		defer metrics.SetWatchdogRunning(false)
		s.runner.Run(ctx)
	}()

	s.log.Info("watchdog started")
	return Started
}

// Stop cancels the loop and waits for it to exit, at most for the grace
// period or until ctx is done. The result is Stopped in both cases; the
// error tells whether the loop was actually joined.
func (s *Supervisor) Stop(ctx context.Context) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.runningLocked() {
		return NotRunning, nil
	}

	s.cancel()

	timer := time.NewTimer(s.grace)
	defer timer.Stop()

	select {
	case <-s.done:
		s.cancel = nil
		s.done = nil
		s.log.Info("watchdog stopped")
		return Stopped, nil
	case <-timer.C:
		s.log.Warn("watchdog cancelled but still unwinding")
		return Stopped, ErrStopTimeout
	case <-ctx.Done():
		return Stopped, ctx.Err()
	}
}

// Status reports whether a loop is running
func (s *Supervisor) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Status{Running: s.runningLocked()}
}

// runningLocked is true while a loop goroutine has not exited yet
func (s *Supervisor) runningLocked() bool {
	if s.done == nil {
		return false
	}
	select {
	case <-s.done:
		return false
	default:
		return true
	}
}
