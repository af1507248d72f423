// Package interrupt converts asynchronous cancellation signals into a
// cooperative flag the backup loop observes at safe boundaries. Commit
// logic never runs inside the signal handler; the first signal only sets
// the flag, the second forces the process out.
package interrupt

import (
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"annextube/internal/exitcode"
	"annextube/pkg/logger"
)

// Coordinator installs signal handling for the lifetime of one run.
// State machine: Armed -> SignalReceived -> (graceful drain) | (forced exit).
type Coordinator struct {
	signals   chan os.Signal
	done      chan struct{}
	cancelled atomic.Bool
	exit      func(int)
	log       logger.Logger
}

// New creates a coordinator wired to SIGINT and SIGTERM.
func New(log logger.Logger) *Coordinator {
	c := newCoordinator(make(chan os.Signal, 2), os.Exit, log)
	signal.Notify(c.signals, os.Interrupt, syscall.SIGTERM)
	return c
}

// newCoordinator wires an explicit signal channel and exit function; tests
// feed signals directly.
func newCoordinator(signals chan os.Signal, exit func(int), log logger.Logger) *Coordinator {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Coordinator{
		signals: signals,
		done:    make(chan struct{}),
		exit:    exit,
		log:     log,
	}
}

// Arm starts watching for signals. The first signal sets the cooperative
// cancellation flag; the second bypasses the graceful path and terminates
// immediately, accepting potential uncommitted partial state.
func (c *Coordinator) Arm() {
	go func() {
		select {
		case sig := <-c.signals:
			c.log.WarnWithFields("cancellation signal received, finishing current unit", map[string]interface{}{
				"signal": sig.String(),
			})
			c.cancelled.Store(true)
		case <-c.done:
			return
		}

		select {
		case sig := <-c.signals:
			c.log.WarnWithFields("second signal received, forcing exit", map[string]interface{}{
				"signal": sig.String(),
			})
			c.exit(exitcode.Interrupted)
		case <-c.done:
		}
	}()
}

// Cancelled reports whether a cancellation signal has been received. The
// backup loop checks this at unit boundaries and at quota-wait poll ticks.
func (c *Coordinator) Cancelled() bool {
	return c.cancelled.Load()
}

// Disarm stops watching for signals and restores default signal behaviour.
func (c *Coordinator) Disarm() {
	signal.Stop(c.signals)
	close(c.done)
}
