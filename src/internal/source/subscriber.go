// FILE: src/internal/source/subscriber.go
package source

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"logdeck/src/internal/console"
	"logdeck/src/internal/core"

	"github.com/lixenwraith/log"
)

// RetryConfig controls reconnection after push channel failure.
type RetryConfig struct {
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// DefaultRetryConfig returns capped exponential backoff defaults.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     30 * time.Second,
		Multiplier:   2,
	}
}

// Subscriber bridges the remote push channel into the console hub. It owns
// the source lifecycle: start, consume, and on failure tear down and retry
// with backoff. Channel failures surface as ERROR records in the buffer
// itself so the user sees them in the console.
type Subscriber struct {
	factory func() (Source, error)
	console *console.Console
	retry   RetryConfig
	logger  *log.Logger

	mu      sync.Mutex
	current Source
	done    chan struct{}
	wg      sync.WaitGroup
	stopped atomic.Bool

	// Statistics
	totalForwarded atomic.Uint64
	reconnects     atomic.Uint64
}

// NewSubscriber creates a subscriber that obtains sources from factory.
// A fresh source is requested for every (re)connection, so teardown never
// leaves the subscriber unable to subscribe again.
func NewSubscriber(factory func() (Source, error), c *console.Console, retry RetryConfig, logger *log.Logger) *Subscriber {
	if retry.InitialDelay <= 0 {
		retry = DefaultRetryConfig()
	}
	return &Subscriber{
		factory: factory,
		console: c,
		retry:   retry,
		logger:  logger,
		done:    make(chan struct{}),
	}
}

// Start begins consuming the push channel in the background.
func (s *Subscriber) Start() {
	s.wg.Add(1)
	go s.run()
}

// Stop tears the subscription down. Idempotent; after return no further
// buffer mutation originates from this subscriber.
func (s *Subscriber) Stop() {
	if !s.stopped.CompareAndSwap(false, true) {
		return
	}
	close(s.done)

	s.mu.Lock()
	current := s.current
	s.current = nil
	s.mu.Unlock()

	if current != nil {
		current.Stop()
	}
	s.wg.Wait()

	s.logger.Info("msg", "Remote subscriber stopped", "component", "remote_subscriber")
}

func (s *Subscriber) run() {
	defer s.wg.Done()

	delay := s.retry.InitialDelay
	for {
		if s.stopped.Load() {
			return
		}

		src, err := s.factory()
		if err == nil {
			err = src.Start()
		}
		if err != nil {
			s.reportFailure(fmt.Sprintf("remote log channel unavailable: %v", err))
			if !s.sleep(delay) {
				return
			}
			delay = s.nextDelay(delay)
			continue
		}

		s.mu.Lock()
		if s.stopped.Load() {
			s.mu.Unlock()
			src.Stop()
			return
		}
		s.current = src
		s.mu.Unlock()

		// Healthy connection resets the backoff.
		delay = s.retry.InitialDelay
		s.consume(src)

		if s.stopped.Load() {
			return
		}

		s.reportFailure("remote log channel closed, reconnecting")
		s.reconnects.Add(1)
		if !s.sleep(delay) {
			return
		}
		delay = s.nextDelay(delay)
	}
}

// consume forwards records until the source channel closes.
func (s *Subscriber) consume(src Source) {
	ch := src.Subscribe()
	for rec := range ch {
		s.console.Publish(rec)
		s.totalForwarded.Add(1)
	}
}

// reportFailure logs the failure and publishes it as an error-level record
// so it is visible in the console buffer.
func (s *Subscriber) reportFailure(msg string) {
	if s.stopped.Load() {
		return
	}
	s.logger.Error("msg", msg, "component", "remote_subscriber")
	s.console.Publish(core.LogRecord{
		Timestamp: core.Now(),
		Level:     core.LevelError,
		Target:    core.DefaultRemoteTarget,
		Message:   msg,
		Source:    core.SourceRemote,
	})
}

func (s *Subscriber) sleep(d time.Duration) bool {
	select {
	case <-s.done:
		return false
	case <-time.After(d):
		return true
	}
}

func (s *Subscriber) nextDelay(d time.Duration) time.Duration {
	next := time.Duration(float64(d) * s.retry.Multiplier)
	if next > s.retry.MaxDelay {
		next = s.retry.MaxDelay
	}
	return next
}

// GetStats returns subscriber statistics plus those of the live source.
func (s *Subscriber) GetStats() map[string]any {
	stats := map[string]any{
		"total_forwarded": s.totalForwarded.Load(),
		"reconnects":      s.reconnects.Load(),
		"stopped":         s.stopped.Load(),
	}

	s.mu.Lock()
	current := s.current
	s.mu.Unlock()
	if current != nil {
		stats["source"] = current.GetStats()
	}
	return stats
}
