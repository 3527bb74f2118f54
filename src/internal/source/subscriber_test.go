// FILE: src/internal/source/subscriber_test.go
package source

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"logdeck/src/internal/console"
	"logdeck/src/internal/core"

	"github.com/lixenwraith/log"
	"github.com/stretchr/testify/assert"
)

func newTestLogger() *log.Logger {
	return log.NewLogger()
}

// fakeSource feeds scripted records and closes, simulating one push
// channel connection.
type fakeSource struct {
	records []core.LogRecord
	mu      sync.Mutex
	ch      chan core.LogRecord
	started bool
	stopped bool
}

func (f *fakeSource) Subscribe() <-chan core.LogRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ch == nil {
		f.ch = make(chan core.LogRecord, len(f.records)+1)
	}
	return f.ch
}

func (f *fakeSource) Start() error {
	f.Subscribe() // ensure the channel exists

	// Channel is buffered for all scripted records, so delivery
	// completes before Start returns and can never race Stop.
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = true
	for _, rec := range f.records {
		f.ch <- rec
	}
	return nil
}

func (f *fakeSource) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.stopped {
		f.stopped = true
		if f.ch != nil {
			close(f.ch)
		}
	}
}

func (f *fakeSource) GetStats() SourceStats {
	return SourceStats{Type: "fake"}
}

func remoteRec(msg string) core.LogRecord {
	return core.LogRecord{
		Timestamp: core.Now(),
		Level:     core.LevelInfo,
		Target:    "game",
		Message:   msg,
		Source:    core.SourceRemote,
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func TestSubscriberForwardsIntoConsole(t *testing.T) {
	c := console.New(100, newTestLogger())
	src := &fakeSource{records: []core.LogRecord{remoteRec("a"), remoteRec("b")}}

	sub := NewSubscriber(func() (Source, error) { return src, nil }, c, DefaultRetryConfig(), newTestLogger())
	sub.Start()
	defer sub.Stop()

	waitFor(t, func() bool { return c.Len() >= 2 })
	snap := c.Snapshot()
	assert.Equal(t, "a", snap[0].Message)
	assert.Equal(t, "b", snap[1].Message)
	assert.Equal(t, core.SourceRemote, snap[0].Source)
}

func TestSubscriberStopIsIdempotentAndFinal(t *testing.T) {
	c := console.New(100, newTestLogger())
	src := &fakeSource{records: []core.LogRecord{remoteRec("a")}}

	sub := NewSubscriber(func() (Source, error) { return src, nil }, c, DefaultRetryConfig(), newTestLogger())
	sub.Start()

	waitFor(t, func() bool { return c.Len() >= 1 })
	sub.Stop()
	sub.Stop()

	// After Stop no further buffer mutation originates here.
	count := c.Len()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, count, c.Len())
	assert.Equal(t, true, sub.GetStats()["stopped"])
}

func TestSubscriberRetriesWithBackoffAndReportsError(t *testing.T) {
	c := console.New(100, newTestLogger())

	attempts := 0
	var mu sync.Mutex
	factory := func() (Source, error) {
		mu.Lock()
		defer mu.Unlock()
		attempts++
		if attempts < 3 {
			return nil, fmt.Errorf("connection refused")
		}
		return &fakeSource{records: []core.LogRecord{remoteRec("finally")}}, nil
	}

	retry := RetryConfig{InitialDelay: 5 * time.Millisecond, MaxDelay: 20 * time.Millisecond, Multiplier: 2}
	sub := NewSubscriber(factory, c, retry, newTestLogger())
	sub.Start()
	defer sub.Stop()

	waitFor(t, func() bool {
		for _, rec := range c.Snapshot() {
			if rec.Message == "finally" {
				return true
			}
		}
		return false
	})

	// The failures were published as visible ERROR records.
	snap := c.Snapshot()
	errors := 0
	for _, rec := range snap {
		if rec.Level == core.LevelError {
			errors++
			assert.Equal(t, core.SourceRemote, rec.Source)
		}
	}
	assert.Equal(t, 2, errors)
}

func TestSubscriberReconnectsAfterChannelClose(t *testing.T) {
	c := console.New(100, newTestLogger())

	var mu sync.Mutex
	connection := 0
	factory := func() (Source, error) {
		mu.Lock()
		defer mu.Unlock()
		connection++
		src := &fakeSource{records: []core.LogRecord{remoteRec(fmt.Sprintf("conn-%d", connection))}}
		if connection == 1 {
			// First connection delivers then drops.
			go func(f *fakeSource) {
				time.Sleep(20 * time.Millisecond)
				f.Stop()
			}(src)
		}
		return src, nil
	}

	retry := RetryConfig{InitialDelay: 5 * time.Millisecond, MaxDelay: 20 * time.Millisecond, Multiplier: 2}
	sub := NewSubscriber(factory, c, retry, newTestLogger())
	sub.Start()
	defer sub.Stop()

	waitFor(t, func() bool {
		seen := 0
		for _, rec := range c.Snapshot() {
			if rec.Message == "conn-1" || rec.Message == "conn-2" {
				seen++
			}
		}
		return seen >= 2
	})
	assert.GreaterOrEqual(t, sub.GetStats()["reconnects"].(uint64), uint64(1))
}
