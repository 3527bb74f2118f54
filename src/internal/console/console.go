// FILE: src/internal/console/console.go
package console

import (
	"sync"
	"sync/atomic"
	"time"

	"logdeck/src/internal/buffer"
	"logdeck/src/internal/core"

	"github.com/lixenwraith/log"
)

// Listener receives each published record with its sequence number.
// Sequence numbers increase by one per publish and survive Clear, so a
// consumer can tell whether a record predates a snapshot it holds.
//
// Listeners run synchronously under the hub lock and must not call back
// into the Console.
type Listener func(seq uint64, rec core.LogRecord)

// Disposer removes a subscription. Safe to call more than once.
type Disposer func()

type subscription struct {
	id int
	fn Listener
}

// Console is the aggregation hub: the single owner of the bounded buffer.
// Local interceptor and remote subscriber both publish here, and the
// buffer defines final record order - first observed wins, timestamps
// are never reordered across sources.
type Console struct {
	mu        sync.Mutex
	buf       *buffer.Buffer
	subs      []subscription
	nextSubID int
	seq       uint64
	logger    *log.Logger

	// Statistics
	totalPublished atomic.Uint64
	startTime      time.Time
	lastPublish    atomic.Value // time.Time
}

// New creates a console hub with the given buffer capacity.
func New(capacity int, logger *log.Logger) *Console {
	c := &Console{
		buf:       buffer.New(capacity),
		startTime: time.Now(),
		logger:    logger,
	}
	c.lastPublish.Store(time.Time{})
	return c
}

// Publish appends a record to the buffer and notifies all listeners in
// registration order. Buffer order equals publish order regardless of
// which producer called.
func (c *Console) Publish(rec core.LogRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.seq++
	c.buf.Append(rec)
	c.totalPublished.Add(1)
	c.lastPublish.Store(time.Now())

	for _, sub := range c.subs {
		sub.fn(c.seq, rec)
	}
}

// Subscribe registers a listener and returns its disposer.
// The disposer is idempotent; after it runs the listener receives nothing.
func (c *Console) Subscribe(fn Listener) Disposer {
	c.mu.Lock()
	c.nextSubID++
	id := c.nextSubID
	c.subs = append(c.subs, subscription{id: id, fn: fn})
	count := len(c.subs)
	c.mu.Unlock()

	c.logger.Debug("msg", "Console listener subscribed",
		"component", "console",
		"listener_id", id,
		"listener_count", count)

	var once sync.Once
	return func() {
		once.Do(func() {
			c.unsubscribe(id)
		})
	}
}

func (c *Console) unsubscribe(id int) {
	c.mu.Lock()
	for i, sub := range c.subs {
		if sub.id == id {
			c.subs = append(c.subs[:i], c.subs[i+1:]...)
			break
		}
	}
	count := len(c.subs)
	c.mu.Unlock()

	c.logger.Debug("msg", "Console listener unsubscribed",
		"component", "console",
		"listener_id", id,
		"listener_count", count)
}

// Snapshot returns a copy of the buffered records, oldest first.
func (c *Console) Snapshot() []core.LogRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.Snapshot()
}

// SnapshotSeq returns a snapshot together with the sequence number of the
// last record it contains. Records delivered to listeners with seq at or
// below the returned value are already in the snapshot.
func (c *Console) SnapshotSeq() ([]core.LogRecord, uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.Snapshot(), c.seq
}

// Atomically runs fn with the hub lock held, handing it a snapshot and
// the sequence number of the last published record. No publish can
// interleave with fn, which makes it the primitive for handing the live
// view from one console window to another without loss or duplication.
// fn must not call back into the Console.
func (c *Console) Atomically(fn func(snapshot []core.LogRecord, seq uint64)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(c.buf.Snapshot(), c.seq)
}

// Clear empties the buffer. Sequence numbering continues.
func (c *Console) Clear() {
	c.mu.Lock()
	c.buf.Clear()
	c.mu.Unlock()

	c.logger.Debug("msg", "Console buffer cleared", "component", "console")
}

// Len returns the number of buffered records.
func (c *Console) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.Len()
}

// Capacity returns the buffer capacity.
func (c *Console) Capacity() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.Capacity()
}

// GetStats returns hub statistics.
func (c *Console) GetStats() map[string]any {
	c.mu.Lock()
	buffered := c.buf.Len()
	capacity := c.buf.Capacity()
	listeners := len(c.subs)
	c.mu.Unlock()

	lastPublish, _ := c.lastPublish.Load().(time.Time)
	return map[string]any{
		"buffered":        buffered,
		"capacity":        capacity,
		"listeners":       listeners,
		"total_published": c.totalPublished.Load(),
		"start_time":      c.startTime,
		"last_publish":    lastPublish,
	}
}
