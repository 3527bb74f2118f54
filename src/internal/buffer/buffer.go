// FILE: src/internal/buffer/buffer.go
package buffer

import (
	"logdeck/src/internal/core"
)

// Buffer is a fixed-capacity FIFO store of log records. Insertion beyond
// capacity evicts the oldest record. It is the single source of truth for
// what the console has seen.
//
// Not safe for concurrent use; the console hub serializes all access.
type Buffer struct {
	records  []core.LogRecord
	head     int
	count    int
	capacity int
}

// New constructs a buffer retaining at most capacity records.
// Non-positive capacities fall back to the default.
func New(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = core.DefaultCapacity
	}
	return &Buffer{
		records:  make([]core.LogRecord, capacity),
		capacity: capacity,
	}
}

// Append adds a record, evicting the oldest when at capacity. O(1).
func (b *Buffer) Append(rec core.LogRecord) {
	if b.count < b.capacity {
		b.records[(b.head+b.count)%b.capacity] = rec
		b.count++
		return
	}
	// At capacity: overwrite the oldest slot and advance head.
	b.records[b.head] = rec
	b.head = (b.head + 1) % b.capacity
}

// Snapshot returns a copy of the current contents, oldest first.
// The result never aliases internal storage; callers may hold it
// while the buffer continues to mutate.
func (b *Buffer) Snapshot() []core.LogRecord {
	out := make([]core.LogRecord, b.count)
	for i := 0; i < b.count; i++ {
		out[i] = b.records[(b.head+i)%b.capacity]
	}
	return out
}

// Clear empties the buffer. Capacity is unchanged.
func (b *Buffer) Clear() {
	b.head = 0
	b.count = 0
}

// Len returns the number of stored records.
func (b *Buffer) Len() int {
	return b.count
}

// Capacity returns the fixed capacity.
func (b *Buffer) Capacity() int {
	return b.capacity
}
