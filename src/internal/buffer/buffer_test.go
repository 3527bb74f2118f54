// FILE: src/internal/buffer/buffer_test.go
package buffer

import (
	"fmt"
	"testing"

	"logdeck/src/internal/core"

	"github.com/stretchr/testify/assert"
)

func record(n int) core.LogRecord {
	return core.LogRecord{
		Timestamp: core.Now(),
		Level:     core.LevelInfo,
		Target:    "test",
		Message:   fmt.Sprintf("record #%d", n),
		Source:    core.SourceLocal,
	}
}

func TestAppendBelowCapacity(t *testing.T) {
	b := New(10)
	for i := 1; i <= 3; i++ {
		b.Append(record(i))
	}

	snap := b.Snapshot()
	assert.Len(t, snap, 3)
	assert.Equal(t, "record #1", snap[0].Message)
	assert.Equal(t, "record #3", snap[2].Message)
}

func TestCapacityInvariant(t *testing.T) {
	// 1205 appends into a 1000-slot buffer must retain exactly
	// the last 1000 in append order.
	b := New(1000)
	for i := 1; i <= 1205; i++ {
		b.Append(record(i))
	}

	snap := b.Snapshot()
	assert.Len(t, snap, 1000)
	assert.Equal(t, "record #206", snap[0].Message)
	assert.Equal(t, "record #1205", snap[999].Message)
	assert.Equal(t, 1000, b.Len())
}

func TestSnapshotDoesNotAlias(t *testing.T) {
	b := New(5)
	b.Append(record(1))

	snap := b.Snapshot()
	snap[0].Message = "mutated"

	again := b.Snapshot()
	assert.Equal(t, "record #1", again[0].Message)

	// Holding a snapshot while the buffer wraps must not corrupt it.
	held := b.Snapshot()
	for i := 2; i <= 20; i++ {
		b.Append(record(i))
	}
	assert.Equal(t, "record #1", held[0].Message)
}

func TestClear(t *testing.T) {
	b := New(3)
	for i := 1; i <= 5; i++ {
		b.Append(record(i))
	}

	b.Clear()
	assert.Equal(t, 0, b.Len())
	assert.Empty(t, b.Snapshot())
	assert.Equal(t, 3, b.Capacity())

	// A fresh append counts from 1 and still honors capacity.
	b.Append(record(99))
	snap := b.Snapshot()
	assert.Len(t, snap, 1)
	assert.Equal(t, "record #99", snap[0].Message)
	for i := 100; i < 110; i++ {
		b.Append(record(i))
	}
	assert.Equal(t, 3, b.Len())
}

func TestNonPositiveCapacityFallsBack(t *testing.T) {
	b := New(0)
	assert.Equal(t, core.DefaultCapacity, b.Capacity())
}

func TestOrderAfterWrap(t *testing.T) {
	b := New(4)
	for i := 1; i <= 7; i++ {
		b.Append(record(i))
	}

	snap := b.Snapshot()
	want := []string{"record #4", "record #5", "record #6", "record #7"}
	for i, msg := range want {
		assert.Equal(t, msg, snap[i].Message)
	}
}
