// FILE: src/internal/source/source.go
package source

import (
	"time"

	"logdeck/src/internal/core"
)

// Source represents one physical transport of the remote push channel.
type Source interface {
	// Subscribe returns a channel that receives normalized records.
	Subscribe() <-chan core.LogRecord

	// Start begins accepting remote log events.
	Start() error

	// Stop shuts the source down and closes all subscriber channels.
	Stop()

	// GetStats returns source statistics.
	GetStats() SourceStats
}

// SourceStats contains statistics about a source.
type SourceStats struct {
	Type           string
	TotalEntries   uint64
	DroppedEntries uint64
	StartTime      time.Time
	LastEntryTime  time.Time
	Details        map[string]any
}

// Event is the wire format of one remote log event as emitted by the
// host process on the push channel.
type Event struct {
	Timestamp string `json:"timestamp"`
	Level     string `json:"level"`
	Target    string `json:"target"`
	Message   string `json:"message"`
}

// Normalize converts a wire event into a record tagged source=remote.
// The emitter's capture timestamp is kept when present so ordering inside
// the buffer reflects emission, not delivery; a missing timestamp gets
// the arrival time.
func Normalize(ev Event) core.LogRecord {
	ts := ev.Timestamp
	if ts == "" {
		ts = core.Now()
	}
	target := ev.Target
	if target == "" {
		target = core.DefaultRemoteTarget
	}
	return core.LogRecord{
		Timestamp: ts,
		Level:     core.ParseLevel(ev.Level),
		Target:    target,
		Message:   ev.Message,
		Source:    core.SourceRemote,
	}
}
