// FILE: src/internal/detach/state.go
package detach

// State is the detach lifecycle position, owned by the coordinator.
type State int32

const (
	// StateEmbedded: the console renders inside the host window.
	StateEmbedded State = iota

	// StateDetachPending: a standalone window was spawned, waiting for
	// its console-detached confirmation.
	StateDetachPending

	// StateDetached: the standalone window is the sole live console.
	StateDetached

	// StateReattachPending: the host asked the window to hand the
	// console back, waiting for its console-attached signal.
	StateReattachPending
)

func (s State) String() string {
	switch s {
	case StateEmbedded:
		return "embedded"
	case StateDetachPending:
		return "detach_pending"
	case StateDetached:
		return "detached"
	case StateReattachPending:
		return "reattach_pending"
	default:
		return "unknown"
	}
}

// Signal is a typed message on the link between the embedded host and the
// standalone console window.
type Signal string

const (
	// SignalDetached: the standalone window is live; sent window -> host.
	SignalDetached Signal = "console-detached"

	// SignalAttached: the window is handing the console back and will
	// destroy itself; sent window -> host.
	SignalAttached Signal = "console-attached"

	// SignalReattach: the host asks the window to hand the console back;
	// sent host -> window.
	SignalReattach Signal = "console-reattach"
)
