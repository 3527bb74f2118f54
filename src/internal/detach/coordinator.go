// FILE: src/internal/detach/coordinator.go
package detach

import (
	"fmt"
	"sync"
	"sync/atomic"

	"logdeck/src/internal/console"
	"logdeck/src/internal/core"

	"github.com/lixenwraith/log"
)

// View is one rendering surface for the console: the embedded panel or
// the standalone window. At most one view is active at any time.
//
// Activate hands the view the authoritative buffer snapshot; Append
// delivers records published after that snapshot. Both are called with
// the hub lock held, so views must be fast and must not publish.
type View interface {
	Activate(snapshot []core.LogRecord) error
	Append(rec core.LogRecord)
	Deactivate()
}

// WindowOpener spawns the standalone console window. The windowing layer
// owns pixels and process details; the coordinator only sees the error.
type WindowOpener interface {
	Open() error
}

// Coordinator governs moving the live console between the embedded panel
// and a standalone window. It holds the single hub subscription and
// forwards records only to the active view, so the hidden side can never
// double-register or receive stale notifications.
type Coordinator struct {
	console  *console.Console
	embedded View
	opener   WindowOpener
	logger   *log.Logger

	state atomic.Int32

	// mu serializes the public API and link bookkeeping.
	mu     sync.Mutex
	window View
	link   Link
	wg     sync.WaitGroup

	// active is read by the hub listener and written inside
	// console.Atomically blocks only.
	active View

	dispose console.Disposer

	// Statistics
	detaches   atomic.Uint64
	reattaches atomic.Uint64
}

// New creates a coordinator in the Embedded state.
func New(c *console.Console, embedded View, opener WindowOpener, logger *log.Logger) *Coordinator {
	return &Coordinator{
		console:  c,
		embedded: embedded,
		opener:   opener,
		logger:   logger,
	}
}

// Start activates the embedded panel and registers the hub subscription.
func (d *Coordinator) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	var activateErr error
	d.console.Atomically(func(snapshot []core.LogRecord, seq uint64) {
		if err := d.embedded.Activate(snapshot); err != nil {
			activateErr = err
			return
		}
		d.active = d.embedded
	})
	if activateErr != nil {
		return fmt.Errorf("failed to activate embedded panel: %w", activateErr)
	}

	d.dispose = d.console.Subscribe(func(seq uint64, rec core.LogRecord) {
		// Runs under the hub lock; active mutates under the same lock.
		if d.active != nil {
			d.active.Append(rec)
		}
	})
	d.state.Store(int32(StateEmbedded))

	d.logger.Info("msg", "Detach coordinator started", "component", "detach")
	return nil
}

// Stop deactivates whichever view is live and drops the subscription.
func (d *Coordinator) Stop() {
	d.mu.Lock()
	if d.dispose != nil {
		d.dispose()
	}
	link := d.link
	d.link = nil
	d.mu.Unlock()

	if link != nil {
		link.Close()
	}
	d.wg.Wait()

	d.console.Atomically(func(snapshot []core.LogRecord, seq uint64) {
		if d.active != nil {
			d.active.Deactivate()
			d.active = nil
		}
	})
	d.logger.Info("msg", "Detach coordinator stopped", "component", "detach")
}

// State returns the current lifecycle state.
func (d *Coordinator) State() State {
	return State(d.state.Load())
}

// RequestDetach spawns the standalone window. The embedded panel stays
// live until the window confirms with console-detached; if the spawn
// fails, nothing changes and the error is returned for the user.
func (d *Coordinator) RequestDetach() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if s := d.State(); s != StateEmbedded {
		return fmt.Errorf("cannot detach while %s", s)
	}

	d.state.Store(int32(StateDetachPending))
	if err := d.opener.Open(); err != nil {
		d.state.Store(int32(StateEmbedded))
		d.logger.Error("msg", "Console window creation failed",
			"component", "detach",
			"error", err)
		return fmt.Errorf("failed to open console window: %w", err)
	}
	return nil
}

// BindWindow attaches the spawned window's view and signal link. The
// hosting layer calls this once the window context is connected; the
// console switches over only when the window sends console-detached.
func (d *Coordinator) BindWindow(view View, link Link) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.State() != StateDetachPending {
		return fmt.Errorf("no detach in progress")
	}
	if d.window != nil {
		return fmt.Errorf("window already bound")
	}

	d.window = view
	d.link = link

	d.wg.Add(1)
	go d.watchLink(link)
	return nil
}

// RequestReattach asks the detached window to hand the console back.
func (d *Coordinator) RequestReattach() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if s := d.State(); s != StateDetached {
		return fmt.Errorf("cannot reattach while %s", s)
	}
	if d.link == nil {
		return fmt.Errorf("no window link")
	}

	d.state.Store(int32(StateReattachPending))
	if err := d.link.Send(SignalReattach); err != nil {
		// The link dropped; watchLink falls back to embedded.
		return fmt.Errorf("failed to signal window: %w", err)
	}
	return nil
}

// watchLink consumes the window's signals until the link closes.
func (d *Coordinator) watchLink(link Link) {
	defer d.wg.Done()

	for sig := range link.Signals() {
		switch sig {
		case SignalDetached:
			d.onDetached()
		case SignalAttached:
			d.onAttached(false)
		}
	}

	// Link closed. If the window still owned the console it is gone
	// now; fall back to the embedded panel rather than going dark.
	d.onLinkDown()
}

// onDetached switches the live console to the standalone window.
func (d *Coordinator) onDetached() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.State() != StateDetachPending || d.window == nil {
		d.logger.Warn("msg", "Unexpected console-detached signal",
			"component", "detach",
			"state", d.State().String())
		return
	}

	var failed error
	d.console.Atomically(func(snapshot []core.LogRecord, seq uint64) {
		if err := d.window.Activate(snapshot); err != nil {
			failed = err
			return
		}
		d.embedded.Deactivate()
		d.active = d.window
	})
	if failed != nil {
		d.logger.Error("msg", "Window view activation failed, staying embedded",
			"component", "detach",
			"error", failed)
		d.window = nil
		if d.link != nil {
			d.link.Close()
			d.link = nil
		}
		d.state.Store(int32(StateEmbedded))
		return
	}

	d.detaches.Add(1)
	d.state.Store(int32(StateDetached))
	d.logger.Info("msg", "Console detached to standalone window", "component", "detach")
}

// onAttached hands the console back to the embedded panel. With fallback
// set, the window vanished without the console-attached handshake.
func (d *Coordinator) onAttached(fallback bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	s := d.State()
	if s != StateDetached && s != StateReattachPending {
		if !fallback {
			d.logger.Warn("msg", "Unexpected console-attached signal",
				"component", "detach",
				"state", s.String())
		}
		return
	}

	d.console.Atomically(func(snapshot []core.LogRecord, seq uint64) {
		if d.window != nil {
			d.window.Deactivate()
		}
		// The embedded panel re-activates with the full buffer: every
		// record appended while detached is in the snapshot.
		if err := d.embedded.Activate(snapshot); err != nil {
			d.logger.Error("msg", "Embedded panel re-activation failed",
				"component", "detach",
				"error", err)
		}
		d.active = d.embedded
	})

	d.window = nil
	if d.link != nil {
		d.link.Close()
		d.link = nil
	}

	d.reattaches.Add(1)
	d.state.Store(int32(StateEmbedded))
	if fallback {
		d.logger.Warn("msg", "Console window lost, reattached to embedded panel",
			"component", "detach")
	} else {
		d.logger.Info("msg", "Console reattached to embedded panel", "component", "detach")
	}
}

// onLinkDown handles link teardown in any state.
func (d *Coordinator) onLinkDown() {
	switch d.State() {
	case StateDetached, StateReattachPending:
		d.onAttached(true)
	case StateDetachPending:
		d.mu.Lock()
		d.window = nil
		if d.link != nil {
			d.link.Close()
			d.link = nil
		}
		d.state.Store(int32(StateEmbedded))
		d.mu.Unlock()
		d.logger.Error("msg", "Console window closed before confirming detach",
			"component", "detach")
	default:
		d.mu.Lock()
		d.window = nil
		d.link = nil
		d.mu.Unlock()
	}
}

// GetStats returns coordinator statistics.
func (d *Coordinator) GetStats() map[string]any {
	return map[string]any{
		"state":      d.State().String(),
		"detaches":   d.detaches.Load(),
		"reattaches": d.reattaches.Load(),
	}
}
