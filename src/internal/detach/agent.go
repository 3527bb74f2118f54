// FILE: src/internal/detach/agent.go
package detach

import (
	"fmt"
	"sync"

	"github.com/lixenwraith/log"
)

// WindowAgent is the standalone window's half of the detach protocol. It
// announces console-detached once the local view is ready, feeds the view
// from the host's snapshot and record stream, and hands the console back
// with console-attached before the window destroys itself.
type WindowAgent struct {
	sock   *Socket
	view   View
	logger *log.Logger

	closeOnce sync.Once
	closed    chan struct{}
	wg        sync.WaitGroup
}

// NewWindowAgent creates the agent for an established socket.
func NewWindowAgent(sock *Socket, view View, logger *log.Logger) *WindowAgent {
	return &WindowAgent{
		sock:   sock,
		view:   view,
		logger: logger,
		closed: make(chan struct{}),
	}
}

// Run announces readiness and serves the view until the host asks for
// the console back, the user closes the window, or the link drops.
// Blocks until teardown is complete.
func (a *WindowAgent) Run() error {
	if err := a.sock.Send(SignalDetached); err != nil {
		return fmt.Errorf("failed to announce detached console: %w", err)
	}

	a.wg.Add(1)
	go a.serve()
	a.wg.Wait()
	return nil
}

func (a *WindowAgent) serve() {
	defer a.wg.Done()
	defer a.view.Deactivate()

	for {
		select {
		case snapshot, ok := <-a.sock.Snapshots():
			if !ok {
				a.logger.Warn("msg", "Host link dropped, closing console window",
					"component", "window_agent")
				return
			}
			if err := a.view.Activate(snapshot); err != nil {
				a.logger.Error("msg", "Console window render failed",
					"component", "window_agent",
					"error", err)
			}

		case rec, ok := <-a.sock.Records():
			if !ok {
				return
			}
			a.view.Append(rec)

		case sig, ok := <-a.sock.Signals():
			if !ok {
				return
			}
			if sig == SignalReattach {
				a.logger.Info("msg", "Host requested reattach, handing console back",
					"component", "window_agent")
				a.handBack()
				return
			}

		case <-a.closed:
			a.handBack()
			return
		}
	}
}

// Close hands the console back and tears the agent down. Called when the
// user closes the standalone window. Idempotent.
func (a *WindowAgent) Close() {
	a.closeOnce.Do(func() { close(a.closed) })
	a.wg.Wait()
}

// handBack emits console-attached, then closes the socket. The embedded
// side re-shows its panel on receipt.
func (a *WindowAgent) handBack() {
	if err := a.sock.Send(SignalAttached); err != nil {
		a.logger.Warn("msg", "Failed to send console-attached",
			"component", "window_agent",
			"error", err)
	}
	a.sock.Close()
}
