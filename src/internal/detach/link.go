// FILE: src/internal/detach/link.go
package detach

import (
	"fmt"
	"sync"
)

// Link carries detach signals between the two window contexts. Replaces
// shared event-bus signaling with explicit message passing: each side
// sends on its own end and receives what the other side sent.
type Link interface {
	// Send delivers a signal to the other side.
	Send(sig Signal) error

	// Signals returns the channel of inbound signals. It is closed when
	// the link goes down.
	Signals() <-chan Signal

	// Close tears the link down on both sides. Idempotent.
	Close() error
}

const linkBuffer = 16

// pairEnd is one end of an in-process link pair.
type pairEnd struct {
	out       chan<- Signal
	in        <-chan Signal
	closed    chan struct{}
	closeOnce *sync.Once

	sigOnce sync.Once
	sigCh   chan Signal
}

// NewPair creates a connected in-process link: what one end sends, the
// other receives. Used when both console views live in one process, and
// by tests.
func NewPair() (Link, Link) {
	ab := make(chan Signal, linkBuffer)
	ba := make(chan Signal, linkBuffer)
	closed := make(chan struct{})
	once := &sync.Once{}

	a := &pairEnd{out: ab, in: ba, closed: closed, closeOnce: once}
	b := &pairEnd{out: ba, in: ab, closed: closed, closeOnce: once}
	return a, b
}

func (p *pairEnd) Send(sig Signal) error {
	select {
	case <-p.closed:
		return fmt.Errorf("link closed")
	default:
	}

	select {
	case p.out <- sig:
		return nil
	case <-p.closed:
		return fmt.Errorf("link closed")
	}
}

// Signals returns this end's inbound channel. The pump drains signals
// already in flight when the link closes, then closes the channel.
func (p *pairEnd) Signals() <-chan Signal {
	p.sigOnce.Do(func() {
		p.sigCh = make(chan Signal, linkBuffer)
		go func() {
			defer close(p.sigCh)
			for {
				select {
				case sig := <-p.in:
					p.sigCh <- sig
				case <-p.closed:
					for {
						select {
						case sig := <-p.in:
							p.sigCh <- sig
						default:
							return
						}
					}
				}
			}
		}()
	})
	return p.sigCh
}

func (p *pairEnd) Close() error {
	p.closeOnce.Do(func() {
		close(p.closed)
	})
	return nil
}
