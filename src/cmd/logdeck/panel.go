// FILE: src/cmd/logdeck/panel.go
package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"logdeck/src/internal/core"
	"logdeck/src/internal/export"
	"logdeck/src/internal/query"
	"logdeck/src/internal/render"

	"golang.org/x/term"
)

// Panel is a terminal console view: it renders the filtered record
// sequence through a virtualized viewport. It serves as both the
// embedded view and the detached window's local view.
type Panel struct {
	mu       sync.Mutex
	out      io.Writer
	capacity int
	metrics  render.Metrics
	viewport *render.Viewport
	painter  *render.Painter
	criteria query.Criteria
	records  []core.LogRecord
	filtered []core.LogRecord
	active   bool
}

// NewPanel creates a panel sized to the terminal behind out, falling
// back to 80x24 when the size cannot be determined. capacity bounds the
// panel's replica of the record sequence; it should match the console
// buffer capacity so eviction happens in lockstep.
func NewPanel(out io.Writer, capacity int) *Panel {
	if capacity <= 0 {
		capacity = core.DefaultCapacity
	}

	cols, rows := 80, 24
	if f, ok := out.(*os.File); ok {
		if w, h, err := term.GetSize(int(f.Fd())); err == nil && w > 0 && h > 0 {
			cols, rows = w, h
		}
	}

	m := render.Metrics{
		RowHeight:      1,
		ViewportHeight: rows - 1,
		Overscan:       4,
	}
	return &Panel{
		out:      out,
		capacity: capacity,
		metrics:  m,
		viewport: render.NewViewport(m),
		painter:  &render.Painter{MaxWidth: cols},
	}
}

// Activate renders the snapshot as the panel's new content.
func (p *Panel) Activate(snapshot []core.LogRecord) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(snapshot) > p.capacity {
		snapshot = snapshot[len(snapshot)-p.capacity:]
	}

	p.active = true
	p.records = append([]core.LogRecord(nil), snapshot...)
	p.refilter()
	p.repaint()
	return nil
}

// Append adds a live record to the panel, evicting the oldest once the
// replica reaches capacity so memory stays bounded under unbounded
// volume.
func (p *Panel) Append(rec core.LogRecord) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.active {
		return
	}

	p.records = append(p.records, rec)
	if len(p.records) > p.capacity {
		overflow := len(p.records) - p.capacity
		p.records = append(p.records[:0], p.records[overflow:]...)
		p.refilter()
		p.repaint()
		return
	}

	if len(query.Filter([]core.LogRecord{rec}, p.criteria)) > 0 {
		p.filtered = append(p.filtered, rec)
		p.viewport.Append()
		p.repaint()
	}
}

// Deactivate hides the panel.
func (p *Panel) Deactivate() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.active = false
}

// SetFilter changes the active criteria and re-renders.
func (p *Panel) SetFilter(c query.Criteria) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.criteria = c
	p.refilter()
	if p.active {
		p.repaint()
	}
}

// SetScroll moves the viewport, disabling follow mode.
func (p *Panel) SetScroll(top int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.viewport.SetAutoScroll(false)
	p.viewport.SetScroll(top)
	if p.active {
		p.repaint()
	}
}

// Follow re-enables auto scroll, snapping to the newest records.
func (p *Panel) Follow() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.viewport.SetAutoScroll(true)
	if p.active {
		p.repaint()
	}
}

// ClipboardText returns the currently filtered records as copyable text.
func (p *Panel) ClipboardText() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return export.ClipboardText(p.filtered)
}

// refilter and repaint run with the mutex held.
func (p *Panel) refilter() {
	p.filtered = query.Filter(p.records, p.criteria)
	p.viewport.Reset(len(p.filtered))
}

func (p *Panel) repaint() {
	rows := p.painter.Rows(p.filtered, p.viewport.Window())
	var b strings.Builder
	b.WriteString("\x1b[2J\x1b[H")
	for _, row := range rows {
		b.WriteString(row)
		b.WriteString("\n")
	}
	fmt.Fprint(p.out, b.String())
}
