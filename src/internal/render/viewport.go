// FILE: src/internal/render/viewport.go
package render

// Metrics describes the fixed geometry the virtualizer works with:
// uniform row height, viewport height, and overscan row count.
type Metrics struct {
	RowHeight      int
	ViewportHeight int
	Overscan       int
}

// Window is the half-open row range [Start, End) that must be rendered
// for the current scroll position. Rows outside it are never touched.
type Window struct {
	Start int
	End   int
}

// Len returns the number of rows the window covers.
func (w Window) Len() int {
	return w.End - w.Start
}

// Contains reports whether row index i falls inside the window.
func (w Window) Contains(i int) bool {
	return i >= w.Start && i < w.End
}

// MaxRows returns the upper bound on window length for these metrics:
// ceil(viewport/rowHeight) + 2*overscan, independent of total row count.
func (m Metrics) MaxRows() int {
	return ceilDiv(m.ViewportHeight, m.RowHeight) + 2*m.Overscan
}

// Window computes the visible row range for n total rows at the given
// scroll offset. O(1); cost never depends on n.
func (m Metrics) Window(n, scrollTop int) Window {
	if n <= 0 || m.RowHeight <= 0 {
		return Window{}
	}
	if scrollTop < 0 {
		scrollTop = 0
	}

	start := scrollTop/m.RowHeight - m.Overscan
	if start < 0 {
		start = 0
	}
	end := start + m.MaxRows()
	if end > n {
		end = n
	}
	if start > end {
		start = end
	}
	return Window{Start: start, End: end}
}

// TotalHeight returns the full scrollable height for n rows.
func (m Metrics) TotalHeight(n int) int {
	return n * m.RowHeight
}

// RowTop returns the absolute y offset of row i.
func (m Metrics) RowTop(i int) int {
	return i * m.RowHeight
}

// MaxScroll returns the scroll offset that pins the last of n rows to the
// bottom edge of the viewport.
func (m Metrics) MaxScroll(n int) int {
	max := m.TotalHeight(n) - m.ViewportHeight
	if max < 0 {
		return 0
	}
	return max
}

func ceilDiv(a, b int) int {
	if b <= 0 {
		return 0
	}
	return (a + b - 1) / b
}

// Viewport tracks scroll state over a growing record sequence and keeps
// the visible window current. Appends are O(overscan): the window is
// adjusted from the previous state, never recomputed by walking all rows.
type Viewport struct {
	metrics    Metrics
	count      int
	scrollTop  int
	autoScroll bool
	window     Window
}

// NewViewport creates a viewport with auto-scroll enabled.
func NewViewport(m Metrics) *Viewport {
	return &Viewport{metrics: m, autoScroll: true}
}

// Reset replaces the row count entirely, as after a clear or a filter
// change, and recomputes the window.
func (v *Viewport) Reset(n int) {
	v.count = n
	if v.autoScroll {
		v.scrollTop = v.metrics.MaxScroll(n)
	}
	v.clampScroll()
	v.window = v.metrics.Window(v.count, v.scrollTop)
}

// Append records that one row was added. With auto-scroll on, the last
// row is pinned to the bottom edge; with it off, the scroll offset is
// untouched and the window only extends if the new row falls in range.
func (v *Viewport) Append() {
	v.count++
	if v.autoScroll {
		v.scrollTop = v.metrics.MaxScroll(v.count)
	}
	v.window = v.metrics.Window(v.count, v.scrollTop)
}

// SetScroll moves the scroll offset, clamped to the valid range.
func (v *Viewport) SetScroll(top int) {
	v.scrollTop = top
	v.clampScroll()
	v.window = v.metrics.Window(v.count, v.scrollTop)
}

// SetAutoScroll toggles follow mode. Turning it on snaps to the bottom.
func (v *Viewport) SetAutoScroll(on bool) {
	v.autoScroll = on
	if on {
		v.scrollTop = v.metrics.MaxScroll(v.count)
		v.window = v.metrics.Window(v.count, v.scrollTop)
	}
}

// AutoScroll reports whether follow mode is on.
func (v *Viewport) AutoScroll() bool {
	return v.autoScroll
}

// ScrollTop returns the current scroll offset.
func (v *Viewport) ScrollTop() int {
	return v.scrollTop
}

// Window returns the current visible row range.
func (v *Viewport) Window() Window {
	return v.window
}

// TotalHeight returns the current scrollable height.
func (v *Viewport) TotalHeight() int {
	return v.metrics.TotalHeight(v.count)
}

func (v *Viewport) clampScroll() {
	if max := v.metrics.MaxScroll(v.count); v.scrollTop > max {
		v.scrollTop = max
	}
	if v.scrollTop < 0 {
		v.scrollTop = 0
	}
}
