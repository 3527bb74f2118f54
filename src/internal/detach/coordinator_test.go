// FILE: src/internal/detach/coordinator_test.go
package detach

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"logdeck/src/internal/console"
	"logdeck/src/internal/core"

	"github.com/lixenwraith/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger() *log.Logger {
	return log.NewLogger()
}

// fakeView records everything delivered to it.
type fakeView struct {
	mu        sync.Mutex
	active    bool
	snapshot  []core.LogRecord
	appends   []core.LogRecord
	activates int
	failNext  bool
}

func (v *fakeView) Activate(snapshot []core.LogRecord) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.failNext {
		v.failNext = false
		return fmt.Errorf("window render broke")
	}
	v.active = true
	v.activates++
	v.snapshot = append([]core.LogRecord(nil), snapshot...)
	v.appends = nil
	return nil
}

func (v *fakeView) Append(rec core.LogRecord) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.appends = append(v.appends, rec)
}

func (v *fakeView) Deactivate() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.active = false
}

func (v *fakeView) isActive() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.active
}

// total returns snapshot plus appends, the full content the view shows.
func (v *fakeView) total() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.snapshot) + len(v.appends)
}

type fakeOpener struct {
	err   error
	opens int
}

func (o *fakeOpener) Open() error {
	o.opens++
	return o.err
}

func record(n int) core.LogRecord {
	return core.LogRecord{
		Timestamp: core.Now(),
		Level:     core.LevelInfo,
		Target:    "frontend",
		Message:   fmt.Sprintf("record #%d", n),
		Source:    core.SourceLocal,
	}
}

func waitForState(t *testing.T, d *Coordinator, want State) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if d.State() == want {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("state=%s want %s", d.State(), want)
}

func setup(t *testing.T) (*console.Console, *Coordinator, *fakeView, *fakeOpener) {
	t.Helper()
	c := console.New(100, newTestLogger())
	embedded := &fakeView{}
	opener := &fakeOpener{}
	d := New(c, embedded, opener, newTestLogger())
	require.NoError(t, d.Start())
	return c, d, embedded, opener
}

func TestStartActivatesEmbedded(t *testing.T) {
	c, d, embedded, _ := setup(t)
	defer d.Stop()

	assert.Equal(t, StateEmbedded, d.State())
	assert.True(t, embedded.isActive())

	c.Publish(record(1))
	assert.Equal(t, 1, embedded.total())
}

func TestDetachRejectedOutsideEmbedded(t *testing.T) {
	_, d, _, _ := setup(t)
	defer d.Stop()

	require.NoError(t, d.RequestDetach())
	assert.Error(t, d.RequestDetach())
	assert.Error(t, d.RequestReattach())
}

func TestWindowOpenFailureStaysEmbedded(t *testing.T) {
	c, d, embedded, opener := setup(t)
	defer d.Stop()

	opener.err = fmt.Errorf("display server said no")
	assert.Error(t, d.RequestDetach())
	assert.Equal(t, StateEmbedded, d.State())
	assert.True(t, embedded.isActive())

	// Records still flow to the panel.
	c.Publish(record(1))
	assert.Equal(t, 1, embedded.total())
}

func TestDetachReattachRoundTrip(t *testing.T) {
	c, d, embedded, _ := setup(t)
	defer d.Stop()

	// 20 records buffered before the detach.
	for i := 1; i <= 20; i++ {
		c.Publish(record(i))
	}

	require.NoError(t, d.RequestDetach())
	assert.Equal(t, StateDetachPending, d.State())

	window := &fakeView{}
	hostEnd, windowEnd := NewPair()
	require.NoError(t, d.BindWindow(window, hostEnd))

	// The standalone window announces it is live.
	require.NoError(t, windowEnd.Send(SignalDetached))
	waitForState(t, d, StateDetached)

	// Window got exactly the buffered 20 as its initial render.
	assert.Len(t, window.snapshot, 20)
	assert.True(t, window.isActive())
	assert.False(t, embedded.isActive())

	// 5 more records arrive while detached: only the window sees them.
	embeddedBefore := embedded.total()
	for i := 21; i <= 25; i++ {
		c.Publish(record(i))
	}
	assert.Equal(t, 25, window.total())
	assert.Equal(t, embeddedBefore, embedded.total())

	// Window hands the console back before destroying itself.
	require.NoError(t, windowEnd.Send(SignalAttached))
	waitForState(t, d, StateEmbedded)

	// The panel re-renders with all 25: no loss, no duplication.
	assert.Len(t, embedded.snapshot, 25)
	assert.Equal(t, 25, embedded.total())
	assert.True(t, embedded.isActive())
	assert.False(t, window.isActive())

	seen := map[string]int{}
	for _, rec := range embedded.snapshot {
		seen[rec.Message]++
	}
	for i := 1; i <= 25; i++ {
		assert.Equal(t, 1, seen[fmt.Sprintf("record #%d", i)])
	}
}

func TestExactlyOneActiveViewAtAllTimes(t *testing.T) {
	c, d, embedded, _ := setup(t)
	defer d.Stop()

	require.NoError(t, d.RequestDetach())
	window := &fakeView{}
	hostEnd, windowEnd := NewPair()
	require.NoError(t, d.BindWindow(window, hostEnd))
	require.NoError(t, windowEnd.Send(SignalDetached))
	waitForState(t, d, StateDetached)

	// Publish while detached; the hidden panel must receive nothing.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			c.Publish(record(i))
		}
	}()
	<-done

	assert.Equal(t, 0, embedded.total())
	assert.Equal(t, 200, window.total())
}

func TestHostRequestedReattach(t *testing.T) {
	c, d, _, _ := setup(t)
	defer d.Stop()

	require.NoError(t, d.RequestDetach())
	window := &fakeView{}
	hostEnd, windowEnd := NewPair()
	require.NoError(t, d.BindWindow(window, hostEnd))
	require.NoError(t, windowEnd.Send(SignalDetached))
	waitForState(t, d, StateDetached)

	require.NoError(t, d.RequestReattach())
	assert.Equal(t, StateReattachPending, d.State())

	// The window receives the request, answers, and destroys itself.
	sig := <-windowEnd.Signals()
	assert.Equal(t, SignalReattach, sig)
	require.NoError(t, windowEnd.Send(SignalAttached))

	waitForState(t, d, StateEmbedded)
	c.Publish(record(1))
	assert.Equal(t, StateEmbedded, d.State())
}

func TestLinkDropFallsBackToEmbedded(t *testing.T) {
	c, d, embedded, _ := setup(t)
	defer d.Stop()

	for i := 1; i <= 10; i++ {
		c.Publish(record(i))
	}

	require.NoError(t, d.RequestDetach())
	window := &fakeView{}
	hostEnd, windowEnd := NewPair()
	require.NoError(t, d.BindWindow(window, hostEnd))
	require.NoError(t, windowEnd.Send(SignalDetached))
	waitForState(t, d, StateDetached)

	// Window process dies without the handshake.
	windowEnd.Close()
	waitForState(t, d, StateEmbedded)

	assert.True(t, embedded.isActive())
	assert.Equal(t, 10, embedded.total())
}

func TestWindowActivationFailureStaysEmbedded(t *testing.T) {
	c, d, embedded, _ := setup(t)
	defer d.Stop()

	require.NoError(t, d.RequestDetach())
	window := &fakeView{failNext: true}
	hostEnd, windowEnd := NewPair()
	require.NoError(t, d.BindWindow(window, hostEnd))
	require.NoError(t, windowEnd.Send(SignalDetached))

	waitForState(t, d, StateEmbedded)
	assert.True(t, embedded.isActive())
	assert.False(t, window.isActive())

	c.Publish(record(1))
	assert.Equal(t, 1, embedded.total())
}

func TestCoordinatorStats(t *testing.T) {
	_, d, _, _ := setup(t)
	defer d.Stop()

	stats := d.GetStats()
	assert.Equal(t, "embedded", stats["state"])
	assert.Equal(t, uint64(0), stats["detaches"])
}
