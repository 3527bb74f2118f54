// FILE: src/internal/detach/socket_test.go
package detach

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"logdeck/src/internal/core"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// socketPair establishes a host/window socket pair over a loopback
// websocket connection.
func socketPair(t *testing.T) (host *Socket, window *Socket) {
	t.Helper()

	upgrader := websocket.Upgrader{}
	accepted := make(chan *Socket, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		accepted <- NewSocket(conn, newTestLogger())
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	window, err := DialSocket(url, newTestLogger())
	require.NoError(t, err)

	select {
	case host = <-accepted:
	case <-time.After(2 * time.Second):
		t.Fatal("server did not accept connection")
	}
	t.Cleanup(func() {
		host.Close()
		window.Close()
	})
	return host, window
}

func TestSocketCarriesSignals(t *testing.T) {
	host, window := socketPair(t)

	require.NoError(t, window.Send(SignalDetached))
	sig, ok := recvSignal(t, host.Signals())
	assert.True(t, ok)
	assert.Equal(t, SignalDetached, sig)

	require.NoError(t, host.Send(SignalReattach))
	sig, ok = recvSignal(t, window.Signals())
	assert.True(t, ok)
	assert.Equal(t, SignalReattach, sig)
}

func TestSocketCarriesSnapshotAndRecords(t *testing.T) {
	host, window := socketPair(t)

	snapshot := []core.LogRecord{
		{Timestamp: "2026-08-24 10:00:00.000", Level: core.LevelInfo, Target: "frontend", Message: "a", Source: core.SourceLocal},
		{Timestamp: "2026-08-24 10:00:00.001", Level: core.LevelError, Target: "game", Message: "b", Source: core.SourceRemote},
	}
	require.NoError(t, host.SendSnapshot(snapshot))

	select {
	case got := <-window.Snapshots():
		assert.Equal(t, snapshot, got)
	case <-time.After(2 * time.Second):
		t.Fatal("snapshot not delivered")
	}

	rec := core.LogRecord{Timestamp: "2026-08-24 10:00:00.002", Level: core.LevelWarn, Target: "frontend", Message: "c", Source: core.SourceLocal}
	require.NoError(t, host.SendRecord(rec))

	select {
	case got := <-window.Records():
		assert.Equal(t, rec, got)
	case <-time.After(2 * time.Second):
		t.Fatal("record not delivered")
	}
}

func TestSocketCloseEndsChannels(t *testing.T) {
	host, window := socketPair(t)

	window.Close()

	_, ok := recvSignal(t, host.Signals())
	assert.False(t, ok)
}

func TestRemoteViewDeliversThroughSocket(t *testing.T) {
	host, window := socketPair(t)

	view := NewRemoteView(host, newTestLogger())
	defer view.Deactivate()

	snapshot := []core.LogRecord{{Timestamp: "2026-08-24 10:00:00.000", Level: core.LevelInfo, Target: "frontend", Message: "x", Source: core.SourceLocal}}
	require.NoError(t, view.Activate(snapshot))

	select {
	case got := <-window.Snapshots():
		assert.Len(t, got, 1)
	case <-time.After(2 * time.Second):
		t.Fatal("snapshot not delivered")
	}

	view.Append(core.LogRecord{Timestamp: "2026-08-24 10:00:00.001", Level: core.LevelInfo, Target: "frontend", Message: "y", Source: core.SourceLocal})
	select {
	case got := <-window.Records():
		assert.Equal(t, "y", got.Message)
	case <-time.After(2 * time.Second):
		t.Fatal("record not delivered")
	}
}

func TestWindowAgentHandshake(t *testing.T) {
	host, window := socketPair(t)

	view := &fakeView{}
	agent := NewWindowAgent(window, view, newTestLogger())

	done := make(chan error, 1)
	go func() { done <- agent.Run() }()

	// The window announces readiness.
	sig, ok := recvSignal(t, host.Signals())
	assert.True(t, ok)
	assert.Equal(t, SignalDetached, sig)

	// The host ships the snapshot; the local view renders it.
	require.NoError(t, host.SendSnapshot([]core.LogRecord{
		{Timestamp: "2026-08-24 10:00:00.000", Level: core.LevelInfo, Target: "frontend", Message: "a", Source: core.SourceLocal},
	}))
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && view.total() == 0 {
		time.Sleep(5 * time.Millisecond)
	}
	assert.Equal(t, 1, view.total())

	// The host asks for the console back: attached, then teardown.
	require.NoError(t, host.Send(SignalReattach))
	sig, ok = recvSignal(t, host.Signals())
	assert.True(t, ok)
	assert.Equal(t, SignalAttached, sig)

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("agent did not terminate")
	}
	assert.False(t, view.isActive())
}
