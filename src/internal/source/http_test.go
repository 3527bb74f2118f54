// FILE: src/internal/source/http_test.go
package source

import (
	"net"
	"sync/atomic"
	"testing"
	"time"

	"logdeck/src/internal/console"
	"logdeck/src/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// occupyPort grabs a free port and keeps it bound for the test.
func occupyPort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })
	return ln.Addr().(*net.TCPAddr).Port
}

func TestHTTPSourceStartFailsWhenPortBusy(t *testing.T) {
	port := occupyPort(t)

	src, err := NewHTTPSource(HTTPConfig{Host: "127.0.0.1", Port: port}, nil, newTestLogger())
	require.NoError(t, err)

	assert.Error(t, src.Start())
}

func TestSubscriberRetriesWhenHTTPBindFails(t *testing.T) {
	port := occupyPort(t)

	c := console.New(100, newTestLogger())
	var attempts atomic.Int32
	factory := func() (Source, error) {
		attempts.Add(1)
		return NewHTTPSource(HTTPConfig{Host: "127.0.0.1", Port: port}, nil, newTestLogger())
	}
	retry := RetryConfig{
		InitialDelay: 20 * time.Millisecond,
		MaxDelay:     40 * time.Millisecond,
		Multiplier:   2,
	}

	sub := NewSubscriber(factory, c, retry, newTestLogger())
	sub.Start()
	defer sub.Stop()

	// Each failed bind must surface as an ERROR record and trigger a
	// fresh attempt after backoff.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if attempts.Load() >= 2 && c.Len() >= 2 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	assert.GreaterOrEqual(t, attempts.Load(), int32(2))
	snapshot := c.Snapshot()
	require.NotEmpty(t, snapshot)
	for _, rec := range snapshot {
		assert.Equal(t, core.LevelError, rec.Level)
		assert.Equal(t, core.SourceRemote, rec.Source)
		assert.Contains(t, rec.Message, "remote log channel unavailable")
	}
}
