// FILE: src/internal/source/tcp.go
package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"logdeck/src/internal/auth"
	"logdeck/src/internal/core"

	"github.com/lixenwraith/log"
	"github.com/lixenwraith/log/compat"
	"github.com/panjf2000/gnet/v2"
	"golang.org/x/time/rate"
)

const (
	maxClientBufferSize = 1 * 1024 * 1024 // 1MB max buffered per client
	maxLineLength       = 256 * 1024      // 256KB max per event line
)

// TCPConfig configures the TCP transport of the push channel.
type TCPConfig struct {
	Host       string
	Port       int
	BufferSize int

	// IngestRPS caps accepted events per second; zero disables the cap.
	IngestRPS   float64
	IngestBurst int
}

// TCPSource receives remote log events as newline-delimited JSON over TCP.
type TCPSource struct {
	cfg         TCPConfig
	server      *tcpServer
	subscribers []chan core.LogRecord
	mu          sync.RWMutex
	done        chan struct{}
	engine      *gnet.Engine
	engineMu    sync.Mutex
	wg          sync.WaitGroup
	limiter     *rate.Limiter
	verifier    *auth.Verifier
	logger      *log.Logger

	// Statistics
	totalEntries   atomic.Uint64
	droppedEntries atomic.Uint64
	invalidEntries atomic.Uint64
	limitedEntries atomic.Uint64
	activeConns    atomic.Int64
	startTime      time.Time
	lastEntryTime  atomic.Value // time.Time
}

// NewTCPSource creates a TCP push channel listener.
func NewTCPSource(cfg TCPConfig, verifier *auth.Verifier, logger *log.Logger) (*TCPSource, error) {
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("tcp source requires a valid port, got %d", cfg.Port)
	}
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = core.DefaultCapacity
	}

	t := &TCPSource{
		cfg:       cfg,
		done:      make(chan struct{}),
		verifier:  verifier,
		startTime: time.Now(),
		logger:    logger,
	}
	t.lastEntryTime.Store(time.Time{})

	if cfg.IngestRPS > 0 {
		burst := cfg.IngestBurst
		if burst <= 0 {
			burst = int(cfg.IngestRPS)
		}
		t.limiter = rate.NewLimiter(rate.Limit(cfg.IngestRPS), burst)
	}

	return t, nil
}

func (t *TCPSource) Subscribe() <-chan core.LogRecord {
	t.mu.Lock()
	defer t.mu.Unlock()

	ch := make(chan core.LogRecord, t.cfg.BufferSize)
	t.subscribers = append(t.subscribers, ch)
	return ch
}

func (t *TCPSource) Start() error {
	t.server = &tcpServer{
		source:  t,
		clients: make(map[gnet.Conn]*tcpClient),
	}

	addr := fmt.Sprintf("tcp://%s:%d", t.cfg.Host, t.cfg.Port)
	gnetLogger := compat.NewGnetAdapter(t.logger)

	errChan := make(chan error, 1)
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		t.logger.Info("msg", "TCP push channel starting",
			"component", "tcp_source",
			"channel", core.RemoteLogChannel,
			"port", t.cfg.Port)

		err := gnet.Run(t.server, addr,
			gnet.WithLogger(gnetLogger),
			gnet.WithReusePort(true),
		)
		if err != nil {
			t.logger.Error("msg", "TCP push channel failed",
				"component", "tcp_source",
				"port", t.cfg.Port,
				"error", err)
		}
		errChan <- err
	}()

	// Wait briefly for the listener to come up or fail
	select {
	case err := <-errChan:
		close(t.done)
		t.wg.Wait()
		return err
	case <-time.After(100 * time.Millisecond):
		return nil
	}
}

func (t *TCPSource) Stop() {
	t.logger.Info("msg", "Stopping TCP push channel", "component", "tcp_source")
	close(t.done)

	t.engineMu.Lock()
	engine := t.engine
	t.engineMu.Unlock()

	if engine != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		(*engine).Stop(ctx)
	}

	t.wg.Wait()

	t.mu.Lock()
	for _, ch := range t.subscribers {
		close(ch)
	}
	t.subscribers = nil
	t.mu.Unlock()
}

func (t *TCPSource) GetStats() SourceStats {
	lastEntry, _ := t.lastEntryTime.Load().(time.Time)
	return SourceStats{
		Type:           "tcp",
		TotalEntries:   t.totalEntries.Load(),
		DroppedEntries: t.droppedEntries.Load(),
		StartTime:      t.startTime,
		LastEntryTime:  lastEntry,
		Details: map[string]any{
			"port":               t.cfg.Port,
			"active_connections": t.activeConns.Load(),
			"invalid_entries":    t.invalidEntries.Load(),
			"limited_entries":    t.limitedEntries.Load(),
			"auth":               t.verifier.GetStats(),
		},
	}
}

// ingest normalizes one wire event and fans it out. Delivery to slow
// subscribers drops rather than blocking the remote writer.
func (t *TCPSource) ingest(ev Event) {
	if t.limiter != nil && !t.limiter.Allow() {
		t.limitedEntries.Add(1)
		return
	}

	rec := Normalize(ev)

	t.mu.RLock()
	defer t.mu.RUnlock()

	t.totalEntries.Add(1)
	t.lastEntryTime.Store(time.Now())

	for _, ch := range t.subscribers {
		select {
		case ch <- rec:
		default:
			t.droppedEntries.Add(1)
		}
	}
}

// tcpClient tracks per-connection state.
type tcpClient struct {
	buffer        bytes.Buffer
	authenticated bool
	authDeadline  time.Time
}

// tcpServer handles gnet events.
type tcpServer struct {
	gnet.BuiltinEventEngine
	source  *TCPSource
	clients map[gnet.Conn]*tcpClient
	mu      sync.RWMutex
}

func (s *tcpServer) OnBoot(eng gnet.Engine) gnet.Action {
	s.source.engineMu.Lock()
	s.source.engine = &eng
	s.source.engineMu.Unlock()
	return gnet.None
}

func (s *tcpServer) OnOpen(c gnet.Conn) (out []byte, action gnet.Action) {
	client := &tcpClient{
		authenticated: s.source.verifier == nil,
	}
	if s.source.verifier != nil {
		client.authDeadline = time.Now().Add(30 * time.Second)
	}

	s.mu.Lock()
	s.clients[c] = client
	s.mu.Unlock()

	newCount := s.source.activeConns.Add(1)
	s.source.logger.Debug("msg", "Push channel connection opened",
		"component", "tcp_source",
		"remote_addr", c.RemoteAddr().String(),
		"active_connections", newCount,
		"requires_auth", s.source.verifier != nil)

	if s.source.verifier != nil {
		return []byte("AUTH_REQUIRED\n"), gnet.None
	}
	return nil, gnet.None
}

func (s *tcpServer) OnClose(c gnet.Conn, err error) gnet.Action {
	s.mu.Lock()
	delete(s.clients, c)
	s.mu.Unlock()

	newCount := s.source.activeConns.Add(-1)
	s.source.logger.Debug("msg", "Push channel connection closed",
		"component", "tcp_source",
		"remote_addr", c.RemoteAddr().String(),
		"active_connections", newCount,
		"error", err)
	return gnet.None
}

func (s *tcpServer) OnTraffic(c gnet.Conn) gnet.Action {
	s.mu.RLock()
	client, exists := s.clients[c]
	s.mu.RUnlock()
	if !exists {
		return gnet.Close
	}

	data, err := c.Next(-1)
	if err != nil {
		return gnet.Close
	}

	// Authentication phase: first line must be "AUTH <token>"
	if !client.authenticated {
		if time.Now().After(client.authDeadline) {
			s.source.logger.Warn("msg", "Push channel auth timeout",
				"component", "tcp_source",
				"remote_addr", c.RemoteAddr().String())
			return gnet.Close
		}

		client.buffer.Write(data)
		idx := bytes.IndexByte(client.buffer.Bytes(), '\n')
		if idx < 0 {
			return gnet.None
		}

		line := strings.TrimRight(string(client.buffer.Bytes()[:idx]), "\r")
		client.buffer.Next(idx + 1)

		parts := strings.SplitN(line, " ", 2)
		if len(parts) != 2 || parts[0] != "AUTH" {
			c.AsyncWrite([]byte("AUTH_FAIL\n"), nil)
			return gnet.Close
		}
		if err := s.source.verifier.Verify(parts[1]); err != nil {
			s.source.logger.Warn("msg", "Push channel auth failed",
				"component", "tcp_source",
				"remote_addr", c.RemoteAddr().String(),
				"error", err)
			c.AsyncWrite([]byte("AUTH_FAIL\n"), nil)
			return gnet.Close
		}

		client.authenticated = true
		c.AsyncWrite([]byte("AUTH_OK\n"), nil)
		// Fall through: the buffer may already hold event lines.
		data = nil
	}

	if client.buffer.Len()+len(data) > maxClientBufferSize {
		s.source.logger.Warn("msg", "Push channel client buffer limit exceeded",
			"component", "tcp_source",
			"remote_addr", c.RemoteAddr().String(),
			"buffer_size", client.buffer.Len())
		s.source.invalidEntries.Add(1)
		return gnet.Close
	}
	client.buffer.Write(data)

	if client.buffer.Len() > maxLineLength &&
		bytes.IndexByte(client.buffer.Bytes(), '\n') < 0 {
		s.source.logger.Warn("msg", "Push channel line too long without newline",
			"component", "tcp_source",
			"remote_addr", c.RemoteAddr().String(),
			"buffer_size", client.buffer.Len())
		s.source.invalidEntries.Add(1)
		return gnet.Close
	}

	s.drainLines(client)
	return gnet.None
}

// drainLines consumes complete event lines from the client buffer. A
// trailing partial line stays buffered until the next segment arrives,
// so an event split across TCP segments is never truncated.
func (s *tcpServer) drainLines(client *tcpClient) {
	for {
		line, err := client.buffer.ReadBytes('\n')
		if err != nil {
			client.buffer.Write(line)
			break
		}
		line = bytes.TrimRight(line, "\r\n")
		if len(line) == 0 {
			continue
		}

		var ev Event
		if err := json.Unmarshal(line, &ev); err != nil {
			s.source.invalidEntries.Add(1)
			s.source.logger.Debug("msg", "Invalid push channel event",
				"component", "tcp_source",
				"error", err)
			continue
		}
		if ev.Message == "" {
			s.source.invalidEntries.Add(1)
			continue
		}

		s.source.ingest(ev)
	}
}
