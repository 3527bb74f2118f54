// FILE: src/internal/source/http.go
package source

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"logdeck/src/internal/auth"
	"logdeck/src/internal/core"

	"github.com/lixenwraith/log"
	"github.com/valyala/fasthttp"
	"golang.org/x/time/rate"
)

// HTTPConfig configures the HTTP transport of the push channel.
type HTTPConfig struct {
	Host       string
	Port       int
	IngestPath string
	BufferSize int

	IngestRPS   float64
	IngestBurst int
}

// HTTPSource receives remote log events via HTTP POST, one JSON event per
// line of request body.
type HTTPSource struct {
	cfg         HTTPConfig
	server      *fasthttp.Server
	subscribers []chan core.LogRecord
	mu          sync.RWMutex
	done        chan struct{}
	wg          sync.WaitGroup
	limiter     *rate.Limiter
	verifier    *auth.Verifier
	logger      *log.Logger

	// Statistics
	totalEntries   atomic.Uint64
	droppedEntries atomic.Uint64
	invalidEntries atomic.Uint64
	limitedEntries atomic.Uint64
	deniedRequests atomic.Uint64
	startTime      time.Time
	lastEntryTime  atomic.Value // time.Time
}

// NewHTTPSource creates an HTTP push channel listener.
func NewHTTPSource(cfg HTTPConfig, verifier *auth.Verifier, logger *log.Logger) (*HTTPSource, error) {
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("http source requires a valid port, got %d", cfg.Port)
	}
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.IngestPath == "" {
		cfg.IngestPath = "/ingest"
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = core.DefaultCapacity
	}

	h := &HTTPSource{
		cfg:       cfg,
		done:      make(chan struct{}),
		verifier:  verifier,
		startTime: time.Now(),
		logger:    logger,
	}
	h.lastEntryTime.Store(time.Time{})

	if cfg.IngestRPS > 0 {
		burst := cfg.IngestBurst
		if burst <= 0 {
			burst = int(cfg.IngestRPS)
		}
		h.limiter = rate.NewLimiter(rate.Limit(cfg.IngestRPS), burst)
	}

	return h, nil
}

func (h *HTTPSource) Subscribe() <-chan core.LogRecord {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan core.LogRecord, h.cfg.BufferSize)
	h.subscribers = append(h.subscribers, ch)
	return ch
}

func (h *HTTPSource) Start() error {
	h.server = &fasthttp.Server{
		Handler:         h.requestHandler,
		CloseOnShutdown: true,
	}

	addr := fmt.Sprintf("%s:%d", h.cfg.Host, h.cfg.Port)

	errChan := make(chan error, 1)
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		h.logger.Info("msg", "HTTP push channel starting",
			"component", "http_source",
			"channel", core.RemoteLogChannel,
			"port", h.cfg.Port,
			"ingest_path", h.cfg.IngestPath)

		err := h.server.ListenAndServe(addr)
		if err != nil {
			h.logger.Error("msg", "HTTP push channel failed",
				"component", "http_source",
				"port", h.cfg.Port,
				"error", err)
		}
		errChan <- err
	}()

	// Wait briefly for the listener to come up or fail
	select {
	case err := <-errChan:
		close(h.done)
		h.wg.Wait()
		return err
	case <-time.After(100 * time.Millisecond):
		return nil
	}
}

func (h *HTTPSource) Stop() {
	h.logger.Info("msg", "Stopping HTTP push channel", "component", "http_source")
	close(h.done)

	if h.server != nil {
		if err := h.server.Shutdown(); err != nil {
			h.logger.Error("msg", "Error shutting down HTTP push channel",
				"component", "http_source",
				"error", err)
		}
	}
	h.wg.Wait()

	h.mu.Lock()
	for _, ch := range h.subscribers {
		close(ch)
	}
	h.subscribers = nil
	h.mu.Unlock()
}

func (h *HTTPSource) GetStats() SourceStats {
	lastEntry, _ := h.lastEntryTime.Load().(time.Time)
	return SourceStats{
		Type:           "http",
		TotalEntries:   h.totalEntries.Load(),
		DroppedEntries: h.droppedEntries.Load(),
		StartTime:      h.startTime,
		LastEntryTime:  lastEntry,
		Details: map[string]any{
			"port":            h.cfg.Port,
			"ingest_path":     h.cfg.IngestPath,
			"invalid_entries": h.invalidEntries.Load(),
			"limited_entries": h.limitedEntries.Load(),
			"denied_requests": h.deniedRequests.Load(),
			"auth":            h.verifier.GetStats(),
		},
	}
}

func (h *HTTPSource) requestHandler(ctx *fasthttp.RequestCtx) {
	if string(ctx.Path()) != h.cfg.IngestPath {
		ctx.SetStatusCode(fasthttp.StatusNotFound)
		return
	}
	if !ctx.IsPost() {
		ctx.SetStatusCode(fasthttp.StatusMethodNotAllowed)
		return
	}

	if h.verifier != nil {
		token := strings.TrimPrefix(string(ctx.Request.Header.Peek("Authorization")), "Bearer ")
		if err := h.verifier.Verify(token); err != nil {
			h.deniedRequests.Add(1)
			h.logger.Warn("msg", "Push channel request denied",
				"component", "http_source",
				"remote_addr", ctx.RemoteAddr().String(),
				"error", err)
			ctx.SetStatusCode(fasthttp.StatusUnauthorized)
			return
		}
	}

	accepted := 0
	scanner := bufio.NewScanner(bytes.NewReader(ctx.PostBody()))
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineLength)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var ev Event
		if err := json.Unmarshal(line, &ev); err != nil {
			h.invalidEntries.Add(1)
			continue
		}
		if ev.Message == "" {
			h.invalidEntries.Add(1)
			continue
		}

		h.ingest(ev)
		accepted++
	}

	ctx.SetStatusCode(fasthttp.StatusAccepted)
	fmt.Fprintf(ctx, `{"accepted":%d}`, accepted)
}

func (h *HTTPSource) ingest(ev Event) {
	if h.limiter != nil && !h.limiter.Allow() {
		h.limitedEntries.Add(1)
		return
	}

	rec := Normalize(ev)

	h.mu.RLock()
	defer h.mu.RUnlock()

	h.totalEntries.Add(1)
	h.lastEntryTime.Store(time.Now())

	for _, ch := range h.subscribers {
		select {
		case ch <- rec:
		default:
			h.droppedEntries.Add(1)
		}
	}
}
