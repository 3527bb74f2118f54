// FILE: src/internal/detach/socket.go
package detach

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"logdeck/src/internal/core"

	"github.com/gorilla/websocket"
	"github.com/lixenwraith/log"
)

// Wire envelope for the window socket. Signals share the connection with
// the record stream feeding the standalone window.
type envelope struct {
	Type    string           `json:"type"` // "signal", "snapshot", "record"
	Signal  Signal           `json:"signal,omitempty"`
	Records []core.LogRecord `json:"records,omitempty"`
	Record  *core.LogRecord  `json:"record,omitempty"`
}

const socketWriteTimeout = 5 * time.Second

// Socket is a websocket-backed Link for the two-process case: the
// standalone console window runs in its own process and talks to the
// host over one connection carrying signals, snapshots, and records.
type Socket struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
	logger  *log.Logger

	signals   chan Signal
	snapshots chan []core.LogRecord
	records   chan core.LogRecord

	closeOnce sync.Once
}

// NewSocket wraps an established websocket connection and starts its
// read pump. Both sides of the detach protocol use the same wrapper.
func NewSocket(conn *websocket.Conn, logger *log.Logger) *Socket {
	s := &Socket{
		conn:      conn,
		logger:    logger,
		signals:   make(chan Signal, linkBuffer),
		snapshots: make(chan []core.LogRecord, 1),
		records:   make(chan core.LogRecord, core.DefaultCapacity),
	}
	go s.readPump()
	return s
}

// DialSocket connects to the host's window endpoint.
func DialSocket(url string, logger *log.Logger) (*Socket, error) {
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to dial console socket: %w", err)
	}
	return NewSocket(conn, logger), nil
}

func (s *Socket) readPump() {
	defer func() {
		close(s.signals)
		close(s.snapshots)
		close(s.records)
	}()

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Debug("msg", "Console socket read ended",
					"component", "detach_socket",
					"error", err)
			}
			return
		}

		var env envelope
		if err := json.Unmarshal(data, &env); err != nil {
			s.logger.Warn("msg", "Malformed console socket message",
				"component", "detach_socket",
				"error", err)
			continue
		}

		switch env.Type {
		case "signal":
			s.signals <- env.Signal
		case "snapshot":
			// Latest snapshot wins if the consumer lags.
			select {
			case s.snapshots <- env.Records:
			default:
				select {
				case <-s.snapshots:
				default:
				}
				s.snapshots <- env.Records
			}
		case "record":
			if env.Record != nil {
				select {
				case s.records <- *env.Record:
				default:
					// Window is not keeping up; the buffer snapshot on
					// reattach remains authoritative.
				}
			}
		}
	}
}

func (s *Socket) write(env envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to encode socket message: %w", err)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(socketWriteTimeout))
	if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("socket write failed: %w", err)
	}
	return nil
}

// Send delivers a detach signal. Implements Link.
func (s *Socket) Send(sig Signal) error {
	return s.write(envelope{Type: "signal", Signal: sig})
}

// Signals returns inbound signals. Implements Link.
func (s *Socket) Signals() <-chan Signal {
	return s.signals
}

// Close tears the connection down. Implements Link.
func (s *Socket) Close() error {
	s.closeOnce.Do(func() {
		s.writeMu.Lock()
		s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		s.writeMu.Unlock()
		s.conn.Close()
	})
	return nil
}

// SendSnapshot ships the authoritative buffer state to the window.
func (s *Socket) SendSnapshot(records []core.LogRecord) error {
	return s.write(envelope{Type: "snapshot", Records: records})
}

// SendRecord ships one appended record to the window.
func (s *Socket) SendRecord(rec core.LogRecord) error {
	return s.write(envelope{Type: "record", Record: &rec})
}

// Snapshots returns inbound snapshots (window side).
func (s *Socket) Snapshots() <-chan []core.LogRecord {
	return s.snapshots
}

// Records returns inbound records (window side).
func (s *Socket) Records() <-chan core.LogRecord {
	return s.records
}

// RemoteView projects the console onto a detached window process through
// a Socket. Implements View on the host side. Append is called under the
// hub lock, so records are queued and written by a background goroutine
// instead of hitting the network inline.
type RemoteView struct {
	sock   *Socket
	logger *log.Logger
	queue  chan core.LogRecord
	done   chan struct{}
	once   sync.Once
}

// NewRemoteView wraps a socket as the window's View.
func NewRemoteView(sock *Socket, logger *log.Logger) *RemoteView {
	v := &RemoteView{
		sock:   sock,
		logger: logger,
		queue:  make(chan core.LogRecord, core.DefaultCapacity),
		done:   make(chan struct{}),
	}
	go v.writeLoop()
	return v
}

func (v *RemoteView) writeLoop() {
	for {
		select {
		case rec := <-v.queue:
			if err := v.sock.SendRecord(rec); err != nil {
				v.logger.Debug("msg", "Record delivery to detached window failed",
					"component", "detach_socket",
					"error", err)
			}
		case <-v.done:
			return
		}
	}
}

func (v *RemoteView) Activate(snapshot []core.LogRecord) error {
	return v.sock.SendSnapshot(snapshot)
}

func (v *RemoteView) Append(rec core.LogRecord) {
	select {
	case v.queue <- rec:
	default:
		// Window is not keeping up; the buffer snapshot on reattach
		// remains authoritative.
	}
}

func (v *RemoteView) Deactivate() {
	v.once.Do(func() { close(v.done) })
}

// SocketServer accepts the standalone window's connection on a local
// endpoint and hands the wrapped socket to the coordinator's binder.
type SocketServer struct {
	server   *http.Server
	upgrader websocket.Upgrader
	onOpen   func(*Socket)
	logger   *log.Logger
}

// NewSocketServer creates the host-side endpoint. onOpen is invoked for
// every accepted window connection.
func NewSocketServer(addr, path string, onOpen func(*Socket), logger *log.Logger) *SocketServer {
	ss := &SocketServer{
		onOpen: onOpen,
		logger: logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc(path, ss.handle)
	ss.server = &http.Server{Addr: addr, Handler: mux}
	return ss
}

func (ss *SocketServer) handle(w http.ResponseWriter, r *http.Request) {
	conn, err := ss.upgrader.Upgrade(w, r, nil)
	if err != nil {
		ss.logger.Warn("msg", "Console socket upgrade failed",
			"component", "detach_socket",
			"error", err)
		return
	}
	ss.onOpen(NewSocket(conn, ss.logger))
}

// Start begins accepting window connections in the background.
func (ss *SocketServer) Start() {
	go func() {
		if err := ss.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			ss.logger.Error("msg", "Console socket server failed",
				"component", "detach_socket",
				"error", err)
		}
	}()
}

// Stop shuts the endpoint down.
func (ss *SocketServer) Stop() {
	ss.server.Close()
}
