// FILE: src/cmd/logdeck/bootstrap.go
package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"logdeck/src/internal/auth"
	"logdeck/src/internal/config"
	"logdeck/src/internal/console"
	"logdeck/src/internal/detach"
	"logdeck/src/internal/export"
	"logdeck/src/internal/intercept"
	"logdeck/src/internal/layout"
	"logdeck/src/internal/source"
	"logdeck/src/internal/version"

	"github.com/lixenwraith/log"
)

// Local endpoint the detached window process connects back to.
const (
	windowAddr = "127.0.0.1:9516"
	windowPath = "/console"
)

// Deck ties the console hub, push channel, and detach machinery
// together for the lifetime of the process.
type Deck struct {
	console     *console.Console
	interceptor *intercept.Interceptor
	subscribers []*source.Subscriber
	coordinator *detach.Coordinator
	sockServer  *detach.SocketServer
	layoutStore *layout.Store
	panel       *Panel
}

func bootstrapDeck(cfg *config.Config) (*Deck, error) {
	deck := &Deck{}

	deck.console = console.New(cfg.Console.Capacity, logger)
	deck.interceptor = intercept.Install(logger, deck.console)

	store, err := layout.NewStore(cfg.Layout.Path, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create layout store: %w", err)
	}
	deck.layoutStore = store
	state := store.Load()
	logger.Info("msg", "Panel layout restored",
		"position", string(state.Position),
		"size", state.Size)

	verifier := auth.NewVerifier(cfg.Remote.AuthToken, logger)
	retry := source.RetryConfig{
		InitialDelay: time.Duration(cfg.Remote.RetryInitialDelayMs) * time.Millisecond,
		MaxDelay:     time.Duration(cfg.Remote.RetryMaxDelayMs) * time.Millisecond,
		Multiplier:   cfg.Remote.RetryMultiplier,
	}

	if cfg.Remote.TCP.Enabled {
		tcpCfg := source.TCPConfig{
			Host:        cfg.Remote.TCP.Host,
			Port:        cfg.Remote.TCP.Port,
			BufferSize:  cfg.Remote.TCP.BufferSize,
			IngestRPS:   cfg.Remote.IngestRPS,
			IngestBurst: cfg.Remote.IngestBurst,
		}
		sub := source.NewSubscriber(func() (source.Source, error) {
			return source.NewTCPSource(tcpCfg, verifier, logger)
		}, deck.console, retry, logger)
		sub.Start()
		deck.subscribers = append(deck.subscribers, sub)
		logger.Info("msg", "TCP push channel enabled",
			"host", tcpCfg.Host, "port", tcpCfg.Port)
	}

	if cfg.Remote.HTTP.Enabled {
		httpCfg := source.HTTPConfig{
			Host:        cfg.Remote.HTTP.Host,
			Port:        cfg.Remote.HTTP.Port,
			IngestPath:  cfg.Remote.HTTP.IngestPath,
			BufferSize:  cfg.Remote.HTTP.BufferSize,
			IngestRPS:   cfg.Remote.IngestRPS,
			IngestBurst: cfg.Remote.IngestBurst,
		}
		sub := source.NewSubscriber(func() (source.Source, error) {
			return source.NewHTTPSource(httpCfg, verifier, logger)
		}, deck.console, retry, logger)
		sub.Start()
		deck.subscribers = append(deck.subscribers, sub)
		logger.Info("msg", "HTTP push channel enabled",
			"host", httpCfg.Host, "port", httpCfg.Port, "path", httpCfg.IngestPath)
	}

	deck.panel = NewPanel(os.Stdout, cfg.Console.Capacity)
	opener := &processOpener{}
	deck.coordinator = detach.New(deck.console, deck.panel, opener, logger)
	if err := deck.coordinator.Start(); err != nil {
		return nil, fmt.Errorf("failed to start detach coordinator: %w", err)
	}

	// Accept detached window connections and bind them to the coordinator.
	deck.sockServer = detach.NewSocketServer(windowAddr, windowPath, func(sock *detach.Socket) {
		view := detach.NewRemoteView(sock, logger)
		if err := deck.coordinator.BindWindow(view, sock); err != nil {
			logger.Warn("msg", "Rejected console window connection",
				"error", err)
			sock.Close()
		}
	}, logger)
	deck.sockServer.Start()

	logger.Info("msg", "LogDeck started",
		"version", version.Short(),
		"capacity", cfg.Console.Capacity)

	return deck, nil
}

// ToggleDetach pops the console out into its own window, or asks the
// window to hand the console back.
func (d *Deck) ToggleDetach() {
	switch d.coordinator.State() {
	case detach.StateEmbedded:
		if err := d.coordinator.RequestDetach(); err != nil {
			logger.Warn("msg", "Detach request failed", "error", err)
		}
	case detach.StateDetached:
		if err := d.coordinator.RequestReattach(); err != nil {
			logger.Warn("msg", "Reattach request failed", "error", err)
		}
	default:
		logger.Debug("msg", "Detach toggle ignored mid-transition",
			"state", d.coordinator.State().String())
	}
}

// ExportSnapshot dumps the full buffer to a timestamped file and, when
// a tracker is configured, logs a pre-filled bug report URL.
func (d *Deck) ExportSnapshot(cfg *config.Config) {
	info := export.Info{AppVersion: version.Short()}
	if cfg.Logging != nil && cfg.Logging.File != nil &&
		(cfg.Logging.Output == "file" || cfg.Logging.Output == "both") {
		info.LogPath = filepath.Join(cfg.Logging.File.Directory, cfg.Logging.File.Name+".log")
	}

	snapshot := d.console.Snapshot()
	path := fmt.Sprintf("logdeck-export-%s.txt", time.Now().Format("20060102-150405"))
	if err := export.WriteFile(path, snapshot, info); err != nil {
		logger.Error("msg", "Export failed", "error", err)
		return
	}
	logger.Info("msg", "Console exported", "path", path, "records", len(snapshot))

	if cfg.Report.BaseURL != "" {
		url, err := export.BugReportURL(cfg.Report.BaseURL, snapshot, info)
		if err != nil {
			logger.Warn("msg", "Bug report URL generation failed", "error", err)
			return
		}
		logger.Info("msg", "Bug report prepared", "url", url)
	}
}

// Shutdown stops components in dependency order and persists layout.
func (d *Deck) Shutdown() {
	d.sockServer.Stop()
	d.coordinator.Stop()
	for _, sub := range d.subscribers {
		sub.Stop()
	}

	if err := d.layoutStore.Save(d.layoutStore.Load()); err != nil {
		logger.Warn("msg", "Failed to persist panel layout", "error", err)
	}
}

// processOpener spawns this binary in window mode. The new process
// dials back to the host endpoint and announces console-detached.
type processOpener struct{}

func (o *processOpener) Open() error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("cannot locate own binary: %w", err)
	}

	url := "ws://" + windowAddr + windowPath
	cmd := exec.Command(exe, "--window", url)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to spawn console window: %w", err)
	}
	go cmd.Wait()
	return nil
}

// runWindow is the detached process entry point: connect back to the
// host, drive a local panel, and hand the console back on exit.
func runWindow(url string) error {
	sock, err := detach.DialSocket(url, logger)
	if err != nil {
		return fmt.Errorf("failed to reach host console: %w", err)
	}

	panel := NewPanel(os.Stdout, 0)
	agent := detach.NewWindowAgent(sock, panel, logger)
	return agent.Run()
}

func initializeLogger(cfg *config.Config, flagCfg *FlagConfig) error {
	logger = log.NewLogger()

	var configArgs []string

	if flagCfg.Quiet {
		// In quiet mode, disable ALL logging output
		configArgs = append(configArgs,
			"disable_file=true",
			"enable_stdout=false",
			"level=255")

		return logger.ApplyConfigString(configArgs...)
	}

	levelValue, err := parseLogLevel(cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	configArgs = append(configArgs, fmt.Sprintf("level=%d", levelValue))

	switch cfg.Logging.Output {
	case "none":
		configArgs = append(configArgs, "disable_file=true", "enable_stdout=false")

	case "stdout":
		configArgs = append(configArgs,
			"disable_file=true",
			"enable_stdout=true",
			"stdout_target=stdout")

	case "stderr":
		configArgs = append(configArgs,
			"disable_file=true",
			"enable_stdout=true",
			"stdout_target=stderr")

	case "file":
		configArgs = append(configArgs, "enable_stdout=false")
		configureFileLogging(&configArgs, cfg)

	case "both":
		configArgs = append(configArgs, "enable_stdout=true", "stdout_target=stderr")
		configureFileLogging(&configArgs, cfg)

	default:
		return fmt.Errorf("invalid log output mode: %s", cfg.Logging.Output)
	}

	return logger.ApplyConfigString(configArgs...)
}

func configureFileLogging(configArgs *[]string, cfg *config.Config) {
	if cfg.Logging.File != nil {
		*configArgs = append(*configArgs,
			fmt.Sprintf("directory=%s", cfg.Logging.File.Directory),
			fmt.Sprintf("name=%s", cfg.Logging.File.Name),
			fmt.Sprintf("max_size_mb=%d", cfg.Logging.File.MaxSizeMB))

		if cfg.Logging.File.RetentionHours > 0 {
			*configArgs = append(*configArgs,
				fmt.Sprintf("retention_period_hrs=%.1f", cfg.Logging.File.RetentionHours))
		}
	}
}
