// FILE: src/cmd/logdeck/main.go
package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"logdeck/src/internal/config"
	"logdeck/src/internal/version"

	"github.com/lixenwraith/log"
)

var logger *log.Logger

func main() {
	flagCfg, err := ParseFlags()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	InitOutputHandler(flagCfg.Quiet)

	if flagCfg.ShowVersion {
		fmt.Println(version.String())
		os.Exit(0)
	}

	// Set config file environment if specified
	if flagCfg.ConfigFile != "" {
		os.Setenv("LOGDECK_CONFIG_FILE", flagCfg.ConfigFile)
	}

	cfg, err := config.LoadWithCLI(configArgs(os.Args[1:]))
	if err != nil {
		if flagCfg.ConfigFile != "" && strings.Contains(err.Error(), "not found") {
			FatalError(2, "Config file not found: %s\n", flagCfg.ConfigFile)
		}
		FatalError(1, "Failed to load config: %v\n", err)
	}

	// Materialize the effective config (defaults + file + env + CLI).
	if flagCfg.WriteConfig != "" {
		if err := cfg.SaveToFile(flagCfg.WriteConfig); err != nil {
			FatalError(1, "Failed to write config: %v\n", err)
		}
		Print("Config written to %s\n", flagCfg.WriteConfig)
		os.Exit(0)
	}

	if err := initializeLogger(cfg, flagCfg); err != nil {
		FatalError(1, "Failed to initialize logger: %v\n", err)
	}
	defer shutdownLogger()

	// Detached window process: serve the console window, then exit.
	if flagCfg.WindowURL != "" {
		if err := runWindow(flagCfg.WindowURL); err != nil {
			logger.Error("msg", "Console window failed", "error", err)
			os.Exit(1)
		}
		return
	}

	logger.Info("msg", "LogDeck starting",
		"version", version.String(),
		"config_file", flagCfg.ConfigFile,
		"log_output", cfg.Logging.Output)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	deck, err := bootstrapDeck(cfg)
	if err != nil {
		logger.Error("msg", "Failed to bootstrap", "error", err)
		os.Exit(1)
	}

	// SIGUSR1 toggles the detached console window, SIGUSR2 exports the
	// buffer to a file next to the working directory.
	userChan := make(chan os.Signal, 1)
	signal.Notify(userChan, syscall.SIGUSR1, syscall.SIGUSR2)
	go func() {
		for sig := range userChan {
			switch sig {
			case syscall.SIGUSR1:
				deck.ToggleDetach()
			case syscall.SIGUSR2:
				deck.ExportSnapshot(cfg)
			}
		}
	}()

	<-sigChan
	logger.Info("msg", "Shutdown signal received, starting graceful shutdown...")

	done := make(chan struct{})
	go func() {
		deck.Shutdown()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("msg", "Shutdown complete")
	case <-time.After(10 * time.Second):
		logger.Error("msg", "Shutdown timeout exceeded - forcing exit")
		os.Exit(1)
	}
}

// configArgs strips process-level flags the config layer does not know,
// leaving dotted-path overrides like --console.capacity=500.
func configArgs(args []string) []string {
	var out []string
	for _, arg := range args {
		if isConfigOverride(arg) {
			out = append(out, arg)
		}
	}
	return out
}

func shutdownLogger() {
	if logger != nil {
		if err := logger.Shutdown(2 * time.Second); err != nil {
			// Best effort - can't log the shutdown error
			Error("Logger shutdown error: %v\n", err)
		}
	}
}
