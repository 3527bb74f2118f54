// FILE: src/cmd/logdeck/flags.go
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/lixenwraith/log"
)

// FlagConfig holds process-level flags parsed before config loading.
type FlagConfig struct {
	ConfigFile  string
	ShowVersion bool
	Quiet       bool

	// WriteConfig writes the effective configuration to the given path
	// and exits.
	WriteConfig string

	// WindowURL switches the process into detached console window mode,
	// connecting back to the host at the given websocket URL.
	WindowURL string
}

func ParseFlags() (*FlagConfig, error) {
	fs := flag.NewFlagSet(os.Args[0], flag.ContinueOnError)
	fs.Usage = func() { printUsage(fs) }

	cfg := &FlagConfig{}
	fs.StringVar(&cfg.ConfigFile, "config", "", "Config file path")
	fs.BoolVar(&cfg.ShowVersion, "version", false, "Show version information")
	fs.BoolVar(&cfg.Quiet, "quiet", false, "Suppress all console output")
	fs.StringVar(&cfg.WriteConfig, "write-config", "", "Write the effective config to a file and exit")
	fs.StringVar(&cfg.WindowURL, "window", "", "Run as detached console window, connecting to URL")

	// Dotted-path config overrides pass through to the config layer.
	if err := fs.Parse(processFlagsOnly(os.Args[1:])); err != nil {
		return nil, err
	}
	return cfg, nil
}

// processFlagsOnly filters out dotted-path config overrides so the flag
// package does not reject them.
func processFlagsOnly(args []string) []string {
	var out []string
	for _, arg := range args {
		if isConfigOverride(arg) {
			continue
		}
		out = append(out, arg)
	}
	return out
}

// isConfigOverride reports whether arg is a dotted-path override like
// --console.capacity=500. The dot must be in the flag name, not the
// value, so file paths stay untouched.
func isConfigOverride(arg string) bool {
	if !strings.HasPrefix(arg, "-") {
		return false
	}
	name := strings.SplitN(arg, "=", 2)[0]
	return strings.Contains(name, ".")
}

func printUsage(fs *flag.FlagSet) {
	fmt.Fprintf(os.Stderr, "LogDeck - Real-Time Log Console\n\n")
	fmt.Fprintf(os.Stderr, "Usage: %s [options] [--section.key=value ...]\n\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "Options:\n")
	fs.PrintDefaults()

	fmt.Fprintf(os.Stderr, "\nExamples:\n")
	fmt.Fprintf(os.Stderr, "  # Run with default config\n")
	fmt.Fprintf(os.Stderr, "  %s\n\n", os.Args[0])

	fmt.Fprintf(os.Stderr, "  # Run with custom config and a larger buffer\n")
	fmt.Fprintf(os.Stderr, "  %s --config /etc/logdeck.toml --console.capacity=5000\n\n", os.Args[0])

	fmt.Fprintf(os.Stderr, "  # Override the push channel port\n")
	fmt.Fprintf(os.Stderr, "  %s --remote.tcp.port=6514\n\n", os.Args[0])

	fmt.Fprintf(os.Stderr, "Environment Variables:\n")
	fmt.Fprintf(os.Stderr, "  LOGDECK_CONFIG_FILE   Config file path\n")
	fmt.Fprintf(os.Stderr, "  LOGDECK_CONFIG_DIR    Config directory\n")
	fmt.Fprintf(os.Stderr, "  LOGDECK_<SECTION>_<KEY>  Any config value, e.g. LOGDECK_REMOTE_TCP_PORT\n")
}

func parseLogLevel(level string) (int, error) {
	switch strings.ToLower(level) {
	case "debug":
		return int(log.LevelDebug), nil
	case "info":
		return int(log.LevelInfo), nil
	case "warn", "warning":
		return int(log.LevelWarn), nil
	case "error":
		return int(log.LevelError), nil
	default:
		return 0, fmt.Errorf("unknown log level: %s", level)
	}
}
