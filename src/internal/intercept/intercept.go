// FILE: src/internal/intercept/intercept.go
package intercept

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"logdeck/src/internal/console"
	"logdeck/src/internal/core"

	"github.com/lixenwraith/log"
)

// Interceptor is the local logger sink. Each severity call forwards to the
// wrapped application logger unchanged and publishes a source=local record
// into the console hub. Install it before any other component logs;
// calls made earlier are not captured.
type Interceptor struct {
	logger  *log.Logger
	console *console.Console
	target  string

	// Statistics
	totalCaptured atomic.Uint64
	fallbackArgs  atomic.Uint64
}

var (
	installMu sync.Mutex
	installed *Interceptor
)

// Install wires the interceptor between the application logger and the
// console hub. Installation happens exactly once per process; repeat calls
// return the existing handle and change nothing.
func Install(logger *log.Logger, c *console.Console) *Interceptor {
	installMu.Lock()
	defer installMu.Unlock()

	if installed != nil {
		installed.logger.Warn("msg", "Interceptor already installed, reusing handle",
			"component", "intercept")
		return installed
	}

	installed = &Interceptor{
		logger:  logger,
		console: c,
		target:  core.DefaultTarget,
	}
	logger.Info("msg", "Local log interceptor installed",
		"component", "intercept",
		"target", core.DefaultTarget)
	return installed
}

// Installed reports whether Install has run.
func Installed() bool {
	installMu.Lock()
	defer installMu.Unlock()
	return installed != nil
}

// reset clears the singleton. Tests only.
func reset() {
	installMu.Lock()
	installed = nil
	installMu.Unlock()
}

// Scoped returns a handle that tags captured records with the given target
// instead of the default. It shares the single installation.
func (i *Interceptor) Scoped(target string) *Interceptor {
	if target == "" {
		return i
	}
	return &Interceptor{
		logger:  i.logger,
		console: i.console,
		target:  target,
	}
}

// Info logs at info severity.
func (i *Interceptor) Info(args ...any) {
	msg := i.join(args)
	i.logger.Info("msg", msg, "component", i.target)
	i.capture(core.LevelInfo, msg)
}

// Log is an alias for Info, matching the generic log call.
func (i *Interceptor) Log(args ...any) {
	i.Info(args...)
}

// Warn logs at warn severity.
func (i *Interceptor) Warn(args ...any) {
	msg := i.join(args)
	i.logger.Warn("msg", msg, "component", i.target)
	i.capture(core.LevelWarn, msg)
}

// Error logs at error severity.
func (i *Interceptor) Error(args ...any) {
	msg := i.join(args)
	i.logger.Error("msg", msg, "component", i.target)
	i.capture(core.LevelError, msg)
}

// Debug logs at debug severity.
func (i *Interceptor) Debug(args ...any) {
	msg := i.join(args)
	i.logger.Debug("msg", msg, "component", i.target)
	i.capture(core.LevelDebug, msg)
}

func (i *Interceptor) capture(level core.Level, msg string) {
	i.totalCaptured.Add(1)
	i.console.Publish(core.LogRecord{
		Timestamp: core.Timestamp(time.Now()),
		Level:     level,
		Target:    i.target,
		Message:   msg,
		Source:    core.SourceLocal,
	})
}

// join builds the record message from all call arguments. Non-string
// arguments are serialized to structured text; serialization failure falls
// back to raw string coercion so the call never drops or panics.
func (i *Interceptor) join(args []any) string {
	parts := make([]string, 0, len(args))
	for _, a := range args {
		parts = append(parts, i.formatArg(a))
	}
	return strings.Join(parts, " ")
}

func (i *Interceptor) formatArg(a any) (out string) {
	defer func() {
		if r := recover(); r != nil {
			i.fallbackArgs.Add(1)
			out = fmt.Sprintf("%v", a)
		}
	}()

	switch v := a.(type) {
	case string:
		return v
	case error:
		return v.Error()
	case fmt.Stringer:
		return v.String()
	}

	b, err := json.Marshal(a)
	if err != nil {
		i.fallbackArgs.Add(1)
		return fmt.Sprint(a)
	}
	return string(b)
}

// GetStats returns interceptor statistics.
func (i *Interceptor) GetStats() map[string]any {
	return map[string]any{
		"target":         i.target,
		"total_captured": i.totalCaptured.Load(),
		"fallback_args":  i.fallbackArgs.Load(),
	}
}
