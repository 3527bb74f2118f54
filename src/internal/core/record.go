// FILE: src/internal/core/record.go
package core

import (
	"strings"
	"time"
)

// Fixed-width layout so timestamps sort correctly as plain strings.
const TimestampLayout = "2006-01-02 15:04:05.000"

// Source tags which producer generated a record.
type Source string

const (
	SourceLocal  Source = "local"
	SourceRemote Source = "remote"
)

// Level is a normalized log severity.
type Level string

const (
	LevelError Level = "ERROR"
	LevelWarn  Level = "WARN"
	LevelInfo  Level = "INFO"
	LevelDebug Level = "DEBUG"
	LevelTrace Level = "TRACE"

	// LevelNone means "no level restriction" in query criteria.
	// It is never assigned to a record.
	LevelNone Level = ""
)

// ParseLevel normalizes a severity string on ingestion.
// Unknown or empty values default to INFO.
func ParseLevel(s string) Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "ERROR", "ERR", "FATAL":
		return LevelError
	case "WARN", "WARNING":
		return LevelWarn
	case "INFO":
		return LevelInfo
	case "DEBUG":
		return LevelDebug
	case "TRACE":
		return LevelTrace
	default:
		return LevelInfo
	}
}

// LogRecord represents a single normalized log line.
// Immutable once created; Timestamp is assigned at capture time,
// not at buffer insertion, so ordering reflects emission order.
type LogRecord struct {
	Timestamp string `json:"timestamp"`
	Level     Level  `json:"level"`
	Target    string `json:"target"`
	Message   string `json:"message"`
	Source    Source `json:"source"`
}

// Timestamp formats a capture time in the sortable layout.
func Timestamp(t time.Time) string {
	return t.Format(TimestampLayout)
}

// Now returns the current time in the sortable layout.
func Now() string {
	return Timestamp(time.Now())
}
