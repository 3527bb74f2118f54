// FILE: src/internal/query/query.go
package query

import (
	"regexp"
	"strings"

	"logdeck/src/internal/core"
)

// SourceFilter restricts records to one producer, or none.
type SourceFilter string

const (
	SourceAll    SourceFilter = "all"
	SourceLocal  SourceFilter = "local"
	SourceRemote SourceFilter = "remote"
)

// Criteria composes a source filter, a level filter, and a free-text
// filter by logical AND. Zero values mean "no restriction".
type Criteria struct {
	// Source is one of all/local/remote; empty equals all.
	Source SourceFilter

	// Level keeps only records at exactly this level; LevelNone keeps all.
	Level core.Level

	// Text matches case-insensitively as a substring of Message or Target.
	Text string

	// Regex treats Text as a regular expression instead of a substring.
	// An invalid pattern falls back to substring matching.
	Regex bool
}

// Filter applies the criteria to a buffer snapshot. Pure function: the
// input is never mutated, output preserves input order (stable), and
// identical inputs yield identical results.
func Filter(snapshot []core.LogRecord, c Criteria) []core.LogRecord {
	match := matcher(c)

	out := make([]core.LogRecord, 0, len(snapshot))
	for _, rec := range snapshot {
		if match(rec) {
			out = append(out, rec)
		}
	}
	return out
}

// matcher compiles the criteria once per Filter call.
func matcher(c Criteria) func(core.LogRecord) bool {
	var textMatch func(rec core.LogRecord) bool
	if c.Text != "" {
		if c.Regex {
			if re, err := regexp.Compile("(?i)" + c.Text); err == nil {
				textMatch = func(rec core.LogRecord) bool {
					return re.MatchString(rec.Message) || re.MatchString(rec.Target)
				}
			}
		}
		if textMatch == nil {
			needle := strings.ToLower(c.Text)
			textMatch = func(rec core.LogRecord) bool {
				return strings.Contains(strings.ToLower(rec.Message), needle) ||
					strings.Contains(strings.ToLower(rec.Target), needle)
			}
		}
	}

	return func(rec core.LogRecord) bool {
		switch c.Source {
		case SourceLocal:
			if rec.Source != core.SourceLocal {
				return false
			}
		case SourceRemote:
			if rec.Source != core.SourceRemote {
				return false
			}
		}

		if c.Level != core.LevelNone && rec.Level != c.Level {
			return false
		}

		if textMatch != nil && !textMatch(rec) {
			return false
		}
		return true
	}
}
