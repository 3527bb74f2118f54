// FILE: src/internal/render/painter.go
package render

import (
	"fmt"

	"logdeck/src/internal/core"

	"github.com/charmbracelet/lipgloss"
)

var (
	styleTrace  = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Faint(true)
	styleDebug  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	styleInfo   = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	styleWarn   = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	styleError  = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	styleTarget = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Faint(true)
	styleStamp  = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
)

// Painter turns the visible slice of a filtered sequence into styled
// terminal rows. It only ever touches the rows inside the window.
type Painter struct {
	// MaxWidth truncates rows when positive.
	MaxWidth int
}

// Rows renders exactly the records covered by the window, one styled line
// per record. records is the full filtered sequence the window indexes.
func (p *Painter) Rows(records []core.LogRecord, w Window) []string {
	if w.Start < 0 || w.End > len(records) || w.Start > w.End {
		return nil
	}

	out := make([]string, 0, w.Len())
	for i := w.Start; i < w.End; i++ {
		out = append(out, p.Row(records[i]))
	}
	return out
}

// Row renders a single record.
func (p *Painter) Row(rec core.LogRecord) string {
	line := fmt.Sprintf("%s %s %s %s",
		styleStamp.Render(rec.Timestamp),
		levelTag(rec.Level),
		styleTarget.Render(rec.Target),
		rec.Message)

	if p.MaxWidth > 0 && lipgloss.Width(line) > p.MaxWidth {
		line = lipgloss.NewStyle().MaxWidth(p.MaxWidth).Render(line)
	}
	return line
}

func levelTag(level core.Level) string {
	padded := fmt.Sprintf("%-5s", string(level))
	switch level {
	case core.LevelTrace:
		return styleTrace.Render(padded)
	case core.LevelDebug:
		return styleDebug.Render(padded)
	case core.LevelWarn:
		return styleWarn.Render(padded)
	case core.LevelError:
		return styleError.Render(padded)
	default:
		return styleInfo.Render(padded)
	}
}
