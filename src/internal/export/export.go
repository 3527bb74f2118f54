// FILE: src/internal/export/export.go
// Export surfaces: plain-text file dump, clipboard text, bug report URL.
package export

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"logdeck/src/internal/core"
)

// Info describes the exporting host, rendered into the file header and
// the bug report body.
type Info struct {
	// AppVersion identifies the build producing the export.
	AppVersion string

	// LogPath is the originating log file path, empty when logs were
	// never written to disk.
	LogPath string
}

// WriteFile dumps the full snapshot to path as plain text: a header
// block, then one line per record. The write goes through a temp file
// and rename so a failure leaves no partial export behind.
func WriteFile(path string, snapshot []core.LogRecord, info Info) error {
	if path == "" {
		return fmt.Errorf("export path is empty")
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("# Log export %s\n", time.Now().Format(core.TimestampLayout)))
	b.WriteString(fmt.Sprintf("# Platform: %s/%s\n", runtime.GOOS, runtime.GOARCH))
	if info.AppVersion != "" {
		b.WriteString(fmt.Sprintf("# Version: %s\n", info.AppVersion))
	}
	if info.LogPath != "" {
		b.WriteString(fmt.Sprintf("# Log file: %s\n", info.LogPath))
	}
	b.WriteString(fmt.Sprintf("# Records: %d\n\n", len(snapshot)))

	for _, rec := range snapshot {
		b.WriteString(fmt.Sprintf("[%s %s %s %s] %s\n",
			rec.Timestamp, rec.Level, rec.Source, rec.Target, rec.Message))
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".export-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create export temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.WriteString(b.String()); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write export: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close export temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to finalize export: %w", err)
	}
	return nil
}

// ClipboardText joins the currently filtered records into the text the
// host shell places on the clipboard. The caller owns the clipboard
// itself.
func ClipboardText(filtered []core.LogRecord) string {
	if len(filtered) == 0 {
		return ""
	}
	var b strings.Builder
	for _, rec := range filtered {
		b.WriteString(fmt.Sprintf("[%s %s %s] %s\n",
			rec.Timestamp, rec.Level, rec.Target, rec.Message))
	}
	return b.String()
}

// maxReportRecords caps how many error records ride along in the URL.
const maxReportRecords = 10

// BugReportURL builds an issue-tracker URL pre-filled with environment
// info and the most recent ERROR-level records from the snapshot.
func BugReportURL(baseURL string, snapshot []core.LogRecord, info Info) (string, error) {
	if baseURL == "" {
		return "", fmt.Errorf("bug report base URL is empty")
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid bug report base URL: %w", err)
	}

	errors := lastErrors(snapshot, maxReportRecords)

	var body strings.Builder
	body.WriteString(fmt.Sprintf("Platform: %s/%s\n", runtime.GOOS, runtime.GOARCH))
	if info.AppVersion != "" {
		body.WriteString(fmt.Sprintf("Version: %s\n", info.AppVersion))
	}
	body.WriteString("\n")
	if len(errors) == 0 {
		body.WriteString("No recent errors captured.\n")
	} else {
		body.WriteString("Recent errors:\n")
		for _, rec := range errors {
			body.WriteString(fmt.Sprintf("[%s %s %s] %s\n",
				rec.Timestamp, rec.Source, rec.Target, rec.Message))
		}
	}

	q := u.Query()
	q.Set("body", body.String())
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// lastErrors returns the trailing n ERROR records, oldest first.
func lastErrors(snapshot []core.LogRecord, n int) []core.LogRecord {
	var out []core.LogRecord
	for i := len(snapshot) - 1; i >= 0 && len(out) < n; i-- {
		if snapshot[i].Level == core.LevelError {
			out = append(out, snapshot[i])
		}
	}
	// Collected newest-first, present oldest-first.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}
