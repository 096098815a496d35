// Package debug writes log records to a file, for when stderr belongs to the
// TUI.
package debug

import (
	"fmt"
	"log/slog"
	"os"
	"time"
)

// File is a log file opened for one session.
type File struct {
	f *os.File
}

// Open truncates or creates the log file at path.
func Open(path string) (*File, error) {
	// Use O_TRUNC to clear the log file on each new run
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	fmt.Fprintf(f, "--- wifiap debug log %s ---\n", time.Now().Format(time.RFC3339))
	return &File{f: f}, nil
}

// Handler returns a text handler writing records at or above level.
func (l *File) Handler(level slog.Level) slog.Handler {
	return slog.NewTextHandler(l.f, &slog.HandlerOptions{Level: level})
}

// Close ends the session and closes the file.
func (l *File) Close() error {
	fmt.Fprintln(l.f, "--- session ended ---")
	return l.f.Close()
}
