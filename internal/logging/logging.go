// Package logging sets up the run logger: text records to stderr and to a dated,
// append-only file per command under the log directory.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"
)

// DefaultDir is used when no log directory is configured
const DefaultDir = "./logs"

// ParseLevel maps debug, info, warn and error to a slog level
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q (use debug, info, warn or error)", level)
	}
}

// FileName returns the log file name for a command run on day
func FileName(command string, day time.Time) string {
	command = strings.ReplaceAll(strings.TrimSpace(command), " ", "-")
	if command == "" {
		command = "orgops"
	}
	return fmt.Sprintf("%s-%s.log", command, day.Format("20060102"))
}

// Setup creates dir when needed and returns a logger writing to stderr and to
// <dir>/<command>-<YYYYMMDD>.log. The returned closer closes the file.
func Setup(fs afero.Fs, dir, command string, level slog.Level, stderr io.Writer) (*slog.Logger, func() error, error) {
	if dir == "" {
		dir = DefaultDir
	}

	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("creating log directory %s: %w", dir, err)
	}

	path := filepath.Join(dir, FileName(command, time.Now()))
	f, err := fs.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file %s: %w", path, err)
	}

	out := io.Writer(f)
	if stderr != nil {
		out = io.MultiWriter(stderr, f)
	}

	logger := slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level}))
	return logger.With("command", command), f.Close, nil
}
