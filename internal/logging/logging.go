package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/schemacanvas/schemacanvas/internal/config"
)

const filePrefix = "schemacanvas-"

// Setup initializes the logger with file and stdout output and prunes log
// files older than retentionDays. A retention of zero keeps everything.
func Setup(level, directory string, retentionDays int) (*slog.Logger, error) {
	if directory == "" {
		directory = config.ExpandHome(config.DefaultDataDir + "/logs/")
	} else {
		directory = config.ExpandHome(directory)
	}

	if err := os.MkdirAll(directory, 0o755); err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}

	now := time.Now()
	filename := fmt.Sprintf("%s%s.log", filePrefix, now.Format("2006-01-02"))
	logPath := filepath.Join(directory, filename)

	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}

	logger := New(io.MultiWriter(os.Stdout, file), level)
	if retentionDays > 0 {
		if n, err := Prune(directory, now.AddDate(0, 0, -retentionDays)); err != nil {
			logger.Warn("pruning old logs", "error", err)
		} else if n > 0 {
			logger.Debug("pruned old logs", "count", n)
		}
	}
	return logger, nil
}

// New returns a text logger writing to w at the named level.
func New(w io.Writer, level string) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: ParseLevel(level),
	}))
}

// ParseLevel maps debug, warn and error to their slog levels; anything else is info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Prune removes daily log files dated before cutoff and returns how many were removed.
func Prune(directory string, cutoff time.Time) (int, error) {
	entries, err := os.ReadDir(directory)
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, ".log") {
			continue
		}
		day, err := time.ParseInLocation("2006-01-02", strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), ".log"), cutoff.Location())
		if err != nil {
			continue
		}
		// a daily file covers [day, day+1)
		if !day.AddDate(0, 0, 1).After(cutoff) {
			if err := os.Remove(filepath.Join(directory, name)); err != nil {
				return removed, err
			}
			removed++
		}
	}
	return removed, nil
}
