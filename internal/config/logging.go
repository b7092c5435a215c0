package config

import (
	"io"
	"log/slog"
	"os"

	slogmulti "github.com/samber/slog-multi"
)

// SetupLogger builds the process logger: JSON to out, plus a JSON copy to
// logFile when one is configured. The returned cleanup closes the file.
func SetupLogger(out io.Writer, logFile string, level slog.Level) (*slog.Logger, func() error) {
	stdoutHandler := slog.NewJSONHandler(out, &slog.HandlerOptions{Level: level})
	if logFile == "" {
		return slog.New(stdoutHandler), func() error { return nil }
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		logger := slog.New(stdoutHandler)
		logger.Error("failed to open log file, using stdout only", "error", err, "file", logFile)
		return logger, func() error { return nil }
	}

	return NewFanoutLogger(out, file, level), file.Close
}

func NewFanoutLogger(primary, secondary io.Writer, level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	return slog.New(slogmulti.Fanout(
		slog.NewJSONHandler(primary, opts),
		slog.NewJSONHandler(secondary, opts),
	))
}
