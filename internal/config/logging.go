package config

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/phsym/zeroslog"
	"github.com/rs/zerolog"
	slogmulti "github.com/samber/slog-multi"
)

// SetupLogger logs to stderr through a zerolog console writer and, when
// logFile is set, as JSON to that file as well. The returned function closes
// the file.
func SetupLogger(logFile string, level slog.Level) (*slog.Logger, func() error) {
	console := consoleHandler(os.Stderr, level)
	if logFile == "" {
		return slog.New(console), func() error { return nil }
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		logger := slog.New(console)
		logger.Error("failed to open log file, using stderr only", slog.String("error", err.Error()), slog.String("file", logFile))
		return logger, func() error { return nil }
	}

	logger := slog.New(slogmulti.Fanout(console, slog.NewJSONHandler(file, &slog.HandlerOptions{Level: level})))
	return logger, file.Close
}

// SetupLoggerWithWriters is SetupLogger with explicit writers.
func SetupLoggerWithWriters(stderr, file io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slogmulti.Fanout(
		consoleHandler(stderr, level),
		slog.NewJSONHandler(file, &slog.HandlerOptions{Level: level}),
	))
}

func consoleHandler(w io.Writer, level slog.Level) slog.Handler {
	output := zerolog.ConsoleWriter{Out: w, TimeFormat: time.Stamp, NoColor: true}
	log := zerolog.New(output).With().Timestamp().Logger()
	return zeroslog.NewHandler(log, &zeroslog.HandlerOptions{Level: level})
}
