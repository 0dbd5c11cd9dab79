package commands

import (
	"io"
	"log/slog"

	slogmulti "github.com/samber/slog-multi"
	"gopkg.in/natefinch/lumberjack.v2"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// newLogger logs text to stderr at warn level (debug with debug set) and,
// with logFile set, everything as JSON to a rotated file.
func newLogger(stderr io.Writer, debug bool, logFile string) (*slog.Logger, io.Closer) {
	level := slog.LevelWarn
	if debug {
		level = slog.LevelDebug
	}
	console := slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level})
	if logFile == "" {
		return slog.New(console), nopCloser{}
	}

	file := &lumberjack.Logger{
		Filename:   logFile,
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
	}
	jsonHandler := slog.NewJSONHandler(file, &slog.HandlerOptions{Level: slog.LevelDebug})
	return slog.New(slogmulti.Fanout(console, jsonHandler)), file
}
