// Package logging wires the bracketed slog output used by the command line
// programs and hands it to the decoder library.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/impress-exp/decoder_go/pkg/config"
)

// Logger sends info messages to a human readable stream and errors to a JSON
// stream. It satisfies decoder.Logger.
type Logger struct {
	InfoLog  *slog.Logger
	ErrorLog *slog.Logger
}

func (l Logger) Info(message string, module string) {
	l.InfoLog.Info(message, "module", module)
}

func (l Logger) Error(message string) {
	l.ErrorLog.Error(message)
}

// With tags every message of the returned Logger with an extra bracketed
// value, such as a run id.
func (l Logger) With(key string, value string) Logger {
	return Logger{InfoLog: l.InfoLog.With(key, value), ErrorLog: l.ErrorLog.With(key, value)}
}

func New(info io.Writer, errs io.Writer) Logger {
	opts := &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}
	return Logger{
		InfoLog:  slog.New(NewHandler(info, opts)),
		ErrorLog: slog.New(slog.NewJSONHandler(errs, opts)),
	}
}

func Default() Logger {
	return New(os.Stdout, os.Stderr)
}

// Setup builds the program Logger. With a log directory configured, both
// streams are also copied to a size rotated file named after the program.
func Setup(program string, cfg config.LogConfig) (Logger, io.Closer, error) {
	if cfg.Directory == "" {
		return Default(), io.NopCloser(nil), nil
	}
	if err := os.MkdirAll(cfg.Directory, 0o755); err != nil {
		return Logger{}, nil, fmt.Errorf("create log dir: %w", err)
	}
	rotator := &lumberjack.Logger{
		Filename:   filepath.Join(cfg.Directory, program+".log"),
		MaxSize:    cfg.MaxSizeMB,
		MaxAge:     cfg.MaxAgeDays,
		MaxBackups: cfg.MaxBackups,
		Compress:   cfg.Compress,
	}
	return New(io.MultiWriter(os.Stdout, rotator), io.MultiWriter(os.Stderr, rotator)), rotator, nil
}
