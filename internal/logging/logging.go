// Package logging builds the zap logger shared by every command: a console
// core on stderr and, when a file is named, a debug-level file core that is
// truncated at startup.
package logging

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Options struct {
	// Verbose lowers the console level from info to debug.
	Verbose bool
	// File is the log file path; empty disables file logging.
	File string
	// Console defaults to os.Stderr.
	Console io.Writer
}

// New returns the logger and a close function that syncs and closes the
// log file.
func New(opts Options) (*zap.Logger, func() error, error) {
	console := opts.Console
	if console == nil {
		console = os.Stderr
	}

	consoleLevel := zapcore.InfoLevel
	if opts.Verbose {
		consoleLevel = zapcore.DebugLevel
	}

	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05")
	encCfg.CallerKey = ""
	encCfg.StacktraceKey = ""

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(console), consoleLevel),
	}

	closeFn := func() error { return nil }
	if opts.File != "" {
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(f), zapcore.DebugLevel))
		closeFn = func() error {
			_ = f.Sync()
			return f.Close()
		}
	}

	logger := zap.New(zapcore.NewTee(cores...)).Named("circuitsim")
	return logger, func() error {
		_ = logger.Sync()
		return closeFn()
	}, nil
}
