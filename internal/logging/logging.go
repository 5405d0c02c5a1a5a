// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logging configures the process-wide slog logger.
//
// Logs go to a size-rotated file so the interactive front ends keep stdout
// and stderr for the conversation itself.
//
// # Usage
//
//	logger, err := logging.Init(logging.Options{Level: "debug", File: path})
//	if err != nil {
//	    // logger still works; it discards output
//	}
//	slog.Info("chat created", "folder", folder)
package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	defaultLogFile = "rigchat.log"
	maxLogSizeMB   = 5
	maxLogBackups  = 5
	maxLogAgeDays  = 14
)

// Options selects level, format and destination of the log.
type Options struct {
	Level  string // debug, info, warn, error
	Format string // json (default) or text
	File   string // empty = ~/.rigchat/logs/rigchat.log
}

// Init builds the logger, installs it as slog's default and returns it.
// When the log directory cannot be created the returned logger discards
// everything and the error is reported to the caller.
func Init(opts Options) (*slog.Logger, error) {
	handlerOptions := &slog.HandlerOptions{Level: ParseLevel(opts.Level)}

	logPath := strings.TrimSpace(opts.File)
	if logPath == "" {
		logPath = DefaultLogPath()
	}
	if err := os.MkdirAll(filepath.Dir(logPath), 0700); err != nil {
		logger := slog.New(newHandler(opts.Format, io.Discard, handlerOptions))
		slog.SetDefault(logger)
		return logger, err
	}

	writer := &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    maxLogSizeMB,
		MaxBackups: maxLogBackups,
		MaxAge:     maxLogAgeDays,
		Compress:   true,
	}

	logger := slog.New(newHandler(opts.Format, writer, handlerOptions))
	slog.SetDefault(logger)
	return logger, nil
}

// New builds a logger writing to w without touching the slog default.
// Tests use it to capture output.
func New(w io.Writer, level, format string) *slog.Logger {
	return slog.New(newHandler(format, w, &slog.HandlerOptions{Level: ParseLevel(level)}))
}

// DefaultLogPath returns ~/.rigchat/logs/rigchat.log, or a relative path
// when the home directory is unknown.
func DefaultLogPath() string {
	if home := os.Getenv("RIGCHAT_HOME"); strings.TrimSpace(home) != "" {
		return filepath.Join(home, "logs", defaultLogFile)
	}
	homeDir, err := os.UserHomeDir()
	if err != nil || strings.TrimSpace(homeDir) == "" {
		return filepath.Join(".rigchat", "logs", defaultLogFile)
	}
	return filepath.Join(homeDir, ".rigchat", "logs", defaultLogFile)
}

// ParseLevel maps a level name to a slog.Level; unknown names are info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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

func newHandler(format string, out io.Writer, opts *slog.HandlerOptions) slog.Handler {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "text":
		return slog.NewTextHandler(out, opts)
	default:
		return slog.NewJSONHandler(out, opts)
	}
}
