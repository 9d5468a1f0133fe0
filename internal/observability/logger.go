// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package observability provides structured logging for loom.
//
// Logs are written as JSON to ~/.loom/loom.log rather than the terminal,
// which the TUI owns. Init must run before the first log call; until
// then the package-level helpers are no-ops.
package observability

import (
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	log   *logrus.Logger
	logMu sync.RWMutex
)

// Init configures the logger to append JSON entries to the file at
// path, creating parent directories as needed. level is one of "debug",
// "info", "warn", "error".
func Init(path, level string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return err
	}

	l := logrus.New()
	l.SetOutput(file)
	l.SetFormatter(&logrus.JSONFormatter{})

	switch level {
	case "debug":
		l.SetLevel(logrus.DebugLevel)
	case "info":
		l.SetLevel(logrus.InfoLevel)
	case "warn":
		l.SetLevel(logrus.WarnLevel)
	case "error":
		l.SetLevel(logrus.ErrorLevel)
	default:
		l.SetLevel(logrus.InfoLevel)
	}

	logMu.Lock()
	log = l
	logMu.Unlock()
	return nil
}

// InitWriter configures the logger with an arbitrary writer. Used in
// tests.
func InitWriter(w io.Writer, level string) {
	l := logrus.New()
	l.SetOutput(w)
	l.SetFormatter(&logrus.JSONFormatter{})
	if level == "debug" {
		l.SetLevel(logrus.DebugLevel)
	}

	logMu.Lock()
	log = l
	logMu.Unlock()
}

// Logger returns the configured logger, or nil before Init.
func Logger() *logrus.Logger {
	logMu.RLock()
	defer logMu.RUnlock()
	return log
}

// WithFields returns an entry carrying structured fields, or nil before
// Init (callers use the package helpers in that case).
func WithFields(fields logrus.Fields) *logrus.Entry {
	logMu.RLock()
	defer logMu.RUnlock()
	if log == nil {
		return nil
	}
	return log.WithFields(fields)
}

func Debugf(format string, args ...interface{}) {
	logMu.RLock()
	defer logMu.RUnlock()
	if log != nil {
		log.Debugf(format, args...)
	}
}

func Infof(format string, args ...interface{}) {
	logMu.RLock()
	defer logMu.RUnlock()
	if log != nil {
		log.Infof(format, args...)
	}
}

func Warnf(format string, args ...interface{}) {
	logMu.RLock()
	defer logMu.RUnlock()
	if log != nil {
		log.Warnf(format, args...)
	}
}

func Errorf(format string, args ...interface{}) {
	logMu.RLock()
	defer logMu.RUnlock()
	if log != nil {
		log.Errorf(format, args...)
	}
}
