package errutil

import (
	"errors"
	"io/fs"
	"log/slog"
)

// LogMsg logs the error with a custom message if it is not nil.
func LogMsg(err error, msg string, args ...any) {
	if err != nil {
		allArgs := append([]any{"error", err}, args...)
		slog.Warn(msg, allArgs...)
	}
}

// LogMissing is like LogMsg but stays quiet for fs.ErrNotExist, which
// best-effort callers treat as success.
func LogMissing(err error, msg string, args ...any) {
	if errors.Is(err, fs.ErrNotExist) {
		return
	}
	LogMsg(err, msg, args...)
}

// ReportError logs an unexpected error.
// It funnels errors through a centralized reporting mechanism (currently slog).
func ReportError(err error, msg string, args ...any) {
	if err != nil {
		allArgs := append([]any{"error", err}, args...)
		slog.Error(msg, allArgs...)
	}
}
