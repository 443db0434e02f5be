package smpquery

import (
	"context"
	"log/slog"
)

// Level is the severity of a feedback message
type Level int

const (
	LevelInfo Level = iota
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	}
	return "info"
}

func (l Level) slogLevel() slog.Level {
	switch l {
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	}
	return slog.LevelInfo
}

// FeedbackFunc receives free text messages for the end user. err is set for
// messages that describe a failure.
type FeedbackFunc func(level Level, msg string, err error)

// LogFeedback returns a FeedbackFunc writing to logger.
func LogFeedback(logger *slog.Logger) FeedbackFunc {
	if logger == nil {
		logger = slog.Default()
	}
	return func(level Level, msg string, err error) {
		attrs := []any{}
		if err != nil {
			attrs = append(attrs, "error", err, "kind", Classify(err).String())
		}
		logger.Log(context.Background(), level.slogLevel(), msg, attrs...)
	}
}
