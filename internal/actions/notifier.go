package actions

import (
	"context"
	"log/slog"

	"github.com/vidfriends/vidfeed/internal/logging"
)

// Level classifies a Notice.
type Level int

const (
	LevelInfo Level = iota
	LevelError
)

func (l Level) String() string {
	if l == LevelError {
		return "error"
	}
	return "info"
}

// Notice is the user-visible outcome of an action.
type Notice struct {
	Action  string
	Level   Level
	Message string
	Err     error
}

// Notifier receives the outcome of every dispatched action.
type Notifier interface {
	Notify(ctx context.Context, notice Notice)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(ctx context.Context, notice Notice)

func (f NotifierFunc) Notify(ctx context.Context, notice Notice) {
	f(ctx, notice)
}

// LogNotifier writes notices to the context logger.
type LogNotifier struct{}

func (LogNotifier) Notify(ctx context.Context, notice Notice) {
	logger := logging.FromContext(ctx)
	attrs := []any{slog.String("action", notice.Action)}
	if notice.Err != nil {
		attrs = append(attrs, slog.String("error", notice.Err.Error()))
		logger.Error(notice.Message, attrs...)
		return
	}
	logger.Info(notice.Message, attrs...)
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, Notice) {}
