package reminder

import (
	"context"
	"errors"
)

var (
	ErrPermissionDenied = errors.New("notification permission denied")
	ErrUnsupported      = errors.New("notifications are not supported on this platform")
)

const (
	DefaultTitle = "NicLog reminder"
	DefaultBody  = "Remember to log your nicotine use today."
)

type Notification struct {
	Title string
	Body  string
}

func DefaultNotification() Notification {
	return Notification{Title: DefaultTitle, Body: DefaultBody}
}

// Notifier delivers a single notification. Available reports whether
// delivery is currently permitted and wraps ErrPermissionDenied or
// ErrUnsupported when it is not.
type Notifier interface {
	Available(ctx context.Context) error
	Notify(ctx context.Context, n Notification) error
}

type Unsupported struct{}

func (Unsupported) Available(context.Context) error            { return ErrUnsupported }
func (Unsupported) Notify(context.Context, Notification) error { return ErrUnsupported }
