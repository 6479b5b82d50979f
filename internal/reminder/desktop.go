package reminder

import (
	"context"
	"fmt"

	"github.com/godbus/dbus/v5"
)

const (
	notificationsService = "org.freedesktop.Notifications"
	notificationsPath    = "/org/freedesktop/Notifications"
)

// DesktopNotifier sends notifications through the freedesktop
// notification service on the user's session bus.
type DesktopNotifier struct {
	AppName string
	Icon    string
	// Timeout is the expiry in milliseconds; -1 lets the server decide.
	Timeout int32
}

func NewDesktopNotifier() *DesktopNotifier {
	return &DesktopNotifier{AppName: "NicLog", Icon: "appointment-soon", Timeout: -1}
}

func (d *DesktopNotifier) connect() (*dbus.Conn, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("%w: connect to session bus: %v", ErrUnsupported, err)
	}
	return conn, nil
}

func (d *DesktopNotifier) Available(ctx context.Context) error {
	conn, err := d.connect()
	if err != nil {
		return err
	}
	defer conn.Close()

	var hasOwner bool
	call := conn.BusObject().CallWithContext(ctx, "org.freedesktop.DBus.NameHasOwner", 0, notificationsService)
	if call.Err != nil {
		return fmt.Errorf("query notification service: %w", call.Err)
	}
	if err := call.Store(&hasOwner); err != nil {
		return fmt.Errorf("decode notification service reply: %w", err)
	}
	if !hasOwner {
		return fmt.Errorf("%w: no notification service on the session bus", ErrPermissionDenied)
	}
	return nil
}

func (d *DesktopNotifier) Notify(ctx context.Context, n Notification) error {
	conn, err := d.connect()
	if err != nil {
		return err
	}
	defer conn.Close()

	obj := conn.Object(notificationsService, notificationsPath)
	call := obj.CallWithContext(ctx, notificationsService+".Notify", 0,
		d.AppName,
		uint32(0),
		d.Icon,
		n.Title,
		n.Body,
		[]string{},
		map[string]dbus.Variant{
			"urgency": dbus.MakeVariant(byte(1)),
		},
		d.Timeout,
	)
	if call.Err != nil {
		return fmt.Errorf("send notification: %w", call.Err)
	}
	return nil
}
