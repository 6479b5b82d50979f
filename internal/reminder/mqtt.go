package reminder

import (
	"context"
	"fmt"
	"time"
)

const ReminderTopic = "reminder"

// JSONPublisher is the subset of the MQTT publisher the notifier needs.
type JSONPublisher interface {
	PublishJSON(suffix string, v any, retained bool) error
	Connected() bool
}

// MQTTNotifier forwards reminders to a broker so any subscribed device
// (a phone automation, a home hub) can surface them.
type MQTTNotifier struct {
	pub JSONPublisher
	now func() time.Time
}

type reminderMessage struct {
	Title  string    `json:"title"`
	Body   string    `json:"body"`
	SentAt time.Time `json:"sent_at"`
}

func NewMQTTNotifier(pub JSONPublisher) *MQTTNotifier {
	return &MQTTNotifier{pub: pub, now: time.Now}
}

func (m *MQTTNotifier) Available(context.Context) error {
	if m.pub == nil {
		return fmt.Errorf("%w: MQTT is not configured", ErrUnsupported)
	}
	if !m.pub.Connected() {
		return fmt.Errorf("%w: MQTT broker is not connected", ErrUnsupported)
	}
	return nil
}

func (m *MQTTNotifier) Notify(ctx context.Context, n Notification) error {
	if err := m.Available(ctx); err != nil {
		return err
	}
	msg := reminderMessage{Title: n.Title, Body: n.Body, SentAt: m.now().UTC()}
	if err := m.pub.PublishJSON(ReminderTopic, msg, false); err != nil {
		return fmt.Errorf("publish reminder: %w", err)
	}
	return nil
}
