package tracker

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/saadjs/niclog/internal/currency"
	"github.com/saadjs/niclog/internal/model"
	"github.com/saadjs/niclog/internal/reminder"
	"github.com/saadjs/niclog/internal/settings"
)

const (
	MsgRemindersSaved    = "Saved successfully"
	MsgPermissionNeeded  = "Notification permissions are required."
	MsgRemindersDisabled = "Reminders disabled"
)

// ReminderStatus is the outcome of syncing reminders with the scheduler.
type ReminderStatus struct {
	Enabled   bool
	Scheduled bool
	IDs       []string
	Times     []string
	Message   string
	Err       error
}

// update applies fn to a copy of the settings, stores it and persists it.
func (t *Tracker) update(ctx context.Context, fn func(model.Settings) model.Settings) model.Settings {
	t.mu.Lock()
	next := settings.Normalize(fn(t.settings.Clone()))
	t.settings = next
	loading := t.loading
	t.mu.Unlock()

	if !loading {
		t.persist(ctx, next)
	}
	return next.Clone()
}

func (t *Tracker) persist(ctx context.Context, s model.Settings) {
	if t.settingsStore == nil {
		return
	}
	if err := t.settingsStore.Save(ctx, s); err != nil {
		t.logger.ErrorContext(ctx, "failed to save settings", "error", err)
	}
}

// SetDailyLimit sets the limit in mg. Nil or a non-positive value clears it.
func (t *Tracker) SetDailyLimit(ctx context.Context, limit *float64) model.Settings {
	return t.update(ctx, func(s model.Settings) model.Settings {
		if limit == nil || *limit <= 0 {
			s.DailyLimitMg = nil
			return s
		}
		v := *limit
		s.DailyLimitMg = &v
		return s
	})
}

func (t *Tracker) SetBaseCurrency(ctx context.Context, code string) (model.Settings, error) {
	code = normalizeCode(code)
	if !currency.IsSupported(code) {
		return t.Settings(), fmt.Errorf("unsupported currency %q (supported: %s)", code, strings.Join(currency.Supported, ", "))
	}
	return t.update(ctx, func(s model.Settings) model.Settings {
		s.BaseCurrency = code
		return s
	}), nil
}

func (t *Tracker) SetCurrencyRates(ctx context.Context, snap *model.RateSnapshot) model.Settings {
	return t.update(ctx, func(s model.Settings) model.Settings {
		s.CurrencyRates = snap.Clone()
		return s
	})
}

func (t *Tracker) SetDailyReminder(ctx context.Context, enabled bool) ReminderStatus {
	t.update(ctx, func(s model.Settings) model.Settings {
		s.DailyReminderEnabled = enabled
		return s
	})
	return t.SyncReminders(ctx)
}

func (t *Tracker) SetReminderTimes(ctx context.Context, times []string) ReminderStatus {
	t.update(ctx, func(s model.Settings) model.Settings {
		return settings.WithReminderTimes(s, times)
	})
	return t.SyncReminders(ctx)
}

func (t *Tracker) SetReminderCount(ctx context.Context, count int) ReminderStatus {
	t.update(ctx, func(s model.Settings) model.Settings {
		return settings.WithReminderTimes(s, settings.ResizeReminderTimes(s.ReminderTimes, count))
	})
	return t.SyncReminders(ctx)
}

func (t *Tracker) SetReminderHour(ctx context.Context, hour int) ReminderStatus {
	t.update(ctx, func(s model.Settings) model.Settings {
		return settings.WithReminderHour(s, hour)
	})
	return t.SyncReminders(ctx)
}

// ReloadSettings replaces the in-memory settings with the stored record
// and reports whether reminder configuration changed.
func (t *Tracker) ReloadSettings(ctx context.Context) (bool, error) {
	if t.settingsStore == nil {
		return false, nil
	}
	p, err := t.settingsStore.Load(ctx)
	if err != nil {
		t.logger.WarnContext(ctx, "failed to reload settings", "error", err)
		return false, fmt.Errorf("reload settings: %w", err)
	}
	next := settings.Merge(p)

	t.mu.Lock()
	prev := t.settings
	t.settings = next
	t.mu.Unlock()

	changed := prev.DailyReminderEnabled != next.DailyReminderEnabled ||
		!reflect.DeepEqual(prev.ReminderTimes, next.ReminderTimes)
	return changed, nil
}

// SyncReminders schedules the configured reminder times when reminders
// are enabled and cancels them otherwise.
func (t *Tracker) SyncReminders(ctx context.Context) ReminderStatus {
	s := t.Settings()
	status := ReminderStatus{Enabled: s.DailyReminderEnabled}

	if !s.DailyReminderEnabled {
		if t.scheduler != nil {
			if err := t.scheduler.CancelAll(ctx); err != nil {
				t.logger.WarnContext(ctx, "failed to cancel reminders", "error", err)
				status.Err = err
			}
		}
		status.Message = MsgRemindersDisabled
		return status
	}

	times := s.ReminderTimes
	if len(times) == 0 {
		times = []string{settings.DefaultReminderTime}
	}
	status.Times = append([]string(nil), times...)

	if t.scheduler == nil {
		status.Err = reminder.ErrUnsupported
		status.Message = MsgPermissionNeeded
		return status
	}
	ids, err := t.scheduler.ScheduleDailyReminders(ctx, times)
	if ids == nil {
		if err == nil {
			err = reminder.ErrPermissionDenied
		}
		if !errors.Is(err, reminder.ErrPermissionDenied) && !errors.Is(err, reminder.ErrUnsupported) {
			t.logger.WarnContext(ctx, "failed to schedule reminders", "error", err)
		}
		status.Err = err
		status.Message = MsgPermissionNeeded
		return status
	}
	status.Scheduled = true
	status.IDs = ids
	status.Message = MsgRemindersSaved
	return status
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
