package reminder

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/saadjs/niclog/internal/log"
	"github.com/saadjs/niclog/internal/settings"
)

const DefaultTickInterval = 30 * time.Second

// Job is one daily reminder at a local wall-clock time.
type Job struct {
	ID     string
	Time   string
	Hour   int
	Minute int
}

// Occurrence is the next firing of a job.
type Occurrence struct {
	JobID string
	Time  string
	At    time.Time
}

// Scheduler keeps a set of daily reminder jobs and delivers each one at
// most once per local day while Run is active.
type Scheduler struct {
	notifier     Notifier
	notification Notification
	logger       *log.Logger
	interval     time.Duration
	now          func() time.Time

	mu   sync.Mutex
	jobs []Job
	sent map[string]struct{}
}

type Option func(*Scheduler)

func WithTickInterval(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.interval = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
	}
}

func WithLogger(logger *log.Logger) Option {
	return func(s *Scheduler) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithNotification(n Notification) Option {
	return func(s *Scheduler) { s.notification = n }
}

func NewScheduler(notifier Notifier, opts ...Option) *Scheduler {
	if notifier == nil {
		notifier = Unsupported{}
	}
	s := &Scheduler{
		notifier:     notifier,
		notification: DefaultNotification(),
		logger:       log.Discard(),
		interval:     DefaultTickInterval,
		now:          time.Now,
		sent:         map[string]struct{}{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ScheduleDailyReminders replaces every job with one per time and returns
// the new job ids. It returns nil ids and the notifier's error when
// delivery is not permitted. An empty list schedules nothing.
func (s *Scheduler) ScheduleDailyReminders(ctx context.Context, times []string) ([]string, error) {
	if err := s.notifier.Available(ctx); err != nil {
		return nil, err
	}
	times = settings.SanitizeReminderTimes(times, nil)
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	previous := make(map[string]bool, len(s.jobs))
	for _, j := range s.jobs {
		previous[j.Time] = true
	}
	s.jobs = nil
	if len(times) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(times))
	seen := map[string]bool{}
	for _, t := range times {
		if seen[t] {
			continue
		}
		seen[t] = true
		var h, m int
		if _, err := fmt.Sscanf(t, "%02d:%02d", &h, &m); err != nil {
			return nil, fmt.Errorf("parse reminder time %q: %w", t, err)
		}
		job := Job{ID: uuid.NewString(), Time: t, Hour: h, Minute: m}
		// A newly added time that already passed today starts tomorrow.
		if !previous[t] && !job.at(now).After(now) {
			s.sent[sentKey(job, now)] = struct{}{}
		}
		s.jobs = append(s.jobs, job)
		ids = append(ids, job.ID)
	}
	s.logger.Debug("scheduled reminders", "count", len(ids), "times", times)
	return ids, nil
}

func (s *Scheduler) CancelAll(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs = nil
	s.logger.Debug("cancelled all reminders")
	return nil
}

func (s *Scheduler) Jobs() []Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Job(nil), s.jobs...)
}

// Next lists the upcoming occurrence of every job, soonest first.
func (s *Scheduler) Next(now time.Time) []Occurrence {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Occurrence, 0, len(s.jobs))
	for _, j := range s.jobs {
		at := j.at(now)
		if _, done := s.sent[sentKey(j, now)]; done || at.Before(now) {
			at = j.at(now.AddDate(0, 0, 1))
		}
		out = append(out, Occurrence{JobID: j.ID, Time: j.Time, At: at})
	}
	sort.Slice(out, func(i, k int) bool { return out[i].At.Before(out[k].At) })
	return out
}

// Run fires due jobs on every tick until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.tick(ctx, s.now())
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.tick(ctx, s.now())
		}
	}
}

// tick delivers every job whose time has been reached today and that has
// not fired yet. It returns how many notifications were attempted.
func (s *Scheduler) tick(ctx context.Context, now time.Time) int {
	s.mu.Lock()
	var due []Job
	for _, j := range s.jobs {
		key := sentKey(j, now)
		if _, done := s.sent[key]; done {
			continue
		}
		if j.at(now).After(now) {
			continue
		}
		s.sent[key] = struct{}{}
		due = append(due, j)
	}
	s.pruneSent(now)
	s.mu.Unlock()

	for _, j := range due {
		if err := s.notifier.Notify(ctx, s.notification); err != nil {
			s.logger.WarnContext(ctx, "reminder delivery failed", "time", j.Time, "error", err)
			continue
		}
		s.logger.InfoContext(ctx, "reminder delivered", "time", j.Time)
	}
	return len(due)
}

// pruneSent drops keys from earlier days. Caller holds mu.
func (s *Scheduler) pruneSent(now time.Time) {
	today := now.Format("2006-01-02")
	for key := range s.sent {
		if key[:len(today)] != today {
			delete(s.sent, key)
		}
	}
}

func (j Job) at(day time.Time) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, j.Hour, j.Minute, 0, 0, day.Location())
}

func sentKey(j Job, now time.Time) string {
	return now.Format("2006-01-02") + "|" + j.Time
}
