// Package schedule periodically checks stored reminders and alarms and
// announces the ones that have come due.
package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"hark/internal/store"
)

// taskStore is the persistence surface the poller reads and marks.
type taskStore interface {
	DueTasks(ctx context.Context, kind store.Kind, now time.Time) ([]store.Task, error)
	MarkTriggered(ctx context.Context, id string, kind store.Kind) error
}

// speaker voices announcements.
type speaker interface {
	Speak(ctx context.Context, text string) error
}

// notifier posts desktop notifications.
type notifier interface {
	Notify(ctx context.Context, title, message string)
}

// Poller wakes on an interval and fires due reminders and alarms.
type Poller struct {
	store    taskStore
	speaker  speaker
	notifier notifier
	interval time.Duration
	logger   *slog.Logger

	now func() time.Time
}

// New builds a poller. Interval must be positive.
func New(st taskStore, sp speaker, nt notifier, interval time.Duration, logger *slog.Logger) *Poller {
	return &Poller{
		store:    st,
		speaker:  sp,
		notifier: nt,
		interval: interval,
		logger:   logger,
		now:      time.Now,
	}
}

// Run checks immediately, then on every tick, until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.checkAll(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.checkAll(ctx)
		}
	}
}

// checkAll fires due tasks of both kinds.
func (p *Poller) checkAll(ctx context.Context) {
	p.check(ctx, store.KindReminder)
	p.check(ctx, store.KindAlarm)
}

// check announces and marks every due task of one kind. A task is
// marked before it is voiced so a slow speaker cannot double-fire it
// on the next tick.
func (p *Poller) check(ctx context.Context, kind store.Kind) {
	tasks, err := p.store.DueTasks(ctx, kind, p.now())
	if err != nil {
		p.logger.Error("poll due tasks failed", "kind", string(kind), "error", err)
		return
	}

	for _, task := range tasks {
		if err := p.store.MarkTriggered(ctx, task.ID, kind); err != nil {
			p.logger.Error("mark task triggered failed", "kind", string(kind), "id", task.ID, "error", err)
			continue
		}

		message := announcement(kind, task)
		p.logger.Info("task due", "kind", string(kind), "id", task.ID, "text", task.Text)

		p.notifier.Notify(ctx, notificationTitle(kind), message)
		if err := p.speaker.Speak(ctx, message); err != nil {
			p.logger.Error("speak announcement failed", "error", err)
		}
	}
}

// announcement renders the spoken phrase for one due task.
func announcement(kind store.Kind, task store.Task) string {
	if kind == store.KindAlarm {
		return "Alarm! It's time for your alarm."
	}
	return fmt.Sprintf("Here is your reminder: %s", task.Text)
}

// notificationTitle picks the desktop notification heading per kind.
func notificationTitle(kind store.Kind) string {
	if kind == store.KindAlarm {
		return "Hark Alarm"
	}
	return "Hark Reminder"
}
