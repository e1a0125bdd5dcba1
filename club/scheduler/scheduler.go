// Package scheduler runs the periodic reminder job: events starting
// soon are announced to everyone still planning to attend.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/physhka/runclub-bot/club/domain"
	"github.com/physhka/runclub-bot/club/render"
	"github.com/physhka/runclub-bot/club/storage"
	"github.com/physhka/runclub-bot/core/logger"
)

// EventStore is the slice of the events repository the scheduler needs.
type EventStore interface {
	DueForReminder(ctx context.Context, from, to time.Time) ([]domain.Event, error)
	MarkReminded(ctx context.Context, id int64) error
}

// RegistrationStore lists who to notify.
type RegistrationStore interface {
	ListByEvent(ctx context.Context, eventID int64) ([]storage.Attendee, error)
}

// Notifier delivers a reminder to one user; implemented by the bot transport.
type Notifier interface {
	NotifyHTML(userID int64, text string) error
	NotifyPhoto(userID int64, photoID, caption string) error
}

// Options configure the reminder scheduler.
type Options struct {
	Events        EventStore
	Registrations RegistrationStore
	Notifier      Notifier

	// Window is how far ahead of the start the reminder fires.
	Window time.Duration
	// Spec is the cron expression of the poll; defaults to every minute.
	Spec string
	// Now supplies the clock; defaults to time.Now.
	Now func() time.Time
}

// Scheduler owns the cron loop.
type Scheduler struct {
	opts Options
	cron *cron.Cron
}

// New builds the scheduler with a panic-recovering job chain wired into
// the structured logger.
func New(opts Options) (*Scheduler, error) {
	if opts.Events == nil || opts.Registrations == nil || opts.Notifier == nil {
		return nil, fmt.Errorf("scheduler: missing dependency")
	}
	if opts.Window <= 0 {
		opts.Window = 2 * time.Hour
	}
	if opts.Spec == "" {
		opts.Spec = "* * * * *"
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	s := &Scheduler{opts: opts}
	s.cron = cron.New(cron.WithChain(
		cron.Recover(cronLogger{}),
	))
	if _, err := s.cron.AddFunc(opts.Spec, s.tick); err != nil {
		return nil, fmt.Errorf("scheduler: bad spec %q: %w", opts.Spec, err)
	}
	return s, nil
}

// Start launches the poll loop in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
	logger.Info(logger.Background(), "sched", "sched.start",
		slog.String("spec", s.opts.Spec),
		slog.Duration("window", s.opts.Window),
	)
}

// Stop halts the loop and waits for a running job to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	logger.Info(logger.Background(), "sched", "sched.stop")
}

// tick is one poll: find due events, fan reminders out, mark them done.
// A failure is logged and skipped; the loop itself never dies.
func (s *Scheduler) tick() {
	ctx := context.Background()
	now := s.opts.Now()

	events, err := s.opts.Events.DueForReminder(ctx, now, now.Add(s.opts.Window))
	if err != nil {
		logger.Error(ctx, "sched", "sched.reminders",
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)
		return
	}

	for _, event := range events {
		if err := s.remind(ctx, event); err != nil {
			logger.Error(ctx, "sched", "sched.reminders",
				slog.String("status", "fail"),
				slog.Int64("event_id", event.ID),
				slog.String("err", err.Error()),
			)
			continue
		}
	}
}

func (s *Scheduler) remind(ctx context.Context, event domain.Event) error {
	attendees, err := s.opts.Registrations.ListByEvent(ctx, event.ID)
	if err != nil {
		return fmt.Errorf("roster: %w", err)
	}

	text := fmt.Sprintf("⏰ Напоминание: скоро забег!\n\n%s", render.EventCard(event))
	sent := 0
	for _, a := range attendees {
		if a.Lateness < 0 {
			continue
		}
		var sendErr error
		if event.PhotoID != "" {
			sendErr = s.opts.Notifier.NotifyPhoto(a.ID, event.PhotoID, text)
		} else {
			sendErr = s.opts.Notifier.NotifyHTML(a.ID, text)
		}
		if sendErr != nil {
			// One unreachable user must not block the rest of the roster.
			logger.Warn(ctx, "sched", "sched.send",
				slog.Int64("event_id", event.ID),
				slog.Int64("user_id", a.ID),
				slog.String("err", sendErr.Error()),
			)
			continue
		}
		sent++
	}

	if err := s.opts.Events.MarkReminded(ctx, event.ID); err != nil {
		return fmt.Errorf("mark reminded: %w", err)
	}

	logger.Info(ctx, "sched", "sched.reminders",
		slog.Int64("event_id", event.ID),
		slog.Int("reminders", sent),
	)
	return nil
}

// cronLogger adapts cron's logging interface onto slog; only Recover
// uses it, so Info is effectively silent at default levels.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	logger.Debug(logger.Background(), "sched", msg, slog.Any("kv", keysAndValues))
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	logger.Error(logger.Background(), "sched", "sched.panic",
		slog.String("err", err.Error()),
		slog.Any("kv", keysAndValues),
	)
}
