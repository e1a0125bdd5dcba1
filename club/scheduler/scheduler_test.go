package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/physhka/runclub-bot/club/domain"
	"github.com/physhka/runclub-bot/club/storage"
)

type fakeEvents struct {
	due      []domain.Event
	dueErr   error
	reminded []int64
}

func (f *fakeEvents) DueForReminder(_ context.Context, _, _ time.Time) ([]domain.Event, error) {
	return f.due, f.dueErr
}

func (f *fakeEvents) MarkReminded(_ context.Context, id int64) error {
	f.reminded = append(f.reminded, id)
	return nil
}

type fakeRegs struct {
	attendees map[int64][]storage.Attendee
	errFor    map[int64]error
}

func (f *fakeRegs) ListByEvent(_ context.Context, eventID int64) ([]storage.Attendee, error) {
	if err := f.errFor[eventID]; err != nil {
		return nil, err
	}
	return f.attendees[eventID], nil
}

type notification struct {
	userID  int64
	photoID string
}

type fakeNotifier struct {
	sent    []notification
	failFor map[int64]error
}

func (f *fakeNotifier) notify(userID int64, photoID string) error {
	if err := f.failFor[userID]; err != nil {
		return err
	}
	f.sent = append(f.sent, notification{userID, photoID})
	return nil
}

func (f *fakeNotifier) NotifyHTML(userID int64, _ string) error {
	return f.notify(userID, "")
}

func (f *fakeNotifier) NotifyPhoto(userID int64, photoID, _ string) error {
	return f.notify(userID, photoID)
}

func newTestScheduler(t *testing.T, events *fakeEvents, regs *fakeRegs, notifier *fakeNotifier) *Scheduler {
	t.Helper()
	s, err := New(Options{
		Events:        events,
		Registrations: regs,
		Notifier:      notifier,
		Window:        2 * time.Hour,
		Now:           func() time.Time { return time.Date(2026, time.June, 15, 17, 30, 0, 0, time.UTC) },
	})
	if err != nil {
		t.Fatalf("new scheduler: %v", err)
	}
	return s
}

func TestTickRemindsAttendeesAndSkipsAbsent(t *testing.T) {
	events := &fakeEvents{due: []domain.Event{{ID: 7, City: "Москва"}}}
	regs := &fakeRegs{attendees: map[int64][]storage.Attendee{
		7: {
			{User: domain.User{ID: 1}, Lateness: 0},
			{User: domain.User{ID: 2}, Lateness: domain.LatenessAbsent},
			{User: domain.User{ID: 3}, Lateness: 10},
		},
	}}
	notifier := &fakeNotifier{}

	s := newTestScheduler(t, events, regs, notifier)
	s.tick()

	if len(notifier.sent) != 2 {
		t.Fatalf("notifications = %d, want 2", len(notifier.sent))
	}
	for _, n := range notifier.sent {
		if n.userID == 2 {
			t.Fatal("absent registrant was reminded")
		}
	}
	if len(events.reminded) != 1 || events.reminded[0] != 7 {
		t.Fatalf("reminded = %v, want [7]", events.reminded)
	}
}

func TestTickSendsPhotoWhenEventHasOne(t *testing.T) {
	events := &fakeEvents{due: []domain.Event{{ID: 7, PhotoID: "file-id"}}}
	regs := &fakeRegs{attendees: map[int64][]storage.Attendee{
		7: {{User: domain.User{ID: 1}, Lateness: 0}},
	}}
	notifier := &fakeNotifier{}

	s := newTestScheduler(t, events, regs, notifier)
	s.tick()

	if len(notifier.sent) != 1 || notifier.sent[0].photoID != "file-id" {
		t.Fatalf("sent = %v, want one photo notification", notifier.sent)
	}
}

func TestTickSurvivesQueryFailure(t *testing.T) {
	events := &fakeEvents{dueErr: errors.New("db down")}
	notifier := &fakeNotifier{}

	s := newTestScheduler(t, events, &fakeRegs{}, notifier)
	s.tick()

	if len(notifier.sent) != 0 {
		t.Fatalf("notifications after query failure: %v", notifier.sent)
	}
	if len(events.reminded) != 0 {
		t.Fatalf("events marked reminded after query failure: %v", events.reminded)
	}
}

func TestUnreachableUserDoesNotBlockTheRoster(t *testing.T) {
	events := &fakeEvents{due: []domain.Event{{ID: 7}}}
	regs := &fakeRegs{attendees: map[int64][]storage.Attendee{
		7: {
			{User: domain.User{ID: 1}, Lateness: 0},
			{User: domain.User{ID: 2}, Lateness: 0},
		},
	}}
	notifier := &fakeNotifier{failFor: map[int64]error{1: errors.New("blocked by user")}}

	s := newTestScheduler(t, events, regs, notifier)
	s.tick()

	if len(notifier.sent) != 1 || notifier.sent[0].userID != 2 {
		t.Fatalf("sent = %v, want delivery to user 2", notifier.sent)
	}
	if len(events.reminded) != 1 {
		t.Fatalf("reminded = %v, want the event marked", events.reminded)
	}
}

func TestRosterFailureSkipsEventButKeepsTicking(t *testing.T) {
	events := &fakeEvents{due: []domain.Event{{ID: 7}, {ID: 8}}}
	regs := &fakeRegs{
		attendees: map[int64][]storage.Attendee{
			8: {{User: domain.User{ID: 1}, Lateness: 0}},
		},
		errFor: map[int64]error{7: errors.New("db down")},
	}
	notifier := &fakeNotifier{}

	s := newTestScheduler(t, events, regs, notifier)
	s.tick()

	if len(events.reminded) != 1 || events.reminded[0] != 8 {
		t.Fatalf("reminded = %v, want [8]", events.reminded)
	}
	if len(notifier.sent) != 1 || notifier.sent[0].userID != 1 {
		t.Fatalf("sent = %v, want delivery for event 8", notifier.sent)
	}
}

func TestNewValidatesOptions(t *testing.T) {
	_, err := New(Options{})
	if err == nil {
		t.Fatal("missing dependencies accepted")
	}

	_, err = New(Options{
		Events:        &fakeEvents{},
		Registrations: &fakeRegs{},
		Notifier:      &fakeNotifier{},
		Spec:          "not a cron spec",
	})
	if err == nil {
		t.Fatal("invalid cron spec accepted")
	}
}
