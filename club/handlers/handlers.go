// Package handlers implements the club's stateless actions and the
// user-resolution pipeline in front of them.
package handlers

import (
	"context"
	"time"

	"github.com/physhka/runclub-bot/club/domain"
	"github.com/physhka/runclub-bot/club/flows"
	"github.com/physhka/runclub-bot/club/storage"
	"github.com/physhka/runclub-bot/core/telegram/state"
)

// Callback keys for the stateless actions. Flow-scoped keys (cancel,
// event city) live in the flows package.
const (
	CallbackEvents      = "events"
	CallbackMyRaces     = "my_races"
	CallbackCreateEvent = "create_event"
	CallbackEditEvent   = "edit_event"
	CallbackDeleteEvent = "delete_event"
	CallbackRoster      = "roster"
	CallbackSignup      = "signup"
	CallbackLateness    = "late"
	CallbackCityMenu    = "city"
	CallbackSetCity     = "setcity"
)

// UserStore is the slice of the users repository the handlers need.
type UserStore interface {
	GetByID(ctx context.Context, id int64) (domain.User, error)
	Create(ctx context.Context, u domain.User) error
	SetCity(ctx context.Context, id int64, city string) error
	SetRole(ctx context.Context, id int64, role domain.Role) error
	ListByRole(ctx context.Context, role domain.Role) ([]domain.User, error)
	Count(ctx context.Context) (int64, error)
	Delete(ctx context.Context, id int64) error
}

// EventStore is the slice of the events repository the handlers need.
type EventStore interface {
	GetByID(ctx context.Context, id int64) (domain.Event, error)
	ListUpcoming(ctx context.Context, city string, now time.Time) ([]domain.Event, error)
	Count(ctx context.Context) (int64, error)
}

// RegistrationStore is the slice of the registrations repository the handlers need.
type RegistrationStore interface {
	Register(ctx context.Context, userID, eventID int64, lateness int) error
	SetLateness(ctx context.Context, userID, eventID int64, lateness int) error
	Get(ctx context.Context, userID, eventID int64) (domain.Registration, error)
	ListByEvent(ctx context.Context, eventID int64) ([]storage.Attendee, error)
	ListByUser(ctx context.Context, userID int64) ([]storage.UserEvent, error)
}

// Config carries the static settings the handlers depend on.
type Config struct {
	// AdminIDs is the injected allow-list of privileged chat ids.
	AdminIDs []int64
	// Cities offered for profile city selection and event creation.
	Cities []string
	// BotName is the public bot username for deep links.
	BotName string
}

// Handlers bundles the stateless actions with their dependencies.
type Handlers struct {
	users  UserStore
	events EventStore
	regs   RegistrationStore
	flows  *flows.Flows
	fsm    state.Manager

	admins  map[int64]struct{}
	cities  []string
	botName string
	now     func() time.Time
}

// New wires the handler set.
func New(cfg Config, users UserStore, events EventStore, regs RegistrationStore, fl *flows.Flows, fsm state.Manager) *Handlers {
	admins := make(map[int64]struct{}, len(cfg.AdminIDs))
	for _, id := range cfg.AdminIDs {
		admins[id] = struct{}{}
	}
	return &Handlers{
		users:   users,
		events:  events,
		regs:    regs,
		flows:   fl,
		fsm:     fsm,
		admins:  admins,
		cities:  cfg.Cities,
		botName: cfg.BotName,
		now:     time.Now,
	}
}

// SetFlows attaches the dialogue tables. Handlers and flows reference
// each other (flow entry points vs. the menu fallback), so flows are
// constructed against Handlers.Menu and attached here afterwards.
func (h *Handlers) SetFlows(fl *flows.Flows) {
	h.flows = fl
}

// SetClock overrides the clock, used by tests.
func (h *Handlers) SetClock(now func() time.Time) {
	if now != nil {
		h.now = now
	}
}
