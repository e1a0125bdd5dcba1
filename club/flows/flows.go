// Package flows declares the club's multi-step dialogues as static step
// tables: member registration, event creation, event editing, and the
// delete confirmation.
package flows

import (
	"context"
	"fmt"
	"time"

	"github.com/physhka/runclub-bot/club/domain"
	"github.com/physhka/runclub-bot/core/telegram/state"

	tele "gopkg.in/telebot.v4"
)

// Callback keys consumed while a dialogue is active. Everything else is
// blocked by the callback router until the dialogue ends.
const (
	// CallbackCancel aborts any dialogue from any step.
	CallbackCancel = "cancel"
	// CallbackEventCity carries the city choice for the event-creation flow.
	CallbackEventCity = "evcity"
)

// FailReply is the generic answer for infrastructure failures; the
// session is kept so the user can retry the same step.
const FailReply = "Что-то пошло не так. Попробуйте ещё раз."

// UserStore is the slice of the users repository the flows need.
type UserStore interface {
	UpdateProfile(ctx context.Context, id int64, name, phone, emergencyContact string) error
}

// EventStore is the slice of the events repository the flows need.
type EventStore interface {
	GetByID(ctx context.Context, id int64) (domain.Event, error)
	Create(ctx context.Context, e domain.Event) (int64, error)
	Update(ctx context.Context, e domain.Event) error
	Delete(ctx context.Context, id int64) error
}

// RegistrationStore is the slice of the registrations repository the flows need.
type RegistrationStore interface {
	Register(ctx context.Context, userID, eventID int64, lateness int) error
}

// Deps carries everything the dialogue tables are wired with.
type Deps struct {
	Manager       state.Manager
	Users         UserStore
	Events        EventStore
	Registrations RegistrationStore

	// Cities offered as buttons on the event-creation city step.
	Cities []string
	// BotName is the public bot username used to build t.me deep links.
	BotName string
	// Now supplies the clock for date parsing; defaults to time.Now.
	Now func() time.Time

	// Menu renders the role-appropriate menu; used when a session turns
	// out to be stale and is failed open to idle.
	Menu tele.HandlerFunc
	// OnFail answers the user after an infrastructure error.
	OnFail tele.HandlerFunc
}

// Flows bundles the four constructed dialogue tables.
type Flows struct {
	RegisterMember *state.Flow[MemberDraft]
	CreateEvent    *state.Flow[EventDraft]
	EditEvent      *state.Flow[EditDraft]
	DeleteEvent    *state.Flow[DeleteDraft]
}

// New validates and registers all four flows with the state manager.
func New(deps Deps) (*Flows, error) {
	if deps.Users == nil || deps.Events == nil || deps.Registrations == nil {
		return nil, fmt.Errorf("flows: missing store dependency")
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.OnFail == nil {
		deps.OnFail = func(c tele.Context) error {
			return c.Send(FailReply)
		}
	}

	register, err := newRegisterMember(deps)
	if err != nil {
		return nil, err
	}
	create, err := newCreateEvent(deps)
	if err != nil {
		return nil, err
	}
	edit, err := newEditEvent(deps)
	if err != nil {
		return nil, err
	}
	del, err := newDeleteEvent(deps)
	if err != nil {
		return nil, err
	}

	return &Flows{
		RegisterMember: register,
		CreateEvent:    create,
		EditEvent:      edit,
		DeleteEvent:    del,
	}, nil
}
