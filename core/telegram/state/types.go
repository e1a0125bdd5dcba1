// Package state implements the per-chat conversational state machine:
// an in-memory session store keyed by chat id plus a table-driven flow
// engine for multi-step data-collection dialogues.
package state

import tele "gopkg.in/telebot.v4"

// State identifies a single dialogue step within a flow.
type State string

// StateIdle indicates there is no active conversation with the user.
const StateIdle State = "idle"

// Session stores the active step and the flow-scoped draft for one chat.
// Draft holds a pointer to the owning flow's draft struct; a step can
// never observe another flow's shape.
type Session struct {
	State State
	Draft any
}

// Manager orchestrates sessions and dispatches updates to the handler
// registered for the session's active step.
//
// A session with no recorded step is in the implicit idle state and is
// never routed here; an active step whose handler has been unregistered
// is treated the same way: the session is cleared and the fallback runs.
type Manager interface {
	Get(chatID int64) Session
	SetState(chatID int64, st State)
	State(chatID int64) State
	SetDraft(chatID int64, draft any)
	Draft(chatID int64) any
	Clear(chatID int64)
	InProgress(chatID int64) bool

	Register(st State, h tele.HandlerFunc) error
	SetFallback(h tele.HandlerFunc)
	HandleActive(c tele.Context) error
}
