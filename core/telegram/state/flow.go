package state

import (
	"errors"
	"fmt"

	"github.com/physhka/runclub-bot/core/logger"
	tghelpers "github.com/physhka/runclub-bot/core/telegram/helpers"
	"log/slog"

	tele "gopkg.in/telebot.v4"
)

// ErrRetry is returned by a step's Accept to reject the input: the step
// repeats, the draft stays untouched, and no transition happens. Accept
// is expected to have told the user what was wrong before returning it.
var ErrRetry = errors.New("state: input rejected, step repeats")

type abortError struct{ err error }

func (e *abortError) Error() string { return "state: flow aborted: " + e.err.Error() }
func (e *abortError) Unwrap() error { return e.err }

// Abort wraps an error to signal that the flow cannot continue (for
// example, the entity it edits no longer exists). The engine clears the
// session; the Accept/Commit that aborted owns the user-facing message.
func Abort(err error) error {
	if err == nil {
		err = errors.New("aborted")
	}
	return &abortError{err: err}
}

// IsAbort reports whether err carries an Abort signal.
func IsAbort(err error) bool {
	var a *abortError
	return errors.As(err, &a)
}

// Step is one unit of a flow: a prompt already sent, awaiting exactly
// one validated input before advancing.
type Step[D any] struct {
	// State names the step; unique across all flows by construction.
	State State
	// Prompt renders the step's question. It runs when the previous
	// step advances into this one (or on Start for the first step).
	Prompt func(c tele.Context, d *D) error
	// Accept validates one inbound update and merges it into the draft.
	// Return nil to advance, ErrRetry to repeat, Abort(...) to drop the
	// whole dialogue.
	Accept func(c tele.Context, d *D) error
}

// FlowSpec declares a flow as a static table: ordered steps, a terminal
// commit, and error-path handlers.
type FlowSpec[D any] struct {
	Name  string
	Steps []Step[D]
	// Commit durably persists the completed draft. Exactly one primary
	// persistence write is expected here.
	Commit func(c tele.Context, d *D) error
	// OnFail replies to the user when Commit (or Accept) fails with an
	// infrastructure error. The session is kept so the user can retry.
	OnFail tele.HandlerFunc
	// Fallback runs when the session draft does not match this flow's
	// shape; the session is cleared first (fail open to the menu).
	Fallback tele.HandlerFunc
}

// Flow drives one declared dialogue. All step handlers are registered
// with the Manager at construction, so no reachable state can name a
// step outside the flow's table.
type Flow[D any] struct {
	spec FlowSpec[D]
	mgr  Manager
}

// NewFlow validates the spec and registers every step with the manager.
func NewFlow[D any](mgr Manager, spec FlowSpec[D]) (*Flow[D], error) {
	if mgr == nil {
		return nil, errors.New("state: nil manager")
	}
	if spec.Name == "" {
		return nil, errors.New("state: flow name is required")
	}
	if len(spec.Steps) == 0 {
		return nil, fmt.Errorf("state: flow %s has no steps", spec.Name)
	}
	if spec.Commit == nil {
		return nil, fmt.Errorf("state: flow %s has no commit", spec.Name)
	}
	seen := make(map[State]struct{}, len(spec.Steps))
	for _, st := range spec.Steps {
		if st.Accept == nil || st.Prompt == nil {
			return nil, fmt.Errorf("state: flow %s: step %s is incomplete", spec.Name, st.State)
		}
		if _, dup := seen[st.State]; dup {
			return nil, fmt.Errorf("state: flow %s: duplicate step %s", spec.Name, st.State)
		}
		seen[st.State] = struct{}{}
	}

	f := &Flow[D]{spec: spec, mgr: mgr}
	for i := range spec.Steps {
		if err := mgr.Register(spec.Steps[i].State, f.stepHandler(i)); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// Name returns the flow's declared name.
func (f *Flow[D]) Name() string { return f.spec.Name }

// Start seeds the draft, activates the first step, and prompts it.
func (f *Flow[D]) Start(c tele.Context, seed D) error {
	chatID := c.Sender().ID
	draft := &seed
	f.mgr.SetDraft(chatID, draft)
	f.mgr.SetState(chatID, f.spec.Steps[0].State)

	ctx := tghelpers.BuildContext(c)
	logger.Debug(ctx, "tg", "flow.start",
		slog.String("flow", f.spec.Name),
		slog.String("state", string(f.spec.Steps[0].State)),
	)
	return f.spec.Steps[0].Prompt(c, draft)
}

func (f *Flow[D]) stepHandler(i int) tele.HandlerFunc {
	return func(c tele.Context) error {
		chatID := c.Sender().ID

		draft, ok := f.mgr.Draft(chatID).(*D)
		if !ok {
			// Draft belongs to another flow or vanished: treat as idle.
			f.mgr.Clear(chatID)
			if f.spec.Fallback != nil {
				return f.spec.Fallback(c)
			}
			return nil
		}

		step := f.spec.Steps[i]
		ctx := tghelpers.BuildContext(c)

		switch err := step.Accept(c, draft); {
		case err == nil:
		case errors.Is(err, ErrRetry):
			logger.Debug(ctx, "tg", "flow.retry",
				slog.String("flow", f.spec.Name),
				slog.String("state", string(step.State)),
			)
			return nil
		case IsAbort(err):
			f.mgr.Clear(chatID)
			logger.Warn(ctx, "tg", "flow.abort",
				slog.String("flow", f.spec.Name),
				slog.String("state", string(step.State)),
				slog.String("err", err.Error()),
			)
			return nil
		default:
			if f.spec.OnFail != nil {
				_ = f.spec.OnFail(c)
			}
			return fmt.Errorf("flow %s step %s: %w", f.spec.Name, step.State, err)
		}

		if i+1 < len(f.spec.Steps) {
			next := f.spec.Steps[i+1]
			f.mgr.SetState(chatID, next.State)
			logger.Debug(ctx, "tg", "flow.advance",
				slog.String("flow", f.spec.Name),
				slog.String("state", string(next.State)),
			)
			return next.Prompt(c, draft)
		}

		if err := f.spec.Commit(c, draft); err != nil {
			if IsAbort(err) {
				f.mgr.Clear(chatID)
				return nil
			}
			// Session kept: the user is free to retry the same step.
			if f.spec.OnFail != nil {
				_ = f.spec.OnFail(c)
			}
			return fmt.Errorf("flow %s commit: %w", f.spec.Name, err)
		}

		f.mgr.Clear(chatID)
		logger.Debug(ctx, "tg", "flow.commit",
			slog.String("flow", f.spec.Name),
			slog.String("status", "ok"),
		)
		return nil
	}
}
