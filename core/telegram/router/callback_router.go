package router

import (
	"time"

	"log/slog"

	tg "github.com/physhka/runclub-bot/core/telegram"
	"github.com/physhka/runclub-bot/core/telegram/callbacks"
	"github.com/physhka/runclub-bot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// CallbackOptions customises fallback behaviour for callbacks.
type CallbackOptions struct {
	NotFound tele.HandlerFunc
	// BlockedInFlow answers button presses that are not honoured while a
	// dialogue is active (everything outside the registry's in-flow set).
	BlockedInFlow tele.HandlerFunc
}

// CallbackRoute returns a handler that routes callbacks through the registry.
// While a dialogue is active only keys marked via Registry.AllowInFlow are
// dispatched; any other button press gets BlockedInFlow and is dropped.
func CallbackRoute(fsmMgr FSM, reg *tg.Registry, opts CallbackOptions) tg.Route {
	handler := func(c tele.Context) error {
		start := time.Now()
		if c.Callback() == nil {
			return nil
		}

		key, _ := callbacks.Parse(c.Callback())
		name := "callback." + normalizeHandlerName(key)
		extras := []slog.Attr{slog.String("cb_key", key)}

		_ = c.Respond()

		if fsmMgr != nil && fsmMgr.InProgress(c.Sender().ID) && !reg.FlowAllowed(key) {
			extras = append(extras, slog.String("reason", "dialogue_active"))
			return handleWithSummary(c, name, start, "skip", "ok", func() error {
				if opts.BlockedInFlow != nil {
					return opts.BlockedInFlow(c)
				}
				return nil
			}, extras...)
		}

		cbHandler, ok := reg.GetCallback(key)
		if !ok || cbHandler == nil {
			fallback := reg.CallbackNotFound()
			if fallback == nil {
				fallback = opts.NotFound
			}
			extras = append(extras, slog.String("reason", "not_found"))
			return handleWithSummary(c, name, start, "", "", func() error {
				if fallback != nil {
					return fallback(c)
				}
				return nil
			}, extras...)
		}

		return handleWithSummary(c, name, start, "", "", func() error {
			return cbHandler(c)
		}, extras...)
	}
	return tg.Route{
		Endpoint: tele.OnCallback,
		Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(handler)),
	}
}
