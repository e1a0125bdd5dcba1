package router

import (
	"log/slog"

	"github.com/physhka/runclub-bot/core/logger"
	tg "github.com/physhka/runclub-bot/core/telegram"
	"github.com/physhka/runclub-bot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// CommandRouteOptions configures how commands are wrapped and exposed.
type CommandRouteOptions struct {
	// AllowAdmin decides whether the sender may run AdminOnly commands.
	AllowAdmin    func(tele.Context) bool
	OnAdminReject tele.HandlerFunc
}

// CommandRoutes prepares command handlers wrapped with shared middleware.
// A command arriving mid-dialogue abandons the dialogue: the session is
// cleared before the handler runs, so its reply is not swallowed by the
// in-flow guards.
func CommandRoutes(fsmMgr FSM, reg *tg.Registry, opts CommandRouteOptions) []tg.Route {
	if reg == nil {
		return nil
	}

	gateOpts := middleware.GateOptions{
		Allow:    opts.AllowAdmin,
		OnReject: opts.OnAdminReject,
	}

	routes := make([]tg.Route, 0, len(reg.Commands()))
	for cmd, def := range reg.Commands() {
		h := def.Handler
		h = resetDialogue(fsmMgr, h)
		h = middleware.RecoverMiddleware(h)
		h = middleware.LoggerMiddleware(h)
		if def.AdminOnly {
			h = middleware.GateMiddleware(gateOpts)(h)
		}
		routes = append(routes, tg.Route{
			Endpoint: cmd,
			Handler:  h,
		})
	}

	logger.TWire.Info("tg.wire",
		slog.String("event", "complete"),
		slog.Int("commands", len(reg.Commands())),
		slog.Int("callbacks", len(reg.ListCallbacks())),
	)

	return routes
}

func resetDialogue(fsmMgr FSM, next tele.HandlerFunc) tele.HandlerFunc {
	if fsmMgr == nil {
		return next
	}
	return func(c tele.Context) error {
		if s := c.Sender(); s != nil && fsmMgr.InProgress(s.ID) {
			fsmMgr.Clear(s.ID)
		}
		return next(c)
	}
}
