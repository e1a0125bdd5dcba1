package router

import (
	"time"

	tg "github.com/physhka/runclub-bot/core/telegram"
	"github.com/physhka/runclub-bot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// FSM defines the minimal interface for the conversational state manager.
type FSM interface {
	InProgress(chatID int64) bool
	HandleActive(c tele.Context) error
	Clear(chatID int64)
}

// TextOptions controls fallback behaviour for text/photo updates.
type TextOptions struct {
	UnknownText  tele.HandlerFunc
	UnknownPhoto tele.HandlerFunc
	// AllowAdmin gates AdminOnly commands matched via bare-word lookup.
	// Nil denies them: without a predicate nobody is an admin.
	AllowAdmin    func(tele.Context) bool
	OnAdminReject tele.HandlerFunc
}

// TextRoutes builds handlers for text and photo routing. An active
// dialogue wins over bare-word command lookup: its step consumes the
// update first. Slash commands never reach here while registered,
// Telebot dispatches those to their own endpoints.
func TextRoutes(fsmMgr FSM, reg *tg.Registry, opts TextOptions) []tg.Route {
	handler := func(c tele.Context) error {
		start := time.Now()
		text := c.Text()

		if fsmMgr != nil && fsmMgr.InProgress(c.Sender().ID) {
			return handleWithSummary(c, "fsm", start, "", "", func() error {
				return fsmMgr.HandleActive(c)
			})
		}

		if reg != nil {
			if key, cmd, ok := reg.LookupCommand(text); ok && cmd.Handler != nil {
				name := normalizeHandlerName(key)
				if cmd.AdminOnly && (opts.AllowAdmin == nil || !opts.AllowAdmin(c)) {
					if opts.OnAdminReject != nil {
						return handleWithSummary(c, name, start, "deny", "", func() error {
							return opts.OnAdminReject(c)
						})
					}
					logHandlerSummary(c, name, start, "deny", "ok", nil)
					return nil
				}
				return handleWithSummary(c, name, start, "", "", func() error {
					return cmd.Handler(c)
				})
			}
		}

		if reg != nil {
			if fb := reg.TextFallback(); fb != nil {
				return handleWithSummary(c, "fallback", start, "", "", func() error {
					return fb(c)
				})
			}
		}

		if opts.UnknownText != nil {
			return handleWithSummary(c, "unknown_text", start, "", "", func() error {
				return opts.UnknownText(c)
			})
		}

		logHandlerSummary(c, "unknown_text", start, "skip", "ok", nil)
		return nil
	}

	// Photos feed the announcement-photo dialogue step; outside a
	// dialogue they are unexpected.
	photoHandler := func(c tele.Context) error {
		start := time.Now()
		if fsmMgr != nil && fsmMgr.InProgress(c.Sender().ID) {
			return handleWithSummary(c, "fsm_photo", start, "", "", func() error {
				return fsmMgr.HandleActive(c)
			})
		}
		if opts.UnknownPhoto != nil {
			return handleWithSummary(c, "unexpected_photo", start, "", "", func() error {
				return opts.UnknownPhoto(c)
			})
		}
		logHandlerSummary(c, "unexpected_photo", start, "skip", "ok", nil)
		return nil
	}

	return []tg.Route{
		{
			Endpoint: tele.OnText,
			Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(handler)),
		},
		{
			Endpoint: tele.OnPhoto,
			Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(photoHandler)),
		},
	}
}
