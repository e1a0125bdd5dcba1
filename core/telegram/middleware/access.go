package middleware

import tele "gopkg.in/telebot.v4"

// GateOptions defines how a permission gate behaves for rejected updates.
type GateOptions struct {
	// Allow decides whether the update may proceed. Nil allows everything.
	Allow func(tele.Context) bool
	// OnReject runs for rejected updates; nil means silent drop.
	OnReject tele.HandlerFunc
}

// Gate wraps a single handler with a permission predicate. Used for
// admin-only commands where the allow-list lives in application config.
func Gate(opts GateOptions, h tele.HandlerFunc) tele.HandlerFunc {
	if opts.Allow == nil {
		return h
	}
	return func(c tele.Context) error {
		if !opts.Allow(c) {
			if opts.OnReject != nil {
				return opts.OnReject(c)
			}
			return nil
		}
		return h(c)
	}
}

// GateMiddleware applies the same predicate to every downstream handler.
func GateMiddleware(opts GateOptions) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return Gate(opts, next)
	}
}
