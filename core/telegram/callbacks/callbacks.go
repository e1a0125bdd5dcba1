// Package callbacks parses Telebot callback data once at the router
// boundary so handlers never split raw payload strings themselves.
package callbacks

import (
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v4"
)

// Parse splits Telebot's \f<unique>|<payload> encoding into its parts.
func Parse(cb *tele.Callback) (key, payload string) {
	if cb == nil {
		return "", ""
	}
	if cb.Unique != "" {
		return cb.Unique, cb.Data
	}
	raw := strings.TrimPrefix(cb.Data, "\f")
	parts := strings.SplitN(raw, "|", 2)
	key = strings.TrimSpace(parts[0])
	if len(parts) == 2 {
		payload = parts[1]
	}
	return key, payload
}

// Key returns cb.Unique if present; otherwise parses it from Data.
func Key(c tele.Context) string {
	cb := c.Callback()
	if cb == nil {
		return ""
	}
	if cb.Unique != "" {
		return cb.Unique
	}
	k, _ := Parse(cb)
	return k
}

// Payload returns the part after '|' parsed from Data.
func Payload(c tele.Context) string {
	cb := c.Callback()
	if cb == nil {
		return ""
	}
	// prefer cb.Data since cb.Unique may be empty in generic OnCallback
	_, payload := Parse(cb)
	return payload
}

// PayloadInt64 parses the callback payload as int64.
func PayloadInt64(c tele.Context) (int64, error) {
	return strconv.ParseInt(strings.TrimSpace(Payload(c)), 10, 64)
}

// PayloadTwoInt64 parses a callback payload like "123|456" into two int64 values.
func PayloadTwoInt64(c tele.Context, sep string) (int64, int64, error) {
	p := Payload(c)
	if p == "" {
		return 0, 0, strconv.ErrSyntax
	}
	parts := strings.Split(p, sep)
	if len(parts) != 2 {
		return 0, 0, strconv.ErrSyntax
	}
	a, err := strconv.ParseInt(strings.TrimSpace(parts[0]), 10, 64)
	if err != nil {
		return 0, 0, err
	}
	b, err := strconv.ParseInt(strings.TrimSpace(parts[1]), 10, 64)
	if err != nil {
		return 0, 0, err
	}
	return a, b, nil
}
