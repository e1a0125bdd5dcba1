package format

import (
	"fmt"
	"html"
)

// EscapeHTML escapes user-supplied text for Telegram HTML parse mode.
func EscapeHTML(text string) string {
	return html.EscapeString(text)
}

// UserLink renders a tg://user mention for HTML parse mode.
func UserLink(userID int64, name string) string {
	return fmt.Sprintf(`<a href="tg://user?id=%d">%s</a>`, userID, EscapeHTML(name))
}

// Bold wraps text in HTML bold tags, escaping the content.
func Bold(text string) string {
	return "<b>" + EscapeHTML(text) + "</b>"
}
