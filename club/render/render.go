// Package render builds the HTML fragments shared by handlers, flows,
// and the reminder fan-out.
package render

import (
	"fmt"
	"strings"

	"github.com/physhka/runclub-bot/club/domain"
	"github.com/physhka/runclub-bot/core/telegram/format"
)

// EventCard renders the announcement text of a single event.
func EventCard(e domain.Event) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s №%d\n", format.Bold("Забег"), e.ID)
	fmt.Fprintf(&b, "🏙 Город: %s\n", format.EscapeHTML(e.City))
	fmt.Fprintf(&b, "📅 Дата: %s\n", domain.FormatEventDate(e.Date))
	fmt.Fprintf(&b, "📍 Место: %s\n", format.EscapeHTML(e.Location))
	fmt.Fprintf(&b, "⏱ Темп: %s\n\n", format.EscapeHTML(e.Tempo))
	b.WriteString(format.EscapeHTML(e.Description))
	return b.String()
}

// ProfileLine renders one roster entry: a tg:// mention with the
// contact fields collected at registration.
func ProfileLine(u domain.User) string {
	name := u.Name
	if name == "" {
		name = fmt.Sprintf("id%d", u.ID)
	}
	return fmt.Sprintf("%s\nPhone: %s\nEmergency Contact: %s",
		format.UserLink(u.ID, name),
		format.EscapeHTML(u.Phone),
		format.EscapeHTML(u.EmergencyContact),
	)
}

// Lateness renders a lateness value the way the buttons label it.
func Lateness(minutes int) string {
	switch {
	case minutes < 0:
		return "не придёт"
	case minutes == 0:
		return "вовремя"
	default:
		return fmt.Sprintf("опоздает на %d мин", minutes)
	}
}

// DeepLink builds the t.me sign-up link embedding the event id.
func DeepLink(botName string, eventID int64) string {
	return fmt.Sprintf("https://t.me/%s?start=%d", botName, eventID)
}
