package handlers

import (
	"fmt"
	"strings"

	"github.com/physhka/runclub-bot/club/domain"
	"github.com/physhka/runclub-bot/club/render"
	"github.com/physhka/runclub-bot/core/telegram/callbacks"
	tghelpers "github.com/physhka/runclub-bot/core/telegram/helpers"
	"github.com/physhka/runclub-bot/core/telegram/keyboard"

	tele "gopkg.in/telebot.v4"
)

// showAllPayload switches the upcoming list from the user's city to all cities.
const showAllPayload = "all"

// Events lists upcoming runs. By default the list honours the caller's
// city tag; the "all" payload (the toggle button) lifts the filter.
func (h *Handlers) Events(c tele.Context) error {
	user, ok := CurrentUser(c)
	if !ok {
		return nil
	}
	ctx := tghelpers.BuildContext(c)

	city := user.City
	showAll := callbacks.Payload(c) == showAllPayload || city == "" || city == domain.CityAll
	if showAll {
		city = domain.CityAll
	}

	events, err := h.events.ListUpcoming(ctx, city, h.now())
	if err != nil {
		return fmt.Errorf("list events: %w", err)
	}
	if len(events) == 0 {
		return tghelpers.SendHTML(c, "Пока нет запланированных забегов", h.filterToggleMarkup(user, showAll))
	}

	for _, event := range events {
		if err := h.sendEventCard(c, event); err != nil {
			return err
		}
	}

	summary := fmt.Sprintf("Всего забегов: %d", len(events))
	return tghelpers.SendHTML(c, summary, h.filterToggleMarkup(user, showAll))
}

// EventCardByID shows the deep-linked sign-up card for one event.
func (h *Handlers) eventCardByID(c tele.Context, id int64) error {
	ctx := tghelpers.BuildContext(c)
	event, err := h.events.GetByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return tghelpers.SendHTML(c, "Забег не найден")
		}
		return fmt.Errorf("event card %d: %w", id, err)
	}
	return h.sendEventCard(c, event)
}

// sendEventCard renders one event with its action buttons; admins get
// the management row as well.
func (h *Handlers) sendEventCard(c tele.Context, event domain.Event) error {
	id := fmt.Sprintf("%d", event.ID)
	rows := [][]keyboard.InlineBtn{
		{{Text: "Записаться", Unique: CallbackSignup, Data: id}},
	}
	if h.IsAdmin(c) {
		rows = append(rows, []keyboard.InlineBtn{
			{Text: "✏️ Изменить", Unique: CallbackEditEvent, Data: id},
			{Text: "🗑 Удалить", Unique: CallbackDeleteEvent, Data: id},
			{Text: "👥 Участники", Unique: CallbackRoster, Data: id},
		})
	}
	markup := keyboard.InlineButtonsRows(rows...)

	card := render.EventCard(event)
	if event.PhotoID != "" {
		return tghelpers.SendPhoto(c, event.PhotoID, card, markup)
	}
	return tghelpers.SendHTML(c, card, markup)
}

func (h *Handlers) filterToggleMarkup(user domain.User, showingAll bool) *tele.ReplyMarkup {
	if user.City == "" || user.City == domain.CityAll {
		return nil
	}
	if showingAll {
		return keyboard.InlineButtons([]keyboard.InlineBtn{
			{Text: "🏙 Только мой город", Unique: CallbackEvents},
		})
	}
	return keyboard.InlineButtons([]keyboard.InlineBtn{
		{Text: "🌍 Показать все города", Unique: CallbackEvents, Data: showAllPayload},
	})
}

// Roster shows an event's registrations with contact details. Admin only;
// for anybody else the button silently does nothing.
func (h *Handlers) Roster(c tele.Context) error {
	if !h.IsAdmin(c) {
		return nil
	}
	eventID, err := callbacks.PayloadInt64(c)
	if err != nil {
		return nil
	}
	ctx := tghelpers.BuildContext(c)

	attendees, err := h.regs.ListByEvent(ctx, eventID)
	if err != nil {
		return fmt.Errorf("roster %d: %w", eventID, err)
	}
	if len(attendees) == 0 {
		return tghelpers.SendHTML(c, fmt.Sprintf("На забег №%d пока никто не записан", eventID))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Записи на забег №%d:\n\n", eventID)
	for _, a := range attendees {
		b.WriteString(render.ProfileLine(a.User))
		fmt.Fprintf(&b, "\nСтатус: %s\n\n", render.Lateness(a.Lateness))
	}
	return tghelpers.SendHTML(c, b.String())
}

// CityMenu offers the configured cities plus the "all" sentinel.
func (h *Handlers) CityMenu(c tele.Context) error {
	btns := make([]keyboard.InlineBtn, 0, len(h.cities)+1)
	for _, city := range h.cities {
		btns = append(btns, keyboard.InlineBtn{Text: city, Unique: CallbackSetCity, Data: city})
	}
	btns = append(btns, keyboard.InlineBtn{Text: "Все города", Unique: CallbackSetCity, Data: domain.CityAll})
	return tghelpers.SendHTML(c, "Выберите ваш город:", keyboard.InlineButtonsNPerRow(btns, 2))
}

// SetCity stores the chosen city tag on the caller's profile.
func (h *Handlers) SetCity(c tele.Context) error {
	city := callbacks.Payload(c)
	if !h.knownCity(city) {
		return nil
	}
	ctx := tghelpers.BuildContext(c)
	if err := h.users.SetCity(ctx, c.Sender().ID, city); err != nil {
		return fmt.Errorf("set city: %w", err)
	}
	label := city
	if city == domain.CityAll {
		label = "все города"
	}
	return tghelpers.SendHTML(c, fmt.Sprintf("Город обновлён: %s", label))
}

func (h *Handlers) knownCity(city string) bool {
	if city == domain.CityAll {
		return true
	}
	for _, known := range h.cities {
		if known == city {
			return true
		}
	}
	return false
}
