package handlers

import (
	"errors"
	"fmt"

	"github.com/physhka/runclub-bot/club/domain"
	"github.com/physhka/runclub-bot/club/flows"
	"github.com/physhka/runclub-bot/club/render"
	"github.com/physhka/runclub-bot/club/storage"
	"github.com/physhka/runclub-bot/core/telegram/callbacks"
	tghelpers "github.com/physhka/runclub-bot/core/telegram/helpers"
	"github.com/physhka/runclub-bot/core/telegram/keyboard"

	tele "gopkg.in/telebot.v4"
)

// Signup handles the "Записаться" button. A user who has not completed
// their profile yet is detoured into the registration dialogue, which
// finishes the sign-up on commit.
func (h *Handlers) Signup(c tele.Context) error {
	user, ok := CurrentUser(c)
	if !ok {
		return nil
	}
	eventID, err := callbacks.PayloadInt64(c)
	if err != nil {
		return nil
	}
	ctx := tghelpers.BuildContext(c)

	event, err := h.events.GetByID(ctx, eventID)
	if err != nil {
		if isNotFound(err) {
			return tghelpers.SendHTML(c, "Забег не найден")
		}
		return fmt.Errorf("signup %d: %w", eventID, err)
	}

	if !user.Registered() {
		return h.flows.RegisterMember.Start(c, flows.MemberDraft{PendingEventID: event.ID})
	}

	if _, err := h.regs.Get(ctx, user.ID, event.ID); err == nil {
		return tghelpers.SendHTML(c, fmt.Sprintf("Вы уже записаны на забег номер %d", event.ID))
	} else if !isNotFound(err) {
		return fmt.Errorf("signup %d: check: %w", eventID, err)
	}

	if err := h.regs.Register(ctx, user.ID, event.ID, domain.LatenessOnTime); err != nil {
		return fmt.Errorf("signup %d: %w", eventID, err)
	}
	return tghelpers.SendHTML(c, fmt.Sprintf("Вы успешно записались на забег номер %d", event.ID))
}

// MyRaces lists the caller's registrations with lateness controls.
func (h *Handlers) MyRaces(c tele.Context) error {
	user, ok := CurrentUser(c)
	if !ok {
		return nil
	}
	ctx := tghelpers.BuildContext(c)

	races, err := h.regs.ListByUser(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("my races: %w", err)
	}
	if len(races) == 0 {
		return tghelpers.SendHTML(c, "Вы пока никуда не записаны")
	}

	for _, race := range races {
		text := fmt.Sprintf("%s\n\nВаш статус: %s", render.EventCard(race.Event), render.Lateness(race.Lateness))
		if err := tghelpers.SendHTML(c, text, latenessMarkup(race.Event.ID)); err != nil {
			return err
		}
	}
	return nil
}

// SetLateness stores a lateness choice, payload "eventID|minutes".
// Values outside the button set are ignored.
func (h *Handlers) SetLateness(c tele.Context) error {
	eventID, minutes, err := callbacks.PayloadTwoInt64(c, "|")
	if err != nil {
		return nil
	}
	if !allowedLateness(int(minutes)) {
		return nil
	}
	ctx := tghelpers.BuildContext(c)

	if err := h.regs.SetLateness(ctx, c.Sender().ID, eventID, int(minutes)); err != nil {
		return fmt.Errorf("set lateness (%d,%d): %w", eventID, minutes, err)
	}
	return tghelpers.SendHTML(c, fmt.Sprintf("Статус на забег №%d: %s", eventID, render.Lateness(int(minutes))))
}

func latenessMarkup(eventID int64) *tele.ReplyMarkup {
	payload := func(minutes int) string { return fmt.Sprintf("%d|%d", eventID, minutes) }
	return keyboard.InlineButtonsRows(
		[]keyboard.InlineBtn{
			{Text: "❌ Не приду", Unique: CallbackLateness, Data: payload(domain.LatenessAbsent)},
			{Text: "✅ Вовремя", Unique: CallbackLateness, Data: payload(domain.LatenessOnTime)},
		},
		[]keyboard.InlineBtn{
			{Text: "+5 мин", Unique: CallbackLateness, Data: payload(5)},
			{Text: "+10 мин", Unique: CallbackLateness, Data: payload(10)},
			{Text: "+15 мин", Unique: CallbackLateness, Data: payload(15)},
		},
	)
}

func allowedLateness(minutes int) bool {
	for _, v := range domain.LatenessChoices {
		if v == minutes {
			return true
		}
	}
	return false
}

func isNotFound(err error) bool {
	return errors.Is(err, storage.ErrNotFound)
}
