package handlers

import (
	"fmt"
	"strconv"
	"strings"

	"log/slog"

	"github.com/physhka/runclub-bot/core/logger"
	tghelpers "github.com/physhka/runclub-bot/core/telegram/helpers"
	"github.com/physhka/runclub-bot/core/telegram/keyboard"

	tele "gopkg.in/telebot.v4"
)

const welcomeText = "Добро пожаловать в телеграм бота бегового клуба Physhka"

// Start handles /start and /menu. A numeric start parameter deep-links
// straight into the event's sign-up card.
func (h *Handlers) Start(c tele.Context) error {
	if id, ok := startParameter(c); ok {
		return h.eventCardByID(c, id)
	}
	return h.Menu(c)
}

// Menu renders the role-appropriate main menu. Admins additionally see
// member and event totals in the header.
func (h *Handlers) Menu(c tele.Context) error {
	rows := [][]keyboard.InlineBtn{
		{{Text: "📅 Ближайшие забеги", Unique: CallbackEvents}},
		{{Text: "🏃 Мои забеги", Unique: CallbackMyRaces}},
		{{Text: "🏙 Сменить город", Unique: CallbackCityMenu}},
	}

	text := welcomeText
	if h.IsAdmin(c) {
		rows = append(rows, []keyboard.InlineBtn{{Text: "🗓 Создать забег", Unique: CallbackCreateEvent}})
		text += h.adminHeader(c)
	}

	return tghelpers.SendHTML(c, text, keyboard.InlineButtonsRows(rows...))
}

// Cancel aborts whatever dialogue is active and returns to the menu.
// Pressing it with no active dialogue is a harmless no-op.
func (h *Handlers) Cancel(c tele.Context) error {
	chatID := c.Sender().ID
	if h.fsm.InProgress(chatID) {
		h.fsm.Clear(chatID)
		if err := tghelpers.SendText(c, "Действие отменено"); err != nil {
			return err
		}
	}
	return h.Menu(c)
}

// Fallback answers free text that matched nothing.
func (h *Handlers) Fallback(c tele.Context) error {
	return tghelpers.SendText(c, "Я не понял сообщение. Нажмите /start, чтобы открыть меню.")
}

func (h *Handlers) adminHeader(c tele.Context) string {
	ctx := tghelpers.BuildContext(c)
	users, err := h.users.Count(ctx)
	if err != nil {
		logger.Warn(ctx, "club.menu", "count.users.fail", slog.String("err", err.Error()))
		return ""
	}
	events, err := h.events.Count(ctx)
	if err != nil {
		logger.Warn(ctx, "club.menu", "count.events.fail", slog.String("err", err.Error()))
		return ""
	}
	return fmt.Sprintf("\n\nУчастников: %d • Забегов: %d", users, events)
}

// startParameter extracts the numeric deep-link payload of a start
// command, either from the command payload or the trailing token.
func startParameter(c tele.Context) (int64, bool) {
	payload := ""
	if msg := c.Message(); msg != nil {
		payload = strings.TrimSpace(msg.Payload)
	}
	if payload == "" {
		fields := strings.Fields(c.Text())
		if len(fields) == 2 {
			payload = fields[1]
		}
	}
	if payload == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(payload, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
