package handlers

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/physhka/runclub-bot/club/domain"
	"github.com/physhka/runclub-bot/club/flows"
	"github.com/physhka/runclub-bot/core/telegram/callbacks"
	tghelpers "github.com/physhka/runclub-bot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// Flow entry points. Authorization failures are silent no-ops: the
// button simply does not do anything for a non-admin.

// StartCreateEvent enters the event-creation dialogue.
func (h *Handlers) StartCreateEvent(c tele.Context) error {
	if !h.IsAdmin(c) {
		return nil
	}
	return h.flows.CreateEvent.Start(c, flows.EventDraft{})
}

// StartEditEvent captures the event at entry and enters the edit dialogue.
func (h *Handlers) StartEditEvent(c tele.Context) error {
	if !h.IsAdmin(c) {
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
		return fmt.Errorf("edit event %d: %w", eventID, err)
	}
	return h.flows.EditEvent.Start(c, flows.EditDraft{Event: event})
}

// StartDeleteEvent enters the delete confirmation dialogue.
func (h *Handlers) StartDeleteEvent(c tele.Context) error {
	if !h.IsAdmin(c) {
		return nil
	}
	eventID, err := callbacks.PayloadInt64(c)
	if err != nil {
		return nil
	}
	ctx := tghelpers.BuildContext(c)

	if _, err := h.events.GetByID(ctx, eventID); err != nil {
		if isNotFound(err) {
			return tghelpers.SendHTML(c, "Забег не найден")
		}
		return fmt.Errorf("delete event %d: %w", eventID, err)
	}
	return h.flows.DeleteEvent.Start(c, flows.DeleteDraft{EventID: eventID})
}

// Hidden admin commands for user management. The role setters and
// /forget take a numeric chat id.

// Promote grants the admin role.
func (h *Handlers) Promote(c tele.Context) error {
	return h.setRoleCommand(c, domain.RoleAdmin, "назначен администратором")
}

// Demote returns an admin to the member role.
func (h *Handlers) Demote(c tele.Context) error {
	return h.setRoleCommand(c, domain.RoleMember, "разжалован до участника")
}

// Ban blocks a user from the bot entirely.
func (h *Handlers) Ban(c tele.Context) error {
	return h.setRoleCommand(c, domain.RoleBlocked, "заблокирован")
}

// Unban restores a blocked user to the member role.
func (h *Handlers) Unban(c tele.Context) error {
	return h.setRoleCommand(c, domain.RoleMember, "разблокирован")
}

// Admins lists everyone holding the admin role.
func (h *Handlers) Admins(c tele.Context) error {
	if !h.IsAdmin(c) {
		return nil
	}
	ctx := tghelpers.BuildContext(c)
	admins, err := h.users.ListByRole(ctx, domain.RoleAdmin)
	if err != nil {
		return fmt.Errorf("list admins: %w", err)
	}
	if len(admins) == 0 {
		return tghelpers.SendText(c, "Администраторы не назначены")
	}

	var b strings.Builder
	b.WriteString("Администраторы:\n")
	for _, a := range admins {
		name := a.Name
		if name == "" {
			name = "(без имени)"
		}
		fmt.Fprintf(&b, "%d — %s\n", a.ID, name)
	}
	return tghelpers.SendText(c, b.String())
}

// Forget purges a user row entirely; their registrations cascade away.
func (h *Handlers) Forget(c tele.Context) error {
	if !h.IsAdmin(c) {
		return nil
	}
	args := c.Args()
	if len(args) != 1 {
		return tghelpers.SendText(c, "Укажите id пользователя, например: /forget 123456789")
	}
	targetID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || targetID <= 0 {
		return tghelpers.SendText(c, "Некорректный id пользователя")
	}
	ctx := tghelpers.BuildContext(c)

	if err := h.users.Delete(ctx, targetID); err != nil {
		return fmt.Errorf("forget %d: %w", targetID, err)
	}
	return tghelpers.SendText(c, fmt.Sprintf("Данные пользователя %d удалены", targetID))
}

func (h *Handlers) setRoleCommand(c tele.Context, role domain.Role, done string) error {
	if !h.IsAdmin(c) {
		return nil
	}
	args := c.Args()
	if len(args) != 1 {
		return tghelpers.SendText(c, "Укажите id пользователя, например: /promote 123456789")
	}
	targetID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || targetID <= 0 {
		return tghelpers.SendText(c, "Некорректный id пользователя")
	}
	ctx := tghelpers.BuildContext(c)

	if err := h.users.SetRole(ctx, targetID, role); err != nil {
		if isNotFound(err) {
			return tghelpers.SendText(c, "Пользователь не найден")
		}
		return fmt.Errorf("set role %s for %d: %w", role, targetID, err)
	}
	return tghelpers.SendText(c, fmt.Sprintf("Пользователь %d %s", targetID, done))
}
