package handlers

import (
	"errors"
	"fmt"

	"log/slog"

	"github.com/physhka/runclub-bot/club/domain"
	"github.com/physhka/runclub-bot/club/storage"
	"github.com/physhka/runclub-bot/core/logger"
	tghelpers "github.com/physhka/runclub-bot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// userContextKey is where the resolved user is stored on the Telebot context.
const userContextKey = "club_user"

// ResolveUser is the first pipeline stage: it loads the sender's user
// row, lazily creating it on first contact with the role taken from the
// admin allow-list. Every downstream handler can rely on the row existing.
func (h *Handlers) ResolveUser(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		sender := c.Sender()
		if sender == nil {
			return next(c)
		}
		ctx := tghelpers.BuildContext(c)

		user, err := h.users.GetByID(ctx, sender.ID)
		if errors.Is(err, storage.ErrNotFound) {
			user = domain.User{
				ID:   sender.ID,
				City: domain.CityAll,
				Role: h.defaultRole(sender.ID),
			}
			if err := h.users.Create(ctx, user); err != nil {
				return fmt.Errorf("resolve user %d: %w", sender.ID, err)
			}
			logger.Info(ctx, "club.users", "user.created",
				slog.Int64("user_id", sender.ID),
				slog.String("role", string(user.Role)),
			)
		} else if err != nil {
			return fmt.Errorf("resolve user %d: %w", sender.ID, err)
		}

		c.Set(userContextKey, user)
		return next(c)
	}
}

// DropBlocked is the second pipeline stage: blocked users get nothing,
// not even an error message.
func (h *Handlers) DropBlocked(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		if u, ok := CurrentUser(c); ok && u.Role == domain.RoleBlocked {
			return nil
		}
		return next(c)
	}
}

// CurrentUser returns the user resolved by the pipeline for this update.
func CurrentUser(c tele.Context) (domain.User, bool) {
	u, ok := c.Get(userContextKey).(domain.User)
	return u, ok
}

// IsAdmin reports whether the update's sender holds admin privileges,
// either by stored role or by the configured allow-list.
func (h *Handlers) IsAdmin(c tele.Context) bool {
	u, ok := CurrentUser(c)
	if !ok {
		return false
	}
	if u.Role == domain.RoleBlocked {
		return false
	}
	if u.Role == domain.RoleAdmin {
		return true
	}
	_, allowed := h.admins[u.ID]
	return allowed
}

func (h *Handlers) defaultRole(id int64) domain.Role {
	if _, ok := h.admins[id]; ok {
		return domain.RoleAdmin
	}
	return domain.RoleMember
}
