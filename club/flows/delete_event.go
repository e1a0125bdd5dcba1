package flows

import (
	"errors"
	"fmt"
	"strings"

	"github.com/physhka/runclub-bot/core/telegram/helpers"
	"github.com/physhka/runclub-bot/core/telegram/state"

	tele "gopkg.in/telebot.v4"
)

// DeleteDraft names the event awaiting delete confirmation.
type DeleteDraft struct {
	EventID int64
}

const stateDeleteConfirm state.State = "delete_event.confirm"

// affirmative is the only word that confirms deletion, case-insensitive.
const affirmative = "да"

func newDeleteEvent(deps Deps) (*state.Flow[DeleteDraft], error) {
	return state.NewFlow(deps.Manager, state.FlowSpec[DeleteDraft]{
		Name: "delete_event",
		Steps: []state.Step[DeleteDraft]{
			{
				State: stateDeleteConfirm,
				// The confirmation step deliberately has no cancel
				// button: any answer other than the affirmative aborts.
				Prompt: func(c tele.Context, d *DeleteDraft) error {
					return helpers.SendHTML(c,
						fmt.Sprintf("Удалить забег №%d вместе со всеми записями? Введите «да» для подтверждения.", d.EventID))
				},
				Accept: func(c tele.Context, d *DeleteDraft) error {
					if strings.EqualFold(strings.TrimSpace(c.Text()), affirmative) {
						return nil
					}
					_ = helpers.SendHTML(c, "Удаление отменено")
					return state.Abort(errors.New("deletion declined"))
				},
			},
		},
		Commit: func(c tele.Context, d *DeleteDraft) error {
			ctx := helpers.BuildContext(c)
			if err := deps.Events.Delete(ctx, d.EventID); err != nil {
				if isNotFound(err) {
					_ = helpers.SendHTML(c, "Забег не найден")
					return state.Abort(err)
				}
				return fmt.Errorf("delete event %d: %w", d.EventID, err)
			}
			return helpers.SendHTML(c, fmt.Sprintf("Забег №%d удалён", d.EventID))
		},
		OnFail:   deps.OnFail,
		Fallback: deps.Menu,
	})
}
