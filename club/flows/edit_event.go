package flows

import (
	"fmt"
	"strings"

	"github.com/physhka/runclub-bot/club/domain"
	"github.com/physhka/runclub-bot/core/telegram/format"
	"github.com/physhka/runclub-bot/core/telegram/helpers"
	"github.com/physhka/runclub-bot/core/telegram/keyboard"
	"github.com/physhka/runclub-bot/core/telegram/state"

	tele "gopkg.in/telebot.v4"
)

// EditDraft carries the event captured at flow entry; each step
// overwrites one field unless the admin answers "-" to keep it.
type EditDraft struct {
	Event domain.Event
}

const (
	stateEditDescription state.State = "edit_event.description"
	stateEditDate        state.State = "edit_event.date"
	stateEditLocation    state.State = "edit_event.location"
	stateEditTempo       state.State = "edit_event.tempo"
)

// keepCurrent is the answer that leaves a field unchanged.
const keepCurrent = "-"

func newEditEvent(deps Deps) (*state.Flow[EditDraft], error) {
	return state.NewFlow(deps.Manager, state.FlowSpec[EditDraft]{
		Name: "edit_event",
		Steps: []state.Step[EditDraft]{
			{
				State: stateEditDescription,
				Prompt: func(c tele.Context, d *EditDraft) error {
					return helpers.SendHTML(c,
						fmt.Sprintf("Текущее описание:\n%s\n\nВведите новое описание (или «-», чтобы оставить):",
							format.EscapeHTML(d.Event.Description)),
						keyboard.SingleCancelMarkup(CallbackCancel))
				},
				Accept: acceptEdit(func(d *EditDraft, text string) { d.Event.Description = text }),
			},
			{
				State: stateEditDate,
				Prompt: func(c tele.Context, d *EditDraft) error {
					return helpers.SendHTML(c,
						fmt.Sprintf("Текущая дата: %s\n\nВведите новую дату (или «-», чтобы оставить):",
							domain.FormatEventDate(d.Event.Date)),
						keyboard.SingleCancelMarkup(CallbackCancel))
				},
				Accept: func(c tele.Context, d *EditDraft) error {
					text := strings.TrimSpace(c.Text())
					if text == keepCurrent {
						return nil
					}
					date, err := domain.ParseEventDate(text, deps.Now())
					if err != nil {
						_ = helpers.SendText(c, "Не получилось разобрать дату. Формат: ДД.ММ в ЧЧ:ММ, или «-», чтобы оставить текущую.")
						return state.ErrRetry
					}
					d.Event.Date = date
					return nil
				},
			},
			{
				State: stateEditLocation,
				Prompt: func(c tele.Context, d *EditDraft) error {
					return helpers.SendHTML(c,
						fmt.Sprintf("Текущее место: %s\n\nВведите новое место (или «-», чтобы оставить):",
							format.EscapeHTML(d.Event.Location)),
						keyboard.SingleCancelMarkup(CallbackCancel))
				},
				Accept: acceptEdit(func(d *EditDraft, text string) { d.Event.Location = text }),
			},
			{
				State: stateEditTempo,
				Prompt: func(c tele.Context, d *EditDraft) error {
					return helpers.SendHTML(c,
						fmt.Sprintf("Текущий темп: %s\n\nВведите новый темп (или «-», чтобы оставить):",
							format.EscapeHTML(d.Event.Tempo)),
						keyboard.SingleCancelMarkup(CallbackCancel))
				},
				Accept: acceptEdit(func(d *EditDraft, text string) { d.Event.Tempo = text }),
			},
		},
		Commit: func(c tele.Context, d *EditDraft) error {
			ctx := helpers.BuildContext(c)
			if err := deps.Events.Update(ctx, d.Event); err != nil {
				if isNotFound(err) {
					_ = helpers.SendHTML(c, "Забег не найден")
					return state.Abort(err)
				}
				return fmt.Errorf("edit event %d: %w", d.Event.ID, err)
			}
			return helpers.SendHTML(c, fmt.Sprintf("Забег №%d обновлён", d.Event.ID))
		},
		OnFail:   deps.OnFail,
		Fallback: deps.Menu,
	})
}

// acceptEdit requires text but treats "-" as "keep the current value".
func acceptEdit(set func(d *EditDraft, text string)) func(c tele.Context, d *EditDraft) error {
	return func(c tele.Context, d *EditDraft) error {
		text := strings.TrimSpace(c.Text())
		if text == "" {
			_ = helpers.SendText(c, "Пожалуйста, отправьте ответ текстом.")
			return state.ErrRetry
		}
		if text != keepCurrent {
			set(d, text)
		}
		return nil
	}
}
