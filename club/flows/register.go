package flows

import (
	"errors"
	"fmt"
	"strings"

	"github.com/physhka/runclub-bot/club/domain"
	"github.com/physhka/runclub-bot/club/storage"
	"github.com/physhka/runclub-bot/core/telegram/helpers"
	"github.com/physhka/runclub-bot/core/telegram/keyboard"
	"github.com/physhka/runclub-bot/core/telegram/state"

	tele "gopkg.in/telebot.v4"
)

// MemberDraft collects the profile fields of the registration dialogue.
// PendingEventID is set when the dialogue was entered as a sign-up
// detour; the terminal commit then also creates the registration.
type MemberDraft struct {
	Name             string
	Phone            string
	EmergencyContact string
	PendingEventID   int64
}

const (
	stateRegisterName      state.State = "register.name"
	stateRegisterPhone     state.State = "register.phone"
	stateRegisterEmergency state.State = "register.emergency_contact"
)

func newRegisterMember(deps Deps) (*state.Flow[MemberDraft], error) {
	return state.NewFlow(deps.Manager, state.FlowSpec[MemberDraft]{
		Name: "register_member",
		Steps: []state.Step[MemberDraft]{
			{
				State: stateRegisterName,
				Prompt: func(c tele.Context, d *MemberDraft) error {
					prompt := "Введите ваше имя:"
					if d.PendingEventID != 0 {
						prompt = "Необходимо пройти регистрацию. Введите ваше имя:"
					}
					return helpers.SendHTML(c, prompt, keyboard.SingleCancelMarkup(CallbackCancel))
				},
				Accept: acceptText(func(d *MemberDraft, text string) { d.Name = text }),
			},
			{
				State: stateRegisterPhone,
				Prompt: func(c tele.Context, d *MemberDraft) error {
					return helpers.SendHTML(c, "Введите ваш номер телефона:", keyboard.SingleCancelMarkup(CallbackCancel))
				},
				Accept: acceptText(func(d *MemberDraft, text string) { d.Phone = text }),
			},
			{
				State: stateRegisterEmergency,
				Prompt: func(c tele.Context, d *MemberDraft) error {
					return helpers.SendHTML(c, "Введите телефон экстренного контакта и его имя:", keyboard.SingleCancelMarkup(CallbackCancel))
				},
				Accept: acceptText(func(d *MemberDraft, text string) { d.EmergencyContact = text }),
			},
		},
		Commit: func(c tele.Context, d *MemberDraft) error {
			ctx := helpers.BuildContext(c)
			userID := c.Sender().ID

			if err := deps.Users.UpdateProfile(ctx, userID, d.Name, d.Phone, d.EmergencyContact); err != nil {
				return fmt.Errorf("register member: %w", err)
			}

			if d.PendingEventID == 0 {
				return helpers.SendHTML(c, "Регистрация завершена. Добро пожаловать в клуб!")
			}

			event, err := deps.Events.GetByID(ctx, d.PendingEventID)
			if err != nil {
				if isNotFound(err) {
					_ = helpers.SendHTML(c, "Забег не найден")
					return state.Abort(err)
				}
				return fmt.Errorf("register member: pending event: %w", err)
			}
			if err := deps.Registrations.Register(ctx, userID, event.ID, domain.LatenessOnTime); err != nil {
				return fmt.Errorf("register member: sign up: %w", err)
			}
			return helpers.SendHTML(c, fmt.Sprintf("Вы успешно записались на забег номер %d", event.ID))
		},
		OnFail:   deps.OnFail,
		Fallback: deps.Menu,
	})
}

// acceptText builds an Accept that requires a non-empty text message.
func acceptText[D any](set func(d *D, text string)) func(c tele.Context, d *D) error {
	return func(c tele.Context, d *D) error {
		text := strings.TrimSpace(c.Text())
		if text == "" {
			_ = helpers.SendText(c, "Пожалуйста, отправьте ответ текстом.")
			return state.ErrRetry
		}
		set(d, text)
		return nil
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, storage.ErrNotFound)
}
