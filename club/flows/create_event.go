package flows

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/skip2/go-qrcode"

	"github.com/physhka/runclub-bot/club/domain"
	"github.com/physhka/runclub-bot/club/render"
	"github.com/physhka/runclub-bot/core/telegram/callbacks"
	"github.com/physhka/runclub-bot/core/telegram/format"
	"github.com/physhka/runclub-bot/core/telegram/helpers"
	"github.com/physhka/runclub-bot/core/telegram/keyboard"
	"github.com/physhka/runclub-bot/core/telegram/state"

	tele "gopkg.in/telebot.v4"
)

// EventDraft collects the fields of the event-creation dialogue in step order.
type EventDraft struct {
	City        string
	PhotoID     string
	Description string
	Date        time.Time
	Location    string
	Tempo       string
}

const (
	stateCreateCity        state.State = "create_event.city"
	stateCreatePhoto       state.State = "create_event.photo"
	stateCreateDescription state.State = "create_event.description"
	stateCreateDate        state.State = "create_event.date"
	stateCreateLocation    state.State = "create_event.location"
	stateCreateTempo       state.State = "create_event.tempo"
)

const datePromptText = "Введите дату забега (например, 15.06 в 19:00):"

func newCreateEvent(deps Deps) (*state.Flow[EventDraft], error) {
	return state.NewFlow(deps.Manager, state.FlowSpec[EventDraft]{
		Name: "create_event",
		Steps: []state.Step[EventDraft]{
			{
				State: stateCreateCity,
				Prompt: func(c tele.Context, d *EventDraft) error {
					return helpers.SendHTML(c, "Выберите город забега:", cityMarkup(deps.Cities))
				},
				Accept: func(c tele.Context, d *EventDraft) error {
					city := cityChoice(c, deps.Cities)
					if city == "" {
						_ = helpers.SendText(c, "Пожалуйста, выберите город кнопкой.")
						return state.ErrRetry
					}
					d.City = city
					return nil
				},
			},
			{
				State: stateCreatePhoto,
				Prompt: func(c tele.Context, d *EventDraft) error {
					return helpers.SendHTML(c, "Отправьте фото для забега:", keyboard.SingleCancelMarkup(CallbackCancel))
				},
				Accept: func(c tele.Context, d *EventDraft) error {
					msg := c.Message()
					if msg == nil || msg.Photo == nil {
						_ = helpers.SendText(c, "Пожалуйста, отправьте фото для забега.")
						return state.ErrRetry
					}
					d.PhotoID = msg.Photo.FileID
					return nil
				},
			},
			{
				State: stateCreateDescription,
				Prompt: func(c tele.Context, d *EventDraft) error {
					return helpers.SendHTML(c, "Фото сохранено. Теперь введите описание забега:", keyboard.SingleCancelMarkup(CallbackCancel))
				},
				Accept: acceptText(func(d *EventDraft, text string) { d.Description = text }),
			},
			{
				State: stateCreateDate,
				Prompt: func(c tele.Context, d *EventDraft) error {
					return helpers.SendHTML(c, datePromptText, keyboard.SingleCancelMarkup(CallbackCancel))
				},
				Accept: func(c tele.Context, d *EventDraft) error {
					date, err := domain.ParseEventDate(c.Text(), deps.Now())
					if err != nil {
						_ = helpers.SendText(c, "Не получилось разобрать дату. Формат: ДД.ММ в ЧЧ:ММ, например 15.06 в 19:00.")
						return state.ErrRetry
					}
					d.Date = date
					return nil
				},
			},
			{
				State: stateCreateLocation,
				Prompt: func(c tele.Context, d *EventDraft) error {
					return helpers.SendHTML(c, "Введите место проведения забега:", keyboard.SingleCancelMarkup(CallbackCancel))
				},
				Accept: acceptText(func(d *EventDraft, text string) { d.Location = text }),
			},
			{
				State: stateCreateTempo,
				Prompt: func(c tele.Context, d *EventDraft) error {
					return helpers.SendHTML(c, "Введите темп забега:", keyboard.SingleCancelMarkup(CallbackCancel))
				},
				Accept: acceptText(func(d *EventDraft, text string) { d.Tempo = text }),
			},
		},
		Commit: func(c tele.Context, d *EventDraft) error {
			ctx := helpers.BuildContext(c)

			id, err := deps.Events.Create(ctx, domain.Event{
				City:        d.City,
				Description: d.Description,
				Date:        d.Date,
				Location:    d.Location,
				Tempo:       d.Tempo,
				PhotoID:     d.PhotoID,
			})
			if err != nil {
				return fmt.Errorf("create event: %w", err)
			}

			link := render.DeepLink(deps.BotName, id)
			card := render.EventCard(domain.Event{
				ID:          id,
				City:        d.City,
				Description: d.Description,
				Date:        d.Date,
				Location:    d.Location,
				Tempo:       d.Tempo,
			})
			text := fmt.Sprintf("Забег успешно создан\n\n%s\n\nСсылка для записи: %s", card, format.EscapeHTML(link))
			if err := helpers.SendPhoto(c, d.PhotoID, text); err != nil {
				return err
			}
			return sendDeepLinkQR(c, link)
		},
		OnFail:   deps.OnFail,
		Fallback: deps.Menu,
	})
}

func cityMarkup(cities []string) *tele.ReplyMarkup {
	btns := make([]keyboard.InlineBtn, 0, len(cities))
	for _, city := range cities {
		btns = append(btns, keyboard.InlineBtn{Text: city, Unique: CallbackEventCity, Data: city})
	}
	return keyboard.WithCancelRow(keyboard.InlineButtonsNPerRow(btns, 2), CallbackCancel)
}

// cityChoice extracts the city from either the city button payload or a
// typed message matching a configured city.
func cityChoice(c tele.Context, cities []string) string {
	if cb := c.Callback(); cb != nil {
		key, payload := callbacks.Parse(cb)
		if key != CallbackEventCity {
			return ""
		}
		for _, city := range cities {
			if city == payload {
				return city
			}
		}
		return ""
	}
	text := strings.TrimSpace(c.Text())
	for _, city := range cities {
		if strings.EqualFold(city, text) {
			return city
		}
	}
	return ""
}

// sendDeepLinkQR renders the sign-up link as a QR code for offline
// distribution (posters, chats with link previews disabled).
func sendDeepLinkQR(c tele.Context, link string) error {
	png, err := qrcode.Encode(link, qrcode.Medium, 512)
	if err != nil {
		return fmt.Errorf("deep link qr: %w", err)
	}
	photo := &tele.Photo{File: tele.FromReader(bytes.NewReader(png))}
	return c.Send(photo)
}
