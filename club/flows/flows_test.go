package flows

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/physhka/runclub-bot/club/domain"
	"github.com/physhka/runclub-bot/club/storage"
	"github.com/physhka/runclub-bot/core/telegram/state"

	tele "gopkg.in/telebot.v4"
)

// fakeContext stubs the slice of tele.Context the dialogues touch.
type fakeContext struct {
	tele.Context

	sender *tele.User
	msg    *tele.Message
	cb     *tele.Callback
	store  map[string]any
	sent   []any
}

func newFakeContext(userID int64) *fakeContext {
	return &fakeContext{
		sender: &tele.User{ID: userID},
		store:  make(map[string]any),
	}
}

func (c *fakeContext) withText(text string) *fakeContext {
	c.msg = &tele.Message{Text: text}
	c.cb = nil
	return c
}

func (c *fakeContext) withPhoto(fileID string) *fakeContext {
	c.msg = &tele.Message{Photo: &tele.Photo{File: tele.File{FileID: fileID}}}
	c.cb = nil
	return c
}

func (c *fakeContext) withCallback(unique, data string) *fakeContext {
	c.msg = nil
	c.cb = &tele.Callback{Unique: unique, Data: data}
	return c
}

func (c *fakeContext) Update() tele.Update      { return tele.Update{ID: 1} }
func (c *fakeContext) Sender() *tele.User       { return c.sender }
func (c *fakeContext) Chat() *tele.Chat         { return &tele.Chat{ID: c.sender.ID} }
func (c *fakeContext) Message() *tele.Message   { return c.msg }
func (c *fakeContext) Callback() *tele.Callback { return c.cb }

func (c *fakeContext) Text() string {
	if c.msg == nil {
		return ""
	}
	return c.msg.Text
}

func (c *fakeContext) Get(key string) any    { return c.store[key] }
func (c *fakeContext) Set(key string, v any) { c.store[key] = v }

func (c *fakeContext) Send(what any, _ ...any) error {
	c.sent = append(c.sent, what)
	return nil
}

func (c *fakeContext) sentContains(substr string) bool {
	for _, v := range c.sent {
		switch m := v.(type) {
		case string:
			if strings.Contains(m, substr) {
				return true
			}
		case *tele.Photo:
			if strings.Contains(m.Caption, substr) {
				return true
			}
		}
	}
	return false
}

type profileWrite struct {
	id                             int64
	name, phone, emergencyContact string
}

type fakeUsers struct {
	profiles []profileWrite
	err      error
}

func (f *fakeUsers) UpdateProfile(_ context.Context, id int64, name, phone, emergencyContact string) error {
	if f.err != nil {
		return f.err
	}
	f.profiles = append(f.profiles, profileWrite{id, name, phone, emergencyContact})
	return nil
}

type fakeEvents struct {
	byID    map[int64]domain.Event
	nextID  int64
	created []domain.Event
	updated []domain.Event
	deleted []int64
}

func newFakeEvents() *fakeEvents {
	return &fakeEvents{byID: make(map[int64]domain.Event), nextID: 100}
}

func (f *fakeEvents) GetByID(_ context.Context, id int64) (domain.Event, error) {
	e, ok := f.byID[id]
	if !ok {
		return domain.Event{}, storage.ErrNotFound
	}
	return e, nil
}

func (f *fakeEvents) Create(_ context.Context, e domain.Event) (int64, error) {
	f.nextID++
	e.ID = f.nextID
	f.byID[e.ID] = e
	f.created = append(f.created, e)
	return e.ID, nil
}

func (f *fakeEvents) Update(_ context.Context, e domain.Event) error {
	if _, ok := f.byID[e.ID]; !ok {
		return storage.ErrNotFound
	}
	f.byID[e.ID] = e
	f.updated = append(f.updated, e)
	return nil
}

func (f *fakeEvents) Delete(_ context.Context, id int64) error {
	if _, ok := f.byID[id]; !ok {
		return storage.ErrNotFound
	}
	delete(f.byID, id)
	f.deleted = append(f.deleted, id)
	return nil
}

type signupWrite struct {
	userID, eventID int64
	lateness        int
}

type fakeRegs struct {
	signups []signupWrite
}

func (f *fakeRegs) Register(_ context.Context, userID, eventID int64, lateness int) error {
	f.signups = append(f.signups, signupWrite{userID, eventID, lateness})
	return nil
}

type flowHarness struct {
	mgr    state.Manager
	flows  *Flows
	users  *fakeUsers
	events *fakeEvents
	regs   *fakeRegs
}

func newFlowHarness(t *testing.T) *flowHarness {
	t.Helper()
	h := &flowHarness{
		mgr:    state.NewMemoryManager(),
		users:  &fakeUsers{},
		events: newFakeEvents(),
		regs:   &fakeRegs{},
	}
	fl, err := New(Deps{
		Manager:       h.mgr,
		Users:         h.users,
		Events:        h.events,
		Registrations: h.regs,
		Cities:        []string{"Москва", "Санкт-Петербург"},
		BotName:       "physhka_bot",
		Now:           func() time.Time { return time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC) },
	})
	if err != nil {
		t.Fatalf("build flows: %v", err)
	}
	h.flows = fl
	return h
}

func (h *flowHarness) answer(t *testing.T, c *fakeContext, text string) {
	t.Helper()
	if err := h.mgr.HandleActive(c.withText(text)); err != nil {
		t.Fatalf("answer %q: %v", text, err)
	}
}

func TestRegisterMemberCollectsProfile(t *testing.T) {
	h := newFlowHarness(t)
	c := newFakeContext(10)

	if err := h.flows.RegisterMember.Start(c, MemberDraft{}); err != nil {
		t.Fatalf("start: %v", err)
	}
	h.answer(t, c, "Анна")
	h.answer(t, c, "+79001234567")
	h.answer(t, c, "Мама +79007654321")

	if len(h.users.profiles) != 1 {
		t.Fatalf("profile writes = %d, want 1", len(h.users.profiles))
	}
	got := h.users.profiles[0]
	if got.id != 10 || got.name != "Анна" || got.phone != "+79001234567" || got.emergencyContact != "Мама +79007654321" {
		t.Fatalf("profile = %+v", got)
	}
	if len(h.regs.signups) != 0 {
		t.Fatal("plain registration created a sign-up")
	}
	if h.mgr.InProgress(10) {
		t.Fatal("session survived commit")
	}
	if !c.sentContains("Регистрация завершена") {
		t.Fatalf("missing completion message, sent %v", c.sent)
	}
}

func TestRegisterMemberSignupDetourFinishesSignup(t *testing.T) {
	h := newFlowHarness(t)
	h.events.byID[5] = domain.Event{ID: 5, City: "Москва"}
	c := newFakeContext(10)

	if err := h.flows.RegisterMember.Start(c, MemberDraft{PendingEventID: 5}); err != nil {
		t.Fatalf("start: %v", err)
	}
	if !c.sentContains("Необходимо пройти регистрацию") {
		t.Fatalf("detour prompt missing, sent %v", c.sent)
	}

	h.answer(t, c, "Анна")
	h.answer(t, c, "+79001234567")
	h.answer(t, c, "Мама +79007654321")

	if len(h.regs.signups) != 1 {
		t.Fatalf("signups = %d, want 1", len(h.regs.signups))
	}
	if s := h.regs.signups[0]; s.userID != 10 || s.eventID != 5 || s.lateness != domain.LatenessOnTime {
		t.Fatalf("signup = %+v", s)
	}
	if !c.sentContains("Вы успешно записались на забег номер 5") {
		t.Fatalf("missing signup confirmation, sent %v", c.sent)
	}
}

func TestRegisterMemberPendingEventGoneAborts(t *testing.T) {
	h := newFlowHarness(t)
	c := newFakeContext(10)

	if err := h.flows.RegisterMember.Start(c, MemberDraft{PendingEventID: 404}); err != nil {
		t.Fatalf("start: %v", err)
	}
	h.answer(t, c, "Анна")
	h.answer(t, c, "+79001234567")
	h.answer(t, c, "Мама")

	if len(h.regs.signups) != 0 {
		t.Fatal("sign-up written for a deleted event")
	}
	if h.mgr.InProgress(10) {
		t.Fatal("session survived abort")
	}
	if !c.sentContains("Забег не найден") {
		t.Fatalf("missing not-found reply, sent %v", c.sent)
	}
}

func TestRegisterMemberEmptyAnswerRepeatsStep(t *testing.T) {
	h := newFlowHarness(t)
	c := newFakeContext(10)

	if err := h.flows.RegisterMember.Start(c, MemberDraft{}); err != nil {
		t.Fatalf("start: %v", err)
	}
	h.answer(t, c, "   ")

	if got := h.mgr.State(10); got != stateRegisterName {
		t.Fatalf("state after empty answer = %q, want %q", got, stateRegisterName)
	}
	if len(h.users.profiles) != 0 {
		t.Fatal("empty answer reached commit")
	}
}

func TestCreateEventEndToEnd(t *testing.T) {
	h := newFlowHarness(t)
	c := newFakeContext(1)

	if err := h.flows.CreateEvent.Start(c, EventDraft{}); err != nil {
		t.Fatalf("start: %v", err)
	}

	// City arrives as a button press, not text.
	if err := h.mgr.HandleActive(c.withCallback(CallbackEventCity, "Москва")); err != nil {
		t.Fatalf("city: %v", err)
	}
	if err := h.mgr.HandleActive(c.withPhoto("photo-file-id")); err != nil {
		t.Fatalf("photo: %v", err)
	}
	h.answer(t, c, "Вечерний забег по набережной")

	// A malformed date repeats the step before the good one advances.
	h.answer(t, c, "15/06 19:00")
	if got := h.mgr.State(1); got != stateCreateDate {
		t.Fatalf("state after bad date = %q, want %q", got, stateCreateDate)
	}
	h.answer(t, c, "15.06 в 19:00")
	h.answer(t, c, "Парк Горького")
	h.answer(t, c, "6:00 мин/км")

	if len(h.events.created) != 1 {
		t.Fatalf("events created = %d, want 1", len(h.events.created))
	}
	e := h.events.created[0]
	if e.City != "Москва" || e.PhotoID != "photo-file-id" || e.Location != "Парк Горького" || e.Tempo != "6:00 мин/км" {
		t.Fatalf("created event = %+v", e)
	}
	want := time.Date(2026, time.June, 15, 19, 0, 0, 0, time.UTC)
	if !e.Date.Equal(want) {
		t.Fatalf("event date = %v, want %v", e.Date, want)
	}
	if !c.sentContains("t.me/physhka_bot?start=101") {
		t.Fatalf("announcement missing deep link, sent %v", c.sent)
	}
	if h.mgr.InProgress(1) {
		t.Fatal("session survived commit")
	}
}

func TestCreateEventRejectsUnknownCity(t *testing.T) {
	h := newFlowHarness(t)
	c := newFakeContext(1)

	if err := h.flows.CreateEvent.Start(c, EventDraft{}); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := h.mgr.HandleActive(c.withCallback(CallbackEventCity, "Лондон")); err != nil {
		t.Fatalf("city: %v", err)
	}
	if got := h.mgr.State(1); got != stateCreateCity {
		t.Fatalf("state after unknown city = %q, want %q", got, stateCreateCity)
	}
}

func TestCreateEventAcceptsTypedCity(t *testing.T) {
	h := newFlowHarness(t)
	c := newFakeContext(1)

	if err := h.flows.CreateEvent.Start(c, EventDraft{}); err != nil {
		t.Fatalf("start: %v", err)
	}
	h.answer(t, c, "москва")
	if got := h.mgr.State(1); got != stateCreatePhoto {
		t.Fatalf("state after typed city = %q, want %q", got, stateCreatePhoto)
	}
	d, ok := h.mgr.Draft(1).(*EventDraft)
	if !ok || d.City != "Москва" {
		t.Fatalf("draft city = %+v", d)
	}
}

func TestCancelledCreateEventWritesNothing(t *testing.T) {
	h := newFlowHarness(t)
	c := newFakeContext(1)

	if err := h.flows.CreateEvent.Start(c, EventDraft{}); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := h.mgr.HandleActive(c.withCallback(CallbackEventCity, "Москва")); err != nil {
		t.Fatalf("city: %v", err)
	}
	if err := h.mgr.HandleActive(c.withPhoto("photo-file-id")); err != nil {
		t.Fatalf("photo: %v", err)
	}

	// The cancel button clears the session mid-dialogue.
	h.mgr.Clear(1)

	if len(h.events.created) != 0 {
		t.Fatal("cancelled dialogue persisted an event")
	}
	if h.mgr.InProgress(1) {
		t.Fatal("session survived cancel")
	}
}

func TestEditEventKeepsFieldsOnDash(t *testing.T) {
	h := newFlowHarness(t)
	orig := domain.Event{
		ID:          7,
		City:        "Москва",
		Description: "старое описание",
		Date:        time.Date(2026, time.June, 15, 19, 0, 0, 0, time.UTC),
		Location:    "старое место",
		Tempo:       "старый темп",
	}
	h.events.byID[7] = orig
	c := newFakeContext(1)

	if err := h.flows.EditEvent.Start(c, EditDraft{Event: orig}); err != nil {
		t.Fatalf("start: %v", err)
	}
	h.answer(t, c, "новое описание")
	h.answer(t, c, "-")
	h.answer(t, c, "-")
	h.answer(t, c, "новый темп")

	if len(h.events.updated) != 1 {
		t.Fatalf("updates = %d, want 1", len(h.events.updated))
	}
	got := h.events.updated[0]
	if got.Description != "новое описание" || got.Tempo != "новый темп" {
		t.Fatalf("updated event = %+v", got)
	}
	if got.Location != orig.Location || !got.Date.Equal(orig.Date) {
		t.Fatalf("dash answers overwrote fields: %+v", got)
	}
}

func TestEditEventVanishedAborts(t *testing.T) {
	h := newFlowHarness(t)
	orig := domain.Event{ID: 7, Date: time.Date(2026, time.June, 15, 19, 0, 0, 0, time.UTC)}
	c := newFakeContext(1)

	if err := h.flows.EditEvent.Start(c, EditDraft{Event: orig}); err != nil {
		t.Fatalf("start: %v", err)
	}
	h.answer(t, c, "-")
	h.answer(t, c, "-")
	h.answer(t, c, "-")
	h.answer(t, c, "-")

	if h.mgr.InProgress(1) {
		t.Fatal("session survived vanished event")
	}
	if !c.sentContains("Забег не найден") {
		t.Fatalf("missing not-found reply, sent %v", c.sent)
	}
}

func TestDeleteEventConfirmed(t *testing.T) {
	h := newFlowHarness(t)
	h.events.byID[7] = domain.Event{ID: 7}
	c := newFakeContext(1)

	if err := h.flows.DeleteEvent.Start(c, DeleteDraft{EventID: 7}); err != nil {
		t.Fatalf("start: %v", err)
	}
	h.answer(t, c, "Да")

	if len(h.events.deleted) != 1 || h.events.deleted[0] != 7 {
		t.Fatalf("deleted = %v, want [7]", h.events.deleted)
	}
	if !c.sentContains("Забег №7 удалён") {
		t.Fatalf("missing deletion confirmation, sent %v", c.sent)
	}
}

func TestDeleteEventDeclined(t *testing.T) {
	h := newFlowHarness(t)
	h.events.byID[7] = domain.Event{ID: 7}
	c := newFakeContext(1)

	if err := h.flows.DeleteEvent.Start(c, DeleteDraft{EventID: 7}); err != nil {
		t.Fatalf("start: %v", err)
	}
	h.answer(t, c, "нет")

	if len(h.events.deleted) != 0 {
		t.Fatal("declined confirmation deleted the event")
	}
	if h.mgr.InProgress(1) {
		t.Fatal("session survived declined confirmation")
	}
	if !c.sentContains("Удаление отменено") {
		t.Fatalf("missing decline reply, sent %v", c.sent)
	}
}
