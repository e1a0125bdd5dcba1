package state

import (
	"strings"

	tele "gopkg.in/telebot.v4"
)

// fakeContext stubs the slice of tele.Context the state engine touches.
// Unstubbed methods panic through the embedded nil interface, which is
// exactly what we want from a test double.
type fakeContext struct {
	tele.Context

	sender *tele.User
	chat   *tele.Chat
	msg    *tele.Message
	cb     *tele.Callback
	store  map[string]any
	sent   []any
}

func newFakeContext(userID int64) *fakeContext {
	return &fakeContext{
		sender: &tele.User{ID: userID},
		chat:   &tele.Chat{ID: userID},
		store:  make(map[string]any),
	}
}

func (c *fakeContext) withText(text string) *fakeContext {
	c.msg = &tele.Message{Text: text}
	c.cb = nil
	return c
}

func (c *fakeContext) Update() tele.Update      { return tele.Update{ID: 1} }
func (c *fakeContext) Sender() *tele.User       { return c.sender }
func (c *fakeContext) Chat() *tele.Chat         { return c.chat }
func (c *fakeContext) Message() *tele.Message   { return c.msg }
func (c *fakeContext) Callback() *tele.Callback { return c.cb }

func (c *fakeContext) Text() string {
	if c.msg == nil {
		return ""
	}
	return c.msg.Text
}

func (c *fakeContext) Args() []string {
	if c.msg == nil {
		return nil
	}
	if c.msg.Payload != "" {
		return strings.Fields(c.msg.Payload)
	}
	fields := strings.Fields(c.msg.Text)
	if len(fields) < 2 {
		return nil
	}
	return fields[1:]
}

func (c *fakeContext) Get(key string) any    { return c.store[key] }
func (c *fakeContext) Set(key string, v any) { c.store[key] = v }

func (c *fakeContext) Send(what any, _ ...any) error {
	c.sent = append(c.sent, what)
	return nil
}

func (c *fakeContext) EditOrSend(what any, _ ...any) error {
	c.sent = append(c.sent, what)
	return nil
}

func (c *fakeContext) Respond(_ ...*tele.CallbackResponse) error { return nil }

// sentTexts flattens everything sent as plain strings, ignoring photos
// and other payload kinds.
func (c *fakeContext) sentTexts() []string {
	var out []string
	for _, v := range c.sent {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func containsText(texts []string, want string) bool {
	for _, t := range texts {
		if strings.Contains(t, want) {
			return true
		}
	}
	return false
}
