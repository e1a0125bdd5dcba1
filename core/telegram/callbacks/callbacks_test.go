package callbacks

import (
	"testing"

	tele "gopkg.in/telebot.v4"
)

func TestParse(t *testing.T) {
	cases := []struct {
		name        string
		cb          *tele.Callback
		wantKey     string
		wantPayload string
	}{
		{"nil", nil, "", ""},
		{"unique with data", &tele.Callback{Unique: "signup", Data: "7"}, "signup", "7"},
		{"raw data", &tele.Callback{Data: "late|7|10"}, "late", "7|10"},
		{"raw data no payload", &tele.Callback{Data: "events"}, "events", ""},
		{"wire prefixed", &tele.Callback{Data: "\fsignup|7"}, "signup", "7"},
	}
	for _, tc := range cases {
		key, payload := Parse(tc.cb)
		if key != tc.wantKey || payload != tc.wantPayload {
			t.Errorf("%s: Parse = (%q, %q), want (%q, %q)", tc.name, key, payload, tc.wantKey, tc.wantPayload)
		}
	}
}

type cbContext struct {
	tele.Context
	cb *tele.Callback
}

func (c cbContext) Callback() *tele.Callback { return c.cb }

func TestPayloadInt64(t *testing.T) {
	c := cbContext{cb: &tele.Callback{Unique: "signup", Data: " 42 "}}
	got, err := PayloadInt64(c)
	if err != nil || got != 42 {
		t.Fatalf("PayloadInt64 = (%d, %v), want (42, nil)", got, err)
	}

	c = cbContext{cb: &tele.Callback{Unique: "signup", Data: "abc"}}
	if _, err := PayloadInt64(c); err == nil {
		t.Fatal("malformed payload accepted")
	}
}

func TestPayloadTwoInt64(t *testing.T) {
	c := cbContext{cb: &tele.Callback{Unique: "late", Data: "7|-1"}}
	eventID, minutes, err := PayloadTwoInt64(c, "|")
	if err != nil || eventID != 7 || minutes != -1 {
		t.Fatalf("PayloadTwoInt64 = (%d, %d, %v), want (7, -1, nil)", eventID, minutes, err)
	}

	for _, data := range []string{"", "7", "7|x", "7|1|2"} {
		c = cbContext{cb: &tele.Callback{Unique: "late", Data: data}}
		if _, _, err := PayloadTwoInt64(c, "|"); err == nil {
			t.Errorf("payload %q accepted", data)
		}
	}
}
