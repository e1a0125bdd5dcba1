package render

import (
	"strings"
	"testing"
	"time"

	"github.com/physhka/runclub-bot/club/domain"
)

func TestEventCardEscapesUserContent(t *testing.T) {
	card := EventCard(domain.Event{
		ID:          7,
		City:        "Москва",
		Description: "темп <б>быстрый</б> & весёлый",
		Date:        time.Date(2026, time.June, 15, 19, 0, 0, 0, time.UTC),
		Location:    "Парк Горького",
		Tempo:       "6:00",
	})

	for _, want := range []string{
		"<b>Забег</b> №7",
		"Москва",
		"15.06 в 19:00",
		"Парк Горького",
		"&lt;б&gt;быстрый&lt;/б&gt; &amp; весёлый",
	} {
		if !strings.Contains(card, want) {
			t.Errorf("card missing %q:\n%s", want, card)
		}
	}
	if strings.Contains(card, "<б>") {
		t.Errorf("unescaped user markup in card:\n%s", card)
	}
}

func TestProfileLine(t *testing.T) {
	line := ProfileLine(domain.User{
		ID:               10,
		Name:             "Анна",
		Phone:            "+79001234567",
		EmergencyContact: "Мама +79007654321",
	})

	if !strings.Contains(line, `<a href="tg://user?id=10">Анна</a>`) {
		t.Errorf("missing mention link:\n%s", line)
	}
	if !strings.Contains(line, "Phone: +79001234567") {
		t.Errorf("missing phone:\n%s", line)
	}
	if !strings.Contains(line, "Emergency Contact: Мама +79007654321") {
		t.Errorf("missing emergency contact:\n%s", line)
	}
}

func TestProfileLineFallsBackToID(t *testing.T) {
	line := ProfileLine(domain.User{ID: 10})
	if !strings.Contains(line, "id10") {
		t.Errorf("missing id fallback:\n%s", line)
	}
}

func TestLateness(t *testing.T) {
	cases := []struct {
		minutes int
		want    string
	}{
		{domain.LatenessAbsent, "не придёт"},
		{domain.LatenessOnTime, "вовремя"},
		{5, "опоздает на 5 мин"},
		{15, "опоздает на 15 мин"},
	}
	for _, tc := range cases {
		if got := Lateness(tc.minutes); got != tc.want {
			t.Errorf("Lateness(%d) = %q, want %q", tc.minutes, got, tc.want)
		}
	}
}

func TestDeepLink(t *testing.T) {
	if got := DeepLink("physhka_bot", 42); got != "https://t.me/physhka_bot?start=42" {
		t.Errorf("DeepLink = %q", got)
	}
}
