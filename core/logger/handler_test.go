package logger

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"log/slog"
)

func TestStructuredHandlerKVOrder(t *testing.T) {
	buf := &bytes.Buffer{}
	aw := newAsyncWriter([]io.Writer{buf}, 1024)
	handler := newStructuredHandler(handlerConfig{
		level:    slog.LevelInfo,
		writer:   aw,
		format:   formatKV,
		keyOrder: append([]string(nil), defaultKeyOrder...),
	})
	ctx := WithRID(Background(), "rid-123")
	ctx = WithUpdateMeta(ctx, 42, 7, 9)

	log := slog.New(handler).With("component", "app")
	LogEvent(ctx, log, slog.LevelInfo, "test.event",
		slog.String("status", "ok"),
		slog.String("cause", "unit"),
	)
	if err := aw.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if err := aw.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	line := strings.TrimSpace(buf.String())
	if line == "" {
		t.Fatal("expected log line")
	}
	tokens := strings.Split(line, " ")
	if len(tokens) < 6 {
		t.Fatalf("unexpected token count: %d (%s)", len(tokens), line)
	}
	expected := []string{"ts=", "level=INFO", "component=app", "event=test.event", "status=ok", "rid=rid-123"}
	for i, prefix := range expected {
		if !strings.HasPrefix(tokens[i], prefix) {
			t.Fatalf("token %d = %s, expected prefix %s", i, tokens[i], prefix)
		}
	}
}

func TestStructuredHandlerJSONOrder(t *testing.T) {
	buf := &bytes.Buffer{}
	aw := newAsyncWriter([]io.Writer{buf}, 1024)
	handler := newStructuredHandler(handlerConfig{
		level:    slog.LevelInfo,
		writer:   aw,
		format:   formatJSON,
		keyOrder: append([]string(nil), defaultKeyOrder...),
	})
	ctx := WithRID(Background(), "rid-json")
	ctx = WithUpdateMeta(ctx, 11, 22, 33)

	log := slog.New(handler).With("component", "club.events")
	LogEvent(ctx, log, slog.LevelError, "event.create.failed",
		slog.String("status", "fail"),
		slog.String("err", "boom"),
		slog.String("err_code", "TEST_FAIL"),
	)
	if err := aw.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if err := aw.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	line := strings.TrimSpace(buf.String())
	if !strings.HasPrefix(line, "{") {
		t.Fatalf("expected JSON, got %s", line)
	}
	tsIdx := strings.Index(line, `"ts"`)
	levelIdx := strings.Index(line, `"level"`)
	componentIdx := strings.Index(line, `"component"`)
	errIdx := strings.Index(line, `"err"`)
	if tsIdx == -1 || levelIdx == -1 || componentIdx == -1 || errIdx == -1 {
		t.Fatalf("missing expected keys in line: %s", line)
	}
	if !(tsIdx < levelIdx && levelIdx < componentIdx && componentIdx < errIdx) {
		t.Fatalf("unexpected key order in line: %s", line)
	}
	if !strings.Contains(line, `"component":"club.events"`) {
		t.Fatalf("component attr lost: %s", line)
	}
}

func TestCompactRID(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"10:20:30", "a.k.u"},
		{"not-a-rid", "not-a-rid"},
		{"1:2", "1:2"},
	}
	for _, tc := range cases {
		if got := CompactRID(tc.in); got != tc.want {
			t.Errorf("CompactRID(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSanitizeLimit(t *testing.T) {
	if got := SanitizeLimit("abc\x00def", 10); got != "abcdef" {
		t.Errorf("control characters not stripped: %q", got)
	}
	if got := SanitizeLimit("привет, клуб", 6); got != "привет" {
		t.Errorf("rune limit broken: %q", got)
	}
}
