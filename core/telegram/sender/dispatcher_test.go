package sender

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"testing"
	"time"

	tele "gopkg.in/telebot.v4"
)

func TestDispatcherRunsEnqueuedJob(t *testing.T) {
	d := NewDispatcher(Options{QueueSize: 4, Workers: 1})
	defer d.Close()

	done := make(chan struct{})
	err := d.Enqueue(context.Background(), "send.text", "sendMessage", func() error {
		close(done)
		return nil
	})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("job never ran")
	}
}

func TestDispatcherRetriesRetryableErrors(t *testing.T) {
	d := NewDispatcher(Options{
		QueueSize:    4,
		Workers:      1,
		MaxRetries:   2,
		RetryBackoff: time.Millisecond,
	})
	defer d.Close()

	var mu sync.Mutex
	attempts := 0
	done := make(chan struct{})
	err := d.Enqueue(context.Background(), "send.text", "sendMessage", func() error {
		mu.Lock()
		defer mu.Unlock()
		attempts++
		if attempts < 3 {
			return &net.OpError{Op: "dial", Err: errors.New("connection refused")}
		}
		close(done)
		return nil
	})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("job never succeeded")
	}
	mu.Lock()
	defer mu.Unlock()
	if attempts != 3 {
		t.Fatalf("attempts = %d, want 3", attempts)
	}
	if d.ErrorCount() != 0 {
		t.Fatalf("error count = %d after eventual success", d.ErrorCount())
	}
}

func TestDispatcherRejectsWhenFull(t *testing.T) {
	d := NewDispatcher(Options{QueueSize: 1, Workers: 1})
	defer d.Close()

	release := make(chan struct{})
	blocker := func() error { <-release; return nil }

	// First job occupies the worker, second fills the queue.
	if err := d.Enqueue(context.Background(), "a", "", blocker); err != nil {
		t.Fatalf("enqueue 1: %v", err)
	}

	full := false
	for i := 0; i < 50; i++ {
		if err := d.Enqueue(context.Background(), "b", "", blocker); errors.Is(err, ErrQueueFull) {
			full = true
			break
		}
	}
	close(release)
	if !full {
		t.Fatal("saturated queue never rejected a job")
	}
}

func TestDispatcherClosedQueue(t *testing.T) {
	d := NewDispatcher(Options{QueueSize: 1, Workers: 1})
	d.Close()

	err := d.Enqueue(context.Background(), "a", "", func() error { return nil })
	if !errors.Is(err, ErrQueueClosed) {
		t.Fatalf("err = %v, want ErrQueueClosed", err)
	}
}

func TestClassifyError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"deadline", context.DeadlineExceeded, "timeout"},
		{"dns", &net.DNSError{Name: "api.telegram.org"}, "dns"},
		{"dial", &net.OpError{Op: "dial", Err: errors.New("refused")}, "dial"},
		{"api 400", &tele.Error{Code: 400, Description: "bad request"}, "http_4xx"},
		{"api 502", &tele.Error{Code: 502, Description: "bad gateway"}, "http_5xx"},
		{"flood", tele.FloodError{RetryAfter: 5}, "http_4xx"},
		{"plain", errors.New("boom"), "unknown"},
	}
	for _, tc := range cases {
		if got := classifyError(tc.err); got != tc.want {
			t.Errorf("%s: classifyError = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestSanitizeErrorMessageRedactsToken(t *testing.T) {
	err := fmt.Errorf("Post \"https://api.telegram.org/bot12345:AAbbCCdd-ee_ff/sendMessage\": timeout")
	got := sanitizeErrorMessage(err)
	if got != "Post \"https://api.telegram.org/bot<redacted>/sendMessage\": timeout" {
		t.Fatalf("sanitized = %q", got)
	}
}
