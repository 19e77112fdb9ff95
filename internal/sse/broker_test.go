package sse

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newBroker(throttle time.Duration) *Broker {
	return NewBroker(Options{
		ReloadThrottle: throttle,
		Logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

func receive(t *testing.T, ch chan []byte) string {
	t.Helper()
	select {
	case msg := <-ch:
		return string(msg)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
		return ""
	}
}

func drain(ch chan []byte, wait time.Duration) []string {
	var msgs []string
	deadline := time.After(wait)
	for {
		select {
		case msg := <-ch:
			msgs = append(msgs, string(msg))
		case <-deadline:
			return msgs
		}
	}
}

func TestSubscribeUnsubscribe(t *testing.T) {
	b := newBroker(100 * time.Millisecond)
	defer b.Close()
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients")
	}
	ch := b.Subscribe()
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}
	b.Unsubscribe(ch)
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after unsub")
	}
}

func TestPublishDelivery(t *testing.T) {
	b := newBroker(100 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.Publish(Event{Type: EventReloaded, Data: map[string]string{"path": "a.md"}})

	s := receive(t, ch)
	if !strings.HasPrefix(s, "id: 1\nevent: collection.reloaded\n") {
		t.Errorf("unexpected frame header in %q", s)
	}
	if !strings.Contains(s, `data: {"path":"a.md"}`+"\n\n") {
		t.Errorf("missing data in %q", s)
	}

	b.Publish(Event{Type: EventReloaded, Data: 2})
	if s := receive(t, ch); !strings.HasPrefix(s, "id: 2\n") {
		t.Errorf("ids should increase, got %q", s)
	}
}

func TestPublishReload_Throttle(t *testing.T) {
	b := newBroker(300 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	// First reload goes out immediately; the next two collapse into one
	// trailing event carrying the latest data.
	b.PublishReload(map[string]int{"total_items": 1})
	b.PublishReload(map[string]int{"total_items": 2})
	b.PublishReload(map[string]int{"total_items": 3})

	msgs := drain(ch, 100*time.Millisecond)
	if len(msgs) != 1 {
		t.Fatalf("immediate events = %d, want 1: %q", len(msgs), msgs)
	}
	if !strings.Contains(msgs[0], "event: collection.reloaded") || !strings.Contains(msgs[0], `"total_items":1`) {
		t.Errorf("first event = %q", msgs[0])
	}

	msgs = drain(ch, 500*time.Millisecond)
	if len(msgs) != 1 {
		t.Fatalf("trailing events = %d, want 1: %q", len(msgs), msgs)
	}
	if !strings.Contains(msgs[0], `"total_items":3`) {
		t.Errorf("trailing event = %q, want latest data", msgs[0])
	}
}

func TestPublishReloadFailed(t *testing.T) {
	b := newBroker(time.Second)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.PublishReloadFailed(errors.New("no sources"))

	s := receive(t, ch)
	if !strings.Contains(s, "event: collection.reload_failed") {
		t.Errorf("missing event type in %q", s)
	}
	if !strings.Contains(s, `"error":"no sources"`) {
		t.Errorf("missing error in %q", s)
	}
}

func TestSubscribeAfterReplaysMissedEvents(t *testing.T) {
	b := newBroker(time.Second)
	defer b.Close()

	// A subscriber keeps the loop in step so all three are recorded.
	first := b.Subscribe()
	defer b.Unsubscribe(first)
	for i := 1; i <= 3; i++ {
		b.Publish(Event{Type: EventReloaded, Data: i})
		receive(t, first)
	}

	late := b.SubscribeAfter(1)
	defer b.Unsubscribe(late)
	msgs := drain(late, 100*time.Millisecond)
	if len(msgs) != 2 {
		t.Fatalf("replayed = %d, want 2: %q", len(msgs), msgs)
	}
	if !strings.HasPrefix(msgs[0], "id: 2\n") || !strings.HasPrefix(msgs[1], "id: 3\n") {
		t.Errorf("replay out of order: %q", msgs)
	}

	fresh := b.Subscribe()
	defer b.Unsubscribe(fresh)
	if msgs := drain(fresh, 50*time.Millisecond); len(msgs) != 0 {
		t.Errorf("plain subscribe should not replay: %q", msgs)
	}
}

func TestHistoryIsBounded(t *testing.T) {
	b := newBroker(time.Second)
	defer b.Close()

	sink := b.Subscribe()
	defer b.Unsubscribe(sink)
	for i := 0; i < historySize+5; i++ {
		b.Publish(Event{Type: "test", Data: i})
		receive(t, sink)
	}

	late := b.SubscribeAfter(1)
	defer b.Unsubscribe(late)
	msgs := drain(late, 100*time.Millisecond)
	if len(msgs) != historySize {
		t.Fatalf("replayed = %d, want %d", len(msgs), historySize)
	}
	if !strings.HasPrefix(msgs[0], "id: 6\n") {
		t.Errorf("oldest replayed = %q, want id 6", msgs[0])
	}
}

func TestSSEHandler(t *testing.T) {
	b := newBroker(100 * time.Millisecond)
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
	req = req.WithContext(ctx)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		b.ServeHTTP(w, req)
		close(done)
	}()

	// Give handler time to subscribe.
	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client from handler")
	}

	b.Publish(Event{Type: EventReloaded, Data: map[string]string{"path": "x.md"}})
	time.Sleep(50 * time.Millisecond)

	cancel()
	<-done

	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("content type = %q", ct)
	}
	body := w.Body.String()
	if !strings.HasPrefix(body, "retry: 3000\n\n") {
		t.Errorf("missing retry hint: %q", body)
	}
	if !strings.Contains(body, "event: collection.reloaded") {
		t.Errorf("handler output missing event: %q", body)
	}

	// Client should be cleaned up.
	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 0 {
		t.Errorf("client not cleaned up after disconnect")
	}
}

func TestSSEHandlerLastEventID(t *testing.T) {
	b := newBroker(time.Second)
	defer b.Close()

	sink := b.Subscribe()
	b.Publish(Event{Type: EventReloaded, Data: "one"})
	b.Publish(Event{Type: EventReloaded, Data: "two"})
	receive(t, sink)
	receive(t, sink)
	b.Unsubscribe(sink)

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/api/events", nil).WithContext(ctx)
	req.Header.Set("Last-Event-ID", "1")
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		b.ServeHTTP(w, req)
		close(done)
	}()
	time.Sleep(50 * time.Millisecond)
	cancel()
	<-done

	body := w.Body.String()
	if strings.Contains(body, `"one"`) {
		t.Errorf("event 1 was already seen: %q", body)
	}
	if !strings.Contains(body, "id: 2\n") || !strings.Contains(body, `data: "two"`) {
		t.Errorf("missed event not replayed: %q", body)
	}
}

func TestSSEHandlerHeartbeat(t *testing.T) {
	b := NewBroker(Options{
		ReloadThrottle: time.Second,
		Heartbeat:      20 * time.Millisecond,
		Logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/api/events", nil).WithContext(ctx)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		b.ServeHTTP(w, req)
		close(done)
	}()
	time.Sleep(100 * time.Millisecond)
	cancel()
	<-done

	if !strings.Contains(w.Body.String(), ": keep-alive\n\n") {
		t.Errorf("no heartbeat in %q", w.Body.String())
	}
}

func TestPublishDropsOnFullBuffer(t *testing.T) {
	b := newBroker(time.Second)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	// One more than the client buffer must not block the loop.
	for i := 0; i < clientBuffer+6; i++ {
		b.Publish(Event{Type: "test", Data: map[string]string{"i": "x"}})
	}
	if b.ClientCount() != 1 {
		t.Fatalf("expected the slow client to stay connected")
	}
}

func TestCloseClosesSubscribersAndStopsOperations(t *testing.T) {
	b := newBroker(100 * time.Millisecond)
	ch := b.Subscribe()
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}

	b.Close()
	b.Close()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected subscriber channel to be closed")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for channel close")
	}

	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after close")
	}

	// Safe no-ops after close.
	b.Publish(Event{Type: EventReloaded, Data: map[string]string{"path": "x.md"}})
	b.PublishReload(map[string]string{"path": "x.md"})
	if _, ok := <-b.Subscribe(); ok {
		t.Fatal("subscribe after close should return a closed channel")
	}
}
