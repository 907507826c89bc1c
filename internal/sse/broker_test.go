package sse

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

// recv waits for one frame on ch.
func recv(t *testing.T, ch <-chan []byte) string {
	t.Helper()
	select {
	case msg := <-ch:
		return string(msg)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
		return ""
	}
}

// drain collects whatever is queued on ch after the loop settles.
func drain(ch <-chan []byte) []string {
	time.Sleep(50 * time.Millisecond)
	var out []string
	for {
		select {
		case msg := <-ch:
			out = append(out, string(msg))
		default:
			return out
		}
	}
}

func countType(frames []string, typ string) int {
	n := 0
	for _, f := range frames {
		if strings.Contains(f, "event: "+typ+"\n") {
			n++
		}
	}
	return n
}

func TestBroker_SubscribeUnsubscribe(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()

	a, c := b.Subscribe(), b.Subscribe()
	if n := b.ClientCount(); n != 2 {
		t.Fatalf("clients = %d, want 2", n)
	}
	b.Unsubscribe(a)
	b.Unsubscribe(a) // second call is a no-op
	if n := b.ClientCount(); n != 1 {
		t.Fatalf("clients = %d after unsubscribe, want 1", n)
	}
	b.Unsubscribe(c)
}

func TestEncode_Frame(t *testing.T) {
	raw, err := encode(7, Event{Type: TypeChatUpdated, Data: map[string]string{"sessionId": "s1"}})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	want := "id: 7\nevent: chat.updated\ndata: {\"sessionId\":\"s1\"}\n\n"
	if string(raw) != want {
		t.Errorf("frame = %q, want %q", raw, want)
	}
	if _, err := encode(1, Event{Type: "bad", Data: make(chan int)}); err == nil {
		t.Error("unencodable data should fail")
	}
}

func TestPublish_SequentialIDs(t *testing.T) {
	b := NewBroker(time.Second)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.Publish(Event{Type: TypeChatUpdated, Data: map[string]string{"sessionId": "s1"}})
	b.Publish(Event{Type: TypeChatUpdated, Data: map[string]string{"sessionId": "s2"}})

	first, second := recv(t, ch), recv(t, ch)
	if !strings.HasPrefix(first, "id: 1\n") || !strings.Contains(first, `"s1"`) {
		t.Errorf("first = %q", first)
	}
	if !strings.HasPrefix(second, "id: 2\n") || !strings.Contains(second, `"s2"`) {
		t.Errorf("second = %q", second)
	}
}

func TestStateChanged_NotificationThrottle(t *testing.T) {
	b := NewBroker(500 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.StateChanged([]string{"schedule"})
	b.StateChanged([]string{"expenses"})
	// Contacts never affect notifications.
	b.StateChanged([]string{"contacts"})

	frames := drain(ch)
	if n := countType(frames, TypeStateChanged); n != 3 {
		t.Errorf("state events = %d, want 3", n)
	}
	if n := countType(frames, TypeNotificationsUpdated); n != 1 {
		t.Errorf("notification events = %d, want 1 (throttled)", n)
	}
}

func TestStateChanged_SettingsOnlyTriggersNotification(t *testing.T) {
	b := NewBroker(time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.StateChanged([]string{"chatSessions", "diary"})
	b.StateChanged([]string{"notificationSettings"})

	frames := drain(ch)
	if n := countType(frames, TypeNotificationsUpdated); n != 1 {
		t.Errorf("notification events = %d, want 1: %q", n, frames)
	}
}

func TestStateReloaded_CarriesKeys(t *testing.T) {
	b := NewBroker(time.Second)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.StateReloaded([]string{"contacts", "diary"})
	b.StateReloaded(nil)

	msg := recv(t, ch)
	if !strings.Contains(msg, "event: state.reloaded") || !strings.Contains(msg, `{"keys":["contacts","diary"]}`) {
		t.Errorf("unexpected message %q", msg)
	}
	if rest := drain(ch); len(rest) != 0 {
		t.Errorf("empty key list should publish nothing, got %q", rest)
	}
}

// syncRecorder guards the body so the test can read it while the handler
// is still writing.
type syncRecorder struct {
	*httptest.ResponseRecorder
	mu sync.Mutex
}

func (r *syncRecorder) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ResponseRecorder.Write(p)
}

func (r *syncRecorder) WriteString(s string) (int, error) {
	return r.Write([]byte(s))
}

func (r *syncRecorder) body() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Body.String()
}

func TestServeHTTP_StreamsAndCleansUp(t *testing.T) {
	old := KeepAlive
	KeepAlive = 20 * time.Millisecond
	t.Cleanup(func() { KeepAlive = old })

	b := NewBroker(100 * time.Millisecond)
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/api/events", nil).WithContext(ctx)
	w := &syncRecorder{ResponseRecorder: httptest.NewRecorder()}

	done := make(chan struct{})
	go func() {
		b.ServeHTTP(w, req)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	if n := b.ClientCount(); n != 1 {
		t.Fatalf("clients = %d, want 1 from handler", n)
	}
	b.StateChanged([]string{"contacts"})
	time.Sleep(50 * time.Millisecond)

	cancel()
	<-done

	body := w.body()
	for _, want := range []string{"retry: 3000\n\n", ": keepalive\n\n", "event: state.changed"} {
		if !strings.Contains(body, want) {
			t.Errorf("stream missing %q: %q", want, body)
		}
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("content type = %q", ct)
	}

	time.Sleep(50 * time.Millisecond)
	if n := b.ClientCount(); n != 0 {
		t.Errorf("clients = %d after disconnect", n)
	}
}

func TestServeHTTP_EndsOnClose(t *testing.T) {
	b := NewBroker(time.Second)
	req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
	w := &syncRecorder{ResponseRecorder: httptest.NewRecorder()}

	done := make(chan struct{})
	go func() {
		b.ServeHTTP(w, req)
		close(done)
	}()
	time.Sleep(50 * time.Millisecond)
	b.Close()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("handler still streaming after Close")
	}
}

func TestPublish_SlowClientDoesNotBlock(t *testing.T) {
	b := NewBroker(time.Second)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	// The subscriber buffer holds 64 frames; the rest are dropped.
	for i := range 100 {
		b.Publish(Event{Type: TypeChatUpdated, Data: map[string]int{"i": i}})
	}
	if got := len(drain(ch)); got != 64 {
		t.Errorf("delivered = %d, want 64", got)
	}
}

func TestClose_StopsEverything(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	ch := b.Subscribe()

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
	if n := b.ClientCount(); n != 0 {
		t.Fatalf("clients = %d after close", n)
	}
	if _, ok := <-b.Subscribe(); ok {
		t.Error("subscribe after close should return a closed channel")
	}

	// No-ops after close.
	b.Publish(Event{Type: TypeChatUpdated, Data: map[string]string{"sessionId": "x"}})
	b.StateChanged([]string{"diary"})
}
