// Package sse pushes store changes to connected clients as Server-Sent Events.
package sse

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"slices"
	"sync/atomic"
	"time"
)

// Event types.
const (
	TypeStateChanged         = "state.changed"
	TypeStateReloaded        = "state.reloaded"
	TypeNotificationsUpdated = "notifications.updated"
	TypeChatUpdated          = "chat.updated"
)

// KeepAlive is how often an idle stream receives a comment line, so proxies
// do not time it out.
var KeepAlive = 25 * time.Second

// retryMillis tells EventSource how long to wait before reconnecting.
const retryMillis = 3000

// Event is one message on the stream.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

type changeReq struct {
	keys     []string
	reloaded bool
}

// Broker fans events out to subscribers.
//
// A single loop goroutine owns the client set and the notification throttle
// timestamp; public methods talk to it over channels.
type Broker struct {
	notifyMin time.Duration

	subscribeCh   chan chan []byte
	unsubscribeCh chan chan []byte
	publishCh     chan Event
	changeCh      chan changeReq
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker starts a broker. notifyThrottle bounds how often
// notifications.updated follows a state change.
func NewBroker(notifyThrottle time.Duration) *Broker {
	if notifyThrottle <= 0 {
		notifyThrottle = 2 * time.Second
	}

	b := &Broker{
		notifyMin:     notifyThrottle,
		subscribeCh:   make(chan chan []byte),
		unsubscribeCh: make(chan chan []byte),
		publishCh:     make(chan Event, 256),
		changeCh:      make(chan changeReq, 256),
		countReqCh:    make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}

	go b.run()
	return b
}

// Keys whose change can alter the generated notifications.
var notifyKeys = []string{"schedule", "expenses", "notificationSettings"}

func (b *Broker) run() {
	defer close(b.stopped)

	clients := make(map[chan []byte]struct{})
	var (
		lastNotify time.Time
		seq        uint64
	)

	broadcast := func(event Event) {
		raw, err := encode(seq+1, event)
		if err != nil {
			return
		}
		seq++

		for ch := range clients {
			select {
			case ch <- raw:
			default:
				// Slow client; drop rather than stall the loop.
			}
		}
	}

	for {
		select {
		case <-b.stopCh:
			for ch := range clients {
				close(ch)
			}
			return

		case ch := <-b.subscribeCh:
			clients[ch] = struct{}{}

		case ch := <-b.unsubscribeCh:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case event := <-b.publishCh:
			broadcast(event)

		case req := <-b.changeCh:
			typ := TypeStateChanged
			if req.reloaded {
				typ = TypeStateReloaded
			}
			broadcast(Event{Type: typ, Data: map[string][]string{"keys": req.keys}})

			if !slices.ContainsFunc(req.keys, func(k string) bool { return slices.Contains(notifyKeys, k) }) {
				continue
			}
			now := time.Now()
			if now.Sub(lastNotify) >= b.notifyMin {
				lastNotify = now
				broadcast(Event{Type: TypeNotificationsUpdated, Data: map[string]string{}})
			}

		case resp := <-b.countReqCh:
			resp <- len(clients)
		}
	}
}

// encode renders one SSE frame. Clients reconnecting after a drop see the
// id jump and refetch the state.
func encode(id uint64, event Event) ([]byte, error) {
	payload, err := json.Marshal(event.Data)
	if err != nil {
		return nil, err
	}
	return fmt.Appendf(nil, "id: %d\nevent: %s\ndata: %s\n\n", id, event.Type, payload), nil
}

// Close stops the loop and closes every subscriber channel.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe adds a client.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, 64)
	if b.closed.Load() {
		close(ch)
		return ch
	}

	select {
	case b.subscribeCh <- ch:
	case <-b.stopped:
		close(ch)
	}

	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	if b.closed.Load() {
		return
	}
	select {
	case b.unsubscribeCh <- ch:
	case <-b.stopped:
	}
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	if b.closed.Load() {
		return 0
	}

	resp := make(chan int, 1)
	select {
	case b.countReqCh <- resp:
	case <-b.stopped:
		return 0
	}

	select {
	case n := <-resp:
		return n
	case <-b.stopped:
		return 0
	}
}

// Publish sends event to all clients.
func (b *Broker) Publish(event Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.publishCh <- event:
	case <-b.stopped:
	}
}

// StateChanged announces that the storage keys were written by this process.
// It has the store.ChangeFunc signature.
func (b *Broker) StateChanged(keys []string) { b.change(keys, false) }

// StateReloaded announces that keys were reloaded after an outside edit.
func (b *Broker) StateReloaded(keys []string) { b.change(keys, true) }

func (b *Broker) change(keys []string, reloaded bool) {
	if b.closed.Load() || len(keys) == 0 {
		return
	}
	select {
	case b.changeCh <- changeReq{keys: slices.Clone(keys), reloaded: reloaded}:
	case <-b.stopped:
	}
}

// ServeHTTP streams events until the client goes away (GET /api/events).
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "retry: %d\n\n", retryMillis)
	flusher.Flush()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	ping := time.NewTicker(KeepAlive)
	defer ping.Stop()

	ctx := r.Context()
	for {
		var err error
		select {
		case <-ctx.Done():
			return
		case <-ping.C:
			_, err = io.WriteString(w, ": keepalive\n\n")
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, err = w.Write(msg)
		}
		if err != nil {
			return
		}
		flusher.Flush()
	}
}
