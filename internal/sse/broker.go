// Package sse implements a Server-Sent Events broker that tells clients when
// the collection has been reloaded.
package sse

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
)

// Event types.
const (
	EventReloaded     = "collection.reloaded"
	EventReloadFailed = "collection.reload_failed"
)

const (
	clientBuffer = 64
	historySize  = 32
	retryMillis  = 3000
)

// Event is one message broadcast to every client.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Options configures a Broker.
type Options struct {
	// ReloadThrottle is the minimum gap between two collection.reloaded
	// events. Defaults to 2s.
	ReloadThrottle time.Duration
	// Heartbeat is how often an idle stream gets a comment line so proxies
	// keep it open. Zero disables heartbeats.
	Heartbeat time.Duration
	Logger    *slog.Logger
}

type frame struct {
	id  uint64
	raw []byte
}

type subscription struct {
	ch    chan []byte
	after uint64
}

// Broker fans events out to SSE clients.
//
// A single event loop owns the clients, the recent history, the reload
// throttle and the pending reload. Public methods talk to it over channels.
type Broker struct {
	opts Options

	subscribeCh   chan subscription
	unsubscribeCh chan chan []byte
	publishCh     chan Event
	reloadCh      chan any
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker creates a broker and starts its loop. A reload published inside
// the throttle window is held back and the latest one is sent when the
// window ends.
func NewBroker(opts Options) *Broker {
	if opts.ReloadThrottle <= 0 {
		opts.ReloadThrottle = 2 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	b := &Broker{
		opts:          opts,
		subscribeCh:   make(chan subscription),
		unsubscribeCh: make(chan chan []byte),
		publishCh:     make(chan Event, 256),
		reloadCh:      make(chan any, 256),
		countReqCh:    make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}

	go b.run()
	return b
}

// encode renders an event in the text/event-stream format.
func encode(id uint64, ev Event) ([]byte, error) {
	payload, err := json.Marshal(ev.Data)
	if err != nil {
		return nil, err
	}
	var sb strings.Builder
	sb.WriteString("id: ")
	sb.WriteString(strconv.FormatUint(id, 10))
	sb.WriteString("\nevent: ")
	sb.WriteString(ev.Type)
	sb.WriteString("\ndata: ")
	sb.Write(payload)
	sb.WriteString("\n\n")
	return []byte(sb.String()), nil
}

func (b *Broker) run() {
	defer close(b.stopped)

	var (
		clients = make(map[chan []byte]struct{})
		history []frame
		lastID  uint64

		lastReload time.Time
		pending    any
		hasPending bool
		trailing   *time.Timer
		trailingC  <-chan time.Time
	)
	defer func() {
		if trailing != nil {
			trailing.Stop()
		}
	}()

	send := func(ch chan []byte, raw []byte) {
		select {
		case ch <- raw:
		default:
			// Slow client; drop rather than stall the loop.
		}
	}

	broadcast := func(ev Event) {
		raw, err := encode(lastID+1, ev)
		if err != nil {
			b.opts.Logger.Error("sse: encode event", slog.String("type", ev.Type), slog.String("error", err.Error()))
			return
		}
		lastID++
		history = append(history, frame{id: lastID, raw: raw})
		if len(history) > historySize {
			history = history[len(history)-historySize:]
		}
		for ch := range clients {
			send(ch, raw)
		}
	}

	for {
		select {
		case <-b.stopCh:
			for ch := range clients {
				close(ch)
			}
			return

		case sub := <-b.subscribeCh:
			clients[sub.ch] = struct{}{}
			if sub.after > 0 {
				for _, f := range history {
					if f.id > sub.after {
						send(sub.ch, f.raw)
					}
				}
			}

		case ch := <-b.unsubscribeCh:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case ev := <-b.publishCh:
			broadcast(ev)

		case data := <-b.reloadCh:
			now := time.Now()
			if wait := b.opts.ReloadThrottle - now.Sub(lastReload); wait > 0 {
				pending, hasPending = data, true
				if trailingC == nil {
					trailing = time.NewTimer(wait)
					trailingC = trailing.C
				}
				continue
			}
			lastReload = now
			broadcast(Event{Type: EventReloaded, Data: data})

		case <-trailingC:
			trailingC = nil
			if hasPending {
				lastReload = time.Now()
				broadcast(Event{Type: EventReloaded, Data: pending})
				pending, hasPending = nil, false
			}

		case resp := <-b.countReqCh:
			resp <- len(clients)
		}
	}
}

// Close stops the loop and closes every client channel. It is safe to call
// more than once.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe adds a client and returns its channel.
func (b *Broker) Subscribe() chan []byte {
	return b.SubscribeAfter(0)
}

// SubscribeAfter adds a client and first replays the remembered events with
// an id greater than lastID. Zero replays nothing.
func (b *Broker) SubscribeAfter(lastID uint64) chan []byte {
	ch := make(chan []byte, clientBuffer)
	if b.closed.Load() {
		close(ch)
		return ch
	}

	select {
	case b.subscribeCh <- subscription{ch: ch, after: lastID}:
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

// Publish sends an event to every client right away.
func (b *Broker) Publish(ev Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.publishCh <- ev:
	case <-b.stopped:
	}
}

// PublishReload publishes a throttled collection.reloaded event carrying data.
func (b *Broker) PublishReload(data any) {
	if b.closed.Load() {
		return
	}
	select {
	case b.reloadCh <- data:
	case <-b.stopped:
	}
}

// PublishReloadFailed publishes a collection.reload_failed event right away.
func (b *Broker) PublishReloadFailed(err error) {
	b.Publish(Event{Type: EventReloadFailed, Data: map[string]string{"error": err.Error()}})
}

// ServeHTTP streams events to one client (GET /api/events). A reconnecting
// client sending Last-Event-ID gets the events it missed, as far as the
// broker still remembers them.
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rc := http.NewResponseController(w)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("retry: " + strconv.Itoa(retryMillis) + "\n\n"))
	if err := rc.Flush(); err != nil {
		b.opts.Logger.Warn("sse: streaming unsupported", slog.String("error", err.Error()))
		return
	}

	lastID, _ := strconv.ParseUint(r.Header.Get("Last-Event-ID"), 10, 64)
	ch := b.SubscribeAfter(lastID)
	defer b.Unsubscribe(ch)
	b.opts.Logger.Debug("sse: client connected", slog.String("remote", r.RemoteAddr), slog.Uint64("last_event_id", lastID))

	var heartbeat <-chan time.Time
	if b.opts.Heartbeat > 0 {
		t := time.NewTicker(b.opts.Heartbeat)
		defer t.Stop()
		heartbeat = t.C
	}

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			b.opts.Logger.Debug("sse: client disconnected", slog.String("remote", r.RemoteAddr))
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if _, err := w.Write(msg); err != nil {
				return
			}
			_ = rc.Flush()
		case <-heartbeat:
			if _, err := w.Write([]byte(": keep-alive\n\n")); err != nil {
				return
			}
			_ = rc.Flush()
		}
	}
}
