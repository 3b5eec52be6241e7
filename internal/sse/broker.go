// Package sse implements a Server-Sent Events broker announcing data changes.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"time"
)

// Event types.
const (
	TypeCategoryUpdated = "category.updated"
	TypeCategoryRemoved = "category.removed"
	TypeHomeUpdated     = "home.updated"
	TypeStatsUpdated    = "stats.updated"
)

// Change kinds accepted by PublishChange.
const (
	ChangeUpdated = "updated"
	ChangeRemoved = "removed"
)

// Event represents an SSE event to broadcast.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// CategoryData is the payload of category events.
type CategoryData struct {
	Category string `json:"category"`
}

// subscriber is a client channel plus the categories it follows; empty follows all.
type subscriber struct {
	ch   chan []byte
	only map[string]struct{}
}

func (s *subscriber) follows(category string) bool {
	if category == "" || len(s.only) == 0 {
		return true
	}
	_, ok := s.only[category]
	return ok
}

type changeReq struct {
	kind     string
	category string
	home     bool
}

// Broker manages SSE client connections and broadcasts events.
//
// A single event loop goroutine owns the client set, the event sequence and the stats
// throttle timestamp. Public methods talk to it through channels.
type Broker struct {
	statsMin time.Duration

	subscribeCh   chan *subscriber
	unsubscribeCh chan chan []byte
	publishCh     chan Event
	changeCh      chan changeReq
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker creates a broker that emits stats.updated at most once per statsThrottle.
func NewBroker(statsThrottle time.Duration) *Broker {
	if statsThrottle <= 0 {
		statsThrottle = 2 * time.Second
	}

	b := &Broker{
		statsMin:      statsThrottle,
		subscribeCh:   make(chan *subscriber),
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

func (b *Broker) run() {
	defer close(b.stopped)

	clients := make(map[chan []byte]*subscriber)
	var (
		lastStats time.Time
		seq       uint64
	)

	// broadcast sends event to every client following category ("" reaches all).
	broadcast := func(event Event, category string) {
		payload, err := json.Marshal(event.Data)
		if err != nil {
			return
		}
		seq++
		raw := []byte(fmt.Sprintf("event: %s\nid: %d\ndata: %s\n\n", event.Type, seq, payload))

		for ch, sub := range clients {
			if !sub.follows(category) {
				continue
			}
			select {
			case ch <- raw:
			default:
				// Slow client, drop.
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

		case sub := <-b.subscribeCh:
			clients[sub.ch] = sub

		case ch := <-b.unsubscribeCh:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case event := <-b.publishCh:
			broadcast(event, "")

		case req := <-b.changeCh:
			if req.home {
				broadcast(Event{Type: TypeHomeUpdated, Data: struct{}{}}, "")
				continue
			}
			data := CategoryData{Category: req.category}
			switch req.kind {
			case ChangeUpdated:
				broadcast(Event{Type: TypeCategoryUpdated, Data: data}, req.category)
			case ChangeRemoved:
				broadcast(Event{Type: TypeCategoryRemoved, Data: data}, req.category)
			default:
				continue
			}

			now := time.Now()
			if now.Sub(lastStats) >= b.statsMin {
				lastStats = now
				broadcast(Event{Type: TypeStatsUpdated, Data: struct{}{}}, "")
			}

		case resp := <-b.countReqCh:
			resp <- len(clients)
		}
	}
}

// Close stops the event loop and closes every client channel.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe adds a new client and returns its channel. With categories given, category
// events for other categories are not delivered; home and stats events always are.
func (b *Broker) Subscribe(categories ...string) chan []byte {
	ch := make(chan []byte, 64)
	if b.closed.Load() {
		close(ch)
		return ch
	}

	sub := &subscriber{ch: ch}
	for _, c := range categories {
		if c = strings.TrimSpace(c); c != "" {
			if sub.only == nil {
				sub.only = make(map[string]struct{})
			}
			sub.only[c] = struct{}{}
		}
	}

	select {
	case b.subscribeCh <- sub:
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

// Publish sends an event to all connected clients.
func (b *Broker) Publish(event Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.publishCh <- event:
	case <-b.stopped:
	}
}

// PublishChange announces that a category's data was updated or removed, followed by
// a throttled stats.updated.
func (b *Broker) PublishChange(kind, category string) {
	b.change(changeReq{kind: kind, category: category})
}

// PublishHomeChange announces that the home document changed.
func (b *Broker) PublishHomeChange() {
	b.change(changeReq{kind: ChangeUpdated, home: true})
}

func (b *Broker) change(req changeReq) {
	if b.closed.Load() {
		return
	}
	select {
	case b.changeCh <- req:
	case <-b.stopped:
	}
}

// ServeHTTP is the SSE endpoint handler (GET /api/events). An optional
// ?category=games,books query narrows the category events delivered.
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	var categories []string
	if q := r.URL.Query().Get("category"); q != "" {
		categories = strings.Split(q, ",")
	}
	ch := b.Subscribe(categories...)
	defer b.Unsubscribe(ch)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
