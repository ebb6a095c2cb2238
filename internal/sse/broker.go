// Package sse streams library changes and analysis runs to browsers as
// Server-Sent Events.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"path"
	"slices"
	"strings"
	"sync/atomic"
	"time"
)

// Event types emitted by the broker.
const (
	TypeMorphologyCreated = "morphology.created"
	TypeMorphologyUpdated = "morphology.updated"
	TypeMorphologyDeleted = "morphology.deleted"
	TypeResultsUpdated    = "results.updated"
	TypeRunFinished       = "run.finished"
)

var changeTypes = map[string]string{
	"created": TypeMorphologyCreated,
	"updated": TypeMorphologyUpdated,
	"deleted": TypeMorphologyDeleted,
}

const keepAliveInterval = 25 * time.Second

// Event is one message on the stream.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// MorphologyChange is the payload of the morphology.* events.
type MorphologyChange struct {
	Path  string `json:"path"`
	Label string `json:"label"`
}

// ResultsUpdate is the payload of results.updated: every path whose analysis
// results changed since the previous results.updated.
type ResultsUpdate struct {
	Paths []string `json:"paths"`
}

type client struct {
	ch     chan []byte
	topics []string
}

// wants reports whether the client subscribed to typ. No topics means all.
func (c *client) wants(typ string) bool {
	if len(c.topics) == 0 {
		return true
	}
	for _, t := range c.topics {
		if typ == t || strings.HasPrefix(typ, t+".") {
			return true
		}
	}
	return false
}

type subscription struct {
	c     *client
	reply chan struct{}
}

type changeReq struct {
	typ  string
	path string
}

// Broker fans events out to SSE clients.
//
// One goroutine owns the client set, the pending results paths and the
// results throttle; the exported methods only talk to it over channels.
// results.updated is rate limited to one per throttle interval; paths that
// change inside the interval are held and sent when it ends.
type Broker struct {
	throttle time.Duration

	subscribeCh   chan subscription
	unsubscribeCh chan chan []byte
	publishCh     chan Event
	changeCh      chan changeReq
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker starts a broker. resultsThrottle is the minimum interval between
// two results.updated events; zero or less means two seconds.
func NewBroker(resultsThrottle time.Duration) *Broker {
	if resultsThrottle <= 0 {
		resultsThrottle = 2 * time.Second
	}
	b := &Broker{
		throttle:      resultsThrottle,
		subscribeCh:   make(chan subscription),
		unsubscribeCh: make(chan chan []byte),
		publishCh:     make(chan Event, 256),
		changeCh:      make(chan changeReq, 256),
		countReqCh:    make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}
	go b.loop()
	return b
}

func (b *Broker) loop() {
	defer close(b.stopped)

	clients := make(map[chan []byte]*client)
	var (
		seq         uint64
		lastResults time.Time
		pending     = make(map[string]struct{})
		flush       *time.Timer
		flushC      <-chan time.Time
	)

	send := func(ev Event) {
		payload, err := json.Marshal(ev.Data)
		if err != nil {
			return
		}
		seq++
		frame := []byte(fmt.Sprintf("id: %d\nevent: %s\ndata: %s\n\n", seq, ev.Type, payload))
		for ch, c := range clients {
			if !c.wants(ev.Type) {
				continue
			}
			select {
			case ch <- frame:
			default:
				// Slow client; drop rather than stall every other subscriber.
			}
		}
	}

	sendResults := func(now time.Time) {
		paths := make([]string, 0, len(pending))
		for p := range pending {
			paths = append(paths, p)
		}
		slices.Sort(paths)
		clear(pending)
		lastResults = now
		send(Event{Type: TypeResultsUpdated, Data: ResultsUpdate{Paths: paths}})
	}

	for {
		select {
		case <-b.stopCh:
			if flush != nil {
				flush.Stop()
			}
			for ch := range clients {
				close(ch)
			}
			return

		case sub := <-b.subscribeCh:
			clients[sub.c.ch] = sub.c
			close(sub.reply)

		case ch := <-b.unsubscribeCh:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case ev := <-b.publishCh:
			send(ev)

		case req := <-b.changeCh:
			send(Event{Type: req.typ, Data: MorphologyChange{Path: req.path, Label: label(req.path)}})
			pending[req.path] = struct{}{}

			now := time.Now()
			if wait := b.throttle - now.Sub(lastResults); wait <= 0 {
				sendResults(now)
			} else if flushC == nil {
				flush = time.NewTimer(wait)
				flushC = flush.C
			}

		case now := <-flushC:
			flushC = nil
			if len(pending) > 0 {
				sendResults(now)
			}

		case resp := <-b.countReqCh:
			resp <- len(clients)
		}
	}
}

func label(p string) string {
	base := path.Base(p)
	return strings.TrimSuffix(base, path.Ext(base))
}

// Close stops the broker and closes every client channel. It is safe to call
// more than once.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe registers a client. topics limits delivery to event types equal
// to, or nested under, one of them ("morphology" matches
// "morphology.created"); none means every event. The returned channel is
// closed by Unsubscribe or Close.
func (b *Broker) Subscribe(topics ...string) chan []byte {
	c := &client{ch: make(chan []byte, 64), topics: topics}
	if b.closed.Load() {
		close(c.ch)
		return c.ch
	}
	sub := subscription{c: c, reply: make(chan struct{})}
	select {
	case b.subscribeCh <- sub:
		<-sub.reply
	case <-b.stopped:
		close(c.ch)
	}
	return c.ch
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

// Publish sends an event to every interested client.
func (b *Broker) Publish(ev Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.publishCh <- ev:
	case <-b.stopped:
	}
}

// PublishMorphologyEvent announces a library change ("created", "updated" or
// "deleted") and queues the path for the next results.updated. Unknown kinds
// are dropped.
func (b *Broker) PublishMorphologyEvent(kind, path string) {
	typ, ok := changeTypes[kind]
	if !ok || b.closed.Load() {
		return
	}
	select {
	case b.changeCh <- changeReq{typ: typ, path: path}:
	case <-b.stopped:
	}
}

// PublishRun announces a finished analysis run.
func (b *Broker) PublishRun(run any) {
	b.Publish(Event{Type: TypeRunFinished, Data: run})
}

// ServeHTTP streams events to one client (GET /api/events). The optional
// "types" query parameter is a comma separated topic list, for example
// ?types=morphology,run.
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	var topics []string
	for _, t := range strings.Split(r.URL.Query().Get("types"), ",") {
		if t = strings.TrimSpace(t); t != "" {
			topics = append(topics, t)
		}
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := b.Subscribe(topics...)
	defer b.Unsubscribe(ch)

	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-keepAlive.C:
			_, _ = w.Write([]byte(": keep-alive\n\n"))
			flusher.Flush()
		case frame, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(frame)
			flusher.Flush()
		}
	}
}
