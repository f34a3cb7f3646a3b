package stream

import (
	"encoding/json"
	"sync"

	"github.com/225715H/chat-app/logger"
)

// Subscriber is one outbound event channel, owned by a single connection's
// writer goroutine. The send channel is never closed; Done signals teardown
// so concurrent emits can never hit a closed channel.
type Subscriber struct {
	ID   string
	send chan []byte
	done chan struct{}
	once sync.Once
}

// Recv exposes the outbound queue to the connection's writer pump.
func (s *Subscriber) Recv() <-chan []byte { return s.send }

// Done is closed when the subscriber is removed from the hub.
func (s *Subscriber) Done() <-chan struct{} { return s.done }

func (s *Subscriber) stop() {
	s.once.Do(func() { close(s.done) })
}

// Hub is the process-scoped registry of live subscribers. Emit serializes a
// frame once and fans it out to every member; a subscriber whose queue is
// full is treated as dead and dropped. No history, no replay.
type Hub struct {
	mu        sync.RWMutex
	subs      map[string]*Subscriber
	queueSize int
}

func NewHub(queueSize int) *Hub {
	if queueSize <= 0 {
		queueSize = 64
	}
	return &Hub{
		subs:      make(map[string]*Subscriber),
		queueSize: queueSize,
	}
}

func (h *Hub) Subscribe(id string) *Subscriber {
	sub := &Subscriber{
		ID:   id,
		send: make(chan []byte, h.queueSize),
		done: make(chan struct{}),
	}
	h.mu.Lock()
	h.subs[id] = sub
	n := len(h.subs)
	h.mu.Unlock()
	logger.Infof("[stream] subscribed conn=%s total=%d", id, n)
	return sub
}

func (h *Hub) Unsubscribe(id string) {
	h.mu.Lock()
	sub, ok := h.subs[id]
	if ok {
		delete(h.subs, id)
	}
	n := len(h.subs)
	h.mu.Unlock()
	if ok {
		sub.stop()
		logger.Infof("[stream] unsubscribed conn=%s total=%d", id, n)
	}
}

func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Emit implements Broadcaster. Slow or gone subscribers are removed
// silently; the triggering command never sees an error.
func (h *Hub) Emit(f Frame) {
	payload, err := json.Marshal(f)
	if err != nil {
		logger.Errorf("[stream] marshal event type=%s err=%v", f.Type, err)
		return
	}

	h.mu.RLock()
	targets := make([]*Subscriber, 0, len(h.subs))
	for _, sub := range h.subs {
		targets = append(targets, sub)
	}
	h.mu.RUnlock()

	var dead []string
	for _, sub := range targets {
		select {
		case sub.send <- payload:
		default:
			dead = append(dead, sub.ID)
		}
	}
	for _, id := range dead {
		logger.Infof("[stream] dropping slow subscriber conn=%s", id)
		h.Unsubscribe(id)
	}
}
