// Package feed fans change signals out to live query subscribers.
//
// A signal carries no data. Subscribers re-read the full snapshot when they
// receive one, so several publishes between two reads collapse into a single
// refresh and the latest snapshot always wins.
package feed

import "sync"

// Hub routes change signals by key (a user ID, a session ID).
type Hub struct {
	mu   sync.Mutex
	subs map[string]map[*Subscription]struct{}

	// OnChange, when set, is called with the subscriber count after every
	// Subscribe and Close. It runs under the hub lock, so calls arrive in
	// order and must not call back into the hub.
	OnChange func(active int)
	active   int
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[*Subscription]struct{})}
}

// Subscription receives signals for one key until closed.
type Subscription struct {
	hub  *Hub
	key  string
	ch   chan struct{}
	once sync.Once
}

// C returns the signal channel. It has a buffer of one and is never closed.
func (s *Subscription) C() <-chan struct{} {
	return s.ch
}

// Close unsubscribes. It is safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() { s.hub.remove(s) })
}

// Subscribe registers interest in key.
func (h *Hub) Subscribe(key string) *Subscription {
	sub := &Subscription{hub: h, key: key, ch: make(chan struct{}, 1)}

	h.mu.Lock()
	set, ok := h.subs[key]
	if !ok {
		set = make(map[*Subscription]struct{})
		h.subs[key] = set
	}
	set[sub] = struct{}{}
	h.active++
	h.notify()
	h.mu.Unlock()

	return sub
}

// Publish signals every subscriber of key. It never blocks: a subscriber
// that already has a pending signal keeps just that one.
func (h *Hub) Publish(key string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for sub := range h.subs[key] {
		select {
		case sub.ch <- struct{}{}:
		default:
		}
	}
}

// Subscribers returns the number of open subscriptions for key.
func (h *Hub) Subscribers(key string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[key])
}

func (h *Hub) remove(sub *Subscription) {
	h.mu.Lock()
	set := h.subs[sub.key]
	delete(set, sub)
	if len(set) == 0 {
		delete(h.subs, sub.key)
	}
	h.active--
	h.notify()
	h.mu.Unlock()
}

// notify must be called with h.mu held.
func (h *Hub) notify() {
	if h.OnChange != nil {
		h.OnChange(h.active)
	}
}
