package docstore

import (
	"context"
	"sync"
)

// Hub fans change notifications out to in-process subscribers.
//
// Each subscriber owns a one-slot channel. Deliver replaces an unread snapshot
// with the newer one, so a slow reader always sees the latest state and a
// writer never blocks on it.
type Hub struct {
	mu   sync.Mutex
	next int
	subs map[int]*Subscription

	// broadcasts are serialized so the last delivery always reflects the last write
	broadcastMu sync.Mutex
}

// Subscription is one registered listener.
type Subscription struct {
	id         int
	Collection string
	Query      Query
	ch         chan Snapshot
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[int]*Subscription)}
}

// Add registers a listener and removes it, closing its channel, when ctx ends.
func (h *Hub) Add(ctx context.Context, collection string, q Query) (*Subscription, <-chan Snapshot) {
	h.mu.Lock()
	h.next++
	sub := &Subscription{id: h.next, Collection: collection, Query: q, ch: make(chan Snapshot, 1)}
	h.subs[sub.id] = sub
	h.mu.Unlock()

	go func() {
		<-ctx.Done()
		h.remove(sub.id)
	}()

	return sub, sub.ch
}

// Interested returns the subscriptions that follow a change to collection/scope.
func (h *Hub) Interested(collection, scope string) []*Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()

	var out []*Subscription
	for _, sub := range h.subs {
		if sub.Collection == collection && sub.Query.Matches(scope) {
			out = append(out, sub)
		}
	}
	return out
}

// Deliver hands snap to sub, dropping any snapshot it has not read yet.
func (h *Hub) Deliver(sub *Subscription, snap Snapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.subs[sub.id]; !ok {
		return
	}
	select {
	case <-sub.ch:
	default:
	}
	sub.ch <- snap
}

// Close removes every subscription and closes their channels.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, sub := range h.subs {
		close(sub.ch)
		delete(h.subs, id)
	}
}

func (h *Hub) remove(id int) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if sub, ok := h.subs[id]; ok {
		close(sub.ch)
		delete(h.subs, id)
	}
}

// ListFunc lists documents for a query. Stores pass their own List method.
type ListFunc func(ctx context.Context, collection string, q Query) ([]Document, error)

// Broadcast recomputes the snapshot of every subscription following
// collection/scope and delivers it. A failed listing skips that subscriber;
// the next change retries it.
func (h *Hub) Broadcast(ctx context.Context, collection, scope string, list ListFunc) {
	h.broadcastMu.Lock()
	defer h.broadcastMu.Unlock()

	for _, sub := range h.Interested(collection, scope) {
		docs, err := list(ctx, collection, sub.Query)
		if err != nil {
			continue
		}
		h.Deliver(sub, Snapshot{Collection: collection, Scope: sub.Query.Scope, Docs: docs})
	}
}

// Prime sends the initial snapshot to a fresh subscription.
func (h *Hub) Prime(ctx context.Context, sub *Subscription, list ListFunc) error {
	docs, err := list(ctx, sub.Collection, sub.Query)
	if err != nil {
		return err
	}
	h.Deliver(sub, Snapshot{Collection: sub.Collection, Scope: sub.Query.Scope, Docs: docs})
	return nil
}
