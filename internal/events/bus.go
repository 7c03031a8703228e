// Package events provides a small synchronous observer bus used by the
// window registry and the icon engine to announce changes to whatever
// presentation layer is listening.
package events

import "sync"

// Subscription allows removing a registered handler.
type Subscription struct {
	id     uint64
	cancel func(uint64)
}

// Cancel unregisters the handler so it no longer fires. Safe to call more
// than once and on the zero value.
func (s Subscription) Cancel() {
	if s.cancel == nil {
		return
	}
	s.cancel(s.id)
}

type handler[E any] struct {
	id uint64
	fn func(E)
}

// Bus fans an event out to every subscribed handler, in subscription
// order, on the caller's goroutine.
type Bus[E any] struct {
	mu       sync.Mutex
	handlers []handler[E]
	nextID   uint64
}

// Subscribe registers fn and returns a handle to remove it.
func (b *Bus[E]) Subscribe(fn func(E)) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.handlers = append(b.handlers, handler[E]{id: id, fn: fn})
	return Subscription{id: id, cancel: b.remove}
}

func (b *Bus[E]) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i := range b.handlers {
		if b.handlers[i].id == id {
			copy(b.handlers[i:], b.handlers[i+1:])
			b.handlers[len(b.handlers)-1] = handler[E]{}
			b.handlers = b.handlers[:len(b.handlers)-1]
			return
		}
	}
}

// Emit delivers e to all handlers. The handler list is snapshotted first,
// so handlers may subscribe or cancel while being called.
func (b *Bus[E]) Emit(e E) {
	if b == nil {
		return
	}
	b.mu.Lock()
	snapshot := make([]handler[E], len(b.handlers))
	copy(snapshot, b.handlers)
	b.mu.Unlock()

	for _, h := range snapshot {
		h.fn(e)
	}
}

// Len returns the number of registered handlers.
func (b *Bus[E]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.handlers)
}
