package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Bus fans events out to every subscribed sink in subscription order.
type Bus struct {
	mu     sync.RWMutex
	next   uint64
	subs   []subscription
	filter func(Event) bool
}

type subscription struct {
	id   uint64
	sink Sink
}

// BusOption customises a Bus.
type BusOption func(*Bus)

// WithFilter drops events for which keep returns false before fan out.
func WithFilter(keep func(Event) bool) BusOption {
	return func(b *Bus) {
		b.filter = keep
	}
}

// NewBus creates a bus with the given initial sinks.
func NewBus(sinks []Sink, opts ...BusOption) *Bus {
	b := &Bus{}
	for _, opt := range opts {
		opt(b)
	}
	for _, sink := range sinks {
		b.Subscribe(sink)
	}
	return b
}

// Subscribe adds a sink and returns a function that removes it again.
func (b *Bus) Subscribe(sink Sink) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.next++
	id := b.next
	b.subs = append(b.subs, subscription{id: id, sink: sink})

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(id) })
	}
}

func (b *Bus) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, sub := range b.subs {
		if sub.id == id {
			b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
			return
		}
	}
}

// Len reports the number of subscribed sinks.
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Publish delivers the event to every sink, even when some fail or panic, and
// joins their errors.
func (b *Bus) Publish(ctx context.Context, event Event) error {
	if b.filter != nil && !b.filter(event) {
		return nil
	}

	b.mu.RLock()
	subs := append([]subscription(nil), b.subs...)
	b.mu.RUnlock()

	var errs []error
	for _, sub := range subs {
		if err := SafePublish(ctx, sub.sink, event); err != nil {
			errs = append(errs, fmt.Errorf("sink %d: %w", sub.id, err))
		}
	}
	return errors.Join(errs...)
}

// ErrSinkPanicked wraps the value recovered from a panicking sink.
var ErrSinkPanicked = errors.New("notify: sink panicked")

// SafePublish calls sink.Publish and turns a panic into an error.
func SafePublish(ctx context.Context, sink Sink, event Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrSinkPanicked, r)
		}
	}()
	return sink.Publish(ctx, event)
}
