package supabase

import (
	"sync"

	"github.com/hawksec/hawk/internal/gateway"
)

// relay converts the raw change events of a subscription into domain
// values. Events the converter rejects are skipped; order is preserved.
type relay[T any] struct {
	sub     *gateway.Subscription
	out     chan T
	stop    chan struct{}
	once    sync.Once
	convert func(gateway.ChangeEvent) (T, bool)
}

func newRelay[T any](sub *gateway.Subscription, convert func(gateway.ChangeEvent) (T, bool)) *relay[T] {
	r := &relay[T]{
		sub:     sub,
		out:     make(chan T, 16),
		stop:    make(chan struct{}),
		convert: convert,
	}
	go r.pump()
	return r
}

func (r *relay[T]) pump() {
	defer close(r.out)
	for ev := range r.sub.Events() {
		v, ok := r.convert(ev)
		if !ok {
			continue
		}
		select {
		case r.out <- v:
		case <-r.stop:
			return
		}
	}
}

// Events is closed when the underlying subscription ends
func (r *relay[T]) Events() <-chan T {
	return r.out
}

// Err reports why the subscription ended, if it failed
func (r *relay[T]) Err() error {
	return r.sub.Err()
}

// Close ends the subscription
func (r *relay[T]) Close() error {
	r.once.Do(func() { close(r.stop) })
	return r.sub.Close()
}
