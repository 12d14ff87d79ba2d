// Package store holds the client-side state of a dashboard session: the
// alert collection and the notification collection of the signed-in user.
//
// Both stores apply user mutations optimistically. When the remote write
// fails the previous value is restored, unless a later local write or a
// fresh snapshot has replaced it in the meantime, and the error is returned
// to the caller. After Close every operation returns ErrClosed and late
// responses are dropped.
package store

import (
	"errors"
)

// ErrClosed is returned by store operations after Close
var ErrClosed = errors.New("store: closed")

type options struct {
	limit   int
	metrics bool
}

// Option configures a store
type Option func(*options)

// WithLimit sets how many notifications Load fetches
func WithLimit(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.limit = n
		}
	}
}

// WithMetrics publishes store gauges to the metrics registry
func WithMetrics() Option {
	return func(o *options) {
		o.metrics = true
	}
}

func buildOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// signal is a coalescing change notifier: any number of sends between two
// receives collapse into one pending signal.
type signal chan struct{}

func newSignal() signal {
	return make(signal, 1)
}

func (s signal) notify() {
	select {
	case s <- struct{}{}:
	default:
	}
}

// pending tracks the in-flight optimistic write per record id. A write may
// only roll back its own change.
type pending struct {
	next   uint64
	tokens map[string]uint64
}

func newPending() *pending {
	return &pending{tokens: make(map[string]uint64)}
}

func (p *pending) begin(ids ...string) uint64 {
	p.next++
	for _, id := range ids {
		p.tokens[id] = p.next
	}
	return p.next
}

// owns reports whether token is still the latest write for id
func (p *pending) owns(id string, token uint64) bool {
	return p.tokens[id] == token
}

func (p *pending) finish(id string, token uint64) {
	if p.tokens[id] == token {
		delete(p.tokens, id)
	}
}

// reset forgets every in-flight write, used when a snapshot replaces the
// collection
func (p *pending) reset() {
	p.tokens = make(map[string]uint64)
}
