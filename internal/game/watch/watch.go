// Package watch provides a coalescing, latest-value-wins broadcast channel.
//
// Sending overwrites any unconsumed previous value and never blocks, so a
// slow or absent reader exerts no backpressure on the sender. A reader may
// miss intermediate values; only the most recent value is guaranteed
// visible once it checks in. This is the combat-group broadcast primitive.
package watch

import "sync"

// shared is the state common to one Sender and all its Receivers.
type shared[T any] struct {
	mu      sync.Mutex
	val     T
	seq     uint64
	changed chan struct{} // closed and replaced on every Send
}

// Sender publishes values to the channel.
type Sender[T any] struct {
	s *shared[T]
}

// Receiver observes the latest value published. Each Receiver tracks its
// own seen sequence; Receivers are cloned, never shared between goroutines.
type Receiver[T any] struct {
	s    *shared[T]
	seen uint64
}

// NewChannel creates a coalescing channel holding initial. The initial
// value counts as already seen by the first Receiver.
//
// Postcondition: Returns a connected Sender/Receiver pair.
func NewChannel[T any](initial T) (*Sender[T], *Receiver[T]) {
	s := &shared[T]{
		val:     initial,
		changed: make(chan struct{}),
	}
	return &Sender[T]{s: s}, &Receiver[T]{s: s}
}

// Send publishes v, overwriting any unconsumed previous value. It never
// blocks.
//
// Postcondition: All Receivers observe v (or a later value) on their next
// Latest call, and any pending Changed channels are released.
func (tx *Sender[T]) Send(v T) {
	tx.s.mu.Lock()
	defer tx.s.mu.Unlock()
	tx.s.val = v
	tx.s.seq++
	close(tx.s.changed)
	tx.s.changed = make(chan struct{})
}

// Subscribe returns a fresh Receiver that considers the current value
// already seen.
func (tx *Sender[T]) Subscribe() *Receiver[T] {
	tx.s.mu.Lock()
	defer tx.s.mu.Unlock()
	return &Receiver[T]{s: tx.s, seen: tx.s.seq}
}

// Changed returns a channel that is closed once a value newer than the
// last one seen by this Receiver is available. If such a value is already
// pending, the returned channel is closed immediately, making Changed safe
// to race against other cases in a select.
func (rx *Receiver[T]) Changed() <-chan struct{} {
	rx.s.mu.Lock()
	defer rx.s.mu.Unlock()
	if rx.seen < rx.s.seq {
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	return rx.s.changed
}

// Latest returns the most recent value and whether it was unseen by this
// Receiver. The value is marked seen either way.
func (rx *Receiver[T]) Latest() (T, bool) {
	rx.s.mu.Lock()
	defer rx.s.mu.Unlock()
	fresh := rx.seen < rx.s.seq
	rx.seen = rx.s.seq
	return rx.s.val, fresh
}

// Clone returns an independent Receiver with the same seen position.
func (rx *Receiver[T]) Clone() *Receiver[T] {
	rx.s.mu.Lock()
	defer rx.s.mu.Unlock()
	return &Receiver[T]{s: rx.s, seen: rx.seen}
}
