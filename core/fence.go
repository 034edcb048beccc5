package core

import "sync/atomic"

// Fence hands out monotonically increasing request generations.
// A response is only allowed to commit if its Ticket is still the latest one issued;
// anything that calls Advance (eg. a logout) supersedes all in-flight tickets.
type Fence struct {
	gen uint64
}

type Ticket struct {
	fence *Fence
	gen   uint64
}

// Begin issues a new ticket, superseding every ticket issued before it.
func (f *Fence) Begin() Ticket {
	return Ticket{fence: f, gen: atomic.AddUint64(&f.gen, 1)}
}

// Peek returns a ticket for the latest generation without superseding it.
// It stays current until the next Begin or Advance.
func (f *Fence) Peek() Ticket {
	return Ticket{fence: f, gen: atomic.LoadUint64(&f.gen)}
}

// Advance supersedes every outstanding ticket without issuing a new one.
func (f *Fence) Advance() {
	atomic.AddUint64(&f.gen, 1)
}

// Current reports whether no newer ticket was issued (and no Advance happened) since t.
func (t Ticket) Current() bool {
	return t.fence != nil && atomic.LoadUint64(&t.fence.gen) == t.gen
}
