package tinycoro

import "slices"

// A Channel passes values between coroutines, or between host code and
// coroutines, waking the receiving side through the scheduler.
//
// Capacity selects the handoff discipline: 0 is a synchronous rendezvous,
// 1 a single-slot buffer, N a bounded queue. Waiters on both sides are
// serviced in FIFO order, and a coroutine woken by a send becomes Ready at
// the moment of the send.
//
// A Channel must not be shared by more than one [Scheduler].
type Channel struct {
	s        *Scheduler
	capacity int
	buf      queue[any]
	sendq    []pendingSend
	recvq    []pendingRecv
}

type pendingSend struct {
	id    ID
	seq   uint64
	value any
}

type pendingRecv struct {
	id  ID
	seq uint64
}

// NewChannel creates a Channel bound to s with the given capacity.
func NewChannel(s *Scheduler, capacity int) *Channel {
	if capacity < 0 {
		panic("tinycoro(Channel): negative capacity")
	}
	return &Channel{s: s, capacity: capacity}
}

// Len returns the number of buffered values.
func (c *Channel) Len() int { return c.buf.Len() }

// Send delivers v through the channel.
//
// A waiting receiver is woken immediately with v. Otherwise v is buffered
// if capacity allows. Otherwise a coroutine sender suspends until a
// receiver takes the value — it does not proceed before the receiver has
// awaited — while a host-side sender, which has no context to suspend,
// fails with [ErrWouldBlock].
func (c *Channel) Send(v any) error {
	if c.deliver(v) {
		return nil
	}
	co := c.s.current
	if co == nil {
		return ErrWouldBlock
	}
	c.sendq = append(c.sendq, pendingSend{id: co.id, seq: co.waitSeq, value: v})
	co.block()
	return nil
}

// TrySend is Send without blocking: it fails with [ErrWouldBlock] instead
// of suspending a coroutine sender.
func (c *Channel) TrySend(v any) error {
	if c.deliver(v) {
		return nil
	}
	return ErrWouldBlock
}

// deliver hands v to a waiting receiver or the buffer, reporting whether
// the send completed.
func (c *Channel) deliver(v any) bool {
	for len(c.recvq) > 0 {
		rc := c.recvq[0]
		c.recvq = slices.Delete(c.recvq, 0, 1)
		if c.s.wakeIfBlocked(rc.id, rc.seq, v) {
			return true
		}
	}
	if c.buf.Len() < c.capacity {
		c.buf.Push(v)
		return true
	}
	return false
}

// Recv returns the next value, suspending the calling coroutine until one
// arrives. It may only be called from coroutine code; host code fails
// with [ErrViolation] and should use TryRecv instead.
func (c *Channel) Recv() (any, error) {
	co := c.s.current
	if co == nil {
		return nil, violationf("Recv called outside a coroutine")
	}
	if v, ok := c.take(); ok {
		return v, nil
	}
	c.recvq = append(c.recvq, pendingRecv{id: co.id, seq: co.waitSeq})
	return co.block(), nil
}

// TryRecv returns the next value without blocking. It is safe from host
// code; woken senders run on the next RunUntilIdle.
func (c *Channel) TryRecv() (any, bool) {
	return c.take()
}

// take removes a value from the buffer or directly from a blocked sender,
// back-filling the buffer and waking senders as space appears.
func (c *Channel) take() (any, bool) {
	if c.buf.Len() > 0 {
		v := c.buf.Pop()
		c.fill()
		return v, true
	}
	// Rendezvous: take straight from a blocked sender.
	for len(c.sendq) > 0 {
		sn := c.sendq[0]
		c.sendq = slices.Delete(c.sendq, 0, 1)
		if c.s.wakeIfBlocked(sn.id, sn.seq, nil) {
			return sn.value, true
		}
	}
	return nil, false
}

func (c *Channel) fill() {
	for c.buf.Len() < c.capacity && len(c.sendq) > 0 {
		sn := c.sendq[0]
		c.sendq = slices.Delete(c.sendq, 0, 1)
		if c.s.wakeIfBlocked(sn.id, sn.seq, nil) {
			c.buf.Push(sn.value)
		}
	}
}
