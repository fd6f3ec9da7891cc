package tinycoro

// A Signal is a broadcast wait point. Coroutines that call Wait suspend
// until the next Notify, which wakes all of them in the order they began
// waiting.
//
// A Signal must not be shared by more than one [Scheduler].
type Signal struct {
	waiters []waiting
}

type waiting struct {
	s   *Scheduler
	id  ID
	seq uint64
}

// Wait suspends co until the next Notify. It may only be called from
// within co's own running code.
func (sig *Signal) Wait(co *Coroutine) {
	sig.waiters = append(sig.waiters, waiting{s: co.s, id: co.id, seq: co.waitSeq})
	co.block()
}

// Notify wakes every waiting coroutine and clears the wait list.
func (sig *Signal) Notify() {
	waiters := sig.waiters
	sig.waiters = nil
	for _, w := range waiters {
		w.s.wakeIfBlocked(w.id, w.seq, nil)
	}
}
