package tinycoro

// A WaitGroup is a [Signal] with a counter.
//
// Calling Add or Done updates the counter and, when it becomes zero,
// wakes any coroutine suspended in Wait.
//
// A WaitGroup must not be shared by more than one [Scheduler].
type WaitGroup struct {
	Signal
	n int
}

// Add adds delta, which may be negative, to the counter. If the counter
// becomes zero, Add wakes every waiting coroutine. If the counter goes
// negative, Add panics.
func (wg *WaitGroup) Add(delta int) {
	wg.n += delta
	if wg.n < 0 {
		panic("tinycoro(WaitGroup): negative counter")
	}
	if wg.n == 0 && delta != 0 {
		wg.Notify()
	}
}

// Done decrements the counter by one.
func (wg *WaitGroup) Done() {
	wg.Add(-1)
}

// Wait suspends co until the counter is zero. It returns immediately if
// the counter is already zero.
func (wg *WaitGroup) Wait(co *Coroutine) {
	if wg.n != 0 {
		wg.Signal.Wait(co)
	}
}
