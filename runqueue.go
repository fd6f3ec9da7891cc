package tinycoro

// queue is a FIFO ring buffer. The run-queue policy is strict arrival
// order, so popping removes the element pushed least recently.
type queue[E any] struct {
	buf  []E
	head int
	n    int
}

func (q *queue[E]) Empty() bool {
	return q.n == 0
}

func (q *queue[E]) Len() int {
	return q.n
}

func (q *queue[E]) Push(v E) {
	if q.n == len(q.buf) {
		q.grow()
	}
	q.buf[(q.head+q.n)%len(q.buf)] = v
	q.n++
}

func (q *queue[E]) Pop() (v E) {
	q.buf[q.head], v = v, q.buf[q.head]
	q.head = (q.head + 1) % len(q.buf)
	q.n--
	return v
}

func (q *queue[E]) grow() {
	size := len(q.buf) * 2
	if size == 0 {
		size = 8
	}
	buf := make([]E, size)
	for i := 0; i < q.n; i++ {
		buf[i] = q.buf[(q.head+i)%len(q.buf)]
	}
	q.buf = buf
	q.head = 0
}
