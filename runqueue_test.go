package tinycoro

import "testing"

func TestQueue(t *testing.T) {
	t.Run("Overall", func(t *testing.T) {
		var q queue[int]

		for i := 0; i < 8; i++ {
			q.Push(i)
		}

		for i := 0; i < 4; i++ {
			if u := q.Pop(); u != i {
				t.FailNow()
			}
		}

		// Push past the original capacity to force a wrapped grow.
		for i := 8; i < 20; i++ {
			q.Push(i)
		}

		for i := 4; i < 20; i++ {
			if u := q.Pop(); u != i {
				t.FailNow()
			}
		}

		if !q.Empty() {
			t.FailNow()
		}
	})
	t.Run("Interleaved", func(t *testing.T) {
		var q queue[int]

		next := 0
		for i := 0; i < 100; i++ {
			q.Push(2 * i)
			q.Push(2*i + 1)
			if u := q.Pop(); u != next {
				t.FailNow()
			}
			next++
		}

		for !q.Empty() {
			if u := q.Pop(); u != next {
				t.FailNow()
			}
			next++
		}

		if next != 200 {
			t.FailNow()
		}
	})
	t.Run("Len", func(t *testing.T) {
		var q queue[string]

		if q.Len() != 0 {
			t.FailNow()
		}

		q.Push("a")
		q.Push("b")

		if q.Len() != 2 {
			t.FailNow()
		}

		q.Pop()

		if q.Len() != 1 {
			t.FailNow()
		}
	})
}
