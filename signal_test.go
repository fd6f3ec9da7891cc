package tinycoro_test

import (
	"testing"

	"github.com/willglynn/tinycoro"
)

func TestSignal(t *testing.T) {
	t.Run("Broadcast", func(t *testing.T) {
		s := newTestScheduler(t)

		var sig tinycoro.Signal
		var order []string

		for _, name := range []string{"A", "B"} {
			name := name
			if _, err := s.Spawn(func(co *tinycoro.Coroutine) (any, error) {
				sig.Wait(co)
				order = append(order, name)
				return nil, nil
			}); err != nil {
				t.Fatal(err)
			}
		}
		if _, err := s.Spawn(func(co *tinycoro.Coroutine) (any, error) {
			order = append(order, "notify")
			sig.Notify()
			return nil, nil
		}); err != nil {
			t.Fatal(err)
		}

		if err := s.RunUntilIdle(); err != nil {
			t.Fatal(err)
		}

		// Waiters wake in the order they began waiting.
		want := []string{"notify", "A", "B"}
		for i := range want {
			if i >= len(order) || order[i] != want[i] {
				t.Fatalf("got %v, want %v", order, want)
			}
		}
	})
}

func TestWaitGroup(t *testing.T) {
	t.Run("WaitForWorkers", func(t *testing.T) {
		s := newTestScheduler(t)

		var wg tinycoro.WaitGroup
		wg.Add(2)

		var order []string
		waiter, err := s.Spawn(func(co *tinycoro.Coroutine) (any, error) {
			wg.Wait(co)
			order = append(order, "waiter")
			return "done", nil
		})
		if err != nil {
			t.Fatal(err)
		}
		for _, name := range []string{"w1", "w2"} {
			name := name
			if _, err := s.Spawn(func(co *tinycoro.Coroutine) (any, error) {
				order = append(order, name)
				wg.Done()
				return nil, nil
			}); err != nil {
				t.Fatal(err)
			}
		}

		if err := s.RunUntilIdle(); err != nil {
			t.Fatal(err)
		}

		want := []string{"w1", "w2", "waiter"}
		for i := range want {
			if i >= len(order) || order[i] != want[i] {
				t.Fatalf("got %v, want %v", order, want)
			}
		}
		if v, err := s.Join(waiter); err != nil || v != "done" {
			t.Fatalf("Join(waiter) = %v, %v", v, err)
		}
	})
	t.Run("ZeroCounter", func(t *testing.T) {
		s := newTestScheduler(t)

		var wg tinycoro.WaitGroup
		id, err := s.Spawn(func(co *tinycoro.Coroutine) (any, error) {
			wg.Wait(co) // counter is zero; must not suspend
			return "immediate", nil
		})
		if err != nil {
			t.Fatal(err)
		}

		if err := s.RunUntilIdle(); err != nil {
			t.Fatal(err)
		}
		if v, err := s.Join(id); err != nil || v != "immediate" {
			t.Fatalf("Join = %v, %v", v, err)
		}
	})
	t.Run("NegativeCounter", func(t *testing.T) {
		defer func() {
			if recover() == nil {
				t.Fatal("Add(-1) on a zero counter did not panic.")
			}
		}()
		var wg tinycoro.WaitGroup
		wg.Done()
	})
}
