package tinycoro_test

import (
	"errors"
	"testing"

	"github.com/willglynn/tinycoro"
)

func TestChannel(t *testing.T) {
	t.Run("RendezvousSenderFirst", func(t *testing.T) {
		s := newTestScheduler(t)
		ch := tinycoro.NewChannel(s, 0)

		var steps []string
		if _, err := s.Spawn(func(co *tinycoro.Coroutine) (any, error) {
			steps = append(steps, "sending")
			if err := ch.Send(42); err != nil {
				return nil, err
			}
			steps = append(steps, "sent")
			return nil, nil
		}); err != nil {
			t.Fatal(err)
		}
		recv, err := s.Spawn(func(co *tinycoro.Coroutine) (any, error) {
			v, err := ch.Recv()
			steps = append(steps, "received")
			return v, err
		})
		if err != nil {
			t.Fatal(err)
		}

		if err := s.RunUntilIdle(); err != nil {
			t.Fatal(err)
		}

		// The sender must not proceed before the receiver has awaited.
		want := []string{"sending", "received", "sent"}
		for i := range want {
			if i >= len(steps) || steps[i] != want[i] {
				t.Fatalf("got %v, want %v", steps, want)
			}
		}
		if v, err := s.Join(recv); err != nil || v != 42 {
			t.Fatalf("Join(recv) = %v, %v", v, err)
		}
	})
	t.Run("RendezvousReceiverFirst", func(t *testing.T) {
		s := newTestScheduler(t)
		ch := tinycoro.NewChannel(s, 0)

		recv, err := s.Spawn(func(co *tinycoro.Coroutine) (any, error) {
			return ch.Recv()
		})
		if err != nil {
			t.Fatal(err)
		}
		if _, err := s.Spawn(func(co *tinycoro.Coroutine) (any, error) {
			return nil, ch.Send("hello")
		}); err != nil {
			t.Fatal(err)
		}

		if err := s.RunUntilIdle(); err != nil {
			t.Fatal(err)
		}

		if v, err := s.Join(recv); err != nil || v != "hello" {
			t.Fatalf("Join(recv) = %v, %v", v, err)
		}
	})
	t.Run("SingleSlot", func(t *testing.T) {
		s := newTestScheduler(t)
		ch := tinycoro.NewChannel(s, 1)

		var steps []string
		if _, err := s.Spawn(func(co *tinycoro.Coroutine) (any, error) {
			if err := ch.Send(1); err != nil {
				return nil, err
			}
			steps = append(steps, "first buffered")
			if err := ch.Send(2); err != nil {
				return nil, err
			}
			steps = append(steps, "second delivered")
			return nil, nil
		}); err != nil {
			t.Fatal(err)
		}

		var got []any
		if _, err := s.Spawn(func(co *tinycoro.Coroutine) (any, error) {
			for i := 0; i < 2; i++ {
				v, err := ch.Recv()
				if err != nil {
					return nil, err
				}
				got = append(got, v)
			}
			return nil, nil
		}); err != nil {
			t.Fatal(err)
		}

		if err := s.RunUntilIdle(); err != nil {
			t.Fatal(err)
		}

		if len(steps) != 2 || steps[0] != "first buffered" || steps[1] != "second delivered" {
			t.Fatalf("steps = %v", steps)
		}
		if len(got) != 2 || got[0] != 1 || got[1] != 2 {
			t.Fatalf("received %v, want [1 2]", got)
		}
	})
	t.Run("BoundedOrder", func(t *testing.T) {
		s := newTestScheduler(t)
		ch := tinycoro.NewChannel(s, 2)

		if _, err := s.Spawn(func(co *tinycoro.Coroutine) (any, error) {
			for i := 1; i <= 4; i++ {
				if err := ch.Send(i); err != nil {
					return nil, err
				}
			}
			return nil, nil
		}); err != nil {
			t.Fatal(err)
		}

		var got []any
		if _, err := s.Spawn(func(co *tinycoro.Coroutine) (any, error) {
			for i := 0; i < 4; i++ {
				v, err := ch.Recv()
				if err != nil {
					return nil, err
				}
				got = append(got, v)
			}
			return nil, nil
		}); err != nil {
			t.Fatal(err)
		}

		if err := s.RunUntilIdle(); err != nil {
			t.Fatal(err)
		}

		for i, v := range got {
			if v != i+1 {
				t.Fatalf("received %v, want [1 2 3 4]", got)
			}
		}
		if len(got) != 4 {
			t.Fatalf("received %v, want [1 2 3 4]", got)
		}
	})
	t.Run("HostSend", func(t *testing.T) {
		s := newTestScheduler(t)
		ch := tinycoro.NewChannel(s, 0)

		// No receiver is waiting and the host cannot suspend.
		if err := ch.Send(1); !errors.Is(err, tinycoro.ErrWouldBlock) {
			t.Fatalf("Send = %v, want ErrWouldBlock", err)
		}

		recv, err := s.Spawn(func(co *tinycoro.Coroutine) (any, error) {
			return ch.Recv()
		})
		if err != nil {
			t.Fatal(err)
		}
		if err := s.RunUntilIdle(); err != nil {
			t.Fatal(err)
		}

		// Now a receiver is blocked; the host send wakes it.
		if err := ch.Send("from host"); err != nil {
			t.Fatal(err)
		}
		if err := s.RunUntilIdle(); err != nil {
			t.Fatal(err)
		}

		if v, err := s.Join(recv); err != nil || v != "from host" {
			t.Fatalf("Join(recv) = %v, %v", v, err)
		}
	})
	t.Run("HostRecv", func(t *testing.T) {
		s := newTestScheduler(t)
		ch := tinycoro.NewChannel(s, 1)

		if _, err := ch.Recv(); !errors.Is(err, tinycoro.ErrViolation) {
			t.Fatalf("Recv from host = %v, want ErrViolation", err)
		}

		if _, err := s.Spawn(func(co *tinycoro.Coroutine) (any, error) {
			return nil, ch.Send(7)
		}); err != nil {
			t.Fatal(err)
		}
		if err := s.RunUntilIdle(); err != nil {
			t.Fatal(err)
		}

		if v, ok := ch.TryRecv(); !ok || v != 7 {
			t.Fatalf("TryRecv = %v, %v", v, ok)
		}
		if _, ok := ch.TryRecv(); ok {
			t.Fatal("TryRecv succeeded on an empty channel")
		}
	})
	t.Run("ResumeThenReblock", func(t *testing.T) {
		s := newTestScheduler(t)
		a := tinycoro.NewChannel(s, 0)
		b := tinycoro.NewChannel(s, 0)

		id, err := s.Spawn(func(co *tinycoro.Coroutine) (any, error) {
			if _, err := a.Recv(); err != nil {
				return nil, err
			}
			return b.Recv()
		})
		if err != nil {
			t.Fatal(err)
		}
		if err := s.RunUntilIdle(); err != nil {
			t.Fatal(err)
		}

		// Wake the coroutine out of its wait on a, leaving a stale
		// entry in a's waiter list. It then blocks on b.
		if err := s.Resume(id, "out of band"); err != nil {
			t.Fatal(err)
		}
		if err := s.RunUntilIdle(); err != nil {
			t.Fatal(err)
		}

		// The stale entry must not satisfy the wait on b: with no live
		// receiver on a, the host send cannot complete.
		if err := a.Send("wrong channel"); !errors.Is(err, tinycoro.ErrWouldBlock) {
			t.Fatalf("Send on a = %v, want ErrWouldBlock", err)
		}
		if st, err := s.Status(id); err != nil || st != tinycoro.StatusSuspended {
			t.Fatalf("Status = %v, %v, want Suspended", st, err)
		}

		if err := b.Send("right channel"); err != nil {
			t.Fatal(err)
		}
		if err := s.RunUntilIdle(); err != nil {
			t.Fatal(err)
		}
		if v, err := s.Join(id); err != nil || v != "right channel" {
			t.Fatalf("Join = %v, %v", v, err)
		}
	})
	t.Run("TrySend", func(t *testing.T) {
		s := newTestScheduler(t)
		ch := tinycoro.NewChannel(s, 1)

		if err := ch.TrySend(1); err != nil {
			t.Fatal(err)
		}
		if err := ch.TrySend(2); !errors.Is(err, tinycoro.ErrWouldBlock) {
			t.Fatalf("TrySend = %v, want ErrWouldBlock", err)
		}
		if ch.Len() != 1 {
			t.Fatalf("Len = %d, want 1", ch.Len())
		}
	})
}
