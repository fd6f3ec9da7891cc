package tinycoro

import (
	"sync"

	"github.com/vmihailenco/msgpack/v5"
)

// A Mailbox passes values between scheduling domains.
//
// Scheduler instances share no state; a Mailbox is the one sanctioned
// crossing point, and it uses real mutual exclusion. Every payload is
// deep-copied through a msgpack encode/decode round trip, so the posting
// domain and the polling domain never end up holding pointers into the
// same object graph.
//
// The zero Mailbox is ready to use.
type Mailbox struct {
	mu   sync.Mutex
	msgs [][]byte
}

// Post encodes v and appends it to the mailbox. It is safe to call from
// any goroutine, including coroutine code of any scheduler.
func (m *Mailbox) Post(v any) error {
	b, err := msgpack.Marshal(v)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.msgs = append(m.msgs, b)
	m.mu.Unlock()
	return nil
}

// Poll decodes the oldest message into dst, reporting whether a message
// was present. Messages are delivered in post order.
func (m *Mailbox) Poll(dst any) (bool, error) {
	m.mu.Lock()
	if len(m.msgs) == 0 {
		m.mu.Unlock()
		return false, nil
	}
	b := m.msgs[0]
	m.msgs = m.msgs[1:]
	m.mu.Unlock()
	return true, msgpack.Unmarshal(b, dst)
}

// Len returns the number of pending messages.
func (m *Mailbox) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.msgs)
}
