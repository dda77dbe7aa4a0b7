// Package mailbox holds the single-slot outbox consumed by the polling
// userscript. It is deliberately not a queue: only the most recent message
// is retrievable, and a write that lands before a pending read supersedes
// whatever was in the slot.
package mailbox

import "sync"

// Mailbox is a one-slot holder for the latest outbound message. The empty
// string means the slot is empty. Writes overwrite, reads clear. Last write
// before a read wins; the mutex only guarantees each operation is atomic.
type Mailbox struct {
	mu      sync.Mutex
	message string
}

func New() *Mailbox {
	return &Mailbox{}
}

// Write replaces the slot content. It never fails.
func (m *Mailbox) Write(message string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.message = message
}

// ReadAndClear returns the current slot content and resets it to empty.
func (m *Mailbox) ReadAndClear() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg := m.message
	m.message = ""
	return msg
}
