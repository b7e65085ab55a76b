// internal/bridge/mailbox.go
package bridge

import "sync/atomic"

// Mailbox is a single-slot result holder. Every Put replaces the previous
// value; there is no queue, so concurrent writers race and the last one wins.
type Mailbox struct {
	value   atomic.Pointer[string]
	version atomic.Uint64
}

// Put stores v.
func (m *Mailbox) Put(v string) {
	m.value.Store(&v)
	m.version.Add(1)
}

// Get returns the last stored value, or "" when nothing was stored yet.
func (m *Mailbox) Get() string {
	if p := m.value.Load(); p != nil {
		return *p
	}
	return ""
}

// Version counts the number of Put calls so far.
func (m *Mailbox) Version() uint64 {
	return m.version.Load()
}
