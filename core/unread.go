package core

import "github.com/assettrack/notifsync/events"

// UnreadCount returns the unread notification counter.
func (e *Engine) UnreadCount() int {
	e.mtx.RLock()
	defer e.mtx.RUnlock()
	return e.unread
}

// IncrementUnreadCount adds one to the unread counter.
func (e *Engine) IncrementUnreadCount() {
	e.mtx.Lock()
	e.unread++
	n := e.unread
	e.mtx.Unlock()
	e.bus.Emit(&events.UnreadCountChanged{Count: n})
}

// ClearUnreadCount resets the unread counter to zero.
func (e *Engine) ClearUnreadCount() {
	e.SetUnreadCount(0)
}

// SetUnreadCount sets the unread counter. Negative values are clamped to
// zero.
func (e *Engine) SetUnreadCount(n int) {
	if n < 0 {
		n = 0
	}
	e.mtx.Lock()
	e.unread = n
	e.mtx.Unlock()
	e.bus.Emit(&events.UnreadCountChanged{Count: n})
}
