package wire

import (
	"sync"

	"github.com/dashost/dashost/internal/result"
)

const (
	minSessionID uint16 = 2
	maxSessionID uint16 = 0xFFFE
)

// IsValidSessionID reports whether x may be used as a session id: every
// value except 0 (unassigned) and 0xFFFF (reserved) is valid. 1 is
// reserved for the main process and is intentionally still "valid"
// here — it is allocator-exempt, not protocol-invalid.
func IsValidSessionID(x uint16) bool { return x != 0 && x != 0xFFFF }

// SessionAllocator hands out session ids from [2, 0xFFFE], the single
// source of truth for which ids are currently in use, safe for
// concurrent use from multiple connection-accepting goroutines.
type SessionAllocator struct {
	mu   sync.Mutex
	next uint16
	free []uint16
	used map[uint16]bool
}

// NewSessionAllocator returns an allocator with its full range available.
func NewSessionAllocator() *SessionAllocator {
	return &SessionAllocator{next: minSessionID, used: make(map[uint16]bool)}
}

// Allocate returns an unused session id, preferring the most recently
// released one (LIFO) before advancing the high-water mark. Returns
// result.ErrSessionAllocFailed once the range [2, 0xFFFE] is exhausted.
func (a *SessionAllocator) Allocate() (uint16, result.Code) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if n := len(a.free); n > 0 {
		id := a.free[n-1]
		a.free = a.free[:n-1]
		a.used[id] = true
		return id, result.OK
	}
	if a.next > maxSessionID {
		return 0, result.ErrSessionAllocFailed
	}
	id := a.next
	a.next++
	a.used[id] = true
	return id, result.OK
}

// Release returns id to the free pool. Releasing an id not currently
// allocated is a no-op.
func (a *SessionAllocator) Release(id uint16) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.used[id] {
		return
	}
	delete(a.used, id)
	a.free = append(a.free, id)
}

// InUse reports whether id is currently allocated.
func (a *SessionAllocator) InUse(id uint16) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.used[id]
}
