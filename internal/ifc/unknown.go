package ifc

import (
	"sync/atomic"

	"github.com/dashost/dashost/internal/result"
)

// Unknown is the root interface every object in the core implements,
// mirroring IUnknown: callers navigate from any interface pointer to
// any other interface the same object supports via QueryInterface, and
// lifetime is managed by explicit AddRef/Release pairs rather than by
// the garbage collector alone — objects may be pinned across a plugin
// or IPC boundary where the collector cannot see the remote holder.
type Unknown interface {
	// QueryInterface returns the object itself (or a facet of it) typed
	// as the interface identified by id, AddRef'd on success. Callers
	// that hold the returned value must Release it when done, in
	// addition to releasing the original pointer they queried from.
	QueryInterface(id Iid) (Unknown, result.Code)

	// AddRef increments the reference count and returns the new count.
	AddRef() int32

	// Release decrements the reference count, destroying the object
	// when it reaches zero, and returns the new count.
	Release() int32
}

// RefCounted is an embeddable atomic reference counter, composed by
// object types rather than re-implemented in every leaf type.
type RefCounted struct {
	count   int32
	onZero  func()
}

// NewRefCounted returns a RefCounted starting at one reference, with
// onZero invoked exactly once when the count drops to zero via Release.
// onZero may be nil for objects with nothing to tear down.
func NewRefCounted(onZero func()) RefCounted {
	return RefCounted{count: 1, onZero: onZero}
}

func (r *RefCounted) AddRef() int32 {
	return atomic.AddInt32(&r.count, 1)
}

// Release decrements the count and destroys self on the transition to
// zero. It immediately pre-increments the count back
// to one before running onZero: an adversarial caller still holding a
// stale pointer that races an AddRef/Release pair against the
// destroying goroutine lands on 2-then-1, never a second trip through
// zero, so onZero never runs twice.
func (r *RefCounted) Release() int32 {
	n := atomic.AddInt32(&r.count, -1)
	if n != 0 {
		return n
	}
	atomic.StoreInt32(&r.count, 1)
	if r.onZero != nil {
		r.onZero()
	}
	return 0
}

// RefCount reports the current count without mutating it. Intended for
// diagnostics and tests, never for lifetime decisions.
func (r *RefCounted) RefCount() int32 {
	return atomic.LoadInt32(&r.count)
}

// QueryInterfaceSelf is the common QueryInterface body for a leaf
// object that only ever hands back itself: it matches id against the
// supplied list of ids the object implements, AddRef's on a hit, and
// returns ErrNoInterface otherwise. Composite objects with facets
// implement QueryInterface by hand instead of using this helper.
func QueryInterfaceSelf(self Unknown, supported []Iid, want Iid) (Unknown, result.Code) {
	if want.IsZero() {
		return nil, result.ErrInvalidArgument
	}
	if want == IidUnknown {
		self.AddRef()
		return self, result.OK
	}
	for _, id := range supported {
		if id == want {
			self.AddRef()
			return self, result.OK
		}
	}
	return nil, result.ErrNoInterface
}
