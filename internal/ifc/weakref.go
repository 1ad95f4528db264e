package ifc

import (
	"sync"

	"github.com/dashost/dashost/internal/result"
)

// WeakRef observes an object without extending its lifetime. Resolve
// returns ErrStrongReferenceNotAvailable once the observed object has
// been destroyed, so a caller that stashed a weak reference across an
// event loop iteration can detect the dangling case instead of racing
// the destructor.
type WeakRef interface {
	Unknown

	// Resolve attempts to obtain a strong (AddRef'd) reference to the
	// observed object, querying it for the requested interface id.
	Resolve(id Iid) (Unknown, result.Code)
}

// Weakable is implemented by objects that can hand out WeakRefs on
// themselves. Objects compose a WeakableBase and call Invalidate from
// their own teardown path, the same one-line hook shape as RefCounted.
type Weakable interface {
	Unknown
	GetWeakRef() (WeakRef, result.Code)
}

// WeakableBase tracks the live strong object and detaches outstanding
// weak references from it on teardown. It is deliberately small: one
// mutex-guarded pointer, shared by every weak reference it has issued.
type WeakableBase struct {
	mu  sync.Mutex
	obj Unknown // nil once invalidated
}

// NewWeakableBase wraps obj, which must remain the object whose
// lifetime this base tracks.
func NewWeakableBase(obj Unknown) *WeakableBase {
	return &WeakableBase{obj: obj}
}

// Invalidate detaches every weak reference issued from this base. Call
// it exactly once, from the owning object's destructor (its RefCounted
// onZero callback).
func (b *WeakableBase) Invalidate() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.obj = nil
}

// NewWeakRef issues a weak reference observing b's object.
func (b *WeakableBase) NewWeakRef() WeakRef {
	return &weakRef{base: b, RefCounted: NewRefCounted(nil)}
}

type weakRef struct {
	RefCounted
	base *WeakableBase
}

func (w *weakRef) QueryInterface(id Iid) (Unknown, result.Code) {
	return QueryInterfaceSelf(w, []Iid{IidWeakRef}, id)
}

func (w *weakRef) Resolve(id Iid) (Unknown, result.Code) {
	w.base.mu.Lock()
	obj := w.base.obj
	w.base.mu.Unlock()

	if obj == nil {
		return nil, result.ErrStrongReferenceNotAvailable
	}
	return obj.QueryInterface(id)
}
