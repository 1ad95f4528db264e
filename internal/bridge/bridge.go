// Package bridge implements the native/foreign adapter discipline: a
// native object crossing into a foreign runtime (and back) keeps a
// stable identity instead of growing a new wrapper on every crossing,
// and a call against a foreign handle is forwarded over a
// function/json-args RPC to the process hosting the object.
//
// "Foreign" here is whatever runtime hosts a plugin written against the
// foreign-facing interface projection (out-of-process native plugins
// included): this package does not care which language is on the other
// end, only that it exposes a Caller.
package bridge

import (
	"encoding/json"
	"sync"
	"sync/atomic"

	"github.com/dashost/dashost/internal/ifc"
	"github.com/dashost/dashost/internal/result"
)

// Caller is the minimal surface a foreign runtime connection must
// expose: invoke a named function on a remote object, passing and
// returning JSON. QueryInterface asks the remote object identified by
// remoteID whether it itself supports iid, returning the remote id of
// the matching facet — the RPC-projected equivalent of a local
// QueryInterface call.
type Caller interface {
	Call(remoteID uint64, fn string, args json.RawMessage) (json.RawMessage, error)
	QueryInterface(remoteID uint64, iid ifc.Iid) (newRemoteID uint64, ok bool, err error)
}

// iidBridge is the static native/foreign interface-id bijection, built
// at init time by the concrete component packages that straddle both
// sides. An iid absent from this table is one-sided and must never
// cross the bridge.
var (
	iidBridgeMu sync.RWMutex
	iidBridge   = make(map[ifc.Iid]ifc.Iid)
)

// RegisterIidMapping records that native and foreign identify the same
// logical interface under two different Iid values, so QueryInterface
// can translate and re-wrap when a delegated lookup under the original
// id fails. The mapping is a bijection: registering (native, foreign)
// also registers the reverse lookup.
func RegisterIidMapping(native, foreign ifc.Iid) {
	iidBridgeMu.Lock()
	defer iidBridgeMu.Unlock()
	iidBridge[native] = foreign
	iidBridge[foreign] = native
}

func translateIid(id ifc.Iid) (ifc.Iid, bool) {
	iidBridgeMu.RLock()
	defer iidBridgeMu.RUnlock()
	t, ok := iidBridge[id]
	return t, ok
}

// ForeignHandle is what a native caller receives in place of a foreign
// object: an opaque remote id plus the interface it was obtained as,
// routed back through the owning Bridge's Caller.
type ForeignHandle struct {
	RemoteID uint64
	Iid      ifc.Iid
	bridge   *Bridge
}

// Call invokes fn on the remote object this handle refers to.
func (h *ForeignHandle) Call(fn string, args json.RawMessage) (json.RawMessage, error) {
	return h.bridge.caller.Call(h.RemoteID, fn, args)
}

// QueryInterface mirrors foreignFacade's ordered dispatch with the
// translation direction reversed: (a) a direct match
// against the handle's own declared iid, (b) delegating to the wrapped
// native object's own QueryInterface under the same id, (c)
// translating the id across the bijection and delegating again. Only
// reachable for handles this Bridge itself produced (ToForeign), since
// only those have a native object on file to delegate to.
func (h *ForeignHandle) QueryInterface(id ifc.Iid) (*ForeignHandle, result.Code) {
	if id == h.Iid {
		return h, result.OK
	}

	h.bridge.mu.Lock()
	native, ok := h.bridge.foreignToNative[h.RemoteID]
	h.bridge.mu.Unlock()
	if !ok {
		return nil, result.ErrNoInterface
	}

	if obj, code := native.QueryInterface(id); code == result.OK {
		fh, code := h.bridge.ToForeign(obj, id)
		return fh.(*ForeignHandle), code
	}

	translated, ok := translateIid(id)
	if !ok {
		return nil, result.ErrInvalidEnum
	}
	obj, code := native.QueryInterface(translated)
	if code != result.OK {
		return nil, result.ErrNoInterface
	}
	fh, code := h.bridge.ToForeign(obj, translated)
	return fh.(*ForeignHandle), code
}

// Bridge adapts between native ifc.Unknown objects and ForeignHandles,
// caching each direction so repeated crossings of the same object
// return the same wrapper rather than allocating a new one every time.
type Bridge struct {
	caller Caller

	mu              sync.Mutex
	nativeToForeign map[ifc.Unknown]*ForeignHandle
	foreignToNative map[uint64]ifc.Unknown

	nextRemoteID uint64
}

// New returns a Bridge that forwards foreign-side calls through caller.
func New(caller Caller) *Bridge {
	return &Bridge{
		caller:          caller,
		nativeToForeign: make(map[ifc.Unknown]*ForeignHandle),
		foreignToNative: make(map[uint64]ifc.Unknown),
	}
}

// ToForeign implements variant.Adapter: materializes (or returns the
// cached) ForeignHandle for a native object.
func (b *Bridge) ToForeign(h ifc.Unknown, id ifc.Iid) (any, result.Code) {
	if h == nil {
		return nil, result.ErrInvalidPointer
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if fh, ok := b.nativeToForeign[h]; ok {
		return fh, result.OK
	}
	remoteID := atomic.AddUint64(&b.nextRemoteID, 1)
	fh := &ForeignHandle{RemoteID: remoteID, Iid: id, bridge: b}
	b.nativeToForeign[h] = fh
	b.foreignToNative[remoteID] = h
	return fh, result.OK
}

// ToNative implements variant.Adapter: materializes a native facade
// over a foreign handle. If the handle originated from this same
// Bridge's ToForeign (a round trip), the original native object is
// returned unchanged instead of a new facade.
func (b *Bridge) ToNative(v any, id ifc.Iid) (ifc.Unknown, result.Code) {
	fh, ok := v.(*ForeignHandle)
	if !ok || fh == nil {
		return nil, result.ErrInvalidArgument
	}

	b.mu.Lock()
	if native, ok := b.foreignToNative[fh.RemoteID]; ok {
		b.mu.Unlock()
		return native, result.OK
	}
	b.mu.Unlock()

	return newForeignFacade(fh, id), result.OK
}

// foreignFacade is the native-side stand-in for an object that actually
// lives in the foreign runtime: its methods forward over the handle's
// Caller instead of running locally.
type foreignFacade struct {
	ifc.RefCounted
	handle *ForeignHandle
	iid    ifc.Iid
}

func newForeignFacade(h *ForeignHandle, id ifc.Iid) *foreignFacade {
	f := &foreignFacade{handle: h, iid: id}
	f.RefCounted = ifc.NewRefCounted(nil)
	return f
}

// QueryInterface performs the facade's ordered dispatch:
// (a) a direct cast against the facade's own declared iid, (b)
// delegating to the wrapped foreign object's own QueryInterface under
// the same id, (c) translating the id across the native↔foreign
// bijection and delegating again. An id with no bijection entry — a
// one-sided interface that must not cross the bridge — fails with
// result.ErrInvalidEnum rather than falling through to NoInterface.
func (f *foreignFacade) QueryInterface(id ifc.Iid) (ifc.Unknown, result.Code) {
	if self, code := ifc.QueryInterfaceSelf(f, []ifc.Iid{f.iid}, id); code == result.OK {
		return self, code
	}

	if remoteID, ok, err := f.handle.bridge.caller.QueryInterface(f.handle.RemoteID, id); err == nil && ok {
		nh := &ForeignHandle{RemoteID: remoteID, Iid: id, bridge: f.handle.bridge}
		return newForeignFacade(nh, id), result.OK
	}

	translated, ok := translateIid(id)
	if !ok {
		return nil, result.ErrInvalidEnum
	}
	remoteID, ok, err := f.handle.bridge.caller.QueryInterface(f.handle.RemoteID, translated)
	if err != nil || !ok {
		return nil, result.ErrNoInterface
	}
	nh := &ForeignHandle{RemoteID: remoteID, Iid: translated, bridge: f.handle.bridge}
	return newForeignFacade(nh, translated), result.OK
}

// Invoke calls a named method on the remote object this facade
// represents, decoding the JSON result into out.
func (f *foreignFacade) Invoke(fn string, args any, out any) result.Code {
	payload, err := json.Marshal(args)
	if err != nil {
		return result.ErrInvalidJson
	}
	raw, err := f.handle.Call(fn, payload)
	if err != nil {
		return result.ErrSwigInternalError
	}
	if out == nil || len(raw) == 0 {
		return result.OK
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return result.ErrDeserializationFailed
	}
	return result.OK
}

// Forget drops any cached adapters for a native object, called when the
// object's last native reference is released so the Bridge does not
// keep it alive past its destruction.
func (b *Bridge) Forget(h ifc.Unknown) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if fh, ok := b.nativeToForeign[h]; ok {
		delete(b.foreignToNative, fh.RemoteID)
		delete(b.nativeToForeign, h)
	}
}
