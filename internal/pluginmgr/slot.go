package pluginmgr

import (
	"sync"

	"github.com/dashost/dashost/internal/result"
)

// slot is the process-wide temporary handoff between a plugin entry
// point and the manager: the entry point constructs its package object
// and deposits it here via RegisterPluginObject, and the manager
// consumes the slot immediately after the entry-point call returns.
// In-process plugins (those compiled directly into this binary) use
// this path instead of the child-process RPC path in nativeproc.go.
var slot struct {
	mu   sync.Mutex
	obj  PackageObject
	code result.Code
}

// EntryPoint is the Go realization of the exported DasCoCreatePlugin
// symbol: an in-process plugin registers one of these under its own
// name so the manager can invoke it directly instead of spawning a
// child process.
type EntryPoint func() (PackageObject, result.Code)

// RegisterPluginObject deposits a package object into the handoff slot,
// the Go analogue of DasRegisterPluginObject.
func RegisterPluginObject(obj PackageObject, code result.Code) {
	slot.mu.Lock()
	slot.obj, slot.code = obj, code
	slot.mu.Unlock()
}

// callEntryPoint invokes entry and immediately consumes whatever it
// deposited into the slot, applying the reference-count repair rule:
// a returned object is expected to carry a
// count of 2 (one for the plugin's own registration, one for the
// manager); count 1 is a plugin bug the manager auto-repairs by simply
// keeping its implicit reference instead of releasing one; any other
// count is result.ErrInternalFatalError.
func callEntryPoint(entry EntryPoint) (PackageObject, result.Code) {
	obj, code := entry()
	if code.Failed() {
		return nil, code
	}

	slot.mu.Lock()
	slotObj, slotCode := slot.obj, slot.code
	slot.obj, slot.code = nil, result.OK
	slot.mu.Unlock()

	if slotObj != nil {
		obj = slotObj
		code = slotCode
	}
	if obj == nil {
		return nil, result.ErrInternalFatalError
	}

	rc, ok := obj.(interface{ RefCount() int32 })
	if ok {
		switch rc.RefCount() {
		case 2:
			obj.Release() // manager keeps the other reference
		case 1:
			// plugin bug, auto-repaired: manager keeps the sole reference.
		default:
			return nil, result.ErrInternalFatalError
		}
	}
	return obj, result.OK
}
