// Package registry implements the remote object registry:
// an in-memory map indexed by object id, with secondary indexes by name
// and by the 32-bit interface id, all serialized under a single mutex
// so reads and writes never interleave.
package registry

import (
	"github.com/dashost/dashost/internal/ifc"
	"github.com/dashost/dashost/internal/ipc/wire"
	"github.com/dashost/dashost/internal/result"
	"sync"
)

// ObjectInfo is the registry's record for one remote object.
type ObjectInfo struct {
	ObjectID    wire.ObjectID
	Iid         ifc.Iid
	SessionID   uint16
	Version     uint16
	Name        string
	InterfaceID uint32
}

// interfaceID derives the 32-bit interface id used for secondary
// lookup from an Iid by folding its 128 bits down with fnv-1a-style
// mixing, since the wire header only carries 32 bits for interface_id.
func interfaceID(id ifc.Iid) uint32 {
	var h uint32 = 2166136261
	for _, b := range id {
		h ^= uint32(b)
		h *= 16777619
	}
	return h
}

// Registry holds every currently-registered remote object.
type Registry struct {
	mu          sync.Mutex
	byObjectID  map[wire.ObjectID]*ObjectInfo
	byName      map[string]*ObjectInfo
	byInterface map[uint32][]*ObjectInfo
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{
		byObjectID:  make(map[wire.ObjectID]*ObjectInfo),
		byName:      make(map[string]*ObjectInfo),
		byInterface: make(map[uint32][]*ObjectInfo),
	}
}

// RegisterObject inserts a new entry. Duplicate object ids, a null
// object id, or an empty name are rejected.
func (r *Registry) RegisterObject(id wire.ObjectID, iid ifc.Iid, session uint16, name string, version uint16) result.Code {
	if id.IsNull() {
		return result.ErrInvalidObjectId
	}
	if name == "" {
		return result.ErrInvalidArgument
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byObjectID[id]; exists {
		return result.ErrDuplicateElement
	}

	info := &ObjectInfo{
		ObjectID:    id,
		Iid:         iid,
		SessionID:   session,
		Version:     version,
		Name:        name,
		InterfaceID: interfaceID(iid),
	}
	r.byObjectID[id] = info
	r.byName[name] = info
	r.byInterface[info.InterfaceID] = append(r.byInterface[info.InterfaceID], info)
	return result.OK
}

// UnregisterObject removes the entry for id.
func (r *Registry) UnregisterObject(id wire.ObjectID) result.Code {
	r.mu.Lock()
	defer r.mu.Unlock()
	info, ok := r.byObjectID[id]
	if !ok {
		return result.ErrObjectNotFound
	}
	r.removeLocked(info)
	return result.OK
}

func (r *Registry) removeLocked(info *ObjectInfo) {
	delete(r.byObjectID, info.ObjectID)
	delete(r.byName, info.Name)
	list := r.byInterface[info.InterfaceID]
	for i, e := range list {
		if e == info {
			r.byInterface[info.InterfaceID] = append(list[:i], list[i+1:]...)
			break
		}
	}
}

// GetObjectInfo returns the entry registered under id.
func (r *Registry) GetObjectInfo(id wire.ObjectID) (ObjectInfo, result.Code) {
	r.mu.Lock()
	defer r.mu.Unlock()
	info, ok := r.byObjectID[id]
	if !ok {
		return ObjectInfo{}, result.ErrObjectNotFound
	}
	return *info, result.OK
}

// LookupByName returns the entry registered under name.
func (r *Registry) LookupByName(name string) (ObjectInfo, result.Code) {
	r.mu.Lock()
	defer r.mu.Unlock()
	info, ok := r.byName[name]
	if !ok {
		return ObjectInfo{}, result.ErrObjectNotFound
	}
	return *info, result.OK
}

// LookupByInterface returns every entry registered under the 32-bit
// interface id computed from iid.
func (r *Registry) LookupByInterface(iid ifc.Iid) ([]ObjectInfo, result.Code) {
	r.mu.Lock()
	defer r.mu.Unlock()
	list := r.byInterface[interfaceID(iid)]
	if len(list) == 0 {
		return nil, result.ErrObjectNotFound
	}
	out := make([]ObjectInfo, len(list))
	for i, e := range list {
		out[i] = *e
	}
	return out, result.OK
}

// ListAllObjects returns every registered entry.
func (r *Registry) ListAllObjects() []ObjectInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ObjectInfo, 0, len(r.byObjectID))
	for _, info := range r.byObjectID {
		out = append(out, *info)
	}
	return out
}

// ListObjectsBySession returns every entry registered under session.
func (r *Registry) ListObjectsBySession(session uint16) []ObjectInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []ObjectInfo
	for _, info := range r.byObjectID {
		if info.SessionID == session {
			out = append(out, *info)
		}
	}
	return out
}

// UnregisterAllFromSession removes every entry whose session id matches,
// used on client disconnect, and returns how many were removed.
func (r *Registry) UnregisterAllFromSession(session uint16) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	var toRemove []*ObjectInfo
	for _, info := range r.byObjectID {
		if info.SessionID == session {
			toRemove = append(toRemove, info)
		}
	}
	for _, info := range toRemove {
		r.removeLocked(info)
	}
	return len(toRemove)
}
