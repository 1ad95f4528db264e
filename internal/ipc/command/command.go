// Package command implements the IPC command handler: the frame
// header's interface_id doubles as a command enum, dispatched against
// the registry, with room for runtime-registered custom handlers that
// take priority over the built-in table.
package command

import (
	"encoding/binary"
	"sync"
	"time"

	"github.com/dashost/dashost/internal/ifc"
	"github.com/dashost/dashost/internal/ipc/registry"
	"github.com/dashost/dashost/internal/ipc/wire"
	"github.com/dashost/dashost/internal/result"
)

// Command is the numeric command enum carried in a frame's interface_id.
type Command uint32

const (
	RegisterObject     Command = 1
	UnregisterObject   Command = 2
	LookupObject       Command = 3
	LookupByName       Command = 4
	LookupByInterface  Command = 5
	ListObjects        Command = 6
	ListSessionObjects Command = 7
	ClearSession       Command = 8
	LoadPlugin         Command = 9
	Ping               Command = 10
	Pong               Command = 11
	GetObjectCount     Command = 20
)

// IsCommand reports whether interfaceID names a command in the enum, so
// a frame reader can split command traffic from object-addressed
// messages before dispatching.
func IsCommand(interfaceID uint32) bool {
	switch Command(interfaceID) {
	case RegisterObject, UnregisterObject, LookupObject, LookupByName,
		LookupByInterface, ListObjects, ListSessionObjects, ClearSession,
		LoadPlugin, Ping, Pong, GetObjectCount:
		return true
	}
	return false
}

// Handler processes one command's body and returns the response body.
type Handler func(body []byte) ([]byte, result.Code)

// PluginLoader is the narrow seam the LoadPlugin command needs into the
// plugin manager, kept as an interface here so this package never
// imports pluginmgr directly.
type PluginLoader interface {
	LoadPlugin(manifestPath string) (registry.ObjectInfo, result.Code)
}

// Dispatcher routes commands to the registry, an optional PluginLoader,
// and any custom handlers registered at runtime.
type Dispatcher struct {
	reg    *registry.Registry
	loader PluginLoader

	mu     sync.RWMutex
	custom map[Command]Handler
}

// NewDispatcher builds a Dispatcher over reg. loader may be nil, in
// which case LoadPlugin always fails with result.ErrNoImplementation.
func NewDispatcher(reg *registry.Registry, loader PluginLoader) *Dispatcher {
	return &Dispatcher{reg: reg, loader: loader, custom: make(map[Command]Handler)}
}

// RegisterHandler installs a custom handler for cmd, shadowing the
// built-in table for that command.
func (d *Dispatcher) RegisterHandler(cmd Command, h Handler) {
	d.mu.Lock()
	d.custom[cmd] = h
	d.mu.Unlock()
}

// Dispatch routes cmd's body to a custom handler if one is registered,
// otherwise to the built-in table.
func (d *Dispatcher) Dispatch(cmd Command, body []byte) ([]byte, result.Code) {
	d.mu.RLock()
	h, ok := d.custom[cmd]
	d.mu.RUnlock()
	if ok {
		return h(body)
	}
	return d.dispatchBuiltin(cmd, body)
}

func (d *Dispatcher) dispatchBuiltin(cmd Command, body []byte) ([]byte, result.Code) {
	switch cmd {
	case RegisterObject:
		return d.handleRegisterObject(body)
	case UnregisterObject:
		return d.handleUnregisterObject(body)
	case LookupObject:
		return d.handleLookupObject(body)
	case LookupByName:
		return d.handleLookupByName(body)
	case LookupByInterface:
		return d.handleLookupByInterface(body)
	case ListObjects:
		return d.handleListObjects()
	case ListSessionObjects:
		return d.handleListSessionObjects(body)
	case ClearSession:
		return d.handleClearSession(body)
	case LoadPlugin:
		return d.handleLoadPlugin(body)
	case Ping:
		return d.handlePing()
	case Pong:
		return nil, result.ErrNoImplementation
	case GetObjectCount:
		return d.handleGetObjectCount()
	default:
		return nil, result.ErrInvalidEnum
	}
}

func (d *Dispatcher) handleRegisterObject(body []byte) ([]byte, result.Code) {
	id, iid, session, version, name, code := decodeRegisterPayload(body)
	if code.Failed() {
		return nil, code
	}
	if code := d.reg.RegisterObject(id, iid, session, name, version); code.Failed() {
		return nil, code
	}
	return nil, result.OK
}

func (d *Dispatcher) handleUnregisterObject(body []byte) ([]byte, result.Code) {
	id, code := decodeObjectIDPayload(body)
	if code.Failed() {
		return nil, code
	}
	return nil, d.reg.UnregisterObject(id)
}

func (d *Dispatcher) handleLookupObject(body []byte) ([]byte, result.Code) {
	id, code := decodeObjectIDPayload(body)
	if code.Failed() {
		return nil, code
	}
	info, code := d.reg.GetObjectInfo(id)
	if code.Failed() {
		return nil, code
	}
	return EncodeInfo(info), result.OK
}

func (d *Dispatcher) handleLookupByName(body []byte) ([]byte, result.Code) {
	name, code := decodeNamePayload(body)
	if code.Failed() {
		return nil, code
	}
	info, code := d.reg.LookupByName(name)
	if code.Failed() {
		return nil, code
	}
	return EncodeInfo(info), result.OK
}

func (d *Dispatcher) handleLookupByInterface(body []byte) ([]byte, result.Code) {
	iid, code := decodeIidPayload(body)
	if code.Failed() {
		return nil, code
	}
	matches, code := d.reg.LookupByInterface(iid)
	if code.Failed() {
		return nil, code
	}
	return EncodeInfoList(matches), result.OK
}

func (d *Dispatcher) handleListObjects() ([]byte, result.Code) {
	return EncodeInfoList(d.reg.ListAllObjects()), result.OK
}

func (d *Dispatcher) handleListSessionObjects(body []byte) ([]byte, result.Code) {
	session, code := decodeSessionPayload(body)
	if code.Failed() {
		return nil, code
	}
	return EncodeInfoList(d.reg.ListObjectsBySession(session)), result.OK
}

func (d *Dispatcher) handleClearSession(body []byte) ([]byte, result.Code) {
	session, code := decodeSessionPayload(body)
	if code.Failed() {
		return nil, code
	}
	d.reg.UnregisterAllFromSession(session)
	return nil, result.OK
}

func (d *Dispatcher) handleLoadPlugin(body []byte) ([]byte, result.Code) {
	if d.loader == nil {
		return nil, result.ErrNoImplementation
	}
	path, code := decodeNamePayload(body)
	if code.Failed() {
		return nil, code
	}
	info, code := d.loader.LoadPlugin(path)
	if code.Failed() {
		return nil, code
	}
	return EncodeInfo(info), result.OK
}

func (d *Dispatcher) handlePing() ([]byte, result.Code) {
	out := make([]byte, 8)
	binary.LittleEndian.PutUint64(out, uint64(nowUnixMillis()))
	return out, result.OK
}

func (d *Dispatcher) handleGetObjectCount() ([]byte, result.Code) {
	out := make([]byte, 8)
	binary.LittleEndian.PutUint64(out, uint64(len(d.reg.ListAllObjects())))
	return out, result.OK
}

// nowUnixMillis is a var so tests can stub it out deterministically.
var nowUnixMillis = func() int64 { return time.Now().UnixMilli() }

// EncodeInfo serializes an ObjectInfo as the fixed prefix
// (object_id, iid, session_id, version) followed by a u16 name length
// and the utf-8 name bytes.
func EncodeInfo(info registry.ObjectInfo) []byte {
	buf := make([]byte, 8+16+2+2+2+len(info.Name))
	i := 0
	binary.LittleEndian.PutUint64(buf[i:], uint64(info.ObjectID))
	i += 8
	copy(buf[i:], info.Iid[:])
	i += 16
	binary.LittleEndian.PutUint16(buf[i:], info.SessionID)
	i += 2
	binary.LittleEndian.PutUint16(buf[i:], info.Version)
	i += 2
	binary.LittleEndian.PutUint16(buf[i:], uint16(len(info.Name)))
	i += 2
	copy(buf[i:], info.Name)
	return buf
}

// DecodeInfo is the exact inverse of EncodeInfo, bounds-checking every
// step and returning result.ErrDeserializationFailed on short input
// without mutating any caller state.
func DecodeInfo(buf []byte) (registry.ObjectInfo, result.Code) {
	const fixedLen = 8 + 16 + 2 + 2 + 2
	if len(buf) < fixedLen {
		return registry.ObjectInfo{}, result.ErrDeserializationFailed
	}
	var info registry.ObjectInfo
	i := 0
	info.ObjectID = wire.ObjectID(binary.LittleEndian.Uint64(buf[i:]))
	i += 8
	copy(info.Iid[:], buf[i:i+16])
	i += 16
	info.SessionID = binary.LittleEndian.Uint16(buf[i:])
	i += 2
	info.Version = binary.LittleEndian.Uint16(buf[i:])
	i += 2
	nameLen := int(binary.LittleEndian.Uint16(buf[i:]))
	i += 2
	if len(buf[i:]) < nameLen {
		return registry.ObjectInfo{}, result.ErrDeserializationFailed
	}
	info.Name = string(buf[i : i+nameLen])
	return info, result.OK
}

// EncodeInfoList serializes {count, info[]} for ListObjects-style
// responses.
func EncodeInfoList(items []registry.ObjectInfo) []byte {
	out := make([]byte, 8)
	binary.LittleEndian.PutUint64(out, uint64(len(items)))
	for _, it := range items {
		out = append(out, EncodeInfo(it)...)
	}
	return out
}

func decodeObjectIDPayload(buf []byte) (wire.ObjectID, result.Code) {
	if len(buf) < 8 {
		return 0, result.ErrDeserializationFailed
	}
	return wire.ObjectID(binary.LittleEndian.Uint64(buf)), result.OK
}

func decodeSessionPayload(buf []byte) (uint16, result.Code) {
	if len(buf) < 2 {
		return 0, result.ErrDeserializationFailed
	}
	return binary.LittleEndian.Uint16(buf), result.OK
}

func decodeIidPayload(buf []byte) (ifc.Iid, result.Code) {
	if len(buf) < 16 {
		return ifc.Iid{}, result.ErrDeserializationFailed
	}
	var iid ifc.Iid
	copy(iid[:], buf[:16])
	return iid, result.OK
}

func decodeNamePayload(buf []byte) (string, result.Code) {
	if len(buf) < 2 {
		return "", result.ErrDeserializationFailed
	}
	n := int(binary.LittleEndian.Uint16(buf))
	if len(buf[2:]) < n {
		return "", result.ErrDeserializationFailed
	}
	return string(buf[2 : 2+n]), result.OK
}

func decodeRegisterPayload(buf []byte) (wire.ObjectID, ifc.Iid, uint16, uint16, string, result.Code) {
	const fixedLen = 8 + 16 + 2 + 2
	if len(buf) < fixedLen {
		return 0, ifc.Iid{}, 0, 0, "", result.ErrDeserializationFailed
	}
	i := 0
	id := wire.ObjectID(binary.LittleEndian.Uint64(buf[i:]))
	i += 8
	var iid ifc.Iid
	copy(iid[:], buf[i:i+16])
	i += 16
	session := binary.LittleEndian.Uint16(buf[i:])
	i += 2
	version := binary.LittleEndian.Uint16(buf[i:])
	i += 2
	name, code := decodeNamePayload(buf[i:])
	if code.Failed() {
		return 0, ifc.Iid{}, 0, 0, "", code
	}
	return id, iid, session, version, name, result.OK
}
