// Package server implements the main-process IPC server:
// a singleton tracking connected host sessions, gating registry
// mutation on those sessions being live, and dispatching inbound
// frames to a user-supplied handler.
package server

import (
	"sync"
	"time"

	"github.com/dashost/dashost/internal/ifc"
	"github.com/dashost/dashost/internal/ipc/registry"
	"github.com/dashost/dashost/internal/ipc/wire"
	"github.com/dashost/dashost/internal/result"
)

// State is one of the server's four lifecycle states.
type State uint8

const (
	Uninitialized State = iota
	Initialized
	Running
	Stopped
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "Uninitialized"
	case Initialized:
		return "Initialized"
	case Running:
		return "Running"
	case Stopped:
		return "Stopped"
	default:
		return "Unknown"
	}
}

// HostSessionInfo tracks one connected host process.
type HostSessionInfo struct {
	SessionID    uint16
	Connected    bool
	ConnectMs    int64
	LastActiveMs int64
}

// DispatchHandler forwards a frame's command body to whatever owns the
// target object and returns the response body plus the dispatch's own
// result code.
type DispatchHandler func(h wire.Header, body []byte) ([]byte, result.Code)

// Server is the main-process IPC server singleton.
type Server struct {
	mu       sync.Mutex
	state    State
	sessions map[uint16]*HostSessionInfo
	reg      *registry.Registry
	dispatch DispatchHandler
	now      func() int64

	onSessionConnected    func(HostSessionInfo)
	onSessionDisconnected func(HostSessionInfo)
	onObjectRegistered    func(registry.ObjectInfo)
	onObjectUnregistered  func(registry.ObjectInfo)
}

var (
	instanceOnce sync.Once
	instance     *Server
)

// Instance returns the process-wide Server singleton, constructing it
// on first use against reg.
func Instance(reg *registry.Registry) *Server {
	instanceOnce.Do(func() {
		instance = New(reg)
	})
	return instance
}

// New builds a standalone Server, primarily for tests that want an
// isolated instance rather than the process singleton.
func New(reg *registry.Registry) *Server {
	return &Server{
		state:    Uninitialized,
		sessions: make(map[uint16]*HostSessionInfo),
		reg:      reg,
		now:      func() int64 { return time.Now().UnixMilli() },
	}
}

// SetDispatchHandler installs the handler DispatchMessage forwards to.
func (s *Server) SetDispatchHandler(h DispatchHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dispatch = h
}

// OnSessionConnected installs the single-slot session-connect observer.
func (s *Server) OnSessionConnected(fn func(HostSessionInfo)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onSessionConnected = fn
}

// OnSessionDisconnected installs the single-slot session-disconnect
// observer.
func (s *Server) OnSessionDisconnected(fn func(HostSessionInfo)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onSessionDisconnected = fn
}

// OnObjectRegistered installs the single-slot object-register observer.
func (s *Server) OnObjectRegistered(fn func(registry.ObjectInfo)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onObjectRegistered = fn
}

// OnObjectUnregistered installs the single-slot object-unregister
// observer.
func (s *Server) OnObjectUnregistered(fn func(registry.ObjectInfo)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onObjectUnregistered = fn
}

// Initialize moves the server from Uninitialized to Initialized.
func (s *Server) Initialize() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = Initialized
}

// Start moves the server into Running.
func (s *Server) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = Running
}

// Stop moves the server into Stopped.
func (s *Server) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = Stopped
}

// State returns the server's current lifecycle state.
func (s *Server) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// OnHostConnected records or reactivates session, firing the
// session-connected observer. Reconnecting an already-connected
// session is a DuplicateElement.
func (s *Server) OnHostConnected(session uint16) result.Code {
	s.mu.Lock()
	info, exists := s.sessions[session]
	if exists && info.Connected {
		s.mu.Unlock()
		return result.ErrDuplicateElement
	}

	now := s.now()
	if exists {
		info.Connected = true
		info.LastActiveMs = now
	} else {
		info = &HostSessionInfo{SessionID: session, Connected: true, ConnectMs: now, LastActiveMs: now}
		s.sessions[session] = info
	}
	snapshot := *info
	cb := s.onSessionConnected
	s.mu.Unlock()

	if cb != nil {
		cb(snapshot)
	}
	return result.OK
}

// OnHostDisconnected marks session disconnected, releases every object
// it owned from the registry, and fires the session-disconnected
// observer.
func (s *Server) OnHostDisconnected(session uint16) result.Code {
	s.mu.Lock()
	info, exists := s.sessions[session]
	if !exists {
		s.mu.Unlock()
		return result.ErrObjectNotFound
	}
	info.Connected = false
	snapshot := *info
	objCb := s.onObjectUnregistered
	sessionCb := s.onSessionDisconnected
	reg := s.reg
	s.mu.Unlock()

	var removed []registry.ObjectInfo
	if reg != nil {
		removed = reg.ListObjectsBySession(session)
		reg.UnregisterAllFromSession(session)
	}
	if objCb != nil {
		for _, obj := range removed {
			objCb(obj)
		}
	}
	if sessionCb != nil {
		sessionCb(snapshot)
	}
	return result.OK
}

func (s *Server) sessionConnected(session uint16) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	info, ok := s.sessions[session]
	return ok && info.Connected
}

// OnRemoteObjectRegistered is the registry entry point exposed to the
// server; refused with ConnectionLost if session is not connected.
func (s *Server) OnRemoteObjectRegistered(id wire.ObjectID, iid ifc.Iid, session uint16, name string, version uint16) result.Code {
	if !s.sessionConnected(session) {
		return result.ErrConnectionLost
	}
	code := s.reg.RegisterObject(id, iid, session, name, version)
	if code.Failed() {
		return code
	}
	s.mu.Lock()
	cb := s.onObjectRegistered
	s.mu.Unlock()
	if cb != nil {
		if info, c := s.reg.GetObjectInfo(id); c == result.OK {
			cb(info)
		}
	}
	return result.OK
}

// OnRemoteObjectUnregistered is the registry entry point exposed to the
// server; refused with ConnectionLost if the object's owning session is
// not connected.
func (s *Server) OnRemoteObjectUnregistered(id wire.ObjectID) result.Code {
	info, code := s.reg.GetObjectInfo(id)
	if code.Failed() {
		return code
	}
	if !s.sessionConnected(info.SessionID) {
		return result.ErrConnectionLost
	}
	if code := s.reg.UnregisterObject(id); code.Failed() {
		return code
	}
	s.mu.Lock()
	cb := s.onObjectUnregistered
	s.mu.Unlock()
	if cb != nil {
		cb(info)
	}
	return result.OK
}

// DispatchMessage validates the frame's target object against the
// registry and the owning session, then forwards to the installed
// dispatch handler. Without a handler it returns NoImplementation and
// leaves response empty.
func (s *Server) DispatchMessage(h wire.Header, body []byte) (response []byte, code result.Code) {
	id := wire.EncodeObjectID(h.SessionID, h.Generation, h.LocalID)
	if id.IsNull() {
		return nil, result.ErrInvalidObjectId
	}
	info, code := s.reg.GetObjectInfo(id)
	if code.Failed() {
		return nil, result.ErrObjectNotFound
	}
	if !s.sessionConnected(info.SessionID) {
		return nil, result.ErrConnectionLost
	}

	s.mu.Lock()
	handler := s.dispatch
	s.mu.Unlock()
	if handler == nil {
		return nil, result.ErrNoImplementation
	}
	return handler(h, body)
}
