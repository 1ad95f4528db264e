// Package session implements the handshake sub-protocol and connected
// client table: Hello/Welcome establishes a session id, Ready flips
// readiness, Heartbeat refreshes liveness, and Goodbye tears the
// session down.
package session

import (
	"time"

	"github.com/hashicorp/go-hclog"
	"sync"

	"github.com/dashost/dashost/internal/ipc/wire"
	"github.com/dashost/dashost/internal/result"
)

// WelcomeStatus is the outcome carried back in a WelcomeResponse.
type WelcomeStatus uint8

const (
	Success WelcomeStatus = iota
	VersionMismatch
	InvalidName
	TooManyClients
)

func (s WelcomeStatus) String() string {
	switch s {
	case Success:
		return "Success"
	case VersionMismatch:
		return "VersionMismatch"
	case InvalidName:
		return "InvalidName"
	case TooManyClients:
		return "TooManyClients"
	default:
		return "Unknown"
	}
}

// HelloRequest is the client's opening handshake frame.
type HelloRequest struct {
	ProtocolVersion uint32
	PID             uint32
	PluginName      string
}

// WelcomeResponse answers a HelloRequest. SessionID is 0 on any failure
// status.
type WelcomeResponse struct {
	SessionID uint16
	Status    WelcomeStatus
}

// ConnectedClient is the handler's record of one connected host process.
type ConnectedClient struct {
	SessionID     uint16
	PID           uint32
	PluginName    string
	IsReady       bool
	LastHeartbeat time.Time
}

// Option configures a Table at construction.
type Option func(*options)

type options struct {
	logger          hclog.Logger
	protocolVersion uint32
	maxClients      int
}

// WithLogger overrides the Table's logger.
func WithLogger(l hclog.Logger) Option { return func(o *options) { o.logger = l } }

// WithProtocolVersion sets the exact version a HelloRequest must match.
func WithProtocolVersion(v uint32) Option { return func(o *options) { o.protocolVersion = v } }

// WithMaxClients caps how many sessions may be connected at once. Zero
// means unbounded.
func WithMaxClients(n int) Option { return func(o *options) { o.maxClients = n } }

// Table is the session_id -> ConnectedClient map the handshake handler
// maintains, guarded by a single mutex.
type Table struct {
	mu      sync.Mutex
	clients map[uint16]*ConnectedClient
	alloc   *wire.SessionAllocator
	opts    options

	onDisconnected func(ConnectedClient)
}

// New returns an empty Table.
func New(opts ...Option) *Table {
	o := options{logger: hclog.NewNullLogger(), protocolVersion: 1}
	for _, opt := range opts {
		opt(&o)
	}
	return &Table{
		clients: make(map[uint16]*ConnectedClient),
		alloc:   wire.NewSessionAllocator(),
		opts:    o,
	}
}

// OnClientDisconnected installs the single-slot callback fired by
// Goodbye. Last setter wins.
func (t *Table) OnClientDisconnected(fn func(ConnectedClient)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onDisconnected = fn
}

// Hello processes a HelloRequest, allocating a session id on success.
func (t *Table) Hello(req HelloRequest) WelcomeResponse {
	if req.ProtocolVersion != t.opts.protocolVersion {
		return WelcomeResponse{Status: VersionMismatch}
	}
	if req.PluginName == "" {
		return WelcomeResponse{Status: InvalidName}
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.opts.maxClients > 0 && len(t.clients) >= t.opts.maxClients {
		return WelcomeResponse{Status: TooManyClients}
	}

	id, code := t.alloc.Allocate()
	if code.Failed() {
		return WelcomeResponse{Status: TooManyClients}
	}
	t.clients[id] = &ConnectedClient{
		SessionID:     id,
		PID:           req.PID,
		PluginName:    req.PluginName,
		LastHeartbeat: time.Now(),
	}
	return WelcomeResponse{SessionID: id, Status: Success}
}

// Ready marks sessionID's client as ready. Marking an already-ready
// client succeeds, logging a warning rather than failing.
func (t *Table) Ready(sessionID uint16) result.Code {
	t.mu.Lock()
	defer t.mu.Unlock()
	client, ok := t.clients[sessionID]
	if !ok {
		return result.ErrObjectNotFound
	}
	if client.IsReady {
		t.opts.logger.Warn("session already ready", "session_id", sessionID)
	}
	client.IsReady = true
	return result.OK
}

// Heartbeat refreshes last_heartbeat. A nil sessionID means the frame
// carried no session id, in which case every ready client is refreshed
// instead.
func (t *Table) Heartbeat(sessionID *uint16) {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := time.Now()
	if sessionID != nil {
		if client, ok := t.clients[*sessionID]; ok && client.IsReady {
			client.LastHeartbeat = now
		}
		return
	}
	for _, client := range t.clients {
		if client.IsReady {
			client.LastHeartbeat = now
		}
	}
}

// Goodbye removes sessionID's client, releases its session id, and
// fires OnClientDisconnected. reason is accepted for symmetry with the
// wire protocol; the table itself does not interpret it.
func (t *Table) Goodbye(sessionID uint16, reason string) result.Code {
	t.mu.Lock()
	client, ok := t.clients[sessionID]
	if !ok {
		t.mu.Unlock()
		return result.ErrObjectNotFound
	}
	delete(t.clients, sessionID)
	t.alloc.Release(sessionID)
	cb := t.onDisconnected
	snapshot := *client
	t.mu.Unlock()

	if cb != nil {
		cb(snapshot)
	}
	return result.OK
}

// Get returns a copy of sessionID's client record.
func (t *Table) Get(sessionID uint16) (ConnectedClient, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	client, ok := t.clients[sessionID]
	if !ok {
		return ConnectedClient{}, false
	}
	return *client, true
}

// Count returns the number of currently connected clients.
func (t *Table) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.clients)
}
