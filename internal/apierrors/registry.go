// Package apierrors maps the closed result.Code taxonomy onto the HTTP
// control surface's {code, message, data} envelope: a catalog of known
// codes with their HTTP statuses and default messages, plus a
// synthesized fallback for anything uncataloged.
package apierrors

import (
	"net/http"
	"sync"

	"github.com/dashost/dashost/internal/result"
)

// Entry is one catalog row: a result code's HTTP status and default
// human message.
type Entry struct {
	Code       result.Code
	Message    string
	HTTPStatus int
}

type registry struct {
	mu      sync.RWMutex
	entries map[result.Code]Entry
}

// Registry is the process-wide error-message catalog.
var Registry = newRegistry()

func newRegistry() *registry {
	r := &registry{entries: make(map[result.Code]Entry)}
	for _, e := range defaultCatalog {
		r.register(e)
	}
	return r
}

func (r *registry) register(e Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[e.Code] = e
}

// Get returns the catalog entry for code, synthesizing one from the
// code's own symbolic name if it was never explicitly cataloged.
func (r *registry) Get(code result.Code) Entry {
	r.mu.RLock()
	e, ok := r.entries[code]
	r.mu.RUnlock()
	if ok {
		return e
	}
	status := http.StatusOK
	if code.Failed() {
		status = http.StatusInternalServerError
	}
	return Entry{Code: code, Message: code.String(), HTTPStatus: status}
}

// HTTPStatus returns the suggested HTTP status for code.
func (r *registry) HTTPStatus(code result.Code) int { return r.Get(code).HTTPStatus }

// Message returns the catalog message for code.
func (r *registry) Message(code result.Code) string { return r.Get(code).Message }

// defaultCatalog assigns HTTP statuses and human messages to the
// result codes the control surface is actually expected to surface.
// Anything absent here still resolves via Get's synthesized fallback.
var defaultCatalog = []Entry{
	{result.OK, "ok", http.StatusOK},
	{result.FALSE, "no-op", http.StatusOK},
	{result.ErrInvalidArgument, "invalid argument", http.StatusBadRequest},
	{result.ErrInvalidEnum, "invalid enum value", http.StatusBadRequest},
	{result.ErrObjectNotFound, "object not found", http.StatusNotFound},
	{result.ErrFileNotFound, "file not found", http.StatusNotFound},
	{result.ErrDuplicateElement, "already exists", http.StatusConflict},
	{result.ErrObjectAlreadyInit, "already initialized", http.StatusConflict},
	{result.ErrObjectNotInit, "not initialized", http.StatusPreconditionFailed},
	{result.ErrTaskWorking, "task already running", http.StatusConflict},
	{result.ErrPermissionDenied, "permission denied", http.StatusForbidden},
	{result.ErrTimeout, "timed out", http.StatusGatewayTimeout},
	{result.ErrConnectionLost, "connection lost", http.StatusGone},
	{result.ErrNoImplementation, "not implemented", http.StatusNotImplemented},
	{result.ErrInternalFatalError, "internal error", http.StatusInternalServerError},
}
