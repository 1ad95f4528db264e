package server

import (
	"testing"

	"github.com/dashost/dashost/internal/ifc"
	"github.com/dashost/dashost/internal/ipc/registry"
	"github.com/dashost/dashost/internal/ipc/wire"
	"github.com/dashost/dashost/internal/result"
)

func TestOnHostConnectedRejectsDuplicate(t *testing.T) {
	s := New(registry.New())
	if code := s.OnHostConnected(2); code != result.OK {
		t.Fatalf("expected OK, got %s", code)
	}
	if code := s.OnHostConnected(2); code != result.ErrDuplicateElement {
		t.Errorf("expected ErrDuplicateElement, got %s", code)
	}
}

func TestOnHostConnectedFiresObserver(t *testing.T) {
	s := New(registry.New())
	var got *HostSessionInfo
	s.OnSessionConnected(func(info HostSessionInfo) { got = &info })

	s.OnHostConnected(5)
	if got == nil || got.SessionID != 5 || !got.Connected {
		t.Errorf("expected observer fired with connected session 5, got %+v", got)
	}
}

func TestOnRemoteObjectRegisteredRefusesUnconnectedSession(t *testing.T) {
	s := New(registry.New())
	iid := ifc.NamedIid("capture.factory")
	code := s.OnRemoteObjectRegistered(wire.EncodeObjectID(2, 0, 1), iid, 2, "capture0", 1)
	if code != result.ErrConnectionLost {
		t.Errorf("expected ErrConnectionLost, got %s", code)
	}
}

func TestOnRemoteObjectRegisteredSucceedsWhenConnected(t *testing.T) {
	s := New(registry.New())
	s.OnHostConnected(2)
	iid := ifc.NamedIid("capture.factory")

	var registered *registry.ObjectInfo
	s.OnObjectRegistered(func(info registry.ObjectInfo) { registered = &info })

	id := wire.EncodeObjectID(2, 0, 1)
	if code := s.OnRemoteObjectRegistered(id, iid, 2, "capture0", 1); code != result.OK {
		t.Fatalf("expected OK, got %s", code)
	}
	if registered == nil || registered.Name != "capture0" {
		t.Errorf("expected observer fired with registered object, got %+v", registered)
	}
}

func TestOnHostDisconnectedUnregistersOwnedObjects(t *testing.T) {
	reg := registry.New()
	s := New(reg)
	s.OnHostConnected(2)
	iid := ifc.NamedIid("capture.factory")
	id := wire.EncodeObjectID(2, 0, 1)
	s.OnRemoteObjectRegistered(id, iid, 2, "capture0", 1)

	var unregistered []registry.ObjectInfo
	s.OnObjectUnregistered(func(info registry.ObjectInfo) { unregistered = append(unregistered, info) })
	var disconnected *HostSessionInfo
	s.OnSessionDisconnected(func(info HostSessionInfo) { disconnected = &info })

	if code := s.OnHostDisconnected(2); code != result.OK {
		t.Fatalf("expected OK, got %s", code)
	}
	if len(unregistered) != 1 || unregistered[0].ObjectID != id {
		t.Errorf("expected object-unregistered fired for %v, got %+v", id, unregistered)
	}
	if disconnected == nil || disconnected.Connected {
		t.Errorf("expected disconnected session snapshot, got %+v", disconnected)
	}
	if _, code := reg.GetObjectInfo(id); code != result.ErrObjectNotFound {
		t.Errorf("expected object removed from registry, got %s", code)
	}
}

func TestDispatchMessageWithoutHandlerReturnsNoImplementation(t *testing.T) {
	reg := registry.New()
	s := New(reg)
	s.OnHostConnected(2)
	iid := ifc.NamedIid("capture.factory")
	s.OnRemoteObjectRegistered(wire.EncodeObjectID(2, 0, 1), iid, 2, "capture0", 1)

	h := wire.Header{SessionID: 2, Generation: 0, LocalID: 1}
	resp, code := s.DispatchMessage(h, nil)
	if code != result.ErrNoImplementation || resp != nil {
		t.Errorf("expected ErrNoImplementation with empty response, got %s / %v", code, resp)
	}
}

func TestDispatchMessageRunsHandlerExactlyOnceForRegisteredObject(t *testing.T) {
	reg := registry.New()
	s := New(reg)
	s.OnHostConnected(2)
	iid := ifc.NamedIid("capture.factory")
	id := wire.EncodeObjectID(2, 0, 1)
	s.OnRemoteObjectRegistered(id, iid, 2, "capture0", 1)

	calls := 0
	s.SetDispatchHandler(func(h wire.Header, body []byte) ([]byte, result.Code) {
		calls++
		return body, result.OK
	})

	h := wire.Header{SessionID: 2, Generation: 0, LocalID: 1, BodySize: 3}
	resp, code := s.DispatchMessage(h, []byte("abc"))
	if code != result.OK || string(resp) != "abc" {
		t.Fatalf("unexpected dispatch result: %s / %q", code, resp)
	}
	if calls != 1 {
		t.Errorf("expected handler invoked exactly once, got %d", calls)
	}
}

func TestDispatchMessageOnUnregisteredObjectReturnsObjectNotFound(t *testing.T) {
	s := New(registry.New())
	s.OnHostConnected(2)
	s.SetDispatchHandler(func(h wire.Header, body []byte) ([]byte, result.Code) {
		t.Fatal("handler must not be invoked for an unregistered object")
		return nil, result.OK
	})

	h := wire.Header{SessionID: 2, Generation: 0, LocalID: 999}
	if _, code := s.DispatchMessage(h, nil); code != result.ErrObjectNotFound {
		t.Errorf("expected ErrObjectNotFound, got %s", code)
	}
}
