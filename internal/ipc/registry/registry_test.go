package registry

import (
	"testing"

	"github.com/dashost/dashost/internal/ifc"
	"github.com/dashost/dashost/internal/ipc/wire"
	"github.com/dashost/dashost/internal/result"
)

func TestRegisterAndLookup(t *testing.T) {
	r := New()
	id := wire.EncodeObjectID(2, 0, 1)
	iid := ifc.NamedIid("capture.factory")

	if code := r.RegisterObject(id, iid, 2, "capture0", 1); code != result.OK {
		t.Fatalf("expected OK, got %s", code)
	}

	info, code := r.GetObjectInfo(id)
	if code != result.OK || info.Name != "capture0" {
		t.Fatalf("unexpected GetObjectInfo result: %+v (%s)", info, code)
	}

	byName, code := r.LookupByName("capture0")
	if code != result.OK || byName.ObjectID != id {
		t.Errorf("LookupByName mismatch: %+v (%s)", byName, code)
	}

	byIface, code := r.LookupByInterface(iid)
	if code != result.OK || len(byIface) != 1 || byIface[0].ObjectID != id {
		t.Errorf("LookupByInterface mismatch: %+v (%s)", byIface, code)
	}
}

func TestRegisterRejectsDuplicateAndInvalid(t *testing.T) {
	r := New()
	id := wire.EncodeObjectID(2, 0, 1)
	iid := ifc.NamedIid("capture.factory")

	if code := r.RegisterObject(id, iid, 2, "capture0", 1); code != result.OK {
		t.Fatalf("expected first registration to succeed, got %s", code)
	}
	if code := r.RegisterObject(id, iid, 2, "capture1", 1); code != result.ErrDuplicateElement {
		t.Errorf("expected ErrDuplicateElement, got %s", code)
	}
	if code := r.RegisterObject(wire.ObjectID(0), iid, 2, "x", 1); code != result.ErrInvalidObjectId {
		t.Errorf("expected ErrInvalidObjectId for null id, got %s", code)
	}
	if code := r.RegisterObject(wire.EncodeObjectID(2, 0, 2), iid, 2, "", 1); code != result.ErrInvalidArgument {
		t.Errorf("expected ErrInvalidArgument for empty name, got %s", code)
	}
}

func TestUnregisterObject(t *testing.T) {
	r := New()
	id := wire.EncodeObjectID(2, 0, 1)
	iid := ifc.NamedIid("capture.factory")
	r.RegisterObject(id, iid, 2, "capture0", 1)

	if code := r.UnregisterObject(id); code != result.OK {
		t.Fatalf("expected OK, got %s", code)
	}
	if code := r.UnregisterObject(id); code != result.ErrObjectNotFound {
		t.Errorf("expected ErrObjectNotFound on repeat unregister, got %s", code)
	}
	if _, code := r.LookupByName("capture0"); code != result.ErrObjectNotFound {
		t.Errorf("expected name index cleared, got %s", code)
	}
	if _, code := r.LookupByInterface(iid); code != result.ErrObjectNotFound {
		t.Errorf("expected interface index cleared, got %s", code)
	}
}

func TestListObjectsBySessionAndUnregisterAllFromSession(t *testing.T) {
	r := New()
	iid := ifc.NamedIid("capture.factory")
	r.RegisterObject(wire.EncodeObjectID(2, 0, 1), iid, 2, "a", 1)
	r.RegisterObject(wire.EncodeObjectID(2, 0, 2), iid, 2, "b", 1)
	r.RegisterObject(wire.EncodeObjectID(3, 0, 1), iid, 3, "c", 1)

	if got := r.ListObjectsBySession(2); len(got) != 2 {
		t.Fatalf("expected 2 objects for session 2, got %d", len(got))
	}
	if got := r.ListAllObjects(); len(got) != 3 {
		t.Fatalf("expected 3 total objects, got %d", len(got))
	}

	removed := r.UnregisterAllFromSession(2)
	if removed != 2 {
		t.Errorf("expected 2 removed, got %d", removed)
	}
	if got := r.ListAllObjects(); len(got) != 1 {
		t.Errorf("expected 1 remaining object, got %d", len(got))
	}
	if got := r.ListObjectsBySession(2); len(got) != 0 {
		t.Errorf("expected 0 objects for session 2 after cleanup, got %d", len(got))
	}
}

func TestLookupByInterfaceReturnsAllMatches(t *testing.T) {
	r := New()
	iid := ifc.NamedIid("capture.factory")
	other := ifc.NamedIid("task.factory")
	r.RegisterObject(wire.EncodeObjectID(2, 0, 1), iid, 2, "a", 1)
	r.RegisterObject(wire.EncodeObjectID(2, 0, 2), iid, 2, "b", 1)
	r.RegisterObject(wire.EncodeObjectID(2, 0, 3), other, 2, "c", 1)

	got, code := r.LookupByInterface(iid)
	if code != result.OK || len(got) != 2 {
		t.Fatalf("expected 2 matches, got %d (%s)", len(got), code)
	}
}
