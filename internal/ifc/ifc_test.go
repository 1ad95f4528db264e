package ifc

import (
	"testing"

	"github.com/dashost/dashost/internal/result"
)

type probe struct {
	RefCounted
	destroyed *bool
}

func newProbe(destroyed *bool) *probe {
	p := &probe{destroyed: destroyed}
	p.RefCounted = NewRefCounted(func() { *destroyed = true })
	return p
}

func (p *probe) QueryInterface(id Iid) (Unknown, result.Code) {
	return QueryInterfaceSelf(p, nil, id)
}

func TestRefCountedLifecycle(t *testing.T) {
	destroyed := false
	p := newProbe(&destroyed)

	if n := p.AddRef(); n != 2 {
		t.Errorf("expected ref count 2 after AddRef, got %d", n)
	}
	if n := p.Release(); n != 1 {
		t.Errorf("expected ref count 1 after first Release, got %d", n)
	}
	if destroyed {
		t.Error("destroyed before count reached zero")
	}
	if n := p.Release(); n != 0 {
		t.Errorf("expected ref count 0 after second Release, got %d", n)
	}
	if !destroyed {
		t.Error("expected destroy callback to fire when count reached zero")
	}
}

func TestQueryInterfaceSelf(t *testing.T) {
	destroyed := false
	p := newProbe(&destroyed)
	defer p.Release()

	t.Run("Unknown always matches", func(t *testing.T) {
		got, code := p.QueryInterface(IidUnknown)
		if code != result.OK {
			t.Fatalf("expected OK, got %s", code)
		}
		got.Release()
	})

	t.Run("unrecognized iid fails", func(t *testing.T) {
		_, code := p.QueryInterface(NamedIid("Nonexistent.Interface"))
		if code != result.ErrNoInterface {
			t.Errorf("expected ErrNoInterface, got %s", code)
		}
	})

	t.Run("zero iid is invalid argument", func(t *testing.T) {
		_, code := p.QueryInterface(Iid{})
		if code != result.ErrInvalidArgument {
			t.Errorf("expected ErrInvalidArgument, got %s", code)
		}
	})
}

func TestWeakRefFailsToResolveAfterDestruction(t *testing.T) {
	destroyed := false
	p := newProbe(&destroyed)
	base := NewWeakableBase(p)
	weak := base.NewWeakRef()

	strong, code := weak.Resolve(IidUnknown)
	if code != result.OK {
		t.Fatalf("expected live resolve to succeed, got %s", code)
	}
	strong.Release()

	p.Release() // drops to zero
	base.Invalidate()

	if _, code := weak.Resolve(IidUnknown); code != result.ErrStrongReferenceNotAvailable {
		t.Errorf("expected dangling resolve to fail, got %s", code)
	}
}

func TestNamedIidStable(t *testing.T) {
	a := NamedIid("Das.Core.ITask")
	b := NamedIid("Das.Core.ITask")
	if a != b {
		t.Error("expected NamedIid to be deterministic for the same name")
	}
	if a == NamedIid("Das.Core.IOther") {
		t.Error("expected distinct names to produce distinct iids")
	}
}

func TestParseIidRoundTrip(t *testing.T) {
	id := NamedIid("Das.Core.ICaptureFactory")
	parsed, err := ParseIid(id.String())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if parsed != id {
		t.Error("expected round trip through String/ParseIid to preserve the id")
	}
}
