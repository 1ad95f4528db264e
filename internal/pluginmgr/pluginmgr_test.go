package pluginmgr

import (
	"context"
	"errors"
	"testing"

	"github.com/dashost/dashost/internal/ifc"
	"github.com/dashost/dashost/internal/result"
)

type fakeFeature struct{ ifc.RefCounted }

func (f *fakeFeature) QueryInterface(id ifc.Iid) (ifc.Unknown, result.Code) {
	return ifc.QueryInterfaceSelf(f, nil, id)
}

type fakePackageObject struct {
	ifc.RefCounted
	kinds      []FeatureKind
	canUnload  bool
	createdErr result.Code
}

func (p *fakePackageObject) QueryInterface(id ifc.Iid) (ifc.Unknown, result.Code) {
	return ifc.QueryInterfaceSelf(p, nil, id)
}

func (p *fakePackageObject) EnumFeature(i int) (FeatureKind, result.Code) {
	if i < 0 || i >= len(p.kinds) {
		return 0, result.ErrOutOfRange
	}
	return p.kinds[i], result.OK
}

func (p *fakePackageObject) CreateFeatureInterface(i int) (ifc.Unknown, result.Code) {
	if p.createdErr.Failed() {
		return nil, p.createdErr
	}
	return &fakeFeature{RefCounted: ifc.NewRefCounted(nil)}, result.OK
}

func (p *fakePackageObject) CanUnloadNow() bool { return p.canUnload }

func newTestPackage(t *testing.T, name string, kinds ...FeatureKind) *Package {
	t.Helper()
	obj := &fakePackageObject{kinds: kinds, canUnload: true}
	obj.RefCounted = ifc.NewRefCounted(nil)
	features, code := enumerateFeatures(obj)
	if code.Failed() {
		t.Fatalf("enumerateFeatures failed: %s", code)
	}
	return &Package{Name: name, Path: "/fake/" + name, Object: obj, Features: features}
}

func TestRegisterAndList(t *testing.T) {
	m := New()
	pkg := newTestPackage(t, "capture-demo", FeatureCaptureFactory, FeatureTask)

	if code := m.RegisterPackage(pkg, nil); code != result.OK {
		t.Fatalf("expected OK, got %s", code)
	}
	if code := m.RegisterPackage(pkg, nil); code != result.ErrDuplicateElement {
		t.Errorf("expected ErrDuplicateElement on re-register, got %s", code)
	}

	list := m.List()
	if len(list) != 1 || list[0].Name != "capture-demo" {
		t.Errorf("expected one package named capture-demo, got %+v", list)
	}
}

func TestFeatureLookup(t *testing.T) {
	m := New()
	pkg := newTestPackage(t, "p", FeatureCaptureFactory)
	m.RegisterPackage(pkg, nil)

	if _, code := m.Feature("p", FeatureCaptureFactory); code != result.OK {
		t.Errorf("expected OK, got %s", code)
	}
	if _, code := m.Feature("p", FeatureTask); code != result.ErrNoInterface {
		t.Errorf("expected ErrNoInterface for undeclared kind, got %s", code)
	}
	if _, code := m.Feature("missing", FeatureTask); code != result.ErrObjectNotFound {
		t.Errorf("expected ErrObjectNotFound, got %s", code)
	}
}

func TestDisabledPackageFeatureLookupFails(t *testing.T) {
	m := New()
	pkg := newTestPackage(t, "p", FeatureTask)
	m.RegisterPackage(pkg, nil)
	m.Disable("p")

	if _, code := m.Feature("p", FeatureTask); code != result.ErrObjectNotInit {
		t.Errorf("expected ErrObjectNotInit while disabled, got %s", code)
	}
	m.Enable("p")
	if _, code := m.Feature("p", FeatureTask); code != result.OK {
		t.Errorf("expected OK after re-enable, got %s", code)
	}
}

func TestUnregisterRefusesWhileBusy(t *testing.T) {
	m := New()
	obj := &fakePackageObject{canUnload: false}
	obj.RefCounted = ifc.NewRefCounted(nil)
	pkg := &Package{Name: "busy", Object: obj, Features: map[FeatureKind]ifc.Unknown{}}
	m.RegisterPackage(pkg, nil)

	if code := m.Unregister("busy"); code != result.ErrTaskWorking {
		t.Errorf("expected ErrTaskWorking, got %s", code)
	}

	obj.canUnload = true
	if code := m.Unregister("busy"); code != result.OK {
		t.Errorf("expected OK once unloadable, got %s", code)
	}
}

func TestInitializeIsOneShot(t *testing.T) {
	m := New()
	waiter, err := m.Initialize(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("expected no error on first call, got %v", err)
	}
	if code := waiter.Wait(); code != result.OK {
		t.Fatalf("expected OK, got %s", code)
	}

	second, err := m.Initialize(context.Background(), nil, nil)
	if !errors.Is(err, ErrAlreadyInitializing) {
		t.Errorf("expected ErrAlreadyInitializing on second call, got %v", err)
	}
	if second != waiter {
		t.Errorf("expected the second call to return the original waiter, got a different one")
	}
}

func TestInitializeInvokesOnDoneCallback(t *testing.T) {
	m := New()
	done := make(chan result.Code, 1)
	waiter, err := m.Initialize(context.Background(), nil, func(code result.Code) { done <- code })
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	waiter.Wait()
	select {
	case code := <-done:
		if code != result.OK {
			t.Errorf("expected onDone called with OK, got %s", code)
		}
	default:
		t.Fatal("expected onDone to have been invoked by the time Wait returns")
	}
}

func TestErrorMessageFallsBackToSynthesized(t *testing.T) {
	m := New()
	pkg := newTestPackage(t, "p")
	pkg.ErrorCatalog = map[string]map[result.Code]string{
		"en": {result.ErrOutOfRange: "out of range, friend"},
	}
	m.RegisterPackage(pkg, nil)

	msg, code := m.ErrorMessage("p", "fr", result.ErrOutOfRange)
	if code != result.OK {
		t.Fatalf("expected OK, got %s", code)
	}
	if msg != "out of range, friend" {
		t.Errorf("expected fallback to en catalog, got %q", msg)
	}

	msg, _ = m.ErrorMessage("p", "fr", result.ErrTimeout)
	if msg == "" {
		t.Error("expected synthesized placeholder message, got empty string")
	}
}
