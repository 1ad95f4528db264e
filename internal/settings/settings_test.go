package settings

import (
	"path/filepath"
	"testing"

	"github.com/dashost/dashost/internal/djson"
	"github.com/dashost/dashost/internal/result"
)

func TestOpenMissingFileStartsEmpty(t *testing.T) {
	dir := t.TempDir()
	f, err := Open(filepath.Join(dir, "nope.json"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.Doc().Kind() != djson.KindObject {
		t.Errorf("expected empty object, got kind %s", f.Doc().Kind())
	}
}

func TestSaveThenReopenRoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.json")

	f, err := Open(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	f.Doc().Set("enabled", true)
	if code := f.Save(); code != result.OK {
		t.Fatalf("expected OK, got %s", code)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	v, code := reopened.GetKey("enabled")
	if code != result.OK {
		t.Fatalf("expected OK, got %s", code)
	}
	b, _ := v.Bool()
	if !b {
		t.Error("expected enabled=true to round trip through Save/Open")
	}
}

func TestGetKeyFallsBackToDefaults(t *testing.T) {
	dir := t.TempDir()
	defaults := djson.NewOwningObject()
	defaults.Set("timeout", float64(30))

	f, err := Open(filepath.Join(dir, "s.json"), WithDefaults(defaults))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	v, code := f.GetKey("timeout")
	if code != result.OK {
		t.Fatalf("expected OK falling back to defaults, got %s", code)
	}
	n, _ := v.Float()
	if n != 30 {
		t.Errorf("expected 30, got %v", n)
	}

	if _, code := f.GetKey("nonexistent"); code != result.ErrOutOfRange {
		t.Errorf("expected ErrOutOfRange, got %s", code)
	}
}

func TestFromStringInvalidLeavesStateUnchanged(t *testing.T) {
	dir := t.TempDir()
	f, err := Open(filepath.Join(dir, "s.json"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	f.Doc().Set("k", "v")

	if code := f.FromString("{not json"); code != result.ErrInvalidJson {
		t.Errorf("expected ErrInvalidJson, got %s", code)
	}
	v, code := f.GetKey("k")
	if code != result.OK {
		t.Fatalf("expected prior state preserved, got %s", code)
	}
	s, _ := v.String()
	if s != "v" {
		t.Errorf("expected \"v\" preserved after failed FromString, got %q", s)
	}
}

func TestProfileLoadAndJsonSettingProperty(t *testing.T) {
	dir := t.TempDir()
	profileDir := filepath.Join(dir, "default")

	p, err := LoadProfile(profileDir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.ID() != "default" {
		t.Errorf("expected id \"default\", got %q", p.ID())
	}

	if _, code := p.GetJsonSettingProperty("bogus"); code != result.ErrInvalidArgument {
		t.Errorf("expected ErrInvalidArgument, got %s", code)
	}
	pf, code := p.GetJsonSettingProperty("profile")
	if code != result.OK {
		t.Fatalf("expected OK, got %s", code)
	}
	pf.Doc().Set("name", "My Profile")
	if p.Name() != "My Profile" {
		t.Errorf("expected profile name to reflect profile.json, got %q", p.Name())
	}
}
