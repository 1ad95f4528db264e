package pluginmgr

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/dashost/dashost/internal/result"
)

func TestLoadSidecarManifestMissingIsNil(t *testing.T) {
	m, err := loadSidecarManifest(filepath.Join(t.TempDir(), "nope"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m != nil {
		t.Fatalf("expected nil manifest, got %+v", m)
	}
}

func TestLoadSidecarManifestParsesErrorCatalog(t *testing.T) {
	dir := t.TempDir()
	execPath := filepath.Join(dir, "plugin")
	content := "display_name: Example Plugin\nerror_catalog:\n  en:\n    -10: \"thing broke\"\n"
	if err := os.WriteFile(execPath+".yaml", []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	m, err := loadSidecarManifest(execPath)
	if err != nil {
		t.Fatalf("loadSidecarManifest: %v", err)
	}
	if m.DisplayName != "Example Plugin" {
		t.Errorf("display name = %q", m.DisplayName)
	}
	if got := m.ErrorCatalog["en"][-10]; got != "thing broke" {
		t.Errorf("error catalog entry = %q", got)
	}
}

func TestApplySidecarMergesIntoExistingCatalog(t *testing.T) {
	pkg := &Package{
		ErrorCatalog: map[string]map[result.Code]string{
			"en": {result.ErrInvalidArgument: "bad arg"},
		},
	}
	applySidecar(pkg, &sidecarManifest{
		ErrorCatalog: map[string]map[int32]string{
			"en": {int32(result.ErrOutOfRange): "out of range"},
			"fr": {int32(result.ErrInvalidArgument): "argument invalide"},
		},
	})

	if got := pkg.ErrorCatalog["en"][result.ErrInvalidArgument]; got != "bad arg" {
		t.Errorf("expected existing entry preserved, got %q", got)
	}
	if got := pkg.ErrorCatalog["en"][result.ErrOutOfRange]; got != "out of range" {
		t.Errorf("expected merged entry, got %q", got)
	}
	if got := pkg.ErrorCatalog["fr"][result.ErrInvalidArgument]; got != "argument invalide" {
		t.Errorf("expected new locale merged, got %q", got)
	}
}
