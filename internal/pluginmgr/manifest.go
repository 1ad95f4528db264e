package pluginmgr

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/dashost/dashost/internal/result"
)

// sidecarManifest is an optional YAML file shipped next to a native
// plugin executable (same base name, ".yaml" suffix) carrying the
// locale error catalog and human-facing metadata that don't belong in
// the binary's own wire-level Manifest() RPC response. Grounded in the
// common plugin convention of shipping
// declarative YAML alongside a binary artifact.
type sidecarManifest struct {
	DisplayName  string                      `yaml:"display_name"`
	ErrorCatalog map[string]map[int32]string `yaml:"error_catalog"`
}

// loadSidecarManifest reads execPath+".yaml" if present. A missing
// sidecar is not an error: most plugins have none.
func loadSidecarManifest(execPath string) (*sidecarManifest, error) {
	data, err := os.ReadFile(execPath + ".yaml")
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var m sidecarManifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// applySidecar merges a sidecar manifest's error catalog into pkg,
// overlaying whatever the plugin's own wire manifest already declared.
func applySidecar(pkg *Package, m *sidecarManifest) {
	if m == nil {
		return
	}
	if pkg.ErrorCatalog == nil {
		pkg.ErrorCatalog = make(map[string]map[result.Code]string)
	}
	for locale, msgs := range m.ErrorCatalog {
		dst, ok := pkg.ErrorCatalog[locale]
		if !ok {
			dst = make(map[result.Code]string)
			pkg.ErrorCatalog[locale] = dst
		}
		for code, msg := range msgs {
			dst[result.Code(code)] = msg
		}
	}
}
