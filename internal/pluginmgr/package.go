package pluginmgr

import (
	"fmt"
	"sync"

	"github.com/dashost/dashost/internal/ifc"
	"github.com/dashost/dashost/internal/result"
	"github.com/dashost/dashost/internal/settings"
)

// PackageObject is the contract a loaded plugin's top-level object must
// satisfy: enumerate its declared features by index until
// OutOfRange, hand back the matching interface for a given index, and
// self-report whether it can be safely unloaded.
type PackageObject interface {
	ifc.Unknown
	EnumFeature(i int) (FeatureKind, result.Code)
	CreateFeatureInterface(i int) (ifc.Unknown, result.Code)
	CanUnloadNow() bool
}

// Package is the manager's record of one loaded plugin: its path,
// package object, declared features, per-feature settings json,
// localized error catalog, and iid table.
type Package struct {
	Path   string
	Name   string
	Object PackageObject

	// Features holds at most one interface per kind, per the package
	// object contract.
	Features map[FeatureKind]ifc.Unknown

	Settings *settings.JSONFile

	// ErrorCatalog maps locale -> result code -> localized message.
	ErrorCatalog map[string]map[result.Code]string

	// IidTable holds singleton objects the package registers directly
	// by interface id, independent of the feature-kind lookup.
	IidTable map[ifc.Iid]ifc.Unknown

	mu      sync.Mutex
	enabled bool
}

// IsEnabled reports whether the package is currently enabled.
func (p *Package) IsEnabled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.enabled
}

func (p *Package) setEnabled(v bool) {
	p.mu.Lock()
	p.enabled = v
	p.mu.Unlock()
}

// ErrorMessage resolves a localized message for code along the
// error-lens fallback chain: the requested locale, then "en" as the
// default locale, then a synthesized placeholder.
func (p *Package) ErrorMessage(locale string, code result.Code) string {
	if msgs, ok := p.ErrorCatalog[locale]; ok {
		if m, ok := msgs[code]; ok {
			return m
		}
	}
	if msgs, ok := p.ErrorCatalog["en"]; ok {
		if m, ok := msgs[code]; ok {
			return m
		}
	}
	return fmt.Sprintf("No explanation for error code %d", int32(code))
}

// enumerateFeatures walks EnumFeature/CreateFeatureInterface until
// OutOfRange, filing at most one interface per kind, per the package
// object contract.
func enumerateFeatures(obj PackageObject) (map[FeatureKind]ifc.Unknown, result.Code) {
	features := make(map[FeatureKind]ifc.Unknown)
	for i := 0; ; i++ {
		kind, code := obj.EnumFeature(i)
		if code == result.ErrOutOfRange {
			break
		}
		if code.Failed() {
			return nil, code
		}
		iface, code := obj.CreateFeatureInterface(i)
		if code.Failed() {
			return nil, code
		}
		features[kind] = iface
	}
	return features, result.OK
}
