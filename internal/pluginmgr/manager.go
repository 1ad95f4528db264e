// Package pluginmgr implements the core's plugin manager: package
// discovery, lifecycle (load/unload, enable/disable), a feature
// registry keyed by kind and by interface id, and the settings/error
// catalog wiring each loaded package carries.
package pluginmgr

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/hashicorp/go-hclog"

	"github.com/dashost/dashost/internal/ifc"
	"github.com/dashost/dashost/internal/result"
	"github.com/dashost/dashost/internal/settings"
)

// ErrAlreadyInitializing is returned by a second call to Initialize
// while the one-shot guard from the first call is still in effect. The
// caller-visible result code for this case is result.FALSE, not a
// fresh failure: the original *InitWaiter returned by the first call
// remains authoritative and the installed singleton is left untouched.
var ErrAlreadyInitializing = errors.New("pluginmgr: plugin manager is already initializing")

// InitWaiter is returned by Initialize; Wait blocks the caller until
// the asynchronous one-shot initialization's completion callback has
// fired, then returns the code it was called with — the blocking half
// of InitializeIDasPluginManager's async-call-plus-waiter shape.
type InitWaiter struct {
	done chan struct{}
	code result.Code
}

// Wait blocks until Initialize's onDone callback has fired and returns
// the result code it reported.
func (w *InitWaiter) Wait() result.Code {
	<-w.done
	return w.code
}

// Manager owns every loaded Package and the feature/iid lookup tables
// built from them.
type Manager struct {
	mu       sync.RWMutex
	packages map[string]*Package
	logger   hclog.Logger

	initOnce   sync.Once
	initDone   bool
	initWaiter *InitWaiter
	ignored    []ifc.Iid
}

// Option configures a Manager at construction.
type Option func(*Manager)

// WithLogger injects a custom hclog.Logger.
func WithLogger(l hclog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// New returns an empty Manager, not yet Initialized.
func New(opts ...Option) *Manager {
	m := &Manager{
		packages: make(map[string]*Package),
		logger:   hclog.NewNullLogger(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Initialize is the one-shot, asynchronous manager bring-up: it takes
// the set of iids to ignore and a completion callback, and returns a
// waiter whose Wait blocks
// until that callback fires. A second call — concurrent or after the
// first has already completed — leaves the installed singleton intact
// and returns the original call's *InitWaiter alongside
// ErrAlreadyInitializing, which callers surface as result.FALSE.
func (m *Manager) Initialize(ctx context.Context, ignored []ifc.Iid, onDone func(result.Code)) (*InitWaiter, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	if m.initDone {
		w := m.initWaiter
		m.mu.Unlock()
		return w, ErrAlreadyInitializing
	}
	m.initDone = true
	m.ignored = ignored
	waiter := &InitWaiter{done: make(chan struct{})}
	m.initWaiter = waiter
	m.mu.Unlock()

	go func() {
		m.initOnce.Do(func() {
			m.logger.Info("plugin manager initialized", "ignored_iids", len(ignored))
		})
		waiter.code = result.OK
		if onDone != nil {
			onDone(waiter.code)
		}
		close(waiter.done)
	}()

	return waiter, nil
}

// RegisterPackage adds a fully-loaded Package (built by LoadNativeProcess
// or by invoking an in-process EntryPoint) under the manager, enabled
// by default, loading its per-plugin settings and error catalog.
func (m *Manager) RegisterPackage(pkg *Package, profile *settings.Profile) result.Code {
	if pkg == nil || pkg.Name == "" {
		return result.ErrInvalidArgument
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.packages[pkg.Name]; exists {
		return result.ErrDuplicateElement
	}

	if profile != nil {
		sf, err := settings.Open(settingsPathFor(profile, pkg.Name))
		if err == nil {
			pkg.Settings = sf
		}
	}
	if pkg.ErrorCatalog == nil {
		pkg.ErrorCatalog = map[string]map[result.Code]string{}
	}
	if pkg.Features == nil {
		pkg.Features = map[FeatureKind]ifc.Unknown{}
	}
	if pkg.IidTable == nil {
		pkg.IidTable = map[ifc.Iid]ifc.Unknown{}
	}
	for _, id := range m.ignored {
		if obj, ok := pkg.IidTable[id]; ok {
			obj.Release()
			delete(pkg.IidTable, id)
		}
	}

	pkg.setEnabled(true)
	m.packages[pkg.Name] = pkg
	m.logger.Info("plugin registered", "name", pkg.Name, "path", pkg.Path)
	return result.OK
}

func settingsPathFor(profile *settings.Profile, pluginName string) string {
	return profile.ID() + "/" + pluginName + ".json"
}

// Unregister unloads a package: it refuses while the package reports it
// cannot safely unload yet (outstanding feature interfaces).
func (m *Manager) Unregister(name string) result.Code {
	m.mu.Lock()
	defer m.mu.Unlock()
	pkg, ok := m.packages[name]
	if !ok {
		return result.ErrObjectNotFound
	}
	if !pkg.Object.CanUnloadNow() {
		return result.ErrTaskWorking
	}
	delete(m.packages, name)
	pkg.Object.Release()
	m.logger.Info("plugin unregistered", "name", name)
	return result.OK
}

// Enable marks a registered package enabled.
func (m *Manager) Enable(name string) result.Code {
	m.mu.RLock()
	pkg, ok := m.packages[name]
	m.mu.RUnlock()
	if !ok {
		return result.ErrObjectNotFound
	}
	pkg.setEnabled(true)
	return result.OK
}

// Disable marks a registered package disabled without unloading it.
func (m *Manager) Disable(name string) result.Code {
	m.mu.RLock()
	pkg, ok := m.packages[name]
	m.mu.RUnlock()
	if !ok {
		return result.ErrObjectNotFound
	}
	pkg.setEnabled(false)
	return result.OK
}

// IsEnabled reports a package's enabled flag.
func (m *Manager) IsEnabled(name string) (bool, result.Code) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	pkg, ok := m.packages[name]
	if !ok {
		return false, result.ErrObjectNotFound
	}
	return pkg.IsEnabled(), result.OK
}

// List returns every registered package's name and path, the backing
// data for GetAllPluginInfo.
func (m *Manager) List() []PackageInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]PackageInfo, 0, len(m.packages))
	for _, pkg := range m.packages {
		out = append(out, PackageInfo{Name: pkg.Name, Path: pkg.Path, Enabled: pkg.IsEnabled()})
	}
	return out
}

// PackageInfo is the snapshot shape List/GetAllPluginInfo returns.
type PackageInfo struct {
	Name    string
	Path    string
	Enabled bool
}

// Feature looks up a package's declared feature by kind.
func (m *Manager) Feature(packageName string, kind FeatureKind) (ifc.Unknown, result.Code) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	pkg, ok := m.packages[packageName]
	if !ok {
		return nil, result.ErrObjectNotFound
	}
	if !pkg.IsEnabled() {
		return nil, result.ErrObjectNotInit
	}
	iface, ok := pkg.Features[kind]
	if !ok {
		return nil, result.ErrNoInterface
	}
	return iface, result.OK
}

// CreateComponent scans every enabled package's Component feature for
// one whose queried interface matches id.
func (m *Manager) CreateComponent(id ifc.Iid) (ifc.Unknown, result.Code) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, pkg := range m.packages {
		if !pkg.IsEnabled() {
			continue
		}
		comp, ok := pkg.Features[FeatureComponent]
		if !ok {
			continue
		}
		if obj, code := comp.QueryInterface(id); code == result.OK {
			return obj, result.OK
		}
	}
	return nil, result.ErrNoInterface
}

// FindInterface scans every registered package's iid table for a
// singleton matching id.
func (m *Manager) FindInterface(id ifc.Iid) (ifc.Unknown, result.Code) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, pkg := range m.packages {
		if obj, ok := pkg.IidTable[id]; ok {
			return obj, result.OK
		}
	}
	return nil, result.ErrObjectNotFound
}

// ErrorMessage resolves a localized error message by first finding the
// owning package, then walking its locale fallback chain.
func (m *Manager) ErrorMessage(packageName, locale string, code result.Code) (string, result.Code) {
	m.mu.RLock()
	pkg, ok := m.packages[packageName]
	m.mu.RUnlock()
	if !ok {
		return "", result.ErrObjectNotFound
	}
	return pkg.ErrorMessage(locale, code), result.OK
}

// ShutdownAll unregisters every package, in unspecified order, for
// process teardown. Packages that refuse to unload are logged and
// skipped rather than forced, since forcing would violate the
// can-unload contract.
func (m *Manager) ShutdownAll() {
	m.mu.Lock()
	names := make([]string, 0, len(m.packages))
	for name := range m.packages {
		names = append(names, name)
	}
	m.mu.Unlock()

	for _, name := range names {
		if code := m.Unregister(name); code.Failed() {
			m.logger.Warn("plugin refused to unload during shutdown", "name", name, "code", fmt.Sprint(code))
		}
	}
}
