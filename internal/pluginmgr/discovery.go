package pluginmgr

import (
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Discovery watches a plugin directory for executables and loads any
// new ones as native child-process packages, debouncing rapid
// filesystem events for hot
// reload (internal/plugin/loader/loader.go's debounce map).
type Discovery struct {
	dir     string
	manager *Manager
	watcher *fsnotify.Watcher

	mu       sync.Mutex
	debounce map[string]*time.Timer
	loaded   map[string]bool

	settleDelay time.Duration
	pythonExe   string
}

// DiscoveryOption configures a Discovery at construction.
type DiscoveryOption func(*Discovery)

// WithSettleDelay overrides the debounce window before a newly written
// file is treated as ready to load (default 250ms).
func WithSettleDelay(d time.Duration) DiscoveryOption {
	return func(disc *Discovery) { disc.settleDelay = d }
}

// WithPythonExecutable overrides the interpreter binary used for
// foreign-runtime (.py) plugins discovered under dir (default
// "python3").
func WithPythonExecutable(exe string) DiscoveryOption {
	return func(disc *Discovery) { disc.pythonExe = exe }
}

// NewDiscovery creates a Discovery over dir, feeding loaded packages
// into manager. Call Start to begin watching.
func NewDiscovery(dir string, manager *Manager, opts ...DiscoveryOption) (*Discovery, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	disc := &Discovery{
		dir:         dir,
		manager:     manager,
		watcher:     watcher,
		debounce:    make(map[string]*time.Timer),
		loaded:      make(map[string]bool),
		settleDelay: 250 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(disc)
	}
	return disc, nil
}

// ScanOnce loads every currently-present executable in dir without
// starting a watch, for a one-shot startup scan before Start takes over
// for hot-reload.
func (d *Discovery) ScanOnce() (int, error) {
	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return 0, err
	}
	entries, err := os.ReadDir(d.dir)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		path := filepath.Join(d.dir, e.Name())
		if !isExecutable(path) && !isPythonModule(path) {
			continue
		}
		if d.tryLoad(path) {
			count++
		}
	}
	return count, nil
}

// Start begins watching dir for new or changed executables, loading
// each after its debounce window elapses. Call Stop to release the
// watcher.
func (d *Discovery) Start() error {
	if err := d.watcher.Add(d.dir); err != nil {
		return err
	}
	go d.watchLoop()
	return nil
}

// Stop releases the underlying fsnotify watcher.
func (d *Discovery) Stop() error {
	return d.watcher.Close()
}

func (d *Discovery) watchLoop() {
	for {
		select {
		case ev, ok := <-d.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if !isExecutable(ev.Name) && !isPythonModule(ev.Name) {
				continue
			}
			d.scheduleLoad(ev.Name)
		case _, ok := <-d.watcher.Errors:
			if !ok {
				return
			}
		}
	}
}

func (d *Discovery) scheduleLoad(path string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if t, ok := d.debounce[path]; ok {
		t.Stop()
	}
	d.debounce[path] = time.AfterFunc(d.settleDelay, func() {
		if isExecutable(path) || isPythonModule(path) {
			d.tryLoad(path)
		}
		d.mu.Lock()
		delete(d.debounce, path)
		d.mu.Unlock()
	})
}

// tryLoad loads path as a native child-process plugin, unless it is a
// .py file — the foreign-runtime container — in which
// case it is imported into the shared python interpreter instead.
func (d *Discovery) tryLoad(path string) bool {
	d.mu.Lock()
	if d.loaded[path] {
		d.mu.Unlock()
		return false
	}
	d.mu.Unlock()

	var pkg *Package
	var err error
	if isPythonModule(path) {
		pkg, err = LoadPythonPlugin(d.dir, path, d.pythonExe)
	} else {
		pkg, err = LoadNativeProcess(path)
	}
	if err != nil {
		d.manager.logger.Warn("failed to load discovered plugin", "path", path, "error", err)
		return false
	}
	if code := d.manager.RegisterPackage(pkg, nil); code.Failed() {
		d.manager.logger.Warn("failed to register discovered plugin", "path", path, "code", code.String())
		return false
	}

	d.mu.Lock()
	d.loaded[path] = true
	d.mu.Unlock()
	return true
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	_, err = exec.LookPath(path)
	if err == nil {
		return true
	}
	return info.Mode()&0o111 != 0
}

// isPythonModule reports whether path is a regular file ending in .py,
// the foreign-runtime plugin container
// alongside the native shared-library/child-process container.
func isPythonModule(path string) bool {
	if filepath.Ext(path) != ".py" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
