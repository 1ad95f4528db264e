// Foreign-runtime (python) plugin container: the interpreter is lazily
// bootstrapped process-wide and each plugin module is imported into it
// under a dotted module path derived from the file-system path. It
// shares nativeproc.go's Invoke/QueryInterface wire contract, but where
// nativeproc.go spawns one goplugin.Client per plugin, this container
// spawns exactly ONE interpreter process for the whole daemon and
// imports every discovered python module into it.
package pluginmgr

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/dashost/dashost/internal/bridge"
	"github.com/dashost/dashost/internal/ifc"
	"github.com/dashost/dashost/internal/result"
)

// pythonBootstrapModule is the stdio JSON-line RPC shim every dashost
// python host process runs under `python3 -m <this>`: it waits for
// {"cmd":"import",...} frames on stdin, imports the named dotted
// module, calls its DasCoCreatePlugin() factory, and thereafter answers
// {"cmd":"invoke",...} / {"cmd":"query_interface",...} frames routed to
// the object that factory returned. Its source ships with the python
// plugin SDK, not this Go module.
const pythonBootstrapModule = "dashost_host_bootstrap"

// ModulePathFromFile derives the dotted python module import path:
// path is taken relative to root, every remaining
// path segment is joined by '.', and the last segment's extension is
// stripped. A plugin at "<root>/capture/basic.py" imports as
// "capture.basic", never as an absolute-path-rooted name.
func ModulePathFromFile(root, path string) (string, error) {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return "", err
	}
	rel = strings.TrimSuffix(rel, filepath.Ext(rel))
	segments := strings.Split(filepath.ToSlash(rel), "/")
	for _, seg := range segments {
		if seg == "" || seg == "." || seg == ".." {
			return "", fmt.Errorf("pluginmgr: %q is not a module path under %q", path, root)
		}
	}
	return strings.Join(segments, "."), nil
}

// pythonRequest/pythonResponse are newline-delimited JSON frames
// exchanged with the interpreter's stdin/stdout — the line-protocol
// projection of the same Invoke/QueryInterface RPC shape
// nativeproc.go carries over net/rpc/gob, since CPython speaks JSON
// lines here rather than Go's native RPC wire format.
type pythonRequest struct {
	Cmd      string          `json:"cmd"`
	Module   string          `json:"module,omitempty"`
	RemoteID uint64          `json:"remote_id,omitempty"`
	Function string          `json:"function,omitempty"`
	Args     json.RawMessage `json:"args,omitempty"`
	Iid      string          `json:"iid,omitempty"`
}

type pythonResponse struct {
	Manifest PackageManifest `json:"manifest,omitempty"`
	Result   json.RawMessage `json:"result,omitempty"`
	RemoteID uint64          `json:"remote_id,omitempty"`
	Found    bool            `json:"found,omitempty"`
	Error    string          `json:"error,omitempty"`
}

// pythonInterpreter owns one persistent "python3 -m dashost_host_bootstrap"
// child process, lazily started on first use and shared by every python
// plugin the manager goes on to load.
type pythonInterpreter struct {
	mu     sync.Mutex
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	reader *bufio.Scanner
}

var (
	pythonOnce      sync.Once
	pythonSingleton *pythonInterpreter
	pythonInitErr   error
)

// sharedPythonInterpreter lazily bootstraps the process-wide interpreter
// the first time any python plugin is loaded, and returns the same
// instance on every later call.
func sharedPythonInterpreter(pythonExe string) (*pythonInterpreter, error) {
	pythonOnce.Do(func() {
		pythonSingleton, pythonInitErr = startPythonInterpreter(pythonExe)
	})
	return pythonSingleton, pythonInitErr
}

func startPythonInterpreter(pythonExe string) (*pythonInterpreter, error) {
	if pythonExe == "" {
		pythonExe = "python3"
	}
	cmd := exec.Command(pythonExe, "-m", pythonBootstrapModule)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("pluginmgr: start python interpreter: %w", err)
	}
	return &pythonInterpreter{cmd: cmd, stdin: stdin, reader: bufio.NewScanner(stdout)}, nil
}

func (p *pythonInterpreter) roundTrip(req pythonRequest) (pythonResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	line, err := json.Marshal(req)
	if err != nil {
		return pythonResponse{}, err
	}
	if _, err := p.stdin.Write(append(line, '\n')); err != nil {
		return pythonResponse{}, err
	}
	if !p.reader.Scan() {
		if err := p.reader.Err(); err != nil {
			return pythonResponse{}, err
		}
		return pythonResponse{}, errors.New("pluginmgr: python interpreter closed stdout")
	}
	var resp pythonResponse
	if err := json.Unmarshal(p.reader.Bytes(), &resp); err != nil {
		return pythonResponse{}, err
	}
	if resp.Error != "" {
		return pythonResponse{}, errors.New(resp.Error)
	}
	return resp, nil
}

// pythonCaller implements bridge.Caller by forwarding both directions
// through the shared interpreter's stdio line protocol, mirroring
// nativeProcessCaller's RPC forwarding exactly.
type pythonCaller struct {
	interp *pythonInterpreter
}

func (c *pythonCaller) Call(remoteID uint64, fn string, args json.RawMessage) (json.RawMessage, error) {
	resp, err := c.interp.roundTrip(pythonRequest{Cmd: "invoke", RemoteID: remoteID, Function: fn, Args: args})
	if err != nil {
		return nil, err
	}
	return resp.Result, nil
}

func (c *pythonCaller) QueryInterface(remoteID uint64, iid ifc.Iid) (uint64, bool, error) {
	resp, err := c.interp.roundTrip(pythonRequest{Cmd: "query_interface", RemoteID: remoteID, Iid: iid.String()})
	if err != nil {
		return 0, false, err
	}
	return resp.RemoteID, resp.Found, nil
}

// pythonPackage adapts an imported python module into a PackageObject,
// mirroring nativeProcessPackage but with nothing to kill on unload:
// the shared interpreter outlives any single plugin module's lifetime,
// so unloading only drops this package's slice of the manager's tables.
type pythonPackage struct {
	ifc.RefCounted
	manifest PackageManifest
	br       *bridge.Bridge
}

func (p *pythonPackage) QueryInterface(id ifc.Iid) (ifc.Unknown, result.Code) {
	return ifc.QueryInterfaceSelf(p, nil, id)
}

func (p *pythonPackage) EnumFeature(i int) (FeatureKind, result.Code) {
	if i < 0 || i >= len(p.manifest.Features) {
		return 0, result.ErrOutOfRange
	}
	return p.manifest.Features[i].Kind, result.OK
}

func (p *pythonPackage) CreateFeatureInterface(i int) (ifc.Unknown, result.Code) {
	if i < 0 || i >= len(p.manifest.Features) {
		return nil, result.ErrOutOfRange
	}
	decl := p.manifest.Features[i]
	handle := &bridge.ForeignHandle{RemoteID: uint64(i), Iid: decl.Iid}
	return p.br.ToNative(handle, decl.Iid)
}

// CanUnloadNow always reports true: there is no per-plugin process to
// wait on, only the python-side object's own reference count, which the
// bootstrap module is responsible for tracking on its side of the wire.
func (p *pythonPackage) CanUnloadNow() bool { return true }

// Unload is a no-op: the shared interpreter keeps running for the next
// python plugin load, so there is nothing to terminate here.
func (p *pythonPackage) Unload() {}

// LoadPythonPlugin imports the python module at path (rooted under
// root) into the shared process-wide interpreter and wraps the package
// object it returns. pythonExe selects the interpreter binary; an empty
// string defaults to "python3".
func LoadPythonPlugin(root, path, pythonExe string) (*Package, error) {
	modulePath, err := ModulePathFromFile(root, path)
	if err != nil {
		return nil, fmt.Errorf("pluginmgr: derive module path for %s: %w", path, err)
	}

	interp, err := sharedPythonInterpreter(pythonExe)
	if err != nil {
		return nil, fmt.Errorf("pluginmgr: bootstrap python interpreter: %w", err)
	}

	resp, err := interp.roundTrip(pythonRequest{Cmd: "import", Module: modulePath})
	if err != nil {
		return nil, fmt.Errorf("pluginmgr: import %s: %w", modulePath, err)
	}

	pkgObj := &pythonPackage{manifest: resp.Manifest}
	pkgObj.RefCounted = ifc.NewRefCounted(nil)
	pkgObj.br = bridge.New(&pythonCaller{interp: interp})

	features, code := enumerateFeatures(pkgObj)
	if code.Failed() {
		return nil, fmt.Errorf("pluginmgr: enumerate features from %s: %s", modulePath, code)
	}

	return &Package{
		Path:     path,
		Name:     resp.Manifest.Name,
		Object:   pkgObj,
		Features: features,
	}, nil
}
