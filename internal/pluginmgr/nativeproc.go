// Native-runtime plugins load as child processes speaking net/rpc over
// github.com/hashicorp/go-plugin. Go cannot safely dlopen-and-unload a
// shared library (plugin.Open has no Close), so native plugins are
// realized as separate OS processes instead.
package pluginmgr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/rpc"
	"os"
	"os/exec"

	"github.com/hashicorp/go-hclog"
	goplugin "github.com/hashicorp/go-plugin"

	"github.com/dashost/dashost/internal/bridge"
	"github.com/dashost/dashost/internal/ifc"
	"github.com/dashost/dashost/internal/result"
)

// Handshake authenticates that the child process on the other end of
// stdin/stdout is actually speaking the dashost native-plugin protocol.
var Handshake = goplugin.HandshakeConfig{
	ProtocolVersion:  1,
	MagicCookieKey:   "DASHOST_PLUGIN",
	MagicCookieValue: "dashost-native",
}

// PackageManifest is what a child-process plugin reports about itself
// on connect: its name and the feature kinds (by index) it declares,
// each with the iid it will hand back from CreateFeatureInterface.
type PackageManifest struct {
	Name     string
	Features []FeatureDecl
}

// FeatureDecl names one declared feature slot.
type FeatureDecl struct {
	Kind FeatureKind
	Iid  ifc.Iid
}

// InvokeRequest is one RPC call against a feature interface, forwarded
// by the bridge's Caller over the child process connection.
type InvokeRequest struct {
	RemoteID uint64
	Function string
	Args     json.RawMessage
}

// InvokeResponse carries either a result or an error string.
type InvokeResponse struct {
	Result json.RawMessage
	Error  string
}

// QueryInterfaceRequest asks the child process whether the object
// identified by RemoteID itself supports Iid, the RPC projection of
// step (b)/(c) of the bridge's ordered QueryInterface dispatch.
type QueryInterfaceRequest struct {
	RemoteID uint64
	Iid      ifc.Iid
}

// QueryInterfaceResponse reports the remote id of the matching facet,
// or Found=false when the child process's object does not support Iid.
type QueryInterfaceResponse struct {
	RemoteID uint64
	Found    bool
}

// NativePackageRPC is the interface a child-process plugin's net/rpc
// server implements, dispensed under the "package" plugin name.
type NativePackageRPC interface {
	Manifest() (PackageManifest, error)
	Invoke(req InvokeRequest) (InvokeResponse, error)
	QueryInterface(req QueryInterfaceRequest) (QueryInterfaceResponse, error)
}

type nativeRPCClient struct{ client *rpc.Client }

func (c *nativeRPCClient) Manifest() (PackageManifest, error) {
	var resp PackageManifest
	err := c.client.Call("Package.Manifest", new(interface{}), &resp)
	return resp, err
}

func (c *nativeRPCClient) Invoke(req InvokeRequest) (InvokeResponse, error) {
	var resp InvokeResponse
	err := c.client.Call("Package.Invoke", req, &resp)
	return resp, err
}

func (c *nativeRPCClient) QueryInterface(req QueryInterfaceRequest) (QueryInterfaceResponse, error) {
	var resp QueryInterfaceResponse
	err := c.client.Call("Package.QueryInterface", req, &resp)
	return resp, err
}

// nativePlugin is the goplugin.Plugin implementation dispensed on the
// host side; native plugins only ever run as the RPC server, so Server
// is left unimplemented here (it is only ever called inside the child
// process binary, which embeds its own copy of this type).
type nativePlugin struct {
	goplugin.Plugin
}

func (p *nativePlugin) Client(b *goplugin.MuxBroker, c *rpc.Client) (interface{}, error) {
	return &nativeRPCClient{client: c}, nil
}

// nativeProcessCaller implements bridge.Caller by forwarding calls over
// a child process's RPC connection.
type nativeProcessCaller struct {
	impl NativePackageRPC
}

func (c *nativeProcessCaller) Call(remoteID uint64, fn string, args json.RawMessage) (json.RawMessage, error) {
	resp, err := c.impl.Invoke(InvokeRequest{RemoteID: remoteID, Function: fn, Args: args})
	if err != nil {
		return nil, err
	}
	if resp.Error != "" {
		return nil, errors.New(resp.Error)
	}
	return resp.Result, nil
}

// QueryInterface implements bridge.Caller by forwarding the lookup to
// the child process over the same RPC connection.
func (c *nativeProcessCaller) QueryInterface(remoteID uint64, iid ifc.Iid) (uint64, bool, error) {
	resp, err := c.impl.QueryInterface(QueryInterfaceRequest{RemoteID: remoteID, Iid: iid})
	if err != nil {
		return 0, false, err
	}
	return resp.RemoteID, resp.Found, nil
}

// nativeProcessPackage adapts a running child process into a
// PackageObject: CreateFeatureInterface hands back a bridge facade
// bound to the feature's declared iid and an RPC-assigned remote id
// equal to the feature's index.
type nativeProcessPackage struct {
	ifc.RefCounted
	client   *goplugin.Client
	manifest PackageManifest
	br       *bridge.Bridge
}

func (p *nativeProcessPackage) QueryInterface(id ifc.Iid) (ifc.Unknown, result.Code) {
	return ifc.QueryInterfaceSelf(p, nil, id)
}

func (p *nativeProcessPackage) EnumFeature(i int) (FeatureKind, result.Code) {
	if i < 0 || i >= len(p.manifest.Features) {
		return 0, result.ErrOutOfRange
	}
	return p.manifest.Features[i].Kind, result.OK
}

func (p *nativeProcessPackage) CreateFeatureInterface(i int) (ifc.Unknown, result.Code) {
	if i < 0 || i >= len(p.manifest.Features) {
		return nil, result.ErrOutOfRange
	}
	decl := p.manifest.Features[i]
	handle := &bridge.ForeignHandle{RemoteID: uint64(i), Iid: decl.Iid}
	return p.br.ToNative(handle, decl.Iid)
}

func (p *nativeProcessPackage) CanUnloadNow() bool {
	// A child process is always safe to unload: killing it has no
	// in-process aliasing hazard the way unloading a shared library
	// would. Manager.Unregister does not check whether feature
	// interfaces it handed out are still held: it releases the package
	// object, and Unload runs when that count reaches zero.
	return true
}

// Unload terminates the child process.
func (p *nativeProcessPackage) Unload() {
	p.client.Kill()
}

// LoadNativeProcess spawns execPath as a child process speaking the
// dashost native-plugin protocol and wraps it as a Package.
func LoadNativeProcess(execPath string) (*Package, error) {
	logger := hclog.New(&hclog.LoggerOptions{
		Name:   "dashost-plugin",
		Output: os.Stderr,
		Level:  hclog.Info,
	})

	client := goplugin.NewClient(&goplugin.ClientConfig{
		HandshakeConfig:  Handshake,
		Plugins:          map[string]goplugin.Plugin{"package": &nativePlugin{}},
		Cmd:              exec.Command(execPath),
		Logger:           logger,
		AllowedProtocols: []goplugin.Protocol{goplugin.ProtocolNetRPC},
	})

	rpcClient, err := client.Client()
	if err != nil {
		client.Kill()
		return nil, fmt.Errorf("pluginmgr: connect to %s: %w", execPath, err)
	}
	raw, err := rpcClient.Dispense("package")
	if err != nil {
		client.Kill()
		return nil, fmt.Errorf("pluginmgr: dispense package from %s: %w", execPath, err)
	}
	impl, ok := raw.(NativePackageRPC)
	if !ok {
		client.Kill()
		return nil, fmt.Errorf("pluginmgr: %s did not implement NativePackageRPC", execPath)
	}

	manifest, err := impl.Manifest()
	if err != nil {
		client.Kill()
		return nil, fmt.Errorf("pluginmgr: manifest from %s: %w", execPath, err)
	}

	pkgObj := &nativeProcessPackage{client: client, manifest: manifest}
	pkgObj.RefCounted = ifc.NewRefCounted(func() { pkgObj.Unload() })
	pkgObj.br = bridge.New(&nativeProcessCaller{impl: impl})

	features, code := enumerateFeatures(pkgObj)
	if code.Failed() {
		client.Kill()
		return nil, fmt.Errorf("pluginmgr: enumerate features from %s: %s", execPath, code)
	}

	pkg := &Package{
		Path:     execPath,
		Name:     manifest.Name,
		Object:   pkgObj,
		Features: features,
	}

	sidecar, err := loadSidecarManifest(execPath)
	if err != nil {
		client.Kill()
		return nil, fmt.Errorf("pluginmgr: sidecar manifest for %s: %w", execPath, err)
	}
	applySidecar(pkg, sidecar)

	return pkg, nil
}
