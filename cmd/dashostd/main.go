// Command dashostd is the automation-script host runtime daemon: it
// wires the plugin manager, task scheduler, and IPC server together
// behind the HTTP control surface. cmd/dashostctl is its companion
// operator CLI.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dashost/dashost/internal/config"
	"github.com/dashost/dashost/internal/corelog"
	"github.com/dashost/dashost/internal/httpapi"
	"github.com/dashost/dashost/internal/ipc/command"
	"github.com/dashost/dashost/internal/ipc/registry"
	"github.com/dashost/dashost/internal/ipc/server"
	"github.com/dashost/dashost/internal/ipc/session"
	"github.com/dashost/dashost/internal/ipc/wire"
	"github.com/dashost/dashost/internal/pluginmgr"
	"github.com/dashost/dashost/internal/result"
	"github.com/dashost/dashost/internal/scheduler"
	"github.com/dashost/dashost/internal/settings"
)

func main() {
	configPath := flag.String("config", "", "path to a dashost config file (yaml/json/toml)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "dashostd: load config: %v\n", err)
		os.Exit(1)
	}

	if err := os.MkdirAll(cfg.LogDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "dashostd: create log dir: %v\n", err)
		os.Exit(1)
	}
	logger := corelog.New(cfg.LogDir, cfg.CoreName)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("dashostd exited with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	profile, err := settings.LoadProfile(cfg.ProfileRoot + "/" + cfg.ActiveProfile)
	if err != nil {
		return fmt.Errorf("load active profile: %w", err)
	}
	logger.Info("loaded active profile", "id", profile.ID(), "name", profile.Name())

	uiExtras, err := settings.OpenUIExtraSettings()
	if err != nil {
		return fmt.Errorf("open ui extras blob: %w", err)
	}

	manager := pluginmgr.New(pluginmgr.WithLogger(corelog.NewHCLogAdapter(logger)))
	if n, err := func() (int, error) {
		disc, err := pluginmgr.NewDiscovery(cfg.PluginRoot, manager, pluginmgr.WithPythonExecutable(cfg.PythonExecutable))
		if err != nil {
			return 0, err
		}
		count, err := disc.ScanOnce()
		if err != nil {
			disc.Stop()
			return 0, err
		}
		if err := disc.Start(); err != nil {
			disc.Stop()
			return count, err
		}
		// disc runs its watch goroutine for the process lifetime; the
		// listener teardown below closes everything it feeds into.
		return count, nil
	}(); err != nil {
		logger.Warn("plugin discovery did not complete cleanly", "error", err)
	} else {
		logger.Info("plugin discovery scan complete", "loaded", n)
	}

	sched := scheduler.New(
		scheduler.WithLogger(corelog.NewHCLogAdapter(logger)),
		scheduler.WithPollInterval(cfg.SchedulerPollInterval),
	)
	go sched.Run(ctx)

	reg := registry.New()
	ipcServer := server.Instance(reg)
	ipcServer.Initialize()

	sessions := session.New(session.WithProtocolVersion(1))
	dispatcher := command.NewDispatcher(reg, &pluginLoaderAdapter{manager: manager, reg: reg})
	conns := newConnTable()
	// Object-addressed frames (anything outside the command enum and
	// the handshake band) are forwarded to the owning session's
	// connection; the sender's response is the forward result.
	ipcServer.SetDispatchHandler(func(h wire.Header, body []byte) ([]byte, result.Code) {
		target := conns.get(h.SessionID)
		if target == nil {
			return nil, result.ErrConnectionLost
		}
		if err := target.writeFrame(h, body); err != nil {
			return nil, result.ErrConnectionLost
		}
		return nil, result.OK
	})
	ipcServer.Start()

	ln, err := net.Listen("tcp", cfg.IPCAddr)
	if err != nil {
		return fmt.Errorf("listen on ipc addr %s: %w", cfg.IPCAddr, err)
	}
	go acceptIPC(ctx, ln, ipcServer, sessions, dispatcher, conns, logger)

	httpSrv := httpapi.New(manager, sched, uiExtras)
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: httpSrv.Engine()}
	go func() {
		logger.Info("http control surface listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	srv.Shutdown(shutdownCtx)
	ln.Close()
	ipcServer.Stop()
	manager.ShutdownAll()
	return nil
}

// acceptIPC accepts host process connections on ln and serves one
// frame-read loop per connection until ctx is cancelled. Each
// connection starts unauthenticated and must complete the
// Hello/Welcome handshake before any DispatchMessage is honored.
func acceptIPC(ctx context.Context, ln net.Listener, srv *server.Server, sessions *session.Table, dispatcher *command.Dispatcher, conns *connTable, logger *slog.Logger) {
	go func() {
		<-ctx.Done()
		ln.Close()
	}()
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Error("ipc accept failed", "error", err)
			return
		}
		go serveIPCConn(conn, srv, sessions, dispatcher, conns, logger)
	}
}

func serveIPCConn(conn net.Conn, srv *server.Server, sessions *session.Table, dispatcher *command.Dispatcher, conns *connTable, logger *slog.Logger) {
	ic := &ipcConn{conn: conn}
	defer conn.Close()
	var sessionID uint16
	defer func() {
		if sessionID != 0 {
			conns.remove(sessionID)
			sessions.Goodbye(sessionID, "connection closed")
			srv.OnHostDisconnected(sessionID)
		}
	}()

	for {
		h, body, err := wire.ReadFrame(conn)
		if err != nil {
			return
		}

		if session.IsHandshakeCommand(h.InterfaceID) {
			done := handleHandshakeFrame(ic, h, body, srv, sessions, conns, &sessionID, logger)
			if done {
				return
			}
			continue
		}

		// Command frames drive the registry directly; anything else is
		// an object-addressed message routed through DispatchMessage to
		// the target session's connection.
		var resp []byte
		var code result.Code
		switch {
		case command.IsCommand(h.InterfaceID):
			resp, code = dispatcher.Dispatch(command.Command(h.InterfaceID), body)
		case sessionID == 0:
			code = result.ErrConnectionLost
		default:
			resp, code = srv.DispatchMessage(h, body)
		}
		respHeader := wire.Header{
			CallID:      h.CallID,
			MessageType: wire.Response,
			ErrorCode:   int32(code),
			InterfaceID: h.InterfaceID,
			SessionID:   h.SessionID,
		}
		if err := ic.writeFrame(respHeader, resp); err != nil {
			logger.Warn("ipc write failed", "error", err)
			return
		}
	}
}

// connTable maps established session ids to their connections so the
// dispatch handler can forward object-addressed frames to the owning
// host process. Writes on each connection are serialized by ipcConn's
// own mutex.
type connTable struct {
	mu    sync.Mutex
	conns map[uint16]*ipcConn
}

func newConnTable() *connTable {
	return &connTable{conns: make(map[uint16]*ipcConn)}
}

func (t *connTable) put(sessionID uint16, c *ipcConn) {
	t.mu.Lock()
	t.conns[sessionID] = c
	t.mu.Unlock()
}

func (t *connTable) remove(sessionID uint16) {
	t.mu.Lock()
	delete(t.conns, sessionID)
	t.mu.Unlock()
}

func (t *connTable) get(sessionID uint16) *ipcConn {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.conns[sessionID]
}

type ipcConn struct {
	mu   sync.Mutex
	conn net.Conn
}

func (c *ipcConn) writeFrame(h wire.Header, body []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return wire.WriteFrame(c.conn, h, body)
}

// handleHandshakeFrame drives one Hello/Ready/Heartbeat/Goodbye frame
// through the session table, replying where the sub-protocol calls for
// a response. It reports true when the connection should close
// (Goodbye, or a write failure). connSession tracks the session id this
// connection established so the read loop's teardown can release it.
func handleHandshakeFrame(ic *ipcConn, h wire.Header, body []byte, srv *server.Server, sessions *session.Table, conns *connTable, connSession *uint16, logger *slog.Logger) bool {
	reply := func(interfaceID uint32, code result.Code, respBody []byte) bool {
		respHeader := wire.Header{
			CallID:      h.CallID,
			MessageType: wire.Response,
			ErrorCode:   int32(code),
			InterfaceID: interfaceID,
			SessionID:   *connSession,
		}
		if err := ic.writeFrame(respHeader, respBody); err != nil {
			logger.Warn("ipc handshake write failed", "error", err)
			return true
		}
		return false
	}

	switch h.InterfaceID {
	case session.CmdHello:
		req, code := session.DecodeHello(body)
		if code.Failed() {
			return reply(session.CmdWelcome, code, session.EncodeWelcome(session.WelcomeResponse{Status: session.InvalidName}))
		}
		resp := sessions.Hello(req)
		if resp.Status == session.Success {
			*connSession = resp.SessionID
			conns.put(resp.SessionID, ic)
			srv.OnHostConnected(resp.SessionID)
		}
		return reply(session.CmdWelcome, result.OK, session.EncodeWelcome(resp))

	case session.CmdReady:
		id, code := session.DecodeReady(body)
		if code.Succeeded() {
			code = sessions.Ready(id)
		}
		return reply(session.CmdReady, code, nil)

	case session.CmdHeartbeat:
		sessions.Heartbeat(session.DecodeHeartbeat(body))
		return false // heartbeats are events, never answered

	case session.CmdGoodbye:
		reason, code := session.DecodeGoodbye(body)
		if code.Failed() {
			reason = "malformed goodbye"
		}
		if *connSession != 0 {
			conns.remove(*connSession)
			sessions.Goodbye(*connSession, reason)
			srv.OnHostDisconnected(*connSession)
			*connSession = 0
		}
		return true

	default:
		return reply(h.InterfaceID, result.ErrInvalidMessageType, nil)
	}
}

// pluginLoaderAdapter satisfies command.PluginLoader by loading the
// package and registering it with the plugin manager, backing the
// LoadPlugin command. The returned ObjectInfo carries only the package
// name; nothing is registered in the IPC registry.
type pluginLoaderAdapter struct {
	manager *pluginmgr.Manager
	reg     *registry.Registry
}

func (a *pluginLoaderAdapter) LoadPlugin(manifestPath string) (registry.ObjectInfo, result.Code) {
	pkg, err := pluginmgr.LoadNativeProcess(manifestPath)
	if err != nil {
		return registry.ObjectInfo{}, result.ErrInvalidPath
	}
	if code := a.manager.RegisterPackage(pkg, nil); code.Failed() {
		return registry.ObjectInfo{}, code
	}
	return registry.ObjectInfo{Name: pkg.Name}, result.OK
}
