// Package httpapi exposes the HTTP control surface: a thin gin router
// over the plugin manager, scheduler, and UI-extras blob, every
// handler answering through apierrors' {code, message, data} envelope.
package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dashost/dashost/internal/apierrors"
	"github.com/dashost/dashost/internal/corelog"
	"github.com/dashost/dashost/internal/ifc"
	"github.com/dashost/dashost/internal/pluginmgr"
	"github.com/dashost/dashost/internal/result"
	"github.com/dashost/dashost/internal/scheduler"
	"github.com/dashost/dashost/internal/settings"
)

// Server wires the plugin manager, scheduler, and UI-extras blob into a
// gin.Engine exposing the control surface.
type Server struct {
	manager  *pluginmgr.Manager
	sched    *scheduler.Service
	uiExtras *settings.JSONFile
	logs     *corelog.LogRequester
	engine   *gin.Engine
}

// New builds a Server. uiExtras may be nil if the process has not
// opened the UI extras blob yet; handlers that need it then fail with
// result.ErrObjectNotInit.
func New(manager *pluginmgr.Manager, sched *scheduler.Service, uiExtras *settings.JSONFile) *Server {
	s := &Server{manager: manager, sched: sched, uiExtras: uiExtras, logs: corelog.NewLogRequester(512)}
	s.engine = gin.New()
	s.engine.Use(gin.Recovery())
	s.routes()
	return s
}

// Engine returns the underlying gin.Engine for ListenAndServe or tests.
func (s *Server) Engine() *gin.Engine { return s.engine }

func (s *Server) routes() {
	s.engine.POST("/plugins/initialize", s.initializePluginManager)
	s.engine.GET("/plugins", s.listPlugins)
	s.engine.POST("/plugins/:name/enable", s.enablePlugin)
	s.engine.POST("/plugins/:name/disable", s.disablePlugin)
	s.engine.POST("/plugins/load", s.loadPlugin)
	s.engine.GET("/scheduler/info", s.schedulerInfo)
	s.engine.POST("/scheduler/enabled", s.setSchedulerEnabled)
	s.engine.POST("/scheduler/force-start", s.forceStart)
	s.engine.POST("/scheduler/request-stop", s.requestStop)
	s.engine.GET("/scheduler/tasks", s.workingTasks)
	s.engine.GET("/ui-extras", s.getUIExtras)
	s.engine.PUT("/ui-extras", s.setUIExtras)
	s.engine.GET("/logs", s.drainLogs)
}

// drainLogs empties this server's log requester, at most a page at a
// time; the requester's cursor persists across requests so a polling
// client sees each record exactly once.
func (s *Server) drainLogs(c *gin.Context) {
	const pageSize = 100
	out := make([]corelog.Entry, 0, pageSize)
	for len(out) < pageSize {
		var e corelog.Entry
		if code := s.logs.RequestOne(&e); code != result.OK {
			break
		}
		out = append(out, e)
	}
	apierrors.Respond(c, result.OK, out)
}

type initializeRequest struct {
	ProfileID   string   `json:"profile_id"`
	IgnoredIids []string `json:"ignored_iids"`
}

func (s *Server) initializePluginManager(c *gin.Context) {
	var req initializeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.RespondError(c, result.ErrInvalidArgument, err.Error())
		return
	}

	ignored := make([]ifc.Iid, 0, len(req.IgnoredIids))
	for _, raw := range req.IgnoredIids {
		id, err := ifc.ParseIid(raw)
		if err != nil {
			apierrors.RespondError(c, result.ErrInvalidString, err.Error())
			return
		}
		ignored = append(ignored, id)
	}

	waiter, err := s.manager.Initialize(c.Request.Context(), ignored, nil)
	if err != nil {
		if errors.Is(err, pluginmgr.ErrAlreadyInitializing) {
			apierrors.Respond(c, result.FALSE, nil)
			return
		}
		apierrors.RespondError(c, result.ErrInternalFatalError, err.Error())
		return
	}
	apierrors.Respond(c, waiter.Wait(), nil)
}

func (s *Server) listPlugins(c *gin.Context) {
	apierrors.Respond(c, result.OK, s.manager.List())
}

func (s *Server) enablePlugin(c *gin.Context) {
	apierrors.Respond(c, s.manager.Enable(c.Param("name")), nil)
}

func (s *Server) disablePlugin(c *gin.Context) {
	apierrors.Respond(c, s.manager.Disable(c.Param("name")), nil)
}

type loadPluginRequest struct {
	ManifestPath string `json:"manifest_path"`
}

func (s *Server) loadPlugin(c *gin.Context) {
	var req loadPluginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.RespondError(c, result.ErrInvalidArgument, err.Error())
		return
	}
	pkg, err := pluginmgr.LoadNativeProcess(req.ManifestPath)
	if err != nil {
		apierrors.RespondError(c, result.ErrInvalidPath, err.Error())
		return
	}
	apierrors.Respond(c, s.manager.RegisterPackage(pkg, nil), nil)
}

func (s *Server) schedulerInfo(c *gin.Context) {
	v := s.sched.Info()
	data, code := v.Marshal()
	if code.Failed() {
		apierrors.Respond(c, code, nil)
		return
	}
	apierrors.Respond(c, result.OK, json.RawMessage(data))
}

type setEnabledRequest struct {
	Enabled bool `json:"enabled"`
}

func (s *Server) setSchedulerEnabled(c *gin.Context) {
	var req setEnabledRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.RespondError(c, result.ErrInvalidArgument, err.Error())
		return
	}
	s.sched.SetEnabled(req.Enabled)
	apierrors.Respond(c, result.OK, nil)
}

func (s *Server) forceStart(c *gin.Context) {
	apierrors.Respond(c, s.sched.ForceStart(), nil)
}

func (s *Server) requestStop(c *gin.Context) {
	apierrors.Respond(c, s.sched.RequestStop(), nil)
}

type taskSummary struct {
	Name              string `json:"name"`
	NextExecutionTime string `json:"next_execution_time"`
	LastMessage       string `json:"last_message,omitempty"`
	LastError         string `json:"last_error,omitempty"`
}

func (s *Server) workingTasks(c *gin.Context) {
	descriptors := s.sched.WorkingTasks()
	out := make([]taskSummary, 0, len(descriptors))
	for _, d := range descriptors {
		out = append(out, taskSummary{
			Name:              d.Name,
			NextExecutionTime: d.NextExecutionTime.Format(http.TimeFormat),
			LastMessage:       d.LastMessage,
			LastError:         d.LastErr,
		})
	}
	apierrors.Respond(c, result.OK, out)
}

func (s *Server) getUIExtras(c *gin.Context) {
	if s.uiExtras == nil {
		apierrors.Respond(c, result.ErrObjectNotInit, nil)
		return
	}
	str, code := s.uiExtras.ToString()
	if code.Failed() {
		apierrors.Respond(c, code, nil)
		return
	}
	apierrors.Respond(c, result.OK, json.RawMessage(str))
}

func (s *Server) setUIExtras(c *gin.Context) {
	if s.uiExtras == nil {
		apierrors.Respond(c, result.ErrObjectNotInit, nil)
		return
	}
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		apierrors.RespondError(c, result.ErrInvalidArgument, err.Error())
		return
	}
	code := s.uiExtras.FromString(string(body))
	if code.Failed() {
		apierrors.Respond(c, code, nil)
		return
	}
	apierrors.Respond(c, s.uiExtras.Save(), nil)
}
