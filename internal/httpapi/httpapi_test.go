package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dashost/dashost/internal/pluginmgr"
	"github.com/dashost/dashost/internal/scheduler"
	"github.com/dashost/dashost/internal/settings"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	mgr := pluginmgr.New()
	sched := scheduler.New()
	uiExtras, err := settings.Open(filepath.Join(t.TempDir(), "UiExtraSettings.json"))
	if err != nil {
		t.Fatalf("failed to open ui extras: %v", err)
	}
	return New(mgr, sched, uiExtras)
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func doRequest(s *Server, method, path string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.Engine().ServeHTTP(rec, req)
	return rec
}

func TestInitializePluginManager(t *testing.T) {
	s := newTestServer(t)
	rec := doRequest(s, http.MethodPost, "/plugins/initialize", []byte(`{"profile_id":"default"}`))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("failed to decode envelope: %v", err)
	}
	if env.Code != 0 {
		t.Errorf("expected code 0, got %d", env.Code)
	}

	// a second initialize should report FALSE (code 1), a no-op rather than a failure.
	rec2 := doRequest(s, http.MethodPost, "/plugins/initialize", []byte(`{"profile_id":"default"}`))
	var env2 envelope
	json.Unmarshal(rec2.Body.Bytes(), &env2)
	if env2.Code == 0 {
		t.Errorf("expected nonzero code on repeat initialize, got %+v", env2)
	}
}

func TestSchedulerInfoAndEnabled(t *testing.T) {
	s := newTestServer(t)
	rec := doRequest(s, http.MethodGet, "/scheduler/info", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	rec = doRequest(s, http.MethodPost, "/scheduler/enabled", []byte(`{"enabled":true}`))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestForceStartWithEmptyQueueFails(t *testing.T) {
	s := newTestServer(t)
	doRequest(s, http.MethodPost, "/scheduler/enabled", []byte(`{"enabled":true}`))

	rec := doRequest(s, http.MethodPost, "/scheduler/force-start", nil)
	var env envelope
	json.Unmarshal(rec.Body.Bytes(), &env)
	if env.Code == 0 {
		t.Errorf("expected nonzero code for force-start on empty queue, got %+v", env)
	}
}

func TestWorkingTasksEmpty(t *testing.T) {
	s := newTestServer(t)
	rec := doRequest(s, http.MethodGet, "/scheduler/tasks", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var env envelope
	json.Unmarshal(rec.Body.Bytes(), &env)
	var tasks []taskSummary
	json.Unmarshal(env.Data, &tasks)
	if len(tasks) != 0 {
		t.Errorf("expected no tasks, got %d", len(tasks))
	}
}

func TestListPluginsEmpty(t *testing.T) {
	s := newTestServer(t)
	rec := doRequest(s, http.MethodGet, "/plugins", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))

	var pkgs []pluginmgr.PackageInfo
	require.NoError(t, json.Unmarshal(env.Data, &pkgs))
	assert.Empty(t, pkgs)
}

func TestEnableUnknownPluginFails(t *testing.T) {
	s := newTestServer(t)
	rec := doRequest(s, http.MethodPost, "/plugins/nope/enable", nil)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.NotZero(t, env.Code)
}

func TestLoadPluginWithBadManifestPathFails(t *testing.T) {
	s := newTestServer(t)
	body, err := json.Marshal(map[string]string{"manifest_path": "/does/not/exist"})
	require.NoError(t, err)

	rec := doRequest(s, http.MethodPost, "/plugins/load", body)
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.NotZero(t, env.Code)
}

func TestUIExtrasRoundTrip(t *testing.T) {
	s := newTestServer(t)
	rec := doRequest(s, http.MethodPut, "/ui-extras", []byte(`{"theme":"dark"}`))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(s, http.MethodGet, "/ui-extras", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var env envelope
	json.Unmarshal(rec.Body.Bytes(), &env)
	if string(env.Data) == "" {
		t.Error("expected non-empty ui extras data")
	}
}
