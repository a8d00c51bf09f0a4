package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josephgoksu/PRDWing/internal/app"
	"github.com/josephgoksu/PRDWing/internal/metrics"
	"github.com/josephgoksu/PRDWing/internal/store"
)

// cannedModel returns queued responses in order.
type cannedModel struct {
	mu        sync.Mutex
	responses []string
}

func (m *cannedModel) Complete(context.Context, string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.responses) == 0 {
		return "", errors.New("no response queued")
	}
	r := m.responses[0]
	m.responses = m.responses[1:]
	return r, nil
}

func (m *cannedModel) queue(rs ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, rs...)
}

type harness struct {
	srv     *Server
	handler http.Handler
	model   *cannedModel
	metrics *metrics.Metrics
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	st, err := store.New(":memory:", zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	h := &harness{model: &cannedModel{}, metrics: metrics.New()}
	a := app.NewContext(app.Options{
		Store:     st,
		Completer: h.model,
		Metrics:   h.metrics,
		Fs:        afero.NewMemMapFs(),
		Logger:    zerolog.Nop(),
	})
	h.srv = New(a, Options{Host: "127.0.0.1", Port: 7431, Origins: []string{"http://localhost:5173"}}, zerolog.Nop())
	h.handler = h.srv.Handler()
	return h
}

func (h *harness) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	h.handler.ServeHTTP(rr, req)
	return rr
}

func (h *harness) create(t *testing.T, name string) store.Project {
	t.Helper()
	rr := h.do(t, http.MethodPost, "/api/projects", `{"name":"`+name+`"}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var p store.Project
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&p))
	return p
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var e errorResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&e))
	return e
}

func TestProjectCRUD(t *testing.T) {
	h := newHarness(t)

	rr := h.do(t, http.MethodGet, "/api/projects", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[]`, rr.Body.String())

	p := h.create(t, "Acme")
	assert.Len(t, p.Steps, store.StepCount)
	assert.Equal(t, store.ProjectDraft, p.Status)

	rr = h.do(t, http.MethodPatch, "/api/projects/"+p.ID, `{"name":"Acme 2"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"Acme 2"`)

	rr = h.do(t, http.MethodGet, "/api/projects/"+p.ID, "")
	require.Equal(t, http.StatusOK, rr.Code)

	other := h.create(t, "Globex")
	for _, ref := range []string{other.ID[:1], "Globex"} {
		rr = h.do(t, http.MethodDelete, "/api/projects/"+ref, "")
		assert.Equal(t, http.StatusNotFound, rr.Code, ref)
	}
	rr = h.do(t, http.MethodGet, "/api/projects/"+other.ID, "")
	require.Equal(t, http.StatusOK, rr.Code)

	rr = h.do(t, http.MethodDelete, "/api/projects/"+p.ID, "")
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = h.do(t, http.MethodGet, "/api/projects/"+p.ID, "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "not_found", decodeError(t, rr).Code)

	rr = h.do(t, http.MethodDelete, "/api/projects/"+p.ID, "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestRunStage_Pipeline(t *testing.T) {
	h := newHarness(t)
	p := h.create(t, "Todo")
	base := "/api/projects/" + p.ID

	h.model.queue(`{"ideas":["Shared lists","Solo lists"]}`, `{"techStack":{"frontend":"React","backend":"Go","database":"SQLite","hosting":"Fly"}}`)
	rr := h.do(t, http.MethodPost, base+"/stages/1", `{"text":"Build a todo app"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp struct {
		Project store.Project   `json:"project"`
		Result  json.RawMessage `json:"result"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, store.StepCompleted, resp.Project.Step(1).Status)
	assert.Contains(t, string(resp.Result), "Shared lists")

	rr = h.do(t, http.MethodPost, base+"/stages/2", `{"idea":"Shared lists"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = h.do(t, http.MethodPost, base+"/stages/3", `{"complete":true}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = h.do(t, http.MethodGet, base+"/prd.md", "")
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, "not_finalized", decodeError(t, rr).Code)

	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.HTTPRequestsTotal.WithLabelValues("POST /api/projects/{id}/stages/{n}", "200")))
}

func TestRunStage_Errors(t *testing.T) {
	h := newHarness(t)
	p := h.create(t, "Errors")
	base := "/api/projects/" + p.ID

	tests := []struct {
		name   string
		path   string
		body   string
		status int
		code   string
	}{
		{"bad stage number", base + "/stages/9", "", http.StatusBadRequest, "invalid_input"},
		{"malformed body", base + "/stages/1", `{"text":`, http.StatusBadRequest, "invalid_input"},
		{"out of order", base + "/stages/4", "", http.StatusConflict, "out_of_order"},
		{"unknown project", "/api/projects/nope/stages/4", "", http.StatusNotFound, "not_found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := h.do(t, http.MethodPost, tt.path, tt.body)
			assert.Equal(t, tt.status, rr.Code, rr.Body.String())
			assert.Equal(t, tt.code, decodeError(t, rr).Code)
		})
	}
}

func TestRunStage_GenerationFailure(t *testing.T) {
	h := newHarness(t)
	p := h.create(t, "Broken")

	rr := h.do(t, http.MethodPost, "/api/projects/"+p.ID+"/stages/1", `{"text":"anything"}`)
	assert.Equal(t, http.StatusBadGateway, rr.Code)
	assert.Equal(t, "generation_failed", decodeError(t, rr).Code)
}

func TestEditStep_RequiresConfirm(t *testing.T) {
	h := newHarness(t)
	p := h.create(t, "Edits")
	base := "/api/projects/" + p.ID

	h.model.queue(`{"ideas":["One"]}`, `{"techStack":{"frontend":"Vue"}}`)
	rr := h.do(t, http.MethodPost, base+"/stages/1", `{"text":"notes"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	rr = h.do(t, http.MethodPost, base+"/stages/2", `{"idea":"1"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = h.do(t, http.MethodPatch, base+"/steps/1", `{"context":"edited"}`)
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, "confirm_required", decodeError(t, rr).Code)

	rr = h.do(t, http.MethodPatch, base+"/steps/1?confirm=true", `{"context":"edited"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var got store.Project
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&got))
	assert.Equal(t, store.StepInProgress, got.Step(1).Status)
	assert.Equal(t, store.StepPending, got.Step(2).Status)
	assert.Equal(t, "edited", got.Step(1).Content["context"])

	rr = h.do(t, http.MethodPatch, base+"/steps/0", `{}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestRegenerateSection_UnknownKey(t *testing.T) {
	h := newHarness(t)
	p := h.create(t, "Sections")

	rr := h.do(t, http.MethodPost, "/api/projects/"+p.ID+"/prd/sections/nonsense", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code, rr.Body.String())
}

func TestCORS(t *testing.T) {
	h := newHarness(t)

	tests := []struct {
		name       string
		method     string
		origin     string
		wantStatus int
		wantAllow  string
	}{
		{"preflight allowed", http.MethodOptions, "http://localhost:5173", http.StatusNoContent, "http://localhost:5173"},
		{"preflight denied", http.MethodOptions, "http://evil.example", http.StatusForbidden, ""},
		{"simple allowed", http.MethodGet, "http://localhost:5173", http.StatusOK, "http://localhost:5173"},
		{"simple denied", http.MethodGet, "http://evil.example", http.StatusOK, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/healthz", nil)
			req.Header.Set("Origin", tt.origin)
			rr := httptest.NewRecorder()
			h.handler.ServeHTTP(rr, req)
			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.Equal(t, tt.wantAllow, rr.Header().Get("Access-Control-Allow-Origin"))
			assert.Equal(t, "Origin", rr.Header().Get("Vary"))
		})
	}
}

func TestHealthAndMetrics(t *testing.T) {
	h := newHarness(t)

	rr := h.do(t, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())

	rr = h.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "prdwing_http_requests_total")
}

func TestAddr(t *testing.T) {
	h := newHarness(t)
	assert.Equal(t, "127.0.0.1:7431", h.srv.Addr())
}
