package apiserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/docuflow/docuflow/pkg/audit"
	"github.com/docuflow/docuflow/pkg/auth"
	"github.com/docuflow/docuflow/pkg/config"
	"github.com/docuflow/docuflow/pkg/eventbus"
	"github.com/docuflow/docuflow/pkg/lock"
	"github.com/docuflow/docuflow/pkg/model"
	"github.com/docuflow/docuflow/pkg/store/memory"
	"github.com/docuflow/docuflow/pkg/workflow"
)

type healthResponse struct {
	Status string `json:"status"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type testServer struct {
	server *Server
	store  *memory.Store
	tokens *auth.TokenManager
}

func newTestServer(t *testing.T, trustHeaders bool) *testServer {
	t.Helper()
	s := memory.NewStore()
	recorder := audit.NewRecorder(s.Audits(), s.Notifications(), eventbus.Nop{}, zap.NewNop())
	engine := workflow.NewEngine(s.Documents(), s, workflow.NewPolicy(workflow.DefaultTransitions()), recorder, lock.NewLocal(time.Second), zap.NewNop())
	tokens := auth.NewTokenManager([]byte("test-secret"), time.Hour)

	cfg := &config.Config{Auth: config.AuthConfig{TrustHeaders: trustHeaders}}
	server := NewServer(Dependencies{
		Engine:        engine,
		Audits:        s.Audits(),
		Notifications: s.Notifications(),
		Tokens:        tokens,
	}, cfg, zap.NewNop())

	return &testServer{server: server, store: s, tokens: tokens}
}

func (ts *testServer) seed(t *testing.T, doc model.Document) {
	t.Helper()
	require.NoError(t, ts.store.Documents().Create(context.Background(), &doc))
}

func (ts *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	recorder := httptest.NewRecorder()
	ts.server.Router().ServeHTTP(recorder, req)
	return recorder
}

func transitionRequest(id, state, user, role string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/workflow/"+id+"/state?state="+state, nil)
	if user != "" {
		req.Header.Set("X-USER", user)
	}
	if role != "" {
		req.Header.Set("X-ROLE", role)
	}
	return req
}

func TestHealthEndpoint(t *testing.T) {
	ts := newTestServer(t, true)

	recorder := ts.do(httptest.NewRequest(http.MethodGet, "/health", nil))

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, recorder.Code)
	}

	var response healthResponse
	if err := json.Unmarshal(recorder.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if response.Status != "ok" {
		t.Fatalf("expected status ok, got %q", response.Status)
	}
	if recorder.Header().Get("X-Request-ID") == "" {
		t.Fatalf("expected a request id header")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t, true)

	recorder := ts.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, recorder.Code)
}

func TestTransitionStatusCodes(t *testing.T) {
	ts := newTestServer(t, true)
	ts.seed(t, model.Document{ID: "d1", Author: "alice", WorkflowState: model.StateDraft})

	recorder := ts.do(transitionRequest("d1", "Submitted", "bob", "Submitter"))
	require.Equal(t, http.StatusAccepted, recorder.Code, recorder.Body.String())

	var accepted struct {
		From  string `json:"from"`
		To    string `json:"to"`
		Actor string `json:"actor"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &accepted))
	assert.Equal(t, "Draft", accepted.From)
	assert.Equal(t, "Submitted", accepted.To)
	assert.Equal(t, "bob", accepted.Actor)

	recorder = ts.do(transitionRequest("d1", "UnderReview", "alice", "Reviewer"))
	assert.Equal(t, http.StatusForbidden, recorder.Code)

	recorder = ts.do(transitionRequest("d1", "Approved", "carol", "Approver"))
	assert.Equal(t, http.StatusBadRequest, recorder.Code)

	recorder = ts.do(transitionRequest("missing", "Submitted", "bob", "Submitter"))
	assert.Equal(t, http.StatusNotFound, recorder.Code)

	recorder = ts.do(httptest.NewRequest(http.MethodPost, "/api/workflow/d1/state", nil))
	assert.Equal(t, http.StatusBadRequest, recorder.Code)

	records, err := ts.store.Audits().ListByDocument(context.Background(), "d1")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "SUBMITTED", records[0].Action)
	assert.Equal(t, "bob", records[0].Actor)
}

func TestTransitionActorResolution(t *testing.T) {
	ts := newTestServer(t, true)
	ts.seed(t, model.Document{ID: "d1", Author: "alice", WorkflowState: model.StateDraft})
	ts.seed(t, model.Document{ID: "d2", Author: "alice", WorkflowState: model.StateDraft})

	req := httptest.NewRequest(http.MethodPost, "/api/workflow/d1/state?state=Submitted&actor=dave", nil)
	req.Header.Set("X-USER", "bob")
	require.Equal(t, http.StatusAccepted, ts.do(req).Code)

	req = httptest.NewRequest(http.MethodPost, "/api/workflow/d2/state?state=Submitted", nil)
	require.Equal(t, http.StatusAccepted, ts.do(req).Code)

	d1, err := ts.store.Audits().ListByDocument(context.Background(), "d1")
	require.NoError(t, err)
	require.Len(t, d1, 1)
	assert.Equal(t, "dave", d1[0].Actor)

	d2, err := ts.store.Audits().ListByDocument(context.Background(), "d2")
	require.NoError(t, err)
	require.Len(t, d2, 1)
	assert.Equal(t, "system", d2[0].Actor)
}

func TestUntrustedHeadersAreIgnored(t *testing.T) {
	ts := newTestServer(t, false)
	ts.seed(t, model.Document{ID: "d1", Author: "alice", WorkflowState: model.StateSubmitted})

	// the role header would allow the review, but it is not trusted
	recorder := ts.do(transitionRequest("d1", "Under%20Review", "bob", "Reviewer"))
	assert.Equal(t, http.StatusForbidden, recorder.Code)
}

func TestBearerTokenIdentity(t *testing.T) {
	ts := newTestServer(t, true)
	ts.seed(t, model.Document{ID: "d1", Author: "alice", WorkflowState: model.StateSubmitted})

	token, err := ts.tokens.Generate(auth.Identity{Username: "carol", Role: "Reviewer"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/workflow/d1/state?state=Under%20Review", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-USER", "alice")
	recorder := ts.do(req)
	require.Equal(t, http.StatusAccepted, recorder.Code, recorder.Body.String())

	records, err := ts.store.Audits().ListByDocument(context.Background(), "d1")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "carol", records[0].Actor)
	assert.Equal(t, "UNDER REVIEW", records[0].Action)
}

func TestInvalidBearerToken(t *testing.T) {
	ts := newTestServer(t, true)

	req := httptest.NewRequest(http.MethodPost, "/api/workflow/d1/state?state=Submitted", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	recorder := ts.do(req)

	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d, got %d", http.StatusUnauthorized, recorder.Code)
	}

	var response errorResponse
	if err := json.Unmarshal(recorder.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response.Error != "invalid token" {
		t.Fatalf("expected invalid token error, got %q", response.Error)
	}
}

func TestAllowedTransitionsEndpoint(t *testing.T) {
	ts := newTestServer(t, true)
	ts.seed(t, model.Document{ID: "d1", Author: "alice", WorkflowState: model.StateUnderReview})

	recorder := ts.do(httptest.NewRequest(http.MethodGet, "/api/workflow/d1/transitions", nil))
	require.Equal(t, http.StatusOK, recorder.Code)

	var response struct {
		State string   `json:"state"`
		Next  []string `json:"next"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))
	assert.Equal(t, "Under Review", response.State)
	assert.Equal(t, []string{"Approved", "Rejected"}, response.Next)

	recorder = ts.do(httptest.NewRequest(http.MethodGet, "/api/workflow/missing/transitions", nil))
	assert.Equal(t, http.StatusNotFound, recorder.Code)
}

func TestApprovalFlowThroughHTTP(t *testing.T) {
	ts := newTestServer(t, true)
	ts.seed(t, model.Document{ID: "d1", Author: "alice", WorkflowState: model.StateUnderReview})

	require.Equal(t, http.StatusAccepted, ts.do(transitionRequest("d1", "Approved", "carol", "approver")).Code)

	recorder := ts.do(httptest.NewRequest(http.MethodGet, "/api/audits/document/d1", nil))
	require.Equal(t, http.StatusOK, recorder.Code)
	var audits []struct {
		Action  string `json:"action"`
		Details string `json:"details"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &audits))
	require.Len(t, audits, 1)
	assert.Equal(t, "APPROVED", audits[0].Action)
	assert.Equal(t, "from=Under Review;author=alice", audits[0].Details)

	recorder = ts.do(httptest.NewRequest(http.MethodGet, "/api/notifications/user/alice", nil))
	require.Equal(t, http.StatusOK, recorder.Code)
	var inbox []struct {
		ID      string `json:"id"`
		Message string `json:"message"`
		Read    bool   `json:"read"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &inbox))
	require.Len(t, inbox, 1)
	assert.Equal(t, audit.ApprovalMessage, inbox[0].Message)
	assert.False(t, inbox[0].Read)

	recorder = ts.do(httptest.NewRequest(http.MethodPost, "/api/notifications/"+inbox[0].ID+"/read", nil))
	assert.Equal(t, http.StatusOK, recorder.Code)
}

func TestNotificationEndpoints(t *testing.T) {
	ts := newTestServer(t, true)

	body, _ := json.Marshal(map[string]string{"username": "bob", "message": "hello"})
	req := httptest.NewRequest(http.MethodPost, "/api/notifications", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	recorder := ts.do(req)
	require.Equal(t, http.StatusCreated, recorder.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/notifications", bytes.NewReader([]byte(`{"username":"bob"}`)))
	req.Header.Set("Content-Type", "application/json")
	assert.Equal(t, http.StatusBadRequest, ts.do(req).Code)

	recorder = ts.do(httptest.NewRequest(http.MethodPost, "/api/notifications/not-a-uuid/read", nil))
	assert.Equal(t, http.StatusBadRequest, recorder.Code)

	recorder = ts.do(httptest.NewRequest(http.MethodPost, "/api/notifications/00000000-0000-0000-0000-000000000001/read", nil))
	assert.Equal(t, http.StatusNotFound, recorder.Code)
}
