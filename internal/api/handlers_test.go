package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/billowhq/billow/internal/auth"
	"github.com/billowhq/billow/internal/cache"
	"github.com/billowhq/billow/internal/config"
	"github.com/billowhq/billow/internal/storage"
)

type testEnv struct {
	srv   *httptest.Server
	store *storage.Store
	cache cache.Cache
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store, err := storage.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	tokens, err := auth.NewManager("test-secret", "test-refresh-secret", time.Hour, 24*time.Hour)
	require.NoError(t, err)

	cfg := config.Config{
		ListenAddr:        ":0",
		JWTSecret:         "test-secret",
		JWTRefreshSecret:  "test-refresh-secret",
		AccessTokenTTL:    time.Hour,
		RefreshTokenTTL:   24 * time.Hour,
		AuthRateLimit:     1000,
		WriteRateLimit:    10000,
		RateLimitWindowMS: 60000,
		Version:           "test",
	}

	c := cache.NewMemoryCache(time.Minute)
	t.Cleanup(c.Stop)
	server := New(store, tokens, c, cfg, nil)

	srv := httptest.NewServer(server.Routes())
	t.Cleanup(srv.Close)

	return &testEnv{srv: srv, store: store, cache: c}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, e.srv.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := e.srv.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func (e *testEnv) register(t *testing.T, email string) authResponse {
	t.Helper()
	resp := e.do(t, http.MethodPost, "/auth/register", "", map[string]any{
		"email":       email,
		"password":    "correct-horse",
		"displayName": "Tester",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return decode[authResponse](t, resp)
}

func TestRegisterLoginRefresh(t *testing.T) {
	e := newTestEnv(t)

	reg := e.register(t, "alice@example.com")
	assert.NotEmpty(t, reg.AccessToken)
	assert.NotEmpty(t, reg.RefreshToken)
	assert.Equal(t, "alice@example.com", reg.User.Email)
	assert.False(t, reg.User.IsGuest)

	login := e.do(t, http.MethodPost, "/auth/login", "", map[string]any{
		"email":    "alice@example.com",
		"password": "correct-horse",
	})
	require.Equal(t, http.StatusOK, login.StatusCode)
	loggedIn := decode[authResponse](t, login)
	assert.Equal(t, reg.User.ID, loggedIn.User.ID)

	refresh := e.do(t, http.MethodPost, "/auth/refresh", "", map[string]any{
		"refreshToken": reg.RefreshToken,
	})
	require.Equal(t, http.StatusOK, refresh.StatusCode)
	refreshed := decode[authResponse](t, refresh)
	assert.NotEmpty(t, refreshed.AccessToken)
}

func TestRegisterValidation(t *testing.T) {
	e := newTestEnv(t)

	resp := e.do(t, http.MethodPost, "/auth/register", "", map[string]any{
		"email": "not-an-email", "password": "correct-horse",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = e.do(t, http.MethodPost, "/auth/register", "", map[string]any{
		"email": "a@b.com", "password": "short",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	e := newTestEnv(t)
	e.register(t, "alice@example.com")

	resp := e.do(t, http.MethodPost, "/auth/register", "", map[string]any{
		"email": "alice@example.com", "password": "correct-horse",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestLoginWrongPassword(t *testing.T) {
	e := newTestEnv(t)
	e.register(t, "alice@example.com")

	resp := e.do(t, http.MethodPost, "/auth/login", "", map[string]any{
		"email": "alice@example.com", "password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = e.do(t, http.MethodPost, "/auth/login", "", map[string]any{
		"email": "nobody@example.com", "password": "whatever-long",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestDemoCreatesGuest(t *testing.T) {
	e := newTestEnv(t)

	resp := e.do(t, http.MethodPost, "/auth/demo", "", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	guest := decode[authResponse](t, resp)
	assert.True(t, guest.User.IsGuest)
	assert.NotEmpty(t, guest.AccessToken)
}

func TestTasksRequireAuth(t *testing.T) {
	e := newTestEnv(t)

	resp := e.do(t, http.MethodGet, "/tasks", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestTaskLifecycle(t *testing.T) {
	e := newTestEnv(t)
	token := e.register(t, "alice@example.com").AccessToken

	created := e.do(t, http.MethodPost, "/tasks", token, map[string]any{
		"title":    "ship it",
		"priority": "high",
	})
	require.Equal(t, http.StatusCreated, created.StatusCode)
	task := decode[storage.Task](t, created)
	assert.Equal(t, "todo", task.Status)
	assert.Equal(t, "high", task.Priority)

	patched := e.do(t, http.MethodPatch, "/tasks/"+task.ID, token, map[string]any{
		"status": "done",
	})
	require.Equal(t, http.StatusOK, patched.StatusCode)
	updated := decode[storage.Task](t, patched)
	assert.Equal(t, "done", updated.Status)
	assert.NotEmpty(t, updated.CompletedAt)

	list := e.do(t, http.MethodGet, "/tasks?status=done", token, nil)
	require.Equal(t, http.StatusOK, list.StatusCode)
	listed := decode[map[string][]storage.Task](t, list)
	assert.Len(t, listed["tasks"], 1)

	deleted := e.do(t, http.MethodDelete, "/tasks/"+task.ID, token, nil)
	assert.Equal(t, http.StatusNoContent, deleted.StatusCode)

	missing := e.do(t, http.MethodGet, "/tasks/"+task.ID, token, nil)
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)
}

func TestTaskValidation(t *testing.T) {
	e := newTestEnv(t)
	token := e.register(t, "alice@example.com").AccessToken

	resp := e.do(t, http.MethodPost, "/tasks", token, map[string]any{"title": ""})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = e.do(t, http.MethodPost, "/tasks", token, map[string]any{
		"title": "x", "status": "bogus",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = e.do(t, http.MethodPost, "/tasks", token, map[string]any{
		"title": "x", "dueDate": "15-09-2026",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestTasksAreIsolatedBetweenUsers(t *testing.T) {
	e := newTestEnv(t)
	alice := e.register(t, "alice@example.com").AccessToken
	bob := e.register(t, "bob@example.com").AccessToken

	created := e.do(t, http.MethodPost, "/tasks", alice, map[string]any{"title": "secret"})
	task := decode[storage.Task](t, created)

	resp := e.do(t, http.MethodGet, "/tasks/"+task.ID, bob, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestReflectionsFlow(t *testing.T) {
	e := newTestEnv(t)
	token := e.register(t, "alice@example.com").AccessToken

	resp := e.do(t, http.MethodPost, "/reflections", token, map[string]any{
		"content":   "productive day",
		"moodScore": 4,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	reflection := decode[storage.Reflection](t, resp)
	assert.Equal(t, "daily", reflection.Type)

	bad := e.do(t, http.MethodPost, "/reflections", token, map[string]any{
		"content": "x", "moodScore": 9,
	})
	assert.Equal(t, http.StatusBadRequest, bad.StatusCode)

	list := e.do(t, http.MethodGet, "/reflections?type=daily", token, nil)
	require.Equal(t, http.StatusOK, list.StatusCode)
	listed := decode[map[string][]storage.Reflection](t, list)
	assert.Len(t, listed["reflections"], 1)
}

func TestSnapshotCompare(t *testing.T) {
	e := newTestEnv(t)
	token := e.register(t, "alice@example.com").AccessToken

	first := e.do(t, http.MethodPost, "/snapshots", token, map[string]any{
		"snapshotDate": "2026-08-01",
		"data":         map[string]any{"tasksCompleted": 3, "avgMood": 3.0},
	})
	require.Equal(t, http.StatusCreated, first.StatusCode)
	a := decode[storage.Snapshot](t, first)

	second := e.do(t, http.MethodPost, "/snapshots", token, map[string]any{
		"snapshotDate": "2026-09-01",
		"data":         map[string]any{"tasksCompleted": 8, "avgMood": 4.0},
	})
	require.Equal(t, http.StatusCreated, second.StatusCode)
	b := decode[storage.Snapshot](t, second)

	resp := e.do(t, http.MethodGet, fmt.Sprintf("/snapshots/compare?a=%s&b=%s", a.ID, b.ID), token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var compared struct {
		TasksChange int     `json:"tasksChange"`
		MoodChange  float64 `json:"moodChange"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&compared))
	assert.Equal(t, 5, compared.TasksChange)
	assert.InDelta(t, 1.0, compared.MoodChange, 0.001)
}

func TestDigestGeneration(t *testing.T) {
	e := newTestEnv(t)
	token := e.register(t, "alice@example.com").AccessToken

	resp := e.do(t, http.MethodPost, "/digests", token, map[string]any{
		"digestType":  "weekly",
		"periodStart": "2026-08-25",
		"periodEnd":   "2026-09-01",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	digest := decode[storage.Digest](t, resp)
	assert.Equal(t, "weekly", digest.DigestType)

	bad := e.do(t, http.MethodPost, "/digests", token, map[string]any{
		"periodStart": "2026-09-01",
		"periodEnd":   "2026-08-01",
	})
	assert.Equal(t, http.StatusBadRequest, bad.StatusCode)
}

func TestInsightsCachedAndInvalidated(t *testing.T) {
	e := newTestEnv(t)
	reg := e.register(t, "alice@example.com")
	token := reg.AccessToken

	resp := e.do(t, http.MethodGet, "/insights/dashboard?days=30", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	key := "insights:" + reg.User.ID + ":dashboard:30"
	_, cached := e.cache.Get(key)
	assert.True(t, cached, "dashboard response is cached after first read")

	created := e.do(t, http.MethodPost, "/tasks", token, map[string]any{"title": "new task"})
	require.Equal(t, http.StatusCreated, created.StatusCode)

	_, cached = e.cache.Get(key)
	assert.False(t, cached, "task writes invalidate cached insights")
}

func TestWeeklyInsights(t *testing.T) {
	e := newTestEnv(t)
	token := e.register(t, "alice@example.com").AccessToken

	created := e.do(t, http.MethodPost, "/tasks", token, map[string]any{"title": "t"})
	task := decode[storage.Task](t, created)
	patched := e.do(t, http.MethodPatch, "/tasks/"+task.ID, token, map[string]any{"status": "done"})
	require.Equal(t, http.StatusOK, patched.StatusCode)

	resp := e.do(t, http.MethodGet, "/insights/weekly?weeks=4", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Weeks []storage.WeeklyInsight `json:"weeks"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.NotEmpty(t, body.Weeks)
	assert.Equal(t, 1, body.Weeks[0].TasksCompleted)
}

func TestHealthz(t *testing.T) {
	e := newTestEnv(t)

	resp := e.do(t, http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[map[string]string](t, resp)
	assert.Equal(t, "ok", body["status"])
}

func TestMetricsEndpoint(t *testing.T) {
	e := newTestEnv(t)

	resp := e.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestSecurityHeadersPresent(t *testing.T) {
	e := newTestEnv(t)

	resp := e.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", resp.Header.Get("X-Frame-Options"))
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}
