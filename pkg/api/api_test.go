package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/marmos91/dittorepo/internal/ratelimiter"
	identitymemory "github.com/marmos91/dittorepo/pkg/identity/memory"
	"github.com/marmos91/dittorepo/pkg/objectstore/memory"
	"github.com/marmos91/dittorepo/pkg/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testBaseURL = "http://localhost:3001/api/objects"

type testEnv struct {
	handler http.Handler
	store   *memory.MemoryObjectStore
	metrics *recordingMetrics
}

func newTestEnv(t *testing.T, config Config, mutate ...func(*Dependencies)) *testEnv {
	t.Helper()

	store, err := memory.NewMemoryObjectStore(context.Background(), testBaseURL)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	metrics := &recordingMetrics{}
	deps := Dependencies{
		Manager:  repository.NewManager(store, repository.DefaultConfig(), nil),
		Identity: identitymemory.NewMemoryProvider(),
		Store:    store,
		Metrics:  metrics,
	}
	for _, m := range mutate {
		m(&deps)
	}

	return &testEnv{handler: NewHandler(config, deps), store: store, metrics: metrics}
}

func (e *testEnv) do(t *testing.T, req *http.Request) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)

	var body map[string]any
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	}
	return rec, body
}

type upload struct {
	fields map[string]string
	files  map[string]string
}

func multipartRequest(t *testing.T, method, target string, u upload) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for name, value := range u.fields {
		require.NoError(t, w.WriteField(name, value))
	}
	for name, content := range u.files {
		part, err := w.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func dataField(userID, name string) map[string]string {
	return map[string]string{"data": `{"name":"` + name + `","userId":"` + userID + `"}`}
}

func createRepo(t *testing.T, env *testEnv, userID, name string, files map[string]string) {
	t.Helper()
	rec, body := env.do(t, multipartRequest(t, http.MethodPost, "/api/repository", upload{fields: dataField(userID, name), files: files}))
	require.Equal(t, http.StatusCreated, rec.Code, body)
	require.Equal(t, true, body["success"])
}

// ============================================================================
// Repository routes
// ============================================================================

func TestCreateRepository(t *testing.T) {
	env := newTestEnv(t, Config{})

	rec, body := env.do(t, multipartRequest(t, http.MethodPost, "/api/repository", upload{
		fields: dataField("u1", "docs"),
		files:  map[string]string{"readme.md": "hello", "img/logo.png": "png"},
	}))

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, repository.MsgCreated, body["message"])
	assert.Equal(t, map[string]any{"name": "docs", "user": map[string]any{"id": "u1"}}, body["data"])

	data, err := env.store.Get(context.Background(), "users/u1/repositories/docs/img/logo.png")
	require.NoError(t, err)
	assert.Equal(t, "png", string(data))
}

func TestCreateRepository_Failures(t *testing.T) {
	env := newTestEnv(t, Config{})
	createRepo(t, env, "u1", "docs", map[string]string{"a.txt": "a"})

	tests := []struct {
		name    string
		req     *http.Request
		message string
	}{
		{
			name:    "Duplicate",
			req:     multipartRequest(t, http.MethodPost, "/api/repository", upload{fields: dataField("u1", "docs"), files: map[string]string{"b.txt": "b"}}),
			message: repository.MsgAlreadyExists,
		},
		{
			name:    "NoFiles",
			req:     multipartRequest(t, http.MethodPost, "/api/repository", upload{fields: dataField("u1", "other")}),
			message: repository.MsgNoFiles,
		},
		{
			name:    "MissingDataField",
			req:     multipartRequest(t, http.MethodPost, "/api/repository", upload{files: map[string]string{"a.txt": "a"}}),
			message: MsgCreateError,
		},
		{
			name:    "MalformedDataField",
			req:     multipartRequest(t, http.MethodPost, "/api/repository", upload{fields: map[string]string{"data": "{"}}),
			message: MsgCreateError,
		},
		{
			name:    "NotMultipart",
			req:     jsonRequest(http.MethodPost, "/api/repository", `{"name":"x","userId":"u1"}`),
			message: MsgCreateError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, body := env.do(t, tt.req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, false, body["success"])
			assert.Equal(t, tt.message, body["message"])
			assert.NotContains(t, body, "data")
		})
	}
}

func TestCreateRepository_TooLarge(t *testing.T) {
	env := newTestEnv(t, Config{MaxUploadBytes: 1024})

	rec, body := env.do(t, multipartRequest(t, http.MethodPost, "/api/repository", upload{
		fields: dataField("u1", "big"),
		files:  map[string]string{"big.bin": strings.Repeat("x", 4096)},
	}))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, MsgCreateError, body["message"])
	assert.Zero(t, env.store.Len())
}

func TestUpdateRepository(t *testing.T) {
	env := newTestEnv(t, Config{})
	createRepo(t, env, "u1", "docs", map[string]string{"a.txt": "old", "keep.txt": "keep"})

	t.Run("PlainFields", func(t *testing.T) {
		rec, body := env.do(t, multipartRequest(t, http.MethodPut, "/api/repository", upload{
			fields: map[string]string{"name": "docs", "userId": "u1"},
			files:  map[string]string{"a.txt": "new"},
		}))
		require.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, repository.MsgUpdated, body["message"])

		data, err := env.store.Get(context.Background(), "users/u1/repositories/docs/a.txt")
		require.NoError(t, err)
		assert.Equal(t, "new", string(data))

		_, err = env.store.Get(context.Background(), "users/u1/repositories/docs/keep.txt")
		assert.NoError(t, err)
	})

	t.Run("DataField", func(t *testing.T) {
		rec, _ := env.do(t, multipartRequest(t, http.MethodPut, "/api/repository", upload{
			fields: dataField("u1", "docs"),
			files:  map[string]string{"c.txt": "c"},
		}))
		assert.Equal(t, http.StatusCreated, rec.Code)
	})

	t.Run("Missing", func(t *testing.T) {
		rec, body := env.do(t, multipartRequest(t, http.MethodPut, "/api/repository", upload{
			fields: map[string]string{"name": "nope", "userId": "u1"},
			files:  map[string]string{"a.txt": "a"},
		}))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, repository.MsgDoesNotExist, body["message"])
	})

	t.Run("NoUserID", func(t *testing.T) {
		rec, body := env.do(t, multipartRequest(t, http.MethodPut, "/api/repository", upload{
			files: map[string]string{"a.txt": "a"},
		}))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, repository.MsgNoUserID, body["message"])
	})
}

func TestListRepositories(t *testing.T) {
	env := newTestEnv(t, Config{})

	t.Run("Empty", func(t *testing.T) {
		rec, body := env.do(t, httptest.NewRequest(http.MethodGet, "/api/repository/u1", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, repository.MsgNoRepositories, body["message"])
		assert.Equal(t, map[string]any{"files": []any{}, "folders": []any{}}, body["data"])
	})

	createRepo(t, env, "u1", "docs", map[string]string{"readme.md": "r", "img/logo.png": "p"})

	t.Run("Tree", func(t *testing.T) {
		rec, _ := env.do(t, httptest.NewRequest(http.MethodGet, "/api/repository/u1", nil))
		require.Equal(t, http.StatusOK, rec.Code)

		var result repository.Result[*repository.Folder]
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
		assert.Equal(t, repository.MsgListed, result.Message)

		docs := result.Data.Find("docs")
		require.NotNil(t, docs)
		require.Len(t, docs.Files, 1)
		assert.Equal(t, "readme.md", docs.Files[0].Name)
		assert.Equal(t, testBaseURL+"/users/u1/repositories/docs/readme.md", docs.Files[0].URL)

		img := docs.Find("img")
		require.NotNil(t, img)
		assert.Equal(t, "logo.png", img.Files[0].Name)
	})

	t.Run("InvalidUserID", func(t *testing.T) {
		rec, body := env.do(t, httptest.NewRequest(http.MethodGet, "/api/repository/$$$", nil))
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, repository.MsgInvalidUserID, body["message"])
	})
}

func TestDeleteRepository(t *testing.T) {
	env := newTestEnv(t, Config{})
	createRepo(t, env, "u1", "docs", map[string]string{"a.txt": "a", "deep/b.txt": "b"})

	rec, body := env.do(t, jsonRequest(http.MethodDelete, "/api/repository", `{"name":"docs","userId":"u1"}`))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, repository.MsgDeleted, body["message"])
	assert.Zero(t, env.store.Len())

	rec, body = env.do(t, jsonRequest(http.MethodDelete, "/api/repository", `{"name":"docs","userId":"u1"}`))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, repository.MsgDoesNotExist, body["message"])

	rec, body = env.do(t, jsonRequest(http.MethodDelete, "/api/repository", `{"name":`))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, MsgDeleteError, body["message"])

	rec, body = env.do(t, jsonRequest(http.MethodDelete, "/api/repository", ""))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, repository.MsgNoUserID, body["message"])
}

// ============================================================================
// Auth routes
// ============================================================================

func TestRegisterAndLogin(t *testing.T) {
	env := newTestEnv(t, Config{})
	creds := `{"email":"Ada@example.com","password":"secret1"}`

	rec, body := env.do(t, jsonRequest(http.MethodPost, "/api/auth/register", creds))
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, MsgRegistered, body["message"])
	data := body["data"].(map[string]any)
	assert.Equal(t, "ada@example.com", data["email"])
	assert.NotEmpty(t, data["id"])

	rec, body = env.do(t, jsonRequest(http.MethodPost, "/api/auth/register", creds))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, MsgRegisterError, body["message"])

	rec, body = env.do(t, jsonRequest(http.MethodPost, "/api/auth/login", creds))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, MsgLoggedIn, body["message"])
	assert.Equal(t, data["id"], body["data"].(map[string]any)["id"])

	rec, body = env.do(t, jsonRequest(http.MethodPost, "/api/auth/login", `{"email":"ada@example.com","password":"wrong!!"}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, MsgLoginError, body["message"])

	rec, body = env.do(t, jsonRequest(http.MethodPost, "/api/auth/register", `{"email":"bad","password":"secret1"}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, MsgRegisterError, body["message"])

	rec, body = env.do(t, jsonRequest(http.MethodPost, "/api/auth/login", `not json`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, MsgLoginError, body["message"])
}

// ============================================================================
// Objects and health
// ============================================================================

func TestGetObject(t *testing.T) {
	env := newTestEnv(t, Config{ServeObjects: true})
	createRepo(t, env, "u1", "docs", map[string]string{"notes.txt": "plain text"})

	rec, _ := env.do(t, httptest.NewRequest(http.MethodGet, "/api/objects/users/u1/repositories/docs/notes.txt", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "plain text", rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")

	rec, body := env.do(t, httptest.NewRequest(http.MethodGet, "/api/objects/users/u1/missing.txt", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, MsgObjectNotFound, body["message"])
}

func TestGetObject_DisabledByDefault(t *testing.T) {
	env := newTestEnv(t, Config{})

	rec, _ := env.do(t, httptest.NewRequest(http.MethodGet, "/api/objects/users/u1/a.txt", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, Config{BasePath: "/v1/"})

	rec, body := env.do(t, httptest.NewRequest(http.MethodGet, "/v1/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", body["status"])
}

// ============================================================================
// Middleware
// ============================================================================

func TestCORS(t *testing.T) {
	env := newTestEnv(t, Config{})

	req := httptest.NewRequest(http.MethodOptions, "/api/repository", nil)
	req.Header.Set("Origin", "http://app.example.com")
	rec, _ := env.do(t, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "DELETE")
}

func TestCORS_AllowedOrigins(t *testing.T) {
	env := newTestEnv(t, Config{AllowedOrigins: []string{"*.example.com"}})

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("Origin", "https://app.example.com")
	rec, _ := env.do(t, req)
	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("Origin", "https://evil.com")
	rec, _ = env.do(t, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRateLimit(t *testing.T) {
	env := newTestEnv(t, Config{}, func(d *Dependencies) {
		d.ClientLimiter = ratelimiter.NewClientLimiter(1, 2, time.Minute)
	})

	for range 2 {
		rec, _ := env.do(t, httptest.NewRequest(http.MethodGet, "/api/health", nil))
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec, body := env.do(t, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, MsgTooManyRequests, body["message"])
	assert.Equal(t, 1, env.metrics.rateLimitedCount())

	// Another client has its own bucket.
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.RemoteAddr = "10.0.0.2:4242"
	rec, _ = env.do(t, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGlobalRateLimit(t *testing.T) {
	env := newTestEnv(t, Config{}, func(d *Dependencies) {
		d.Limiter = ratelimiter.New(1, 1)
	})

	rec, _ := env.do(t, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.RemoteAddr = "10.0.0.2:4242"
	rec, _ = env.do(t, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestRequestMetrics(t *testing.T) {
	env := newTestEnv(t, Config{})

	env.do(t, httptest.NewRequest(http.MethodGet, "/api/repository/u1", nil))
	env.do(t, jsonRequest(http.MethodDelete, "/api/repository", `{"name":"x","userId":"u1"}`))

	observed := env.metrics.requests()
	require.Len(t, observed, 2)
	assert.Equal(t, observedRequest{http.MethodGet, "/api/repository/{userId}", http.StatusOK}, observed[0])
	assert.Equal(t, observedRequest{http.MethodDelete, "/api/repository", http.StatusInternalServerError}, observed[1])
}

func TestRequestIDHeader(t *testing.T) {
	env := newTestEnv(t, Config{})

	rec, _ := env.do(t, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("X-Request-ID", "abc")
	rec, _ = env.do(t, req)
	assert.Equal(t, "abc", rec.Header().Get("X-Request-ID"))
}

func TestNewHandler_RequiresDependencies(t *testing.T) {
	assert.Panics(t, func() { NewHandler(Config{}, Dependencies{}) })

	store, err := memory.NewMemoryObjectStore(context.Background(), testBaseURL)
	require.NoError(t, err)
	assert.Panics(t, func() {
		NewHandler(Config{ServeObjects: true}, Dependencies{
			Manager:  repository.NewManager(store, repository.Config{}, nil),
			Identity: identitymemory.NewMemoryProvider(),
		})
	})
}

// ============================================================================
// Helpers
// ============================================================================

type observedRequest struct {
	method string
	route  string
	status int
}

type recordingMetrics struct {
	mu          sync.Mutex
	observed    []observedRequest
	rateLimited int
}

func (m *recordingMetrics) ObserveRequest(method, route string, status int, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observed = append(m.observed, observedRequest{method, route, status})
}

func (m *recordingMetrics) RecordRateLimited() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rateLimited++
}

func (m *recordingMetrics) requests() []observedRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]observedRequest(nil), m.observed...)
}

func (m *recordingMetrics) rateLimitedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rateLimited
}
