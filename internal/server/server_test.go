package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cozy-creator/brandgen/internal/app"
	"github.com/cozy-creator/brandgen/internal/config"
	"github.com/cozy-creator/brandgen/internal/db/drivers"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

const testSecret = "test-secret"

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Reasoning *string `json:"reasoning"`
}

func (e envelope) code() string {
	if e.Error == nil {
		return ""
	}
	return e.Error.Code
}

type testServer struct {
	handler http.Handler
}

func newTestServer(t *testing.T, mutate func(cfg *config.Config), opts ...app.OptionFunc) *testServer {
	t.Helper()

	cfg := &config.Config{
		Environment: "test",
		TempDir:     t.TempDir(),
		Training:    config.TrainingConfig{StorageDomain: "brandgen.test"},
	}
	if mutate != nil {
		mutate(cfg)
	}

	driver, err := drivers.NewSQLiteDriver(context.Background(), "file::memory:")
	require.NoError(t, err)

	a, err := app.NewApp(cfg, append([]app.OptionFunc{app.WithDB(driver)}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(a.Close)

	s, err := NewServer(cfg)
	require.NoError(t, err)
	s.SetupRoutes(a)

	return &testServer{handler: s.Handler()}
}

func (s *testServer) do(t *testing.T, method, path string, body any, headers map[string]string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case []byte:
		reader = bytes.NewReader(b)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 && rec.Header().Get("Content-Type") != "application/msgpack" {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	}
	return rec, env
}

func decodeData[T any](t *testing.T, env envelope) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(env.Data, &out))
	return out
}

type jobData struct {
	Job struct {
		ID     string `json:"id"`
		Status string `json:"status"`
		Count  int    `json:"count"`
	} `json:"job"`
}

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return "Bearer " + token
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, nil)

	rec, _ := s.do(t, "GET", "/health", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "test", body["environment"])
}

func TestGenerateStatusCancelOverHTTP(t *testing.T) {
	s := newTestServer(t, nil)

	rec, env := s.do(t, "POST", "/api/generate", map[string]any{"prompt": "a cloud", "count": 2}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	job := decodeData[jobData](t, env).Job
	assert.Equal(t, "queued", job.Status)
	assert.Equal(t, 2, job.Count)

	rec, env = s.do(t, "GET", "/api/jobs/"+job.ID, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, job.ID, decodeData[jobData](t, env).Job.ID)

	rec, env = s.do(t, "DELETE", "/api/jobs/"+job.ID, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "cancelled", decodeData[jobData](t, env).Job.Status)

	rec, env = s.do(t, "DELETE", "/api/jobs/"+job.ID, nil, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "JOB_ALREADY_CANCELLED", env.code())

	rec, env = s.do(t, "GET", "/api/jobs?status=cancelled&limit=5", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decodeData[struct {
		Total int `json:"total"`
	}](t, env)
	assert.Equal(t, 1, list.Total)
}

func TestStatusMapping(t *testing.T) {
	s := newTestServer(t, nil)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
		code   string
	}{
		{"missing job", "GET", "/api/jobs/nope", nil, http.StatusNotFound, "JOB_NOT_FOUND"},
		{"empty prompt", "POST", "/api/generate", map[string]any{"prompt": ""}, http.StatusBadRequest, "PROMPT_EMPTY"},
		{"malformed body", "POST", "/api/generate", "{not json", http.StatusBadRequest, "INVALID_JSON"},
		{"bad query type", "GET", "/api/jobs?limit=many", nil, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"bad enum", "GET", "/api/jobs?status=stuck", nil, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"unknown model", "GET", "/api/models/dalle", nil, http.StatusNotFound, "MODEL_NOT_FOUND"},
		{"unknown command", "POST", "/api/commands/asset.destroy", nil, http.StatusNotFound, "COMMAND_NOT_FOUND"},
		{"missing lora", "GET", "/api/loras/lora_missing", nil, http.StatusNotFound, "LORA_NOT_FOUND"},
		{"bad image url", "POST", "/api/quality/refine", map[string]any{"image_url": "ftp://x"}, http.StatusBadRequest, "IMAGE_URL_INVALID"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, env := s.do(t, tt.method, tt.path, tt.body, nil)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.False(t, env.Success)
			assert.Equal(t, tt.code, env.code())
		})
	}
}

func TestGenericCommandRoute(t *testing.T) {
	s := newTestServer(t, nil)

	rec, env := s.do(t, "POST", "/api/commands/model.info", map[string]any{"model_id": "flux"}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Success)

	rec, env = s.do(t, "GET", "/api/commands", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	listing := decodeData[struct {
		Total int `json:"total"`
	}](t, env)
	assert.Greater(t, listing.Total, 20)
}

func TestMsgPackBodiesAndResponses(t *testing.T) {
	s := newTestServer(t, nil)

	body, err := msgpack.Marshal(map[string]any{"prompt": "a lighthouse", "count": 1})
	require.NoError(t, err)

	rec, env := s.do(t, "POST", "/api/generate", body, map[string]string{"Content-Type": "application/msgpack"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 1, decodeData[jobData](t, env).Job.Count)

	rec, _ = s.do(t, "GET", "/api/asset-types", nil, map[string]string{"Accept": "application/msgpack"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/msgpack", rec.Header().Get("Content-Type"))

	var decoded map[string]any
	require.NoError(t, msgpack.Unmarshal(rec.Body.Bytes(), &decoded))
	assert.Equal(t, true, decoded["success"])
}

func TestLoraLifecycleOverHTTP(t *testing.T) {
	s := newTestServer(t, nil)

	rec, env := s.do(t, "POST", "/api/loras", map[string]any{"name": "Brand", "trigger_word": "brandstyle"}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	id := decodeData[struct {
		Lora struct {
			ID string `json:"id"`
		} `json:"lora"`
	}](t, env).Lora.ID

	rec, env = s.do(t, "POST", "/api/loras", map[string]any{"name": "brand", "trigger_word": "other"}, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "LORA_ALREADY_EXISTS", env.code())

	images := make([]map[string]any, 10)
	for i := range images {
		images[i] = map[string]any{"url": fmt.Sprintf("https://img.test/%d.png", i)}
	}
	rec, _ = s.do(t, "POST", "/api/loras/"+id+"/images", map[string]any{"images": images}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec, _ = s.do(t, "POST", "/api/loras/"+id+"/train", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec, _ = s.do(t, "POST", "/api/loras/"+id+"/activate", map[string]any{"active": true}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec, env = s.do(t, "GET", "/api/loras?active_only=true", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decodeData[struct {
		Total int `json:"total"`
	}](t, env).Total)

	rec, env = s.do(t, "DELETE", "/api/loras/"+id, nil, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "CANNOT_DELETE_ACTIVE", env.code())
}

func TestFavoritesRoutesAreScopedToTheCaller(t *testing.T) {
	s := newTestServer(t, func(cfg *config.Config) { cfg.Auth.JWTSecret = testSecret })
	alice := map[string]string{"Authorization": signToken(t, jwt.MapClaims{"sub": "alice"})}

	fav := map[string]any{"job_id": "job-1", "image_index": 0, "image_url": "https://img.test/0.png"}
	rec, _ := s.do(t, "POST", "/api/favorites", fav, alice)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec, env := s.do(t, "POST", "/api/favorites", fav, alice)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "FAVORITE_ALREADY_EXISTS", env.code())

	count := func(headers map[string]string) int {
		_, env := s.do(t, "GET", "/api/favorites?limit=10", nil, headers)
		return decodeData[struct {
			TotalCount int `json:"total_count"`
		}](t, env).TotalCount
	}
	assert.Equal(t, 1, count(alice))
	assert.Equal(t, 0, count(nil), "anonymous callers see their own favorites only")

	rec, _ = s.do(t, "DELETE", "/api/favorites/job-1/0", nil, alice)
	require.Equal(t, http.StatusOK, rec.Code)
	rec, env = s.do(t, "DELETE", "/api/favorites/job-1/0", nil, alice)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "FAVORITE_NOT_FOUND", env.code())
}

func TestRequiredAuthentication(t *testing.T) {
	s := newTestServer(t, func(cfg *config.Config) {
		cfg.Auth.Required = true
		cfg.Auth.JWTSecret = testSecret
	})

	rec, env := s.do(t, "GET", "/api/history", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "UNAUTHORIZED", env.code())
	assert.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))

	rec, _ = s.do(t, "GET", "/api/history", nil, map[string]string{"X-Auth-Optional": "true"})
	assert.Equal(t, http.StatusOK, rec.Code)

	expired := signToken(t, jwt.MapClaims{"sub": "alice", "exp": time.Now().Add(-time.Hour).Unix()})
	rec, env = s.do(t, "GET", "/api/history", nil, map[string]string{"Authorization": expired})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "TOKEN_EXPIRED", env.code())

	rec, env = s.do(t, "GET", "/api/history", nil, map[string]string{"Authorization": "Bearer not.a.token"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "TOKEN_INVALID", env.code())

	valid := signToken(t, jwt.MapClaims{"oid": "alice-oid", "sub": "alice", "exp": time.Now().Add(time.Hour).Unix()})
	rec, _ = s.do(t, "GET", "/api/history/stats", nil, map[string]string{"Authorization": valid})
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec, _ = s.do(t, "GET", "/health", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code, "health stays public")
}

func TestRateLimiting(t *testing.T) {
	s := newTestServer(t, func(cfg *config.Config) {
		cfg.RateLimit = config.RateLimitConfig{Enabled: true, RequestsPerSecond: 0.01, Burst: 2}
	}, app.WithRateLimiter())

	for i := 0; i < 2; i++ {
		rec, _ := s.do(t, "GET", "/api/models", nil, nil)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec, env := s.do(t, "GET", "/api/models", nil, nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "RATE_LIMITED", env.code())
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestFileRouteWithoutStorage(t *testing.T) {
	s := newTestServer(t, nil)

	rec, env := s.do(t, "GET", "/file/abc.png", nil, nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "SERVICE_UNAVAILABLE", env.code())
}
