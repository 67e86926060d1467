package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/csvconvert/internal/config"
	"github.com/JonMunkholm/csvconvert/internal/core"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestTrustedRealIP(t *testing.T) {
	tests := []struct {
		name    string
		trusted []string
		remote  string
		headers map[string]string
		want    string
	}{
		{
			name:   "no trusted proxies ignores headers",
			remote: "203.0.113.9:4000",
			headers: map[string]string{
				"X-Real-IP": "198.51.100.1",
			},
			want: "203.0.113.9:4000",
		},
		{
			name:    "trusted proxy uses X-Real-IP",
			trusted: []string{"10.0.0.0/8"},
			remote:  "10.1.2.3:5555",
			headers: map[string]string{"X-Real-IP": "198.51.100.1"},
			want:    "198.51.100.1",
		},
		{
			name:    "trusted proxy uses first forwarded hop",
			trusted: []string{"10.0.0.1"},
			remote:  "10.0.0.1:5555",
			headers: map[string]string{"X-Forwarded-For": "198.51.100.7, 10.0.0.1"},
			want:    "198.51.100.7",
		},
		{
			name:    "invalid header value is ignored",
			trusted: []string{"10.0.0.0/8"},
			remote:  "10.1.2.3:5555",
			headers: map[string]string{"X-Real-IP": "not-an-ip"},
			want:    "10.1.2.3:5555",
		},
		{
			name:    "untrusted source ignores headers",
			trusted: []string{"10.0.0.0/8", "bogus"},
			remote:  "192.0.2.4:80",
			headers: map[string]string{"X-Forwarded-For": "198.51.100.7"},
			want:    "192.0.2.4:80",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotRemote, gotCtx string
			h := TrustedRealIP(tt.trusted)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotRemote = r.RemoteAddr
				gotCtx = core.IPAddressFromContext(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			h.ServeHTTP(httptest.NewRecorder(), req)

			assert.Equal(t, tt.want, gotRemote)
			assert.Equal(t, extractAddr(tt.want).String(), gotCtx)
		})
	}
}

func TestAPIKeyAuth(t *testing.T) {
	cfg := &config.SecurityConfig{RequireAPIKey: true, APIKeys: []string{"alpha", "beta"}}

	tests := []struct {
		name   string
		header string
		value  string
		want   int
	}{
		{"missing", "", "", http.StatusUnauthorized},
		{"invalid", APIKeyHeader, "gamma", http.StatusForbidden},
		{"valid header", APIKeyHeader, "beta", http.StatusOK},
		{"valid bearer", "Authorization", "Bearer alpha", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
			if tt.header != "" {
				req.Header.Set(tt.header, tt.value)
			}
			rec := httptest.NewRecorder()
			APIKeyAuth(cfg)(okHandler()).ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}

	t.Run("disabled passes everything", func(t *testing.T) {
		rec := httptest.NewRecorder()
		APIKeyAuth(&config.SecurityConfig{})(okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("required without keys rejects", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(APIKeyHeader, "anything")
		rec := httptest.NewRecorder()
		APIKeyAuth(&config.SecurityConfig{RequireAPIKey: true})(okHandler()).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestRateLimiter(t *testing.T) {
	rejected := 0
	rl := NewRateLimiter(2, func() { rejected++ })

	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("a"))
	assert.True(t, rl.Allow("a"))
	assert.False(t, rl.Allow("a"))
	assert.True(t, rl.Allow("b"), "budgets are per client")

	now = now.Add(31 * time.Second)
	assert.True(t, rl.Allow("a"), "one token refills every 30s")
	assert.Equal(t, 30, rl.retryAfter())

	h := rl.Handler(okHandler())
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "a"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "30", rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), "RATE001")
	assert.Equal(t, 1, rejected)
}

func TestRateLimiterSweep(t *testing.T) {
	rl := NewRateLimiter(10, nil)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	rl.Allow("old")
	now = now.Add(5 * time.Minute)
	rl.Allow("new")

	assert.Equal(t, 1, rl.Sweep(2*time.Minute))
	assert.Equal(t, 1, rl.Len())
}

type recordedRequest struct {
	route  string
	method string
	status int
}

type requestRecorder struct{ got []recordedRequest }

func (r *requestRecorder) ObserveRequest(route, method string, status int, _ time.Duration) {
	r.got = append(r.got, recordedRequest{route, method, status})
}

func TestMetricsUsesRoutePattern(t *testing.T) {
	obs := &requestRecorder{}
	r := chi.NewRouter()
	r.Use(Metrics(obs))
	r.Use(Logger)
	r.Get("/api/download/{format}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/download/json", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nope", nil))

	require.Len(t, obs.got, 2)
	assert.Equal(t, recordedRequest{"/api/download/{format}", http.MethodGet, http.StatusNoContent}, obs.got[0])
	assert.Equal(t, http.StatusNotFound, obs.got[1].status)
}

func TestResponseWriterFirstStatusWins(t *testing.T) {
	rec := httptest.NewRecorder()
	ww := wrap(rec)

	ww.WriteHeader(http.StatusAccepted)
	ww.WriteHeader(http.StatusTeapot)
	n, err := ww.Write([]byte("hello"))

	require.NoError(t, err)
	assert.Equal(t, http.StatusAccepted, ww.status)
	assert.Equal(t, 5, n)
	assert.Equal(t, 5, ww.bytes)
	assert.Equal(t, rec, ww.Unwrap())
}
