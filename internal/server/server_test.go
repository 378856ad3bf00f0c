package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jonathan/form-autofill/internal/browser"
	"github.com/jonathan/form-autofill/internal/fill"
	"github.com/jonathan/form-autofill/internal/profile"
	"github.com/jonathan/form-autofill/internal/server/ratelimit"
	"github.com/jonathan/form-autofill/internal/store"
	"github.com/jonathan/form-autofill/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// mockFiller records the last request and returns a canned result.
type mockFiller struct {
	gotURL     string
	gotProfile *types.Profile
	report     *fill.Report
	err        error
}

func (m *mockFiller) FillURL(_ context.Context, targetURL string, p *types.Profile) (*fill.Report, error) {
	m.gotURL = targetURL
	m.gotProfile = p
	return m.report, m.err
}

func newTestServer(t *testing.T, filler Filler) (*Server, store.Store) {
	t.Helper()
	s := store.NewMemory()
	srv := New(Config{
		Store:     s,
		Filler:    filler,
		RateLimit: &ratelimit.Config{Enabled: false},
	})
	return srv, s
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeFill(t *testing.T, rec *httptest.ResponseRecorder) FillResponse {
	t.Helper()
	var resp FillResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestHandleHealth(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	rec := do(t, srv.Handler(), http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestProfileRoundTrip(t *testing.T) {
	srv, s := newTestServer(t, nil)
	h := srv.Handler()

	rec := do(t, h, http.MethodGet, "/profile", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{}`, rec.Body.String())

	rec = do(t, h, http.MethodPut, "/profile", `{
		"fullName": "Jane Doe",
		"email": "jane@x.com",
		"customFields": [{"name": "Skills", "value": "Go"}, {"name": "", "value": "x"}]
	}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	saved, err := profile.Load(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", saved.FullName)
	assert.Equal(t, []types.CustomField{{Name: "Skills", Value: "Go"}}, saved.CustomFields)

	rec = do(t, h, http.MethodGet, "/profile", "")
	assert.JSONEq(t, `{
		"fullName": "Jane Doe",
		"email": "jane@x.com",
		"customFields": [{"name": "Skills", "value": "Go"}]
	}`, rec.Body.String())
}

func TestPutProfile_Invalid(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	tests := []struct {
		name string
		body string
	}{
		{"malformed", `{`},
		{"unknown field", `{"nickname": "JD"}`},
		{"bad email", `{"email": "nope"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, srv.Handler(), http.MethodPut, "/profile", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), `"error"`)
		})
	}
}

func TestHandleFill(t *testing.T) {
	filler := &mockFiller{report: &fill.Report{URL: "https://jobs.example.com", Dialect: "generic", Filled: 3}}
	srv, s := newTestServer(t, filler)
	require.NoError(t, profile.Save(context.Background(), s, &types.Profile{FullName: "Jane Doe"}))

	rec := do(t, srv.Handler(), http.MethodPost, "/fill", `{"url": "https://jobs.example.com"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeFill(t, rec)
	assert.Equal(t, 3, resp.Filled)
	assert.Equal(t, "Form filled: 3 fields", resp.Status)
	assert.Equal(t, "https://jobs.example.com", filler.gotURL)
	assert.Equal(t, "Jane Doe", filler.gotProfile.FullName)
}

func TestHandleFill_Errors(t *testing.T) {
	t.Run("missing url", func(t *testing.T) {
		srv, _ := newTestServer(t, &mockFiller{})
		rec := do(t, srv.Handler(), http.MethodPost, "/fill", `{}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("no browser", func(t *testing.T) {
		srv, _ := newTestServer(t, nil)
		rec := do(t, srv.Handler(), http.MethodPost, "/fill", `{"url": "https://x.test"}`)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})

	t.Run("page error", func(t *testing.T) {
		filler := &mockFiller{err: &browser.PageError{URL: "https://x.test", Message: "navigation failed", Cause: errors.New("net::ERR_NAME_NOT_RESOLVED")}}
		srv, _ := newTestServer(t, filler)

		rec := do(t, srv.Handler(), http.MethodPost, "/fill", `{"url": "https://x.test"}`)

		assert.Equal(t, http.StatusBadGateway, rec.Code)
		resp := decodeFill(t, rec)
		assert.Equal(t, 0, resp.Filled)
		assert.True(t, strings.HasPrefix(resp.Status, "Error filling form: page error for https://x.test"))
	})

	t.Run("unknown body field", func(t *testing.T) {
		srv, _ := newTestServer(t, &mockFiller{})
		rec := do(t, srv.Handler(), http.MethodPost, "/fill", `{"href": "https://x.test"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHandleFillHTML(t *testing.T) {
	srv, s := newTestServer(t, nil)
	require.NoError(t, profile.Save(context.Background(), s, &types.Profile{FullName: "Jane Doe", Email: "jane@x.com"}))

	body, err := json.Marshal(FillHTMLRequest{
		HTML: `<form><input type="text" id="a" placeholder="Full Name"><input type="email" id="b" placeholder="Email Address"></form>`,
		URL:  "https://jobs.example.com/apply",
	})
	require.NoError(t, err)

	rec := do(t, srv.Handler(), http.MethodPost, "/fill/html", string(body))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decodeFill(t, rec)
	assert.Equal(t, 2, resp.Filled)
	assert.Equal(t, "Form filled: 2 fields", resp.Status)
	assert.Contains(t, resp.HTML, `value="Jane Doe"`)
	assert.Contains(t, resp.HTML, `value="jane@x.com"`)
	require.NotNil(t, resp.Report)
	assert.Equal(t, "generic", resp.Report.Dialect)
}

func TestHandleFillHTML_Empty(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	rec := do(t, srv.Handler(), http.MethodPost, "/fill/html", `{"html": "  "}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeFill(t, rec).Status, "Error filling form")
}

func doWithOrigin(t *testing.T, h http.Handler, method, path, origin, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Origin", origin)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestCORSPreflight_AllowedOrigin(t *testing.T) {
	srv := New(Config{
		Store:          store.NewMemory(),
		RateLimit:      &ratelimit.Config{Enabled: false},
		AllowedOrigins: []string{"https://settings.example/"},
	})

	rec := doWithOrigin(t, srv.Handler(), http.MethodOptions, "/profile", "https://settings.example", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://settings.example", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "PUT")
	assert.Equal(t, "Origin", rec.Header().Get("Vary"))
}

func TestCrossOriginRequestsRejected(t *testing.T) {
	srv, s := newTestServer(t, nil)
	require.NoError(t, profile.Save(context.Background(), s, &types.Profile{FullName: "Jane Doe", Email: "jane@x.com"}))
	h := srv.Handler()

	rec := doWithOrigin(t, h, http.MethodGet, "/profile", "https://evil.example", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	assert.NotContains(t, rec.Body.String(), "Jane Doe")

	rec = doWithOrigin(t, h, http.MethodPut, "/profile", "https://evil.example", `{"email": "attacker@evil.example"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doWithOrigin(t, h, http.MethodOptions, "/profile", "https://evil.example", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	stored, err := profile.Load(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, "jane@x.com", stored.Email)

	// Requests without an Origin header come from local tools and are served.
	rec = do(t, h, http.MethodGet, "/profile", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Jane Doe")
}

func TestRateLimit(t *testing.T) {
	s := store.NewMemory()
	srv := New(Config{
		Store: s,
		RateLimit: &ratelimit.Config{
			Enabled:         true,
			DefaultLimit:    100,
			DefaultWindow:   time.Minute,
			EndpointConfigs: []ratelimit.EndpointConfig{{Path: "/fill/html", Method: "POST", Limit: 1, Window: time.Hour, Burst: 1}},
		},
	})
	h := srv.Handler()

	body := `{"html": "<input placeholder=\"Email\">"}`
	rec := do(t, h, http.MethodPost, "/fill/html", body)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("X-RateLimit-Limit"))

	rec = do(t, h, http.MethodPost, "/fill/html", body)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	rec = do(t, h, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServe_ShutsDownOnCancel(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/health")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not stop")
	}
	http.DefaultClient.CloseIdleConnections()
}
