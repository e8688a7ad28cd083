package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/osr-alliance/backend-crm/backup"
	"github.com/osr-alliance/backend-crm/otp"
	"github.com/osr-alliance/backend-crm/store"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testServer struct {
	handler http.Handler
	mr      *miniredis.Miniredis
	clock   *fakeClock
	otp     *otp.Service
}

type option func(*Config)

func setupServer(t *testing.T, opts ...option) *testServer {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	clock := &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	logger, _ := test.NewNullLogger()
	entry := logrus.NewEntry(logger)

	st, err := store.New(&store.Config{Redis: client, Now: clock.Now, Logger: entry})
	require.NoError(t, err)

	otpService := otp.New(&otp.Config{Logger: entry, Now: clock.Now})

	conf := &Config{
		Store:              st,
		OTP:                otpService,
		Redis:              client,
		Exporter:           backup.New(st, clock.Now),
		ConnectionInfo:     ConnectionInfo{Host: "localhost", Port: 6379},
		AllowOTPInResponse: true,
		OTPBurst:           100,
		Logger:             entry,
		Now:                clock.Now,
	}
	for _, o := range opts {
		o(conf)
	}

	h, err := New(conf)
	require.NoError(t, err)

	return &testServer{handler: h, mr: mr, clock: clock, otp: otpService}
}

func (ts *testServer) do(t *testing.T, method, target string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}

	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

func errorOf(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var e errorResponse
	decodeBody(t, rec, &e)
	return e.Error
}

func TestNewRequiresDependencies(t *testing.T) {
	_, err := New(&Config{})
	assert.Error(t, err)
}

func TestCORS(t *testing.T) {
	ts := setupServer(t)

	for _, path := range []string{"/api/redis-contacts", "/api/auth/request-phone-otp", "/api/test-redis"} {
		rec := ts.do(t, http.MethodOptions, path, nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "GET, POST, PUT, DELETE, OPTIONS", rec.Header().Get("Access-Control-Allow-Methods"))
		assert.Equal(t, "Content-Type", rec.Header().Get("Access-Control-Allow-Headers"))
		assert.Empty(t, rec.Body.String())
	}

	rec := ts.do(t, http.MethodGet, "/api/redis-contacts", nil)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))
}

func TestMethodNotAllowed(t *testing.T) {
	ts := setupServer(t)

	rec := ts.do(t, http.MethodPatch, "/api/redis-contacts", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "Method not allowed", errorOf(t, rec))

	rec = ts.do(t, http.MethodGet, "/api/auth/request-phone-otp", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	var resp otpResponse
	decodeBody(t, rec, &resp)
	assert.False(t, resp.Success)
}

func TestHealth(t *testing.T) {
	ts := setupServer(t)

	rec := ts.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = ts.do(t, http.MethodGet, "/api/test-redis", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var probe probeResponse
	decodeBody(t, rec, &probe)
	assert.True(t, probe.Success)
	assert.Equal(t, probeValue, probe.TestResult)
	assert.Equal(t, int64(1), probe.CounterTest)
	assert.NotEmpty(t, probe.MemoryUsage)
	assert.Equal(t, "localhost", probe.ConnectionInfo.Host)
	assert.False(t, ts.mr.Exists(probeCounterKey))

	ts.mr.Close()

	rec = ts.do(t, http.MethodGet, "/api/test-redis", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	decodeBody(t, rec, &probe)
	assert.False(t, probe.Success)
	assert.NotEmpty(t, probe.Error)

	rec = ts.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestInfoField(t *testing.T) {
	info := "# Memory\r\nused_memory:1024\r\nused_memory_human:1.00K\r\n"
	assert.Equal(t, "1.00K", infoField(info, "used_memory_human"))
	assert.Equal(t, "", infoField(info, "maxmemory"))
}

func TestInternalErrorsAreHidden(t *testing.T) {
	ts := setupServer(t)
	ts.mr.Close()

	rec := ts.do(t, http.MethodGet, "/api/redis-contacts", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, internalErrorMessage, errorOf(t, rec))
}

func TestMetricsAndExport(t *testing.T) {
	ts := setupServer(t)

	rec := ts.do(t, http.MethodPost, "/api/redis-contacts", map[string]interface{}{"name": "Ann"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = ts.do(t, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "crm_http_requests_total")

	rec = ts.do(t, http.MethodGet, "/api/export", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "crm-backup-2024-05-01.json")

	var doc backup.Document
	decodeBody(t, rec, &doc)
	assert.Equal(t, backup.Version, doc.Version)
	require.Len(t, doc.Data.Contacts, 1)
	assert.Equal(t, "Ann", doc.Data.Contacts[0].Name)
}

func TestFailStatus(t *testing.T) {
	logger, _ := test.NewNullLogger()
	s := &server{log: logrus.NewEntry(logger)}

	tests := []struct {
		name string
		err  error
		code int
		msg  string
	}{
		{"not found", fmt.Errorf("select: %w", store.ErrNotFound), http.StatusNotFound, "Contact not found"},
		{"conflict", fmt.Errorf("update: %w", store.ErrConflict), http.StatusConflict, conflictMessage},
		{"other", errors.New("connection reset"), http.StatusInternalServerError, internalErrorMessage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			s.fail(rec, httptest.NewRequest(http.MethodPut, "/api/redis-contacts?id=1", nil), tt.err, "Contact not found")
			assert.Equal(t, tt.code, rec.Code)
			assert.Equal(t, tt.msg, errorOf(t, rec))
		})
	}
}

func TestIPLimitersCleanup(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	l := newIPLimiters(rate.Every(2*time.Hour), 1, clock.Now)

	assert.True(t, l.allow("10.0.0.1"))
	assert.True(t, l.allow("10.0.0.2"))

	clock.Advance(50 * time.Minute)
	assert.False(t, l.allow("10.0.0.2"))

	// first sweep: .1 has been idle past the limit, .2 has not
	clock.Advance(20 * time.Minute)
	assert.True(t, l.allow("10.0.0.3"))
	assert.Len(t, l.limiters, 2)
	assert.NotContains(t, l.limiters, "10.0.0.1")

	// .2 kept its drained bucket across the sweep
	assert.False(t, l.allow("10.0.0.2"))
}
