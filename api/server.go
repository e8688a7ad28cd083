package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	"github.com/osr-alliance/backend-crm/backup"
	"github.com/osr-alliance/backend-crm/otp"
	"github.com/osr-alliance/backend-crm/store"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	// per client IP in front of the OTP endpoint, on top of the per-number cooldown
	DefaultOTPRateLimit = rate.Limit(10.0 / 60.0)
	DefaultOTPBurst     = 5
)

// Exporter produces the full export document; backup.Service implements it
type Exporter interface {
	Export(ctx context.Context) (*backup.Document, error)
}

// ConnectionInfo is echoed by the redis probe
type ConnectionInfo struct {
	Host        string `json:"host"`
	Port        int    `json:"port"`
	HasPassword bool   `json:"has_password"`
}

type Config struct {
	Store    store.Store
	OTP      *otp.Service
	Redis    *redis.Client // used directly by the connection probe
	Exporter Exporter      // optional; /api/export is not routed without one

	ConnectionInfo     ConnectionInfo
	AllowOTPInResponse bool

	// TrustProxyHeaders takes the client address from X-Forwarded-For / X-Real-IP.
	// Only set it when a proxy in front of the server overwrites those headers
	TrustProxyHeaders bool

	OTPRateLimit rate.Limit
	OTPBurst     int

	Logger *logrus.Entry
	Now    func() time.Time
}

type server struct {
	store    store.Store
	otp      *otp.Service
	redis    *redis.Client
	exporter Exporter

	connInfo    ConnectionInfo
	exposeCodes bool
	trustProxy  bool

	limiters *ipLimiters
	metrics  *metrics
	log      *logrus.Entry
	now      func() time.Time
}

// New builds the HTTP handler with every route
func New(conf *Config) (http.Handler, error) {
	if conf == nil || conf.Store == nil || conf.OTP == nil || conf.Redis == nil {
		return nil, errors.New("api: store, otp service and redis client are required")
	}

	s := &server{
		store:       conf.Store,
		otp:         conf.OTP,
		redis:       conf.Redis,
		exporter:    conf.Exporter,
		connInfo:    conf.ConnectionInfo,
		exposeCodes: conf.AllowOTPInResponse,
		trustProxy:  conf.TrustProxyHeaders,
		metrics:     newMetrics(),
		log:         conf.Logger,
		now:         conf.Now,
	}
	if s.log == nil {
		s.log = logrus.NewEntry(logrus.StandardLogger())
	}
	s.log = s.log.WithField("component", "api")
	if s.now == nil {
		s.now = time.Now
	}

	limit, burst := conf.OTPRateLimit, conf.OTPBurst
	if limit <= 0 {
		limit = DefaultOTPRateLimit
	}
	if burst <= 0 {
		burst = DefaultOTPBurst
	}
	s.limiters = newIPLimiters(limit, burst, s.now)

	return requestID(cors(s.routes())), nil
}

func (s *server) routes() *mux.Router {
	router := mux.NewRouter()
	router.Use(s.instrument)
	router.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowed)
	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Not found")
	})

	entities := []struct {
		path string
		h    entityHandler
	}{
		{"/api/redis-contacts", &contacts{s}},
		{"/api/redis-schedules", &schedules{s}},
		{"/api/redis-projects", &projects{s}},
		{"/api/redis-opportunities", &opportunities{s}},
	}
	for _, e := range entities {
		router.HandleFunc(e.path, e.h.List).Methods(http.MethodGet)
		router.HandleFunc(e.path, e.h.Create).Methods(http.MethodPost)
		router.HandleFunc(e.path, e.h.Update).Methods(http.MethodPut)
		router.HandleFunc(e.path, e.h.Delete).Methods(http.MethodDelete)
	}

	router.HandleFunc("/api/auth/request-phone-otp", s.requestOTP).Methods(http.MethodPost)
	router.HandleFunc("/api/test-redis", s.testRedis).Methods(http.MethodGet)
	router.HandleFunc("/healthz", s.healthz).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	if s.exporter != nil {
		router.HandleFunc("/api/export", s.export).Methods(http.MethodGet)
	}

	return router
}

// entityHandler is the CRUD surface shared by every entity endpoint
type entityHandler interface {
	List(w http.ResponseWriter, r *http.Request)
	Create(w http.ResponseWriter, r *http.Request)
	Update(w http.ResponseWriter, r *http.Request)
	Delete(w http.ResponseWriter, r *http.Request)
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, "/api/auth/") {
		writeJSON(w, http.StatusMethodNotAllowed, &otpResponse{Message: "Method Not Allowed"})
		return
	}
	writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
}

func (s *server) export(w http.ResponseWriter, r *http.Request) {
	doc, err := s.exporter.Export(r.Context())
	if err != nil {
		s.fail(w, r, err, "")
		return
	}

	w.Header().Set("Content-Disposition", `attachment; filename="crm-backup-`+doc.ExportDate.Format("2006-01-02")+`.json"`)
	writeJSON(w, http.StatusOK, doc)
}

// limiterIdle is how long a client IP may stay silent before its bucket is dropped
const limiterIdle = time.Hour

// ipLimiters keeps one token bucket per client IP
type ipLimiters struct {
	mu          sync.Mutex
	limiters    map[string]*ipLimiter
	limit       rate.Limit
	burst       int
	now         func() time.Time
	lastCleanup time.Time
}

type ipLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newIPLimiters(limit rate.Limit, burst int, now func() time.Time) *ipLimiters {
	return &ipLimiters{
		limiters:    make(map[string]*ipLimiter),
		limit:       limit,
		burst:       burst,
		now:         now,
		lastCleanup: now(),
	}
}

func (l *ipLimiters) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()

	// sweep at most once per idle period; active clients keep their buckets
	if now.Sub(l.lastCleanup) > limiterIdle {
		for key, entry := range l.limiters {
			if now.Sub(entry.lastSeen) > limiterIdle {
				delete(l.limiters, key)
			}
		}
		l.lastCleanup = now
	}

	entry, ok := l.limiters[ip]
	if !ok {
		entry = &ipLimiter{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[ip] = entry
	}
	entry.lastSeen = now
	return entry.limiter.AllowN(now, 1)
}
