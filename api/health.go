package api

import (
	"bufio"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const (
	probeValue      = "Hello Redis from crmd!"
	probeCounterKey = "test:counter"
)

type probeResponse struct {
	Success        bool           `json:"success"`
	Message        string         `json:"message,omitempty"`
	Error          string         `json:"error,omitempty"`
	TestResult     string         `json:"test_result,omitempty"`
	MemoryUsage    string         `json:"memory_usage,omitempty"`
	CounterTest    int64          `json:"counter_test,omitempty"`
	Timestamp      time.Time      `json:"timestamp"`
	ConnectionInfo ConnectionInfo `json:"connection_info"`
}

// testRedis round-trips a throwaway key and a counter, and reports memory usage
func (s *server) testRedis(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	resp := &probeResponse{ConnectionInfo: s.connInfo}

	err := func() error {
		key := fmt.Sprintf("test:%d", s.now().UnixNano())
		if err := s.redis.Set(ctx, key, probeValue, 0).Err(); err != nil {
			return err
		}
		got, err := s.redis.Get(ctx, key).Result()
		if err != nil {
			return err
		}
		if err := s.redis.Del(ctx, key).Err(); err != nil {
			return err
		}
		resp.TestResult = got

		resp.MemoryUsage = "Unknown"
		if info, err := s.redis.Info(ctx, "memory").Result(); err == nil {
			if v := infoField(info, "used_memory_human"); v != "" {
				resp.MemoryUsage = v
			}
		}

		n, err := s.redis.Incr(ctx, probeCounterKey).Result()
		if err != nil {
			return err
		}
		resp.CounterTest = n
		return s.redis.Del(ctx, probeCounterKey).Err()
	}()

	resp.Timestamp = s.now().UTC()
	if err != nil {
		s.logger(r).WithError(err).Error("redis connection test failed")
		resp.Error = err.Error()
		writeJSON(w, http.StatusInternalServerError, resp)
		return
	}

	resp.Success = true
	resp.Message = "Redis connection successful"
	writeJSON(w, http.StatusOK, resp)
}

// infoField pulls one field out of an INFO reply
func infoField(info, field string) string {
	scanner := bufio.NewScanner(strings.NewReader(info))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if v, ok := strings.CutPrefix(line, field+":"); ok {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func (s *server) healthz(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		s.logger(r).WithError(err).Warn("health check failed")
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
