package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func TestLoggerRecordsRequestFields(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	handler := Logger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":"01J"}`))
	}))

	req := httptest.NewRequest(http.MethodPost, "/messages", nil)
	req.Header.Set("X-Real-IP", "203.0.113.7")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	var line struct {
		Method string `json:"method"`
		Path   string `json:"path"`
		Status int    `json:"status"`
		Bytes  int    `json:"bytes"`
		IP     string `json:"ip"`
	}
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("log line is not JSON: %v: %s", err, buf.String())
	}
	if line.Method != "POST" || line.Path != "/messages" || line.Status != http.StatusCreated {
		t.Fatalf("unexpected log line: %+v", line)
	}
	if line.Bytes != len(`{"id":"01J"}`) {
		t.Fatalf("expected response size in log, got %d", line.Bytes)
	}
	if line.IP != "203.0.113.7" {
		t.Fatalf("expected caller IP in log, got %q", line.IP)
	}
}

func TestRateLimiterFailsOpenWhenRedisDown(t *testing.T) {
	// Port 1 is never listening; every pipeline Exec fails immediately.
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	var buf bytes.Buffer
	rl := NewRateLimiter(client, zerolog.New(&buf), RateLimiterConfig{})

	served := false
	handler := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		served = true
	}))

	req := httptest.NewRequest(http.MethodPost, "/messages", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if !served || w.Code != http.StatusOK {
		t.Fatalf("redis outage must not block requests, got %d served=%v", w.Code, served)
	}
	if !bytes.Contains(buf.Bytes(), []byte("rate limit check failed")) {
		t.Fatalf("outage must be logged, got: %s", buf.String())
	}
}
