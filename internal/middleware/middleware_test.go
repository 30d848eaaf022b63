package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/vidfriends/vidfeed/internal/logging"
)

func TestIPRateLimiterPerKeyBuckets(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	limiter := NewIPRateLimiter(2, time.Minute, 2, time.Hour).WithNowFunc(func() time.Time { return now })

	if !limiter.Allow("store:10.0.0.1") || !limiter.Allow("store:10.0.0.1") {
		t.Fatal("expected burst to be available")
	}
	if limiter.Allow("store:10.0.0.1") {
		t.Fatal("expected third request to be limited")
	}
	if !limiter.Allow("store:10.0.0.2") {
		t.Fatal("other keys must have their own bucket")
	}

	now = now.Add(30 * time.Second)
	if !limiter.Allow("store:10.0.0.1") {
		t.Fatal("expected a token to be refilled after half a window")
	}
}

func TestIPRateLimiterForgetsIdleKeys(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	limiter := NewIPRateLimiter(1, time.Second, 1, time.Minute).WithNowFunc(func() time.Time { return now })

	limiter.Allow("a")
	limiter.Allow("b")
	if limiter.Len() != 2 {
		t.Fatalf("expected 2 tracked keys, got %d", limiter.Len())
	}

	now = now.Add(2 * time.Minute)
	limiter.Allow("c")
	if limiter.Len() != 1 {
		t.Fatalf("expected idle keys to be swept, got %d", limiter.Len())
	}
}

func TestIPRateLimiterDisabled(t *testing.T) {
	limiter := NewIPRateLimiter(0, time.Minute, 0, 0)
	for i := 0; i < 100; i++ {
		if !limiter.Allow("") {
			t.Fatalf("request %d limited by a disabled limiter", i)
		}
	}
}

func TestRequestLoggerPropagatesRequestID(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logs, nil))

	var seenID string
	handler := RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenID = logging.RequestIDFromContext(r.Context())
		if _, ok := logging.Lookup(r.Context()); !ok {
			t.Error("expected request logger in context")
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte("ok"))
	}))

	req := httptest.NewRequest(http.MethodPost, "/api?path=like", nil)
	req.Header.Set(RequestIDHeader, "req-123")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if seenID != "req-123" || rec.Header().Get(RequestIDHeader) != "req-123" {
		t.Fatalf("expected incoming request id to be reused, got %q / %q", seenID, rec.Header().Get(RequestIDHeader))
	}

	var entry map[string]any
	if err := json.Unmarshal(logs.Bytes(), &entry); err != nil {
		t.Fatalf("decode log line %q: %v", logs.String(), err)
	}
	if entry["op"] != "like" || entry["status"] != float64(http.StatusCreated) || entry["bytes"] != float64(2) {
		t.Fatalf("unexpected log entry %v", entry)
	}
}

func TestRequestLoggerGeneratesIDAndRecoversPanics(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	handler := RequestLogger(logger)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 after panic, got %d", rec.Code)
	}
	if rec.Header().Get(RequestIDHeader) == "" {
		t.Fatal("expected a generated request id")
	}
}

func TestDecompressInflatesGzipBodies(t *testing.T) {
	var compressed bytes.Buffer
	zw := gzip.NewWriter(&compressed)
	if _, err := zw.Write([]byte(`{"video_id":1}`)); err != nil {
		t.Fatalf("write gzip: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close gzip: %v", err)
	}

	var got string
	handler := Decompress(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("read body: %v", err)
		}
		got = string(body)
		if r.Header.Get("Content-Encoding") != "" {
			t.Error("expected Content-Encoding to be removed")
		}
	}))

	req := httptest.NewRequest(http.MethodPost, "/api?path=like", &compressed)
	req.Header.Set("Content-Encoding", "gzip")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if got != `{"video_id":1}` {
		t.Fatalf("unexpected inflated body %q", got)
	}
}

func TestDecompressRejectsBadEncodings(t *testing.T) {
	handler := Decompress(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Error("handler must not run")
	}))

	tests := []struct {
		encoding string
		status   int
	}{
		{"br", http.StatusUnsupportedMediaType},
		{"gzip", http.StatusBadRequest},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodPost, "/api", strings.NewReader("not gzip"))
		req.Header.Set("Content-Encoding", tt.encoding)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != tt.status {
			t.Fatalf("%s: expected %d got %d", tt.encoding, tt.status, rec.Code)
		}
	}
}

func TestChainOrder(t *testing.T) {
	var order []string
	mark := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r.WithContext(context.WithoutCancel(r.Context())))
			})
		}
	}
	handler := Chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		order = append(order, "handler")
	}), mark("outer"), mark("inner"))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	if strings.Join(order, ",") != "outer,inner,handler" {
		t.Fatalf("unexpected order %v", order)
	}
}
