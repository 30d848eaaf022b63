package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

type pingFunc func(context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealthHandler(t *testing.T) {
	healthy := pingFunc(func(context.Context) error { return nil })
	down := pingFunc(func(context.Context) error { return errors.New("connection refused") })

	tests := []struct {
		name   string
		db     Pinger
		method string
		status int
		want   string
	}{
		{name: "no database", method: http.MethodGet, status: http.StatusOK, want: "ok"},
		{name: "database reachable", db: healthy, method: http.MethodGet, status: http.StatusOK, want: "ok"},
		{name: "database down", db: down, method: http.MethodGet, status: http.StatusServiceUnavailable, want: "degraded"},
		{name: "wrong method", db: healthy, method: http.MethodPost, status: http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			HealthHandler{DB: tt.db}.Handle(rec, httptest.NewRequest(tt.method, "/healthz", nil))

			if rec.Code != tt.status {
				t.Fatalf("expected %d got %d", tt.status, rec.Code)
			}
			if tt.want == "" {
				return
			}
			if got := rec.Header().Get("Content-Type"); got != "application/json" {
				t.Fatalf("expected json content type got %s", got)
			}
			var body map[string]string
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			if body["status"] != tt.want {
				t.Fatalf("expected status %q got %q", tt.want, body["status"])
			}
		})
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{name: "forwarded", headers: map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.1"}, remote: "10.0.0.1:5000", want: "203.0.113.7"},
		{name: "invalid forwarded falls back", headers: map[string]string{"X-Forwarded-For": "garbage", "X-Real-IP": "198.51.100.2"}, remote: "10.0.0.1:5000", want: "198.51.100.2"},
		{name: "remote addr", remote: "192.0.2.10:443", want: "192.0.2.10"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			if got := clientIP(req); got != tt.want {
				t.Fatalf("expected %q got %q", tt.want, got)
			}
		})
	}
}
