package logger

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestAccessMiddlewareRequestID(t *testing.T) {
	l := slog.New(slog.NewTextHandler(io.Discard, nil))
	var seen string
	h := AccessMiddleware(l, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestID(r.Context())
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/palette", nil))
	if seen == "" || rec.Header().Get(RequestIDHeader) != seen {
		t.Errorf("request id %q, header %q", seen, rec.Header().Get(RequestIDHeader))
	}
	if rec.Code != http.StatusTeapot {
		t.Errorf("status = %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/palette", nil)
	req.Header.Set(RequestIDHeader, "abc")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if seen != "abc" {
		t.Errorf("incoming id not kept: %q", seen)
	}
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.2:5555"
	if got := ClientIP(req); got != "10.0.0.2" {
		t.Errorf("remote = %q", got)
	}
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	if got := ClientIP(req); got != "203.0.113.9" {
		t.Errorf("forwarded = %q", got)
	}
}

func TestNewLevelsAndService(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "warn", "json", false)
	l.Info("snapshot_reloaded")
	l.Warn("redis_get_error", "key", "evimap:rows:pois")
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("lines = %q, want only the warn record", lines)
	}
	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatal(err)
	}
	if rec["service"] != ServiceName || rec["msg"] != "redis_get_error" || rec["key"] != "evimap:rows:pois" {
		t.Errorf("record = %v", rec)
	}

	buf.Reset()
	New(&buf, "", "text", true).Info("listening", "addr", ":8080")
	out := buf.String()
	if !strings.Contains(out, "service=evimap") || !strings.Contains(out, "source=") {
		t.Errorf("text record = %q", out)
	}
}
