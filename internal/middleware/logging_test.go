package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

// serveWithLogger はロギングミドルウェア経由でリクエストを処理し、出力されたログエントリを返す。
func serveWithLogger(t *testing.T, h http.HandlerFunc, req *http.Request) map[string]any {
	t.Helper()
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	NewLoggingMiddleware(logger)(h).ServeHTTP(httptest.NewRecorder(), req)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse JSON log: %v\nraw: %s", err, buf.String())
	}
	return entry
}

func TestLoggingMiddleware_LogsRequestFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/story/getAll?category=food", nil)
	entry := serveWithLogger(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("hello"))
	}, req)

	if entry["method"] != "GET" {
		t.Errorf("method = %v, want GET", entry["method"])
	}
	if entry["path"] != "/api/story/getAll" {
		t.Errorf("path = %v, want /api/story/getAll", entry["path"])
	}
	if entry["status"] != float64(200) {
		t.Errorf("status = %v, want 200 (implicit on Write)", entry["status"])
	}
	if entry["bytes"] != float64(5) {
		t.Errorf("bytes = %v, want 5", entry["bytes"])
	}
	if d, ok := entry["duration_ms"].(float64); !ok || d < 0 {
		t.Errorf("duration_ms = %v, want >= 0", entry["duration_ms"])
	}
	if entry["msg"] != "http_request" {
		t.Errorf("msg = %v", entry["msg"])
	}
}

func TestLoggingMiddleware_UserID(t *testing.T) {
	req := httptest.NewRequest(http.MethodPut, "/api/story/like/x", nil)
	req = req.WithContext(ContextWithUserID(req.Context(), "user-123"))
	entry := serveWithLogger(t, func(w http.ResponseWriter, r *http.Request) {}, req)
	if entry["user_id"] != "user-123" {
		t.Errorf("user_id = %v, want user-123", entry["user_id"])
	}

	anon := serveWithLogger(t, func(w http.ResponseWriter, r *http.Request) {}, httptest.NewRequest(http.MethodGet, "/", nil))
	if _, ok := anon["user_id"]; ok {
		t.Error("user_id must be omitted for anonymous requests")
	}
}

func TestLoggingMiddleware_LevelByStatus(t *testing.T) {
	tests := []struct {
		statusCode int
		wantLevel  string
	}{
		{http.StatusOK, "INFO"},
		{http.StatusCreated, "INFO"},
		{http.StatusBadRequest, "WARN"},
		{http.StatusNotFound, "WARN"},
		{http.StatusBadGateway, "ERROR"},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.statusCode), func(t *testing.T) {
			entry := serveWithLogger(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.statusCode)
			}, httptest.NewRequest(http.MethodGet, "/test", nil))

			if int(entry["status"].(float64)) != tt.statusCode {
				t.Errorf("status = %v, want %d", entry["status"], tt.statusCode)
			}
			if entry["level"] != tt.wantLevel {
				t.Errorf("level = %v, want %s", entry["level"], tt.wantLevel)
			}
		})
	}
}
