package logging

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

func decodeLines(t *testing.T, data []byte) []map[string]any {
	t.Helper()
	var out []map[string]any
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		var m map[string]any
		if err := json.Unmarshal(scanner.Bytes(), &m); err != nil {
			t.Fatalf("decode line %q: %v", scanner.Text(), err)
		}
		out = append(out, m)
	}
	return out
}

func TestCategoryEntriesAreJSON(t *testing.T) {
	var buf bytes.Buffer
	l := New("test-json", logrus.DebugLevel, &buf)
	defer l.Close()

	l.Category("drops").WithField("outcome", "success").Info("claim settled")

	lines := decodeLines(t, buf.Bytes())
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(lines))
	}
	got := lines[0]
	if got["message"] != "claim settled" || got["category"] != "drops" || got["site"] != "test-json" {
		t.Fatalf("unexpected entry: %+v", got)
	}
	if _, ok := got["timestamp"]; !ok {
		t.Fatalf("missing timestamp: %+v", got)
	}
}

func TestLevelFiltersEntries(t *testing.T) {
	var buf bytes.Buffer
	l := New("test-level", logrus.WarnLevel, &buf)
	defer l.Close()

	l.Category("general").Info("hidden")
	l.Category("general").Warn("shown")

	lines := decodeLines(t, buf.Bytes())
	if len(lines) != 1 || lines[0]["message"] != "shown" {
		t.Fatalf("unexpected lines: %+v", lines)
	}
}

func TestSubscribersReceiveEntries(t *testing.T) {
	l := New("test-subscribe", logrus.InfoLevel)
	defer l.Close()
	ch := make(chan Entry, 2)
	unsubscribe := l.Subscribe(ch)

	l.Category("backend").WithError(errors.New("boom")).WithField("endpoint", "/news").Error("request failed")
	unsubscribe()
	l.Category("backend").Info("after unsubscribe")

	if len(ch) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(ch))
	}
	e := <-ch
	if e.Level != "ERROR" || e.Category != "backend" || e.Error != "boom" || e.Fields["endpoint"] != "/news" {
		t.Fatalf("unexpected entry: %+v", e)
	}
	if _, ok := e.Fields[FieldSite]; ok {
		t.Fatalf("site should not be repeated in fields: %+v", e.Fields)
	}
}

func TestNewFromOptionsWritesRotatingFile(t *testing.T) {
	dir := t.TempDir()
	l, err := NewFromOptions("site-a", Options{Dir: dir, Level: "debug"})
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	l.Category("general").Debug("hello")
	if err := l.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "site-a.log"))
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	lines := decodeLines(t, data)
	if len(lines) != 1 || lines[0]["message"] != "hello" {
		t.Fatalf("unexpected file content: %s", data)
	}
	if _, ok := Get("site-a"); ok {
		t.Fatalf("closed logger still registered")
	}
}

func TestNewFromOptionsRejectsUnknownLevel(t *testing.T) {
	if _, err := NewFromOptions("bad", Options{Level: "loud"}); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}

func TestHTTPLoggingRecordsRequests(t *testing.T) {
	var buf bytes.Buffer
	logger := New("test-http", logrus.InfoLevel, &buf)
	defer logger.Close()

	var seenID string
	mux := http.NewServeMux()
	mux.HandleFunc("/ping", func(w http.ResponseWriter, r *http.Request) {
		seenID = RequestID(r.Context())
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("ok"))
	})

	var observed []string
	hl := NewHTTPLogger(logger)
	hl.Observe = func(method, route string, status int, _ time.Duration) {
		observed = append(observed, method+" "+route)
	}
	handler := hl.Middleware(mux)

	req := httptest.NewRequest(http.MethodGet, "/ping?x=1", nil)
	req.Header.Set("Cookie", "sid=secret")
	req.Header.Set("Accept", "text/plain")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	id := rec.Header().Get(RequestIDHeader)
	if _, err := uuid.Parse(id); err != nil {
		t.Fatalf("expected uuid request id, got %q", id)
	}
	if seenID != id {
		t.Fatalf("handler saw %q, response carries %q", seenID, id)
	}
	if len(observed) != 1 || observed[0] != "GET /ping" {
		t.Fatalf("unexpected observations: %v", observed)
	}

	lines := decodeLines(t, buf.Bytes())
	if len(lines) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(lines))
	}
	entry := lines[0]
	if entry["level"] != "warning" || entry["status"] != float64(http.StatusTeapot) || entry["request_id"] != id {
		t.Fatalf("unexpected entry: %+v", entry)
	}
	headers, _ := entry["request_headers"].(map[string]any)
	if _, leaked := headers["Cookie"]; leaked {
		t.Fatalf("cookie header logged: %+v", headers)
	}
	if headers["Accept"] != "text/plain" {
		t.Fatalf("expected accept header, got %+v", headers)
	}
}

func TestHTTPLoggingKeepsIncomingRequestID(t *testing.T) {
	logger := New("test-http-id", logrus.InfoLevel)
	defer logger.Close()
	handler := NewHTTPLogger(logger).Middleware(http.NotFoundHandler())

	incoming := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, incoming)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if got := rec.Header().Get(RequestIDHeader); got != incoming {
		t.Fatalf("expected %q, got %q", incoming, got)
	}
}
