package middleware

import (
	"bufio"
	"bytes"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"schoolarchives/internal/branch"
	"schoolarchives/internal/models"
)

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return &buf
}

func TestLoggerRecordsStatus(t *testing.T) {
	buf := captureLogs(t)
	h := Logger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/missing", nil))

	if rr.Code != http.StatusNotFound {
		t.Errorf("status = %d", rr.Code)
	}
	out := buf.String()
	if !strings.Contains(out, "status=404") || !strings.Contains(out, "path=/missing") {
		t.Errorf("log line = %q", out)
	}
}

func TestLoggerDefaultStatusAndBranch(t *testing.T) {
	buf := captureLogs(t)
	h := Logger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("hello"))
	}))

	rec := httptest.NewRecorder()
	branch.Save(rec, &models.Branch{ID: uuid.New(), Name: "North", Code: "NTH"}, false)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}

	h.ServeHTTP(httptest.NewRecorder(), req)
	out := buf.String()
	if !strings.Contains(out, "status=200") || !strings.Contains(out, "branch=NTH") {
		t.Errorf("log line = %q", out)
	}
}

func TestWrapReusesResponseWriter(t *testing.T) {
	rw := wrap(httptest.NewRecorder())
	if wrap(rw) != rw {
		t.Error("double wrap should return the same writer")
	}
}

type hijackRecorder struct {
	*httptest.ResponseRecorder
	hijacked bool
}

func (h *hijackRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h.hijacked = true
	return nil, nil, nil
}

func TestResponseWriterHijack(t *testing.T) {
	inner := &hijackRecorder{ResponseRecorder: httptest.NewRecorder()}
	rw := wrap(inner)
	if _, _, err := rw.Hijack(); err != nil {
		t.Fatal(err)
	}
	if !inner.hijacked || rw.statusCode != http.StatusSwitchingProtocols {
		t.Errorf("hijacked=%v status=%d", inner.hijacked, rw.statusCode)
	}

	if _, _, err := wrap(httptest.NewRecorder()).Hijack(); err == nil {
		t.Error("expected error for non-hijacker")
	}
}
