package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func newEngine() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

func TestRequestID_GeneratesWhenAbsent(t *testing.T) {
	r := newEngine()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if rid := w.Header().Get("X-Request-ID"); rid == "" {
		t.Fatal("expected a generated X-Request-ID")
	}
}

func TestRequestID_PropagatesExisting(t *testing.T) {
	r := newEngine()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if rid := w.Header().Get("X-Request-ID"); rid != "abc-123" {
		t.Fatalf("expected propagated id, got %q", rid)
	}
}

func TestRecovery_ConvertsPanicTo500(t *testing.T) {
	r := newEngine()
	r.Use(RequestID(), Logger(), Recovery())
	r.GET("/boom", func(c *gin.Context) { panic("kaput") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
	if !strings.Contains(w.Body.String(), "internal_error") {
		t.Fatalf("body missing error code: %s", w.Body.String())
	}
}

func TestLoggerFrom_FallsBackWithoutMiddleware(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	if LoggerFrom(c) == nil {
		t.Fatal("LoggerFrom returned nil")
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("abcdef", 3); got != "abc…" {
		t.Fatalf("truncate = %q", got)
	}
	if got := truncate("abc", 10); got != "abc" {
		t.Fatalf("truncate short = %q", got)
	}
	if got := truncate("abc", 0); got != "abc" {
		t.Fatalf("truncate disabled = %q", got)
	}
}
