package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func serveWith(opt SecurityOptions, mutate func(*http.Request)) *httptest.ResponseRecorder {
	r := newEngine()
	r.Use(SecurityHeaders(opt))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if mutate != nil {
		mutate(req)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestSecurityHeaders_Baseline(t *testing.T) {
	w := serveWith(SecurityOptions{EnablePolicy: true}, nil)

	for hdr, want := range map[string]string{
		"X-Content-Type-Options":            "nosniff",
		"X-Frame-Options":                   "DENY",
		"Referrer-Policy":                   "no-referrer",
		"X-Permitted-Cross-Domain-Policies": "none",
	} {
		if got := w.Header().Get(hdr); got != want {
			t.Errorf("%s = %q, want %q", hdr, got, want)
		}
	}
}

func TestSecurityHeaders_NoHSTSOverPlainHTTP(t *testing.T) {
	w := serveWith(SecurityOptions{EnableHSTS: true}, nil)
	if got := w.Header().Get("Strict-Transport-Security"); got != "" {
		t.Fatalf("HSTS emitted over plain HTTP: %q", got)
	}
}

func TestSecurityHeaders_HSTSBehindProxy(t *testing.T) {
	w := serveWith(SecurityOptions{EnableHSTS: true, HSTSMaxAge: time.Hour}, func(req *http.Request) {
		req.Header.Set("X-Forwarded-Proto", "https")
	})
	got := w.Header().Get("Strict-Transport-Security")
	if !strings.Contains(got, "max-age=3600") {
		t.Fatalf("unexpected HSTS header: %q", got)
	}
}

func TestSecurityHeaders_NoStore(t *testing.T) {
	w := serveWith(SecurityOptions{NoStore: true}, nil)
	if got := w.Header().Get("Cache-Control"); got != "no-store" {
		t.Fatalf("Cache-Control = %q", got)
	}
}
