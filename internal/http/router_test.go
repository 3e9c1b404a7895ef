package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/tbourn/go-repair-bot/internal/config"
	"github.com/tbourn/go-repair-bot/internal/domain"
)

type stubStore struct{ records []domain.Request }

func (s *stubStore) List() []domain.Request       { return s.records }
func (s *stubStore) Delete(int64) (bool, error)   { return true, nil }
func (s *stubStore) Export() ([]byte, error)      { return []byte("id\n"), nil }

type stubBot struct{ updates int }

func (s *stubBot) HandleUpdate(context.Context, tgbotapi.Update) error {
	s.updates++
	return nil
}

func testConfig() config.Config {
	return config.Config{
		Port:              "8080",
		ReadTimeout:       time.Second,
		ReadHeaderTimeout: time.Second,
		WriteTimeout:      time.Second,
		IdleTimeout:       time.Second,
		MaxHeaderBytes:    1 << 20,
		APIBasePath:       "/api/v1",
		OperatorToken:     "s3cret",
		RateRPS:           100,
		RateBurst:         100,
		Bot: config.BotConfig{
			WebhookPath: "/webhook",
		},
	}
}

func newTestServer(t *testing.T, cfg config.Config) (*gin.Engine, *stubBot) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	b := &stubBot{}
	RegisterRoutes(r, &stubStore{}, b, cfg)
	return r, b
}

func get(r *gin.Engine, path string, hdr map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	r, _ := newTestServer(t, testConfig())
	if w := get(r, "/health", nil); w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestUnknownRoute_JSONEnvelope(t *testing.T) {
	r, _ := newTestServer(t, testConfig())
	w := get(r, "/nope", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "not_found") {
		t.Fatalf("body = %s", w.Body.String())
	}
}

func TestMethodNotAllowed(t *testing.T) {
	r, _ := newTestServer(t, testConfig())
	req := httptest.NewRequest(http.MethodDelete, "/health", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestWebhook_ReachesBotWithoutAuth(t *testing.T) {
	r, b := newTestServer(t, testConfig())
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(`{"update_id":1}`))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if b.updates != 1 {
		t.Fatalf("bot saw %d updates", b.updates)
	}
}

func TestOperatorAPI_RequiresToken(t *testing.T) {
	r, _ := newTestServer(t, testConfig())

	if w := get(r, "/api/v1/requests", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("no token: status = %d, want 401", w.Code)
	}
	w := get(r, "/api/v1/requests", map[string]string{"X-Operator-Token": "s3cret"})
	if w.Code != http.StatusOK {
		t.Fatalf("with token: status = %d, want 200", w.Code)
	}
}

func TestRequestsView_PublicHTML(t *testing.T) {
	r, _ := newTestServer(t, testConfig())
	w := get(r, "/requests", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Fatalf("Content-Type = %q", ct)
	}
}

func TestRequestsView_GzipWhenAccepted(t *testing.T) {
	r, _ := newTestServer(t, testConfig())
	w := get(r, "/requests", map[string]string{"Accept-Encoding": "gzip"})
	if enc := w.Header().Get("Content-Encoding"); enc != "gzip" {
		t.Fatalf("Content-Encoding = %q, want gzip", enc)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	r, _ := newTestServer(t, testConfig())
	if w := get(r, "/metrics", nil); w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
}
