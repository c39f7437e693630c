package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Artufe/bravo-tango-bravo/internal/config"
)

func TestLoggingMiddleware(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	logger := zap.New(core)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set(ContextKeyRequestID, "rid-123")

	err := Logging(logger)(func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})(c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	entries := logs.FilterField(zap.String("request_id", "rid-123")).All()
	if len(entries) != 1 || entries[0].Level != zapcore.InfoLevel {
		t.Fatalf("expected one info entry with request id, got %+v", logs.All())
	}

	// errors are propagated and logged at error level
	rec = httptest.NewRecorder()
	c = e.NewContext(req, rec)
	c.Set(ContextKeyRequestID, "rid-456")
	expected := errors.New("boom")

	err = Logging(logger)(func(c echo.Context) error {
		return expected
	})(c)
	if !errors.Is(err, expected) {
		t.Fatalf("expected error to bubble up")
	}
	entries = logs.FilterField(zap.String("request_id", "rid-456")).All()
	if len(entries) != 1 || entries[0].Level != zapcore.ErrorLevel {
		t.Fatalf("expected error entry for failed request, got %+v", entries)
	}
}

func TestRateLimiter(t *testing.T) {
	cfg := config.RateLimitConfig{Requests: 1, Interval: time.Second}
	mw := RateLimiter(cfg)
	e := echo.New()

	nextCalls := 0
	next := func(c echo.Context) error {
		nextCalls++
		return c.NoContent(http.StatusOK)
	}

	req := httptest.NewRequest(http.MethodPost, "/queries", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	_ = mw(next)(c)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected first request to pass, got %d", rec.Code)
	}

	req2 := httptest.NewRequest(http.MethodPost, "/queries", nil)
	rec2 := httptest.NewRecorder()
	c2 := e.NewContext(req2, rec2)
	_ = mw(next)(c2)
	if rec2.Code != http.StatusTooManyRequests {
		t.Fatalf("expected second request rejected, got %d", rec2.Code)
	}

	// zero config should behave as passthrough
	mw = RateLimiter(config.RateLimitConfig{})
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		c := e.NewContext(httptest.NewRequest(http.MethodPost, "/queries", nil), rec)
		_ = mw(next)(c)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected passthrough when limiter disabled")
		}
	}

	if nextCalls != 4 {
		t.Fatalf("expected next handler to be invoked 4 times, got %d", nextCalls)
	}
}

func TestRequireRole(t *testing.T) {
	e := echo.New()
	mw := RequireRole("admin", "operator")

	tests := map[string]struct {
		role       string
		expectCode int
	}{
		"missing role":   {expectCode: http.StatusForbidden},
		"incorrect role": {role: "user", expectCode: http.StatusForbidden},
		"admin":          {role: "admin", expectCode: http.StatusOK},
		"operator":       {role: "operator", expectCode: http.StatusOK},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)
			if tt.role != "" {
				c.Set(ContextKeyUserRole, tt.role)
			}
			called := false
			if err := mw(func(c echo.Context) error {
				called = true
				return c.NoContent(http.StatusOK)
			})(c); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if rec.Code != tt.expectCode {
				t.Fatalf("expected %d, got %d", tt.expectCode, rec.Code)
			}
			if called != (tt.expectCode == http.StatusOK) {
				t.Fatalf("unexpected handler invocation: %v", called)
			}
		})
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	e := echo.New()
	handler := RequestID()

	t.Run("reuse incoming header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Request-ID", "incoming")
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		if err := handler(func(c echo.Context) error {
			if RequestIDFromContext(c) != "incoming" {
				t.Fatalf("expected request id to be stored")
			}
			if RequestIDFrom(c.Request().Context()) != "incoming" {
				t.Fatalf("expected request id on request context")
			}
			return c.NoContent(http.StatusOK)
		})(c); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if rec.Header().Get("X-Request-ID") != "incoming" {
			t.Fatalf("expected response header to propagate request id")
		}
	})

	t.Run("generate when missing", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		if err := handler(func(c echo.Context) error {
			rid := RequestIDFromContext(c)
			if rid == "" {
				t.Fatalf("expected generated request id")
			}
			return c.NoContent(http.StatusOK)
		})(c); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if rec.Header().Get("X-Request-ID") == "" {
			t.Fatalf("expected response header set")
		}
	})
}
