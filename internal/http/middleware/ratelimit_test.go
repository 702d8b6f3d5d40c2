package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	echo "github.com/labstack/echo/v4"
)

func TestRateLimitDisabledPassesThrough(t *testing.T) {
	tests := []struct {
		name string
		cfg  RateLimitConfig
	}{
		{"no rps", RateLimitConfig{}},
		{"no redis", RateLimitConfig{RPS: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			e.GET("/", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }, RateLimitMiddleware(tt.cfg))

			for i := 0; i < 5; i++ {
				rec := httptest.NewRecorder()
				e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
				if rec.Code != http.StatusNoContent {
					t.Fatalf("request %d: status = %d", i, rec.Code)
				}
			}
		})
	}
}

func TestRetryAfterSeconds(t *testing.T) {
	base := time.Unix(1_700_000_000, 0)
	tests := []struct {
		now    time.Time
		window time.Duration
		want   int
	}{
		{base, time.Second, 1},
		{base.Add(900 * time.Millisecond), time.Second, 1},
		{base, 10 * time.Second, 10},
		{base.Add(2500 * time.Millisecond), 10 * time.Second, 8},
	}
	for _, tt := range tests {
		if got := retryAfterSeconds(tt.now, tt.window); got != tt.want {
			t.Fatalf("retryAfterSeconds(%v, %v) = %d, want %d", tt.now, tt.window, got, tt.want)
		}
	}
}
