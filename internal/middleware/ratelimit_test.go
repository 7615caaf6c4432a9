package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

func TestLocalLimiterRefills(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC))
	l := NewLocalLimiter(3, time.Minute, clock)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		d, err := l.Take(ctx, "k")
		if err != nil || !d.Allowed {
			t.Fatalf("Take() #%d = %+v, %v; want allowed", i, d, err)
		}
	}
	d, _ := l.Take(ctx, "k")
	if d.Allowed {
		t.Fatal("Take() beyond burst allowed")
	}
	if d.RetryAfter <= 0 || d.RetryAfter > 20*time.Second {
		t.Errorf("RetryAfter = %s, want within one refill interval", d.RetryAfter)
	}

	if d, _ := l.Take(ctx, "other"); !d.Allowed {
		t.Error("separate key shares a bucket")
	}

	clock.Advance(20 * time.Second)
	if d, _ := l.Take(ctx, "k"); !d.Allowed {
		t.Error("Take() after refill interval denied")
	}
}

type failingLimiter struct{}

func (failingLimiter) Take(context.Context, string) (Decision, error) {
	return Decision{}, errors.New("redis down")
}
func (failingLimiter) Capacity() int { return 1 }

func TestRateLimitMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	clock := clockwork.NewFakeClockAt(time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC))

	r := gin.New()
	r.POST("/login", RateLimit(NewLocalLimiter(2, time.Minute, clock), "rl", zap.NewNop()), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	r.POST("/open", RateLimit(failingLimiter{}, "rl", zap.NewNop()), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/login", nil))
		codes = append(codes, w.Code)
		if i == 2 && w.Header().Get("Retry-After") == "" {
			t.Error("429 without Retry-After")
		}
	}
	want := []int{http.StatusNoContent, http.StatusNoContent, http.StatusTooManyRequests}
	for i := range want {
		if codes[i] != want[i] {
			t.Fatalf("codes = %v, want %v", codes, want)
		}
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/open", nil))
	if w.Code != http.StatusNoContent {
		t.Errorf("limiter failure status = %d, want request to pass", w.Code)
	}
}
