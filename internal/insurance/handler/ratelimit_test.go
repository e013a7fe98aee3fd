package handler_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/securepremium/securepremium/internal/insurance/handler"
)

func newLimitedRouter(rps, burst int) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(handler.RateLimiter(rps, burst))
	ok := func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) }
	router.GET("/api/v1/devices/:device_id", ok)
	router.POST("/api/v1/premium/estimate", ok)
	return router
}

func hit(router *gin.Engine, method, path, remoteAddr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if remoteAddr != "" {
		req.RemoteAddr = remoteAddr
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRateLimiter_rejectsPastBurst(t *testing.T) {
	router := newLimitedRouter(1, 2)

	for i := 0; i < 2; i++ {
		if w := hit(router, http.MethodGet, "/api/v1/devices/laptop-001-alpha", ""); w.Code != http.StatusOK {
			t.Fatalf("request %d status = %d, want 200", i+1, w.Code)
		}
	}

	w := hit(router, http.MethodGet, "/api/v1/devices/laptop-001-alpha", "")
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429 once the burst is spent", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Fatal("429 response is missing the Retry-After header")
	}
}

func TestRateLimiter_pricingEndpointCostsMore(t *testing.T) {
	// Burst of 4 covers exactly one estimate call (cost 4).
	router := newLimitedRouter(1, 4)

	if w := hit(router, http.MethodPost, "/api/v1/premium/estimate", ""); w.Code != http.StatusOK {
		t.Fatalf("first estimate status = %d, want 200", w.Code)
	}
	if w := hit(router, http.MethodPost, "/api/v1/premium/estimate", ""); w.Code != http.StatusTooManyRequests {
		t.Fatalf("second estimate status = %d, want 429", w.Code)
	}
}

func TestRateLimiter_clientsHaveSeparateBuckets(t *testing.T) {
	router := newLimitedRouter(1, 1)

	if w := hit(router, http.MethodGet, "/api/v1/devices/laptop-001-alpha", "203.0.113.10:4000"); w.Code != http.StatusOK {
		t.Fatalf("first client status = %d, want 200", w.Code)
	}
	if w := hit(router, http.MethodGet, "/api/v1/devices/laptop-001-alpha", "203.0.113.10:4000"); w.Code != http.StatusTooManyRequests {
		t.Fatalf("first client repeat status = %d, want 429", w.Code)
	}

	// A different client keeps its own full bucket.
	if w := hit(router, http.MethodGet, "/api/v1/devices/laptop-001-alpha", "203.0.113.20:4000"); w.Code != http.StatusOK {
		t.Fatalf("second client status = %d, want 200", w.Code)
	}
}
