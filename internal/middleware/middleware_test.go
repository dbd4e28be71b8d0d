package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/iliyamo/service-booking/internal/booking"
	"github.com/iliyamo/service-booking/internal/config"
	"github.com/iliyamo/service-booking/internal/model"
	"github.com/iliyamo/service-booking/internal/utils"
)

const secret = "test-secret"

func newServer(mw ...echo.MiddlewareFunc) *echo.Echo {
	e := echo.New()
	e.GET("/who", func(c echo.Context) error {
		p, ok := PrincipalFrom(c)
		if !ok {
			return c.String(http.StatusOK, "nobody")
		}
		return c.JSON(http.StatusOK, echo.Map{"id": p.ID, "role": p.Role})
	}, mw...)
	return e
}

func do(e *echo.Echo, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/who", nil)
	if header != "" {
		req.Header.Set(echo.HeaderAuthorization, header)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func bearer(t *testing.T, id uint64, role model.Role) string {
	t.Helper()
	tok, err := utils.NewAccessToken(secret, id, role, time.Minute)
	require.NoError(t, err)
	return "Bearer " + tok.Token
}

func TestJWTAuth(t *testing.T) {
	e := newServer(JWTAuth(secret))

	rec := do(e, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), `"error":"unauthenticated"`)

	rec = do(e, "Bearer garbage")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(e, "Basic dXNlcjpwYXNz")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(e, bearer(t, 4, model.RoleCustomer))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":4,"role":"CUSTOMER"}`, rec.Body.String())
}

func TestRequireRole(t *testing.T) {
	e := newServer(JWTAuth(secret), RequireRole(model.RoleAdmin, model.RoleProvider))

	assert.Equal(t, http.StatusOK, do(e, bearer(t, 1, model.RoleAdmin)).Code)
	assert.Equal(t, http.StatusOK, do(e, bearer(t, 2, model.RoleProvider)).Code)

	rec := do(e, bearer(t, 4, model.RoleCustomer))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), `"error":"forbidden"`)

	// Without JWTAuth in front there is no principal at all.
	bare := newServer(RequireRole(model.RoleAdmin))
	assert.Equal(t, http.StatusUnauthorized, do(bare, "").Code)
}

func TestUserID(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	assert.Equal(t, "anon", userID(c))
	WithPrincipal(c, booking.Principal{ID: 12, Role: model.RoleAdmin})
	assert.Equal(t, "12", userID(c))
}

func TestCacheEntryRoundTrip(t *testing.T) {
	hdr := http.Header{"Content-Type": {"application/json"}}
	bs, err := encodeEntry(http.StatusOK, hdr, []byte(`{"ok":true}`))
	require.NoError(t, err)

	status, got, body, ok := decodeEntry(bs)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "application/json", got.Get("Content-Type"))
	assert.Equal(t, `{"ok":true}`, string(body))

	_, _, _, ok = decodeEntry([]byte{0, 1})
	assert.False(t, ok)
	_, _, _, ok = decodeEntry([]byte{0, 0, 0, 200, 0, 0, 1, 0})
	assert.False(t, ok)
}

func TestCacheKeyIgnoresQueryOrder(t *testing.T) {
	e := echo.New()
	cfg := config.CacheConfig{Prefix: "cache", KeyStrategy: "route_query"}
	key := func(target string) string {
		c := e.NewContext(httptest.NewRequest(http.MethodGet, target, nil), httptest.NewRecorder())
		c.SetPath("/v1/admin/reports/top-services")
		return cacheKey(cfg, c)
	}
	a := key("/v1/admin/reports/top-services?limit=3&x=1")
	assert.Equal(t, a, key("/v1/admin/reports/top-services?x=1&limit=3"))
	assert.NotEqual(t, a, key("/v1/admin/reports/top-services?limit=4&x=1"))
	assert.True(t, strings.HasPrefix(a, "cache:"))

	cfg.KeyStrategy = "route"
	assert.Equal(t, key("/v1/admin/reports/top-services?limit=3"), key("/v1/admin/reports/top-services?limit=9"))
}

func TestRecorderStopsKeepingPastLimit(t *testing.T) {
	rec := &recorder{ResponseWriter: httptest.NewRecorder(), limit: 4}
	_, _ = rec.Write([]byte("abc"))
	assert.False(t, rec.truncated)
	_, _ = rec.Write([]byte("de"))
	assert.True(t, rec.truncated)
	assert.Equal(t, "abc", rec.buf.String())
}

func TestRedisMiddlewaresPassThroughWithoutClient(t *testing.T) {
	e := newServer(
		NewRedisCache(config.CacheConfig{Enabled: true}, nil, nil),
		NewTokenBucket(config.RateLimitConfig{Enabled: true, Capacity: 1}, nil, nil),
	)
	for i := 0; i < 3; i++ {
		rec := do(e, "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, rec.Header().Get("X-Cache"))
	}
}

func TestRateKeyStrategies(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/admin/reports/revenue", nil)
	req.Header.Set(echo.HeaderXRealIP, "10.0.0.9")
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/v1/admin/reports/revenue")
	WithPrincipal(c, booking.Principal{ID: 1, Role: model.RoleAdmin})

	cfg := config.RateLimitConfig{Prefix: "rl"}
	assert.Equal(t, "rl:ip:10.0.0.9:user:1:route:GET /v1/admin/reports/revenue", rateKey(cfg, c))
	cfg.KeyStrategy = "user"
	assert.Equal(t, "rl:user:1", rateKey(cfg, c))
	cfg.KeyStrategy = "ip"
	assert.Equal(t, "rl:ip:10.0.0.9", rateKey(cfg, c))
}

func TestRequestLoggerLevels(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	e := echo.New()
	e.Use(RequestLogger(zap.New(core)))
	e.GET("/ok", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/boom", func(c echo.Context) error { return echo.NewHTTPError(http.StatusInternalServerError, "boom") })

	for _, path := range []string{"/ok", "/boom", "/missing"} {
		e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}
	entries := logs.All()
	require.Len(t, entries, 3)
	assert.Equal(t, zap.InfoLevel, entries[0].Level)
	assert.Equal(t, zap.ErrorLevel, entries[1].Level)
	assert.Equal(t, zap.WarnLevel, entries[2].Level)
	assert.Equal(t, int64(http.StatusOK), entries[0].ContextMap()["status"])
}
