package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/asrama-api/internal/models"
	"github.com/noah-isme/asrama-api/internal/service"
)

func testTokens() *service.TokenService {
	return service.NewTokenService(service.TokenConfig{Secret: "test-secret", Issuer: "campus-sso"})
}

func bearer(t *testing.T, claims models.JWTClaims) string {
	t.Helper()
	token, err := testTokens().Issue(claims, time.Hour)
	require.NoError(t, err)
	return "Bearer " + token
}

func protectedRouter(allowed ...string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/students/:nim", JWT(testTokens()), RBAC(allowed...), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return router
}

func TestJWTRequiresToken(t *testing.T) {
	router := protectedRouter(string(models.RoleAdmin))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/students/2301", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/students/2301", nil)
	req.Header.Set("Authorization", "Token abc")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	var body map[string]map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "UNAUTHORIZED", body["error"]["code"])
}

func TestJWTAcceptsQueryToken(t *testing.T) {
	router := protectedRouter(string(models.RoleAdmin))
	token, err := testTokens().Issue(models.JWTClaims{UserID: "a", Role: models.RoleAdmin}, time.Hour)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/students/2301?access_token="+token, nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRBACRolesAndSelf(t *testing.T) {
	router := protectedRouter(string(models.RoleAdmin), string(models.RoleKasra), Self)

	cases := []struct {
		name   string
		claims models.JWTClaims
		path   string
		want   int
	}{
		{name: "admin", claims: models.JWTClaims{UserID: "a", Role: models.RoleAdmin}, path: "/students/2301", want: http.StatusNoContent},
		{name: "kasra", claims: models.JWTClaims{UserID: "k", Role: models.RoleKasra, NIM: "K1"}, path: "/students/2301", want: http.StatusNoContent},
		{name: "own record", claims: models.JWTClaims{UserID: "s", Role: models.RoleStudent, NIM: "2301"}, path: "/students/2301", want: http.StatusNoContent},
		{name: "someone else", claims: models.JWTClaims{UserID: "s", Role: models.RoleStudent, NIM: "2301"}, path: "/students/2302", want: http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tc.path, nil)
			req.Header.Set("Authorization", bearer(t, tc.claims))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			assert.Equal(t, tc.want, rec.Code)
		})
	}
}

func TestRequireRolesWithoutClaims(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/", RequireRoles(models.RoleAdmin), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestResponseMeta(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(WithResponseMeta())
	var meta map[string]interface{}
	router.GET("/", func(c *gin.Context) {
		SetCacheHit(c, true)
		meta = ExtractMeta(c)
		c.Status(http.StatusNoContent)
	})

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, true, meta["cache_hit"])
	assert.Contains(t, meta, "processing_time_ms")
	assert.NotContains(t, meta, "started_at")
}

func TestMetricsMiddlewareRecordsRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	metrics := service.NewMetricsService()
	router := gin.New()
	router.Use(Metrics(metrics))
	router.GET("/rooms/:building", func(c *gin.Context) { c.Status(http.StatusOK) })

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/rooms/B1", nil))
	assert.Equal(t, uint64(1), metrics.Snapshot().RequestsTotal)
}
