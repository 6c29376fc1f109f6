package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

type stubRegistrar struct {
	path string
}

func (s *stubRegistrar) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET(s.path, func(c *gin.Context) {
		c.String(http.StatusOK, s.path)
	})
}

func TestRouterDefaultsToV1(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine := gin.New()

	r := NewRouter(engine)
	r.Register(&stubRegistrar{path: "/items"})
	r.Setup()

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/items", nil))

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouterWithAPIVersion(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine := gin.New()

	NewRouter(engine, WithAPIVersion("v2")).
		Register(&stubRegistrar{path: "/items"}).
		Setup()

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v2/items", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/items", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouterRegisterChains(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine := gin.New()

	NewRouter(engine).
		Register(&stubRegistrar{path: "/items"}).
		Register(&stubRegistrar{path: "/orders"}).
		Setup()

	for _, path := range []string{"/api/v1/items", "/api/v1/orders"} {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, w.Code, path)
	}
}
