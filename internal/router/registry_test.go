package router_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/m0hi1/voyageiq/internal/router"
)

type routeModule struct {
	path  string
	order *[]string
}

func (m *routeModule) Register(rg *gin.RouterGroup) {
	*m.order = append(*m.order, m.path)
	rg.GET(m.path, func(c *gin.Context) { c.Status(http.StatusNoContent) })
}

func TestRegistry_MountsModulesInOrder(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	reg := router.NewRegistry(engine)

	var order []string
	reg.Add(&routeModule{path: "/first", order: &order})
	reg.Add(&routeModule{path: "/second", order: &order})

	// nothing mounted before RegisterAll
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/first", nil))
	require.Equal(t, http.StatusNotFound, w.Code)

	reg.RegisterAll()
	require.Equal(t, []string{"/first", "/second"}, order)

	for _, path := range []string{"/api/first", "/api/second"} {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusNoContent, w.Code, path)
	}
}
