package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/m0hi1/voyageiq/internal/interface/middleware"
)

func TestRealIP(t *testing.T) {
	r := gin.New()
	r.Use(middleware.RealIP())
	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString("real_ip"))
	})

	cases := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{"cloudflare header wins", map[string]string{
			"CF-Connecting-IP": "203.0.113.7",
			"X-Forwarded-For":  "198.51.100.1, 10.0.0.1",
		}, "203.0.113.7"},
		{"first forwarded hop", map[string]string{
			"X-Forwarded-For": "198.51.100.1, 10.0.0.1",
		}, "198.51.100.1"},
		{"garbage header ignored", map[string]string{
			"CF-Connecting-IP": "not-an-ip",
			"X-Forwarded-For":  "198.51.100.1",
		}, "198.51.100.1"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			for k, v := range tc.headers {
				req.Header.Set(k, v)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			require.Equal(t, tc.want, w.Body.String())
		})
	}
}
