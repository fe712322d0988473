package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPMetricsMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	provider, err := NewProvider("filevault_http")
	require.NoError(t, err)
	defer func() {
		assert.NoError(t, provider.Shutdown(context.Background()))
	}()

	router := gin.New()
	router.Use(HTTPMetricsMiddleware(provider.MeterProvider(), "filevault_http"))
	router.GET("/v1/files/:id", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	router.DELETE("/v1/vault/:id", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	for _, path := range []string{"/v1/files/a", "/v1/files/b", "/v1/files/c"} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/v1/vault/x", nil))
	require.Equal(t, http.StatusNoContent, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/does/not/exist", nil))
	require.Equal(t, http.StatusNotFound, w.Code)

	output := scrape(t, provider)

	assertSeries(t, output, `filevault_http_http_requests_total`,
		`method="GET".*path="/v1/files/:id".*status_code="200"`, `3`)
	assertSeries(t, output, `filevault_http_http_requests_total`,
		`method="DELETE".*path="/v1/vault/:id".*status_code="204"`, `1`)
	assertSeries(t, output, `filevault_http_http_requests_total`,
		`path="unknown".*status_code="404"`, `1`)
	assert.NotContains(t, output, "/v1/files/a")
}

func TestRouteLabel(t *testing.T) {
	assert.Equal(t, "/v1/files/:id", routeLabel("/v1/files/:id"))
	assert.Equal(t, "unknown", routeLabel(""))
}
