package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"asapshop-backend/internal/metrics"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetricsLabelsByRouteTemplate(t *testing.T) {
	e := echo.New()
	e.Use(Metrics())
	e.GET("/pix/status-payment/:paymentId", func(c echo.Context) error {
		if c.Param("paymentId") == "bad" {
			return echo.NewHTTPError(http.StatusBadRequest, "no")
		}
		return c.NoContent(http.StatusOK)
	})

	ok := metrics.HTTPRequests.WithLabelValues(http.MethodGet, "/pix/status-payment/:paymentId", "200")
	bad := metrics.HTTPRequests.WithLabelValues(http.MethodGet, "/pix/status-payment/:paymentId", "400")
	okBefore, badBefore := testutil.ToFloat64(ok), testutil.ToFloat64(bad)

	for _, id := range []string{"1", "2", "bad"} {
		e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/pix/status-payment/"+id, nil))
	}

	assert.Equal(t, okBefore+2, testutil.ToFloat64(ok))
	assert.Equal(t, badBefore+1, testutil.ToFloat64(bad))
}
