package observ

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

func TestNewLoggerFallsBackToInfo(t *testing.T) {
	logger, err := NewLogger("development", "not-a-level")
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zap.InfoLevel))
	assert.False(t, logger.Core().Enabled(zap.DebugLevel))
}

func TestFromContext(t *testing.T) {
	base := zaptest.NewLogger(t)
	scoped := base.With(zap.String("request_id", "abc"))

	assert.Same(t, base, FromContext(context.Background(), base))
	assert.Same(t, scoped, FromContext(WithLogger(context.Background(), scoped), base))
}

func TestObserveRequest(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.ObserveRequest("GET", "/api/tenant/bikes", 200, 0.01)
	m.ObserveRequest("GET", "/api/tenant/bikes", 404, 0.01)
	m.ObserveRequest("POST", "/api/auth/login", 503, 0.02)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestCounter.WithLabelValues("GET", "/api/tenant/bikes", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StatusCategoryCounter.WithLabelValues("4xx")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StatusCategoryCounter.WithLabelValues("5xx")))
}

func TestStatusCategory(t *testing.T) {
	assert.Equal(t, "2xx", StatusCategory(201))
	assert.Equal(t, "3xx", StatusCategory(304))
	assert.Equal(t, "4xx", StatusCategory(409))
	assert.Equal(t, "5xx", StatusCategory(503))
}

func TestInitTracingWithoutEndpoint(t *testing.T) {
	shutdown, err := InitTracing(context.Background(), "bikers-api", "")
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))

	_, span := StartSpan(context.Background(), "noop")
	span.End()
}
