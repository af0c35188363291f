package metrics

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/noop"
	"gorm.io/gorm"
)

func TestFilterAttributesDropsForbiddenLabels(t *testing.T) {
	attrs := FilterAttributes(
		attribute.String("tier", "free"),
		attribute.String("user_id", "u1"),
		attribute.String("event_type", "message"),
	)
	require.Len(t, attrs, 2)
	for _, attr := range attrs {
		assert.NotEqual(t, attribute.Key("user_id"), attr.Key)
	}
}

func TestNewWithNoopProvider(t *testing.T) {
	m, err := New(Config{}, noop.NewMeterProvider())
	require.NoError(t, err)

	assert.NotPanics(t, func() {
		m.RecordUsageEvent(context.Background(), "message", "default", 0.045)
		m.RecordQuotaDecision(context.Background(), "free", true)
		m.RecordSubscriptionTransition(context.Background(), "trialing", "active")
	})

	var nilMetrics *Metrics
	assert.NotPanics(t, func() { nilMetrics.RecordUsageEvent(context.Background(), "debate", "", 0) })
}

func TestClassifyStoreReason(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{name: "deadline", err: context.DeadlineExceeded, want: StoreReasonDeadlineExceeded},
		{name: "canceled", err: context.Canceled, want: StoreReasonCanceled},
		{name: "lock_timeout", err: &pgconn.PgError{Code: "55P03"}, want: StoreReasonLockTimeout},
		{name: "serialization", err: &pgconn.PgError{Code: "40001"}, want: StoreReasonSerializationFailure},
		{name: "unique_gorm", err: gorm.ErrDuplicatedKey, want: StoreReasonUniqueViolation},
		{name: "unique_pg", err: &pgconn.PgError{Code: "23505"}, want: StoreReasonUniqueViolation},
		{name: "unknown", err: errors.New("boom"), want: StoreReasonUnknown},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ClassifyStoreReason(tc.err))
		})
	}
}

func TestAccountingMetricsRegistered(t *testing.T) {
	reg := prometheus.NewRegistry()
	cfg := Config{ServiceName: "consensus", PrometheusEnabled: true}
	m, err := NewAccountingMetrics(cfg, reg)
	require.NoError(t, err)

	m.ObserveRefold(RefoldReasonStale, 3)
	m.ObserveRefold(RefoldReasonStale, 5)
	m.ObserveStoreError("append", &pgconn.PgError{Code: "40001"})
	m.ObserveLockWait("local", time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.refolds.WithLabelValues(RefoldReasonStale)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.storeErrors.WithLabelValues("append", StoreReasonSerializationFailure)))

	m.ObserveJob("expire_trials", "ok", time.Second)
	m.ObserveJob("expire_trials", "skipped", 0)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.jobRuns.WithLabelValues("expire_trials", "skipped")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.jobDuration))

	again, err := NewAccountingMetrics(cfg, reg)
	require.NoError(t, err)
	assert.Same(t, m.refolds, again.refolds)
}

func TestHTTPMetricsMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	reg := prometheus.NewRegistry()
	m, err := NewHTTPMetrics(Config{PrometheusEnabled: true}, reg)
	require.NoError(t, err)

	r := gin.New()
	r.Use(m.GinMiddleware())
	r.GET("/v1/tiers", func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 2; i++ {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/tiers", nil))
	}
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nope", nil))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requests.WithLabelValues("/v1/tiers", "GET", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("unknown", "GET", "404")))
}
