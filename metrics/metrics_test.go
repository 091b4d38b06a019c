package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
)

func scrape(t *testing.T, m Meter) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(body)
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *Config
		wantErr bool
	}{
		{name: "nil config", cfg: nil, wantErr: true},
		{name: "disabled", cfg: &Config{}},
		{name: "enabled", cfg: &Config{Enabled: true, ServiceName: "orders", Version: "v1"}},
		{name: "runtime", cfg: &Config{Enabled: true, Runtime: true}},
		{name: "invalid port", cfg: &Config{Enabled: true, Port: 70000}, wantErr: true},
		{name: "invalid path", cfg: &Config{Enabled: true, Path: "metrics"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := New(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, m.Provider())
			assert.NoError(t, m.Shutdown(context.Background()))
		})
	}
}

func TestMust(t *testing.T) {
	m := Must(&Config{Enabled: true, ServiceName: "orders"})
	assert.NoError(t, m.Shutdown(context.Background()))
	assert.Panics(t, func() { Must(nil) })
}

func TestMeter_ExportsInstruments(t *testing.T) {
	m, err := New(&Config{Enabled: true, ServiceName: "orders"})
	require.NoError(t, err)
	defer m.Shutdown(context.Background())

	ctx := context.Background()
	counter, err := m.Counter("hydra_test_events", "test events")
	require.NoError(t, err)
	counter.Inc(ctx, L(LabelChannel, "direct"))
	counter.Add(ctx, 2, L(LabelChannel, "direct"))

	gauge, err := m.Gauge("hydra_test_inflight", "in flight")
	require.NoError(t, err)
	gauge.Inc(ctx)
	gauge.Inc(ctx)
	gauge.Dec(ctx)

	hist, err := m.Histogram("hydra_test_latency", "latency", WithUnit("s"), WithBuckets([]float64{0.1, 1}))
	require.NoError(t, err)
	hist.Record(ctx, 0.05)

	body := scrape(t, m)
	assert.Contains(t, body, "hydra_test_events")
	assert.Contains(t, body, `channel="direct"`)
	assert.Contains(t, body, "hydra_test_inflight")
	assert.Contains(t, body, "hydra_test_latency")
}

func TestMeters_AreIsolated(t *testing.T) {
	a, err := New(&Config{Enabled: true})
	require.NoError(t, err)
	b, err := New(&Config{Enabled: true})
	require.NoError(t, err)

	c, err := a.Counter("hydra_only_in_a", "a")
	require.NoError(t, err)
	c.Inc(context.Background())

	assert.Contains(t, scrape(t, a), "hydra_only_in_a")
	assert.NotContains(t, scrape(t, b), "hydra_only_in_a")
}

func TestNew_ResourceAttributes(t *testing.T) {
	m, err := New(&Config{Enabled: true, ServiceName: "orders"},
		WithResource(attribute.String("host.name", "node-1")))
	require.NoError(t, err)
	defer m.Shutdown(context.Background())

	c, err := m.Counter("hydra_test_resource", "r")
	require.NoError(t, err)
	c.Inc(context.Background())

	body := scrape(t, m)
	assert.Contains(t, body, "target_info")
	assert.Contains(t, body, `host_name="node-1"`)
	assert.Contains(t, body, `service_name="orders"`)
}

func TestDiscard(t *testing.T) {
	m := Discard()
	c, err := m.Counter("x", "x")
	require.NoError(t, err)
	c.Inc(context.Background())

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

type captureCounter struct{ records [][]Label }

func (c *captureCounter) Inc(_ context.Context, labels ...Label) {
	c.records = append(c.records, append([]Label(nil), labels...))
}

func (c *captureCounter) Add(ctx context.Context, _ float64, labels ...Label) { c.Inc(ctx, labels...) }

type captureHistogram struct{ count int }

func (h *captureHistogram) Record(context.Context, float64, ...Label) { h.count++ }

func labelValue(labels []Label, key string) string {
	for _, l := range labels {
		if l.Key == key {
			return l.Value
		}
	}
	return ""
}

func TestGinHTTPMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	counter := &captureCounter{}
	histogram := &captureHistogram{}
	router := gin.New()
	router.Use(GinHTTPMiddleware(&HTTPServerMetrics{service: "svc", requests: counter, duration: histogram}))
	router.GET("/v1/orders/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, path := range []string{"/v1/orders/42", "/random-scan"} {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	require.Len(t, counter.records, 2)
	assert.Equal(t, 2, histogram.count)
	assert.Equal(t, "/v1/orders/:id", labelValue(counter.records[0], LabelRoute))
	assert.Equal(t, "2xx", labelValue(counter.records[0], LabelStatusClass))
	assert.Equal(t, UnknownRoute, labelValue(counter.records[1], LabelRoute))
	assert.Equal(t, "4xx", labelValue(counter.records[1], LabelStatusClass))
}
