package observability

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsHTTPEndpointURL(t *testing.T) {
	assert.True(t, isHTTPEndpointURL("http://collector:4318"))
	assert.True(t, isHTTPEndpointURL("https://collector:4318"))
	assert.False(t, isHTTPEndpointURL("collector:4318"))
}

func TestBuildResource(t *testing.T) {
	res, err := buildResource(Config{
		ServiceName:    "semql",
		ServiceVersion: "1.2.3",
		Environment:    "test",
	})
	require.NoError(t, err)

	attrs := res.Attributes()
	found := map[string]string{}
	for _, attr := range attrs {
		found[string(attr.Key)] = attr.Value.AsString()
	}
	assert.Equal(t, "semql", found["service.name"])
	assert.Equal(t, "1.2.3", found["service.version"])
	assert.Equal(t, "test", found["deployment.environment"])
}

func TestBuildTraceExporterOptions(t *testing.T) {
	opts := buildTraceExporterOptions(OTLPExporterConfig{
		Endpoint: "collector:4318",
		Insecure: true,
		Headers:  map[string]string{"x-api-key": "k"},
		Timeout:  5 * time.Second,
	})
	assert.Len(t, opts, 4)
}

func TestInitMeterProviderAndMetrics(t *testing.T) {
	mp, err := InitMeterProvider(Config{ServiceName: "semql-test"})
	require.NoError(t, err)
	defer func() { _ = mp.Shutdown(context.Background(), slog.Default()) }()

	metrics, err := InitCompilerMetrics()
	require.NoError(t, err)

	metrics.RecordCompile(context.Background(), 3*time.Millisecond, "summary", false)
	metrics.RecordJoins(context.Background(), 2, true)
	metrics.RecordError(context.Background(), "JOIN_RESOLUTION_FAILED")
	metrics.RecordLookup(context.Background(), "customer_name")
}
