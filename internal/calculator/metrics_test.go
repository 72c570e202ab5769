package calculator

import (
	"context"
	"net/http"
	"testing"

	"calculator-api/internal/testutil"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// withManualReader installs a meter provider backed by a manual reader for the
// duration of the test.
func withManualReader(t *testing.T) *sdkmetric.ManualReader {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	prev := otel.GetMeterProvider()
	otel.SetMeterProvider(mp)
	t.Cleanup(func() {
		otel.SetMeterProvider(prev)
		_ = mp.Shutdown(context.Background())
	})
	return reader
}

// evaluationCounts returns the histogram sample count per outcome attribute.
func evaluationCounts(t *testing.T, reader *sdkmetric.ManualReader) map[string]uint64 {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	counts := map[string]uint64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "calculator.evaluation.duration" {
				continue
			}
			hist, ok := m.Data.(metricdata.Histogram[float64])
			require.True(t, ok, "unexpected data type %T", m.Data)
			for _, dp := range hist.DataPoints {
				outcome, _ := dp.Attributes.Value(attribute.Key("outcome"))
				counts[outcome.AsString()] += dp.Count
			}
		}
	}
	return counts
}

func TestEvaluationDurationRecordedForEveryOutcome(t *testing.T) {
	reader := withManualReader(t)
	h := newTestHandler(t, &fakeRepo{})

	testutil.CheckResponseCode(t, http.StatusOK, postCalculate(h, `{"expression":"1+1"}`).Code)
	testutil.CheckResponseCode(t, http.StatusBadRequest, postCalculate(h, `{"expression":"1/0"}`).Code)
	testutil.CheckResponseCode(t, http.StatusBadRequest, postCalculate(h, `{"expression":"(1"}`).Code)

	// Requests rejected before evaluation are not timed.
	testutil.CheckResponseCode(t, http.StatusBadRequest, postCalculate(h, `{}`).Code)

	counts := evaluationCounts(t, reader)
	require.Equal(t, uint64(1), counts["ok"])
	require.Equal(t, uint64(2), counts["invalid"])
}
