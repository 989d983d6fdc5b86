package ebitmap

import (
	"runtime"
	"testing"
	"time"

	"github.com/hupe1980/ebitmap/internal/builder"
	"github.com/hupe1980/ebitmap/testutil"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBasicMetricsCollector(t *testing.T) {
	mc := &BasicMetricsCollector{}

	mc.RecordOperation("add", 10*time.Microsecond, nil)
	mc.RecordOperation("add", 30*time.Microsecond, nil)
	mc.RecordOperation("union", 20*time.Microsecond, ErrBadArgument)
	mc.RecordSuspend("add_all")
	mc.RecordLiveHandles(7)

	st := mc.GetStats()
	assert.Equal(t, int64(3), st.OperationCount)
	assert.Equal(t, int64(1), st.OperationErrors)
	assert.Equal(t, int64(20_000), st.OperationAvgNanos)
	assert.Equal(t, int64(1), st.SuspendCount)
	assert.Equal(t, int64(7), st.LiveHandles)
	assert.Equal(t, map[string]int64{"add": 2, "union": 1}, st.ByOp)
}

func TestBasicMetricsCollector_Empty(t *testing.T) {
	st := (&BasicMetricsCollector{}).GetStats()
	assert.Zero(t, st.OperationAvgNanos)
	assert.Empty(t, st.ByOp)
}

func TestRuntime_RecordsMetrics(t *testing.T) {
	ctx := t.Context()
	mc := &BasicMetricsCollector{}
	rt := New(WithMetricsCollector(mc))

	b, err := rt.Create(ctx)
	require.NoError(t, err)
	_, err = rt.Add(ctx, b, 1)
	require.NoError(t, err)
	_, err = rt.Call(ctx, "nope")
	require.Error(t, err)

	st := mc.GetStats()
	assert.Equal(t, int64(3), st.OperationCount)
	assert.Equal(t, int64(1), st.OperationErrors)
	assert.Equal(t, int64(1), st.LiveHandles)
	assert.Equal(t, int64(1), st.ByOp["create"])
	assert.Equal(t, int64(1), st.ByOp["nope"])
}

func TestRuntime_RecordsLatencyOnConfiguredClock(t *testing.T) {
	mc := &BasicMetricsCollector{}
	rt := New(WithMetricsCollector(mc), WithClock(testutil.NewFakeClock(time.Second)))

	// Submission samples the clock once in the runtime and once in the
	// scheduler, each advancing it by a step.
	b, err := rt.Create(t.Context())
	require.NoError(t, err)
	runtime.KeepAlive(b)

	assert.Equal(t, (2 * time.Second).Nanoseconds(), mc.GetStats().OperationAvgNanos)
}

func gather(t *testing.T, reg *prometheus.Registry) map[string]*dto.MetricFamily {
	t.Helper()
	mfs, err := reg.Gather()
	require.NoError(t, err)
	out := make(map[string]*dto.MetricFamily, len(mfs))
	for _, mf := range mfs {
		out[mf.GetName()] = mf
	}
	return out
}

func TestPrometheusCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	pc := NewPrometheusCollector(reg)
	rt := New(
		WithMetricsCollector(pc),
		WithClock(testutil.NewFakeClock(builder.DefaultMaxSlice)),
	)

	b, err := rt.CreateOf(t.Context(), testutil.Sequential(0, 10_000))
	require.NoError(t, err)
	_, err = rt.Call(t.Context(), "cardinality", 1)
	require.Error(t, err)
	runtime.KeepAlive(b)

	mfs := gather(t, reg)

	susp := mfs["ebitmap_suspensions_total"]
	require.NotNil(t, susp)
	require.Len(t, susp.GetMetric(), 1)
	assert.Equal(t, 9.0, susp.GetMetric()[0].GetCounter().GetValue())

	live := mfs["ebitmap_live_handles"]
	require.NotNil(t, live)
	assert.Equal(t, 1.0, live.GetMetric()[0].GetGauge().GetValue())

	lat := mfs["ebitmap_operation_latency_seconds"]
	require.NotNil(t, lat)
	counts := map[string]uint64{}
	for _, m := range lat.GetMetric() {
		labels := map[string]string{}
		for _, lp := range m.GetLabel() {
			labels[lp.GetName()] = lp.GetValue()
		}
		counts[labels["op"]+"/"+labels["status"]] = m.GetHistogram().GetSampleCount()
	}
	assert.Equal(t, map[string]uint64{"create_of/success": 1, "cardinality/error": 1}, counts)
}

func TestPrometheusCollector_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewPrometheusCollector(reg)
	assert.Panics(t, func() { NewPrometheusCollector(reg) })
}
