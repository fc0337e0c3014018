package metrics

import (
	"testing"
	"time"

	"doc_builder_app_go/services/pagination"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg, Config{Environment: "test"})

	m.ObserveMeasurement(pagination.StatePaginated, 3, 200*time.Millisecond)
	m.ObserveMeasurement(pagination.StateFallback, 1, time.Second)
	m.ObserveCacheHit()
	m.ObserveCacheHit()
	m.IncExport("paginated")
	m.IncExport("failed")
	m.IncExport("failed")
	m.AddPurgedExports(4)
	m.AddPurgedExports(0)

	assert.Equal(t, 2, testutil.CollectAndCount(m.measureDuration))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.cacheHits))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.exports.WithLabelValues("paginated")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.exports.WithLabelValues("failed")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.purgedExports))

	families, err := reg.Gather()
	require.NoError(t, err)
	for _, f := range families {
		for _, metric := range f.GetMetric() {
			labels := map[string]string{}
			for _, l := range metric.GetLabel() {
				labels[l.GetName()] = l.GetValue()
			}
			assert.Equal(t, "doc-builder", labels["service"], f.GetName())
			assert.Equal(t, "test", labels["env"], f.GetName())
		}
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveMeasurement(pagination.StatePaginated, 1, time.Millisecond)
		m.ObserveCacheHit()
		m.IncExport("paginated")
		m.AddPurgedExports(2)
	})
}

func TestRegisterControllerGauge(t *testing.T) {
	reg := prometheus.NewRegistry()
	live := 3
	RegisterControllerGauge(reg, Config{}, func() int { return live })

	count, err := testutil.GatherAndCount(reg, "docbuilder_pagination_controllers")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	families, err := reg.Gather()
	require.NoError(t, err)
	require.Len(t, families, 1)
	assert.Equal(t, 3.0, families[0].GetMetric()[0].GetGauge().GetValue())

	live = 5
	families, err = reg.Gather()
	require.NoError(t, err)
	assert.Equal(t, 5.0, families[0].GetMetric()[0].GetGauge().GetValue())
}
