package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheus_LazyRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := NewPrometheus(reg, "test")

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.Empty(t, families, "Nothing is registered before first use")

	p.SetSingleDays(4)

	families, err = reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
	assert.Equal(t, 4.0, testutil.ToFloat64(p.singleDays))
}

func TestPrometheus_RecordGeneration(t *testing.T) {
	p := NewPrometheus(prometheus.NewRegistry(), "")

	p.RecordGeneration(ResultSuccess, 3, 0.02)
	p.RecordGeneration(ResultSuccess, 1, 0.01)
	p.RecordGeneration(ResultInfeasible, 10000, 2.5)
	p.RecordGeneration(ResultInvalid, 0, 0)

	assert.Equal(t, 2.0, testutil.ToFloat64(p.runs.WithLabelValues(ResultSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.runs.WithLabelValues(ResultInfeasible)))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.runs.WithLabelValues(ResultInvalid)))

	// Invalid requests never searched
	var m dto.Metric
	require.NoError(t, p.attempts.Write(&m))
	assert.Equal(t, uint64(3), m.GetHistogram().GetSampleCount())
	assert.Equal(t, 10004.0, m.GetHistogram().GetSampleSum())

	assert.Equal(t, "oncall", p.namespace)
}

func TestPrometheus_RecordWarning(t *testing.T) {
	p := NewPrometheus(prometheus.NewRegistry(), "test")

	p.RecordWarning("quota-relaxed")
	p.RecordWarning("quota-relaxed")
	p.RecordWarning("adjacency-relaxed")

	assert.Equal(t, 2.0, testutil.ToFloat64(p.warnings.WithLabelValues("quota-relaxed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.warnings.WithLabelValues("adjacency-relaxed")))
}

func TestNop(t *testing.T) {
	var r Recorder = Nop{}
	assert.NotPanics(t, func() {
		r.RecordGeneration(ResultError, 0, 0)
		r.RecordWarning("x")
		r.SetSingleDays(1)
	})
}
