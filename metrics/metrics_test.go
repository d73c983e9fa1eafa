package metrics

import (
	"expvar"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecordRouteBuildDoesNotPanic(t *testing.T) {
	assert.NotPanics(t, func() {
		RecordRouteBuild(12.5)
	})
}

func TestRecordSpfDoesNotPanic(t *testing.T) {
	assert.NotPanics(t, func() {
		RecordSpf(3.0)
	})
}

func TestRecordGlobalCountersUpdatesEveryGauge(t *testing.T) {
	assert.NotPanics(t, func() {
		RecordGlobalCounters(3, 7, 1, 2, 2, 1)
	})
}

func TestCountersArePublishedOnExpvar(t *testing.T) {
	for _, name := range []string{
		"decision:adj_db_update",
		"decision:route_build_runs",
		"decision:spf_runs",
		"decision:errors",
		"decision:num_nodes",
	} {
		assert.NotNil(t, expvar.Get(name), "expected %s to be published", name)
	}
}
