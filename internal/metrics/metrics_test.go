package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(ReconcileRuns.WithLabelValues("naive"))
	ReconcileRuns.WithLabelValues("naive").Inc()
	if got := testutil.ToFloat64(ReconcileRuns.WithLabelValues("naive")); got != before+1 {
		t.Errorf("Expected %v, got %v", before+1, got)
	}

	SessionsByStatus.WithLabelValues("active").Set(3)
	if got := testutil.ToFloat64(SessionsByStatus.WithLabelValues("active")); got != 3 {
		t.Errorf("Expected 3, got %v", got)
	}
}
