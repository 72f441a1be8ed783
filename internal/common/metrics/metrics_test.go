package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestOutcome(t *testing.T) {
	assert.Equal(t, "success", Outcome(nil))
	assert.Equal(t, "error", Outcome(errors.New("x")))
}

func TestScoringRunsCounter(t *testing.T) {
	before := testutil.ToFloat64(ScoringRuns.WithLabelValues("ussd", "success"))
	ScoringRuns.WithLabelValues("ussd", "success").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(ScoringRuns.WithLabelValues("ussd", "success")))
}
