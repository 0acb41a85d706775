package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func fixedCount(n int) func() int {
	return func() int { return n }
}

func TestObserveClaim(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg, fixedCount(3), fixedCount(7))

	c.ObserveClaim("delivered", false, 120*time.Millisecond)
	c.ObserveClaim("delivery_refused", true, 2*time.Second)
	c.ObserveClaim("delivered", false, 80*time.Millisecond)

	if got := testutil.ToFloat64(c.claims.WithLabelValues("delivered")); got != 2 {
		t.Errorf("delivered = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.compensations); got != 1 {
		t.Errorf("compensations = %v, want 1", got)
	}

	expected := `
# HELP trialbot_pool_keys_available Keys currently in the pool.
# TYPE trialbot_pool_keys_available gauge
trialbot_pool_keys_available 3
# HELP trialbot_ledger_assignments Accounts holding a trial key.
# TYPE trialbot_ledger_assignments gauge
trialbot_ledger_assignments 7
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"trialbot_pool_keys_available", "trialbot_ledger_assignments"); err != nil {
		t.Errorf("gauges: %v", err)
	}
}

func TestObserveCommand(t *testing.T) {
	c := New(prometheus.NewRegistry(), nil, nil)

	c.ObserveCommand("keys")
	c.ObserveCommand("keys")

	if got := testutil.ToFloat64(c.adminCommands.WithLabelValues("keys")); got != 2 {
		t.Errorf("keys = %v, want 2", got)
	}
}
