package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)

	c.Event("nua_i_message")
	c.Event("nua_i_message")
	c.Event("nua_r_message")
	assert.Equal(t, 2.0, testutil.ToFloat64(c.events.WithLabelValues("nua_i_message")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.events.WithLabelValues("nua_r_message")))

	c.AgentCreated()
	c.AgentCreated()
	c.AgentDestroyed()
	assert.Equal(t, 2.0, testutil.ToFloat64(c.agentsCreated))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.agentsActive))

	c.HandleCreated()
	c.HandleDestroyed()
	assert.Equal(t, 0.0, testutil.ToFloat64(c.handlesActive))

	c.TrampolineFailure("panic")
	assert.Equal(t, 1.0, testutil.ToFloat64(c.trampolineFailures.WithLabelValues("panic")))
}

func TestCollectorRegistersAll(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)
	c.Event("nua_r_shutdown")
	c.TrampolineFailure("unknown_event")

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["sofia_events_total"])
	assert.True(t, names["sofia_nua_agents_active"])
	assert.True(t, names["sofia_su_steps_total"])
	assert.True(t, names["sofia_nua_trampoline_failures_total"])
}

func TestNilCollectorIsNoop(t *testing.T) {
	var c *Collector
	assert.NotPanics(t, func() {
		c.Event("x")
		c.AgentCreated()
		c.AgentCreateFailed()
		c.AgentDestroyed()
		c.HandleCreated()
		c.HandleCreateFailed()
		c.HandleDestroyed()
		c.RootCreateFailed()
		c.ReactorStep()
		c.TrampolineFailure("x")
	})
}

func TestDefaultIsSingleton(t *testing.T) {
	assert.Same(t, Default(), Default())
}
