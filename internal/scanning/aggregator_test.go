package scanning

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/r1b/port-scanner/internal/errors"
	"github.com/r1b/port-scanner/internal/services"
	"github.com/r1b/port-scanner/internal/spec"
)

func recordAll(agg *Aggregator, hosts []string, ports []uint16, state ProbeState) {
	for _, host := range hosts {
		for _, port := range ports {
			agg.Record(ProbeResult{Host: host, Port: port, State: state})
		}
	}
}

func TestAggregatorRecordAndCount(t *testing.T) {
	agg := NewAggregator()
	assert.Equal(t, 0, agg.Count())

	agg.Record(ProbeResult{Host: "10.0.0.1", Port: 80, State: StateOpen})
	agg.Record(ProbeResult{Host: "10.0.0.1", Port: 443, State: StateClosed})
	agg.Record(ProbeResult{Host: "10.0.0.2", Port: 80, State: StateFiltered})
	assert.Equal(t, 3, agg.Count())

	// Same pair overwrites, not duplicates.
	agg.Record(ProbeResult{Host: "10.0.0.1", Port: 80, State: StateClosed})
	assert.Equal(t, 3, agg.Count())
}

func TestFinalizeRestoresRequestOrder(t *testing.T) {
	hosts := []spec.Host{
		{Addr: "10.0.0.3"},
		{Addr: "10.0.0.1", Name: "one.example.com"},
		{Addr: "10.0.0.2"},
	}
	ports := []uint16{443, 22, 80}
	live := map[string]bool{"10.0.0.3": true, "10.0.0.1": true, "10.0.0.2": true}

	// Record in an order unrelated to the request order.
	agg := NewAggregator()
	agg.Record(ProbeResult{Host: "10.0.0.2", Port: 80, State: StateOpen})
	agg.Record(ProbeResult{Host: "10.0.0.1", Port: 22, State: StateClosed})
	agg.Record(ProbeResult{Host: "10.0.0.3", Port: 443, State: StateOpen, RTT: 3 * time.Millisecond})
	agg.Record(ProbeResult{Host: "10.0.0.1", Port: 443, State: StateFiltered, Detail: "timeout"})
	agg.Record(ProbeResult{Host: "10.0.0.2", Port: 22, State: StateOpen})
	agg.Record(ProbeResult{Host: "10.0.0.3", Port: 22, State: StateOpen})
	agg.Record(ProbeResult{Host: "10.0.0.3", Port: 80, State: StateClosed})
	agg.Record(ProbeResult{Host: "10.0.0.1", Port: 80, State: StateOpen})
	agg.Record(ProbeResult{Host: "10.0.0.2", Port: 443, State: StateFiltered})

	reports, err := agg.Finalize(hosts, live, ports, nil, "tcp")
	require.NoError(t, err)
	require.Len(t, reports, 3)

	assert.Equal(t, "10.0.0.3", reports[0].Address)
	assert.Equal(t, "10.0.0.1", reports[1].Address)
	assert.Equal(t, "one.example.com", reports[1].Hostname)
	assert.Equal(t, "10.0.0.2", reports[2].Address)

	for _, report := range reports {
		require.Len(t, report.Ports, 3)
		assert.Equal(t, uint16(443), report.Ports[0].Port)
		assert.Equal(t, uint16(22), report.Ports[1].Port)
		assert.Equal(t, uint16(80), report.Ports[2].Port)
	}

	assert.Equal(t, StateFiltered, reports[1].Ports[0].State)
	assert.Equal(t, "timeout", reports[1].Ports[0].Detail)
	assert.Equal(t, 3*time.Millisecond, reports[0].Ports[0].RTT)
}

func TestFinalizeCompletionOrderIrrelevant(t *testing.T) {
	hosts := []spec.Host{{Addr: "10.0.0.1"}, {Addr: "10.0.0.2"}}
	ports := []uint16{80, 443}
	live := map[string]bool{"10.0.0.1": true, "10.0.0.2": true}

	forward := NewAggregator()
	forward.Record(ProbeResult{Host: "10.0.0.1", Port: 80, State: StateOpen})
	forward.Record(ProbeResult{Host: "10.0.0.1", Port: 443, State: StateClosed})
	forward.Record(ProbeResult{Host: "10.0.0.2", Port: 80, State: StateFiltered})
	forward.Record(ProbeResult{Host: "10.0.0.2", Port: 443, State: StateOpen})

	reversed := NewAggregator()
	reversed.Record(ProbeResult{Host: "10.0.0.2", Port: 443, State: StateOpen})
	reversed.Record(ProbeResult{Host: "10.0.0.2", Port: 80, State: StateFiltered})
	reversed.Record(ProbeResult{Host: "10.0.0.1", Port: 443, State: StateClosed})
	reversed.Record(ProbeResult{Host: "10.0.0.1", Port: 80, State: StateOpen})

	a, err := forward.Finalize(hosts, live, ports, nil, "tcp")
	require.NoError(t, err)
	b, err := reversed.Finalize(hosts, live, ports, nil, "tcp")
	require.NoError(t, err)

	assert.Equal(t, a, b, "reports must not depend on completion order")
}

func TestFinalizeDownHostHasNoPorts(t *testing.T) {
	hosts := []spec.Host{{Addr: "10.0.0.1"}, {Addr: "10.0.0.2"}}
	ports := []uint16{80}
	live := map[string]bool{"10.0.0.1": true}

	agg := NewAggregator()
	agg.Record(ProbeResult{Host: "10.0.0.1", Port: 80, State: StateOpen})

	reports, err := agg.Finalize(hosts, live, ports, nil, "tcp")
	require.NoError(t, err)
	require.Len(t, reports, 2)

	assert.True(t, reports[0].Up)
	assert.Len(t, reports[0].Ports, 1)

	assert.False(t, reports[1].Up)
	assert.Empty(t, reports[1].Ports, "down host must contribute no port results")
}

func TestFinalizeMissingPairFails(t *testing.T) {
	hosts := []spec.Host{{Addr: "10.0.0.1"}}
	ports := []uint16{80, 443}
	live := map[string]bool{"10.0.0.1": true}

	agg := NewAggregator()
	agg.Record(ProbeResult{Host: "10.0.0.1", Port: 80, State: StateOpen})

	_, err := agg.Finalize(hosts, live, ports, nil, "tcp")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeIncompleteReport))
}

func TestFinalizeServiceNames(t *testing.T) {
	hosts := []spec.Host{{Addr: "10.0.0.1"}}
	ports := []uint16{22, 54321}
	live := map[string]bool{"10.0.0.1": true}

	agg := NewAggregator()
	recordAll(agg, []string{"10.0.0.1"}, ports, StateOpen)

	table := services.Parse("")
	reports, err := agg.Finalize(hosts, live, ports, table, "tcp")
	require.NoError(t, err)

	assert.Equal(t, "ssh", reports[0].Ports[0].Service)
	assert.Empty(t, reports[0].Ports[1].Service, "unknown pair renders without a name")
}

func TestScanReportComplete(t *testing.T) {
	report := NewScanReport()
	require.NotEqual(t, "00000000-0000-0000-0000-000000000000", report.ID.String())

	report.Hosts = []HostReport{
		{
			Address: "10.0.0.1",
			Up:      true,
			Ports: []PortReport{
				{Port: 22, State: StateOpen},
				{Port: 80, State: StateClosed},
				{Port: 443, State: StateFiltered},
			},
		},
		{Address: "10.0.0.2", Up: false},
	}
	report.Complete()

	assert.Equal(t, 1, report.Stats.HostsUp)
	assert.Equal(t, 1, report.Stats.HostsDown)
	assert.Equal(t, 2, report.Stats.HostsTotal)
	assert.Equal(t, 1, report.Stats.Open)
	assert.Equal(t, 1, report.Stats.Closed)
	assert.Equal(t, 1, report.Stats.Filtered)
	assert.Equal(t, 3, report.Stats.Probes)
	assert.False(t, report.EndTime.IsZero())
	assert.GreaterOrEqual(t, report.Duration, time.Duration(0))
}

func TestHostReportOpenPorts(t *testing.T) {
	report := HostReport{
		Ports: []PortReport{
			{Port: 80, State: StateOpen},
			{Port: 81, State: StateClosed},
			{Port: 443, State: StateOpen},
		},
	}

	open := report.OpenPorts()
	require.Len(t, open, 2)
	assert.Equal(t, uint16(80), open[0].Port)
	assert.Equal(t, uint16(443), open[1].Port)
}
