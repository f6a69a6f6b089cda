package scanning

import (
	"sync"

	"github.com/r1b/port-scanner/internal/errors"
	"github.com/r1b/port-scanner/internal/services"
	"github.com/r1b/port-scanner/internal/spec"
)

// resultKey identifies one unit of work. Keys are assigned at work-set
// creation time, so reported order never depends on execution order.
type resultKey struct {
	host string
	port uint16
}

// Aggregator collects probe results arriving in arbitrary completion order
// and renders them back in the original request order. Each key is written
// by exactly one worker, so a single coarse lock is sufficient; there is no
// read-modify-write contention by construction.
type Aggregator struct {
	mu      sync.Mutex
	results map[resultKey]ProbeResult
}

// NewAggregator creates an empty aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{
		results: make(map[resultKey]ProbeResult),
	}
}

// Record stores one probe result.
func (a *Aggregator) Record(result ProbeResult) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.results[resultKey{host: result.Host, port: result.Port}] = result
}

// Count returns the number of recorded results.
func (a *Aggregator) Count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.results)
}

// lookup returns the recorded result for one pair.
func (a *Aggregator) lookup(host string, port uint16) (ProbeResult, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	result, ok := a.results[resultKey{host: host, port: port}]
	return result, ok
}

// Finalize renders the collected results into per-host reports. Hosts are
// iterated in original request order and ports in original request order
// within each host. Down hosts contribute a host entry with no port results.
// A live (host, port) pair with no recorded result is a scheduling defect
// and fails loudly with an IncompleteReport error.
func (a *Aggregator) Finalize(
	hosts []spec.Host,
	live map[string]bool,
	ports []uint16,
	table *services.Table,
	protocol string,
) ([]HostReport, error) {
	reports := make([]HostReport, 0, len(hosts))

	for _, host := range hosts {
		report := HostReport{
			Address:  host.Addr,
			Hostname: host.Name,
			Up:       live[host.Addr],
		}

		if report.Up {
			report.Ports = make([]PortReport, 0, len(ports))
			for _, port := range ports {
				result, ok := a.lookup(host.Addr, port)
				if !ok {
					return nil, errors.ErrIncompleteReport(host.Addr, port)
				}

				entry := PortReport{
					Port:     port,
					Protocol: protocol,
					State:    result.State,
					Detail:   result.Detail,
					RTT:      result.RTT,
				}
				if table != nil {
					if name, found := table.Lookup(port, protocol); found {
						entry.Service = name
					}
				}
				report.Ports = append(report.Ports, entry)
			}
		}

		reports = append(reports, report)
	}

	return reports, nil
}
