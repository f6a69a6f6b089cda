package scanning

import (
	"time"

	"github.com/google/uuid"

	"github.com/r1b/port-scanner/internal/config"
)

// ProbeState classifies the outcome of one connect attempt.
type ProbeState string

const (
	// StateOpen means the connection established successfully.
	StateOpen ProbeState = "open"
	// StateClosed means the peer actively refused the connection.
	StateClosed ProbeState = "closed"
	// StateFiltered means no definitive signal was received: a timeout, an
	// unreachable error, or any other failure without a refusal.
	StateFiltered ProbeState = "filtered"
)

// ProbeResult is the outcome of one connect attempt against a (host, port)
// pair. It is immutable once produced.
type ProbeResult struct {
	// Host is the concrete address that was probed.
	Host string
	// Port is the probed port number.
	Port uint16
	// State is the probe classification.
	State ProbeState
	// Detail carries error detail for non-open outcomes, if any.
	Detail string
	// RTT is the round-trip time of the connect attempt.
	RTT time.Duration
}

// Options holds the scan tunables supplied by the caller.
type Options struct {
	// SkipDiscovery bypasses the liveness check and probes every expanded
	// host.
	SkipDiscovery bool
	// Concurrency bounds simultaneous in-flight connect probes system-wide.
	Concurrency int
	// Timeout is the per-probe connect timeout.
	Timeout time.Duration
	// Protocol is used for service-name lookups.
	Protocol string
	// RateLimit caps probe dispatches per second (0 = unlimited).
	RateLimit int
	// DiscoveryConcurrency bounds simultaneous liveness probes,
	// independently of Concurrency.
	DiscoveryConcurrency int
	// DiscoveryTimeout is the per-host liveness probe timeout.
	DiscoveryTimeout time.Duration
}

// DefaultOptions returns scan options with the built-in defaults.
func DefaultOptions() Options {
	return Options{
		SkipDiscovery:        false,
		Concurrency:          config.DefaultProbeConcurrency,
		Timeout:              config.DefaultProbeTimeout,
		Protocol:             "tcp",
		RateLimit:            0,
		DiscoveryConcurrency: config.DefaultDiscoveryConcurrency,
		DiscoveryTimeout:     config.DefaultDiscoveryTimeout,
	}
}

// OptionsFromConfig builds scan options from loaded configuration.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		SkipDiscovery:        cfg.Scan.SkipDiscovery,
		Concurrency:          cfg.Scan.Concurrency,
		Timeout:              cfg.Scan.Timeout,
		Protocol:             cfg.Scan.Protocol,
		RateLimit:            cfg.Scan.RateLimit,
		DiscoveryConcurrency: cfg.Discovery.Concurrency,
		DiscoveryTimeout:     cfg.Discovery.Timeout,
	}
}

// normalize fills zero-valued fields with defaults.
func (o Options) normalize() Options {
	def := DefaultOptions()
	if o.Concurrency <= 0 {
		o.Concurrency = def.Concurrency
	}
	if o.Timeout <= 0 {
		o.Timeout = def.Timeout
	}
	if o.Protocol == "" {
		o.Protocol = def.Protocol
	}
	if o.DiscoveryConcurrency <= 0 {
		o.DiscoveryConcurrency = def.DiscoveryConcurrency
	}
	if o.DiscoveryTimeout <= 0 {
		o.DiscoveryTimeout = def.DiscoveryTimeout
	}
	return o
}

// PortReport is one rendered (host, port) entry of the final report.
type PortReport struct {
	// Port is the port number.
	Port uint16
	// Protocol is the transport protocol used for the service lookup.
	Protocol string
	// State is the probe classification.
	State ProbeState
	// Service is the well-known service name, empty if unknown.
	Service string
	// Detail carries error detail for non-open outcomes, if any.
	Detail string
	// RTT is the round-trip time of the connect attempt.
	RTT time.Duration
}

// HostReport holds the rendered results for one host, with ports in the
// original request order.
type HostReport struct {
	// Address is the concrete probed address.
	Address string
	// Hostname is the resolved or user-supplied hostname, if any.
	Hostname string
	// Up reports host liveness. A down host carries no port results.
	Up bool
	// Ports holds the per-port results in original request order.
	Ports []PortReport
}

// OpenPorts returns the subset of port results classified open, preserving
// order.
func (h *HostReport) OpenPorts() []PortReport {
	var open []PortReport
	for _, p := range h.Ports {
		if p.State == StateOpen {
			open = append(open, p)
		}
	}
	return open
}

// ScanStats summarizes a completed scan.
type ScanStats struct {
	// HostsUp and HostsDown count liveness outcomes; HostsTotal is their sum.
	HostsUp    int
	HostsDown  int
	HostsTotal int
	// Open, Closed and Filtered count probe classifications.
	Open     int
	Closed   int
	Filtered int
	// Probes is the total number of recorded probe results.
	Probes int
}

// ScanReport is the finalized, ordered collection of results for one scan
// run. Hosts appear in original request order; ports within each host appear
// in original request order.
type ScanReport struct {
	// ID uniquely identifies the scan run.
	ID uuid.UUID
	// Hosts holds one entry per expanded host, in request order.
	Hosts []HostReport
	// Stats summarizes the run.
	Stats ScanStats
	// StartTime and EndTime bound the run; Duration is their difference.
	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration
}

// NewScanReport creates a report with a fresh ID and the current start time.
func NewScanReport() *ScanReport {
	return &ScanReport{
		ID:        uuid.New(),
		StartTime: time.Now(),
	}
}

// Complete marks the report finished and computes duration and stats.
func (r *ScanReport) Complete() {
	r.EndTime = time.Now()
	r.Duration = r.EndTime.Sub(r.StartTime)

	stats := ScanStats{}
	for i := range r.Hosts {
		host := &r.Hosts[i]
		if host.Up {
			stats.HostsUp++
		} else {
			stats.HostsDown++
		}
		for _, p := range host.Ports {
			stats.Probes++
			switch p.State {
			case StateOpen:
				stats.Open++
			case StateClosed:
				stats.Closed++
			case StateFiltered:
				stats.Filtered++
			}
		}
	}
	stats.HostsTotal = stats.HostsUp + stats.HostsDown
	r.Stats = stats
}
