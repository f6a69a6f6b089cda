package scanning

import (
	"context"
	"time"

	"github.com/r1b/port-scanner/internal/discovery"
	"github.com/r1b/port-scanner/internal/errors"
	"github.com/r1b/port-scanner/internal/logging"
	"github.com/r1b/port-scanner/internal/metrics"
	"github.com/r1b/port-scanner/internal/services"
	"github.com/r1b/port-scanner/internal/spec"
)

// Engine is the top-level scan pipeline: spec expansion, host discovery,
// shuffled probe scheduling, and order-restoring aggregation.
type Engine struct {
	opts     Options
	resolver spec.Resolver
	pinger   discovery.Pinger
	prober   Prober
	table    *services.Table
	pacer    Pacer
	logger   *logging.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithResolver sets the hostname resolver used during spec expansion.
func WithResolver(resolver spec.Resolver) EngineOption {
	return func(e *Engine) { e.resolver = resolver }
}

// WithPinger sets the liveness prober used during host discovery.
func WithPinger(pinger discovery.Pinger) EngineOption {
	return func(e *Engine) { e.pinger = pinger }
}

// WithProber sets the connect prober.
func WithProber(prober Prober) EngineOption {
	return func(e *Engine) { e.prober = prober }
}

// WithServiceTable sets the service-name table attached to rendered results.
func WithServiceTable(table *services.Table) EngineOption {
	return func(e *Engine) { e.table = table }
}

// WithEnginePacer installs a pacing hook on the probe scheduler.
func WithEnginePacer(pacer Pacer) EngineOption {
	return func(e *Engine) { e.pacer = pacer }
}

// NewEngine creates a scan engine. Zero-valued options are filled with
// defaults; nil collaborators get their production implementations.
func NewEngine(opts Options, engineOpts ...EngineOption) *Engine {
	e := &Engine{
		opts:   opts.normalize(),
		logger: logging.Default().WithComponent("scan"),
	}
	for _, opt := range engineOpts {
		opt(e)
	}

	if e.resolver == nil {
		e.resolver = spec.SystemResolver()
	}
	if e.pinger == nil {
		e.pinger = discovery.NewICMPPinger(e.opts.DiscoveryTimeout, false)
	}
	if e.prober == nil {
		e.prober = NewConnectProber(e.opts.Timeout)
	}
	if e.table == nil {
		e.table = services.System()
	}

	return e
}

// Run executes a full scan: expand the specs, prune unreachable hosts
// (unless discovery is skipped), probe every surviving (host, port) pair,
// and reassemble the outcomes in the original request order. Spec errors
// abort before any probing begins.
func (e *Engine) Run(ctx context.Context, hostSpecs, portSpecs []string) (*ScanReport, error) {
	report := NewScanReport()
	logger := e.logger.WithScanID(report.ID.String())

	hosts, err := spec.ExpandHosts(ctx, hostSpecs, e.resolver)
	if err != nil {
		metrics.IncrementScanTotal("connect", "invalid_spec")
		metrics.IncrementScanErrors("connect", "", string(errors.GetCode(err)))
		return nil, err
	}
	ports, err := spec.ExpandPorts(portSpecs)
	if err != nil {
		metrics.IncrementScanTotal("connect", "invalid_spec")
		metrics.IncrementScanErrors("connect", "", string(errors.GetCode(err)))
		return nil, err
	}

	logger.Info("Scan starting",
		"hosts", len(hosts),
		"ports", len(ports),
		"skip_discovery", e.opts.SkipDiscovery)

	live, err := e.partitionHosts(ctx, hosts, logger)
	if err != nil {
		return nil, err
	}

	agg := NewAggregator()
	scheduler := NewScheduler(e.prober, e.opts.Concurrency,
		WithRateLimit(e.opts.RateLimit),
		WithPacer(e.pacer))

	liveHosts := make([]spec.Host, 0, len(hosts))
	for _, host := range hosts {
		if live[host.Addr] {
			liveHosts = append(liveHosts, host)
		}
	}
	metrics.IncrementHostsScanned("up", len(liveHosts))
	metrics.IncrementHostsScanned("down", len(hosts)-len(liveHosts))

	if err := scheduler.Execute(ctx, liveHosts, ports, agg); err != nil {
		metrics.IncrementScanTotal("connect", "aborted")
		metrics.IncrementScanErrors("connect", "", string(errors.GetCode(err)))
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		metrics.IncrementScanTotal("connect", "aborted")
		return nil, err
	}

	hostReports, err := agg.Finalize(hosts, live, ports, e.table, e.opts.Protocol)
	if err != nil {
		metrics.IncrementScanTotal("connect", "incomplete")
		metrics.IncrementScanErrors("connect", "", string(errors.GetCode(err)))
		return nil, err
	}

	report.Hosts = hostReports
	report.Complete()

	metrics.IncrementScanTotal("connect", "success")
	metrics.RecordScanDuration("connect", report.ID.String(), report.Duration)
	logger.Info("Scan complete",
		"duration", report.Duration,
		"hosts_up", report.Stats.HostsUp,
		"hosts_down", report.Stats.HostsDown,
		"open", report.Stats.Open)

	return report, nil
}

// partitionHosts runs host discovery and returns the liveness set. With
// discovery skipped, every host is treated as reachable and probing proceeds
// directly.
func (e *Engine) partitionHosts(
	ctx context.Context,
	hosts []spec.Host,
	logger *logging.Logger,
) (map[string]bool, error) {
	live := make(map[string]bool, len(hosts))

	if e.opts.SkipDiscovery {
		for _, host := range hosts {
			live[host.Addr] = true
		}
		return live, nil
	}

	engine := discovery.NewEngine(e.pinger, e.opts.DiscoveryConcurrency)
	start := time.Now()
	result, err := engine.Discover(ctx, hosts)
	if err != nil {
		return nil, err
	}

	for _, host := range result.Up {
		live[host.Addr] = true
	}
	logger.Info("Host discovery complete",
		"up", len(result.Up),
		"down", len(result.Down),
		"duration", time.Since(start))

	return live, nil
}

// Run executes a scan with default collaborators. It is the package-level
// convenience entry point for the CLI.
func Run(ctx context.Context, hostSpecs, portSpecs []string, opts Options) (*ScanReport, error) {
	return NewEngine(opts).Run(ctx, hostSpecs, portSpecs)
}
