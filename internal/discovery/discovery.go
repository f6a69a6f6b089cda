// Package discovery determines host liveness before port probing. Each
// expanded host gets one ICMP echo probe with a bounded timeout; hosts are
// partitioned into up and down sequences that preserve the original request
// order. A probe failure for one host never blocks or fails discovery for
// the others.
package discovery

import (
	"context"
	"sync"
	"time"

	probing "github.com/prometheus-community/pro-bing"

	"github.com/r1b/port-scanner/internal/errors"
	"github.com/r1b/port-scanner/internal/logging"
	"github.com/r1b/port-scanner/internal/metrics"
	"github.com/r1b/port-scanner/internal/spec"
	"github.com/r1b/port-scanner/internal/workers"
)

const (
	// Method is the discovery method label used in logs and metrics.
	Method = "icmp"

	defaultConcurrency = 16
	defaultTimeout     = 2 * time.Second
	shutdownTimeout    = 5 * time.Second
)

// Pinger sends a single liveness probe to one host.
type Pinger interface {
	// Ping reports whether the host answered within the pinger's timeout.
	// The returned error describes probe setup or transport failures; an
	// unanswered probe is (false, 0, nil).
	Ping(ctx context.Context, addr string) (alive bool, rtt time.Duration, err error)
}

// ICMPPinger probes liveness with a single ICMP echo request. In
// unprivileged mode it uses UDP datagram sockets, which work without root on
// most systems.
type ICMPPinger struct {
	timeout    time.Duration
	privileged bool
}

// NewICMPPinger creates an ICMP echo pinger with the given per-host timeout.
func NewICMPPinger(timeout time.Duration, privileged bool) *ICMPPinger {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &ICMPPinger{timeout: timeout, privileged: privileged}
}

// Ping implements the Pinger interface.
func (p *ICMPPinger) Ping(ctx context.Context, addr string) (bool, time.Duration, error) {
	pinger, err := probing.NewPinger(addr)
	if err != nil {
		return false, 0, errors.WrapDiscoveryError(errors.CodeDiscoveryFailed,
			"Failed to create liveness probe", addr, err)
	}

	pinger.Count = 1
	pinger.Timeout = p.timeout
	pinger.SetPrivileged(p.privileged)

	if err := pinger.RunWithContext(ctx); err != nil {
		// Transport-level failure (socket error, destination unreachable);
		// the host is treated as down, not as a scan failure.
		return false, 0, errors.WrapDiscoveryError(errors.CodeHostUnreachable,
			"Liveness probe failed", addr, err)
	}

	stats := pinger.Statistics()
	if stats.PacketsRecv == 0 {
		return false, 0, nil
	}
	return true, stats.AvgRtt, nil
}

// HostStatus is the discovery outcome for one host, in request order.
type HostStatus struct {
	Host  spec.Host
	Alive bool
	RTT   time.Duration
	Err   error
}

// Result partitions the probed hosts while preserving their original
// relative order.
type Result struct {
	// Up and Down hold the reachable and unreachable hosts, each in
	// original request order.
	Up   []spec.Host
	Down []spec.Host
	// Statuses holds the per-host outcome for every probed host, in
	// original request order.
	Statuses []HostStatus
	// Duration is the wall-clock time of the discovery phase.
	Duration time.Duration
}

// Engine runs liveness probes with bounded concurrency.
type Engine struct {
	pinger      Pinger
	concurrency int
	logger      *logging.Logger
}

// NewEngine creates a discovery engine. A nil pinger gets an unprivileged
// ICMP pinger with the default timeout.
func NewEngine(pinger Pinger, concurrency int) *Engine {
	if pinger == nil {
		pinger = NewICMPPinger(defaultTimeout, false)
	}
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	return &Engine{
		pinger:      pinger,
		concurrency: concurrency,
		logger:      logging.Default().WithComponent("discovery"),
	}
}

// Discover probes every host and partitions them by liveness. Probes run
// through a bounded worker pool; outcomes are recorded by request position so
// completion order never affects the result.
func (e *Engine) Discover(ctx context.Context, hosts []spec.Host) (*Result, error) {
	start := time.Now()
	statuses := make([]HostStatus, len(hosts))

	if len(hosts) == 0 {
		return &Result{Duration: time.Since(start)}, nil
	}

	pool := workers.New(workers.Config{
		Size:            e.concurrency,
		QueueSize:       len(hosts),
		MaxRetries:      0,
		ShutdownTimeout: shutdownTimeout,
	})
	pool.Start()
	defer func() { _ = pool.Shutdown() }()

	var wg sync.WaitGroup

	for i, host := range hosts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		wg.Add(1)
		job := workers.NewPingJob(host.Addr, func(_ context.Context, addr string) error {
			defer wg.Done()

			// Ping against the discovery context, not the pool context, so
			// cancelling the scan abandons in-flight probes promptly.
			probeStart := time.Now()
			alive, rtt, err := e.pinger.Ping(ctx, addr)
			metrics.RecordDiscoveryDuration(Method, time.Since(probeStart))
			if err != nil {
				metrics.IncrementDiscoveryTotal(Method, "error")
			} else {
				metrics.IncrementDiscoveryTotal(Method, "success")
			}

			statuses[i] = HostStatus{Host: host, Alive: alive, RTT: rtt, Err: err}

			if err != nil {
				e.logger.ErrorDiscovery("Liveness probe error", addr, err)
			} else {
				e.logger.InfoDiscovery("Liveness probe complete", addr,
					"alive", alive, "rtt", rtt)
			}
			return nil
		})
		if err := pool.Submit(job); err != nil {
			wg.Done()
			return nil, err
		}
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	result := &Result{
		Statuses: statuses,
		Duration: time.Since(start),
	}
	for _, st := range statuses {
		if st.Alive {
			result.Up = append(result.Up, st.Host)
			metrics.IncrementHostsDiscovered(Method, "up")
		} else {
			result.Down = append(result.Down, st.Host)
			metrics.IncrementHostsDiscovered(Method, "down")
		}
	}

	return result, nil
}
