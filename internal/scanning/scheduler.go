package scanning

import (
	"context"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/r1b/port-scanner/internal/logging"
	"github.com/r1b/port-scanner/internal/metrics"
	"github.com/r1b/port-scanner/internal/spec"
	"github.com/r1b/port-scanner/internal/workers"
)

const schedulerShutdownTimeout = 5 * time.Second

// Pacer is invoked between probe dispatches. It is the insertion point for
// future flow-control policies (inter-probe delay, token bucket); returning
// an error aborts dispatch.
type Pacer func(ctx context.Context) error

// Scheduler builds the (host, port) work set, shuffles its execution order,
// and dispatches connect probes through a bounded worker pool. The shuffle
// spreads probe timing across hosts and ports; it never affects reported
// order, which the aggregator restores from the request sequences.
type Scheduler struct {
	prober      Prober
	concurrency int
	rateLimit   int
	pacer       Pacer
	logger      *logging.Logger

	// shuffle is swappable so tests can pin execution order.
	shuffle func(n int, swap func(i, j int))
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithPacer installs a pacing hook invoked before each dispatch.
func WithPacer(pacer Pacer) SchedulerOption {
	return func(s *Scheduler) { s.pacer = pacer }
}

// WithRateLimit caps dispatched probes per second (0 = unlimited).
func WithRateLimit(perSecond int) SchedulerOption {
	return func(s *Scheduler) { s.rateLimit = perSecond }
}

// WithShuffle replaces the execution-order shuffle.
func WithShuffle(shuffle func(n int, swap func(i, j int))) SchedulerOption {
	return func(s *Scheduler) { s.shuffle = shuffle }
}

// NewScheduler creates a scheduler dispatching through the given prober with
// the given in-flight concurrency ceiling.
func NewScheduler(prober Prober, concurrency int, opts ...SchedulerOption) *Scheduler {
	if concurrency <= 0 {
		concurrency = DefaultOptions().Concurrency
	}
	s := &Scheduler{
		prober:      prober,
		concurrency: concurrency,
		logger:      logging.Default().WithComponent("scheduler"),
		shuffle:     rand.Shuffle,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type workItem struct {
	host string
	port uint16
}

// Execute probes the full cross product of hosts and ports, recording every
// outcome into the aggregator. The work set is shuffled before dispatch; the
// concurrency ceiling bounds in-flight probes, not the work-set size. On
// cancellation, in-flight probes are abandoned without blocking return.
func (s *Scheduler) Execute(ctx context.Context, hosts []spec.Host, ports []uint16, agg *Aggregator) error {
	if len(hosts) == 0 || len(ports) == 0 {
		return nil
	}

	// The key set is the only O(total work) allocation; live sockets stay
	// bounded by the worker pool.
	items := make([]workItem, 0, len(hosts)*len(ports))
	for _, host := range hosts {
		for _, port := range ports {
			items = append(items, workItem{host: host.Addr, port: port})
		}
	}
	s.shuffle(len(items), func(i, j int) {
		items[i], items[j] = items[j], items[i]
	})

	s.logger.Info("Dispatching probe work set",
		"pairs", len(items),
		"hosts", len(hosts),
		"ports", len(ports),
		"concurrency", s.concurrency)

	pool := workers.New(workers.Config{
		Size:            s.concurrency,
		QueueSize:       len(items),
		MaxRetries:      0,
		ShutdownTimeout: schedulerShutdownTimeout,
		RateLimit:       s.rateLimit,
	})
	pool.Start()
	defer func() { _ = pool.Shutdown() }()

	var wg sync.WaitGroup
	var inFlight int32

	executor := func(_ context.Context, host string, port uint16) error {
		defer wg.Done()

		metrics.SetProbesInFlight(int(atomic.AddInt32(&inFlight, 1)))
		defer func() { metrics.SetProbesInFlight(int(atomic.AddInt32(&inFlight, -1))) }()

		// Probe against the scan context, not the pool context, so
		// cancelling the scan abandons in-flight connects promptly.
		result := s.prober.Probe(ctx, host, port)
		agg.Record(result)

		metrics.RecordProbe(string(result.State), result.RTT)
		s.logger.DebugProbe("Connect probe complete", host, port,
			"state", result.State, "rtt", result.RTT)
		return nil
	}

	for _, item := range items {
		if s.pacer != nil {
			if err := s.pacer(ctx); err != nil {
				return err
			}
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		wg.Add(1)
		if err := pool.Submit(workers.NewProbeJob(item.host, item.port, executor)); err != nil {
			wg.Done()
			return err
		}
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
