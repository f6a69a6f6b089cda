package scanning

import (
	"context"
	"errors"
	"net"
	"strconv"
	"syscall"
	"time"
)

// Prober performs a single connect attempt against one (host, port) pair and
// classifies the outcome. Implementations never return an error: every
// failure mode resolves to a classification so one probe can never abort its
// siblings.
type Prober interface {
	Probe(ctx context.Context, host string, port uint16) ProbeResult
}

// ConnectProber classifies ports with a full TCP handshake. An established
// connection is closed immediately; no data is exchanged.
type ConnectProber struct {
	timeout time.Duration
	dialer  net.Dialer
}

// NewConnectProber creates a prober with the given per-probe timeout.
func NewConnectProber(timeout time.Duration) *ConnectProber {
	return &ConnectProber{timeout: timeout}
}

// Probe implements the Prober interface.
func (p *ConnectProber) Probe(ctx context.Context, host string, port uint16) ProbeResult {
	addr := net.JoinHostPort(host, strconv.Itoa(int(port)))

	dialCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	start := time.Now()
	conn, err := p.dialer.DialContext(dialCtx, "tcp", addr)
	rtt := time.Since(start)

	result := ProbeResult{
		Host: host,
		Port: port,
		RTT:  rtt,
	}

	if err == nil {
		result.State = StateOpen
		_ = conn.Close()
		return result
	}

	result.State, result.Detail = classify(err)
	return result
}

// classify maps a dial error to a probe state. Refusal means closed; a
// timeout or any signal short of a refusal means filtered.
func classify(err error) (ProbeState, string) {
	if errors.Is(err, syscall.ECONNREFUSED) {
		return StateClosed, "connection refused"
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return StateFiltered, "timeout"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return StateFiltered, "timeout"
	}

	if errors.Is(err, syscall.EHOSTUNREACH) {
		return StateFiltered, "host unreachable"
	}
	if errors.Is(err, syscall.ENETUNREACH) {
		return StateFiltered, "network unreachable"
	}

	// Anything unexpected surfaces as filtered with the error attached
	// rather than aborting the scan.
	return StateFiltered, err.Error()
}
