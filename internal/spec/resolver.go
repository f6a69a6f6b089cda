package spec

import (
	"context"
	"net"
	"time"

	"github.com/miekg/dns"

	"github.com/r1b/port-scanner/internal/errors"
)

// Resolver resolves a hostname to its addresses. net.Resolver satisfies the
// interface, and DNSResolver provides a custom-server implementation.
type Resolver interface {
	LookupHost(ctx context.Context, host string) ([]string, error)
}

// SystemResolver returns the system stub resolver.
func SystemResolver() Resolver {
	return net.DefaultResolver
}

// DNSResolver resolves hostnames against a specific DNS server instead of
// the system resolver.
type DNSResolver struct {
	server  string
	timeout time.Duration
	client  *dns.Client
}

// NewDNSResolver creates a resolver that queries the given server
// (host:port) with the given per-query timeout.
func NewDNSResolver(server string, timeout time.Duration) *DNSResolver {
	return &DNSResolver{
		server:  server,
		timeout: timeout,
		client: &dns.Client{
			Timeout: timeout,
		},
	}
}

// LookupHost resolves the hostname via A and AAAA queries against the
// configured server. A records are returned first; the caller takes the
// first address, so v4 answers win when present.
func (r *DNSResolver) LookupHost(ctx context.Context, host string) ([]string, error) {
	var addrs []string
	var lastErr error

	for _, qtype := range []uint16{dns.TypeA, dns.TypeAAAA} {
		msg := new(dns.Msg)
		msg.SetQuestion(dns.Fqdn(host), qtype)
		msg.RecursionDesired = true

		in, _, err := r.client.ExchangeContext(ctx, msg, r.server)
		if err != nil {
			lastErr = err
			continue
		}
		if in.Rcode != dns.RcodeSuccess {
			lastErr = errors.NewSpecErrorWithSpec(errors.CodeResolveFailed,
				"DNS query failed with "+dns.RcodeToString[in.Rcode], host)
			continue
		}

		for _, rr := range in.Answer {
			switch record := rr.(type) {
			case *dns.A:
				addrs = append(addrs, record.A.String())
			case *dns.AAAA:
				addrs = append(addrs, record.AAAA.String())
			}
		}
	}

	if len(addrs) == 0 {
		if lastErr != nil {
			return nil, lastErr
		}
		return nil, errors.NewSpecErrorWithSpec(errors.CodeResolveFailed,
			"No address records found", host)
	}
	return addrs, nil
}
