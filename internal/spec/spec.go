// Package spec expands user-supplied host and port specifications into
// concrete, deduplicated work sequences. Host specs may be IP literals,
// resolvable hostnames, or CIDR blocks; port specs may be single ports,
// ranges, or comma lists. Expansion preserves first-occurrence order so the
// final report can be rendered exactly as requested.
package spec

import (
	"context"
	"net"
	"strconv"
	"strings"

	"github.com/r1b/port-scanner/internal/errors"
	"github.com/r1b/port-scanner/internal/services"
)

const (
	// MinPort and MaxPort bound valid port numbers. Port 0 is never allowed.
	MinPort = 1
	MaxPort = 65535
)

// Host is one concrete scan target produced by host-spec expansion.
type Host struct {
	// Addr is the concrete IP address to probe.
	Addr string
	// Name is the original hostname token when the spec was a hostname,
	// empty for literal addresses and CIDR members.
	Name string
}

// String returns the display form of the host.
func (h Host) String() string {
	if h.Name != "" {
		return h.Addr + " (" + h.Name + ")"
	}
	return h.Addr
}

// ExpandHosts expands the given host-spec tokens into an ordered,
// deduplicated sequence of concrete hosts. Hostnames are resolved once via
// the given resolver; the first returned address is used, with no v4/v6
// preference. Duplicate addresses across specs keep their first occurrence.
func ExpandHosts(ctx context.Context, hostSpecs []string, resolver Resolver) ([]Host, error) {
	if len(hostSpecs) == 0 {
		return nil, errors.NewSpecError(errors.CodeHostSpecInvalid, "No host specification given")
	}
	if resolver == nil {
		resolver = SystemResolver()
	}

	seen := make(map[string]struct{})
	var hosts []Host

	appendHost := func(h Host) {
		if _, dup := seen[h.Addr]; dup {
			return
		}
		seen[h.Addr] = struct{}{}
		hosts = append(hosts, h)
	}

	for _, token := range hostSpecs {
		token = strings.TrimSpace(token)
		if token == "" {
			return nil, errors.ErrInvalidHostSpec(token)
		}

		expanded, err := expandHostToken(ctx, token, resolver)
		if err != nil {
			return nil, err
		}
		for _, h := range expanded {
			appendHost(h)
		}
	}

	return hosts, nil
}

// expandHostToken expands a single host token: IP literal, CIDR block, or
// hostname, tried in that order.
func expandHostToken(ctx context.Context, token string, resolver Resolver) ([]Host, error) {
	if ip := net.ParseIP(token); ip != nil {
		return []Host{{Addr: ip.String()}}, nil
	}

	if strings.Contains(token, "/") {
		return expandCIDR(token)
	}

	addrs, err := resolver.LookupHost(ctx, token)
	if err != nil {
		return nil, errors.ErrResolveFailed(token, err)
	}
	if len(addrs) == 0 {
		return nil, errors.NewSpecErrorWithSpec(errors.CodeResolveFailed,
			"Hostname resolved to no addresses", token)
	}
	return []Host{{Addr: addrs[0], Name: token}}, nil
}

// expandCIDR enumerates the usable host addresses of a CIDR block. For IPv4
// blocks with a meaningful broadcast (prefix shorter than /31) the network
// and broadcast addresses are excluded. IPv6 blocks are accepted only as
// single-address /128s; enumerating larger v6 blocks is not supported.
func expandCIDR(token string) ([]Host, error) {
	ip, ipnet, err := net.ParseCIDR(token)
	if err != nil {
		return nil, errors.WrapSpecError(errors.CodeHostSpecInvalid,
			"Invalid CIDR block", token, err)
	}

	if ip.To4() == nil {
		ones, bits := ipnet.Mask.Size()
		if ones != bits {
			return nil, errors.NewSpecErrorWithSpec(errors.CodeHostSpecInvalid,
				"IPv6 blocks other than /128 are not supported", token)
		}
		return []Host{{Addr: ip.String()}}, nil
	}

	base := ipnet.IP.To4()
	mask := net.IP(ipnet.Mask).To4()
	network := ipToUint32(base) & ipToUint32(mask)
	broadcast := network | ^ipToUint32(mask)

	ones, _ := ipnet.Mask.Size()
	if ones >= 31 {
		// /31 and /32 have no meaningful broadcast; every address is usable.
		hosts := make([]Host, 0, broadcast-network+1)
		for u := network; u <= broadcast; u++ {
			hosts = append(hosts, Host{Addr: uint32ToIP(u).String()})
			if u == broadcast {
				break
			}
		}
		return hosts, nil
	}

	hosts := make([]Host, 0, broadcast-network-1)
	for u := network + 1; u < broadcast; u++ {
		hosts = append(hosts, Host{Addr: uint32ToIP(u).String()})
	}
	return hosts, nil
}

func ipToUint32(ip net.IP) uint32 {
	ip = ip.To4()
	return uint32(ip[0])<<24 | uint32(ip[1])<<16 | uint32(ip[2])<<8 | uint32(ip[3])
}

func uint32ToIP(u uint32) net.IP {
	return net.IPv4(byte(u>>24), byte(u>>16), byte(u>>8), byte(u))
}

// ExpandPorts expands the given port-spec tokens into an ordered,
// deduplicated sequence of concrete port numbers. Each token may be a single
// port, an inclusive range "a-b" (either bound may be omitted; a bare "-"
// covers every port), or a comma list combining the above. When no spec is
// given, the embedded most-common-ports set is returned.
func ExpandPorts(portSpecs []string) ([]uint16, error) {
	if len(portSpecs) == 0 {
		return services.MostCommonPorts(), nil
	}

	seen := make(map[uint16]struct{})
	var ports []uint16

	appendPort := func(p uint16) {
		if _, dup := seen[p]; dup {
			return
		}
		seen[p] = struct{}{}
		ports = append(ports, p)
	}

	for _, token := range portSpecs {
		for _, part := range strings.Split(token, ",") {
			part = strings.TrimSpace(part)
			lo, hi, err := parsePortToken(part)
			if err != nil {
				return nil, err
			}
			for p := lo; p <= hi; p++ {
				appendPort(uint16(p))
			}
		}
	}

	return ports, nil
}

// parsePortToken parses one port token into an inclusive [lo, hi] range.
func parsePortToken(token string) (lo, hi int, err error) {
	if token == "" {
		return 0, 0, errors.ErrInvalidPortSpec(token)
	}

	if token == "-" {
		return MinPort, MaxPort, nil
	}

	if strings.Contains(token, "-") {
		bounds := strings.SplitN(token, "-", 2)
		lo, hi = MinPort, MaxPort
		if bounds[0] != "" {
			if lo, err = parsePort(bounds[0]); err != nil {
				return 0, 0, errors.WrapSpecError(errors.CodePortSpecInvalid,
					"Invalid range start", token, err)
			}
		}
		if bounds[1] != "" {
			if hi, err = parsePort(bounds[1]); err != nil {
				return 0, 0, errors.WrapSpecError(errors.CodePortSpecInvalid,
					"Invalid range end", token, err)
			}
		}
		if lo > hi {
			return 0, 0, errors.NewSpecErrorWithSpec(errors.CodePortSpecInvalid,
				"Inverted port range", token)
		}
		return lo, hi, nil
	}

	port, err := parsePort(token)
	if err != nil {
		return 0, 0, errors.WrapSpecError(errors.CodePortSpecInvalid,
			"Invalid port", token, err)
	}
	return port, port, nil
}

// parsePort parses a single port number and enforces the 1-65535 bound.
func parsePort(s string) (int, error) {
	port, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if port < MinPort || port > MaxPort {
		return 0, errors.NewSpecErrorWithSpec(errors.CodePortSpecInvalid,
			"Port out of range 1-65535", s)
	}
	return port, nil
}
