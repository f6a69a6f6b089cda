// Package services provides the read-only service-name table consumed by the
// result aggregator, mapping (port, protocol) pairs to well-known service
// names. Entries come from the system services database when available, with
// a built-in fallback for common ports. Lookups for unknown pairs return an
// absent result, never an error.
package services

import (
	_ "embed"
	"encoding/json"
	"os"
	"strconv"
	"strings"
	"sync"
)

// servicesPath is the standard system services database.
const servicesPath = "/etc/services"

//go:embed most_common_ports.json
var mostCommonPortsJSON []byte

type serviceKey struct {
	Port  uint16
	Proto string
}

// Table maps (port, protocol) pairs to service names.
type Table struct {
	entries map[serviceKey]string
}

// Lookup returns the service name registered for the given port and
// protocol. The second return value reports whether an entry exists.
func (t *Table) Lookup(port uint16, proto string) (string, bool) {
	name, ok := t.entries[serviceKey{Port: port, Proto: strings.ToLower(proto)}]
	return name, ok
}

// Len returns the number of registered entries.
func (t *Table) Len() int {
	return len(t.entries)
}

var (
	systemOnce  sync.Once
	systemTable *Table
)

// System returns the table loaded from the system services database, merged
// over the built-in fallback entries. The table is loaded once and cached.
func System() *Table {
	systemOnce.Do(func() {
		systemTable = load(servicesPath)
	})
	return systemTable
}

// load builds a table from the given services file. Entries that fail to
// parse are skipped; a missing or unreadable file leaves only the built-in
// fallback entries.
func load(path string) *Table {
	table := &Table{entries: make(map[serviceKey]string, len(fallbackServices))}
	for k, v := range fallbackServices {
		table.entries[k] = v
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return table
	}
	table.merge(string(data))
	return table
}

// Parse builds a table from services-database text, merged over the
// built-in fallback entries.
func Parse(data string) *Table {
	table := &Table{entries: make(map[serviceKey]string, len(fallbackServices))}
	for k, v := range fallbackServices {
		table.entries[k] = v
	}
	table.merge(data)
	return table
}

// merge parses services(5) formatted lines: "name port/proto [aliases] [# comment]".
func (t *Table) merge(data string) {
	for _, line := range strings.Split(data, "\n") {
		if idx := strings.IndexByte(line, '#'); idx >= 0 {
			line = line[:idx]
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}

		name := fields[0]
		portProto := strings.SplitN(fields[1], "/", 2)
		if len(portProto) != 2 {
			continue
		}
		port, err := strconv.ParseUint(portProto[0], 10, 16)
		if err != nil || port == 0 {
			continue
		}

		key := serviceKey{Port: uint16(port), Proto: strings.ToLower(portProto[1])}
		t.entries[key] = name
	}
}

// MostCommonPorts returns the default port set used when no port spec is
// given, ordered by scan priority.
func MostCommonPorts() []uint16 {
	var ports []uint16
	// The asset is generated and well-formed; an empty set here would be a
	// build defect, caught by tests.
	_ = json.Unmarshal(mostCommonPortsJSON, &ports)
	return ports
}

// fallbackServices covers well-known ports when the system services database
// is unavailable.
var fallbackServices = map[serviceKey]string{
	{21, "tcp"}:   "ftp",
	{22, "tcp"}:   "ssh",
	{23, "tcp"}:   "telnet",
	{25, "tcp"}:   "smtp",
	{53, "tcp"}:   "domain",
	{53, "udp"}:   "domain",
	{80, "tcp"}:   "http",
	{110, "tcp"}:  "pop3",
	{111, "tcp"}:  "sunrpc",
	{123, "udp"}:  "ntp",
	{135, "tcp"}:  "msrpc",
	{139, "tcp"}:  "netbios-ssn",
	{143, "tcp"}:  "imap",
	{161, "udp"}:  "snmp",
	{389, "tcp"}:  "ldap",
	{443, "tcp"}:  "https",
	{445, "tcp"}:  "microsoft-ds",
	{465, "tcp"}:  "smtps",
	{587, "tcp"}:  "submission",
	{631, "tcp"}:  "ipp",
	{993, "tcp"}:  "imaps",
	{995, "tcp"}:  "pop3s",
	{1433, "tcp"}: "ms-sql-s",
	{1723, "tcp"}: "pptp",
	{3306, "tcp"}: "mysql",
	{3389, "tcp"}: "ms-wbt-server",
	{5432, "tcp"}: "postgresql",
	{5900, "tcp"}: "vnc",
	{6379, "tcp"}: "redis",
	{8080, "tcp"}: "http-proxy",
	{8443, "tcp"}: "https-alt",
	{27017, "tcp"}: "mongodb",
}
