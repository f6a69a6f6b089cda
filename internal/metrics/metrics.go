// Package metrics provides basic monitoring and metrics collection for the
// port scanner. It supports counters, gauges, and histograms with label
// support for tracking scan performance and operational metrics.
package metrics

import (
	"sync"
	"time"
)

// MetricType represents the type of metric.
type MetricType string

const (
	TypeCounter   MetricType = "counter"
	TypeGauge     MetricType = "gauge"
	TypeHistogram MetricType = "histogram"
)

// Labels represents key-value pairs for metric labels.
type Labels map[string]string

// Metric represents a single metric with its metadata.
type Metric struct {
	Name      string
	Type      MetricType
	Value     float64
	Labels    Labels
	Timestamp time.Time
}

// Registry holds all metrics and provides collection functionality.
type Registry struct {
	mu      sync.RWMutex
	metrics map[string]*Metric
	enabled bool
}

// NewRegistry creates a new metrics registry.
func NewRegistry() *Registry {
	return &Registry{
		metrics: make(map[string]*Metric),
		enabled: true,
	}
}

// SetEnabled enables or disables metrics collection.
func (r *Registry) SetEnabled(enabled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.enabled = enabled
}

// IsEnabled returns whether metrics collection is enabled.
func (r *Registry) IsEnabled() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.enabled
}

// Counter increments a counter metric.
func (r *Registry) Counter(name string, labels Labels) {
	if !r.IsEnabled() {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := r.makeKey(name, labels)
	if metric, exists := r.metrics[key]; exists {
		metric.Value++
		metric.Timestamp = time.Now()
	} else {
		r.metrics[key] = &Metric{
			Name:      name,
			Type:      TypeCounter,
			Value:     1,
			Labels:    labels,
			Timestamp: time.Now(),
		}
	}
}

// Gauge sets a gauge metric value.
func (r *Registry) Gauge(name string, value float64, labels Labels) {
	if !r.IsEnabled() {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := r.makeKey(name, labels)
	r.metrics[key] = &Metric{
		Name:      name,
		Type:      TypeGauge,
		Value:     value,
		Labels:    labels,
		Timestamp: time.Now(),
	}
}

// Add increments a counter metric by delta.
func (r *Registry) Add(name string, delta float64, labels Labels) {
	if !r.IsEnabled() {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := r.makeKey(name, labels)
	if metric, exists := r.metrics[key]; exists {
		metric.Value += delta
		metric.Timestamp = time.Now()
	} else {
		r.metrics[key] = &Metric{
			Name:      name,
			Type:      TypeCounter,
			Value:     delta,
			Labels:    labels,
			Timestamp: time.Now(),
		}
	}
}

// Histogram records a value in a histogram metric.
func (r *Registry) Histogram(name string, value float64, labels Labels) {
	if !r.IsEnabled() {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := r.makeKey(name, labels)
	if metric, exists := r.metrics[key]; exists {
		// Simple histogram implementation - just track last value
		// Can be extended to proper buckets later
		metric.Value = value
		metric.Timestamp = time.Now()
	} else {
		r.metrics[key] = &Metric{
			Name:      name,
			Type:      TypeHistogram,
			Value:     value,
			Labels:    labels,
			Timestamp: time.Now(),
		}
	}
}

// GetMetrics returns a snapshot of all current metrics.
func (r *Registry) GetMetrics() map[string]*Metric {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make(map[string]*Metric)
	for key, metric := range r.metrics {
		// Create a copy to avoid race conditions
		result[key] = &Metric{
			Name:      metric.Name,
			Type:      metric.Type,
			Value:     metric.Value,
			Labels:    copyLabels(metric.Labels),
			Timestamp: metric.Timestamp,
		}
	}
	return result
}

// Reset clears all metrics.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.metrics = make(map[string]*Metric)
}

// makeKey creates a unique key for a metric based on name and labels.
func (r *Registry) makeKey(name string, labels Labels) string {
	if len(labels) == 0 {
		return name
	}

	key := name
	for k, v := range labels {
		key += ":" + k + "=" + v
	}
	return key
}

// copyLabels creates a copy of labels map.
func copyLabels(labels Labels) Labels {
	if labels == nil {
		return nil
	}
	result := make(Labels)
	for k, v := range labels {
		result[k] = v
	}
	return result
}

// Exporter mirrors facade updates into an external metrics backend. The
// Prometheus implementation satisfies it; instrumented code keeps calling
// the package-level helpers and never talks to the backend directly.
type Exporter interface {
	IncrementScansTotal(status string)
	RecordScanDuration(scanType string, duration time.Duration)
	IncrementScanErrors(errorCode string)
	IncrementHostsScanned(status string, count int)
	IncrementDiscoveryTotal(method, status string)
	RecordDiscoveryDuration(method string, duration time.Duration)
	IncrementHostsDiscovered(status string, count int)
	IncrementProbesTotal(state string)
	RecordProbeDuration(state string, duration time.Duration)
	SetProbesInFlight(count int)
}

var (
	exporterMu      sync.RWMutex
	defaultExporter Exporter
)

// SetExporter installs the exporter that receives facade updates. A nil
// exporter disables mirroring.
func SetExporter(e Exporter) {
	exporterMu.Lock()
	defer exporterMu.Unlock()
	defaultExporter = e
}

// activeExporter returns the installed exporter, or nil when metrics
// collection is disabled.
func activeExporter() Exporter {
	if !defaultRegistry.IsEnabled() {
		return nil
	}
	exporterMu.RLock()
	defer exporterMu.RUnlock()
	return defaultExporter
}

// Global registry instance.
var defaultRegistry = NewRegistry()

// SetDefault sets the default metrics registry.
func SetDefault(registry *Registry) {
	defaultRegistry = registry
}

// Default returns the default metrics registry.
func Default() *Registry {
	return defaultRegistry
}

// SetEnabled enables or disables metrics collection on the default registry.
func SetEnabled(enabled bool) {
	defaultRegistry.SetEnabled(enabled)
}

// Counter increments a counter metric on the default registry.
func Counter(name string, labels Labels) {
	defaultRegistry.Counter(name, labels)
}

// Gauge sets a gauge metric on the default registry.
func Gauge(name string, value float64, labels Labels) {
	defaultRegistry.Gauge(name, value, labels)
}

// Add increments a counter metric on the default registry by delta.
func Add(name string, delta float64, labels Labels) {
	defaultRegistry.Add(name, delta, labels)
}

// Histogram records a histogram value on the default registry.
func Histogram(name string, value float64, labels Labels) {
	defaultRegistry.Histogram(name, value, labels)
}

// GetMetrics returns all metrics from the default registry.
func GetMetrics() map[string]*Metric {
	return defaultRegistry.GetMetrics()
}

// Reset clears all metrics from the default registry.
func Reset() {
	defaultRegistry.Reset()
}

// Timer provides a simple way to measure execution time.
type Timer struct {
	start  time.Time
	name   string
	labels Labels
}

// NewTimer creates a new timer for measuring execution time.
func NewTimer(name string, labels Labels) *Timer {
	return &Timer{
		start:  time.Now(),
		name:   name,
		labels: labels,
	}
}

// Stop stops the timer and records the duration as a histogram.
func (t *Timer) Stop() {
	duration := time.Since(t.start)
	Histogram(t.name, duration.Seconds(), t.labels)
}

// Predefined metric names for common operations.
const (
	// Scan metrics.
	MetricScanDuration = "scan_duration_seconds"
	MetricScanTotal    = "scan_total"
	MetricScanErrors   = "scan_errors_total"
	MetricPortsScanned = "ports_scanned_total"
	MetricHostsScanned = "hosts_scanned_total"

	// Discovery metrics.
	MetricDiscoveryDuration = "discovery_duration_seconds"
	MetricDiscoveryTotal    = "discovery_total"
	MetricDiscoveryErrors   = "discovery_errors_total"
	MetricHostsDiscovered   = "hosts_discovered_total"

	// Probe metrics.
	MetricProbesTotal    = "probes_total"
	MetricProbeDuration  = "probe_duration_seconds"
	MetricProbesInFlight = "probes_in_flight"

	// System metrics.
	MetricMemoryUsage = "memory_usage_bytes"
	MetricGoroutines  = "goroutines_active"
	MetricUptime      = "uptime_seconds"
)

// Common label keys.
const (
	LabelScanType  = "scan_type"
	LabelTarget    = "target"
	LabelMethod    = "method"
	LabelStatus    = "status"
	LabelState     = "state"
	LabelOperation = "operation"
	LabelError     = "error"
	LabelComponent = "component"
)

// Helper functions for common metrics

// RecordScanDuration records the duration of a scan operation.
func RecordScanDuration(scanType, target string, duration time.Duration) {
	Histogram(MetricScanDuration, duration.Seconds(), Labels{
		LabelScanType: scanType,
		LabelTarget:   target,
	})
	if e := activeExporter(); e != nil {
		e.RecordScanDuration(scanType, duration)
	}
}

// IncrementScanTotal increments the total scan counter.
func IncrementScanTotal(scanType, status string) {
	Counter(MetricScanTotal, Labels{
		LabelScanType: scanType,
		LabelStatus:   status,
	})
	if e := activeExporter(); e != nil {
		e.IncrementScansTotal(status)
	}
}

// IncrementScanErrors increments the scan error counter.
func IncrementScanErrors(scanType, target, errorType string) {
	Counter(MetricScanErrors, Labels{
		LabelScanType: scanType,
		LabelTarget:   target,
		LabelError:    errorType,
	})
	if e := activeExporter(); e != nil {
		e.IncrementScanErrors(errorType)
	}
}

// IncrementHostsScanned adds to the per-status scanned-hosts counter.
func IncrementHostsScanned(status string, count int) {
	if count <= 0 {
		return
	}
	Add(MetricHostsScanned, float64(count), Labels{
		LabelStatus: status,
	})
	if e := activeExporter(); e != nil {
		e.IncrementHostsScanned(status, count)
	}
}

// IncrementDiscoveryTotal increments the discovery probe counter.
func IncrementDiscoveryTotal(method, status string) {
	Counter(MetricDiscoveryTotal, Labels{
		LabelMethod: method,
		LabelStatus: status,
	})
	if e := activeExporter(); e != nil {
		e.IncrementDiscoveryTotal(method, status)
	}
}

// RecordDiscoveryDuration records the duration of a discovery probe.
func RecordDiscoveryDuration(method string, duration time.Duration) {
	Histogram(MetricDiscoveryDuration, duration.Seconds(), Labels{
		LabelMethod: method,
	})
	if e := activeExporter(); e != nil {
		e.RecordDiscoveryDuration(method, duration)
	}
}

// IncrementHostsDiscovered increments the hosts discovered counter.
func IncrementHostsDiscovered(method, status string) {
	Counter(MetricHostsDiscovered, Labels{
		LabelMethod: method,
		LabelStatus: status,
	})
	if e := activeExporter(); e != nil {
		e.IncrementHostsDiscovered(status, 1)
	}
}

// RecordProbe records the outcome and duration of a single connect probe.
func RecordProbe(state string, duration time.Duration) {
	Counter(MetricProbesTotal, Labels{
		LabelState: state,
	})

	Histogram(MetricProbeDuration, duration.Seconds(), Labels{
		LabelState: state,
	})

	if e := activeExporter(); e != nil {
		e.IncrementProbesTotal(state)
		e.RecordProbeDuration(state, duration)
	}
}

// SetProbesInFlight sets the number of connect probes currently in flight.
func SetProbesInFlight(count int) {
	Gauge(MetricProbesInFlight, float64(count), nil)
	if e := activeExporter(); e != nil {
		e.SetProbesInFlight(count)
	}
}
