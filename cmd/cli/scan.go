package cli

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/r1b/port-scanner/internal/config"
	"github.com/r1b/port-scanner/internal/errors"
	"github.com/r1b/port-scanner/internal/metrics"
	"github.com/r1b/port-scanner/internal/scanning"
	"github.com/r1b/port-scanner/internal/spec"
)

const (
	exitUsage = 2
)

var (
	scanPorts         string
	scanSkipDiscovery bool
	scanConcurrency   int
	scanTimeout       time.Duration
	scanRateLimit     int
	scanDNSServer     string
	scanProtocol      string
	scanShowAll       bool
	scanMetricsAddr   string
)

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan <host> [host...]",
	Short: "Probe hosts for open TCP ports",
	Long: `Scan one or more hosts for open TCP ports using a full connect scan.

Host specifications may be IP literals, resolvable hostnames, or CIDR
blocks. Port specifications may be single ports, ranges, or comma lists;
without -p the most common ports are scanned. Hosts that fail the liveness
check are reported down and skipped unless --skip-discovery is given.`,
	Example: `  portscan scan 192.168.1.10
  portscan scan 192.168.1.0/24 -p 22,80,443
  portscan scan example.com -p 1-1024 --concurrency 64
  portscan scan 10.0.0.1 --skip-discovery --timeout 500ms
  portscan scan internal.example.com --dns-server 10.0.0.53:53`,
	Args: cobra.MinimumNArgs(1),
	Run:  runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().StringVarP(&scanPorts, "ports", "p", "",
		"Port specification: '80,443', '1-1024', '8000-' (default: most common ports)")
	scanCmd.Flags().BoolVar(&scanSkipDiscovery, "skip-discovery", false,
		"Skip the liveness check and probe every host")
	scanCmd.Flags().IntVar(&scanConcurrency, "concurrency", config.DefaultProbeConcurrency,
		"Maximum in-flight connect probes")
	scanCmd.Flags().DurationVar(&scanTimeout, "timeout", config.DefaultProbeTimeout,
		"Per-probe connect timeout")
	scanCmd.Flags().IntVar(&scanRateLimit, "rate-limit", 0,
		"Maximum probes dispatched per second (0 = unlimited)")
	scanCmd.Flags().StringVar(&scanDNSServer, "dns-server", "",
		"Resolve hostnames against this DNS server (host:port)")
	scanCmd.Flags().StringVar(&scanProtocol, "protocol", "tcp",
		"Protocol for service-name lookups")
	scanCmd.Flags().BoolVar(&scanShowAll, "all", false,
		"List every probed port, not only open ones")
	scanCmd.Flags().StringVar(&scanMetricsAddr, "metrics-addr", "",
		"Serve Prometheus metrics on this address while the scan runs")
}

func runScan(cmd *cobra.Command, args []string) {
	cfg, err := config.Load(viper.ConfigFileUsed())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	opts := buildOptions(cmd, cfg)

	if srv := setupMetrics(cmd, cfg); srv != nil {
		defer stopMetricsServer(srv)
	}

	var engineOpts []scanning.EngineOption
	dnsServer := scanDNSServer
	if dnsServer == "" {
		dnsServer = cfg.DNS.Server
	}
	if dnsServer != "" {
		engineOpts = append(engineOpts,
			scanning.WithResolver(spec.NewDNSResolver(dnsServer, cfg.DNS.Timeout)))
	}

	var portSpecs []string
	if scanPorts != "" {
		portSpecs = []string{scanPorts}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := scanning.NewEngine(opts, engineOpts...).Run(ctx, args, portSpecs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if errors.IsInvalidSpec(err) {
			os.Exit(exitUsage)
		}
		os.Exit(1)
	}

	displayReport(report)
}

// buildOptions layers command-line flags over the loaded configuration.
// Flags the user set explicitly win over the config file.
func buildOptions(cmd *cobra.Command, cfg *config.Config) scanning.Options {
	opts := scanning.OptionsFromConfig(cfg)

	if cmd.Flags().Changed("skip-discovery") {
		opts.SkipDiscovery = scanSkipDiscovery
	}
	if cmd.Flags().Changed("concurrency") {
		opts.Concurrency = scanConcurrency
	}
	if cmd.Flags().Changed("timeout") {
		opts.Timeout = scanTimeout
	}
	if cmd.Flags().Changed("rate-limit") {
		opts.RateLimit = scanRateLimit
	}
	if cmd.Flags().Changed("protocol") {
		opts.Protocol = scanProtocol
	}

	return opts
}

// setupMetrics applies the metrics configuration and, when an address is
// configured, starts a Prometheus listener mirrored from the scan's metrics.
// Returns nil when metrics are disabled or no address is set.
func setupMetrics(cmd *cobra.Command, cfg *config.Config) *http.Server {
	metrics.SetEnabled(cfg.Metrics.Enabled)

	addr := cfg.Metrics.Address
	if cmd.Flags().Changed("metrics-addr") {
		addr = scanMetricsAddr
	}
	if !cfg.Metrics.Enabled || addr == "" {
		return nil
	}

	pm := metrics.NewPrometheusMetrics()
	metrics.SetExporter(pm)

	srv := &http.Server{
		Addr:              addr,
		Handler:           metricsHandler(pm),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Fprintf(os.Stderr, "Warning: metrics server failed: %v\n", err)
		}
	}()
	return srv
}

// metricsHandler serves the Prometheus registry, refreshing the system
// gauges on every scrape.
func metricsHandler(pm *metrics.PrometheusMetrics) http.Handler {
	handler := promhttp.HandlerFor(pm.GetRegistry(), promhttp.HandlerOpts{})
	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		pm.UpdateSystemMetrics()
		handler.ServeHTTP(w, r)
	})
	return mux
}

func stopMetricsServer(srv *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
	metrics.SetExporter(nil)
}

// displayReport renders the finalized report, hosts in request order.
func displayReport(report *scanning.ScanReport) {
	renderReport(os.Stdout, report, scanShowAll)
}

func renderReport(w io.Writer, report *scanning.ScanReport, showAll bool) {
	for i := range report.Hosts {
		host := &report.Hosts[i]

		if host.Hostname != "" {
			fmt.Fprintf(w, "Host report for %s (%s)\n", host.Address, host.Hostname)
		} else {
			fmt.Fprintf(w, "Host report for %s\n", host.Address)
		}

		if !host.Up {
			fmt.Fprintln(w, "Host is down")
			fmt.Fprintln(w)
			continue
		}
		fmt.Fprintln(w, "Host is up")

		rows := host.Ports
		if !showAll {
			rows = host.OpenPorts()
		}

		if len(rows) > 0 {
			table := tablewriter.NewWriter(w)
			table.Header("Port", "Service", "State")
			for _, p := range rows {
				service := p.Service
				if service == "" {
					service = "unknown"
				}
				_ = table.Append([]string{
					p.Protocol + "/" + strconv.Itoa(int(p.Port)),
					service,
					string(p.State),
				})
			}
			_ = table.Render()
		}

		if !showAll {
			switch {
			case len(host.Ports) > 0 && len(rows) == 0:
				fmt.Fprintln(w, "All ports filtered or closed")
			case len(rows) < len(host.Ports):
				fmt.Fprintln(w, "All other ports filtered or closed")
			}
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Scan complete: %d hosts up, %d down, %d open ports (%v)\n",
		report.Stats.HostsUp, report.Stats.HostsDown, report.Stats.Open,
		report.Duration.Round(time.Millisecond))
}
