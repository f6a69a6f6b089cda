package cli

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/r1b/port-scanner/internal/config"
)

func TestGetVersion(t *testing.T) {
	SetVersion("1.2.3", "abc123", "2026-01-01")

	v := getVersion()
	assert.Contains(t, v, "1.2.3")
	assert.Contains(t, v, "abc123")
	assert.Contains(t, v, "2026-01-01")
	assert.Equal(t, v, rootCmd.Version)
}

func TestRootCommandStructure(t *testing.T) {
	assert.Equal(t, "portscan", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)

	names := make([]string, 0)
	for _, cmd := range rootCmd.Commands() {
		names = append(names, cmd.Name())
	}
	assert.Contains(t, names, "scan")
}

func TestScanCommandFlags(t *testing.T) {
	for _, flag := range []string{
		"ports", "skip-discovery", "concurrency", "timeout",
		"rate-limit", "dns-server", "protocol", "all", "metrics-addr",
	} {
		assert.NotNil(t, scanCmd.Flags().Lookup(flag), "missing flag %q", flag)
	}

	assert.Error(t, scanCmd.Args(scanCmd, nil), "scan requires at least one host")
	assert.NoError(t, scanCmd.Args(scanCmd, []string{"10.0.0.1"}))
}

func TestBuildOptions(t *testing.T) {
	t.Run("config values without flags", func(t *testing.T) {
		cfg := config.Default()
		cfg.Scan.Concurrency = 48
		cfg.Scan.SkipDiscovery = true

		opts := buildOptions(scanCmd, cfg)
		assert.Equal(t, 48, opts.Concurrency)
		assert.True(t, opts.SkipDiscovery)
		assert.Equal(t, cfg.Scan.Timeout, opts.Timeout)
		assert.Equal(t, "tcp", opts.Protocol)
	})

	t.Run("explicit flags win over config", func(t *testing.T) {
		require.NoError(t, scanCmd.Flags().Set("concurrency", "96"))
		require.NoError(t, scanCmd.Flags().Set("timeout", "250ms"))
		defer func() {
			// Reset changed state so other tests see pristine flags.
			scanCmd.Flags().Lookup("concurrency").Changed = false
			scanCmd.Flags().Lookup("timeout").Changed = false
			scanConcurrency = config.DefaultProbeConcurrency
			scanTimeout = config.DefaultProbeTimeout
		}()

		cfg := config.Default()
		cfg.Scan.Concurrency = 48

		opts := buildOptions(scanCmd, cfg)
		assert.Equal(t, 96, opts.Concurrency)
		assert.Equal(t, 250*time.Millisecond, opts.Timeout)
	})
}

func TestScanCommandHelp(t *testing.T) {
	assert.True(t, strings.HasPrefix(scanCmd.Use, "scan"))
	assert.Contains(t, scanCmd.Example, "portscan scan")
}
