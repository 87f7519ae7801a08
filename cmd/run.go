package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"firestige.xyz/dnsrtt/internal/config"
	"firestige.xyz/dnsrtt/internal/daemon"
	logpkg "firestige.xyz/dnsrtt/internal/log"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Capture live DNS traffic in foreground",
	Long: `Run the probe in foreground on the configured interface.

The process will:
  1. Load configuration from the config file and DNSRTT_* env vars
  2. Initialize logging and metrics
  3. Open one AF_PACKET ring per worker, joined in a fanout group
  4. Correlate DNS queries and responses into the latency histogram
  5. Report snapshots every report.interval
  6. On SIGTERM/SIGINT stop capture and report a final snapshot
     (SIGHUP reports a snapshot immediately)`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runLive(cmd.Context()); err != nil {
			slog.Error("dnsrtt failed", "error", err)
			os.Exit(1)
		}
	},
}

var (
	pidFile   string
	iface     string
	workers   int
	bpfFilter string
)

func init() {
	runCmd.Flags().StringVarP(&pidFile, "pidfile", "p", "", "PID file path")
	runCmd.Flags().StringVarP(&iface, "interface", "i", "", "capture interface (overrides capture.interface)")
	runCmd.Flags().IntVarP(&workers, "workers", "w", 0, "capture workers (overrides capture.workers)")
	runCmd.Flags().StringVar(&bpfFilter, "filter", "", "kernel BPF filter (overrides capture.bpf_filter)")
}

func runLive(ctx context.Context) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if iface != "" {
		cfg.Capture.Interface = iface
	}
	if workers > 0 {
		cfg.Capture.Workers = workers
	}
	if bpfFilter != "" {
		cfg.Capture.BPFFilter = bpfFilter
	}

	if err := logpkg.Init(cfg.Log); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}

	d, err := daemon.New(cfg, daemon.Options{PIDFile: pidFile})
	if err != nil {
		return fmt.Errorf("failed to create daemon: %w", err)
	}
	if err := d.Start(); err != nil {
		return fmt.Errorf("failed to start daemon: %w", err)
	}

	// blocks until shutdown
	return d.Run(ctx)
}
