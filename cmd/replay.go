package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"firestige.xyz/dnsrtt/internal/config"
	"firestige.xyz/dnsrtt/internal/daemon"
	logpkg "firestige.xyz/dnsrtt/internal/log"
	"firestige.xyz/dnsrtt/internal/report"
)

var replayCmd = &cobra.Command{
	Use:   "replay <capture.pcap>",
	Short: "Replay a pcap/pcapng file through the probe",
	Long: `Replay an Ethernet pcap or pcapng capture through the probe, using the
recorded timestamps as the clock, then print the resulting histogram.

Configured reporters receive the final snapshot as they would in live mode.
Logs go to stderr so the histogram on stdout can be piped.

Examples:
  dnsrtt replay dns.pcap
  dnsrtt replay --all -c dnsrtt.yml dns.pcapng`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runReplay(cmd.Context(), args[0], cmd.OutOrStdout()); err != nil {
			exitWithError("replay failed", err)
		}
	},
}

var replayAll bool

func init() {
	replayCmd.Flags().BoolVar(&replayAll, "all", false, "print empty buckets too")
}

func runReplay(ctx context.Context, path string, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	// offline run, nothing to scrape
	cfg.Metrics.Enabled = false
	// the histogram is printed after the run, so the final report must not drain it
	cfg.Report.ResetOnReport = false

	logger, err := logpkg.New(cfg.Log, os.Stderr)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	slog.SetDefault(logger)

	d, err := daemon.New(cfg, daemon.Options{ReplayFile: path})
	if err != nil {
		return fmt.Errorf("failed to create daemon: %w", err)
	}
	if err := d.Start(); err != nil {
		return err
	}
	if err := d.Run(ctx); err != nil {
		return err
	}

	snap := report.Take(cfg.Node.Hostname, d.Probe(), false, time.Now())
	return printSnapshot(out, &snap, replayAll)
}

func printSnapshot(out io.Writer, s *report.Snapshot, all bool) error {
	fmt.Fprintf(out, "DNS RTT histogram (log2 scale), %d sample(s)\n\n", s.Total)
	if err := report.Render(out, s, all); err != nil {
		return err
	}
	if len(s.Outcomes) > 0 {
		fmt.Fprintf(out, "\npending=%d correlated=%d unmatched=%d discarded=%d\n",
			s.Pending, s.Outcomes["correlated"], s.Outcomes["unmatched"], s.Outcomes["discarded"])
	}
	return nil
}
