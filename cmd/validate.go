package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"firestige.xyz/dnsrtt/internal/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration",
	Long: `Load the configuration (file plus DNSRTT_* env vars) and report the
effective settings without capturing.

Examples:
  dnsrtt validate -c /etc/dnsrtt/dnsrtt.yml`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runValidate(cmd.OutOrStdout(), configFile); err != nil {
			fmt.Fprintf(os.Stderr, "INVALID: %v\n", err)
			os.Exit(1)
		}
	},
}

func runValidate(out io.Writer, path string) error {
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}

	var reporters []string
	if cfg.Report.Log.Enabled {
		reporters = append(reporters, "log")
	}
	if cfg.Report.File.Enabled {
		reporters = append(reporters, "file")
	}
	if cfg.Report.Kafka.Enabled {
		reporters = append(reporters, "kafka")
	}

	fmt.Fprintf(out, "VALID: port %d, %d pending, %d buckets up to %s, %d worker(s) filter %q, reporters %v\n",
		cfg.Probe.DNSPort,
		cfg.Probe.TableCapacity,
		cfg.Probe.Buckets,
		cfg.Probe.MaxRTT,
		cfg.Capture.Workers,
		cfg.Capture.BPFFilter,
		reporters,
	)
	return nil
}
