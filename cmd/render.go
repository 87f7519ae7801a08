package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"firestige.xyz/dnsrtt/internal/report"
)

var renderCmd = &cobra.Command{
	Use:   "render <snapshot>",
	Short: "Render a histogram snapshot file",
	Long: `Render a snapshot written by the file reporter (JSON or YAML, chosen by
extension) as one line per bucket.

With --map-dump the input is the JSON output of "bpftool map dump -j" for
a kernel histogram array instead.

Examples:
  dnsrtt render /var/lib/dnsrtt/hist.json
  dnsrtt render --map-dump hist.json`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runRender(cmd.OutOrStdout(), args[0], renderMapDump, renderAll); err != nil {
			exitWithError("render failed", err)
		}
	},
}

var (
	renderMapDump bool
	renderAll     bool
)

func init() {
	renderCmd.Flags().BoolVar(&renderMapDump, "map-dump", false, "input is a bpftool map dump")
	renderCmd.Flags().BoolVar(&renderAll, "all", false, "print empty buckets too")
}

func runRender(out io.Writer, path string, mapDump, all bool) error {
	var (
		snap report.Snapshot
		err  error
	)
	if mapDump {
		data, readErr := os.ReadFile(path)
		if readErr != nil {
			return fmt.Errorf("read map dump: %w", readErr)
		}
		snap, err = report.FromMapDump(data)
	} else {
		snap, err = report.ReadFile(path)
	}
	if err != nil {
		return err
	}
	return printSnapshot(out, &snap, all)
}
