package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"firestige.xyz/dnsrtt/internal/histogram"
	"firestige.xyz/dnsrtt/internal/report"
)

var bucketsCmd = &cobra.Command{
	Use:   "buckets",
	Short: "Print the latency range of every histogram bucket",
	Run: func(cmd *cobra.Command, args []string) {
		if err := runBuckets(cmd.OutOrStdout(), bucketCount); err != nil {
			exitWithError("buckets failed", err)
		}
	},
}

var bucketCount int

func init() {
	bucketsCmd.Flags().IntVarP(&bucketCount, "buckets", "n", histogram.DefaultBuckets, "number of buckets")
}

func runBuckets(out io.Writer, n int) error {
	if n <= 0 || n > 64 {
		return fmt.Errorf("buckets must be in [1,64], got %d", n)
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "BUCKET\tLOW_NS\tHIGH_NS\tRANGE")
	for i := 0; i < n; i++ {
		low, high := histogram.Bounds(i)
		fmt.Fprintf(tw, "%d\t%d\t%d\t%s\n", i, low, high, report.RangeMS(low, high))
	}
	return tw.Flush()
}
