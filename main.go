// Package main is the entry point for the dnsrtt DNS latency probe.
package main

import (
	"fmt"
	"os"

	"firestige.xyz/dnsrtt/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
