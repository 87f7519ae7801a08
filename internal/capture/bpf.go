package capture

import (
	"fmt"

	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcap"
	"golang.org/x/net/bpf"
)

// DefaultFilter keeps only traffic the probe can correlate.
const DefaultFilter = "udp port 53"

// PortFilter returns the kernel filter matching UDP traffic on port.
func PortFilter(port uint16) string {
	return fmt.Sprintf("udp port %d", port)
}

// CompileBPF compiles a tcpdump-style filter into raw instructions for an
// Ethernet socket.
func CompileBPF(filter string, snapLen int) ([]bpf.RawInstruction, error) {
	pcapBPF, err := pcap.CompileBPFFilter(layers.LinkTypeEthernet, snapLen, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to compile BPF filter %q: %w", filter, err)
	}

	raw := make([]bpf.RawInstruction, len(pcapBPF))
	for i, ins := range pcapBPF {
		raw[i] = bpf.RawInstruction{Op: ins.Code, Jt: ins.Jt, Jf: ins.Jf, K: ins.K}
	}
	return raw, nil
}
