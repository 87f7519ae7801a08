package dnstest

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

// Packet is a frame with its capture time.
type Packet struct {
	Data      []byte
	Timestamp time.Time
}

// WritePcap writes pkts as a nanosecond-resolution Ethernet pcap stream.
func WritePcap(t testing.TB, w io.Writer, pkts []Packet) {
	t.Helper()
	pw := pcapgo.NewWriterNanos(w)
	if err := pw.WriteFileHeader(65535, layers.LinkTypeEthernet); err != nil {
		t.Fatalf("write pcap header: %v", err)
	}
	for _, p := range pkts {
		ci := gopacket.CaptureInfo{
			Timestamp:     p.Timestamp,
			CaptureLength: len(p.Data),
			Length:        len(p.Data),
		}
		if err := pw.WritePacket(ci, p.Data); err != nil {
			t.Fatalf("write pcap packet: %v", err)
		}
	}
}

// PcapFile writes pkts to a file under t.TempDir and returns its path.
func PcapFile(t testing.TB, pkts []Packet) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "capture.pcap")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create pcap: %v", err)
	}
	defer f.Close()
	WritePcap(t, f, pkts)
	return path
}
