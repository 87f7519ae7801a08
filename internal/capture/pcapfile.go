package capture

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"firestige.xyz/dnsrtt/internal/core"
)

// pcapng section header block type, read from the first four bytes.
var pcapngMagic = []byte{0x0a, 0x0d, 0x0d, 0x0a}

type packetReader interface {
	ReadPacketData() ([]byte, gopacket.CaptureInfo, error)
	LinkType() layers.LinkType
}

// FileSource replays frames from a pcap or pcapng file in file order.
type FileSource struct {
	f      *os.File
	reader packetReader
	path   string
}

// OpenFile opens a capture file, detecting pcap or pcapng from its magic.
// Only Ethernet captures are accepted.
func OpenFile(path string) (*FileSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open capture file: %w", err)
	}

	r, err := newPacketReader(bufio.NewReader(f))
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return &FileSource{f: f, reader: r, path: path}, nil
}

// NewReaderSource wraps an in-memory or streamed capture.
func NewReaderSource(r io.Reader) (*FileSource, error) {
	pr, err := newPacketReader(bufio.NewReader(r))
	if err != nil {
		return nil, err
	}
	return &FileSource{reader: pr}, nil
}

func newPacketReader(br *bufio.Reader) (packetReader, error) {
	magic, err := br.Peek(4)
	if err != nil {
		return nil, fmt.Errorf("failed to read capture header: %w", err)
	}

	var r packetReader
	if bytes.Equal(magic, pcapngMagic) {
		r, err = pcapgo.NewNgReader(br, pcapgo.DefaultNgReaderOptions)
	} else {
		r, err = pcapgo.NewReader(br)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse capture header: %w", err)
	}

	if lt := r.LinkType(); lt != layers.LinkTypeEthernet {
		return nil, fmt.Errorf("%w: %s", core.ErrLinkType, lt)
	}
	return r, nil
}

// ReadPacketData returns the next frame or io.EOF at the end of the file.
func (s *FileSource) ReadPacketData() ([]byte, gopacket.CaptureInfo, error) {
	return s.reader.ReadPacketData()
}

// Path is the file being replayed, empty for reader sources.
func (s *FileSource) Path() string {
	return s.path
}

func (s *FileSource) Close() error {
	if s.f == nil {
		return nil
	}
	return s.f.Close()
}
