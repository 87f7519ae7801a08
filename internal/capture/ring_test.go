package capture

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRingGeometry(t *testing.T) {
	tests := []struct {
		name       string
		ringSizeMB int
		snapLen    int
		pageSize   int
	}{
		{"default dns snaplen", 8, 1600, 4096},
		{"small snaplen", 1, 128, 4096},
		{"jumbo snaplen", 64, 9000, 4096},
		{"max snaplen", 64, 65535, 4096},
		{"large pages", 32, 1600, 65536},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame, block, blocks, err := ringGeometry(tt.ringSizeMB, tt.snapLen, tt.pageSize)
			require.NoError(t, err)

			assert.Zero(t, frame%16, "frame size must be TPACKET aligned")
			assert.GreaterOrEqual(t, frame, tt.snapLen)
			assert.Zero(t, block%tt.pageSize, "block size must be page aligned")
			assert.Zero(t, block%frame, "block size must hold whole frames")
			assert.GreaterOrEqual(t, blocks, 1)
			assert.LessOrEqual(t, block*blocks, tt.ringSizeMB*1024*1024+block)
		})
	}
}

func TestRingGeometryInvalid(t *testing.T) {
	tests := []struct {
		name       string
		ringSizeMB int
		snapLen    int
		pageSize   int
	}{
		{"zero ring", 0, 1600, 4096},
		{"negative snaplen", 8, -1, 4096},
		{"unaligned page", 8, 1600, 4000},
		{"zero page", 8, 1600, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, _, err := ringGeometry(tt.ringSizeMB, tt.snapLen, tt.pageSize)
			assert.Error(t, err)
		})
	}
}

func TestLCM(t *testing.T) {
	assert.Equal(t, 4096, lcm(4096, 16))
	assert.Equal(t, 12, lcm(4, 6))
	assert.Equal(t, 0, lcm(0, 6))
	assert.Equal(t, 3, gcd(9, 6))
}
