package codec

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forensicsoft/go-fvde-core/internal/types"
)

// buildSampleHeader builds a representative 512-byte volume header buffer
// with four metadata slots at blocks 1, 3, 5, and 7.
func buildSampleHeader() []byte {
	b := make([]byte, types.VolumeHeaderSize)
	binary.LittleEndian.PutUint32(b[4:8], 0xFFFFFFFF)
	b[88], b[89] = 'C', 'S'
	binary.LittleEndian.PutUint32(b[96:100], 4096)
	binary.LittleEndian.PutUint64(b[100:108], 8192)
	for i, n := range []uint64{1, 3, 5, 7} {
		binary.LittleEndian.PutUint64(b[104+i*8:], n)
	}
	return b
}

func TestHeaderChecksumAndDecode(t *testing.T) {
	b := buildSampleHeader()

	err := EncodeVolumeHeader(b, HeaderUpdates{MetadataBlockNumber: [4]uint64{1, 3, 5, 7}})
	require.NoError(t, err)

	want := WeakCRC32(b[8:types.VolumeHeaderSize], 0xFFFFFFFF)
	got := binary.LittleEndian.Uint32(b[0:4])
	assert.Equal(t, want, got)
	assert.True(t, VerifyVolumeHeaderChecksum(b))

	h, err := DecodeVolumeHeader(b)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), h.PhysicalVolumeSize)
	assert.Equal(t, uint32(4096), h.BlockSize)
	assert.Equal(t, [4]uint64{4096, 12288, 20480, 28672}, h.MetadataOffsets())
}

func TestDecodeVolumeHeaderRejectsBadSignature(t *testing.T) {
	b := buildSampleHeader()
	b[88] = 'X'
	_, err := DecodeVolumeHeader(b)
	require.Error(t, err)
	kind, ok := types.AsKind(err)
	require.True(t, ok)
	assert.Equal(t, types.KindUnsupportedValue, kind)
}

func TestDecodeVolumeHeaderTooSmall(t *testing.T) {
	_, err := DecodeVolumeHeader(make([]byte, 100))
	require.Error(t, err)
	kind, ok := types.AsKind(err)
	require.True(t, ok)
	assert.Equal(t, types.KindInvalidArgument, kind)
}

func TestVerifyVolumeHeaderChecksumDetectsCorruption(t *testing.T) {
	b := buildSampleHeader()
	require.NoError(t, EncodeVolumeHeader(b, HeaderUpdates{MetadataBlockNumber: h(b)}))
	assert.True(t, VerifyVolumeHeaderChecksum(b))

	b[200] ^= 0xFF
	assert.False(t, VerifyVolumeHeaderChecksum(b))
}

func h(b []byte) [4]uint64 {
	var out [4]uint64
	for i := range out {
		out[i] = binary.LittleEndian.Uint64(b[104+i*8:])
	}
	return out
}
