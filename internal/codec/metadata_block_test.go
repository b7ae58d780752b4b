package codec

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forensicsoft/go-fvde-core/internal/types"
)

const testMetadataSize = 8192

// buildMetadataBlockWithDescriptor builds a metadata block with a
// volume-groups descriptor at a fixed offset, carrying the given encrypted
// metadata size and block numbers.
func buildMetadataBlockWithDescriptor(txID uint64, encMdSizeBlocks, encMd1Block, encMd2Block uint64) []byte {
	block := make([]byte, testMetadataSize)
	binary.LittleEndian.PutUint32(block[types.MdOffChecksumInitial:], 0xFFFFFFFF)
	binary.LittleEndian.PutUint64(block[types.MdOffTransactionID:], txID)

	const vgdOffset = 256 // arbitrary, > MdHeaderSize (64)
	binary.LittleEndian.PutUint32(block[types.MdOffVolumeGroupsDescriptor:], vgdOffset)
	binary.LittleEndian.PutUint64(block[vgdOffset+types.VgdOffEncryptedMetadataSize:], encMdSizeBlocks)
	binary.LittleEndian.PutUint64(block[vgdOffset+types.VgdOffEncryptedMetadata1:], encMd1Block)
	binary.LittleEndian.PutUint64(block[vgdOffset+types.VgdOffEncryptedMetadata2:], encMd2Block)

	recomputeMetadataBlockChecksum(block, testMetadataSize)
	return block
}

func TestLocateEncryptedMetadata(t *testing.T) {
	block := buildMetadataBlockWithDescriptor(42, 4 /* blocks */, 100, 200)

	loc := LocateEncryptedMetadata(block, 4096)
	require.True(t, loc.Found)
	assert.Equal(t, uint64(42), loc.TransactionID)
	assert.Equal(t, uint64(4*4096), loc.EncryptedMetadataSize)
	assert.Equal(t, uint64(100*4096), loc.EncryptedMetadata1Off)
	assert.Equal(t, uint64(200*4096), loc.EncryptedMetadata2Off)
}

func TestLocateEncryptedMetadataMasksVolumeIndex(t *testing.T) {
	// High 16 bits carry the physical volume index and must be masked off.
	pvIndexTagged := (uint64(3) << 48) | 100
	block := buildMetadataBlockWithDescriptor(1, 1, pvIndexTagged, 200)

	loc := LocateEncryptedMetadata(block, 4096)
	require.True(t, loc.Found)
	assert.Equal(t, uint64(100*4096), loc.EncryptedMetadata1Off)
}

func TestLocateEncryptedMetadataNoDescriptor(t *testing.T) {
	block := make([]byte, testMetadataSize)
	binary.LittleEndian.PutUint32(block[types.MdOffVolumeGroupsDescriptor:], 64) // <= header size
	loc := LocateEncryptedMetadata(block, 4096)
	assert.False(t, loc.Found)
}

func TestVerifyMetadataBlockChecksum(t *testing.T) {
	block := buildMetadataBlockWithDescriptor(1, 1, 100, 200)
	assert.True(t, VerifyMetadataBlockChecksum(block, testMetadataSize))
	block[1000] ^= 0xFF
	assert.False(t, VerifyMetadataBlockChecksum(block, testMetadataSize))
}

func TestRewriteMetadataBlockCompactNumbers(t *testing.T) {
	// block_size=4096, metadata_size=8192, encrypted_metadata_size=16384
	// (4 blocks), original enc md 1 block 100, enc md 2 block 200.
	block := buildMetadataBlockWithDescriptor(1, 4, 100, 200)

	const blockSize = 4096
	const newEncMd1Block = (4096 + 4*8192) / blockSize // = 9
	const newEncMd2Block = newEncMd1Block + 16384/blockSize // = 13

	require.NoError(t, RewriteMetadataBlock(block, testMetadataSize, newEncMd1Block, newEncMd2Block))
	assert.True(t, VerifyMetadataBlockChecksum(block, testMetadataSize))

	loc := LocateEncryptedMetadata(block, blockSize)
	require.True(t, loc.Found)
	assert.Equal(t, uint64(9*blockSize), loc.EncryptedMetadata1Off)
	assert.Equal(t, uint64(13*blockSize), loc.EncryptedMetadata2Off)
}

func TestRewriteMetadataBlockNoDescriptorFails(t *testing.T) {
	block := make([]byte, testMetadataSize)
	err := RewriteMetadataBlock(block, testMetadataSize, 9, 13)
	require.Error(t, err)
	kind, ok := types.AsKind(err)
	require.True(t, ok)
	assert.Equal(t, types.KindUnsupportedValue, kind)
}
