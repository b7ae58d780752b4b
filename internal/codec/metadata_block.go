package codec

import (
	"encoding/binary"

	"github.com/forensicsoft/go-fvde-core/internal/types"
)

// EncryptedMetadataLocation is the result of locating the volume-groups
// descriptor inside a metadata block and reading the encrypted-metadata
// fields it carries.
type EncryptedMetadataLocation struct {
	Found                bool
	EncryptedMetadataSize uint64 // bytes
	EncryptedMetadata1Off uint64 // byte offset
	EncryptedMetadata2Off uint64 // byte offset
	TransactionID         uint64
}

// VerifyMetadataBlockChecksum computes the weak CRC32 over
// block[8:metadataSize] using the initial value at block[4:8] and compares
// it to the checksum stored at block[0:4].
func VerifyMetadataBlockChecksum(block []byte, metadataSize int) bool {
	if len(block) < metadataSize || metadataSize < 8 {
		return false
	}
	initial := binary.LittleEndian.Uint32(block[types.MdOffChecksumInitial:])
	want := binary.LittleEndian.Uint32(block[types.MdOffChecksum:])
	got := WeakCRC32(block[8:metadataSize], initial)
	return got == want
}

// recomputeMetadataBlockChecksum rewrites block[0:4] from the current
// initial value at block[4:8], over block[8:metadataSize].
func recomputeMetadataBlockChecksum(block []byte, metadataSize int) {
	initial := binary.LittleEndian.Uint32(block[types.MdOffChecksumInitial:])
	checksum := WeakCRC32(block[8:metadataSize], initial)
	binary.LittleEndian.PutUint32(block[types.MdOffChecksum:], checksum)
}

// TransactionID reads the transaction_identifier at byte 16, used both for
// reporting and for best-metadata selection.
func TransactionID(block []byte) uint64 {
	return binary.LittleEndian.Uint64(block[types.MdOffTransactionID:])
}

// LocateEncryptedMetadata reads volume_groups_descriptor_offset at [220:224]
// and, if it describes a real descriptor (i.e. > the 64-byte block header),
// decodes the encrypted-metadata fields relative to it. blockSize is
// the container's block size, used to convert the descriptor's block
// numbers into byte offsets; it is independent of the metadata block's own
// size.
//
// Block numbers for the two encrypted-metadata regions carry the physical
// volume index in their high 16 bits; those bits are masked off here since
// only the byte offset is needed by callers.
func LocateEncryptedMetadata(block []byte, blockSize uint32) EncryptedMetadataLocation {
	if len(block) < types.MdOffVolumeGroupsDescriptor+4 {
		return EncryptedMetadataLocation{}
	}

	vgdOffset := uint64(binary.LittleEndian.Uint32(block[types.MdOffVolumeGroupsDescriptor:]))
	if vgdOffset <= types.MinValidVolumeGroupsDescriptorOffset {
		return EncryptedMetadataLocation{}
	}

	sizeOff := vgdOffset + types.VgdOffEncryptedMetadataSize
	md1Off := vgdOffset + types.VgdOffEncryptedMetadata1
	md2Off := vgdOffset + types.VgdOffEncryptedMetadata2
	if int(md2Off)+8 > len(block) {
		return EncryptedMetadataLocation{}
	}

	encMdSizeBlocks := binary.LittleEndian.Uint64(block[sizeOff:])
	md1Block := binary.LittleEndian.Uint64(block[md1Off:]) & types.BlockNumberMask
	md2Block := binary.LittleEndian.Uint64(block[md2Off:]) & types.BlockNumberMask

	bs := uint64(blockSize)
	return EncryptedMetadataLocation{
		Found:                 true,
		EncryptedMetadataSize: encMdSizeBlocks * bs,
		EncryptedMetadata1Off: md1Block * bs,
		EncryptedMetadata2Off: md2Block * bs,
		TransactionID:         TransactionID(block),
	}
}

// RewriteMetadataBlock writes full 64-bit (unmasked) block numbers for the
// two encrypted-metadata fields and recomputes the block checksum.
func RewriteMetadataBlock(block []byte, metadataSize int, newEncMd1BlockNum, newEncMd2BlockNum uint64) error {
	const fn = "codec.RewriteMetadataBlock"
	if len(block) < metadataSize {
		return types.Newf(types.KindInvalidArgument, fn,
			"metadata block buffer too small: %d bytes, want %d", len(block), metadataSize)
	}

	vgdOffset := uint64(binary.LittleEndian.Uint32(block[types.MdOffVolumeGroupsDescriptor:]))
	if vgdOffset <= types.MinValidVolumeGroupsDescriptorOffset {
		return types.Newf(types.KindUnsupportedValue, fn, "no volume-groups descriptor present")
	}

	md1Off := vgdOffset + types.VgdOffEncryptedMetadata1
	md2Off := vgdOffset + types.VgdOffEncryptedMetadata2
	if int(md2Off)+8 > len(block) {
		return types.Newf(types.KindInvalidArgument, fn, "volume-groups descriptor out of range")
	}

	binary.LittleEndian.PutUint64(block[md1Off:], newEncMd1BlockNum)
	binary.LittleEndian.PutUint64(block[md2Off:], newEncMd2BlockNum)

	recomputeMetadataBlockChecksum(block, metadataSize)
	return nil
}
