package codec

import (
	"encoding/binary"
	"fmt"

	"github.com/forensicsoft/go-fvde-core/internal/types"
)

// VolumeHeader is the decoded form of the 512-byte Core Storage volume
// header.
type VolumeHeader struct {
	ChecksumInitial     uint32
	PhysicalVolumeSize  uint64
	BlockSize           uint32
	MetadataSize        uint64
	MetadataBlockNumber [types.MetadataSlotCount]uint64
}

// DecodeVolumeHeader parses a 512-byte buffer.
// It verifies the "CS" signature but does NOT verify the checksum; use
// VerifyVolumeHeaderChecksum for that.
func DecodeVolumeHeader(buf []byte) (*VolumeHeader, error) {
	const fn = "codec.DecodeVolumeHeader"
	if len(buf) < types.VolumeHeaderSize {
		return nil, types.Newf(types.KindInvalidArgument, fn,
			"volume header buffer too small: %d bytes, want %d", len(buf), types.VolumeHeaderSize)
	}

	if buf[types.OffSignature] != types.Signature[0] || buf[types.OffSignature+1] != types.Signature[1] {
		return nil, types.Newf(types.KindUnsupportedValue, fn,
			"unsupported signature %q, want %q", buf[types.OffSignature:types.OffSignature+2], types.Signature[:])
	}

	h := &VolumeHeader{
		ChecksumInitial:    binary.LittleEndian.Uint32(buf[types.OffChecksumInitial:]),
		PhysicalVolumeSize: binary.LittleEndian.Uint64(buf[types.OffPhysicalVolumeSize:]),
		BlockSize:          binary.LittleEndian.Uint32(buf[types.OffBlockSize:]),
		MetadataSize:       uint64(binary.LittleEndian.Uint32(buf[types.OffMetadataSize:])),
	}
	for i := 0; i < types.MetadataSlotCount; i++ {
		off := types.OffMetadataBlockNumbers + i*8
		h.MetadataBlockNumber[i] = binary.LittleEndian.Uint64(buf[off:])
	}
	return h, nil
}

// MetadataOffsets converts the four metadata block numbers into absolute
// byte offsets, given the header's own block size.
func (h *VolumeHeader) MetadataOffsets() [types.MetadataSlotCount]uint64 {
	var offsets [types.MetadataSlotCount]uint64
	for i, n := range h.MetadataBlockNumber {
		offsets[i] = n * uint64(h.BlockSize)
	}
	return offsets
}

// VerifyVolumeHeaderChecksum computes the weak CRC32 over buf[8:512] using
// the initial value stored at [4:8] and compares it against the checksum
// stored at [0:4].
func VerifyVolumeHeaderChecksum(buf []byte) bool {
	if len(buf) < types.VolumeHeaderSize {
		return false
	}
	initial := binary.LittleEndian.Uint32(buf[types.OffChecksumInitial:])
	want := binary.LittleEndian.Uint32(buf[types.OffChecksum:])
	got := WeakCRC32(buf[8:types.VolumeHeaderSize], initial)
	return got == want
}

// HeaderUpdates carries the fields EncodeVolumeHeader mutates in place.
// All four metadata block numbers are always written, including zero
// values.
type HeaderUpdates struct {
	MetadataBlockNumber [types.MetadataSlotCount]uint64
}

// EncodeVolumeHeader writes updated metadata block numbers into buf[104:136]
// and recomputes the checksum at buf[0:4] from the initial value already
// present at buf[4:8].
func EncodeVolumeHeader(buf []byte, updates HeaderUpdates) error {
	const fn = "codec.EncodeVolumeHeader"
	if len(buf) < types.VolumeHeaderSize {
		return types.Newf(types.KindInvalidArgument, fn,
			"volume header buffer too small: %d bytes, want %d", len(buf), types.VolumeHeaderSize)
	}

	for i, n := range updates.MetadataBlockNumber {
		off := types.OffMetadataBlockNumbers + i*8
		binary.LittleEndian.PutUint64(buf[off:], n)
	}

	initial := binary.LittleEndian.Uint32(buf[types.OffChecksumInitial:])
	checksum := WeakCRC32(buf[8:types.VolumeHeaderSize], initial)
	binary.LittleEndian.PutUint32(buf[types.OffChecksum:], checksum)
	return nil
}

// String satisfies error formatting contexts that print a header without
// dumping every field.
func (h *VolumeHeader) String() string {
	return fmt.Sprintf("VolumeHeader{size=%d block_size=%d metadata_size=%d offsets=%v}",
		h.PhysicalVolumeSize, h.BlockSize, h.MetadataSize, h.MetadataOffsets())
}
