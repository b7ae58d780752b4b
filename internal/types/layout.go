// Package types holds the on-disk byte layout constants and the in-memory
// allocation model shared across the codec, extent store, walker, and
// rewriter packages.
package types

// Volume header layout. All multi-byte fields are little-endian.
const (
	VolumeHeaderSize = 512

	OffChecksum            = 0
	OffChecksumInitial      = 4
	OffPhysicalVolumeSize   = 72
	OffSignature            = 88
	OffBlockSize             = 96
	OffMetadataSize          = 100 // LE u32, [100..104); the next bytes belong to slot 0
	OffMetadataBlockNumbers = 104 // four LE u64, [104..136)
	MetadataSlotCount        = 4

	ChecksumFieldSize = 4
)

// Signature is the two-byte Core Storage magic at OffSignature. Volumes
// whose header carries any other value are out of scope.
var Signature = [2]byte{'C', 'S'}

// Metadata block layout. Offsets are relative to the start of the
// metadata block (the 64-byte block header is included in the offsets).
const (
	DefaultMetadataSize = 8192

	MdOffChecksum        = 0
	MdOffChecksumInitial = 4
	MdOffTransactionID   = 16
	MdHeaderSize         = 64

	// Relative to MdHeaderSize: volume_groups_descriptor_offset at +156,
	// i.e. absolute offset 220 from the start of the metadata block.
	MdOffVolumeGroupsDescriptor = MdHeaderSize + 156

	// Relative to the volume-groups descriptor's own offset.
	VgdOffEncryptedMetadataSize = 8
	VgdOffEncryptedMetadata1    = 32
	VgdOffEncryptedMetadata2    = 40

	// A descriptor offset at or below the block header cannot be real;
	// locate_encrypted_metadata reports "no descriptor" in that case.
	MinValidVolumeGroupsDescriptorOffset = MdHeaderSize
)

// BlockNumberMask extracts the low 48 bits of an encrypted-metadata block
// number field; the high 16 bits carry the physical-volume index.
const BlockNumberMask = 0x0000_FFFF_FFFF_FFFF

// DefaultBlockSize is used whenever a VolumeState is constructed without an
// explicit block size.
const DefaultBlockSize = 4096

// MaxVolumes bounds both physical and logical volume indices.
const MaxVolumes = 16
