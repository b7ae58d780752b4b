// Package rewriter implements Component D: producing a sparse or compact
// dump image that preserves decodability of header + metadata +
// encrypted metadata while reducing size.
package rewriter

import (
	"github.com/forensicsoft/go-fvde-core/internal/codec"
	"github.com/forensicsoft/go-fvde-core/internal/types"
)

// region is one structurally significant source byte range.
type region struct {
	name       string
	sourceOff  uint64
	length     uint64
}

// Plan is the set of regions a dump will copy, derived from a decoded
// volume header and (if present) a volume-groups descriptor. It is built
// once and consumed by both the sparse and compact writers so their region
// sets never drift apart.
type Plan struct {
	Header              *codec.VolumeHeader
	MetadataSize        uint64
	BlockSize           uint32
	MetadataRegions     [types.MetadataSlotCount]region
	EncryptedMetadata   codec.EncryptedMetadataLocation // from the best/first metadata copy
	SampleOffset        uint64
	SampleLength        uint64
}

// BuildPlan decodes the regions to copy from a volume header and the
// (caller-selected) metadata block used for descriptor extraction.
func BuildPlan(header *codec.VolumeHeader, firstMetadataBlock []byte, sampleOffset, sampleLength uint64) *Plan {
	p := &Plan{
		Header:       header,
		MetadataSize: header.MetadataSize,
		BlockSize:    header.BlockSize,
		SampleOffset: sampleOffset,
		SampleLength: sampleLength,
	}

	offsets := header.MetadataOffsets()
	for i, off := range offsets {
		p.MetadataRegions[i] = region{
			name:      metadataRegionName(i),
			sourceOff: off,
			length:    header.MetadataSize,
		}
	}

	p.EncryptedMetadata = codec.LocateEncryptedMetadata(firstMetadataBlock, header.BlockSize)
	return p
}

func metadataRegionName(i int) string {
	switch i {
	case 0:
		return "metadata block 0"
	case 1:
		return "metadata block 1"
	case 2:
		return "metadata block 2"
	default:
		return "metadata block 3"
	}
}
