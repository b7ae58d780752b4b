package rewriter

import (
	"io"

	"github.com/forensicsoft/go-fvde-core/internal/abort"
	"github.com/forensicsoft/go-fvde-core/internal/codec"
	"github.com/forensicsoft/go-fvde-core/internal/logging"
	"github.com/forensicsoft/go-fvde-core/internal/types"
)

// CompactLayout is the destination byte layout a compact dump writes,
// derived once so both the writer and its tests agree on offsets.
type CompactLayout struct {
	HeaderOffset       uint64 // always 0
	MetadataBaseOffset uint64 // block_size
	MetadataStride     uint64 // metadata_size
	EncMd1Offset       uint64
	EncMd2Offset       uint64
	TotalLength        uint64
}

// NewCompactLayout computes destination offsets for a compact dump from a
// plan whose EncryptedMetadata has already been located.
func NewCompactLayout(p *Plan) CompactLayout {
	blockSize := uint64(p.BlockSize)
	metadataSize := p.MetadataSize

	metadataBase := blockSize
	metadataTotal := uint64(types.MetadataSlotCount) * metadataSize
	encMd1 := metadataBase + metadataTotal
	encMd2 := encMd1 + p.EncryptedMetadata.EncryptedMetadataSize
	total := encMd2 + p.EncryptedMetadata.EncryptedMetadataSize

	return CompactLayout{
		HeaderOffset:       0,
		MetadataBaseOffset: metadataBase,
		MetadataStride:     metadataSize,
		EncMd1Offset:       encMd1,
		EncMd2Offset:       encMd2,
		TotalLength:        total,
	}
}

// correctedEncMd1BlockNumber and correctedEncMd2BlockNumber are the block
// numbers, in destination-block units, each metadata copy's descriptor
// must point at once packed into a compact image.
func (l CompactLayout) correctedEncMd1BlockNumber(blockSize uint64) uint64 {
	return l.EncMd1Offset / blockSize
}

func (l CompactLayout) correctedEncMd2BlockNumber(blockSize uint64) uint64 {
	return l.EncMd2Offset / blockSize
}

// correctedMetadataSlotBlockNumber is slot i's corrected block number:
// 1 + i*(metadata_size/block_size).
func correctedMetadataSlotBlockNumber(i int, metadataSize, blockSize uint64) uint64 {
	return 1 + uint64(i)*(metadataSize/blockSize)
}

// DumpCompact writes a repacked image: header at byte 0, four metadata
// copies starting at block_size, then the two encrypted-metadata regions,
// all rewritten to be internally consistent at their new offsets.
func DumpCompact(dst io.WriterAt, src io.ReaderAt, headerBytes []byte, p *Plan, chunkSize int, abortFlag *abort.Flag, log *logging.Logger) (uint64, error) {
	const fn = "rewriter.DumpCompact"
	if log == nil {
		log = logging.Discard()
	}
	if !p.EncryptedMetadata.Found {
		return 0, types.Newf(types.KindUnsupportedValue, fn, "no volume-groups descriptor located; cannot lay out encrypted metadata")
	}

	layout := NewCompactLayout(p)
	blockSize := uint64(p.BlockSize)
	metadataSize := p.MetadataSize

	header := make([]byte, len(headerBytes))
	copy(header, headerBytes)
	var updates codec.HeaderUpdates
	for i := range updates.MetadataBlockNumber {
		updates.MetadataBlockNumber[i] = correctedMetadataSlotBlockNumber(i, metadataSize, blockSize)
	}
	if err := codec.EncodeVolumeHeader(header, updates); err != nil {
		return 0, types.Wrap(types.KindInvalidArgument, fn, "correcting volume header", err)
	}

	var total uint64
	if _, err := dst.WriteAt(header, int64(layout.HeaderOffset)); err != nil {
		return total, types.Wrap(types.KindIoWrite, fn, "writing corrected header", err)
	}
	total += uint64(len(header))
	log.Info("wrote corrected volume header", "bytes", len(header))

	newEncMd1 := layout.correctedEncMd1BlockNumber(blockSize)
	newEncMd2 := layout.correctedEncMd2BlockNumber(blockSize)

	for i, region := range p.MetadataRegions {
		if abortFlag != nil {
			if err := abortFlag.CheckPoint(); err != nil {
				return total, err
			}
		}

		block := make([]byte, metadataSize)
		if _, err := src.ReadAt(block, int64(region.sourceOff)); err != nil {
			return total, types.Wrap(types.KindIoRead, fn, "reading metadata copy", err)
		}

		if loc := codec.LocateEncryptedMetadata(block, p.BlockSize); loc.Found {
			if err := codec.RewriteMetadataBlock(block, int(metadataSize), newEncMd1, newEncMd2); err != nil {
				return total, types.Wrap(types.KindInvalidArgument, fn, "rewriting metadata copy", err)
			}
		}

		dstOff := layout.MetadataBaseOffset + uint64(i)*layout.MetadataStride
		if _, err := dst.WriteAt(block, int64(dstOff)); err != nil {
			return total, types.Wrap(types.KindIoWrite, fn, "writing corrected metadata copy", err)
		}
		total += uint64(len(block))
		log.Debug("wrote corrected metadata copy", "index", i, "bytes", len(block))
	}

	if p.EncryptedMetadata.EncryptedMetadataSize > 0 {
		n, err := copyRegion(dst, src, layout.EncMd1Offset, p.EncryptedMetadata.EncryptedMetadata1Off,
			p.EncryptedMetadata.EncryptedMetadataSize, chunkSize, abortFlag, log, "encrypted metadata 1")
		total += n
		if err != nil {
			return total, err
		}

		n, err = copyRegion(dst, src, layout.EncMd2Offset, p.EncryptedMetadata.EncryptedMetadata2Off,
			p.EncryptedMetadata.EncryptedMetadataSize, chunkSize, abortFlag, log, "encrypted metadata 2")
		total += n
		if err != nil {
			return total, err
		}
	}

	return total, nil
}
