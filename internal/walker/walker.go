// Package walker implements Component C: turning an unlocked volume into
// a populated extent store.
package walker

import (
	"fmt"
	"io"

	"github.com/forensicsoft/go-fvde-core/internal/abort"
	"github.com/forensicsoft/go-fvde-core/internal/codec"
	"github.com/forensicsoft/go-fvde-core/internal/extentstore"
	"github.com/forensicsoft/go-fvde-core/internal/logging"
	"github.com/forensicsoft/go-fvde-core/internal/types"
	"github.com/forensicsoft/go-fvde-core/internal/unlocker"
)

// Walker drives an unlocked volume into a Store.
type Walker struct {
	store           *extentstore.Store
	source          io.ReaderAt
	offset          uint64
	log             *logging.Logger
	abortFlag       *abort.Flag
	strictChecksums bool

	metadataBlocksProcessed uint64
	transactionsProcessed   uint64
	warnings                []string
}

// New returns a Walker that reads the container starting at the given byte
// offset within source. abortFlag may be nil (no cancellation polling,
// used by callers that only need Header()). strictChecksums controls
// whether a checksum mismatch aborts the walk (ChecksumMismatch) or is
// merely recorded in Warnings().
func New(store *extentstore.Store, source io.ReaderAt, offset uint64, log *logging.Logger, abortFlag *abort.Flag, strictChecksums bool) *Walker {
	if log == nil {
		log = logging.Discard()
	}
	return &Walker{store: store, source: source, offset: offset, log: log, abortFlag: abortFlag, strictChecksums: strictChecksums}
}

// Header returns the decoded volume header read from the source at the
// walker's offset, without mutating the store. Callers that only need
// header metadata (dump) can use this without a full Walk.
func (w *Walker) Header() (*codec.VolumeHeader, error) {
	_, header, err := w.readHeader()
	return header, err
}

// MetadataBlocksProcessed is the number of metadata-slot copies read
// during the most recent Walk.
func (w *Walker) MetadataBlocksProcessed() uint64 {
	return w.metadataBlocksProcessed
}

// TransactionsProcessed is the number of distinct transaction_identifier
// values seen across the metadata-slot copies read during the most recent
// Walk.
func (w *Walker) TransactionsProcessed() uint64 {
	return w.transactionsProcessed
}

// Warnings returns the non-fatal findings accumulated during the most
// recent Walk: checksum mismatches (when not running in strict mode) and
// provenance violations such as overlapping segment descriptors.
func (w *Walker) Warnings() []string {
	return w.warnings
}

func (w *Walker) readHeader() ([]byte, *codec.VolumeHeader, error) {
	const fn = "walker.readHeader"
	buf := make([]byte, types.VolumeHeaderSize)
	if _, err := w.source.ReadAt(buf, int64(w.offset)); err != nil {
		return nil, nil, types.Wrap(types.KindIoRead, fn, "reading volume header", err)
	}
	header, err := codec.DecodeVolumeHeader(buf)
	if err != nil {
		return nil, nil, err
	}
	return buf, header, nil
}

// abortCheckPoint polls the abort flag, if one is wired in, at a
// checkpoint boundary.
func (w *Walker) abortCheckPoint() error {
	if w.abortFlag == nil {
		return nil
	}
	return w.abortFlag.CheckPoint()
}

// checksumMismatch records a checksum failure as a warning, or returns a
// ChecksumMismatch error, depending on strictChecksums.
func (w *Walker) checksumMismatch(what string) error {
	const fn = "walker.checksumMismatch"
	if w.strictChecksums {
		return types.Newf(types.KindChecksumMismatch, fn, "%s: checksum mismatch", what)
	}
	msg := fmt.Sprintf("%s: checksum mismatch", what)
	w.warnings = append(w.warnings, msg)
	w.log.Info("checksum mismatch, continuing (non-strict)", "region", what)
	return nil
}

// Walk unlocks via unl, bootstraps reserved regions from the volume header
// and metadata blocks, then populates allocated extents from each logical
// volume's segment descriptors.
func (w *Walker) Walk(unl unlocker.Unlocker, sources []string, creds unlocker.Credentials) error {
	const fn = "walker.Walk"

	buf, header, err := w.readHeader()
	if err != nil {
		return types.Wrap(types.KindIoRead, fn, "decoding volume header", err)
	}
	if header.BlockSize == 0 {
		return types.Newf(types.KindInvalidArgument, fn, "volume header declares block_size 0")
	}
	if !codec.VerifyVolumeHeaderChecksum(buf) {
		if err := w.checksumMismatch("volume header"); err != nil {
			return types.Wrap(types.KindChecksumMismatch, fn, "volume header", err)
		}
	}
	w.store.State().BlockSize = header.BlockSize

	pvInfos, lvInfos, err := unl.Open(sources, w.offset, creds)
	if err != nil {
		return types.Wrap(types.KindInvalidArgument, fn, "unlocking volume", err)
	}

	if err := w.bootstrapPhysicalVolumes(pvInfos, header); err != nil {
		return types.Wrap(types.KindInvalidArgument, fn, "bootstrapping physical volumes", err)
	}

	for _, lv := range lvInfos {
		if err := w.walkLogicalVolume(lv); err != nil {
			return types.Wrap(types.KindInvalidArgument, fn, "walking logical volume", err)
		}
	}

	w.store.RecomputeStatistics()
	return nil
}

func (w *Walker) bootstrapPhysicalVolumes(pvInfos []unlocker.PhysicalVolumeInfo, header *codec.VolumeHeader) error {
	const fn = "walker.bootstrapPhysicalVolumes"
	blockSize := uint64(header.BlockSize)
	metadataSize := header.MetadataSize

	for _, pv := range pvInfos {
		pvIndex, err := w.store.AddPhysicalVolume(pv.UUID, pv.SizeBytes/blockSize)
		if err != nil {
			return err
		}
		w.log.Debug("added physical volume", "index", pvIndex, "size_blocks", pv.SizeBytes/blockSize)

		if err := w.store.MarkReserved(pvIndex, 0, 1, "Volume header"); err != nil {
			return err
		}
	}

	if len(pvInfos) == 0 {
		return nil
	}

	// The four metadata slots, and the encrypted metadata regions located
	// through them, are marked only against physical volume 0 regardless
	// of which pv actually holds them.
	const metadataPV = 0
	metadataBlocksPerSlot := metadataSize / blockSize
	offsets := header.MetadataOffsets()

	seenTransactions := make(map[uint64]bool, types.MetadataSlotCount)
	var firstSlotBlock []byte

	for i, byteOffset := range offsets {
		if err := w.abortCheckPoint(); err != nil {
			return err
		}

		startBlock := byteOffset / blockSize
		if err := w.store.MarkReserved(metadataPV, startBlock, metadataBlocksPerSlot,
			metadataSlotDescription(i)); err != nil {
			return err
		}

		block := make([]byte, metadataSize)
		if _, err := w.source.ReadAt(block, int64(w.offset+byteOffset)); err != nil {
			return types.Wrap(types.KindIoRead, fn, "reading metadata block", err)
		}
		if !codec.VerifyMetadataBlockChecksum(block, int(metadataSize)) {
			if err := w.checksumMismatch(metadataSlotDescription(i)); err != nil {
				return err
			}
		}
		w.metadataBlocksProcessed++
		seenTransactions[codec.TransactionID(block)] = true

		if i == 0 {
			firstSlotBlock = block
		}
	}
	w.transactionsProcessed = uint64(len(seenTransactions))

	loc := codec.LocateEncryptedMetadata(firstSlotBlock, header.BlockSize)
	if !loc.Found {
		w.log.Debug("no encrypted metadata descriptor found")
		return nil
	}
	if loc.EncryptedMetadataSize > 0 {
		if err := w.store.MarkReserved(metadataPV, loc.EncryptedMetadata1Off/blockSize,
			loc.EncryptedMetadataSize/blockSize, "Encrypted metadata 1"); err != nil {
			return err
		}
		if err := w.store.MarkReserved(metadataPV, loc.EncryptedMetadata2Off/blockSize,
			loc.EncryptedMetadataSize/blockSize, "Encrypted metadata 2"); err != nil {
			return err
		}
	}
	return nil
}

func (w *Walker) walkLogicalVolume(lv unlocker.LogicalVolumeInfo) error {
	if err := w.abortCheckPoint(); err != nil {
		return err
	}

	blockSize := uint64(w.store.State().BlockSize)
	lvIndex, err := w.store.AddLogicalVolume(lv.Identifier, lv.SizeBytes/blockSize)
	if err != nil {
		return err
	}
	w.log.Info("walking logical volume", "index", lvIndex, "segments", len(lv.SegmentDescriptors))

	for _, seg := range lv.SegmentDescriptors {
		overlap, err := w.store.CheckOverlap(seg.PhysicalVolumeIndex, seg.PhysicalBlockNumber, seg.NumberOfBlocks)
		if err != nil {
			return err
		}
		if overlap != nil {
			violation := types.Newf(types.KindProvenanceViolation, "walker.walkLogicalVolume",
				"segment [pv=%d start=%d count=%d] overlaps existing %s extent [start=%d count=%d]",
				seg.PhysicalVolumeIndex, seg.PhysicalBlockNumber, seg.NumberOfBlocks,
				overlap.State, overlap.PhysicalStart, overlap.PhysicalCount)
			w.warnings = append(w.warnings, violation.Error())
			w.log.Info("provenance violation: overlapping segment descriptor",
				"pv", seg.PhysicalVolumeIndex, "start", seg.PhysicalBlockNumber)
		}

		prov := types.Provenance{BlockType: types.BlockTypeSegmentDescriptor}
		if err := w.store.MarkAllocated(seg.PhysicalVolumeIndex, seg.PhysicalBlockNumber, seg.NumberOfBlocks,
			lvIndex, seg.LogicalBlockNumber, prov); err != nil {
			return err
		}
	}
	return nil
}

func metadataSlotDescription(i int) string {
	switch i {
	case 0:
		return "Metadata block 0"
	case 1:
		return "Metadata block 1"
	case 2:
		return "Metadata block 2"
	default:
		return "Metadata block 3"
	}
}
