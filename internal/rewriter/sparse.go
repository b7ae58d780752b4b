package rewriter

import (
	"io"

	"github.com/forensicsoft/go-fvde-core/internal/abort"
	"github.com/forensicsoft/go-fvde-core/internal/logging"
	"github.com/forensicsoft/go-fvde-core/internal/types"
)

// Truncater is the subset of device.Destination DumpSparse needs to
// pre-size the output so the filesystem leaves the untouched remainder
// sparse.
type Truncater interface {
	io.WriterAt
	Truncate(size int64) error
}

// DumpSparse writes each structurally significant region to its original
// byte offset in dst, after truncating dst to physicalVolumeSize so the
// unwritten remainder reads back as zeros without consuming storage.
func DumpSparse(dst Truncater, src io.ReaderAt, headerBytes []byte, p *Plan, physicalVolumeSize uint64, chunkSize int, abortFlag *abort.Flag, log *logging.Logger) (uint64, error) {
	const fn = "rewriter.DumpSparse"
	if log == nil {
		log = logging.Discard()
	}

	if err := dst.Truncate(int64(physicalVolumeSize)); err != nil {
		return 0, types.Wrap(types.KindIoWrite, fn, "truncating sparse destination", err)
	}

	var total uint64
	if _, err := dst.WriteAt(headerBytes, 0); err != nil {
		return total, types.Wrap(types.KindIoWrite, fn, "writing volume header", err)
	}
	total += uint64(len(headerBytes))
	log.Info("wrote volume header", "bytes", len(headerBytes))

	for i, region := range p.MetadataRegions {
		if abortFlag != nil {
			if err := abortFlag.CheckPoint(); err != nil {
				return total, err
			}
		}
		n, err := copyRegion(dst, src, region.sourceOff, region.sourceOff, region.length, chunkSize, abortFlag, log, region.name)
		total += n
		if err != nil {
			return total, err
		}
		log.Debug("copied metadata region", "index", i)
	}

	if p.EncryptedMetadata.Found && p.EncryptedMetadata.EncryptedMetadataSize > 0 {
		n, err := copyRegion(dst, src, p.EncryptedMetadata.EncryptedMetadata1Off, p.EncryptedMetadata.EncryptedMetadata1Off,
			p.EncryptedMetadata.EncryptedMetadataSize, chunkSize, abortFlag, log, "encrypted metadata 1")
		total += n
		if err != nil {
			return total, err
		}

		n, err = copyRegion(dst, src, p.EncryptedMetadata.EncryptedMetadata2Off, p.EncryptedMetadata.EncryptedMetadata2Off,
			p.EncryptedMetadata.EncryptedMetadataSize, chunkSize, abortFlag, log, "encrypted metadata 2")
		total += n
		if err != nil {
			return total, err
		}
	}

	if p.SampleLength > 0 {
		n, err := copyRegion(dst, src, p.SampleOffset, p.SampleOffset, p.SampleLength, chunkSize, abortFlag, log, "encrypted data sample")
		total += n
		if err != nil {
			return total, err
		}
	}

	return total, nil
}
