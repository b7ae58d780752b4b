package rewriter

import (
	"io"

	"github.com/forensicsoft/go-fvde-core/internal/abort"
	"github.com/forensicsoft/go-fvde-core/internal/logging"
	"github.com/forensicsoft/go-fvde-core/internal/types"
)

// DefaultChunkSize is the block-aligned I/O unit for the copy loop.
const DefaultChunkSize = 64 * 1024

// copyRegion copies length bytes from src at srcOff to dst at dstOff,
// chunkSize bytes at a time, polling abortFlag before each chunk. A short read or write is fatal.
func copyRegion(dst io.WriterAt, src io.ReaderAt, dstOff, srcOff, length uint64, chunkSize int, abortFlag *abort.Flag, log *logging.Logger, regionName string) (uint64, error) {
	const fn = "rewriter.copyRegion"
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	buf := make([]byte, chunkSize)

	var copied uint64
	for copied < length {
		if abortFlag != nil {
			if err := abortFlag.CheckPoint(); err != nil {
				log.Debug("abort requested mid-copy", "region", regionName, "copied_bytes", copied)
				return copied, err
			}
		}

		want := uint64(chunkSize)
		if remaining := length - copied; remaining < want {
			want = remaining
		}
		chunk := buf[:want]

		n, err := src.ReadAt(chunk, int64(srcOff+copied))
		if err != nil && !(err == io.EOF && uint64(n) == want) {
			return copied, types.Newf(types.KindIoRead, fn,
				"short read in region %q at source offset %d: %v", regionName, srcOff+copied, err)
		}

		if _, err := dst.WriteAt(chunk, int64(dstOff+copied)); err != nil {
			return copied, types.Newf(types.KindIoWrite, fn,
				"short write in region %q at destination offset %d: %v", regionName, dstOff+copied, err)
		}

		copied += want
	}

	return copied, nil
}
