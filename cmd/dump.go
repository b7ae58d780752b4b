package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/forensicsoft/go-fvde-core/internal/abort"
	"github.com/forensicsoft/go-fvde-core/internal/codec"
	"github.com/forensicsoft/go-fvde-core/internal/device"
	"github.com/forensicsoft/go-fvde-core/internal/rewriter"
	"github.com/forensicsoft/go-fvde-core/internal/walker"
)

var (
	dumpSource       string
	dumpDestination  string
	dumpOffset       uint64
	dumpCompact      bool
	dumpForce        bool
	dumpSampleOff    uint64
	dumpSampleLen    uint64
	dumpBestMetadata bool
)

var dumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Extract a sparse or compact forensic image of the structurally significant regions",
	Long: `dump reads the volume header, four metadata-block copies, and the two
encrypted-metadata regions from a source, then writes them to a destination
either sparsely (at their original offsets) or compacted (repacked, with
offsets and checksums rewritten so the copy decodes identically).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDump()
	},
}

func init() {
	rootCmd.AddCommand(dumpCmd)

	dumpCmd.Flags().StringVar(&dumpSource, "source", "", "path to the source file or block device")
	dumpCmd.Flags().StringVar(&dumpDestination, "destination", "", "path to write the dump image to")
	dumpCmd.Flags().Uint64Var(&dumpOffset, "offset", 0, "byte offset of the volume header within the source")
	dumpCmd.Flags().BoolVar(&dumpCompact, "compact", false, "produce a compacted image instead of a sparse one")
	dumpCmd.Flags().BoolVar(&dumpForce, "force", false, "overwrite an existing destination")
	dumpCmd.Flags().Uint64Var(&dumpSampleOff, "sample-offset", 0, "optional byte offset of an encrypted-data sample to include (sparse dumps only; --compact does not copy it)")
	dumpCmd.Flags().Uint64Var(&dumpSampleLen, "sample-length", 0, "length in bytes of the optional encrypted-data sample (sparse dumps only)")
	dumpCmd.Flags().BoolVarP(&dumpBestMetadata, "best-metadata", "b", false, "scan all four metadata copies and extract descriptors from the one with the highest transaction_identifier")
	dumpCmd.MarkFlagRequired("source")
	dumpCmd.MarkFlagRequired("destination")
}

func runDump() error {
	log := rootLogger().WithName("dump")

	src, err := device.OpenSource(dumpSource)
	if err != nil {
		return fmt.Errorf("opening source: %w", err)
	}
	defer src.Close()

	w := walker.New(nil, src, dumpOffset, log, nil, false)
	header, err := w.Header()
	if err != nil {
		return fmt.Errorf("decoding volume header: %w", err)
	}

	headerBytes := make([]byte, 512)
	if _, err := src.ReadAt(headerBytes, int64(dumpOffset)); err != nil {
		return fmt.Errorf("re-reading volume header: %w", err)
	}

	selectedMetadata, err := selectMetadataBlock(src, dumpOffset, header)
	if err != nil {
		return fmt.Errorf("selecting metadata copy: %w", err)
	}

	plan := rewriter.BuildPlan(header, selectedMetadata, dumpSampleOff, dumpSampleLen)

	dst, err := device.CreateDestination(dumpDestination, dumpForce)
	if err != nil {
		return fmt.Errorf("creating destination: %w", err)
	}
	defer dst.Close()

	flag := abort.New()
	stop := abort.WireSignals(flag)
	defer stop()

	chunkSize := rewriter.DefaultChunkSize
	if cfg != nil && cfg.ChunkSizeBytes > 0 {
		chunkSize = int(cfg.ChunkSizeBytes)
	}

	var written uint64
	if dumpCompact {
		written, err = rewriter.DumpCompact(dst, src, headerBytes, plan, chunkSize, flag, log)
	} else {
		written, err = rewriter.DumpSparse(dst, src, headerBytes, plan, header.PhysicalVolumeSize, chunkSize, flag, log)
	}
	if err != nil {
		return fmt.Errorf("writing dump: %w", err)
	}

	log.Info("dump complete", "bytes_written", written, "compact", dumpCompact)
	return nil
}

// selectMetadataBlock reads the first metadata copy by default. When
// --best-metadata is set, it reads all four copies and returns the one
// with the largest transaction_identifier, per dump's optional
// best-metadata selection mode.
func selectMetadataBlock(src io.ReaderAt, offset uint64, header *codec.VolumeHeader) ([]byte, error) {
	offsets := header.MetadataOffsets()

	readSlot := func(byteOffset uint64) ([]byte, error) {
		block := make([]byte, header.MetadataSize)
		if _, err := src.ReadAt(block, int64(offset+byteOffset)); err != nil {
			return nil, fmt.Errorf("reading metadata copy at offset %d: %w", byteOffset, err)
		}
		return block, nil
	}

	if !dumpBestMetadata {
		return readSlot(offsets[0])
	}

	var best []byte
	var bestTxID uint64
	for i, byteOffset := range offsets {
		block, err := readSlot(byteOffset)
		if err != nil {
			return nil, err
		}
		txID := codec.TransactionID(block)
		if i == 0 || txID > bestTxID {
			best = block
			bestTxID = txID
		}
	}
	return best, nil
}
