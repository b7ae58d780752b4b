package check

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/forensicsoft/go-fvde-core/internal/types"
)

// AllocationMapLineLimit is the default cap on per-extent lines an
// allocation-map report prints unless the caller asks for verbose output.
const AllocationMapLineLimit = 1000

// PhysicalVolumeReport is one physical volume's identity for the JSON
// report.
type PhysicalVolumeReport struct {
	UUID         string `json:"uuid"`
	SizeInBlocks uint64 `json:"size_in_blocks"`
}

// LogicalVolumeReport is one logical volume's identity for the JSON report.
type LogicalVolumeReport struct {
	UUID         string `json:"uuid"`
	SizeInBlocks uint64 `json:"size_in_blocks"`
}

// PhysicalAllocation is one physical volume's derived statistics.
type PhysicalAllocation struct {
	ReservedBlocks  uint64 `json:"reserved_blocks"`
	AllocatedBlocks uint64 `json:"allocated_blocks"`
	FreeBlocks      uint64 `json:"free_blocks"`
}

// LogicalAllocation is one logical volume's derived statistics.
type LogicalAllocation struct {
	MappedBlocks   uint64 `json:"mapped_blocks"`
	UnmappedBlocks uint64 `json:"unmapped_blocks"`
}

// Processing carries the bookkeeping the Walker accumulated while
// traversing the container.
type Processing struct {
	Order                   string `json:"order"`
	TransactionsProcessed   uint64 `json:"transactions_processed"`
	MetadataBlocksProcessed uint64 `json:"metadata_blocks_processed"`
}

// Report is the stable JSON schema for a check run.
type Report struct {
	Volume struct {
		PhysicalVolumes []PhysicalVolumeReport `json:"physical_volumes"`
		LogicalVolumes  []LogicalVolumeReport  `json:"logical_volumes"`
	} `json:"volume"`
	Processing Processing                    `json:"processing"`
	Allocation struct {
		Physical map[string]PhysicalAllocation `json:"physical"`
		Logical  map[string]LogicalAllocation  `json:"logical"`
	} `json:"allocation"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

// BuildReport assembles the JSON-schema report from a populated state; the
// caller supplies the bookkeeping the Walker itself does not store on the
// state (processing order, counters, accumulated error/warning strings).
func BuildReport(state *types.VolumeState, proc Processing, errs, warnings []string) *Report {
	r := &Report{Processing: proc}
	r.Allocation.Physical = make(map[string]PhysicalAllocation, len(state.PhysicalVolumes))
	r.Allocation.Logical = make(map[string]LogicalAllocation, len(state.LogicalVolumes))
	r.Errors = errs
	r.Warnings = warnings

	for i, pv := range state.PhysicalVolumes {
		r.Volume.PhysicalVolumes = append(r.Volume.PhysicalVolumes, PhysicalVolumeReport{
			UUID:         uuid.UUID(pv.UUID).String(),
			SizeInBlocks: pv.SizeInBlocks,
		})
		stats := types.PhysicalStats{}
		if i < len(state.PhysicalStats) {
			stats = state.PhysicalStats[i]
		}
		r.Allocation.Physical[strconv.Itoa(i)] = PhysicalAllocation{
			ReservedBlocks:  stats.ReservedBlocks,
			AllocatedBlocks: stats.AllocatedBlocks,
			FreeBlocks:      stats.FreeBlocks,
		}
	}

	for i, lv := range state.LogicalVolumes {
		r.Volume.LogicalVolumes = append(r.Volume.LogicalVolumes, LogicalVolumeReport{
			UUID:         uuid.UUID(lv.UUID).String(),
			SizeInBlocks: lv.SizeInBlocks,
		})
		stats := types.LogicalStats{}
		if i < len(state.LogicalStats) {
			stats = state.LogicalStats[i]
		}
		r.Allocation.Logical[strconv.Itoa(i)] = LogicalAllocation{
			MappedBlocks:   stats.MappedBlocks,
			UnmappedBlocks: stats.UnmappedBlocks,
		}
	}

	return r
}

// AllocationSummary renders the default human-readable report: one line
// per physical and logical volume with humanized byte sizes.
func AllocationSummary(state *types.VolumeState) string {
	var b strings.Builder
	for i, pv := range state.PhysicalVolumes {
		stats := types.PhysicalStats{}
		if i < len(state.PhysicalStats) {
			stats = state.PhysicalStats[i]
		}
		fmt.Fprintf(&b, "pv %d (%s): size=%s reserved=%d allocated=%d free=%d\n",
			i, uuid.UUID(pv.UUID).String(),
			humanize.Bytes(pv.SizeInBlocks*uint64(state.BlockSize)),
			stats.ReservedBlocks, stats.AllocatedBlocks, stats.FreeBlocks)
	}
	for i, lv := range state.LogicalVolumes {
		stats := types.LogicalStats{}
		if i < len(state.LogicalStats) {
			stats = state.LogicalStats[i]
		}
		fmt.Fprintf(&b, "lv %d (%s): size=%s mapped=%d unmapped=%d\n",
			i, uuid.UUID(lv.UUID).String(),
			humanize.Bytes(lv.SizeInBlocks*uint64(state.BlockSize)),
			stats.MappedBlocks, stats.UnmappedBlocks)
	}
	return b.String()
}

// AllocationMap renders AllocationSummary followed by one line per
// physical-volume extent, sorted by physical start, truncated to
// AllocationMapLineLimit lines unless verbose is set.
func AllocationMap(state *types.VolumeState, verbose bool) string {
	var b strings.Builder
	b.WriteString(AllocationSummary(state))

	type line struct {
		pv int
		e  *types.Extent
	}
	var lines []line
	for i, pv := range state.PhysicalVolumes {
		for _, e := range pv.Extents {
			lines = append(lines, line{pv: i, e: e})
		}
	}
	sort.SliceStable(lines, func(i, j int) bool {
		if lines[i].pv != lines[j].pv {
			return lines[i].pv < lines[j].pv
		}
		return lines[i].e.PhysicalStart < lines[j].e.PhysicalStart
	})

	limit := len(lines)
	truncated := false
	if !verbose && limit > AllocationMapLineLimit {
		limit = AllocationMapLineLimit
		truncated = true
	}

	for _, l := range lines[:limit] {
		fmt.Fprintf(&b, "pv=%d start=%d count=%d state=%s %s\n",
			l.pv, l.e.PhysicalStart, l.e.PhysicalCount, l.e.State, extentDetail(l.e))
	}
	if truncated {
		fmt.Fprintf(&b, "... truncated, %d more extents (use verbose to see all)\n", len(lines)-limit)
	}
	return b.String()
}

func extentDetail(e *types.Extent) string {
	switch e.State {
	case types.StateReserved:
		return e.Description
	case types.StateAllocated:
		return fmt.Sprintf("lv=%d logical_start=%d block_type=0x%04x", e.LogicalVolume, e.LogicalStart, e.Provenance.BlockType)
	default:
		return ""
	}
}
