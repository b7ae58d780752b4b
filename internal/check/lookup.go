package check

import (
	"fmt"

	"github.com/forensicsoft/go-fvde-core/internal/extentstore"
	"github.com/forensicsoft/go-fvde-core/internal/types"
)

// LookupResult is what --lookup-linux-sector=N reports: the FVDE block the
// sector falls in, the extent that covers it in pv 0, and (when
// allocated) the corresponding logical-volume extent.
type LookupResult struct {
	LinuxSector    uint64
	FVDEBlock      uint64
	State          types.State
	Description    string // set when State == Reserved
	Provenance     types.Provenance
	PhysicalExtent *types.Extent
	LogicalExtent  *types.Extent // set when State == Allocated
}

// LookupLinuxSector converts sector to an FVDE block and resolves it
// against pv 0's extent list, reporting state, description/provenance,
// and the containing extent in both address spaces.
func LookupLinuxSector(store *extentstore.Store, sector uint64) (*LookupResult, error) {
	const fn = "check.LookupLinuxSector"

	blockSize := store.State().BlockSize
	block := LinuxSectorToFVDEBlock(sector, blockSize)

	e, err := store.FindPhysicalExtent(0, block)
	if err != nil {
		return nil, types.Wrap(types.KindOutOfBounds, fn, "resolving physical extent", err)
	}
	if e == nil {
		return &LookupResult{LinuxSector: sector, FVDEBlock: block, State: types.StateFree}, nil
	}

	res := &LookupResult{
		LinuxSector:    sector,
		FVDEBlock:      block,
		State:          e.State,
		Description:    e.Description,
		Provenance:     e.Provenance,
		PhysicalExtent: e,
	}

	if e.State == types.StateAllocated {
		logicalBlock := e.LogicalStart + (block - e.PhysicalStart)
		lvExtent, err := store.FindLogicalExtent(e.LogicalVolume, logicalBlock)
		if err != nil {
			return nil, types.Wrap(types.KindOutOfBounds, fn, "resolving logical extent", err)
		}
		res.LogicalExtent = lvExtent
	}

	return res, nil
}

// String renders a LookupResult the way the check command's
// --lookup-linux-sector text path prints it.
func (r *LookupResult) String() string {
	switch r.State {
	case types.StateReserved:
		return fmt.Sprintf("sector %d -> fvde block %d: Reserved (%s)", r.LinuxSector, r.FVDEBlock, r.Description)
	case types.StateAllocated:
		return fmt.Sprintf("sector %d -> fvde block %d: Allocated (lv=%d logical_start=%d block_type=0x%04x) [pv extent start=%d count=%d]",
			r.LinuxSector, r.FVDEBlock, r.PhysicalExtent.LogicalVolume, r.PhysicalExtent.LogicalStart, r.Provenance.BlockType,
			r.PhysicalExtent.PhysicalStart, r.PhysicalExtent.PhysicalCount)
	default:
		return fmt.Sprintf("sector %d -> fvde block %d: Free", r.LinuxSector, r.FVDEBlock)
	}
}
