// Package extentstore holds the in-memory allocation state: a VolumeState
// plus the operations that keep its extent lists sorted while it is
// populated. Insertion does not reject overlapping extents; CheckOverlap
// lets callers detect them.
package extentstore

import (
	"sort"

	"github.com/forensicsoft/go-fvde-core/internal/types"
)

// Store owns a *types.VolumeState and is the only thing in this repo
// allowed to mutate it.
type Store struct {
	state *types.VolumeState
}

// New returns a Store wrapping a freshly created, empty VolumeState.
func New() *Store {
	return &Store{state: types.NewVolumeState()}
}

// State returns the underlying VolumeState for read-only consumption by
// reporters and the rewriter.
func (s *Store) State() *types.VolumeState {
	return s.state
}

// AddPhysicalVolume appends a new, empty physical volume and returns its
// index.
func (s *Store) AddPhysicalVolume(uuid types.UUID, sizeInBlocks uint64) (int, error) {
	const fn = "extentstore.AddPhysicalVolume"
	if len(s.state.PhysicalVolumes) >= types.MaxVolumes {
		return 0, types.Newf(types.KindCapacityExceeded, fn,
			"cannot add physical volume: already holding %d (max %d)", len(s.state.PhysicalVolumes), types.MaxVolumes)
	}
	s.state.PhysicalVolumes = append(s.state.PhysicalVolumes, &types.PhysicalVolume{
		UUID:         uuid,
		SizeInBlocks: sizeInBlocks,
	})
	s.state.PhysicalStats = append(s.state.PhysicalStats, types.PhysicalStats{})
	return len(s.state.PhysicalVolumes) - 1, nil
}

// AddLogicalVolume appends a new, empty logical volume and returns its
// index.
func (s *Store) AddLogicalVolume(uuid types.UUID, sizeInBlocks uint64) (int, error) {
	const fn = "extentstore.AddLogicalVolume"
	if len(s.state.LogicalVolumes) >= types.MaxVolumes {
		return 0, types.Newf(types.KindCapacityExceeded, fn,
			"cannot add logical volume: already holding %d (max %d)", len(s.state.LogicalVolumes), types.MaxVolumes)
	}
	s.state.LogicalVolumes = append(s.state.LogicalVolumes, &types.LogicalVolume{
		UUID:         uuid,
		SizeInBlocks: sizeInBlocks,
	})
	s.state.LogicalStats = append(s.state.LogicalStats, types.LogicalStats{})
	return len(s.state.LogicalVolumes) - 1, nil
}

func (s *Store) physicalVolume(pv int) (*types.PhysicalVolume, error) {
	if pv < 0 || pv >= len(s.state.PhysicalVolumes) {
		return nil, types.Newf(types.KindOutOfBounds, "extentstore.physicalVolume",
			"physical volume index %d out of range [0,%d)", pv, len(s.state.PhysicalVolumes))
	}
	return s.state.PhysicalVolumes[pv], nil
}

func (s *Store) logicalVolume(lv int) (*types.LogicalVolume, error) {
	if lv < 0 || lv >= len(s.state.LogicalVolumes) {
		return nil, types.Newf(types.KindOutOfBounds, "extentstore.logicalVolume",
			"logical volume index %d out of range [0,%d)", lv, len(s.state.LogicalVolumes))
	}
	return s.state.LogicalVolumes[lv], nil
}

// insertSortedByPhysicalStart inserts e into pv.Extents keeping the list
// strictly ascending by PhysicalStart; on equal keys the new entry goes
// after existing ones (stable append at equal key).
func insertSortedByPhysicalStart(pv *types.PhysicalVolume, e *types.Extent) {
	i := sort.Search(len(pv.Extents), func(i int) bool {
		return pv.Extents[i].PhysicalStart > e.PhysicalStart
	})
	pv.Extents = append(pv.Extents, nil)
	copy(pv.Extents[i+1:], pv.Extents[i:])
	pv.Extents[i] = e
}

// insertSortedByLogicalStart is the lv-list analogue of
// insertSortedByPhysicalStart.
func insertSortedByLogicalStart(lv *types.LogicalVolume, e *types.Extent) {
	i := sort.Search(len(lv.Extents), func(i int) bool {
		return lv.Extents[i].LogicalStart > e.LogicalStart
	})
	lv.Extents = append(lv.Extents, nil)
	copy(lv.Extents[i+1:], lv.Extents[i:])
	lv.Extents[i] = e
}

// MarkReserved inserts a Reserved extent. Bootstrap-only; it does not
// check for overlap with existing extents.
func (s *Store) MarkReserved(pv int, start, count uint64, description string) error {
	const fn = "extentstore.MarkReserved"
	if count == 0 {
		return types.Newf(types.KindInvalidArgument, fn, "reserved extent must have phys_count > 0")
	}
	pvol, err := s.physicalVolume(pv)
	if err != nil {
		return types.Wrap(types.KindOutOfBounds, fn, "mark_reserved", err)
	}
	insertSortedByPhysicalStart(pvol, &types.Extent{
		State:          types.StateReserved,
		PhysicalVolume: pv,
		PhysicalStart:  start,
		PhysicalCount:  count,
		Description:    description,
	})
	return nil
}

// MarkFree inserts a Free extent.
func (s *Store) MarkFree(pv int, start, count uint64, prov types.Provenance) error {
	const fn = "extentstore.MarkFree"
	if count == 0 {
		return types.Newf(types.KindInvalidArgument, fn, "free extent must have phys_count > 0")
	}
	pvol, err := s.physicalVolume(pv)
	if err != nil {
		return types.Wrap(types.KindOutOfBounds, fn, "mark_free", err)
	}
	insertSortedByPhysicalStart(pvol, &types.Extent{
		State:          types.StateFree,
		PhysicalVolume: pv,
		PhysicalStart:  start,
		PhysicalCount:  count,
		Provenance:     prov,
	})
	return nil
}

// MarkAllocated inserts an Allocated extent into BOTH the pv-list and the
// lv-list. The two list entries are independent
// *Extent values carrying identical PhysicalCount, rather than a single
// shared pointer indexed from both sides, since nothing ever mutates an
// Allocated extent after insertion.
func (s *Store) MarkAllocated(pv int, physStart, count uint64, lv int, logicalStart uint64, prov types.Provenance) error {
	const fn = "extentstore.MarkAllocated"
	if count == 0 {
		return types.Newf(types.KindInvalidArgument, fn, "allocated extent must have phys_count > 0")
	}
	pvol, err := s.physicalVolume(pv)
	if err != nil {
		return types.Wrap(types.KindOutOfBounds, fn, "mark_allocated", err)
	}
	lvol, err := s.logicalVolume(lv)
	if err != nil {
		return types.Wrap(types.KindOutOfBounds, fn, "mark_allocated", err)
	}

	pvExtent := &types.Extent{
		State:          types.StateAllocated,
		PhysicalVolume: pv,
		PhysicalStart:  physStart,
		PhysicalCount:  count,
		LogicalVolume:  lv,
		LogicalStart:   logicalStart,
		Provenance:     prov,
	}
	lvExtent := *pvExtent

	insertSortedByPhysicalStart(pvol, pvExtent)
	insertSortedByLogicalStart(lvol, &lvExtent)
	return nil
}

// FindPhysicalExtent returns the extent whose physical range contains
// block, exploiting the pv-list's sorted order.
func (s *Store) FindPhysicalExtent(pv int, block uint64) (*types.Extent, error) {
	pvol, err := s.physicalVolume(pv)
	if err != nil {
		return nil, types.Wrap(types.KindOutOfBounds, "extentstore.FindPhysicalExtent", "find_physical_extent", err)
	}
	for _, e := range pvol.Extents {
		if e.PhysicalStart > block {
			break
		}
		if block < e.End() {
			return e, nil
		}
	}
	return nil, nil
}

// FindLogicalExtent returns the extent whose logical range contains block,
// exploiting the lv-list's sorted order.
func (s *Store) FindLogicalExtent(lv int, block uint64) (*types.Extent, error) {
	lvol, err := s.logicalVolume(lv)
	if err != nil {
		return nil, types.Wrap(types.KindOutOfBounds, "extentstore.FindLogicalExtent", "find_logical_extent", err)
	}
	for _, e := range lvol.Extents {
		if e.LogicalStart > block {
			break
		}
		if block < e.LogicalStart+e.PhysicalCount {
			return e, nil
		}
	}
	return nil, nil
}

// CheckOverlap returns the first extent in pv's list whose physical range
// intersects [start, start+count), or nil if none does. It early-exits once an extent starts at or beyond
// the queried range's end.
func (s *Store) CheckOverlap(pv int, start, count uint64) (*types.Extent, error) {
	pvol, err := s.physicalVolume(pv)
	if err != nil {
		return nil, types.Wrap(types.KindOutOfBounds, "extentstore.CheckOverlap", "check_overlap", err)
	}
	end := start + count
	for _, e := range pvol.Extents {
		if e.PhysicalStart >= end {
			break
		}
		if e.overlaps(start, count) {
			return e, nil
		}
	}
	return nil, nil
}

// RecomputeStatistics derives per-pv reserved/allocated/free totals and
// per-lv mapped/unmapped totals purely from the extent lists. Idempotent: callable any number of times.
func (s *Store) RecomputeStatistics() {
	for i, pvol := range s.state.PhysicalVolumes {
		var st types.PhysicalStats
		for _, e := range pvol.Extents {
			switch e.State {
			case types.StateReserved:
				st.ReservedBlocks += e.PhysicalCount
			case types.StateAllocated:
				st.AllocatedBlocks += e.PhysicalCount
			case types.StateFree:
				st.FreeBlocks += e.PhysicalCount
			}
		}
		s.state.PhysicalStats[i] = st
	}

	for i, lvol := range s.state.LogicalVolumes {
		var mapped uint64
		for _, e := range lvol.Extents {
			mapped += e.PhysicalCount
		}
		unmapped := int64(lvol.SizeInBlocks) - int64(mapped)
		if unmapped < 0 {
			unmapped = 0
		}
		s.state.LogicalStats[i] = types.LogicalStats{
			MappedBlocks:   mapped,
			UnmappedBlocks: uint64(unmapped),
		}
	}
}
