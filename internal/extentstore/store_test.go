package extentstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forensicsoft/go-fvde-core/internal/types"
)

func TestInsertionOrderAndQueries(t *testing.T) {
	// Insert a reserved extent and two allocated extents out of order, then
	// verify the store keeps pv.Extents sorted ascending by PhysicalStart.
	s := New()
	_, err := s.AddPhysicalVolume(types.UUID{}, 1000)
	require.NoError(t, err)
	_, err = s.AddLogicalVolume(types.UUID{}, 1000)
	require.NoError(t, err)

	require.NoError(t, s.MarkReserved(0, 0, 1, "H"))
	require.NoError(t, s.MarkAllocated(0, 10, 5, 0, 0, types.Provenance{}))
	require.NoError(t, s.MarkAllocated(0, 4, 3, 0, 5, types.Provenance{}))

	pv := s.State().PhysicalVolumes[0]
	require.Len(t, pv.Extents, 3)
	assert.Equal(t, []uint64{0, 4, 10}, []uint64{
		pv.Extents[0].PhysicalStart, pv.Extents[1].PhysicalStart, pv.Extents[2].PhysicalStart,
	})

	overlap, err := s.CheckOverlap(0, 6, 3)
	require.NoError(t, err)
	require.NotNil(t, overlap)
	assert.Equal(t, uint64(4), overlap.PhysicalStart)

	found, err := s.FindPhysicalExtent(0, 12)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, uint64(10), found.PhysicalStart)

	none, err := s.CheckOverlap(0, 100, 5)
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestCapacityExceeded(t *testing.T) {
	// Fill the store to types.MaxVolumes physical volumes, then verify the
	// next add fails and the store still holds exactly the max count.
	s := New()
	for i := 0; i < types.MaxVolumes; i++ {
		uuid := types.UUID{byte(i)}
		_, err := s.AddPhysicalVolume(uuid, 100)
		require.NoError(t, err)
	}

	_, err := s.AddPhysicalVolume(types.UUID{0xff}, 100)
	require.Error(t, err)
	kind, ok := types.AsKind(err)
	require.True(t, ok)
	assert.Equal(t, types.KindCapacityExceeded, kind)
	assert.Len(t, s.State().PhysicalVolumes, types.MaxVolumes)
}

func TestAllocatedExtentAppearsInBothLists(t *testing.T) {
	s := New()
	_, err := s.AddPhysicalVolume(types.UUID{}, 1000)
	require.NoError(t, err)
	_, err = s.AddLogicalVolume(types.UUID{}, 1000)
	require.NoError(t, err)

	require.NoError(t, s.MarkAllocated(0, 100, 20, 0, 0, types.Provenance{TransactionID: 7, BlockType: types.BlockTypeSegmentDescriptor}))

	pvExtent, err := s.FindPhysicalExtent(0, 105)
	require.NoError(t, err)
	require.NotNil(t, pvExtent)

	lvExtent, err := s.FindLogicalExtent(0, 5)
	require.NoError(t, err)
	require.NotNil(t, lvExtent)

	assert.Equal(t, pvExtent.PhysicalCount, lvExtent.PhysicalCount)
	assert.Equal(t, types.StateAllocated, pvExtent.State)
	assert.Equal(t, types.StateAllocated, lvExtent.State)
}

func TestRecomputeStatisticsIsPureAndIdempotent(t *testing.T) {
	s := New()
	_, err := s.AddPhysicalVolume(types.UUID{}, 1000)
	require.NoError(t, err)
	_, err = s.AddLogicalVolume(types.UUID{}, 1000)
	require.NoError(t, err)

	require.NoError(t, s.MarkReserved(0, 0, 10, "header"))
	require.NoError(t, s.MarkAllocated(0, 10, 50, 0, 0, types.Provenance{}))
	require.NoError(t, s.MarkFree(0, 60, 940, types.Provenance{}))

	s.RecomputeStatistics()
	first := s.State().PhysicalStats[0]
	assert.Equal(t, uint64(10), first.ReservedBlocks)
	assert.Equal(t, uint64(50), first.AllocatedBlocks)
	assert.Equal(t, uint64(940), first.FreeBlocks)

	assert.Equal(t, uint64(50), s.State().LogicalStats[0].MappedBlocks)
	assert.Equal(t, uint64(950), s.State().LogicalStats[0].UnmappedBlocks)

	s.RecomputeStatistics()
	assert.Equal(t, first, s.State().PhysicalStats[0])
}

func TestOutOfBoundsIndex(t *testing.T) {
	s := New()
	_, err := s.FindPhysicalExtent(0, 0)
	require.Error(t, err)
	kind, ok := types.AsKind(err)
	require.True(t, ok)
	assert.Equal(t, types.KindOutOfBounds, kind)
}
