package check

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forensicsoft/go-fvde-core/internal/extentstore"
	"github.com/forensicsoft/go-fvde-core/internal/types"
)

// TestBlockConversionRoundTrip verifies the sector-to-block round trip
// holds exactly when sector*512 is a multiple of blockSize.
func TestBlockConversionRoundTrip(t *testing.T) {
	blockSize := uint32(4096)
	for _, sector := range []uint64{0, 8, 16, 100, 4096} {
		block := LinuxSectorToFVDEBlock(sector, blockSize)
		gotSector := FVDEBlockToLinuxSector(block, blockSize)
		if (sector*512)%uint64(blockSize) == 0 {
			assert.Equal(t, sector, gotSector)
		}
	}
}

func buildCheckStore(t *testing.T) *extentstore.Store {
	t.Helper()
	store := extentstore.New()
	store.State().BlockSize = 4096

	pvUUID := types.UUID{1}
	lvUUID := types.UUID{2}
	pv, err := store.AddPhysicalVolume(pvUUID, 1000)
	require.NoError(t, err)
	lv, err := store.AddLogicalVolume(lvUUID, 100)
	require.NoError(t, err)

	require.NoError(t, store.MarkReserved(pv, 0, 1, "Volume header"))
	require.NoError(t, store.MarkAllocated(pv, 10, 5, lv, 0, types.Provenance{BlockType: types.BlockTypeSegmentDescriptor}))
	store.RecomputeStatistics()
	return store
}

func TestBuildReportSchema(t *testing.T) {
	store := buildCheckStore(t)
	proc := Processing{Order: "ascending", TransactionsProcessed: 3, MetadataBlocksProcessed: 4}
	report := BuildReport(store.State(), proc, nil, []string{"warn1"})

	raw, err := json.Marshal(report)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Contains(t, decoded, "volume")
	assert.Contains(t, decoded, "processing")
	assert.Contains(t, decoded, "allocation")
	assert.Contains(t, decoded, "errors")
	assert.Contains(t, decoded, "warnings")

	assert.Equal(t, uint64(1), report.Allocation.Physical["0"].ReservedBlocks)
	assert.Equal(t, uint64(5), report.Allocation.Physical["0"].AllocatedBlocks)
	assert.Equal(t, uint64(5), report.Allocation.Logical["0"].MappedBlocks)
}

func TestAllocationSummaryAndMap(t *testing.T) {
	store := buildCheckStore(t)
	summary := AllocationSummary(store.State())
	assert.Contains(t, summary, "pv 0")
	assert.Contains(t, summary, "lv 0")

	allocMap := AllocationMap(store.State(), false)
	assert.Contains(t, allocMap, "Volume header")
	assert.Contains(t, allocMap, "lv=0")
}

func TestAllocationMapTruncation(t *testing.T) {
	store := extentstore.New()
	store.State().BlockSize = 4096
	pv, err := store.AddPhysicalVolume(types.UUID{1}, 1_000_000)
	require.NoError(t, err)
	for i := 0; i < AllocationMapLineLimit+5; i++ {
		require.NoError(t, store.MarkReserved(pv, uint64(i*2), 1, "x"))
	}
	store.RecomputeStatistics()

	truncated := AllocationMap(store.State(), false)
	assert.Contains(t, truncated, "truncated")

	full := AllocationMap(store.State(), true)
	assert.NotContains(t, full, "truncated")
}

func TestLookupLinuxSectorAllocated(t *testing.T) {
	store := buildCheckStore(t)
	res, err := LookupLinuxSector(store, 10*8) // 10 blocks * (4096/512) sectors/block
	require.NoError(t, err)
	assert.Equal(t, types.StateAllocated, res.State)
	assert.NotNil(t, res.PhysicalExtent)
	assert.NotNil(t, res.LogicalExtent)
}

func TestLookupLinuxSectorReserved(t *testing.T) {
	store := buildCheckStore(t)
	res, err := LookupLinuxSector(store, 0)
	require.NoError(t, err)
	assert.Equal(t, types.StateReserved, res.State)
	assert.Equal(t, "Volume header", res.Description)
}

func TestLookupLinuxSectorFree(t *testing.T) {
	store := buildCheckStore(t)
	res, err := LookupLinuxSector(store, 900*8)
	require.NoError(t, err)
	assert.Equal(t, types.StateFree, res.State)
}
