package unlocker

import "github.com/forensicsoft/go-fvde-core/internal/types"

// Stub is a fixed-response Unlocker implementation used by the walker's
// tests; it never touches real credentials or disk state.
type Stub struct {
	PhysicalVolumes []PhysicalVolumeInfo
	LogicalVolumes  []LogicalVolumeInfo
	OpenErr         error
	Closed          bool
}

var _ Unlocker = (*Stub)(nil)

func (s *Stub) Open(sources []string, offset uint64, creds Credentials) ([]PhysicalVolumeInfo, []LogicalVolumeInfo, error) {
	if s.OpenErr != nil {
		return nil, nil, s.OpenErr
	}
	return s.PhysicalVolumes, s.LogicalVolumes, nil
}

func (s *Stub) Close() error {
	s.Closed = true
	return nil
}

// NewSingleVolumeStub is a convenience constructor for the common test
// shape: one physical volume, one logical volume with a handful of
// segment descriptors.
func NewSingleVolumeStub(pvUUID, lvUUID types.UUID, pvSizeBytes, lvSizeBytes uint64, segments []SegmentDescriptor) *Stub {
	return &Stub{
		PhysicalVolumes: []PhysicalVolumeInfo{{UUID: pvUUID, SizeBytes: pvSizeBytes}},
		LogicalVolumes: []LogicalVolumeInfo{{
			Identifier:         lvUUID,
			SizeBytes:          lvSizeBytes,
			SegmentDescriptors: segments,
		}},
	}
}
