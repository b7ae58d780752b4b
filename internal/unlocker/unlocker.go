// Package unlocker defines the contract this repo consumes from an
// external FVDE unlocker. Deriving a volume master key from a password,
// recovery password, raw key, or EncryptedRoot plist is explicitly out of
// scope — this package only describes the shape of that interaction
// so the Volume Walker can be written and tested against it.
package unlocker

import "github.com/forensicsoft/go-fvde-core/internal/types"

// Credentials names one of the ways a caller may authenticate to an
// Unlocker. Exactly one non-empty field is expected to be set.
type Credentials struct {
	Password              string
	RecoveryPassword       string
	RawMasterKeyHex        string // 32 hex chars -> 16 bytes
	EncryptedRootPlistPath string
}

// SegmentDescriptor maps a contiguous logical range onto a contiguous
// physical range within one physical volume.
type SegmentDescriptor struct {
	PhysicalVolumeIndex int
	PhysicalBlockNumber uint64
	NumberOfBlocks      uint64
	LogicalBlockNumber  uint64
}

// PhysicalVolumeInfo is the subset of an opened physical volume's
// properties the walker needs.
type PhysicalVolumeInfo struct {
	UUID         types.UUID
	SizeBytes    uint64
}

// LogicalVolumeInfo is what the Unlocker yields for each logical volume
// once unlocked.
type LogicalVolumeInfo struct {
	IsLocked            bool
	Identifier          types.UUID
	UTF8Name            string
	SizeBytes           uint64
	VolumeMasterKey     [16]byte
	VolumeTweakKey      [32]byte
	SegmentDescriptors  []SegmentDescriptor
}

// Unlocker is the external collaborator this repo consumes. A real
// implementation derives keys from Credentials against one or more source
// paths at a given volume offset; that derivation is out of scope here.
type Unlocker interface {
	// Open unlocks the container described by sources/offset using creds
	// and returns its physical and logical volumes. Logical volumes that
	// could not be unlocked are still returned, with IsLocked true and
	// zeroed key material.
	Open(sources []string, offset uint64, creds Credentials) (PhysicalVolumes []PhysicalVolumeInfo, LogicalVolumes []LogicalVolumeInfo, err error)

	// Close releases any resources (open file handles, credential
	// buffers) held by a prior Open call.
	Close() error
}

// NotImplemented is the Unlocker the CLI falls back to when no real
// implementation has been wired in. Open fails with UnsupportedValue rather than
// silently returning an empty volume; Close is a no-op.
type NotImplemented struct{}

var _ Unlocker = NotImplemented{}

func (NotImplemented) Open(sources []string, offset uint64, creds Credentials) ([]PhysicalVolumeInfo, []LogicalVolumeInfo, error) {
	return nil, nil, types.Newf(types.KindUnsupportedValue, "unlocker.NotImplemented.Open",
		"no Unlocker implementation is wired in; credential derivation is out of scope for this tool")
}

func (NotImplemented) Close() error { return nil }

// ZeroKeys overwrites a logical volume's key material in place. Callers
// MUST invoke this once a logical volume's keys are no longer needed.
func (l *LogicalVolumeInfo) ZeroKeys() {
	for i := range l.VolumeMasterKey {
		l.VolumeMasterKey[i] = 0
	}
	for i := range l.VolumeTweakKey {
		l.VolumeTweakKey[i] = 0
	}
}
