// Package dmsetup builds Linux device-mapper "crypt" table lines for
// unlocked logical volumes. It does not invoke dmsetup itself in
// library mode; cmd/dmsetup.go decides whether to print or shell out.
package dmsetup

import (
	"fmt"

	"github.com/forensicsoft/go-fvde-core/internal/keyring"
	"github.com/forensicsoft/go-fvde-core/internal/types"
)

const sectorSize = 512

// keyPayloadBytes is the device-mapper keysize token for a 16-byte master
// key concatenated with a 32-byte tweak key.
const keyPayloadBytes = 16 + 32

// Entry is one logical volume's worth of crypt-table material.
type Entry struct {
	UUID              types.UUID
	SizeBytes         uint64
	SourcePath        string
	VolumeOffsetBytes uint64
	Name              string // UTF-8 logical-volume name, may be empty
}

// TableLine formats the dm-crypt mapping line for e. The key itself
// is never embedded in the line; it is referenced by keyring description
// only, so this function has no key material to zero.
func TableLine(e Entry) string {
	sizeSectors := e.SizeBytes / sectorSize
	offsetSectors := e.VolumeOffsetBytes / sectorSize

	return fmt.Sprintf("0 %d crypt aes-xts-plain64 :%d:%s:%s 0 %s %d",
		sizeSectors, keyPayloadBytes, keyring.KeyType, keyring.Description(e.UUID), e.SourcePath, offsetSectors)
}

// KeyDescription is the kernel-keyring description the table line's
// :48:logon:... token references.
func KeyDescription(id types.UUID) string {
	return keyring.Description(id)
}

// MapperName returns name if non-empty, otherwise the "fvde" fallback.
func MapperName(name string) string {
	if name == "" {
		return "fvde"
	}
	return name
}

// ShellCommand formats the shell-mode wrapper for table line, targeting
// mapper device index N (1-based) under mapperName.
func ShellCommand(tableLine, mapperName string, index int) string {
	return fmt.Sprintf("echo %q | dmsetup create %s%d", tableLine, mapperName, index)
}
