package device

import (
	"os"

	"github.com/forensicsoft/go-fvde-core/internal/types"
)

// Destination is a write-only handle to the dump output.
type Destination struct {
	file *os.File
}

// CreateDestination creates path for writing. If force is false and path
// already exists, it fails rather than silently overwriting.
func CreateDestination(path string, force bool) (*Destination, error) {
	const fn = "device.CreateDestination"
	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !force {
		flags |= os.O_EXCL
	}
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return nil, types.Newf(types.KindInvalidArgument, fn,
				"destination %q already exists; pass --force to overwrite", path)
		}
		return nil, types.Wrap(types.KindIoOpen, fn, "creating destination", err)
	}
	return &Destination{file: f}, nil
}

// WriteAt satisfies io.WriterAt.
func (d *Destination) WriteAt(p []byte, off int64) (int, error) {
	return d.file.WriteAt(p, off)
}

// Truncate sets the destination's logical length, used by sparse dumps to
// pre-size the file to physical_volume_size before punching in the
// written regions.
func (d *Destination) Truncate(size int64) error {
	const fn = "device.Destination.Truncate"
	if err := d.file.Truncate(size); err != nil {
		return types.Wrap(types.KindIoWrite, fn, "truncating destination", err)
	}
	return nil
}

// Close closes the underlying file handle.
func (d *Destination) Close() error {
	const fn = "device.Destination.Close"
	if d.file == nil {
		return nil
	}
	if err := d.file.Close(); err != nil {
		return types.Wrap(types.KindIoClose, fn, "closing destination", err)
	}
	return nil
}
