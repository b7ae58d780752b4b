package device

import "github.com/forensicsoft/go-fvde-core/internal/types"

// Pool is the file-IO pool indexed by physical-volume index. Most containers have exactly one physical
// volume at index 0; multi-pv volume groups supply one source path per
// physical volume.
type Pool struct {
	sources []*Source
}

// OpenPool opens one Source per path, in order, so pool index i serves
// physical volume i.
func OpenPool(paths []string) (*Pool, error) {
	const fn = "device.OpenPool"
	if len(paths) == 0 {
		return nil, types.Newf(types.KindInvalidArgument, fn, "no source paths given")
	}
	sources := make([]*Source, 0, len(paths))
	for _, p := range paths {
		s, err := OpenSource(p)
		if err != nil {
			for _, opened := range sources {
				opened.Close()
			}
			return nil, types.Wrap(types.KindIoOpen, fn, "opening pool member", err)
		}
		sources = append(sources, s)
	}
	return &Pool{sources: sources}, nil
}

// Get returns the Source serving physical volume index pv.
func (p *Pool) Get(pv int) (*Source, error) {
	if pv < 0 || pv >= len(p.sources) {
		return nil, types.Newf(types.KindOutOfBounds, "device.Pool.Get",
			"physical volume index %d has no open source (pool size %d)", pv, len(p.sources))
	}
	return p.sources[pv], nil
}

// Primary is a convenience accessor for the common single-pv case.
func (p *Pool) Primary() *Source {
	return p.sources[0]
}

// Close closes every source in the pool, collecting (not stopping at) the
// first error so no descriptor is leaked on a partial failure.
func (p *Pool) Close() error {
	var firstErr error
	for _, s := range p.sources {
		if err := s.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
