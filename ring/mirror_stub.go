//go:build !linux && !darwin

package ring

// MirrorRegion is not available on this platform. Callers can run on a
// SplitRegion instead, at the cost of seam-splitting copies.
type MirrorRegion struct{}

// NewMirrorRegion reports that mirror mapping is unsupported here.
func NewMirrorRegion(size int) (*MirrorRegion, error) {
	return nil, ErrUnsupportedPlatform
}

func (r *MirrorRegion) Size() int              { return 0 }
func (r *MirrorRegion) ReadAt([]byte, int)     {}
func (r *MirrorRegion) WriteAt([]byte, int)    {}
func (r *MirrorRegion) Window(int, int) []byte { return nil }
func (r *MirrorRegion) Commit(int, []byte)     {}
func (r *MirrorRegion) Close() error           { return nil }
