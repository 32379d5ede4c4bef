//go:build linux || darwin

package ring

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// MirrorRegion is a Region whose backing pages are mapped twice back to
// back. mem spans both halves, so mem[off : off+n] is valid for any
// off < size and n <= size and the seam never splits an access.
type MirrorRegion struct {
	base unsafe.Pointer
	mem  []byte
	size int
}

// mapMirror double-maps the first size bytes of the file behind fd.
// It reserves a 2*size PROT_NONE range, then maps the file over each half
// with MAP_FIXED so both windows alias the same physical pages. x/sys/unix
// has no mmap wrapper that takes a target address, so the fixed-address
// maps go through the raw syscall (mmapRaw, per platform).
func mapMirror(fd int, size int) (*MirrorRegion, error) {
	if err := unix.Ftruncate(fd, int64(size)); err != nil {
		return nil, fmt.Errorf("resize ring backing to %d bytes: %w", size, err)
	}

	base, err := mmapRaw(nil, uintptr(2*size),
		unix.PROT_NONE, unix.MAP_PRIVATE|unix.MAP_ANON, -1, 0)
	if err != nil {
		return nil, fmt.Errorf("reserve %d byte mirror range: %w", 2*size, err)
	}

	if _, err := mmapRaw(base, uintptr(size),
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED|unix.MAP_FIXED, fd, 0); err != nil {
		_ = munmapRaw(base, uintptr(2*size))
		return nil, fmt.Errorf("map first ring half: %w", err)
	}
	if _, err := mmapRaw(unsafe.Add(base, size), uintptr(size),
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED|unix.MAP_FIXED, fd, 0); err != nil {
		_ = munmapRaw(base, uintptr(2*size))
		return nil, fmt.Errorf("map second ring half: %w", err)
	}

	r := &MirrorRegion{
		base: base,
		mem:  unsafe.Slice((*byte)(base), 2*size),
		size: size,
	}

	// Touch both ends of both halves so a broken mapping faults here,
	// during construction, and not mid-stream.
	r.mem[0] = 0
	r.mem[size-1] = 0
	r.mem[size] = 0
	r.mem[2*size-1] = 0

	return r, nil
}

// Size returns the region size in bytes (one half of the mapping).
func (r *MirrorRegion) Size() int {
	return r.size
}

// ReadAt copies len(dst) bytes starting at off into dst.
func (r *MirrorRegion) ReadAt(dst []byte, off int) {
	copy(dst, r.mem[off:off+len(dst)])
}

// WriteAt copies src into the region starting at off.
func (r *MirrorRegion) WriteAt(src []byte, off int) {
	copy(r.mem[off:off+len(src)], src)
}

// Window returns the n bytes starting at off as a direct view. Writes land
// in the ring immediately; Commit is a no-op.
func (r *MirrorRegion) Window(off, n int) []byte {
	return r.mem[off : off+n]
}

// Commit is a no-op: windows alias the mapping.
func (r *MirrorRegion) Commit(int, []byte) {}

// Close unmaps both halves. Best-effort; the first error wins.
func (r *MirrorRegion) Close() error {
	if r.base == nil {
		return nil
	}
	err := munmapRaw(r.base, uintptr(2*r.size))
	r.base = nil
	r.mem = nil
	return err
}
