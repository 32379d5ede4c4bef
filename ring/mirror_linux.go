package ring

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// NewMirrorRegion allocates a mirror-mapped region of at least size bytes,
// rounded up to the page size. The backing is an anonymous memfd; the fd is
// closed once both mappings are in place.
func NewMirrorRegion(size int) (*MirrorRegion, error) {
	if size <= 0 {
		return nil, fmt.Errorf("region size must be positive, got %d", size)
	}
	size = PageAlign(size)

	fd, err := unix.MemfdCreate("jitterbuf-ring", unix.MFD_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("memfd_create: %w", err)
	}
	defer unix.Close(fd)

	return mapMirror(fd, size)
}

// mmapRaw is mmap(2) with an explicit target address, which the x/sys/unix
// wrappers do not expose.
func mmapRaw(addr unsafe.Pointer, length uintptr, prot, flags, fd int, offset int64) (unsafe.Pointer, error) {
	r0, _, errno := unix.Syscall6(unix.SYS_MMAP,
		uintptr(addr), length, uintptr(prot), uintptr(flags), uintptr(fd), uintptr(offset))
	if errno != 0 {
		return nil, errno
	}
	return unsafe.Pointer(r0), nil
}

// munmapRaw is munmap(2) over an address obtained from mmapRaw.
func munmapRaw(addr unsafe.Pointer, length uintptr) error {
	if _, _, errno := unix.Syscall(unix.SYS_MUNMAP, uintptr(addr), length, 0); errno != 0 {
		return errno
	}
	return nil
}
