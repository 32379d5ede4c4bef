package ring

import (
	"fmt"
	"os"
	"syscall"
	"unsafe"
)

// NewMirrorRegion allocates a mirror-mapped region of at least size bytes,
// rounded up to the page size. Darwin has no memfd, so the backing is an
// unlinked temporary file; the name disappears immediately and the pages
// live only as long as the mappings.
func NewMirrorRegion(size int) (*MirrorRegion, error) {
	if size <= 0 {
		return nil, fmt.Errorf("region size must be positive, got %d", size)
	}
	size = PageAlign(size)

	f, err := os.CreateTemp("", "jitterbuf-ring-*")
	if err != nil {
		return nil, fmt.Errorf("create ring backing file: %w", err)
	}
	defer f.Close()
	if err := os.Remove(f.Name()); err != nil {
		return nil, fmt.Errorf("unlink ring backing file: %w", err)
	}

	return mapMirror(int(f.Fd()), size)
}

// mmapRaw is mmap(2) with an explicit target address, which neither
// x/sys/unix nor the syscall package wraps. The raw syscall goes through
// the libSystem shim on this platform.
func mmapRaw(addr unsafe.Pointer, length uintptr, prot, flags, fd int, offset int64) (unsafe.Pointer, error) {
	r0, _, errno := syscall.Syscall6(syscall.SYS_MMAP,
		uintptr(addr), length, uintptr(prot), uintptr(flags), uintptr(fd), uintptr(offset))
	if errno != 0 {
		return nil, errno
	}
	return unsafe.Pointer(r0), nil
}

// munmapRaw is munmap(2) over an address obtained from mmapRaw.
func munmapRaw(addr unsafe.Pointer, length uintptr) error {
	if _, _, errno := syscall.Syscall(syscall.SYS_MUNMAP, uintptr(addr), length, 0); errno != 0 {
		return errno
	}
	return nil
}
