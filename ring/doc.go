// Package ring provides the byte storage and index primitives under the
// jitter buffer: a fixed-size memory region addressed modulo its size, and
// the single-producer single-consumer offset bookkeeping over it.
//
// Two Region implementations exist. MirrorRegion maps the same physical
// pages twice back to back, so any span of up to Size bytes starting inside
// [0, Size) is contiguous in virtual memory regardless of where the ring
// seam falls. SplitRegion is a plain allocation that splits accesses
// crossing the seam; it needs no page alignment or syscalls and backs the
// algorithm tests and platforms without mirror support.
package ring
