package jitterbuf

import (
	"encoding/binary"
	"fmt"
)

// MetadataSize is the fixed byte size of the in-ring header that precedes
// every payload. Slot layout is [header | element_0 .. element_{n-1}],
// tightly packed, so a slot occupies MetadataSize + elements*ElementSize
// bytes.
const MetadataSize = 24

// Header byte layout, little-endian:
//
//	offset 0  uint64 sequence number
//	offset 8  int64  timestamp, milliseconds since epoch
//	offset 16 uint32 element count
//	offset 20 uint8  flags (bit 0: concealment)
//	offset 21 3 bytes reserved
const (
	headerSeqOffset       = 0
	headerTimestampOffset = 8
	headerElementsOffset  = 16
	headerFlagsOffset     = 20

	headerFlagConcealment = 1 << 0
)

// Packet is one sequence-numbered group of fixed-size media elements.
//
// On Enqueue the caller owns Data and the buffer copies it before returning.
// Inside a ConcealmentCallback, Data points into the ring itself: the
// callback may write through it but must not retain it after returning.
type Packet struct {
	// SequenceNumber increases monotonically across the stream. Sequence
	// wraparound is the feeder's problem: the rtp subpackage extends 16-bit
	// RTP sequence numbers into this space before the engine sees them.
	SequenceNumber uint64

	// Data holds Elements fixed-size elements, so
	// len(Data) == Elements*ElementSize for real packets.
	Data []byte

	// Elements is the number of elements in Data.
	Elements int
}

// header is the in-ring slot metadata. The consumer rewrites Elements in
// place after a partial read, so the count a header carries may be smaller
// than the packet it was written with.
type header struct {
	SequenceNumber uint64
	Timestamp      int64 // milliseconds since epoch at write time
	Elements       int
	Concealment    bool
}

// marshal packs the header into buf, which must be at least MetadataSize
// bytes.
func (h *header) marshal(buf []byte) {
	binary.LittleEndian.PutUint64(buf[headerSeqOffset:], h.SequenceNumber)
	binary.LittleEndian.PutUint64(buf[headerTimestampOffset:], uint64(h.Timestamp))
	binary.LittleEndian.PutUint32(buf[headerElementsOffset:], uint32(h.Elements))
	var flags uint8
	if h.Concealment {
		flags |= headerFlagConcealment
	}
	buf[headerFlagsOffset] = flags
	buf[headerFlagsOffset+1] = 0
	buf[headerFlagsOffset+2] = 0
	buf[headerFlagsOffset+3] = 0
}

// unmarshal parses a header from buf, which must be at least MetadataSize
// bytes.
func (h *header) unmarshal(buf []byte) {
	h.SequenceNumber = binary.LittleEndian.Uint64(buf[headerSeqOffset:])
	h.Timestamp = int64(binary.LittleEndian.Uint64(buf[headerTimestampOffset:]))
	h.Elements = int(binary.LittleEndian.Uint32(buf[headerElementsOffset:]))
	h.Concealment = buf[headerFlagsOffset]&headerFlagConcealment != 0
}

// validatePacket checks a real (non-update) packet against the buffer's
// configuration.
func (b *JitterBuffer) validatePacket(p *Packet) error {
	if p.Elements != b.packetElements {
		return fmt.Errorf("%w: packet %d carries %d elements, buffer expects %d",
			ErrInvalidArgument, p.SequenceNumber, p.Elements, b.packetElements)
	}
	if len(p.Data) != p.Elements*b.elementSize {
		return fmt.Errorf("%w: packet %d payload is %d bytes, want %d",
			ErrInvalidArgument, p.SequenceNumber, len(p.Data), p.Elements*b.elementSize)
	}
	return nil
}
