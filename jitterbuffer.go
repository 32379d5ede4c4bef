package jitterbuf

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/opd-ai/jitterbuf/ring"
)

// ConcealmentCallback fills placeholder payloads in place. Each packet's
// Data points into the ring at the placeholder's payload; the callback
// writes synthesised samples through it and must not retain the slice after
// returning. Placeholders left untouched play out as silence (zero bytes).
type ConcealmentCallback func(placeholders []Packet)

// Config holds the construction parameters for a JitterBuffer.
type Config struct {
	// ElementSize is the size of one media element in bytes, e.g. 4 for a
	// stereo 16-bit PCM frame.
	ElementSize int

	// PacketElements is the element count every real packet must carry.
	PacketElements int

	// ClockRate is the element rate in Hz, e.g. 48000 for 48 kHz audio.
	ClockRate uint32

	// MaxLength bounds how much media the buffer holds and how old a slot
	// may grow before it is discarded instead of dequeued.
	MaxLength time.Duration

	// MinLength is how old a slot must be before it is eligible for
	// dequeue. Zero disables the gate.
	MinLength time.Duration

	// Clock is the time source for slot timestamps and age gates.
	// Nil means the system clock.
	Clock TimeProvider

	// Region overrides the backing storage. Nil means a mirror-mapped
	// region sized from the parameters above; tests and platforms without
	// mirror support can pass a ring.SplitRegion instead.
	Region ring.Region
}

// JitterBuffer is a bounded, timestamp-ordered queue of sequence-numbered
// media packets over a single-producer single-consumer byte ring.
//
// Enqueue and Prepare belong to the producer thread, Dequeue to the
// consumer thread. CurrentDepth is safe from either. No operation blocks.
type JitterBuffer struct {
	elementSize    int
	packetElements int
	clockRate      uint32
	minLength      time.Duration
	maxLength      time.Duration

	region ring.Region
	idx    *ring.Index

	conceal concealmentTable

	// writtenElements counts elements visible to the consumer: the
	// producer adds on every slot write, the consumer subtracts for
	// everything it copies out or discards.
	writtenElements atomic.Int64

	// lastWritten is the highest sequence number written; producer side
	// only. hasWritten distinguishes "nothing yet" from sequence zero.
	lastWritten uint64
	hasWritten  bool

	clock  TimeProvider
	closed atomic.Bool
	log    *logrus.Entry
}

// New creates a JitterBuffer. Capacity is derived from the configuration:
// MaxLength worth of elements at ClockRate, each charged ElementSize plus
// MetadataSize bytes, rounded up to the page size. Construction fails if
// the configuration is invalid or the mirror mapping cannot be established.
func New(cfg Config) (*JitterBuffer, error) {
	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}

	region := cfg.Region
	if region == nil {
		size := int(int64(cfg.MaxLength/time.Millisecond) * int64(cfg.ClockRate) / 1000 *
			int64(cfg.ElementSize+MetadataSize))
		var err error
		region, err = ring.NewMirrorRegion(size)
		if err != nil {
			return nil, fmt.Errorf("allocate ring: %w", err)
		}
	}

	b := &JitterBuffer{
		elementSize:    cfg.ElementSize,
		packetElements: cfg.PacketElements,
		clockRate:      cfg.ClockRate,
		minLength:      cfg.MinLength,
		maxLength:      cfg.MaxLength,
		region:         region,
		idx:            ring.NewIndex(region.Size()),
		clock:          getTimeProvider(cfg.Clock),
		log: logrus.WithFields(logrus.Fields{
			"component": "jitterbuffer",
			"buffer_id": uuid.NewString(),
		}),
	}

	b.log.WithFields(logrus.Fields{
		"function":        "New",
		"element_size":    cfg.ElementSize,
		"packet_elements": cfg.PacketElements,
		"clock_rate":      cfg.ClockRate,
		"max_length_ms":   cfg.MaxLength.Milliseconds(),
		"min_length_ms":   cfg.MinLength.Milliseconds(),
		"capacity_bytes":  region.Size(),
	}).Info("Jitter buffer created")

	return b, nil
}

func validateConfig(cfg *Config) error {
	switch {
	case cfg.ElementSize <= 0:
		return fmt.Errorf("%w: element size must be positive, got %d", ErrInvalidConfig, cfg.ElementSize)
	case cfg.PacketElements <= 0:
		return fmt.Errorf("%w: packet elements must be positive, got %d", ErrInvalidConfig, cfg.PacketElements)
	case cfg.ClockRate == 0:
		return fmt.Errorf("%w: clock rate must be positive", ErrInvalidConfig)
	case cfg.MaxLength <= 0:
		return fmt.Errorf("%w: max length must be positive, got %v", ErrInvalidConfig, cfg.MaxLength)
	case cfg.MinLength < 0:
		return fmt.Errorf("%w: min length must not be negative, got %v", ErrInvalidConfig, cfg.MinLength)
	case cfg.MinLength >= cfg.MaxLength:
		return fmt.Errorf("%w: min length %v must be below max length %v", ErrInvalidConfig, cfg.MinLength, cfg.MaxLength)
	}
	if cfg.Region != nil && cfg.Region.Size() < MetadataSize+cfg.PacketElements*cfg.ElementSize {
		return fmt.Errorf("%w: region of %d bytes cannot hold one packet", ErrInvalidConfig, cfg.Region.Size())
	}
	return nil
}

// slotSize returns the ring footprint of a slot holding elements elements.
func (b *JitterBuffer) slotSize(elements int) int {
	return MetadataSize + elements*b.elementSize
}

// nowMS returns the clock reading in milliseconds since epoch.
func (b *JitterBuffer) nowMS() int64 {
	return b.clock.Now().UnixMilli()
}

// Enqueue admits packets in arrival order. Must be called from the single
// producer thread.
//
// A packet at or below the last written sequence number is treated as a
// late update for a concealed slot. A packet that skips ahead first has the
// gap concealed: placeholder slots are written for the missing sequence
// numbers (as many as fit) and concealmentCallback is invoked once for that
// gap with descriptors pointing at their in-ring payloads, so a batch with
// several gaps invokes it several times. A packet that does not
// fit ends the call; it and any packets after it are dropped.
//
// Returns the total number of elements enqueued, concealment included.
func (b *JitterBuffer) Enqueue(packets []Packet, concealmentCallback ConcealmentCallback) (int, error) {
	if b.closed.Load() {
		return 0, ErrBufferClosed
	}

	b.conceal.reap()

	enqueued := 0
	for i := range packets {
		p := &packets[i]

		if b.hasWritten && p.SequenceNumber <= b.lastWritten {
			enqueued += b.update(p)
			continue
		}

		if b.hasWritten && p.SequenceNumber > b.lastWritten+1 {
			enqueued += b.concealGap(p.SequenceNumber-b.lastWritten-1, concealmentCallback)
		}

		if err := b.validatePacket(p); err != nil {
			return enqueued, err
		}

		if !b.writeSlot(p, false) {
			b.log.WithFields(logrus.Fields{
				"function":        "Enqueue",
				"sequence_number": p.SequenceNumber,
				"written_bytes":   b.idx.Written(),
				"dropped_packets": len(packets) - i,
			}).Warn("Ring full, dropping remainder of batch")
			break
		}
		b.lastWritten = p.SequenceNumber
		b.hasWritten = true
		enqueued += p.Elements
	}
	return enqueued, nil
}

// Prepare conceals the gap up to, but excluding, an expected sequence
// number before its packet arrives. Must be called from the single producer
// thread. Returns the number of elements concealed.
func (b *JitterBuffer) Prepare(sequenceNumber uint64, concealmentCallback ConcealmentCallback) (int, error) {
	if b.closed.Load() {
		return 0, ErrBufferClosed
	}
	if !b.hasWritten || sequenceNumber <= b.lastWritten+1 {
		return 0, nil
	}
	b.conceal.reap()
	return b.concealGap(sequenceNumber-b.lastWritten-1, concealmentCallback), nil
}

// writeSlot lays a packet down at the write offset: payload first, header
// last, so a concurrent reader never sees a header advertising unwritten
// bytes. Returns false when the slot does not fit.
func (b *JitterBuffer) writeSlot(p *Packet, concealment bool) bool {
	total := b.slotSize(p.Elements)
	if b.idx.Free() < total {
		return false
	}

	size := b.idx.Size()
	off := b.idx.WriteOffset()
	b.region.WriteAt(p.Data, (off+MetadataSize)%size)

	h := header{
		SequenceNumber: p.SequenceNumber,
		Timestamp:      b.nowMS(),
		Elements:       p.Elements,
		Concealment:    concealment,
	}
	var hbuf [MetadataSize]byte
	h.marshal(hbuf[:])
	b.region.WriteAt(hbuf[:], off)

	b.idx.ForwardWrite(total)
	b.writtenElements.Add(int64(p.Elements))
	return true
}

// concealGap writes placeholder slots for missing sequence numbers directly
// after lastWritten, inserts their concealment entries, then hands the
// caller's generator one descriptor per placeholder pointing at its in-ring
// payload. Payloads are zeroed first so an unfilled placeholder plays out
// as silence. Returns the number of elements concealed.
func (b *JitterBuffer) concealGap(missing uint64, concealmentCallback ConcealmentCallback) int {
	slot := b.slotSize(b.packetElements)
	toConceal := uint64(b.idx.Free() / slot)
	if toConceal > missing {
		toConceal = missing
	}
	if toConceal < missing {
		b.log.WithFields(logrus.Fields{
			"function":  "concealGap",
			"missing":   missing,
			"concealed": toConceal,
		}).Warn("Not enough space to conceal whole gap")
	}
	if toConceal == 0 {
		return 0
	}

	size := b.idx.Size()
	payloadLen := b.packetElements * b.elementSize
	zero := make([]byte, payloadLen)

	placeholders := make([]Packet, 0, toConceal)
	offsets := make([]int, 0, toConceal)

	now := b.nowMS()
	for n := uint64(0); n < toConceal; n++ {
		seq := b.lastWritten + 1 + n
		off := b.idx.WriteOffset()
		payOff := (off + MetadataSize) % size

		b.region.WriteAt(zero, payOff)
		h := header{
			SequenceNumber: seq,
			Timestamp:      now,
			Elements:       b.packetElements,
			Concealment:    true,
		}
		var hbuf [MetadataSize]byte
		h.marshal(hbuf[:])
		b.region.WriteAt(hbuf[:], off)

		if !b.conceal.insert(seq, off) {
			b.log.WithFields(logrus.Fields{
				"function":        "concealGap",
				"sequence_number": seq,
			}).Error("Concealment entry already live for sequence number")
		}
		b.idx.ForwardWrite(slot)

		placeholders = append(placeholders, Packet{
			SequenceNumber: seq,
			Data:           b.region.Window(payOff, payloadLen),
			Elements:       b.packetElements,
		})
		offsets = append(offsets, payOff)
	}

	if concealmentCallback != nil {
		concealmentCallback(placeholders)
		for n := range placeholders {
			b.region.Commit(offsets[n], placeholders[n].Data)
		}
	}

	b.writtenElements.Add(int64(toConceal) * int64(b.packetElements))
	b.lastWritten += toConceal
	return int(toConceal) * b.packetElements
}

// update is the late path: a packet at or below lastWritten replaces the
// payload of its concealment slot if the slot is still unread. The slot
// keeps its concealment timestamp so the age gates run from when it first
// became visible. Returns the number of elements updated.
func (b *JitterBuffer) update(p *Packet) int {
	entry, ok := b.conceal.lookup(p.SequenceNumber)
	if !ok {
		b.log.WithFields(logrus.Fields{
			"function":        "update",
			"sequence_number": p.SequenceNumber,
		}).Debug("Late packet has no concealment slot, dropping")
		return 0
	}
	if !entry.acquire() {
		// Consumer is mid-read on this slot; real data loses the race.
		return 0
	}
	defer entry.release()
	if entry.stale {
		return 0
	}

	var hbuf [MetadataSize]byte
	b.region.ReadAt(hbuf[:], entry.offset)
	var h header
	h.unmarshal(hbuf[:])

	if h.SequenceNumber != p.SequenceNumber || !h.Concealment {
		// The slot was recycled under the entry's feet.
		b.log.WithFields(logrus.Fields{
			"function":        "update",
			"sequence_number": p.SequenceNumber,
			"header_sequence": h.SequenceNumber,
		}).Warn("Concealment entry no longer matches its slot")
		b.conceal.remove(p.SequenceNumber)
		return 0
	}

	if p.Elements < h.Elements || len(p.Data) != p.Elements*b.elementSize {
		b.log.WithFields(logrus.Fields{
			"function":        "update",
			"sequence_number": p.SequenceNumber,
			"packet_elements": p.Elements,
			"slot_elements":   h.Elements,
		}).Warn("Update payload cannot cover concealment slot")
		return 0
	}

	// A partial prior read shrank the slot; only its tail is still in the
	// ring, so copy the matching tail of the packet.
	srcOffset := (p.Elements - h.Elements) * b.elementSize
	n := h.Elements * b.elementSize
	b.region.WriteAt(p.Data[srcOffset:srcOffset+n], (entry.offset+MetadataSize)%b.idx.Size())

	h.Concealment = false
	h.marshal(hbuf[:])
	b.region.WriteAt(hbuf[:], entry.offset)

	b.conceal.remove(p.SequenceNumber)
	return h.Elements
}

// Dequeue copies up to elements elements into dest in sequence order. Must
// be called from the single consumer thread. dest must hold at least
// elements*ElementSize bytes.
//
// Slots younger than MinLength stop the walk; slots whose age has reached
// MaxLength are discarded and skipped. A slot only partially consumed has its header
// rewritten in place with the remaining element count.
//
// Returns the number of elements copied.
func (b *JitterBuffer) Dequeue(dest []byte, elements int) (int, error) {
	if b.closed.Load() {
		return 0, ErrBufferClosed
	}
	need := elements * b.elementSize
	if len(dest) < need {
		return 0, fmt.Errorf("%w: destination is %d bytes, want %d for %d elements",
			ErrInvalidArgument, len(dest), need, elements)
	}

	produced := 0 // elements copied to dest
	dropped := 0  // elements discarded (aged out or racing an update)
	destOffset := 0

	for produced < elements {
		if b.idx.Written() < MetadataSize {
			break
		}

		var hbuf [MetadataSize]byte
		b.region.ReadAt(hbuf[:], b.idx.ReadOffset())
		b.idx.ForwardRead(MetadataSize)
		var h header
		h.unmarshal(hbuf[:])

		var entry *concealmentEntry
		if h.Concealment {
			e, ok := b.conceal.lookup(h.SequenceNumber)
			if !ok {
				b.log.WithFields(logrus.Fields{
					"function":        "Dequeue",
					"sequence_number": h.SequenceNumber,
				}).Error("Concealment slot has no table entry")
				b.idx.UnwindRead(MetadataSize)
				break
			}
			if !e.acquire() {
				// The update path owns the slot: skip the synthesised
				// payload, the real data takes its place.
				b.idx.ForwardRead(h.Elements * b.elementSize)
				dropped += h.Elements
				continue
			}
			entry = e
		}

		age := time.Duration(b.nowMS()-h.Timestamp) * time.Millisecond
		if age < b.minLength {
			b.idx.UnwindRead(MetadataSize)
			if entry != nil {
				entry.release()
			}
			break
		}
		if age >= b.maxLength {
			b.idx.ForwardRead(h.Elements * b.elementSize)
			dropped += h.Elements
			b.log.WithFields(logrus.Fields{
				"function":        "Dequeue",
				"sequence_number": h.SequenceNumber,
				"age_ms":          age.Milliseconds(),
			}).Debug("Discarding slot past max age")
			if entry != nil {
				entry.stale = true
				entry.release()
			}
			continue
		}

		available := h.Elements * b.elementSize
		toCopy := available
		if remaining := need - destOffset; toCopy > remaining {
			toCopy = remaining
		}
		b.region.ReadAt(dest[destOffset:destOffset+toCopy], b.idx.ReadOffset())
		b.idx.ForwardRead(toCopy)
		destOffset += toCopy
		produced += toCopy / b.elementSize

		if toCopy < available {
			// Shrink the slot in place: back the read offset up over a
			// header's worth of consumed payload and rewrite it there.
			b.idx.UnwindRead(MetadataSize)
			h.Elements = (available - toCopy) / b.elementSize
			h.marshal(hbuf[:])
			b.region.WriteAt(hbuf[:], b.idx.ReadOffset())
			if entry != nil {
				entry.offset = b.idx.ReadOffset()
				entry.release()
			}
		} else if entry != nil {
			entry.stale = true
			entry.release()
		}
	}

	if produced+dropped > 0 {
		b.writtenElements.Add(int64(-(produced + dropped)))
	}
	return produced, nil
}

// CurrentDepth reports how much media the consumer could still drain,
// as a duration at the configured clock rate. Safe from either thread.
func (b *JitterBuffer) CurrentDepth() time.Duration {
	return time.Duration(b.writtenElements.Load()) * time.Second / time.Duration(b.clockRate)
}

// Close tears the ring down. The buffer must be quiescent: no Enqueue,
// Prepare or Dequeue may be in flight or issued afterwards.
func (b *JitterBuffer) Close() error {
	if !b.closed.CompareAndSwap(false, true) {
		return nil
	}
	b.log.WithField("function", "Close").Info("Jitter buffer closed")
	return b.region.Close()
}
