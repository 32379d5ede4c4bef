package rtp

import (
	"fmt"

	"github.com/gammazero/deque"
	"github.com/pion/rtp"
	"github.com/sirupsen/logrus"

	"github.com/opd-ai/jitterbuf"
)

// Ingest adapts an RTP stream to a jitter buffer.
//
// Push parses and queues packets; Flush drains the queue into a single
// Enqueue call on the buffer. Both belong to the producer thread. A
// typical receive loop pushes everything a socket read produced, then
// flushes once.
type Ingest struct {
	buffer   *jitterbuf.JitterBuffer
	conceal  jitterbuf.ConcealmentCallback
	extender sequenceExtender
	pending  deque.Deque

	elementSize    int
	packetElements int
	log            *logrus.Entry
}

// NewIngest creates an adapter feeding buffer. concealmentCallback is
// passed through to Enqueue on every flush; elementSize and packetElements
// must match the buffer's configuration so payload lengths can be checked
// at the door.
func NewIngest(buffer *jitterbuf.JitterBuffer, elementSize, packetElements int, concealmentCallback jitterbuf.ConcealmentCallback) (*Ingest, error) {
	if buffer == nil {
		return nil, fmt.Errorf("buffer cannot be nil")
	}
	if elementSize <= 0 || packetElements <= 0 {
		return nil, fmt.Errorf("element size and packet elements must be positive, got %d and %d",
			elementSize, packetElements)
	}

	logrus.WithFields(logrus.Fields{
		"function":        "NewIngest",
		"element_size":    elementSize,
		"packet_elements": packetElements,
	}).Info("Creating RTP ingest adapter")

	return &Ingest{
		buffer:         buffer,
		conceal:        concealmentCallback,
		elementSize:    elementSize,
		packetElements: packetElements,
		log:            logrus.WithField("component", "rtp-ingest"),
	}, nil
}

// Push parses one raw RTP packet and queues it for the next Flush.
func (in *Ingest) Push(raw []byte) error {
	var packet rtp.Packet
	if err := packet.Unmarshal(raw); err != nil {
		return fmt.Errorf("parse RTP packet: %w", err)
	}
	return in.PushPacket(&packet)
}

// PushPacket queues an already-parsed RTP packet for the next Flush.
func (in *Ingest) PushPacket(packet *rtp.Packet) error {
	want := in.packetElements * in.elementSize
	if len(packet.Payload) != want {
		return fmt.Errorf("%w: RTP payload is %d bytes, want %d",
			jitterbuf.ErrInvalidArgument, len(packet.Payload), want)
	}

	in.pending.PushBack(jitterbuf.Packet{
		SequenceNumber: in.extender.extend(packet.SequenceNumber),
		Data:           packet.Payload,
		Elements:       in.packetElements,
	})
	return nil
}

// Pending returns the number of packets queued for the next Flush.
func (in *Ingest) Pending() int {
	return in.pending.Len()
}

// Flush hands every queued packet to the buffer in one Enqueue call and
// returns the number of elements enqueued, concealment included.
func (in *Ingest) Flush() (int, error) {
	count := in.pending.Len()
	if count == 0 {
		return 0, nil
	}

	batch := make([]jitterbuf.Packet, 0, count)
	for in.pending.Len() > 0 {
		batch = append(batch, in.pending.PopFront().(jitterbuf.Packet))
	}

	enqueued, err := in.buffer.Enqueue(batch, in.conceal)
	if err != nil {
		return enqueued, fmt.Errorf("enqueue RTP batch: %w", err)
	}
	in.log.WithFields(logrus.Fields{
		"function": "Flush",
		"packets":  count,
		"elements": enqueued,
	}).Debug("Flushed RTP batch into jitter buffer")
	return enqueued, nil
}
