package jitterbuf

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGapTriggersConcealment(t *testing.T) {
	buffer, _ := newTestBuffer(t, 0, 100*time.Millisecond)

	_, err := buffer.Enqueue([]Packet{makeTestPacket(1, testPacketElements, 0x01)}, noConcealment(t))
	require.NoError(t, err)

	// Enqueuing 4 conceals 2 and 3.
	var seen []uint64
	enqueued, err := buffer.Enqueue([]Packet{makeTestPacket(4, testPacketElements, 0x04)},
		func(placeholders []Packet) {
			for _, p := range placeholders {
				seen = append(seen, p.SequenceNumber)
				require.Equal(t, testPacketElements, p.Elements)
				require.Len(t, p.Data, testPacketElements*testElementSize)
			}
			fillWithSequence(placeholders)
		})
	require.NoError(t, err)
	assert.Equal(t, 3*testPacketElements, enqueued)
	assert.Equal(t, []uint64{2, 3}, seen)

	// Slots 1..4 play out in order with their own bytes.
	dest := make([]byte, testPacketElements*testElementSize)
	for _, fill := range []byte{0x01, 0x02, 0x03, 0x04} {
		n, err := buffer.Dequeue(dest, testPacketElements)
		require.NoError(t, err)
		require.Equal(t, testPacketElements, n)
		assert.Equal(t, bytes.Repeat([]byte{fill}, len(dest)), dest)
	}
}

func TestUnfilledPlaceholderPlaysSilence(t *testing.T) {
	buffer, _ := newTestBuffer(t, 0, 100*time.Millisecond)

	_, err := buffer.Enqueue([]Packet{makeTestPacket(1, testPacketElements, 0x01)}, noConcealment(t))
	require.NoError(t, err)
	_, err = buffer.Enqueue([]Packet{makeTestPacket(3, testPacketElements, 0x03)},
		func([]Packet) {}) // generator declines to fill
	require.NoError(t, err)

	dest := make([]byte, testPacketElements*testElementSize)
	_, err = buffer.Dequeue(dest, testPacketElements)
	require.NoError(t, err)

	n, err := buffer.Dequeue(dest, testPacketElements)
	require.NoError(t, err)
	require.Equal(t, testPacketElements, n)
	assert.Equal(t, make([]byte, len(dest)), dest, "untouched placeholder must be silence")
}

func TestLateUpdateReplacesConcealment(t *testing.T) {
	buffer, _ := newTestBuffer(t, 0, 100*time.Millisecond)

	_, err := buffer.Enqueue([]Packet{makeTestPacket(1, testPacketElements, 0x01)}, noConcealment(t))
	require.NoError(t, err)
	_, err = buffer.Enqueue([]Packet{makeTestPacket(3, testPacketElements, 0x03)}, fillWithSequence)
	require.NoError(t, err)

	// Real packet 2 arrives late and wins over the synthesised payload.
	enqueued, err := buffer.Enqueue([]Packet{makeTestPacket(2, testPacketElements, 0x0A)}, noConcealment(t))
	require.NoError(t, err)
	assert.Equal(t, testPacketElements, enqueued)

	dest := make([]byte, testPacketElements*testElementSize)
	for _, fill := range []byte{0x01, 0x0A, 0x03} {
		n, err := buffer.Dequeue(dest, testPacketElements)
		require.NoError(t, err)
		require.Equal(t, testPacketElements, n)
		assert.Equal(t, bytes.Repeat([]byte{fill}, len(dest)), dest)
	}
}

func TestLateUpdateAfterPartialRead(t *testing.T) {
	buffer, _ := newTestBuffer(t, 0, 100*time.Millisecond)

	_, err := buffer.Enqueue([]Packet{makeTestPacket(1, testPacketElements, 0x01)}, noConcealment(t))
	require.NoError(t, err)
	_, err = buffer.Enqueue([]Packet{makeTestPacket(3, testPacketElements, 0x03)}, fillWithSequence)
	require.NoError(t, err)

	// Read packet 1 plus half of concealed packet 2.
	const half = testPacketElements / 2
	dest := make([]byte, (testPacketElements+half)*testElementSize)
	n, err := buffer.Dequeue(dest, testPacketElements+half)
	require.NoError(t, err)
	require.Equal(t, testPacketElements+half, n)
	boundary := testPacketElements * testElementSize
	assert.Equal(t, bytes.Repeat([]byte{0x02}, half*testElementSize), dest[boundary:])

	// The late update can only cover the unread half.
	enqueued, err := buffer.Enqueue([]Packet{makeTestPacket(2, testPacketElements, 0x0A)}, noConcealment(t))
	require.NoError(t, err)
	assert.Equal(t, half, enqueued)

	rest := make([]byte, half*testElementSize)
	n, err = buffer.Dequeue(rest, half)
	require.NoError(t, err)
	require.Equal(t, half, n)
	assert.Equal(t, bytes.Repeat([]byte{0x0A}, len(rest)), rest)

	full := make([]byte, testPacketElements*testElementSize)
	n, err = buffer.Dequeue(full, testPacketElements)
	require.NoError(t, err)
	require.Equal(t, testPacketElements, n)
	assert.Equal(t, bytes.Repeat([]byte{0x03}, len(full)), full)

	n, err = buffer.Dequeue(full, testPacketElements)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestUpdateForUnknownSequenceIsNoOp(t *testing.T) {
	buffer, _ := newTestBuffer(t, 0, 100*time.Millisecond)

	_, err := buffer.Enqueue([]Packet{
		makeTestPacket(1, testPacketElements, 0x01),
		makeTestPacket(2, testPacketElements, 0x02),
	}, noConcealment(t))
	require.NoError(t, err)

	// Sequence 1 was never concealed, so its "update" has nothing to touch.
	enqueued, err := buffer.Enqueue([]Packet{makeTestPacket(1, testPacketElements, 0x0F)}, noConcealment(t))
	require.NoError(t, err)
	assert.Equal(t, 0, enqueued)

	dest := make([]byte, testPacketElements*testElementSize)
	n, err := buffer.Dequeue(dest, testPacketElements)
	require.NoError(t, err)
	require.Equal(t, testPacketElements, n)
	assert.Equal(t, bytes.Repeat([]byte{0x01}, len(dest)), dest)
}

func TestUpdateAfterFullReadIsNoOp(t *testing.T) {
	buffer, _ := newTestBuffer(t, 0, 100*time.Millisecond)

	_, err := buffer.Enqueue([]Packet{makeTestPacket(1, testPacketElements, 0x01)}, noConcealment(t))
	require.NoError(t, err)
	_, err = buffer.Enqueue([]Packet{makeTestPacket(3, testPacketElements, 0x03)}, fillWithSequence)
	require.NoError(t, err)

	dest := make([]byte, 2*testPacketElements*testElementSize)
	n, err := buffer.Dequeue(dest, 2*testPacketElements)
	require.NoError(t, err)
	require.Equal(t, 2*testPacketElements, n)

	// The concealed slot is gone; the late arrival has nowhere to land.
	enqueued, err := buffer.Enqueue([]Packet{makeTestPacket(2, testPacketElements, 0x0A)}, noConcealment(t))
	require.NoError(t, err)
	assert.Equal(t, 0, enqueued)
}

func TestPrepareConcealsAhead(t *testing.T) {
	buffer, _ := newTestBuffer(t, 0, 100*time.Millisecond)

	_, err := buffer.Enqueue([]Packet{makeTestPacket(1, testPacketElements, 0x01)}, noConcealment(t))
	require.NoError(t, err)

	// Expecting 4 next: conceal 2 and 3 now.
	concealed, err := buffer.Prepare(4, fillWithSequence)
	require.NoError(t, err)
	assert.Equal(t, 2*testPacketElements, concealed)

	// 4 then arrives as a plain in-order packet.
	enqueued, err := buffer.Enqueue([]Packet{makeTestPacket(4, testPacketElements, 0x04)}, noConcealment(t))
	require.NoError(t, err)
	assert.Equal(t, testPacketElements, enqueued)

	dest := make([]byte, testPacketElements*testElementSize)
	for _, fill := range []byte{0x01, 0x02, 0x03, 0x04} {
		n, err := buffer.Dequeue(dest, testPacketElements)
		require.NoError(t, err)
		require.Equal(t, testPacketElements, n)
		assert.Equal(t, bytes.Repeat([]byte{fill}, len(dest)), dest)
	}
}

func TestPrepareWithoutAnchorIsNoOp(t *testing.T) {
	buffer, _ := newTestBuffer(t, 0, 100*time.Millisecond)

	concealed, err := buffer.Prepare(10, noConcealment(t))
	require.NoError(t, err)
	assert.Equal(t, 0, concealed)
}

func TestConcealmentDepthAccounting(t *testing.T) {
	buffer, _ := newTestBuffer(t, 0, 100*time.Millisecond)

	_, err := buffer.Enqueue([]Packet{makeTestPacket(1, testPacketElements, 0x01)}, noConcealment(t))
	require.NoError(t, err)
	_, err = buffer.Enqueue([]Packet{makeTestPacket(4, testPacketElements, 0x04)}, fillWithSequence)
	require.NoError(t, err)

	// Four packets of 10 ms each.
	assert.Equal(t, 40*time.Millisecond, buffer.CurrentDepth())
}
