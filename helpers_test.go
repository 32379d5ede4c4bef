package jitterbuf

import (
	"bytes"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/opd-ai/jitterbuf/ring"
)

// fakeClock is a TimeProvider that only moves when told to, making the
// min-age and max-age gates deterministic.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1700000000, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

const (
	testElementSize    = 4
	testPacketElements = 480
	testClockRate      = 48000
)

// newTestBuffer builds a buffer on a split region so the algorithm tests
// need neither page alignment nor mmap support.
func newTestBuffer(t *testing.T, minLength, maxLength time.Duration) (*JitterBuffer, *fakeClock) {
	t.Helper()

	size := int(maxLength.Milliseconds()) * testClockRate / 1000 * (testElementSize + MetadataSize)
	region, err := ring.NewSplitRegion(size)
	require.NoError(t, err)

	clock := newFakeClock()
	buffer, err := New(Config{
		ElementSize:    testElementSize,
		PacketElements: testPacketElements,
		ClockRate:      testClockRate,
		MaxLength:      maxLength,
		MinLength:      minLength,
		Clock:          clock,
		Region:         region,
	})
	require.NoError(t, err)
	t.Cleanup(func() { buffer.Close() })
	return buffer, clock
}

// makeTestPacket builds a packet whose payload repeats fill.
func makeTestPacket(sequenceNumber uint64, elements int, fill byte) Packet {
	return Packet{
		SequenceNumber: sequenceNumber,
		Data:           bytes.Repeat([]byte{fill}, elements*testElementSize),
		Elements:       elements,
	}
}

// noConcealment fails the test if the concealment callback fires.
func noConcealment(t *testing.T) ConcealmentCallback {
	return func(placeholders []Packet) {
		t.Errorf("unexpected concealment callback for %d placeholders", len(placeholders))
	}
}

// fillWithSequence writes each placeholder's low sequence byte across its
// payload, mirroring how the gap tests distinguish slots.
func fillWithSequence(placeholders []Packet) {
	for _, p := range placeholders {
		for i := range p.Data {
			p.Data[i] = byte(p.SequenceNumber)
		}
	}
}
