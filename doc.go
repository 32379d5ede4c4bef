// Package jitterbuf implements a bounded, timestamp-ordered jitter buffer
// for sequence-numbered media packets.
//
// A jitter buffer absorbs the arrival-time variance of packets carrying
// fixed-size media elements (for example 48 kHz audio frames) and hands them
// out to a consumer at a steady cadence. Packets that go missing are
// concealed in place by a caller-supplied generator, and a late arrival can
// still overwrite its concealed placeholder as long as the placeholder has
// not been read.
//
// The engine is a single-producer, single-consumer byte ring. On Linux and
// macOS the ring is backed by a mirror mapping: the same physical pages are
// mapped twice back to back, so every packet is contiguous in the process
// address space even when it crosses the ring seam. Slots carry a small
// in-ring header (sequence number, element count, timestamp, concealment
// flag) that the consumer rewrites in place after a partial read.
//
// # Getting Started
//
// Create a buffer sized for the stream it will carry, enqueue from the
// producer thread and dequeue from the consumer thread:
//
//	buffer, err := jitterbuf.New(jitterbuf.Config{
//	    ElementSize:    4,     // stereo 16-bit PCM frame
//	    PacketElements: 480,   // 10 ms at 48 kHz
//	    ClockRate:      48000,
//	    MaxLength:      100 * time.Millisecond,
//	    MinLength:      20 * time.Millisecond,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer buffer.Close()
//
//	// Producer thread.
//	enqueued, err := buffer.Enqueue(packets, func(placeholders []jitterbuf.Packet) {
//	    for _, p := range placeholders {
//	        synthesize(p.Data) // fill in concealment samples
//	    }
//	})
//
//	// Consumer thread, on its own cadence.
//	dest := make([]byte, 480*4)
//	dequeued, err := buffer.Dequeue(dest, 480)
//
// # Core Types
//
//   - [JitterBuffer]: the single-producer single-consumer ring engine
//   - [Config]: construction parameters
//   - [Packet]: one sequence-numbered group of media elements
//   - [ConcealmentCallback]: fills placeholder payloads in place
//   - [TimeProvider]: interface for injectable time (testing support)
//
// # Threading
//
// Enqueue and Prepare must be called from a single producer thread, Dequeue
// from a single consumer thread. Neither blocks: a full ring refuses
// admission and a packet younger than MinLength is simply not returned yet.
// CurrentDepth may be read from either thread.
//
// # Subpackages
//
//   - ring: the mirror-mapped byte region and ring index primitives
//   - rtp: feeds a JitterBuffer from RTP packets (pion/rtp)
//   - capi: C shared-library bindings for cross-language use
package jitterbuf
