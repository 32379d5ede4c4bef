// Package rtp feeds a jitter buffer from RTP packets.
//
// This package bridges the 16-bit, wrapping RTP sequence space into the
// engine's 64-bit monotonic one, collects arriving packets in arrival order
// into a pending queue with no size limit, and flushes them to the buffer in
// single Enqueue batches. Packets are not reordered, and a batch with several
// gaps invokes the concealment callback once per gap. It uses the pion/rtp
// library for standards-compliant packet parsing.
//
// Design principles:
//   - The engine never sees a wrapped sequence number
//   - Parsing and queueing happen on the producer thread, like the engine
//   - Payloads are handed to the buffer as-is; the buffer copies on admit
package rtp
