package main

/*
#include <stddef.h>
#include <stdint.h>
#include <stdlib.h>

// Packet record crossing the C ABI.
typedef struct jitter_packet {
    unsigned long sequence_number;
    void *data;
    size_t length;
    size_t elements;
} jitter_packet;

// Concealment callback: fills each packet's data with synthesised samples.
// The data pointers reference the ring and are valid only for the call.
typedef void (*jitter_concealment_cb)(jitter_packet *packets, size_t count, void *user_data);

static void invoke_jitter_concealment_cb(jitter_concealment_cb cb, jitter_packet *packets, size_t count, void *user_data) {
    cb(packets, count, user_data);
}
*/
import "C"

import (
	"sync"
	"time"
	"unsafe"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/jitterbuf"
)

// millisecondsToDuration converts a C millisecond count.
func millisecondsToDuration(ms C.ulong) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

// Global instance management for C API compatibility.
// Handles are opaque pointers that map back to Go instances here.
var (
	instances         = make(map[uintptr]*jitterbuf.JitterBuffer)
	nextID    uintptr = 1
	mutex     sync.RWMutex
)

// getInstance resolves an opaque handle to its buffer.
func getInstance(handle unsafe.Pointer) (*jitterbuf.JitterBuffer, bool) {
	if handle == nil {
		return nil, false
	}
	id := *(*uintptr)(handle)
	mutex.RLock()
	defer mutex.RUnlock()
	buffer, ok := instances[id]
	return buffer, ok
}

// concealmentBridge wraps a C callback as the engine's ConcealmentCallback,
// building a C-visible packet array over the in-ring payload windows.
func concealmentBridge(cb C.jitter_concealment_cb, userData unsafe.Pointer) jitterbuf.ConcealmentCallback {
	if cb == nil {
		return nil
	}
	return func(placeholders []jitterbuf.Packet) {
		if len(placeholders) == 0 {
			return
		}
		cPackets := (*C.jitter_packet)(C.malloc(C.size_t(len(placeholders)) * C.sizeof_jitter_packet))
		defer C.free(unsafe.Pointer(cPackets))

		view := unsafe.Slice(cPackets, len(placeholders))
		for i, p := range placeholders {
			view[i].sequence_number = C.ulong(p.SequenceNumber)
			view[i].data = unsafe.Pointer(&p.Data[0])
			view[i].length = C.size_t(len(p.Data))
			view[i].elements = C.size_t(p.Elements)
		}
		C.invoke_jitter_concealment_cb(cb, cPackets, C.size_t(len(placeholders)), userData)
	}
}

// jitter_init creates a jitter buffer and returns an opaque handle, or NULL
// on failure.
//
//export jitter_init
func jitter_init(elementSize, packetElements C.size_t, clockRate, maxLengthMS, minLengthMS C.ulong) unsafe.Pointer {
	buffer, err := jitterbuf.New(jitterbuf.Config{
		ElementSize:    int(elementSize),
		PacketElements: int(packetElements),
		ClockRate:      uint32(clockRate),
		MaxLength:      millisecondsToDuration(maxLengthMS),
		MinLength:      millisecondsToDuration(minLengthMS),
	})
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "jitter_init",
			"error":    err.Error(),
		}).Error("Failed to create jitter buffer")
		return nil
	}

	mutex.Lock()
	defer mutex.Unlock()
	id := nextID
	nextID++
	instances[id] = buffer

	handle := new(uintptr)
	*handle = id
	return unsafe.Pointer(handle)
}

// jitter_enqueue admits packets from the producer thread. Returns the total
// number of elements enqueued, concealment included; 0 for an unknown handle
// or a NULL packet array. When the engine rejects a packet the error is
// logged and the elements enqueued before it are returned.
//
//export jitter_enqueue
func jitter_enqueue(handle unsafe.Pointer, packets *C.jitter_packet, count C.size_t, cb C.jitter_concealment_cb, userData unsafe.Pointer) C.size_t {
	buffer, ok := getInstance(handle)
	if !ok || packets == nil {
		return 0
	}

	cPackets := unsafe.Slice(packets, int(count))
	goPackets := make([]jitterbuf.Packet, len(cPackets))
	for i := range cPackets {
		goPackets[i] = jitterbuf.Packet{
			SequenceNumber: uint64(cPackets[i].sequence_number),
			Data:           unsafe.Slice((*byte)(cPackets[i].data), int(cPackets[i].length)),
			Elements:       int(cPackets[i].elements),
		}
	}

	enqueued, err := buffer.Enqueue(goPackets, concealmentBridge(cb, userData))
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "jitter_enqueue",
			"error":    err.Error(),
			"enqueued": enqueued,
		}).Error("Enqueue failed")
	}
	return C.size_t(enqueued)
}

// jitter_prepare conceals the gap before an expected sequence number.
// Returns the number of elements concealed.
//
//export jitter_prepare
func jitter_prepare(handle unsafe.Pointer, sequenceNumber C.ulong, cb C.jitter_concealment_cb, userData unsafe.Pointer) C.size_t {
	buffer, ok := getInstance(handle)
	if !ok {
		return 0
	}
	concealed, err := buffer.Prepare(uint64(sequenceNumber), concealmentBridge(cb, userData))
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "jitter_prepare",
			"error":    err.Error(),
		}).Error("Prepare failed")
	}
	return C.size_t(concealed)
}

// jitter_dequeue copies up to elements elements into destination from the
// consumer thread. Returns the number of elements dequeued.
//
//export jitter_dequeue
func jitter_dequeue(handle unsafe.Pointer, destination unsafe.Pointer, destinationLength, elements C.size_t) C.size_t {
	buffer, ok := getInstance(handle)
	if !ok || destination == nil {
		return 0
	}
	dest := unsafe.Slice((*byte)(destination), int(destinationLength))
	dequeued, err := buffer.Dequeue(dest, int(elements))
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "jitter_dequeue",
			"error":    err.Error(),
		}).Error("Dequeue failed")
	}
	return C.size_t(dequeued)
}

// jitter_current_depth_ms reports the buffered media depth in milliseconds.
//
//export jitter_current_depth_ms
func jitter_current_depth_ms(handle unsafe.Pointer) C.ulong {
	buffer, ok := getInstance(handle)
	if !ok {
		return 0
	}
	return C.ulong(buffer.CurrentDepth().Milliseconds())
}

// jitter_destroy tears a buffer down and invalidates its handle.
//
//export jitter_destroy
func jitter_destroy(handle unsafe.Pointer) {
	if handle == nil {
		return
	}
	id := *(*uintptr)(handle)

	mutex.Lock()
	defer mutex.Unlock()
	if buffer, ok := instances[id]; ok {
		if err := buffer.Close(); err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "jitter_destroy",
				"error":    err.Error(),
			}).Warn("Ring teardown failed")
		}
		delete(instances, id)
	}
}

func main() {}
