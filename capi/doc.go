// Package main provides C API bindings for jitterbuf, enabling
// cross-language interoperability with C applications and other language
// bindings.
//
// # Overview
//
// The capi package exposes the jitter buffer behind a plain C interface:
// opaque handles created by jitter_init, packet arrays passed to
// jitter_enqueue, and a C function pointer invoked for concealment.
//
// # Build Instructions
//
// To build as a C shared library:
//
//	go build -buildmode=c-shared -o libjitterbuf.so ./capi/
//
// This generates:
//   - libjitterbuf.so: the shared library
//   - libjitterbuf.h: auto-generated C header with function declarations
//
// # C API Usage
//
//	void fill(jitter_packet *packets, size_t count, void *user_data) {
//	    for (size_t i = 0; i < count; i++) {
//	        memset(packets[i].data, 0, packets[i].length);
//	    }
//	}
//
//	void *jb = jitter_init(4, 480, 48000, 100, 20);
//	jitter_packet packet = {
//	    .sequence_number = 1,
//	    .data = samples,
//	    .length = 480 * 4,
//	    .elements = 480,
//	};
//	size_t enqueued = jitter_enqueue(jb, &packet, 1, fill, NULL);
//	size_t dequeued = jitter_dequeue(jb, out, sizeof(out), 480);
//	jitter_destroy(jb);
//
// Threading follows the engine: one producer thread for jitter_enqueue and
// jitter_prepare, one consumer thread for jitter_dequeue.
package main
