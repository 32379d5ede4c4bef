package ring

import "sync/atomic"

// Index is the offset bookkeeping for a single-producer single-consumer
// ring of size bytes. The producer owns the write offset, the consumer owns
// the read offset, and the only value crossing threads is the atomic count
// of written bytes: the producer's add after filling a slot is what makes
// the slot's bytes visible to the consumer's load.
//
// Index moves offsets and the byte count only; callers are responsible for
// checking capacity before ForwardWrite and occupancy before ForwardRead.
type Index struct {
	size    int
	written atomic.Int64

	// read is touched only by the consumer, write only by the producer.
	read  int
	write int
}

// NewIndex creates an index over a ring of size bytes.
func NewIndex(size int) *Index {
	return &Index{size: size}
}

// Size returns the ring size in bytes.
func (i *Index) Size() int {
	return i.size
}

// Written returns the number of bytes currently stored. Safe from either
// side.
func (i *Index) Written() int {
	return int(i.written.Load())
}

// Free returns the number of unoccupied bytes. Meaningful on the producer
// side: the consumer only ever grows it.
func (i *Index) Free() int {
	return i.size - i.Written()
}

// ReadOffset returns the consumer's offset. Consumer side only.
func (i *Index) ReadOffset() int {
	return i.read
}

// WriteOffset returns the producer's offset. Producer side only.
func (i *Index) WriteOffset() int {
	return i.write
}

// ForwardWrite publishes n freshly written bytes. Producer side. The caller
// must have verified Written()+n <= Size().
func (i *Index) ForwardWrite(n int) {
	i.write = (i.write + n) % i.size
	i.written.Add(int64(n))
}

// UnwindWrite takes back n bytes published by ForwardWrite. Producer side.
func (i *Index) UnwindWrite(n int) {
	i.write = (i.write - n + i.size) % i.size
	i.written.Add(int64(-n))
}

// ForwardRead consumes n bytes. Consumer side. The caller must have
// verified Written() >= n.
func (i *Index) ForwardRead(n int) {
	i.read = (i.read + n) % i.size
	i.written.Add(int64(-n))
}

// UnwindRead puts back n bytes consumed by ForwardRead, moving the read
// offset backwards. Consumer side. Used to restore a peeked header.
func (i *Index) UnwindRead(n int) {
	i.read = (i.read - n + i.size) % i.size
	i.written.Add(int64(n))
}
