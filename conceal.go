package jitterbuf

import (
	"sync"

	"github.com/tevino/abool"
)

// concealmentEntry records where a concealment slot's header lives in the
// ring so a late packet can overwrite the synthesised payload.
//
// inUse is the exclusive baton between the consumer reading the slot and
// the producer updating it; offset and stale may only be touched while
// holding it. stale marks an entry whose slot is gone from the ring (fully
// read or aged out) and which the producer removes on its next pass.
type concealmentEntry struct {
	inUse  *abool.AtomicBool
	offset int
	stale  bool
}

// acquire takes the baton. Returns false if the other side holds it.
func (e *concealmentEntry) acquire() bool {
	return e.inUse.SetToIf(false, true)
}

// release returns the baton.
func (e *concealmentEntry) release() {
	e.inUse.UnSet()
}

// concealmentTable maps sequence numbers to their concealment slots.
// Structural mutation (insert, remove) happens on the producer side; the
// consumer looks entries up and flips their fields under the baton.
type concealmentTable struct {
	entries sync.Map // uint64 -> *concealmentEntry
}

// insert records a concealment slot whose header sits at offset. A live
// entry for the same sequence number is a coherence violation; a stale one
// is displaced.
func (t *concealmentTable) insert(seq uint64, offset int) bool {
	entry := &concealmentEntry{inUse: abool.New(), offset: offset}
	prev, loaded := t.entries.LoadOrStore(seq, entry)
	if !loaded {
		return true
	}
	e := prev.(*concealmentEntry)
	if !e.acquire() {
		return false
	}
	if !e.stale {
		e.release()
		return false
	}
	t.entries.Store(seq, entry)
	return true
}

// lookup finds the entry for a sequence number.
func (t *concealmentTable) lookup(seq uint64) (*concealmentEntry, bool) {
	v, ok := t.entries.Load(seq)
	if !ok {
		return nil, false
	}
	return v.(*concealmentEntry), true
}

// remove drops the entry for a sequence number.
func (t *concealmentTable) remove(seq uint64) {
	t.entries.Delete(seq)
}

// reap removes entries whose slots the consumer has already destroyed.
// Producer side; entries the consumer currently holds are left for the
// next pass.
func (t *concealmentTable) reap() {
	t.entries.Range(func(key, value any) bool {
		e := value.(*concealmentEntry)
		if !e.acquire() {
			return true
		}
		if e.stale {
			t.entries.Delete(key)
		}
		e.release()
		return true
	})
}
