// Package queue implements the single-producer/single-consumer lock-free
// byte queue (C3): a fixed-capacity wrap-around ring that exchanges
// arbitrary-sized, contiguous byte records between exactly one producer
// goroutine and exactly one consumer goroutine.
package queue

import "sync/atomic"

// DataMagic and MetadataMagic are the recovery-header constants an external
// salvage tool locates a crashed process's channel/session buffers by (§3,
// §6). The core never reads them back. session.CreateChannel stores
// DataMagic in each channel's RecoveryHeader; MetadataMagic is not written
// anywhere in this module.
const (
	DataMagic     uint64 = 0xFE213F716D34BCBC
	MetadataMagic uint64 = 0xFE214F726E35BDBC
)

// RecoveryHeader holds the magic and session discriminator that label a
// channel's buffer for brecovery-style external salvage (out of scope
// here). session.Channel stores it as a field next to a pointer to its
// Queue; the Queue's control block and byte buffer are separate
// allocations, so the header does not sit immediately before them in
// memory. SessionDiscriminator separates concurrent sessions in a single
// process dump.
type RecoveryHeader struct {
	Magic                uint64
	SessionDiscriminator uint64
}

// Queue is a fixed-capacity byte ring shared by one producer and one
// consumer. The zero value is not usable; construct with New.
//
// writeIndex and readIndex are logical offsets into buf, 0 <= idx <=
// capacity, with readIndex <= writeIndex whenever the producer has not
// wrapped past the consumer this pass. dataEnd marks the last valid byte of
// a pass before the producer wraps back to the head; it is written only by
// the producer and read only by the consumer, and is safe unsynchronized
// because the consumer only consults it after observing, via the acquire
// load of writeIndex, that the producer has wrapped (readIndex > writeIndex
// — §4.3's ordering argument).
type Queue struct {
	buf      []byte
	capacity uint64

	writeIndex atomic.Uint64
	readIndex  atomic.Uint64
	dataEnd    uint64

	// Set by BeginWrite, consumed by EndWrite. Producer-only; never touched
	// by the consumer goroutine.
	pendingStart  uint64
	pendingEnd    uint64
	pendingWrap   bool
	pendingWrapAt uint64
}

// New allocates a queue with the given byte capacity.
func New(capacity int) *Queue {
	if capacity <= 0 {
		panic("queue: capacity must be positive")
	}
	q := &Queue{
		buf:      make([]byte, capacity),
		capacity: uint64(capacity),
	}
	q.dataEnd = q.capacity
	return q
}

// Capacity returns the queue's fixed byte capacity.
func (q *Queue) Capacity() int { return int(q.capacity) }

// BeginWrite reserves a contiguous writable region of at least n bytes and
// returns it, or ok=false if no such region currently exists (the consumer
// has not drained enough space). On success the caller fills the returned
// slice and must call EndWrite before the next BeginWrite. Producer-only.
func (q *Queue) BeginWrite(n int) (region []byte, ok bool) {
	need := uint64(n)
	w := q.writeIndex.Load()
	r := q.readIndex.Load() // acquire: synchronizes with the consumer's EndRead

	if r <= w {
		// Not wrapped: the tail, from w to capacity, is free.
		if need <= q.capacity-w {
			q.pendingStart, q.pendingEnd, q.pendingWrap = w, w+need, false
			return q.buf[w : w+need], true
		}
		// Tail too small for this record; try rolling over to the head.
		// Everything in [0, r) is free since the reader hasn't reached it,
		// but the record must end strictly before r: ending exactly at r
		// would make writeIndex == readIndex, which reads as empty.
		if need >= r {
			return nil, false
		}
		q.pendingStart, q.pendingEnd = 0, need
		q.pendingWrap, q.pendingWrapAt = true, w
		return q.buf[0:need], true
	}

	// Already wrapped this pass: free space is [w, r), and the record must
	// end strictly before r for the same reason as above.
	if need >= r-w {
		return nil, false
	}
	q.pendingStart, q.pendingEnd, q.pendingWrap = w, w+need, false
	return q.buf[w : w+need], true
}

// Write copies p into the region most recently returned by BeginWrite,
// starting at offset off. Most callers write directly into the slice
// BeginWrite returned; this mirrors the spec's separate write(region, off,
// p) shape for callers assembling a record in multiple pieces.
func (q *Queue) Write(region []byte, off int, p []byte) {
	copy(region[off:], p)
}

// EndWrite publishes the reservation opened by the most recent BeginWrite
// with release ordering, making it visible to the consumer.
func (q *Queue) EndWrite() {
	if q.pendingWrap {
		q.dataEnd = q.pendingWrapAt
	}
	q.writeIndex.Store(q.pendingEnd) // release
	q.pendingWrap = false
}

// BeginRead returns up to two slices covering all bytes currently available
// to the consumer: slice2 is non-empty only when the producer has wrapped
// around the buffer and the consumer has not yet caught up to data_end.
// Consumer-only.
func (q *Queue) BeginRead() (slice1, slice2 []byte) {
	r := q.readIndex.Load()
	w := q.writeIndex.Load() // acquire: synchronizes with the producer's EndWrite

	if r <= w {
		return q.buf[r:w], nil
	}
	return q.buf[r:q.dataEnd], q.buf[0:w]
}

// EndRead advances the read cursor past n consumed bytes -- which may span
// both slices BeginRead returned -- wrapping to 0 at data_end, and
// publishes the new position with release ordering.
func (q *Queue) EndRead(n int) {
	r := q.readIndex.Load()
	w := q.writeIndex.Load()

	next := r + uint64(n)
	if r > w {
		// Mid-wrap: slice1 ends at dataEnd; spilling past it continues
		// from 0 into slice2.
		firstLen := q.dataEnd - r
		if uint64(n) > firstLen {
			next = uint64(n) - firstLen
		}
	}
	q.readIndex.Store(next) // release
}
