package session

import (
	"github.com/morganstanley/binlog-sub000/wire"
)

// Writer holds one Channel and a reference to the owning Session. It is the
// producer's sole entry point: AddEvent never blocks on the consumer, never
// panics, and reports failure by returning false (§4.7).
type Writer struct {
	session *Session
	ch      *Channel
}

// NewWriter creates a channel of the given capacity under prop and returns
// a Writer bound to it.
func NewWriter(s *Session, capacity int, prop wire.WriterProp) *Writer {
	return &Writer{session: s, ch: s.CreateChannel(capacity, prop)}
}

// Session returns the writer's owning session.
func (w *Writer) Session() *Session { return w.session }

// Close marks the writer's channel closed; the session retires it once
// fully drained by a subsequent Consume. A Writer MUST NOT be used after
// Close.
func (w *Writer) Close() { w.ch.Close() }

// AddEvent serializes one event -- the generic size|tag entry header (tag
// is the source id), clock value, and the already-encoded argument bytes --
// into the writer's channel, growing the channel if the current one has no
// room (§4.7). args must already be the concatenated wire encoding of the
// event's argument tuple, in the order described by source's ArgumentTags;
// callers normally build this with wire.EncodeValue per argument rather
// than hand-rolling it.
func (w *Writer) AddEvent(sourceID uint64, clock uint64, args []byte) bool {
	payload := 8 + len(args) // clock_value + args
	total := wire.EntryHeaderSize + payload

	region, ok := w.ch.q.BeginWrite(total)
	if !ok {
		if !w.replaceChannel(total) {
			w.session.noteEventDropped()
			return false
		}
		region, ok = w.ch.q.BeginWrite(total)
		if !ok {
			w.session.noteEventDropped()
			return false
		}
	}

	e := wire.NewEncoder(region[:0])
	wire.PutEntryHeader(e, sourceID, payload)
	e.PutU64(clock)
	e.PutBytes(args)
	w.ch.q.EndWrite()
	return true
}

// replaceChannel allocates a new channel with at least enough room for
// need bytes, carrying over the current WriterProp (batch_size cleared),
// and closes the old one so the session retires it once drained (§4.7).
// AddEvent MUST NOT panic, so an allocation failure -- the only way this
// can fail in Go -- is recovered and reported as false rather than
// propagated.
func (w *Writer) replaceChannel(need int) (ok bool) {
	capacity := w.ch.q.Capacity()
	if need*2 > capacity {
		capacity = need * 2
	}

	prop := *w.ch.prop.Load()
	prop.BatchSize = 0

	defer func() {
		if recover() != nil {
			ok = false
		}
	}()

	old := w.ch
	w.ch = w.session.CreateChannel(capacity, prop)
	old.Close()
	return true
}

// AddEvent0 logs an argument-less event: typically used for a plain message
// with no captured values.
func (w *Writer) AddEvent0(sourceID, clock uint64) bool {
	return w.AddEvent(sourceID, clock, nil)
}

// AddEvent1 encodes a single argument and logs it.
func (w *Writer) AddEvent1(sourceID, clock uint64, a0 interface{}) bool {
	return w.addEventArgs(sourceID, clock, a0)
}

// AddEvent2 encodes two arguments and logs them.
func (w *Writer) AddEvent2(sourceID, clock uint64, a0, a1 interface{}) bool {
	return w.addEventArgs(sourceID, clock, a0, a1)
}

// AddEvent3 encodes three arguments and logs them.
func (w *Writer) AddEvent3(sourceID, clock uint64, a0, a1, a2 interface{}) bool {
	return w.addEventArgs(sourceID, clock, a0, a1, a2)
}

// AddEvent4 encodes four arguments and logs them.
func (w *Writer) AddEvent4(sourceID, clock uint64, a0, a1, a2, a3 interface{}) bool {
	return w.addEventArgs(sourceID, clock, a0, a1, a2, a3)
}

func (w *Writer) addEventArgs(sourceID, clock uint64, args ...interface{}) bool {
	e := wire.NewEncoder(nil)
	for _, a := range args {
		wire.EncodeValue(e, a)
	}
	return w.AddEvent(sourceID, clock, e.Bytes())
}
