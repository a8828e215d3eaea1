// Package reader implements the event stream reader (C8): incremental,
// buffered framing over whatever io.Reader a sink chose to read from
// (a plain file, a growing file being tailed, a pipe), turning the raw
// size|tag|payload entries session.Consume wrote into a sequence of
// resolved Events.
package reader

import (
	"io"

	"github.com/morganstanley/binlog-sub000/wire"
)

// initialBufSize mirrors the teacher's bufferedSectionReader buffer size
// (perffile/buf.go); entries are almost always far smaller than this, so
// growth past it is the exception rather than the rule.
const initialBufSize = 16 << 10

// Event is a resolved event: its call site, the clock reading it carried,
// and its raw argument payload -- decode it with
// tag.ParseTuple(ev.Source.ArgumentTags) and visit.Walk.
//
// Args aliases the reader's internal buffer and is only valid until the
// next call to Next, exactly like bufio.Scanner.Bytes; copy it if it must
// outlive that call.
type Event struct {
	Source      *wire.EventSource
	ClockValue  uint64
	Args        []byte
	WriterProp  *wire.WriterProp
	ClockSync   *wire.ClockSync
}

// Reader incrementally decodes a binlog entry stream (§4.8). It is not
// safe for concurrent use; a stream has exactly one reader per the
// concurrency model (§5).
type Reader struct {
	src  io.Reader
	buf  []byte
	r, w int

	sources map[uint64]*wire.EventSource
	prop    *wire.WriterProp
	clock   *wire.ClockSync

	ev  Event
	err error

	unknownSkipped uint64
}

// New returns a Reader that decodes entries from src.
func New(src io.Reader) *Reader {
	return &Reader{
		src:     src,
		buf:     make([]byte, initialBufSize),
		sources: make(map[uint64]*wire.EventSource),
	}
}

// Err returns the error that stopped the last Next call, or nil if it
// stopped because the stream ended cleanly.
func (r *Reader) Err() error { return r.err }

// Event returns the event Next just decoded. Only valid after a call to
// Next that returned true.
func (r *Reader) Event() *Event { return &r.ev }

// UnknownSourceCount returns the number of entries skipped because they
// referenced an event-source id the reader had not yet seen (§4.8's
// non-fatal UnknownSource case).
func (r *Reader) UnknownSourceCount() uint64 { return r.unknownSkipped }

// fill ensures at least min bytes are buffered starting at r.buf[r.r],
// sliding existing unread data to the front and growing the buffer as
// needed, modeled on bufferedSectionReader.fill (perffile/buf.go).
func (r *Reader) fill(min int) error {
	if r.r > 0 {
		copy(r.buf, r.buf[r.r:r.w])
		r.w -= r.r
		r.r = 0
	}
	for r.w < min {
		if len(r.buf) < min {
			grown := make([]byte, min*2)
			copy(grown, r.buf[:r.w])
			r.buf = grown
		} else if r.w == len(r.buf) {
			grown := make([]byte, len(r.buf)*2)
			copy(grown, r.buf[:r.w])
			r.buf = grown
		}
		n, err := r.src.Read(r.buf[r.w:])
		if n < 0 {
			panic("reader: negative count from Read")
		}
		r.w += n
		if err != nil {
			return err
		}
		if n == 0 {
			return io.ErrNoProgress
		}
	}
	return nil
}

// Next decodes the next event, skipping and applying metadata entries
// (EventSource, WriterProp, ClockSync) as it goes (§4.8). It returns false
// at a clean end of stream (Err() == nil) or when the current entry isn't
// fully available yet (Err() == ErrIncomplete, rewound for a retry) or on
// a malformed entry (Err() holds the decode error).
func (r *Reader) Next() bool {
	r.err = nil
	for {
		if err := r.fill(wire.EntryHeaderSize); err != nil {
			if r.w-r.r == 0 && err == io.EOF {
				return false
			}
			r.err = ErrIncomplete
			return false
		}

		hdr, err := wire.DecodeEntryHeader(wire.NewDecoder(r.buf[r.r:r.w]))
		if err != nil {
			r.err = err
			return false
		}

		need := wire.EntryHeaderSize + int(hdr.Size)
		if err := r.fill(need); err != nil {
			r.err = ErrIncomplete
			return false
		}

		entry := r.buf[r.r : r.r+need]
		r.r += need
		d := wire.NewDecoder(entry[wire.EntryHeaderSize:])

		switch hdr.Tag {
		case wire.TagEventSource:
			src, err := wire.DecodeEventSource(d)
			if err != nil {
				r.err = err
				return false
			}
			r.sources[src.ID] = src
			continue

		case wire.TagWriterProp:
			p, err := wire.DecodeWriterProp(d)
			if err != nil {
				r.err = err
				return false
			}
			r.prop = p
			continue

		case wire.TagClockSync:
			cs, err := wire.DecodeClockSync(d)
			if err != nil {
				r.err = err
				return false
			}
			r.clock = cs
			continue

		default:
			src, ok := r.sources[hdr.Tag]
			if !ok {
				r.unknownSkipped++
				continue
			}
			clock, err := d.U64()
			if err != nil {
				r.err = err
				return false
			}
			args, err := d.Bytes(d.Remaining())
			if err != nil {
				r.err = err
				return false
			}
			r.ev = Event{
				Source:     src,
				ClockValue: clock,
				Args:       args,
				WriterProp: r.prop,
				ClockSync:  r.clock,
			}
			return true
		}
	}
}
