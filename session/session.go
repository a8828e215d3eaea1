// Package session implements the producer/consumer concurrency core (C4,
// C7): a Session that serializes metadata emission and multiplexes
// channels to a sink under ordering invariants I1-I5, and the Writer API
// producers append events through.
package session

import (
	"crypto/rand"
	"encoding/binary"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/morganstanley/binlog-sub000/queue"
	"github.com/morganstanley/binlog-sub000/wire"
)

// Session owns a mutex, the channel list, the append-only sources buffer,
// the pre-serialized current clock-sync entry, the next id to assign, and
// an atomic min_severity gate (§4.4). The mutex is held across
// AddEventSource and the whole of Consume, which is what makes I1 hold.
type Session struct {
	mu sync.Mutex

	channels           []*Channel
	sourcesBuf         []byte
	sourcesConsumedPos int
	nextSourceID       uint64

	clockSyncBuf     []byte
	consumeClockSync bool

	minSeverity atomic.Int32

	discriminator uint64

	metrics atomic.Pointer[metrics]
}

// New returns an empty Session with no channels and min_severity at the
// lowest level (everything passes the gate until raised). One implicit
// clock-sync entry, anchored to the system clock, is queued for the first
// Consume (spec §4: "one implicit entry is produced at session start").
func New() *Session {
	s := &Session{
		nextSourceID:  1,
		discriminator: newDiscriminator(),
	}

	cs := systemClockSync()
	e := wire.NewEncoder(nil)
	wire.EncodeClockSync(e, cs)
	s.clockSyncBuf = e.Bytes()
	s.consumeClockSync = true

	return s
}

// systemClockSync anchors the current wall-clock time to itself, assuming
// the default (un-synced) producer's clock_value is plain nanoseconds
// since the Unix epoch -- the same quantity NsSinceEpoch carries -- so
// ticksToNs's elapsed computation degenerates to the identity and a clock
// value is rendered as exactly the instant it was taken at.
func systemClockSync() *wire.ClockSync {
	now := time.Now()
	nsSinceEpoch := uint64(now.UnixNano())
	name, offset := now.Zone()

	return &wire.ClockSync{
		ClockValue:     nsSinceEpoch,
		ClockFrequency: uint64(time.Second),
		NsSinceEpoch:   nsSinceEpoch,
		TzOffset:       int32(offset),
		TzName:         name,
	}
}

// discriminatorFallback numbers sessions whose crypto/rand read failed.
var discriminatorFallback atomic.Uint64

func newDiscriminator() uint64 {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		// crypto/rand failing is not a condition Session can recover
		// from meaningfully; the discriminator has no on-wire meaning
		// beyond labelling a recovery dump, so fall back to a process-wide
		// counter rather than propagate an error from New.
		return discriminatorFallback.Add(1)
	}
	return binary.LittleEndian.Uint64(b[:])
}

// Discriminator is the session's recovery-header identity (§3's expansion),
// unique per process for the lifetime of this Session.
func (s *Session) Discriminator() uint64 { return s.discriminator }

// MinSeverity returns the current gate, lock-free.
func (s *Session) MinSeverity() wire.Severity {
	return wire.Severity(s.minSeverity.Load())
}

// SetMinSeverity raises or lowers the gate, lock-free. Advisory: a writer
// MAY skip event construction and argument evaluation below this threshold.
func (s *Session) SetMinSeverity(sev wire.Severity) {
	s.minSeverity.Store(int32(sev))
}

// AddEventSource assigns the next id, appends a framed EventSource entry to
// the sources buffer, and returns the assigned id (§4.4, §4.6). Mutex-
// serialized so I1 holds against a concurrent Consume.
func (s *Session) AddEventSource(src *wire.EventSource) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSourceID
	s.nextSourceID++
	src.ID = id

	e := wire.NewEncoder(s.sourcesBuf)
	wire.EncodeEventSource(e, src)
	s.sourcesBuf = e.Bytes()

	return id
}

// SetClockSync replaces the pre-serialized clock-sync entry and marks it
// for emission on the next Consume (§4.4).
func (s *Session) SetClockSync(cs *wire.ClockSync) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := wire.NewEncoder(s.clockSyncBuf[:0])
	wire.EncodeClockSync(e, cs)
	s.clockSyncBuf = e.Bytes()
	s.consumeClockSync = true
}

// CreateChannel allocates a queue of the given capacity, records the
// channel under the given WriterProp, and registers it with the session.
func (s *Session) CreateChannel(capacity int, prop wire.WriterProp) *Channel {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := &Channel{
		q: queue.New(capacity),
		recovery: queue.RecoveryHeader{
			Magic:                queue.DataMagic,
			SessionDiscriminator: s.discriminator,
		},
	}
	ch.prop.Store(&prop)
	s.channels = append(s.channels, ch)
	if m := s.metrics.Load(); m != nil {
		m.channelsLive.Inc()
	}
	return ch
}

// SetChannelWriterID mutates the channel's WriterProp id; takes effect on
// the next batch emission.
func (s *Session) SetChannelWriterID(ch *Channel, id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := *ch.prop.Load()
	p.ID = id
	ch.prop.Store(&p)
}

// SetChannelWriterName mutates the channel's WriterProp name; takes effect
// on the next batch emission.
func (s *Session) SetChannelWriterName(ch *Channel, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := *ch.prop.Load()
	p.Name = name
	ch.prop.Store(&p)
}

// ConsumeResult reports what a single Consume call moved.
type ConsumeResult struct {
	BytesConsumed      int
	TotalBytesConsumed int
	ChannelsPolled     int
	ChannelsRemoved    int
}

// Consume drains metadata and every channel's readable bytes to sink, in
// order (§4.4):
//  1. the pending clock-sync entry, if any;
//  2. the unconsumed tail of the sources buffer;
//  3. each channel, in registration order: a WriterProp labelling the
//     batch, then the batch bytes themselves;
//  4. compacts the channel list, dropping any channel whose writer has
//     closed it and which is now fully drained.
//
// Held under the session mutex for its entire duration, which is what
// makes I1 (EventSource precedes its first use) and I5 (sink.Write always
// receives whole entries) hold against concurrent AddEventSource/AddEvent.
func (s *Session) Consume(sink io.Writer) (ConsumeResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var res ConsumeResult

	if s.consumeClockSync {
		n, err := sink.Write(s.clockSyncBuf)
		res.BytesConsumed += n
		res.TotalBytesConsumed += n
		if err != nil {
			return res, err
		}
		s.consumeClockSync = false
	}

	if tail := s.sourcesBuf[s.sourcesConsumedPos:]; len(tail) > 0 {
		n, err := sink.Write(tail)
		s.sourcesConsumedPos += n
		res.BytesConsumed += n
		res.TotalBytesConsumed += n
		if err != nil {
			return res, err
		}
	}

	live := s.channels[:0]
	for _, ch := range s.channels {
		res.ChannelsPolled++
		closed := ch.closed.Load()

		s1, s2 := ch.q.BeginRead()
		n := len(s1) + len(s2)
		if n > 0 {
			prop := *ch.prop.Load()
			prop.BatchSize = uint64(n)

			scratch := wire.NewEncoder(nil)
			wire.EncodeWriterProp(scratch, &prop)
			if _, err := sink.Write(scratch.Bytes()); err != nil {
				return res, err
			}
			res.BytesConsumed += len(scratch.Bytes())
			res.TotalBytesConsumed += len(scratch.Bytes())

			if len(s1) > 0 {
				if _, err := sink.Write(s1); err != nil {
					return res, err
				}
			}
			if len(s2) > 0 {
				if _, err := sink.Write(s2); err != nil {
					return res, err
				}
			}
			res.BytesConsumed += n
			res.TotalBytesConsumed += n
			ch.q.EndRead(n)
		}

		if closed && n == 0 {
			res.ChannelsRemoved++
			if m := s.metrics.Load(); m != nil {
				m.channelsLive.Dec()
			}
			continue
		}
		live = append(live, ch)
	}
	s.channels = live

	if m := s.metrics.Load(); m != nil {
		m.bytesConsumed.Add(float64(res.BytesConsumed))
		m.channelsPolled.Add(float64(res.ChannelsPolled))
		m.channelsRemoved.Add(float64(res.ChannelsRemoved))
	}

	return res, nil
}

// ReconsumeMetadata re-emits the clock-sync entry and the already-consumed
// portion of the sources buffer, independent of the consumed-tail cursor --
// used after log rotation so the newly opened sink is self-describing
// without replaying events (§4.4).
func (s *Session) ReconsumeMetadata(sink io.Writer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.clockSyncBuf != nil {
		if _, err := sink.Write(s.clockSyncBuf); err != nil {
			return err
		}
	}
	if s.sourcesConsumedPos > 0 {
		if _, err := sink.Write(s.sourcesBuf[:s.sourcesConsumedPos]); err != nil {
			return err
		}
	}
	return nil
}

// Channel owns one SPSC queue and a WriterProp, shared between the session
// (which polls it in Consume) and exactly one Writer (which appends to it).
// Closed is set once by the writer when it is done; the session observes it
// without taking a lock, since it is only ever read under the session mutex
// from Consume and written exactly once by the writer.
type Channel struct {
	q        *queue.Queue
	prop     atomic.Pointer[wire.WriterProp]
	recovery queue.RecoveryHeader
	closed   atomic.Bool
}

// Close marks the channel as closed: the writer is done appending to it.
// The next Consume drains any remaining bytes and then releases it.
func (c *Channel) Close() { c.closed.Store(true) }

// Closed reports whether Close has been called.
func (c *Channel) Closed() bool { return c.closed.Load() }

// noteEventDropped records a failed AddEvent in the optional metrics
// without taking the session mutex (the counter itself is concurrency-safe).
func (s *Session) noteEventDropped() {
	if m := s.metrics.Load(); m != nil {
		m.eventsDropped.Inc()
	}
}
