package wire

import (
	"github.com/cespare/xxhash/v2"
	"github.com/pkg/errors"
)

// Special entry tags (§5). A regular entry's tag is an EventSource id
// assigned by the session; these three values are reserved and can never
// collide with an assigned id because ids are handed out starting at 1 and
// a session never hands out one of these three.
const (
	TagEventSource uint64 = 0xFFFFFFFFFFFFFFFF
	TagWriterProp  uint64 = 0xFFFFFFFFFFFFFFFE
	TagClockSync   uint64 = 0xFFFFFFFFFFFFFFFD

	MaxEventSourceID uint64 = TagClockSync - 1
)

// EntryHeaderSize is the fixed-size prefix of every entry: u32 payload size
// followed by u64 tag (§4.5).
const EntryHeaderSize = 4 + 8

// PutEntryHeader writes the size+tag header for a payload of n bytes.
func PutEntryHeader(e *Encoder, tag uint64, payloadSize int) {
	e.PutU32(uint32(payloadSize))
	e.PutU64(tag)
}

// EntryHeader is a decoded size+tag pair.
type EntryHeader struct {
	Size uint32
	Tag  uint64
}

// DecodeEntryHeader reads the fixed header from d.
func DecodeEntryHeader(d *Decoder) (EntryHeader, error) {
	size, err := d.U32()
	if err != nil {
		return EntryHeader{}, err
	}
	tag, err := d.U64()
	if err != nil {
		return EntryHeader{}, err
	}
	return EntryHeader{Size: size, Tag: tag}, nil
}

// Severity is the producer-assigned importance of an event, gated against a
// channel's min_severity at emit time (§3, §4.4, C7). Values are
// non-contiguous to leave room for extension between levels.
type Severity int32

const (
	SeverityTrace    Severity = 32
	SeverityDebug    Severity = 64
	SeverityInfo     Severity = 128
	SeverityWarning  Severity = 256
	SeverityError    Severity = 512
	SeverityCritical Severity = 1024
	SeverityNoLogs   Severity = 32768
)

var severityNames = map[int64]string{
	int64(SeverityTrace):    "trace",
	int64(SeverityDebug):    "debug",
	int64(SeverityInfo):     "info",
	int64(SeverityWarning):  "warning",
	int64(SeverityError):    "error",
	int64(SeverityCritical): "critical",
	int64(SeverityNoLogs):   "no_logs",
}

// EnumNames implements tag.EnumNamer so Severity renders as a proper enum
// tag (`/i\`Severity'...`) instead of a bare int32.
func (Severity) EnumNames() map[int64]string { return severityNames }

func (s Severity) String() string {
	if n, ok := severityNames[int64(s)]; ok {
		return n
	}
	return "unknown"
}

// EventSource is the metadata entry describing one call site (C6, §3): its
// session-assigned id (the tag every event referencing it carries),
// severity, source location, and the type tag of its argument tuple.
type EventSource struct {
	ID           uint64
	Severity     Severity
	Category     string
	Function     string
	File         string
	Line         uint64
	FormatString string
	ArgumentTags string // tag.ParseTuple-shaped string, never parenthesized
}

// Fingerprint returns a stable hash of the call-site identity (format
// string, function, file and argument tags; the line number and category
// are not hashed). It is never used as the wire id -- the session
// always assigns that -- but serves as a process-restart-stable
// supplementary key for correlating the "same" call site across runs
// (§3's Call-site id derivation expansion).
func (s *EventSource) Fingerprint() uint64 {
	h := xxhash.New()
	_, _ = h.WriteString(s.FormatString)
	_, _ = h.WriteString(s.Function)
	_, _ = h.WriteString(s.File)
	_, _ = h.WriteString(s.ArgumentTags)
	return h.Sum64()
}

func (s *EventSource) encode(e *Encoder) {
	e.PutU64(s.ID)
	e.PutI32(int32(s.Severity))
	e.PutString(s.Category)
	e.PutString(s.Function)
	e.PutString(s.File)
	e.PutU64(s.Line)
	e.PutString(s.FormatString)
	e.PutString(s.ArgumentTags)
}

// DecodeEventSource decodes an EventSource payload.
func DecodeEventSource(d *Decoder) (*EventSource, error) {
	var s EventSource
	var err error
	if s.ID, err = d.U64(); err != nil {
		return nil, err
	}
	var sev int32
	if sev, err = d.I32(); err != nil {
		return nil, err
	}
	s.Severity = Severity(sev)
	if s.Category, err = d.String(); err != nil {
		return nil, err
	}
	if s.Function, err = d.String(); err != nil {
		return nil, err
	}
	if s.File, err = d.String(); err != nil {
		return nil, err
	}
	if s.Line, err = d.U64(); err != nil {
		return nil, err
	}
	if s.FormatString, err = d.String(); err != nil {
		return nil, err
	}
	if s.ArgumentTags, err = d.String(); err != nil {
		return nil, err
	}
	return &s, nil
}

// EncodeEventSource writes an entire EventSource entry (header + payload).
func EncodeEventSource(e *Encoder, s *EventSource) {
	payload := NewEncoder(nil)
	s.encode(payload)
	PutEntryHeader(e, TagEventSource, len(payload.Bytes()))
	e.PutBytes(payload.Bytes())
}

// WriterProp labels the run of events that follows with the producing
// channel's id and name, and a hint of how many payload bytes follow (C4,
// §3): "id:u64, name:string, batch_size:u64". Emitted by the session
// immediately before each flushed run of events from a given channel.
type WriterProp struct {
	ID        uint64
	Name      string
	BatchSize uint64
}

func (p *WriterProp) encode(e *Encoder) {
	e.PutU64(p.ID)
	e.PutString(p.Name)
	e.PutU64(p.BatchSize)
}

func DecodeWriterProp(d *Decoder) (*WriterProp, error) {
	var p WriterProp
	var err error
	if p.ID, err = d.U64(); err != nil {
		return nil, err
	}
	if p.Name, err = d.String(); err != nil {
		return nil, err
	}
	if p.BatchSize, err = d.U64(); err != nil {
		return nil, err
	}
	return &p, nil
}

func EncodeWriterProp(e *Encoder, p *WriterProp) {
	payload := NewEncoder(nil)
	p.encode(payload)
	PutEntryHeader(e, TagWriterProp, len(payload.Bytes()))
	e.PutBytes(payload.Bytes())
}

// ClockSync anchors a monotonic tick count to wall-clock time and timezone,
// so a reader can convert every subsequent event's clock_value to a
// calendar time (C4, §3, §4.10). ClockFrequency == 0 means "no clock sync
// available".
type ClockSync struct {
	ClockValue     uint64
	ClockFrequency uint64
	NsSinceEpoch   uint64
	TzOffset       int32 // seconds east of UTC
	TzName         string
}

func (c *ClockSync) encode(e *Encoder) {
	e.PutU64(c.ClockValue)
	e.PutU64(c.ClockFrequency)
	e.PutU64(c.NsSinceEpoch)
	e.PutI32(c.TzOffset)
	e.PutString(c.TzName)
}

func DecodeClockSync(d *Decoder) (*ClockSync, error) {
	var c ClockSync
	var err error
	if c.ClockValue, err = d.U64(); err != nil {
		return nil, err
	}
	if c.ClockFrequency, err = d.U64(); err != nil {
		return nil, err
	}
	if c.NsSinceEpoch, err = d.U64(); err != nil {
		return nil, err
	}
	if c.TzOffset, err = d.I32(); err != nil {
		return nil, err
	}
	if c.TzName, err = d.String(); err != nil {
		return nil, err
	}
	return &c, nil
}

func EncodeClockSync(e *Encoder, c *ClockSync) {
	payload := NewEncoder(nil)
	c.encode(payload)
	PutEntryHeader(e, TagClockSync, len(payload.Bytes()))
	e.PutBytes(payload.Bytes())
}

// ValidateEventPayloadSize checks a decoded entry header's size against the
// bytes actually available, surfacing ErrTruncatedInput rather than letting
// a corrupt size silently under/over-read (§4.2, §7).
func ValidateEventPayloadSize(h EntryHeader, remaining int) error {
	if int(h.Size) > remaining {
		return errors.Wrapf(ErrTruncatedInput, "entry declares %d byte payload, %d remain", h.Size, remaining)
	}
	return nil
}
