// Package wire implements the binlog on-wire binary format: the codec
// (C2), the size-prefixed tagged entry framing (C5), and the metadata
// struct shapes (EventSource, WriterProp, ClockSync, Severity — C6's
// wire-level types). Everything here is little-endian throughout (§6).
package wire

import (
	"encoding/binary"
	"math"

	"github.com/pkg/errors"
)

// Sentinel errors per spec §7. Wrapped with github.com/pkg/errors at the
// point of use so callers get a stack trace and context while still being
// able to errors.Is/errors.Cause back to the sentinel.
var (
	ErrTagViolation    = errors.New("wire: sequence length exceeds remaining input")
	ErrTruncatedInput  = errors.New("wire: truncated input")
	ErrUnknownVariant  = errors.New("wire: variant discriminator out of range")
	ErrInvalidTagSyntax = errors.New("wire: malformed tag syntax")
)

// maxSequenceLen bounds a single sequence length so a corrupt/hostile
// length prefix cannot make the reader attempt a huge allocation. When the
// caller passes a non-zero minimum element size, SequenceHeader also checks
// the length against remaining input, per §4.2.
const maxSequenceLen = 1 << 30

// Encoder is an append-only, little-endian byte cursor, modeled on the
// teacher's bufDecoder (perffile/bufdecoder.go) but for writing: the
// producer-side half that perf.data (read-only from Go's perspective)
// never needed.
type Encoder struct {
	buf []byte
}

// NewEncoder returns an Encoder that appends into buf (buf[:0] is a common
// choice to reuse a scratch buffer across calls, as Session does).
func NewEncoder(buf []byte) *Encoder {
	return &Encoder{buf: buf}
}

func (e *Encoder) Bytes() []byte { return e.buf }

func (e *Encoder) PutBool(v bool) {
	if v {
		e.buf = append(e.buf, 1)
	} else {
		e.buf = append(e.buf, 0)
	}
}

func (e *Encoder) PutU8(v uint8)   { e.buf = append(e.buf, v) }
func (e *Encoder) PutI8(v int8)    { e.buf = append(e.buf, byte(v)) }

func (e *Encoder) PutU16(v uint16) {
	var tmp [2]byte
	binary.LittleEndian.PutUint16(tmp[:], v)
	e.buf = append(e.buf, tmp[:]...)
}
func (e *Encoder) PutI16(v int16) { e.PutU16(uint16(v)) }

func (e *Encoder) PutU32(v uint32) {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	e.buf = append(e.buf, tmp[:]...)
}
func (e *Encoder) PutI32(v int32) { e.PutU32(uint32(v)) }

func (e *Encoder) PutU64(v uint64) {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	e.buf = append(e.buf, tmp[:]...)
}
func (e *Encoder) PutI64(v int64) { e.PutU64(uint64(v)) }

func (e *Encoder) PutF32(v float32) { e.PutU32(math.Float32bits(v)) }
func (e *Encoder) PutF64(v float64) { e.PutU64(math.Float64bits(v)) }

// PutBytes writes raw bytes with no length prefix (tuple/struct fields).
func (e *Encoder) PutBytes(b []byte) { e.buf = append(e.buf, b...) }

// PutSequenceHeader writes only the u32 length prefix n; the caller then
// writes the n elements itself.
func (e *Encoder) PutSequenceHeader(n int) { e.PutU32(uint32(n)) }

// PutString writes a string as a sequence of 'c' (§4.2).
func (e *Encoder) PutString(s string) {
	e.PutSequenceHeader(len(s))
	e.buf = append(e.buf, s...)
}

// Decoder is a read-only cursor over a byte slice, mirroring Encoder.
type Decoder struct {
	buf []byte
}

func NewDecoder(b []byte) *Decoder { return &Decoder{buf: b} }

func (d *Decoder) Remaining() int  { return len(d.buf) }

func (d *Decoder) need(n int) error {
	if len(d.buf) < n {
		return errors.Wrapf(ErrTruncatedInput, "need %d bytes, have %d", n, len(d.buf))
	}
	return nil
}

func (d *Decoder) Bool() (bool, error) {
	v, err := d.U8()
	return v != 0, err
}

func (d *Decoder) U8() (uint8, error) {
	if err := d.need(1); err != nil {
		return 0, err
	}
	v := d.buf[0]
	d.buf = d.buf[1:]
	return v, nil
}
func (d *Decoder) I8() (int8, error) { v, err := d.U8(); return int8(v), err }

func (d *Decoder) U16() (uint16, error) {
	if err := d.need(2); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint16(d.buf)
	d.buf = d.buf[2:]
	return v, nil
}
func (d *Decoder) I16() (int16, error) { v, err := d.U16(); return int16(v), err }

func (d *Decoder) U32() (uint32, error) {
	if err := d.need(4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(d.buf)
	d.buf = d.buf[4:]
	return v, nil
}
func (d *Decoder) I32() (int32, error) { v, err := d.U32(); return int32(v), err }

func (d *Decoder) U64() (uint64, error) {
	if err := d.need(8); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint64(d.buf)
	d.buf = d.buf[8:]
	return v, nil
}
func (d *Decoder) I64() (int64, error) { v, err := d.U64(); return int64(v), err }

func (d *Decoder) F32() (float32, error) { v, err := d.U32(); return math.Float32frombits(v), err }
func (d *Decoder) F64() (float64, error) { v, err := d.U64(); return math.Float64frombits(v), err }

// Bytes reads n raw bytes.
func (d *Decoder) Bytes(n int) ([]byte, error) {
	if err := d.need(n); err != nil {
		return nil, err
	}
	b := d.buf[:n]
	d.buf = d.buf[n:]
	return b, nil
}

// SequenceHeader reads a u32 count and validates it against remaining
// input scaled by minElemSize, per §4.2's length-vs-remaining check. With
// minElemSize 0 only the maxSequenceLen bound is applied.
func (d *Decoder) SequenceHeader(minElemSize int) (int, error) {
	n, err := d.U32()
	if err != nil {
		return 0, err
	}
	count := int(n)
	if count > maxSequenceLen || (minElemSize > 0 && count > len(d.buf)/minElemSize) {
		return 0, errors.Wrapf(ErrTagViolation, "sequence length %d exceeds remaining input", count)
	}
	return count, nil
}

func (d *Decoder) String() (string, error) {
	n, err := d.SequenceHeader(1)
	if err != nil {
		return "", err
	}
	b, err := d.Bytes(n)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
