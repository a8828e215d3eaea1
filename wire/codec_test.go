package wire

import (
	"reflect"
	"testing"
)

func TestEncodeDecodeScalars(t *testing.T) {
	e := NewEncoder(nil)
	e.PutBool(true)
	e.PutU8(7)
	e.PutI8(-7)
	e.PutU16(1000)
	e.PutI16(-1000)
	e.PutU32(100000)
	e.PutI32(-100000)
	e.PutU64(10000000000)
	e.PutI64(-10000000000)
	e.PutF32(1.5)
	e.PutF64(2.5)

	d := NewDecoder(e.Bytes())
	if v, err := d.Bool(); err != nil || v != true {
		t.Fatalf("Bool: %v, %v", v, err)
	}
	if v, err := d.U8(); err != nil || v != 7 {
		t.Fatalf("U8: %v, %v", v, err)
	}
	if v, err := d.I8(); err != nil || v != -7 {
		t.Fatalf("I8: %v, %v", v, err)
	}
	if v, err := d.U16(); err != nil || v != 1000 {
		t.Fatalf("U16: %v, %v", v, err)
	}
	if v, err := d.I16(); err != nil || v != -1000 {
		t.Fatalf("I16: %v, %v", v, err)
	}
	if v, err := d.U32(); err != nil || v != 100000 {
		t.Fatalf("U32: %v, %v", v, err)
	}
	if v, err := d.I32(); err != nil || v != -100000 {
		t.Fatalf("I32: %v, %v", v, err)
	}
	if v, err := d.U64(); err != nil || v != 10000000000 {
		t.Fatalf("U64: %v, %v", v, err)
	}
	if v, err := d.I64(); err != nil || v != -10000000000 {
		t.Fatalf("I64: %v, %v", v, err)
	}
	if v, err := d.F32(); err != nil || v != 1.5 {
		t.Fatalf("F32: %v, %v", v, err)
	}
	if v, err := d.F64(); err != nil || v != 2.5 {
		t.Fatalf("F64: %v, %v", v, err)
	}
	if d.Remaining() != 0 {
		t.Fatalf("expected decoder fully drained, %d bytes remain", d.Remaining())
	}
}

func TestEncodeDecodeString(t *testing.T) {
	e := NewEncoder(nil)
	e.PutString("hello, world")
	d := NewDecoder(e.Bytes())
	s, err := d.String()
	if err != nil {
		t.Fatalf("String: %v", err)
	}
	if s != "hello, world" {
		t.Fatalf("got %q", s)
	}
}

func TestEncodeDecodeLittleEndian(t *testing.T) {
	e := NewEncoder(nil)
	e.PutU32(0x04030201)
	want := []byte{0x01, 0x02, 0x03, 0x04}
	if !reflect.DeepEqual(e.Bytes(), want) {
		t.Fatalf("PutU32 not little-endian: got %x, want %x", e.Bytes(), want)
	}
}

func TestDecoderTruncatedInput(t *testing.T) {
	d := NewDecoder([]byte{1, 2})
	if _, err := d.U32(); err == nil {
		t.Fatalf("expected truncated-input error reading u32 from 2 bytes")
	}
}

func TestSequenceHeaderRejectsOversizedLength(t *testing.T) {
	e := NewEncoder(nil)
	e.PutU32(1 << 20) // claims a million i64 elements
	e.PutI64(1)        // but only one actually follows
	d := NewDecoder(e.Bytes())
	if _, err := d.SequenceHeader(8); err == nil {
		t.Fatalf("expected ErrTagViolation for a length exceeding remaining input")
	}
}

func TestSequenceHeaderAcceptsExactFit(t *testing.T) {
	e := NewEncoder(nil)
	e.PutSequenceHeader(3)
	e.PutI64(1)
	e.PutI64(2)
	e.PutI64(3)
	d := NewDecoder(e.Bytes())
	n, err := d.SequenceHeader(8)
	if err != nil {
		t.Fatalf("SequenceHeader: %v", err)
	}
	if n != 3 {
		t.Fatalf("got %d, want 3", n)
	}
}

func TestBytesReadAdvancesCursor(t *testing.T) {
	e := NewEncoder(nil)
	e.PutBytes([]byte{1, 2, 3, 4})
	e.PutU8(9)
	d := NewDecoder(e.Bytes())
	b, err := d.Bytes(4)
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	if !reflect.DeepEqual(b, []byte{1, 2, 3, 4}) {
		t.Fatalf("got %v", b)
	}
	v, err := d.U8()
	if err != nil || v != 9 {
		t.Fatalf("U8 after Bytes: %v, %v", v, err)
	}
}
