package visit

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/morganstanley/binlog-sub000/tag"
)

// StringVisitor renders a walked value as text per §4.10's message-rendering
// rules: bool as true/false, char as itself, i8/u8 as integers (not
// characters), a [c sequence as a raw string, other sequences as
// [e, e, ...], tuples as (e, e, ...), the selected variant alternative (or
// {null}), an enum's enumerator name (or 0xHEX if unknown), and a
// non-empty struct as Name{ field: value, ... } (empty struct: just Name),
// with any template-suffix starting at the first '<' in the name stripped.
//
// It is used both directly by pretty.Printer's %m and as the reference
// renderer the round-trip-under-visit test compares against.
type StringVisitor struct {
	NopVisitor
	b strings.Builder

	// stack tracks, per open compound, whether a separator is needed before
	// the next element/field.
	stack []*frame
}

type frame struct {
	kind      byte // 's' sequence, 't' tuple, 'f' struct
	count     int
	structPfx string
}

// NewStringVisitor returns a StringVisitor ready to walk a single value.
func NewStringVisitor() *StringVisitor { return &StringVisitor{} }

// String returns everything rendered so far.
func (sv *StringVisitor) String() string { return sv.b.String() }

func (sv *StringVisitor) top() *frame {
	if len(sv.stack) == 0 {
		return nil
	}
	return sv.stack[len(sv.stack)-1]
}

// sep writes ", " before an element if this isn't the first one in the
// current compound, per the "e, e, ..." rendering of sequences/tuples.
func (sv *StringVisitor) sep() {
	f := sv.top()
	if f == nil {
		return
	}
	if f.count > 0 {
		sv.b.WriteString(", ")
	}
	f.count++
}

func (sv *StringVisitor) VisitBool(v bool) {
	sv.sep()
	if v {
		sv.b.WriteString("true")
	} else {
		sv.b.WriteString("false")
	}
}

func (sv *StringVisitor) VisitChar(v byte) {
	sv.sep()
	sv.b.WriteByte(v)
}

func (sv *StringVisitor) VisitI8(v int8)   { sv.sep(); sv.b.WriteString(strconv.FormatInt(int64(v), 10)) }
func (sv *StringVisitor) VisitI16(v int16) { sv.sep(); sv.b.WriteString(strconv.FormatInt(int64(v), 10)) }
func (sv *StringVisitor) VisitI32(v int32) { sv.sep(); sv.b.WriteString(strconv.FormatInt(int64(v), 10)) }
func (sv *StringVisitor) VisitI64(v int64) { sv.sep(); sv.b.WriteString(strconv.FormatInt(v, 10)) }
func (sv *StringVisitor) VisitU8(v uint8)  { sv.sep(); sv.b.WriteString(strconv.FormatUint(uint64(v), 10)) }
func (sv *StringVisitor) VisitU16(v uint16) {
	sv.sep()
	sv.b.WriteString(strconv.FormatUint(uint64(v), 10))
}
func (sv *StringVisitor) VisitU32(v uint32) {
	sv.sep()
	sv.b.WriteString(strconv.FormatUint(uint64(v), 10))
}
func (sv *StringVisitor) VisitU64(v uint64) { sv.sep(); sv.b.WriteString(strconv.FormatUint(v, 10)) }
func (sv *StringVisitor) VisitF32(v float32) {
	sv.sep()
	sv.b.WriteString(strconv.FormatFloat(float64(v), 'g', -1, 32))
}
func (sv *StringVisitor) VisitF64(v float64) {
	sv.sep()
	sv.b.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
}
func (sv *StringVisitor) VisitLongDouble(v float64) { sv.VisitF64(v) }

func (sv *StringVisitor) VisitString(s []byte) {
	sv.sep()
	sv.b.Write(s)
}

func (sv *StringVisitor) VisitSequenceBegin(size int, elem *tag.Node) {
	sv.sep()
	sv.b.WriteByte('[')
	sv.stack = append(sv.stack, &frame{kind: 's'})
}
func (sv *StringVisitor) VisitSequenceEnd() {
	sv.b.WriteByte(']')
	sv.stack = sv.stack[:len(sv.stack)-1]
}

// Repeat collapses to a single representative element bracketed like any
// other sequence; it carries no count annotation since the spec only
// requires the walker-side optimization, not a distinct rendering.
func (sv *StringVisitor) VisitRepeatBegin(size int, elem *tag.Node) { sv.VisitSequenceBegin(size, elem) }
func (sv *StringVisitor) VisitRepeatEnd()                           { sv.VisitSequenceEnd() }

func (sv *StringVisitor) VisitTupleBegin(t *tag.Node) {
	sv.sep()
	sv.b.WriteByte('(')
	sv.stack = append(sv.stack, &frame{kind: 't'})
}
func (sv *StringVisitor) VisitTupleEnd() {
	sv.b.WriteByte(')')
	sv.stack = sv.stack[:len(sv.stack)-1]
}

func (sv *StringVisitor) VisitVariantBegin(discriminator int, selected *tag.Node) {}
func (sv *StringVisitor) VisitVariantEnd()                                        {}
func (sv *StringVisitor) VisitNull() {
	sv.sep()
	sv.b.WriteString("{null}")
}

func (sv *StringVisitor) VisitEnum(name, enumerator string, underlying byte, hexValue uint64) {
	sv.sep()
	if enumerator != "" {
		sv.b.WriteString(enumerator)
	} else {
		fmt.Fprintf(&sv.b, "0x%X", hexValue)
	}
}

func (sv *StringVisitor) VisitStructBegin(name string, body *tag.Node) {
	sv.sep()
	if idx := strings.IndexByte(name, '<'); idx >= 0 {
		name = name[:idx]
	}
	sv.b.WriteString(name)
	sv.stack = append(sv.stack, &frame{kind: 'f', structPfx: name})
	if len(body.FieldNames) == 0 {
		return
	}
	sv.b.WriteByte('{')
	sv.b.WriteByte(' ')
}

func (sv *StringVisitor) VisitStructEnd() {
	f := sv.stack[len(sv.stack)-1]
	sv.stack = sv.stack[:len(sv.stack)-1]
	if f.count > 0 {
		sv.b.WriteString(" }")
	}
}

func (sv *StringVisitor) VisitFieldBegin(name string, t *tag.Node) {
	f := sv.top()
	if f != nil && f.count > 0 {
		sv.b.WriteString(", ")
	}
	sv.b.WriteString(name)
	sv.b.WriteString(": ")
	// A field's value must not see the struct frame's own separator logic
	// (it already wrote ": "), so push a clean frame for it.
	sv.stack = append(sv.stack, &frame{kind: 'v'})
}

func (sv *StringVisitor) VisitFieldEnd() {
	sv.stack = sv.stack[:len(sv.stack)-1]
	f := sv.top()
	if f != nil {
		f.count++
	}
}
