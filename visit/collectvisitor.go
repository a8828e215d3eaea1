package visit

import (
	"fmt"
	"strings"

	"github.com/morganstanley/binlog-sub000/tag"
)

// CollectVisitor walks a value into a plain any tree (bool, int64, uint64,
// float64, string, nil, []any, map[string]any) suitable for test assertions
// or json.Marshal. Structs collect into a map keyed by field name plus a
// "_type" entry holding the (template-suffix-stripped) struct name; a
// struct with no fields collects to {"_type": Name} with no other keys.
type CollectVisitor struct {
	NopVisitor
	stack  []*collectFrame
	result any
}

type collectFrame struct {
	kind      byte // 's' sequence/repeat, 't' tuple, 'f' struct fields
	seq       []any
	obj       map[string]any
	fieldName string
}

// NewCollectVisitor returns a CollectVisitor ready to walk a single value.
func NewCollectVisitor() *CollectVisitor { return &CollectVisitor{} }

// Result returns the collected tree after a Walk completes.
func (cv *CollectVisitor) Result() any { return cv.result }

func (cv *CollectVisitor) top() *collectFrame {
	if len(cv.stack) == 0 {
		return nil
	}
	return cv.stack[len(cv.stack)-1]
}

func (cv *CollectVisitor) emit(v any) {
	f := cv.top()
	if f == nil {
		cv.result = v
		return
	}
	switch f.kind {
	case 's', 't':
		f.seq = append(f.seq, v)
	case 'f':
		f.obj[f.fieldName] = v
	}
}

func (cv *CollectVisitor) VisitBool(v bool)   { cv.emit(v) }
func (cv *CollectVisitor) VisitChar(v byte)   { cv.emit(string(v)) }
func (cv *CollectVisitor) VisitI8(v int8)     { cv.emit(int64(v)) }
func (cv *CollectVisitor) VisitI16(v int16)   { cv.emit(int64(v)) }
func (cv *CollectVisitor) VisitI32(v int32)   { cv.emit(int64(v)) }
func (cv *CollectVisitor) VisitI64(v int64)   { cv.emit(v) }
func (cv *CollectVisitor) VisitU8(v uint8)    { cv.emit(uint64(v)) }
func (cv *CollectVisitor) VisitU16(v uint16)  { cv.emit(uint64(v)) }
func (cv *CollectVisitor) VisitU32(v uint32)  { cv.emit(uint64(v)) }
func (cv *CollectVisitor) VisitU64(v uint64)  { cv.emit(v) }
func (cv *CollectVisitor) VisitF32(v float32) { cv.emit(float64(v)) }
func (cv *CollectVisitor) VisitF64(v float64) { cv.emit(v) }
func (cv *CollectVisitor) VisitLongDouble(v float64) { cv.VisitF64(v) }

func (cv *CollectVisitor) VisitString(s []byte) { cv.emit(string(s)) }

func (cv *CollectVisitor) VisitSequenceBegin(size int, elem *tag.Node) {
	cv.stack = append(cv.stack, &collectFrame{kind: 's', seq: make([]any, 0, size)})
}
func (cv *CollectVisitor) VisitSequenceEnd() {
	f := cv.stack[len(cv.stack)-1]
	cv.stack = cv.stack[:len(cv.stack)-1]
	cv.emit(f.seq)
}
func (cv *CollectVisitor) VisitRepeatBegin(size int, elem *tag.Node) { cv.VisitSequenceBegin(size, elem) }
func (cv *CollectVisitor) VisitRepeatEnd()                           { cv.VisitSequenceEnd() }

func (cv *CollectVisitor) VisitTupleBegin(t *tag.Node) {
	cv.stack = append(cv.stack, &collectFrame{kind: 't'})
}
func (cv *CollectVisitor) VisitTupleEnd() {
	f := cv.stack[len(cv.stack)-1]
	cv.stack = cv.stack[:len(cv.stack)-1]
	cv.emit(f.seq)
}

func (cv *CollectVisitor) VisitVariantBegin(discriminator int, selected *tag.Node) {}
func (cv *CollectVisitor) VisitVariantEnd()                                        {}
func (cv *CollectVisitor) VisitNull()                                              { cv.emit(nil) }

func (cv *CollectVisitor) VisitEnum(name, enumerator string, underlying byte, hexValue uint64) {
	if enumerator != "" {
		cv.emit(enumerator)
	} else {
		cv.emit(fmt.Sprintf("0x%X", hexValue))
	}
}

func (cv *CollectVisitor) VisitStructBegin(name string, body *tag.Node) {
	if idx := strings.IndexByte(name, '<'); idx >= 0 {
		name = name[:idx]
	}
	obj := map[string]any{}
	if name != "" {
		obj["_type"] = name
	}
	cv.stack = append(cv.stack, &collectFrame{kind: 'f', obj: obj})
}
func (cv *CollectVisitor) VisitStructEnd() {
	f := cv.stack[len(cv.stack)-1]
	cv.stack = cv.stack[:len(cv.stack)-1]
	cv.emit(f.obj)
}

func (cv *CollectVisitor) VisitFieldBegin(name string, t *tag.Node) {
	cv.top().fieldName = name
}
func (cv *CollectVisitor) VisitFieldEnd() {}
