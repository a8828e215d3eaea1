// Package visit implements the tag-driven walker (C9): given a parsed type
// tag and a decoder positioned at the start of a matching value, it drives
// a caller-supplied Visitor through exactly the shape the tag describes,
// without the walker or the visitor needing any Go type for the value.
package visit

import (
	"github.com/pkg/errors"

	"github.com/morganstanley/binlog-sub000/tag"
)

// ErrRecursionLimit is raised when a tag nests more than maxDepth levels,
// which can only happen on malicious or corrupt input since well-formed
// producer-derived tags never nest this deep (§4.9).
var ErrRecursionLimit = errors.New("visit: exceeded maximum nesting depth")

// maxDepth bounds walk recursion only. tag.Singular, which the walker calls
// on sequence element tags, has no depth limit of its own; it stops at
// struct back-references, so it terminates on recursive types, but its
// recursion depth follows the nesting of tuples and structs in the tag.
const maxDepth = 2048

// singularRepeatThreshold is the element count above which a sequence of a
// singular element tag is rendered via one VisitRepeatBegin/End pair
// instead of `size` individual element visits (§4.9).
const singularRepeatThreshold = 32

// Visitor is the capability set a walker drives (§4.9). Implementations
// that don't care about a particular shape can embed NopVisitor.
type Visitor interface {
	VisitBool(v bool)
	VisitChar(v byte)
	VisitI8(v int8)
	VisitI16(v int16)
	VisitI32(v int32)
	VisitI64(v int64)
	VisitU8(v uint8)
	VisitU16(v uint16)
	VisitU32(v uint32)
	VisitU64(v uint64)
	VisitF32(v float32)
	VisitF64(v float64)
	VisitLongDouble(v float64) // 'D': always promoted to float64 in this port

	VisitSequenceBegin(size int, elem *tag.Node)
	VisitSequenceEnd()
	VisitString(s []byte)
	VisitTupleBegin(t *tag.Node)
	VisitTupleEnd()
	VisitVariantBegin(discriminator int, selected *tag.Node)
	VisitVariantEnd()
	VisitNull()
	VisitStructBegin(name string, body *tag.Node)
	VisitStructEnd()
	VisitFieldBegin(name string, t *tag.Node)
	VisitFieldEnd()
	VisitEnum(name, enumerator string, underlying byte, hexValue uint64)
	VisitRepeatBegin(size int, elem *tag.Node)
	VisitRepeatEnd()
}

// NopVisitor implements Visitor with every method a no-op; embed it to
// implement only the handful of methods a particular visitor cares about.
type NopVisitor struct{}

func (NopVisitor) VisitBool(bool)                                        {}
func (NopVisitor) VisitChar(byte)                                        {}
func (NopVisitor) VisitI8(int8)                                          {}
func (NopVisitor) VisitI16(int16)                                        {}
func (NopVisitor) VisitI32(int32)                                        {}
func (NopVisitor) VisitI64(int64)                                        {}
func (NopVisitor) VisitU8(uint8)                                         {}
func (NopVisitor) VisitU16(uint16)                                       {}
func (NopVisitor) VisitU32(uint32)                                       {}
func (NopVisitor) VisitU64(uint64)                                       {}
func (NopVisitor) VisitF32(float32)                                      {}
func (NopVisitor) VisitF64(float64)                                      {}
func (NopVisitor) VisitLongDouble(float64)                               {}
func (NopVisitor) VisitSequenceBegin(int, *tag.Node)                     {}
func (NopVisitor) VisitSequenceEnd()                                     {}
func (NopVisitor) VisitString([]byte)                                    {}
func (NopVisitor) VisitTupleBegin(*tag.Node)                             {}
func (NopVisitor) VisitTupleEnd()                                        {}
func (NopVisitor) VisitVariantBegin(int, *tag.Node)                      {}
func (NopVisitor) VisitVariantEnd()                                      {}
func (NopVisitor) VisitNull()                                            {}
func (NopVisitor) VisitStructBegin(string, *tag.Node)                    {}
func (NopVisitor) VisitStructEnd()                                       {}
func (NopVisitor) VisitFieldBegin(string, *tag.Node)                     {}
func (NopVisitor) VisitFieldEnd()                                        {}
func (NopVisitor) VisitEnum(string, string, byte, uint64)                {}
func (NopVisitor) VisitRepeatBegin(int, *tag.Node)                       {}
func (NopVisitor) VisitRepeatEnd()                                       {}
