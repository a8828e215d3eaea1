// Package tag implements the binlog type-tag grammar: a compact ASCII
// string that fully describes the shape of a serialized value, so a
// consumer can walk an event's argument payload without knowing the
// producing Go types.
package tag

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind identifies the shape a Node describes.
type Kind int

const (
	KindAtom Kind = iota
	KindSequence
	KindTuple
	KindVariant
	KindEnum
	KindStruct
	KindStructRef
)

// Node is one parsed node of a type tag.
type Node struct {
	Kind Kind

	Atom byte // KindAtom: one of y c b s i l B S I L f d D

	Elem *Node // KindSequence: element type

	Elems []*Node // KindTuple: concatenated members. KindVariant: alternatives
	// (a nil entry in Elems marks the literal "0" null alternative).

	Name       string  // KindStruct, KindStructRef, KindEnum
	FieldNames []string // KindStruct
	FieldTypes []*Node  // KindStruct

	Underlying byte              // KindEnum: underlying atom
	EnumValues []uint64          // KindEnum
	EnumNames  []string          // KindEnum

	Ref *Node // KindStructRef: resolved definition (nil if unresolved)
}

func isAtom(c byte) bool {
	switch c {
	case 'y', 'c', 'b', 's', 'i', 'l', 'B', 'S', 'I', 'L', 'f', 'd', 'D':
		return true
	}
	return false
}

// Parse parses a single type tag from the front of s and returns the parsed
// node and whatever remains of s. It is the entry point used when a tag is
// known to describe exactly one value (e.g. a sequence element, a struct
// field, an alternative).
func Parse(s string) (*Node, string, error) {
	defs := map[string]*Node{}
	return parseType(s, defs)
}

// ParseTuple parses a concatenated list of type tags with no enclosing
// parens -- the shape stored in EventSource.ArgumentTags (§3).
func ParseTuple(s string) ([]*Node, error) {
	defs := map[string]*Node{}
	var nodes []*Node
	for s != "" {
		n, rest, err := parseType(s, defs)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
		s = rest
	}
	return nodes, nil
}

func parseType(s string, defs map[string]*Node) (*Node, string, error) {
	if s == "" {
		return nil, s, fmt.Errorf("tag: unexpected end of input")
	}
	c := s[0]
	switch {
	case isAtom(c):
		return &Node{Kind: KindAtom, Atom: c}, s[1:], nil
	case c == '[':
		elem, rest, err := parseType(s[1:], defs)
		if err != nil {
			return nil, rest, err
		}
		return &Node{Kind: KindSequence, Elem: elem}, rest, nil
	case c == '(':
		rest := s[1:]
		var elems []*Node
		for {
			if rest == "" {
				return nil, rest, fmt.Errorf("tag: unterminated tuple")
			}
			if rest[0] == ')' {
				rest = rest[1:]
				break
			}
			var n *Node
			var err error
			n, rest, err = parseType(rest, defs)
			if err != nil {
				return nil, rest, err
			}
			elems = append(elems, n)
		}
		return &Node{Kind: KindTuple, Elems: elems}, rest, nil
	case c == '<':
		rest := s[1:]
		var elems []*Node
		for {
			if rest == "" {
				return nil, rest, fmt.Errorf("tag: unterminated variant")
			}
			if rest[0] == '>' {
				rest = rest[1:]
				break
			}
			if rest[0] == '0' {
				// '0' is never the first byte of any other type tag, so it
				// unambiguously marks the literal null alternative here.
				elems = append(elems, nil)
				rest = rest[1:]
				continue
			}
			var n *Node
			var err error
			n, rest, err = parseType(rest, defs)
			if err != nil {
				return nil, rest, err
			}
			elems = append(elems, n)
		}
		if len(elems) > 255 {
			return nil, rest, fmt.Errorf("tag: variant has more than 255 alternatives")
		}
		return &Node{Kind: KindVariant, Elems: elems}, rest, nil
	case c == '/':
		return parseEnum(s, defs)
	case c == '{':
		return parseStruct(s, defs)
	default:
		return nil, s, fmt.Errorf("tag: invalid syntax at %q", s)
	}
}

func parseEnum(s string, defs map[string]*Node) (*Node, string, error) {
	rest := s[1:]
	if rest == "" || !isAtom(rest[0]) {
		return nil, rest, fmt.Errorf("tag: invalid enum underlying type")
	}
	underlying := rest[0]
	rest = rest[1:]
	if rest == "" || rest[0] != '`' {
		return nil, rest, fmt.Errorf("tag: invalid enum syntax (expected name)")
	}
	rest = rest[1:]
	idx := strings.IndexByte(rest, '\'')
	if idx < 0 {
		return nil, rest, fmt.Errorf("tag: invalid enum syntax (unterminated name)")
	}
	name := rest[:idx]
	rest = rest[idx+1:]

	var values []uint64
	var names []string
	for {
		if rest == "" {
			return nil, rest, fmt.Errorf("tag: unterminated enum")
		}
		if rest[0] == '\\' {
			rest = rest[1:]
			break
		}
		bidx := strings.IndexByte(rest, '`')
		if bidx < 0 {
			return nil, rest, fmt.Errorf("tag: invalid enum syntax (missing value separator)")
		}
		hexStr := rest[:bidx]
		v, err := strconv.ParseUint(hexStr, 16, 64)
		if err != nil {
			return nil, rest, fmt.Errorf("tag: invalid enum hex value %q: %w", hexStr, err)
		}
		rest = rest[bidx+1:]
		qidx := strings.IndexByte(rest, '\'')
		if qidx < 0 {
			return nil, rest, fmt.Errorf("tag: invalid enum syntax (unterminated enumerator)")
		}
		values = append(values, v)
		names = append(names, rest[:qidx])
		rest = rest[qidx+1:]
	}
	n := &Node{Kind: KindEnum, Name: name, Underlying: underlying, EnumValues: values, EnumNames: names}
	return n, rest, nil
}

func parseStruct(s string, defs map[string]*Node) (*Node, string, error) {
	rest := s[1:]
	end := strings.IndexAny(rest, "`}")
	if end < 0 {
		return nil, rest, fmt.Errorf("tag: unterminated struct")
	}
	name := rest[:end]
	if rest[end] == '}' {
		// Bare back-reference.
		n := &Node{Kind: KindStructRef, Name: name, Ref: defs[name]}
		return n, rest[end+1:], nil
	}
	rest = rest[end+1:] // consume '`'

	n := &Node{Kind: KindStruct, Name: name}
	defs[name] = n // visible to self-references encountered while parsing fields
	for {
		qidx := strings.IndexByte(rest, '\'')
		if qidx < 0 {
			return nil, rest, fmt.Errorf("tag: invalid struct field syntax")
		}
		fieldName := rest[:qidx]
		rest = rest[qidx+1:]
		var ft *Node
		var err error
		ft, rest, err = parseType(rest, defs)
		if err != nil {
			return nil, rest, err
		}
		n.FieldNames = append(n.FieldNames, fieldName)
		n.FieldTypes = append(n.FieldTypes, ft)
		if rest == "" {
			return nil, rest, fmt.Errorf("tag: unterminated struct")
		}
		if rest[0] == '}' {
			rest = rest[1:]
			break
		}
		if rest[0] != '`' {
			return nil, rest, fmt.Errorf("tag: expected field separator")
		}
		rest = rest[1:]
	}
	return n, rest, nil
}

// Singular reports whether a value of this tag always serializes to zero
// bytes (Invariant T2). A struct back-reference is never singular, even if
// its definition would otherwise qualify, to keep the check well-founded on
// recursive types.
func Singular(n *Node) bool {
	switch n.Kind {
	case KindTuple:
		for _, e := range n.Elems {
			if !Singular(e) {
				return false
			}
		}
		return true
	case KindStruct:
		for _, ft := range n.FieldTypes {
			if !Singular(ft) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// String renders n back into grammar form.
func (n *Node) String() string {
	var b strings.Builder
	writeNode(&b, n)
	return b.String()
}

func writeNode(b *strings.Builder, n *Node) {
	switch n.Kind {
	case KindAtom:
		b.WriteByte(n.Atom)
	case KindSequence:
		b.WriteByte('[')
		writeNode(b, n.Elem)
	case KindTuple:
		b.WriteByte('(')
		for _, e := range n.Elems {
			writeNode(b, e)
		}
		b.WriteByte(')')
	case KindVariant:
		b.WriteByte('<')
		for _, e := range n.Elems {
			if e == nil {
				b.WriteByte('0')
			} else {
				writeNode(b, e)
			}
		}
		b.WriteByte('>')
	case KindEnum:
		b.WriteByte('/')
		b.WriteByte(n.Underlying)
		b.WriteByte('`')
		b.WriteString(n.Name)
		b.WriteByte('\'')
		for i, v := range n.EnumValues {
			fmt.Fprintf(b, "%X", v)
			b.WriteByte('`')
			b.WriteString(n.EnumNames[i])
			b.WriteByte('\'')
		}
		b.WriteByte('\\')
	case KindStruct:
		b.WriteByte('{')
		b.WriteString(n.Name)
		for i, fn := range n.FieldNames {
			b.WriteByte('`')
			b.WriteString(fn)
			b.WriteByte('\'')
			writeNode(b, n.FieldTypes[i])
		}
		b.WriteByte('}')
	case KindStructRef:
		b.WriteByte('{')
		b.WriteString(n.Name)
		b.WriteByte('}')
	}
}
