package visit

import (
	"github.com/morganstanley/binlog-sub000/tag"
	"github.com/morganstanley/binlog-sub000/wire"
)

// Walk decodes one value of shape n from d and drives v through it. It is
// the sole entry point into this package's walker.
func Walk(v Visitor, n *tag.Node, d *wire.Decoder) error {
	return walk(v, n, d, 0)
}

func walk(v Visitor, n *tag.Node, d *wire.Decoder, depth int) error {
	if depth > maxDepth {
		return ErrRecursionLimit
	}

	switch n.Kind {
	case tag.KindAtom:
		return walkAtom(v, n.Atom, d)

	case tag.KindSequence:
		if n.Elem.Kind == tag.KindAtom && n.Elem.Atom == 'c' {
			size, err := d.SequenceHeader(1)
			if err != nil {
				return err
			}
			b, err := d.Bytes(size)
			if err != nil {
				return err
			}
			v.VisitString(b)
			return nil
		}

		size, err := d.SequenceHeader(0)
		if err != nil {
			return err
		}
		if tag.Singular(n.Elem) && size > singularRepeatThreshold {
			v.VisitRepeatBegin(size, n.Elem)
			if err := walk(v, n.Elem, d, depth+1); err != nil {
				return err
			}
			v.VisitRepeatEnd()
			return nil
		}

		v.VisitSequenceBegin(size, n.Elem)
		for i := 0; i < size; i++ {
			if err := walk(v, n.Elem, d, depth+1); err != nil {
				return err
			}
		}
		v.VisitSequenceEnd()
		return nil

	case tag.KindTuple:
		v.VisitTupleBegin(n)
		for _, e := range n.Elems {
			if err := walk(v, e, d, depth+1); err != nil {
				return err
			}
		}
		v.VisitTupleEnd()
		return nil

	case tag.KindVariant:
		disc, err := d.U8()
		if err != nil {
			return err
		}
		if int(disc) >= len(n.Elems) {
			return errorsUnknownVariant(disc)
		}
		selected := n.Elems[disc]
		v.VisitVariantBegin(int(disc), selected)
		if selected == nil {
			v.VisitNull()
		} else if err := walk(v, selected, d, depth+1); err != nil {
			return err
		}
		v.VisitVariantEnd()
		return nil

	case tag.KindEnum:
		hex, err := walkEnumUnderlying(n.Underlying, d)
		if err != nil {
			return err
		}
		name := ""
		for i, val := range n.EnumValues {
			if val == hex {
				name = n.EnumNames[i]
				break
			}
		}
		v.VisitEnum(n.Name, name, n.Underlying, hex)
		return nil

	case tag.KindStruct:
		v.VisitStructBegin(n.Name, n)
		for i, ft := range n.FieldTypes {
			v.VisitFieldBegin(n.FieldNames[i], ft)
			if err := walk(v, ft, d, depth+1); err != nil {
				return err
			}
			v.VisitFieldEnd()
		}
		v.VisitStructEnd()
		return nil

	case tag.KindStructRef:
		if n.Ref == nil {
			return errorsUnresolvedRef(n.Name)
		}
		v.VisitStructBegin(n.Ref.Name, n.Ref)
		for i, ft := range n.Ref.FieldTypes {
			v.VisitFieldBegin(n.Ref.FieldNames[i], ft)
			if err := walk(v, ft, d, depth+1); err != nil {
				return err
			}
			v.VisitFieldEnd()
		}
		v.VisitStructEnd()
		return nil
	}
	return nil
}

func walkAtom(v Visitor, atom byte, d *wire.Decoder) error {
	switch atom {
	case 'y':
		x, err := d.Bool()
		if err != nil {
			return err
		}
		v.VisitBool(x)
	case 'c':
		x, err := d.U8()
		if err != nil {
			return err
		}
		v.VisitChar(x)
	case 'b':
		x, err := d.I8()
		if err != nil {
			return err
		}
		v.VisitI8(x)
	case 's':
		x, err := d.I16()
		if err != nil {
			return err
		}
		v.VisitI16(x)
	case 'i':
		x, err := d.I32()
		if err != nil {
			return err
		}
		v.VisitI32(x)
	case 'l':
		x, err := d.I64()
		if err != nil {
			return err
		}
		v.VisitI64(x)
	case 'B':
		x, err := d.U8()
		if err != nil {
			return err
		}
		v.VisitU8(x)
	case 'S':
		x, err := d.U16()
		if err != nil {
			return err
		}
		v.VisitU16(x)
	case 'I':
		x, err := d.U32()
		if err != nil {
			return err
		}
		v.VisitU32(x)
	case 'L':
		x, err := d.U64()
		if err != nil {
			return err
		}
		v.VisitU64(x)
	case 'f':
		x, err := d.F32()
		if err != nil {
			return err
		}
		v.VisitF32(x)
	case 'd':
		x, err := d.F64()
		if err != nil {
			return err
		}
		v.VisitF64(x)
	case 'D':
		x, err := d.F64()
		if err != nil {
			return err
		}
		v.VisitLongDouble(x)
	}
	return nil
}

func walkEnumUnderlying(underlying byte, d *wire.Decoder) (uint64, error) {
	switch underlying {
	case 'b':
		x, err := d.I8()
		return uint64(uint8(x)), err
	case 's':
		x, err := d.I16()
		return uint64(uint16(x)), err
	case 'i':
		x, err := d.I32()
		return uint64(uint32(x)), err
	case 'l':
		x, err := d.I64()
		return uint64(x), err
	case 'B':
		x, err := d.U8()
		return uint64(x), err
	case 'S':
		x, err := d.U16()
		return uint64(x), err
	case 'I':
		x, err := d.U32()
		return uint64(x), err
	case 'L':
		return d.U64()
	}
	x, err := d.U64()
	return x, err
}
