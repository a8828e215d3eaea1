package wire

import (
	"reflect"

	"github.com/pkg/errors"
)

// EncodeValue appends v's wire representation to e, following exactly the
// same traversal tag.Of uses to derive v's type tag -- the two must never
// disagree, since a consumer walks the bytes using the tag alone (§4.1/§4.2).
func EncodeValue(e *Encoder, v interface{}) {
	rv := reflect.ValueOf(v)
	encodeReflect(e, rv)
}

func encodeReflect(e *Encoder, rv reflect.Value) {
	if !rv.IsValid() {
		return
	}
	switch rv.Kind() {
	case reflect.Bool:
		e.PutBool(rv.Bool())
	case reflect.Int8:
		e.PutI8(int8(rv.Int()))
	case reflect.Int16:
		e.PutI16(int16(rv.Int()))
	case reflect.Int32:
		e.PutI32(int32(rv.Int()))
	case reflect.Int, reflect.Int64:
		e.PutI64(rv.Int())
	case reflect.Uint8:
		e.PutU8(uint8(rv.Uint()))
	case reflect.Uint16:
		e.PutU16(uint16(rv.Uint()))
	case reflect.Uint32:
		e.PutU32(uint32(rv.Uint()))
	case reflect.Uint, reflect.Uint64, reflect.Uintptr:
		e.PutU64(rv.Uint())
	case reflect.Float32:
		e.PutF32(float32(rv.Float()))
	case reflect.Float64:
		e.PutF64(rv.Float())
	case reflect.String:
		e.PutString(rv.String())
	case reflect.Slice, reflect.Array:
		n := rv.Len()
		e.PutSequenceHeader(n)
		for i := 0; i < n; i++ {
			encodeReflect(e, rv.Index(i))
		}
	case reflect.Ptr:
		if rv.IsNil() {
			e.PutU8(0)
		} else {
			e.PutU8(1)
			encodeReflect(e, rv.Elem())
		}
	case reflect.Map:
		isSet := rv.Type().Elem().Kind() == reflect.Struct && rv.Type().Elem().NumField() == 0
		keys := rv.MapKeys()
		e.PutSequenceHeader(len(keys))
		for _, k := range keys {
			if isSet {
				encodeReflect(e, k)
			} else {
				encodeReflect(e, k)
				encodeReflect(e, rv.MapIndex(k))
			}
		}
	case reflect.Struct:
		for i := 0; i < rv.NumField(); i++ {
			f := rv.Type().Field(i)
			if f.PkgPath != "" && !f.Anonymous {
				continue
			}
			encodeReflect(e, rv.Field(i))
		}
	default:
		panic("wire: value of kind " + rv.Kind().String() + " has no wire representation")
	}
}

// DecodeValue decodes from d into *out, which must be a non-nil pointer.
// The traversal mirrors encodeReflect exactly.
func DecodeValue(d *Decoder, out interface{}) error {
	rv := reflect.ValueOf(out)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return errors.New("wire: DecodeValue requires a non-nil pointer")
	}
	return decodeReflect(d, rv.Elem())
}

func decodeReflect(d *Decoder, rv reflect.Value) error {
	switch rv.Kind() {
	case reflect.Bool:
		v, err := d.Bool()
		if err != nil {
			return err
		}
		rv.SetBool(v)
	case reflect.Int8:
		v, err := d.I8()
		if err != nil {
			return err
		}
		rv.SetInt(int64(v))
	case reflect.Int16:
		v, err := d.I16()
		if err != nil {
			return err
		}
		rv.SetInt(int64(v))
	case reflect.Int32:
		v, err := d.I32()
		if err != nil {
			return err
		}
		rv.SetInt(int64(v))
	case reflect.Int, reflect.Int64:
		v, err := d.I64()
		if err != nil {
			return err
		}
		rv.SetInt(v)
	case reflect.Uint8:
		v, err := d.U8()
		if err != nil {
			return err
		}
		rv.SetUint(uint64(v))
	case reflect.Uint16:
		v, err := d.U16()
		if err != nil {
			return err
		}
		rv.SetUint(uint64(v))
	case reflect.Uint32:
		v, err := d.U32()
		if err != nil {
			return err
		}
		rv.SetUint(uint64(v))
	case reflect.Uint, reflect.Uint64, reflect.Uintptr:
		v, err := d.U64()
		if err != nil {
			return err
		}
		rv.SetUint(v)
	case reflect.Float32:
		v, err := d.F32()
		if err != nil {
			return err
		}
		rv.SetFloat(float64(v))
	case reflect.Float64:
		v, err := d.F64()
		if err != nil {
			return err
		}
		rv.SetFloat(v)
	case reflect.String:
		v, err := d.String()
		if err != nil {
			return err
		}
		rv.SetString(v)
	case reflect.Slice:
		n, err := d.SequenceHeader(0)
		if err != nil {
			return err
		}
		s := reflect.MakeSlice(rv.Type(), n, n)
		for i := 0; i < n; i++ {
			if err := decodeReflect(d, s.Index(i)); err != nil {
				return err
			}
		}
		rv.Set(s)
	case reflect.Array:
		n, err := d.SequenceHeader(0)
		if err != nil {
			return err
		}
		if n != rv.Len() {
			return errors.Wrapf(ErrTagViolation, "array length mismatch: wire %d, type %d", n, rv.Len())
		}
		for i := 0; i < n; i++ {
			if err := decodeReflect(d, rv.Index(i)); err != nil {
				return err
			}
		}
	case reflect.Ptr:
		disc, err := d.U8()
		if err != nil {
			return err
		}
		switch disc {
		case 0:
			rv.Set(reflect.Zero(rv.Type()))
		case 1:
			p := reflect.New(rv.Type().Elem())
			if err := decodeReflect(d, p.Elem()); err != nil {
				return err
			}
			rv.Set(p)
		default:
			return errors.Wrapf(ErrUnknownVariant, "optional discriminator %d", disc)
		}
	case reflect.Map:
		isSet := rv.Type().Elem().Kind() == reflect.Struct && rv.Type().Elem().NumField() == 0
		n, err := d.SequenceHeader(0)
		if err != nil {
			return err
		}
		m := reflect.MakeMapWithSize(rv.Type(), n)
		for i := 0; i < n; i++ {
			k := reflect.New(rv.Type().Key()).Elem()
			if err := decodeReflect(d, k); err != nil {
				return err
			}
			if isSet {
				m.SetMapIndex(k, reflect.Zero(rv.Type().Elem()))
				continue
			}
			v := reflect.New(rv.Type().Elem()).Elem()
			if err := decodeReflect(d, v); err != nil {
				return err
			}
			m.SetMapIndex(k, v)
		}
		rv.Set(m)
	case reflect.Struct:
		for i := 0; i < rv.NumField(); i++ {
			f := rv.Type().Field(i)
			if f.PkgPath != "" && !f.Anonymous {
				continue
			}
			if err := decodeReflect(d, rv.Field(i)); err != nil {
				return err
			}
		}
	default:
		return errors.Errorf("wire: value of kind %s has no wire representation", rv.Kind())
	}
	return nil
}

// SerializedSize computes the exact byte length EncodeValue would produce
// for v, as a separate size pass (§4.2). The producer path does not call
// it: session.Writer.AddEvent receives already-encoded argument bytes and
// reserves their length.
func SerializedSize(v interface{}) int {
	return sizeofReflect(reflect.ValueOf(v))
}

func sizeofReflect(rv reflect.Value) int {
	if !rv.IsValid() {
		return 0
	}
	switch rv.Kind() {
	case reflect.Bool, reflect.Int8, reflect.Uint8:
		return 1
	case reflect.Int16, reflect.Uint16:
		return 2
	case reflect.Int32, reflect.Uint32, reflect.Float32:
		return 4
	case reflect.Int, reflect.Int64, reflect.Uint, reflect.Uint64, reflect.Uintptr, reflect.Float64:
		return 8
	case reflect.String:
		return 4 + len(rv.String())
	case reflect.Slice, reflect.Array:
		n := rv.Len()
		size := 4
		for i := 0; i < n; i++ {
			size += sizeofReflect(rv.Index(i))
		}
		return size
	case reflect.Ptr:
		if rv.IsNil() {
			return 1
		}
		return 1 + sizeofReflect(rv.Elem())
	case reflect.Map:
		isSet := rv.Type().Elem().Kind() == reflect.Struct && rv.Type().Elem().NumField() == 0
		size := 4
		iter := rv.MapRange()
		for iter.Next() {
			size += sizeofReflect(iter.Key())
			if !isSet {
				size += sizeofReflect(iter.Value())
			}
		}
		return size
	case reflect.Struct:
		size := 0
		for i := 0; i < rv.NumField(); i++ {
			f := rv.Type().Field(i)
			if f.PkgPath != "" && !f.Anonymous {
				continue
			}
			size += sizeofReflect(rv.Field(i))
		}
		return size
	default:
		panic("wire: value of kind " + rv.Kind().String() + " has no wire representation")
	}
}
