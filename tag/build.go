package tag

import (
	"fmt"
	"reflect"
	"strings"
)

// Tagger is implemented by types that know their own tag string -- the Go
// analogue of the C++ struct/enum/template adaptation macros. A type that
// implements Tagger is never walked by reflection; its Tag() is used
// verbatim.
type Tagger interface {
	Tag() string
}

// EnumNamer is implemented by integer-kinded named types that want enum
// adaptation: a name plus a value->enumerator mapping. Values with no
// matching entry render as raw hex at both tag-build and render time.
type EnumNamer interface {
	EnumNames() map[int64]string
}

var taggerType = reflect.TypeOf((*Tagger)(nil)).Elem()
var enumNamerType = reflect.TypeOf((*EnumNamer)(nil)).Elem()

// Of computes the type tag of v, per the grammar in spec §3. It is the
// reflection-driven mechanical derivation mentioned in §4.1: sequences,
// tuples, and optionals of any taggable T derive their tags automatically.
func Of(v interface{}) string {
	t := reflect.TypeOf(v)
	seen := map[string]bool{}
	return ofType(t, seen)
}

// OfType is Of for a reflect.Type directly (used when no value is at hand,
// e.g. for a struct field's declared type).
func OfType(t reflect.Type) string {
	return ofType(t, map[string]bool{})
}

func ofType(t reflect.Type, seen map[string]bool) string {
	if t == nil {
		return "y" // untyped nil has no principled tag; treat as an empty marker
	}

	// Tagger / EnumNamer take precedence over structural reflection so a
	// custom type can opt out of the mechanical derivation.
	if t.Implements(taggerType) {
		return reflect.Zero(t).Interface().(Tagger).Tag()
	}
	if reflect.PtrTo(t).Implements(taggerType) {
		return reflect.New(t).Interface().(Tagger).Tag()
	}
	if isIntKind(t.Kind()) {
		if t.Implements(enumNamerType) {
			return buildEnumTag(t, reflect.Zero(t).Interface().(EnumNamer))
		}
		if reflect.PtrTo(t).Implements(enumNamerType) {
			return buildEnumTag(t, reflect.New(t).Interface().(EnumNamer))
		}
	}

	switch t.Kind() {
	case reflect.Bool:
		return "y"
	case reflect.Int8:
		return "b"
	case reflect.Int16:
		return "s"
	case reflect.Int32:
		return "i"
	case reflect.Int, reflect.Int64:
		return "l"
	case reflect.Uint8:
		return "B"
	case reflect.Uint16:
		return "S"
	case reflect.Uint32:
		return "I"
	case reflect.Uint, reflect.Uint64, reflect.Uintptr:
		return "L"
	case reflect.Float32:
		return "f"
	case reflect.Float64:
		return "d"
	case reflect.String:
		return "[c"
	case reflect.Slice, reflect.Array:
		return "[" + ofType(t.Elem(), seen)
	case reflect.Ptr:
		return "<0" + ofType(t.Elem(), seen) + ">"
	case reflect.Map:
		if t.Elem().Kind() == reflect.Struct && t.Elem().NumField() == 0 {
			// map[K]struct{} is this package's convention for a set.
			return "[" + ofType(t.Key(), seen)
		}
		return "[(" + ofType(t.Key(), seen) + ofType(t.Elem(), seen) + ")"
	case reflect.Struct:
		return ofStruct(t, seen)
	default:
		panic(fmt.Sprintf("tag: type %s has no representable tag", t))
	}
}

func ofStruct(t reflect.Type, seen map[string]bool) string {
	name := t.Name()
	if name == "" {
		name = "anon"
	}
	if seen[name] {
		return "{" + name + "}"
	}
	seen[name] = true
	defer delete(seen, name)

	var b strings.Builder
	b.WriteByte('{')
	b.WriteString(name)
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.PkgPath != "" && !f.Anonymous {
			continue // unexported, non-embedded fields carry no wire representation
		}
		label := f.Name
		if bt, ok := f.Tag.Lookup("blog"); ok {
			label = bt
		}
		if f.Anonymous {
			label = ""
		}
		b.WriteByte('`')
		b.WriteString(label)
		b.WriteByte('\'')
		b.WriteString(ofType(f.Type, seen))
	}
	b.WriteByte('}')
	return b.String()
}

func buildEnumTag(t reflect.Type, en EnumNamer) string {
	underlying := byte('l')
	switch t.Kind() {
	case reflect.Int8:
		underlying = 'b'
	case reflect.Int16:
		underlying = 's'
	case reflect.Int32:
		underlying = 'i'
	case reflect.Int, reflect.Int64:
		underlying = 'l'
	case reflect.Uint8:
		underlying = 'B'
	case reflect.Uint16:
		underlying = 'S'
	case reflect.Uint32:
		underlying = 'I'
	case reflect.Uint, reflect.Uint64:
		underlying = 'L'
	}
	names := en.EnumNames()
	keys := make([]int64, 0, len(names))
	for k := range names {
		keys = append(keys, k)
	}
	sortInt64s(keys)

	var b strings.Builder
	b.WriteByte('/')
	b.WriteByte(underlying)
	b.WriteByte('`')
	b.WriteString(t.Name())
	b.WriteByte('\'')
	for _, k := range keys {
		fmt.Fprintf(&b, "%X", uint64(k))
		b.WriteByte('`')
		b.WriteString(names[k])
		b.WriteByte('\'')
	}
	b.WriteByte('\\')
	return b.String()
}

func sortInt64s(s []int64) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}

func isIntKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	}
	return false
}

// ArgTag builds the concatenated, paren-free tag string EventSource stores
// as ArgumentTags: the tag of the argument tuple without the enclosing
// parens (§3).
func ArgTag(args ...interface{}) string {
	var b strings.Builder
	seen := map[string]bool{}
	for _, a := range args {
		b.WriteString(ofType(reflect.TypeOf(a), seen))
	}
	return b.String()
}
