// Package pretty implements the two independent format DSLs of the pretty
// printer (C10): an event-format string and a time-format string, each
// compiled once into a small op-list instead of being re-parsed on every
// call, the way the teacher's format.go precomputes a record's field table
// once rather than walking SampleFormat bits per print.
package pretty

import "strings"

// directive is one compiled unit of a format string: either a literal run
// of text (verb == 0) or a %verb substitution.
type directive struct {
	lit  string
	verb byte
}

// compile splits format into literal runs and %verb directives. An
// unrecognized verb is not rejected here -- both Printer.Format and
// renderTime pass it through as "%x" at render time, per §4.10's "any
// other %x is passed through verbatim".
func compile(format string) []directive {
	var dirs []directive
	var lit strings.Builder
	for i := 0; i < len(format); {
		if format[i] != '%' {
			lit.WriteByte(format[i])
			i++
			continue
		}
		if i+1 >= len(format) {
			lit.WriteByte('%')
			i++
			continue
		}
		if lit.Len() > 0 {
			dirs = append(dirs, directive{lit: lit.String()})
			lit.Reset()
		}
		dirs = append(dirs, directive{verb: format[i+1]})
		i += 2
	}
	if lit.Len() > 0 {
		dirs = append(dirs, directive{lit: lit.String()})
	}
	return dirs
}
