package pretty

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/morganstanley/binlog-sub000/reader"
	"github.com/morganstanley/binlog-sub000/tag"
	"github.com/morganstanley/binlog-sub000/visit"
	"github.com/morganstanley/binlog-sub000/wire"
)

// renderMessage implements "%m" (§4.10): parse the event source's argument
// tags, walk each argument with a StringVisitor, and substitute the
// rendered values into the format string's "{}" placeholders in order.
func renderMessage(ev *reader.Event) (string, error) {
	tags, err := tag.ParseTuple(ev.Source.ArgumentTags)
	if err != nil {
		return "", errors.Wrap(err, "pretty: parsing argument tags")
	}

	d := wire.NewDecoder(ev.Args)
	values := make([]string, len(tags))
	for i, t := range tags {
		sv := visit.NewStringVisitor()
		if err := visit.Walk(sv, t, d); err != nil {
			return "", errors.Wrapf(err, "pretty: rendering argument %d", i)
		}
		values[i] = sv.String()
	}
	return substitutePlaceholders(ev.Source.FormatString, values), nil
}

func substitutePlaceholders(format string, values []string) string {
	var b strings.Builder
	vi := 0
	for i := 0; i < len(format); i++ {
		if format[i] == '{' && i+1 < len(format) && format[i+1] == '}' {
			if vi < len(values) {
				b.WriteString(values[vi])
				vi++
			}
			i++
			continue
		}
		b.WriteByte(format[i])
	}
	return b.String()
}
