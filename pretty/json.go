package pretty

import (
	"encoding/json"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/pkg/errors"

	"github.com/morganstanley/binlog-sub000/reader"
	"github.com/morganstanley/binlog-sub000/tag"
	"github.com/morganstanley/binlog-sub000/visit"
	"github.com/morganstanley/binlog-sub000/wire"
)

// jsonRecord is one event rendered as a JSON object -- the expansion's
// alternate output format, an independent visit.Visitor implementation
// (visit.CollectVisitor) rather than a special case of the text renderer.
type jsonRecord struct {
	SourceID   uint64 `json:"source_id"`
	Severity   string `json:"severity"`
	Category   string `json:"category"`
	Function   string `json:"function"`
	File       string `json:"file"`
	Line       uint64 `json:"line"`
	WriterID   uint64 `json:"writer_id"`
	WriterName string `json:"writer_name"`
	ClockValue uint64 `json:"clock_value"`
	TimeUTC    string `json:"time_utc,omitempty"`
	Message    string `json:"message"`
	Args       []any  `json:"args"`
}

// FormatJSON renders ev as one JSON object per line to w.
func FormatJSON(w io.Writer, ev *reader.Event, wp wire.WriterProp, cs wire.ClockSync) error {
	tags, err := tag.ParseTuple(ev.Source.ArgumentTags)
	if err != nil {
		return errors.Wrap(err, "pretty: parsing argument tags")
	}

	d := wire.NewDecoder(ev.Args)
	args := make([]any, len(tags))
	for i, t := range tags {
		cv := visit.NewCollectVisitor()
		if err := visit.Walk(cv, t, d); err != nil {
			return errors.Wrapf(err, "pretty: collecting argument %d", i)
		}
		args[i] = sanitizeUTF8(cv.Result())
	}

	msg, err := renderMessage(ev)
	if err != nil {
		return err
	}

	rec := jsonRecord{
		SourceID:   ev.Source.ID,
		Severity:   severityMnemonic(ev.Source.Severity),
		Category:   ev.Source.Category,
		Function:   ev.Source.Function,
		File:       ev.Source.File,
		Line:       ev.Source.Line,
		WriterID:   wp.ID,
		WriterName: wp.Name,
		ClockValue: ev.ClockValue,
		Message:    sanitizeUTF8(msg).(string),
		Args:       args,
	}
	if ns, ok := ticksToNs(&cs, ev.ClockValue); ok {
		rec.TimeUTC = time.Unix(0, int64(ns)).UTC().Format(time.RFC3339Nano)
	}

	return json.NewEncoder(w).Encode(rec)
}

// sanitizeUTF8 walks a visit.CollectVisitor result tree replacing invalid
// UTF-8 byte sequences in every string with unicode/utf8.RuneError per
// codepoint, so FormatJSON never writes invalid UTF-8 into the encoder
// (§4.10's expansion). Ranging over a string already yields RuneError for
// each invalid sequence, so re-assembling via that range is the
// substitution.
func sanitizeUTF8(v any) any {
	switch x := v.(type) {
	case string:
		if utf8.ValidString(x) {
			return x
		}
		var b strings.Builder
		for _, r := range x {
			b.WriteRune(r)
		}
		return b.String()
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = sanitizeUTF8(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, val := range x {
			out[k] = sanitizeUTF8(val)
		}
		return out
	default:
		return v
	}
}
