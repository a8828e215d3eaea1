package pretty

import (
	"fmt"
	"io"
	"strings"

	"github.com/morganstanley/binlog-sub000/reader"
	"github.com/morganstanley/binlog-sub000/wire"
)

// DefaultEventFormat and DefaultTimeFormat are the printer's defaults from
// §4.10.
const (
	DefaultEventFormat = "%S %C [%d] %n %m (%G:%L)\n"
	DefaultTimeFormat  = "%m/%d %H:%M:%S.%N"
)

// Printer renders Events with two independent format DSLs compiled once at
// construction (§4.10).
type Printer struct {
	eventDirs []directive
	timeDirs  []directive
}

// New compiles eventFormat and timeFormat into a Printer.
func New(eventFormat, timeFormat string) *Printer {
	return &Printer{eventDirs: compile(eventFormat), timeDirs: compile(timeFormat)}
}

// Default returns a Printer using §4.10's default event and time formats.
func Default() *Printer { return New(DefaultEventFormat, DefaultTimeFormat) }

// Format renders one line for ev to w, using wp and cs as the event's
// current writer label and clock anchor (the reader tracks both as it
// streams metadata entries; ev.WriterProp/ev.ClockSync are the values to
// pass here).
func (p *Printer) Format(w io.Writer, ev *reader.Event, wp wire.WriterProp, cs wire.ClockSync) error {
	var b strings.Builder
	for _, d := range p.eventDirs {
		if d.verb == 0 {
			b.WriteString(d.lit)
			continue
		}
		switch d.verb {
		case 'I':
			fmt.Fprintf(&b, "%d", ev.Source.ID)
		case 'S':
			b.WriteString(severityMnemonic(ev.Source.Severity))
		case 'C':
			b.WriteString(ev.Source.Category)
		case 'M':
			b.WriteString(ev.Source.Function)
		case 'F':
			b.WriteString(ev.Source.File)
		case 'G':
			b.WriteString(basename(ev.Source.File))
		case 'L':
			fmt.Fprintf(&b, "%d", ev.Source.Line)
		case 'P':
			b.WriteString(ev.Source.FormatString)
		case 'T':
			b.WriteString(ev.Source.ArgumentTags)
		case 'n':
			b.WriteString(wp.Name)
		case 't':
			fmt.Fprintf(&b, "%d", wp.ID)
		case 'd':
			b.WriteString(p.renderEventTime(ev.ClockValue, cs, true))
		case 'u':
			b.WriteString(p.renderEventTime(ev.ClockValue, cs, false))
		case 'r':
			fmt.Fprintf(&b, "%d", ev.ClockValue)
		case 'm':
			msg, err := renderMessage(ev)
			if err != nil {
				return err
			}
			b.WriteString(msg)
		case '%':
			b.WriteByte('%')
		default:
			b.WriteByte('%')
			b.WriteByte(d.verb)
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func (p *Printer) renderEventTime(clockValue uint64, cs wire.ClockSync, producerLocal bool) string {
	ns, ok := ticksToNs(&cs, clockValue)
	if !ok {
		return "no_clock_sync?"
	}
	return renderTime(p.timeDirs, ns, cs.TzOffset, cs.TzName, producerLocal)
}

var severityMnemonics = map[wire.Severity]string{
	wire.SeverityTrace:    "TRAC",
	wire.SeverityDebug:    "DEBG",
	wire.SeverityInfo:     "INFO",
	wire.SeverityWarning:  "WARN",
	wire.SeverityError:    "ERRO",
	wire.SeverityCritical: "CRIT",
	wire.SeverityNoLogs:   "NOLG",
}

func severityMnemonic(s wire.Severity) string {
	if m, ok := severityMnemonics[s]; ok {
		return m
	}
	return "UNKW"
}

// basename splits on both '/' and '\', per §4.10's "%G" rule -- a producer
// may have compiled on Windows or Unix regardless of where the consumer
// runs.
func basename(path string) string {
	i := strings.LastIndexAny(path, "/\\")
	if i < 0 {
		return path
	}
	return path[i+1:]
}
