package pretty

import (
	"fmt"
	"math/bits"
	"strings"
	"time"

	"github.com/morganstanley/binlog-sub000/wire"
)

// ticksToNs converts an event's raw clock_value to nanoseconds since the
// Unix epoch given a ClockSync anchor, per §4.10: "compute q*ticks +
// r/f*1e9 carefully to avoid 64-bit overflow". elapsed*1e9 is computed as
// a full 128-bit product via math/bits.Mul64 and then divided by the
// frequency with bits.Div64, so neither step can silently wrap before the
// division narrows it back down, the way a naive elapsed*1e9/freq would
// for a large tick count.
func ticksToNs(cs *wire.ClockSync, clockValue uint64) (uint64, bool) {
	if cs == nil || cs.ClockFrequency == 0 {
		return 0, false
	}
	freq := cs.ClockFrequency

	var elapsed uint64
	negative := false
	if clockValue >= cs.ClockValue {
		elapsed = clockValue - cs.ClockValue
	} else {
		elapsed = cs.ClockValue - clockValue
		negative = true
	}

	q := elapsed / freq
	r := elapsed % freq
	hi, lo := bits.Mul64(r, 1e9)
	rNs, _ := bits.Div64(hi, lo, freq)
	elapsedNs := q*1e9 + rNs

	if negative {
		return cs.NsSinceEpoch - elapsedNs, true
	}
	return cs.NsSinceEpoch + elapsedNs, true
}

// renderTime formats nsSinceEpoch through the compiled time directives.
// When producerLocal is true, tzOffsetSeconds is added to the UTC instant
// before the fields are read out, per §4.10 ("broken down as UTC, then the
// tz_offset seconds are added for %d"); %u renders the bare UTC instant.
// %z and %Z always describe tzOffsetSeconds/tzName regardless of which
// mode produced the instant.
func renderTime(dirs []directive, nsSinceEpoch uint64, tzOffsetSeconds int32, tzName string, producerLocal bool) string {
	t := time.Unix(0, int64(nsSinceEpoch)).UTC()
	if producerLocal {
		t = t.Add(time.Duration(tzOffsetSeconds) * time.Second)
	}

	var b strings.Builder
	for _, d := range dirs {
		if d.verb == 0 {
			b.WriteString(d.lit)
			continue
		}
		switch d.verb {
		case 'Y':
			fmt.Fprintf(&b, "%04d", t.Year())
		case 'y':
			fmt.Fprintf(&b, "%02d", t.Year()%100)
		case 'm':
			fmt.Fprintf(&b, "%02d", int(t.Month()))
		case 'd':
			fmt.Fprintf(&b, "%02d", t.Day())
		case 'H':
			fmt.Fprintf(&b, "%02d", t.Hour())
		case 'M':
			fmt.Fprintf(&b, "%02d", t.Minute())
		case 'S':
			fmt.Fprintf(&b, "%02d", t.Second())
		case 'z':
			b.WriteString(formatTzOffset(tzOffsetSeconds))
		case 'Z':
			b.WriteString(tzName)
		case 'N':
			fmt.Fprintf(&b, "%09d", t.Nanosecond())
		case '%':
			b.WriteByte('%')
		default:
			b.WriteByte('%')
			b.WriteByte(d.verb)
		}
	}
	return b.String()
}

// formatTzOffset renders ±HHMM per §4.10's "%z" rule.
func formatTzOffset(offsetSeconds int32) string {
	sign := byte('+')
	abs := offsetSeconds
	if abs < 0 {
		sign = '-'
		abs = -abs
	}
	return fmt.Sprintf("%c%02d%02d", sign, abs/3600, (abs/60)%60)
}
