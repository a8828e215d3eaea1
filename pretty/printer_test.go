package pretty

import (
	"bytes"
	"strings"
	"testing"

	"github.com/morganstanley/binlog-sub000/reader"
	"github.com/morganstanley/binlog-sub000/wire"
)

func sampleEvent(t *testing.T) *reader.Event {
	t.Helper()
	src := &wire.EventSource{
		ID:           1,
		Severity:     wire.SeverityInfo,
		Category:     "app",
		Function:     "DoThing",
		File:         `C:\src\thing.go`,
		Line:         42,
		FormatString: "got {} widgets named {}",
		ArgumentTags: "i[c",
	}
	args := wire.NewEncoder(nil)
	args.PutI32(7)
	args.PutString("sprocket")

	e := wire.NewEncoder(nil)
	wire.EncodeEventSource(e, src)

	rd := reader.New(bytes.NewReader(append(e.Bytes(), encodeEventBytes(1, 1000, args.Bytes())...)))
	if !rd.Next() {
		t.Fatalf("Next() = false, err = %v", rd.Err())
	}
	ev := *rd.Event()
	return &ev
}

func encodeEventBytes(sourceID, clock uint64, args []byte) []byte {
	payload := wire.NewEncoder(nil)
	payload.PutU64(clock)
	payload.PutBytes(args)
	e := wire.NewEncoder(nil)
	wire.PutEntryHeader(e, sourceID, len(payload.Bytes()))
	e.PutBytes(payload.Bytes())
	return e.Bytes()
}

func TestFormatDefaultLine(t *testing.T) {
	ev := sampleEvent(t)
	p := Default()
	var buf bytes.Buffer
	if err := p.Format(&buf, ev, wire.WriterProp{ID: 3, Name: "w1"}, wire.ClockSync{}); err != nil {
		t.Fatalf("Format: %v", err)
	}
	got := buf.String()
	want := "INFO app [no_clock_sync?] w1 got 7 widgets named sprocket (thing.go:42)\n"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestFormatBasenameSplitsBothSeparators(t *testing.T) {
	if got := basename(`C:\src\thing.go`); got != "thing.go" {
		t.Fatalf("basename(backslash) = %q", got)
	}
	if got := basename("/src/thing.go"); got != "thing.go" {
		t.Fatalf("basename(slash) = %q", got)
	}
}

func TestFormatWithClockSync(t *testing.T) {
	ev := sampleEvent(t)
	p := New("%d|%u|%r", "%Y-%m-%d %H:%M:%S.%N%z")
	cs := wire.ClockSync{
		ClockValue:     1000,
		ClockFrequency: 1_000_000_000, // 1 tick = 1 ns
		NsSinceEpoch:   1_700_000_000_000_000_000,
		TzOffset:       -5 * 3600,
		TzName:         "EST",
	}
	var buf bytes.Buffer
	if err := p.Format(&buf, ev, wire.WriterProp{}, cs); err != nil {
		t.Fatalf("Format: %v", err)
	}
	got := buf.String()
	parts := strings.Split(got, "|")
	if len(parts) != 3 {
		t.Fatalf("expected 3 pipe-separated fields, got %q", got)
	}
	if parts[2] != "1000" {
		t.Fatalf("raw clock = %q, want 1000", parts[2])
	}
	if !strings.HasSuffix(parts[0], "-0500") {
		t.Fatalf("expected producer-local field to end in -0500, got %q", parts[0])
	}
	if parts[0] == parts[1] {
		t.Fatalf("producer-local (%q) and UTC (%q) renderings should differ with a nonzero tz offset", parts[0], parts[1])
	}
}

func TestFormatUnknownVerbPassesThrough(t *testing.T) {
	ev := sampleEvent(t)
	p := New("%Q", "")
	var buf bytes.Buffer
	if err := p.Format(&buf, ev, wire.WriterProp{}, wire.ClockSync{}); err != nil {
		t.Fatalf("Format: %v", err)
	}
	if buf.String() != "%Q" {
		t.Fatalf("got %q, want %q", buf.String(), "%Q")
	}
}

func TestFormatLiteralPercent(t *testing.T) {
	ev := sampleEvent(t)
	p := New("%%done", "")
	var buf bytes.Buffer
	if err := p.Format(&buf, ev, wire.WriterProp{}, wire.ClockSync{}); err != nil {
		t.Fatalf("Format: %v", err)
	}
	if buf.String() != "%done" {
		t.Fatalf("got %q", buf.String())
	}
}
