package wire

import "testing"

func TestEntryHeaderRoundTrip(t *testing.T) {
	e := NewEncoder(nil)
	PutEntryHeader(e, 42, 100)
	d := NewDecoder(e.Bytes())
	h, err := DecodeEntryHeader(d)
	if err != nil {
		t.Fatalf("DecodeEntryHeader: %v", err)
	}
	if h.Tag != 42 || h.Size != 100 {
		t.Fatalf("got %+v", h)
	}
	if d.Remaining() != 0 {
		t.Fatalf("expected header fully consumed, %d bytes remain", d.Remaining())
	}
}

func TestSpecialTagsDoNotCollideWithAssignableIDs(t *testing.T) {
	if TagClockSync <= MaxEventSourceID || TagWriterProp <= MaxEventSourceID || TagEventSource <= MaxEventSourceID {
		t.Fatalf("a special tag collides with the assignable id range (max %d)", MaxEventSourceID)
	}
	if MaxEventSourceID != TagClockSync-1 {
		t.Fatalf("MaxEventSourceID = %d, want %d", MaxEventSourceID, TagClockSync-1)
	}
}

func TestSeverityEnumNames(t *testing.T) {
	if SeverityInfo.String() != "info" {
		t.Fatalf("SeverityInfo.String() = %q", SeverityInfo.String())
	}
	if Severity(999).String() != "unknown" {
		t.Fatalf("unrecognized severity should render unknown, got %q", Severity(999).String())
	}
	names := SeverityInfo.EnumNames()
	if names[int64(SeverityCritical)] != "critical" {
		t.Fatalf("EnumNames missing critical entry: %+v", names)
	}
}

func TestEventSourceEncodeDecodeRoundTrip(t *testing.T) {
	src := &EventSource{
		ID:           5,
		Severity:     SeverityWarning,
		Category:     "net",
		Function:     "Dial",
		File:         "dial.go",
		Line:         17,
		FormatString: "connecting to {}",
		ArgumentTags: "[c",
	}
	e := NewEncoder(nil)
	EncodeEventSource(e, src)

	d := NewDecoder(e.Bytes())
	h, err := DecodeEntryHeader(d)
	if err != nil {
		t.Fatalf("DecodeEntryHeader: %v", err)
	}
	if h.Tag != TagEventSource {
		t.Fatalf("tag = %d, want TagEventSource", h.Tag)
	}
	if err := ValidateEventPayloadSize(h, d.Remaining()); err != nil {
		t.Fatalf("ValidateEventPayloadSize: %v", err)
	}
	payload, err := d.Bytes(int(h.Size))
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	got, err := DecodeEventSource(NewDecoder(payload))
	if err != nil {
		t.Fatalf("DecodeEventSource: %v", err)
	}
	if *got != *src {
		t.Fatalf("round trip mismatch:\n got:  %+v\nwant: %+v", *got, *src)
	}
}

func TestEventSourceFingerprintStableAndSensitiveToShape(t *testing.T) {
	a := &EventSource{FormatString: "x={}", Function: "F", File: "f.go", ArgumentTags: "i"}
	b := &EventSource{FormatString: "x={}", Function: "F", File: "f.go", ArgumentTags: "i"}
	c := &EventSource{FormatString: "x={}", Function: "F", File: "f.go", ArgumentTags: "l"}

	if a.Fingerprint() != b.Fingerprint() {
		t.Fatalf("identical call sites produced different fingerprints")
	}
	if a.Fingerprint() == c.Fingerprint() {
		t.Fatalf("different argument shapes produced the same fingerprint")
	}
}

func TestWriterPropEncodeDecodeRoundTrip(t *testing.T) {
	p := &WriterProp{ID: 3, Name: "worker-1", BatchSize: 64}
	e := NewEncoder(nil)
	EncodeWriterProp(e, p)

	d := NewDecoder(e.Bytes())
	h, err := DecodeEntryHeader(d)
	if err != nil || h.Tag != TagWriterProp {
		t.Fatalf("header: %+v, %v", h, err)
	}
	payload, err := d.Bytes(int(h.Size))
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	got, err := DecodeWriterProp(NewDecoder(payload))
	if err != nil {
		t.Fatalf("DecodeWriterProp: %v", err)
	}
	if *got != *p {
		t.Fatalf("round trip mismatch: got %+v, want %+v", *got, *p)
	}
}

func TestClockSyncEncodeDecodeRoundTrip(t *testing.T) {
	c := &ClockSync{
		ClockValue:     123456,
		ClockFrequency: 1_000_000_000,
		NsSinceEpoch:   1_700_000_000_000_000_000,
		TzOffset:       -5 * 3600,
		TzName:         "EST",
	}
	e := NewEncoder(nil)
	EncodeClockSync(e, c)

	d := NewDecoder(e.Bytes())
	h, err := DecodeEntryHeader(d)
	if err != nil || h.Tag != TagClockSync {
		t.Fatalf("header: %+v, %v", h, err)
	}
	payload, err := d.Bytes(int(h.Size))
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	got, err := DecodeClockSync(NewDecoder(payload))
	if err != nil {
		t.Fatalf("DecodeClockSync: %v", err)
	}
	if *got != *c {
		t.Fatalf("round trip mismatch: got %+v, want %+v", *got, *c)
	}
}

func TestValidateEventPayloadSizeRejectsShortInput(t *testing.T) {
	h := EntryHeader{Size: 100, Tag: 1}
	if err := ValidateEventPayloadSize(h, 50); err == nil {
		t.Fatalf("expected error when declared size exceeds remaining bytes")
	}
	if err := ValidateEventPayloadSize(h, 100); err != nil {
		t.Fatalf("exact fit should not error: %v", err)
	}
}
