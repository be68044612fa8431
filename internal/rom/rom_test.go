package rom

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// makeNES builds a minimal iNES image with the given PRG/CHR unit counts.
func makeNES(t *testing.T, prgUnits, chrUnits byte, trainer bool, fill byte) []byte {
	t.Helper()
	header := make([]byte, nesHeaderSize)
	copy(header, nesMagic)
	header[4] = prgUnits
	header[5] = chrUnits
	if trainer {
		header[6] |= 0x04
	}
	size := int(prgUnits)*nesPRGUnit + int(chrUnits)*nesCHRUnit
	data := append([]byte{}, header...)
	if trainer {
		data = append(data, make([]byte, nesTrainerSize)...)
	}
	payload := make([]byte, size)
	for i := range payload {
		payload[i] = fill
	}
	return append(data, payload...)
}

func TestSplitNES(t *testing.T) {
	data := makeNES(t, 2, 1, false, 0xAB)

	header, payload, format, err := Split(data)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if format != "NES" {
		t.Errorf("format = %q, want NES", format)
	}
	if len(header) != nesHeaderSize {
		t.Errorf("header length = %d, want %d", len(header), nesHeaderSize)
	}
	if len(payload) != 2*nesPRGUnit+nesCHRUnit {
		t.Errorf("payload length = %d, want %d", len(payload), 2*nesPRGUnit+nesCHRUnit)
	}
}

func TestSplitNESTrainer(t *testing.T) {
	data := makeNES(t, 1, 0, true, 0x11)

	header, payload, _, err := Split(data)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	// Trainer bytes belong to the captured header, not the payload.
	if len(header) != nesHeaderSize+nesTrainerSize {
		t.Errorf("header length = %d, want %d", len(header), nesHeaderSize+nesTrainerSize)
	}
	if len(payload) != nesPRGUnit {
		t.Errorf("payload length = %d, want %d", len(payload), nesPRGUnit)
	}
}

func TestSplitTrainerDoesNotChangeHash(t *testing.T) {
	plain := makeNES(t, 1, 0, false, 0x42)
	trained := makeNES(t, 1, 0, true, 0x42)

	_, p1, _, err := Split(plain)
	if err != nil {
		t.Fatalf("Split plain: %v", err)
	}
	_, p2, _, err := Split(trained)
	if err != nil {
		t.Fatalf("Split trained: %v", err)
	}
	if Fingerprint(p1) != Fingerprint(p2) {
		t.Error("fingerprint differs for identical payloads with different headers")
	}
}

func TestSplitMalformedNES(t *testing.T) {
	data := makeNES(t, 1, 0, false, 0)
	// Declare more PRG data than the buffer holds.
	data[4] = 8

	_, _, _, err := Split(data)
	if err == nil {
		t.Fatal("Split accepted a header whose declared sizes exceed the buffer")
	}
	if !strings.Contains(err.Error(), "NES") {
		t.Errorf("error %q does not name the format", err)
	}
}

func TestSplitRawFallback(t *testing.T) {
	data := []byte("just some bytes, no magic")

	header, payload, format, err := Split(data)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if format != FormatRaw {
		t.Errorf("format = %q, want %q", format, FormatRaw)
	}
	if header != nil {
		t.Errorf("header = %v, want nil", header)
	}
	if !bytes.Equal(payload, data) {
		t.Error("payload does not equal the whole file")
	}
}

func TestReassembleRoundTrip(t *testing.T) {
	cases := [][]byte{
		makeNES(t, 1, 1, false, 0x99),
		makeNES(t, 2, 0, true, 0x7F),
		[]byte("raw file contents"),
	}
	for _, data := range cases {
		header, payload, _, err := Split(data)
		if err != nil {
			t.Fatalf("Split: %v", err)
		}
		if got := Reassemble(header, payload); !bytes.Equal(got, data) {
			t.Errorf("Reassemble(Split(data)) != data for %d-byte input", len(data))
		}
	}
}

func TestIdentifyFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "game.nes")
	data := makeNES(t, 1, 1, false, 0x55)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	id, err := IdentifyFile(path)
	if err != nil {
		t.Fatalf("IdentifyFile: %v", err)
	}
	if id.Format != "NES" {
		t.Errorf("Format = %q, want NES", id.Format)
	}
	if id.Filename != "game.nes" {
		t.Errorf("Filename = %q, want game.nes", id.Filename)
	}
	if len(id.Hash) != HashLength {
		t.Errorf("Hash length = %d, want %d", len(id.Hash), HashLength)
	}
	if !bytes.Equal(Reassemble(id.Header, id.Payload), data) {
		t.Error("identity does not reassemble to the original bytes")
	}
}

func TestParseNESHeader(t *testing.T) {
	data := makeNES(t, 2, 1, true, 0)
	header, _, _, err := Split(data)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}

	info, ok := ParseNESHeader(header)
	if !ok {
		t.Fatal("ParseNESHeader rejected a valid header")
	}
	if info.PRGSize != 2*nesPRGUnit {
		t.Errorf("PRGSize = %d, want %d", info.PRGSize, 2*nesPRGUnit)
	}
	if info.CHRSize != nesCHRUnit {
		t.Errorf("CHRSize = %d, want %d", info.CHRSize, nesCHRUnit)
	}
	if !info.HasTrainer {
		t.Error("HasTrainer = false, want true")
	}

	if _, ok := ParseNESHeader([]byte("not a header")); ok {
		t.Error("ParseNESHeader accepted junk")
	}
}

func TestHashHelpers(t *testing.T) {
	hash := Fingerprint([]byte("x"))
	if !IsHash(hash) {
		t.Errorf("IsHash(%q) = false", hash)
	}
	if IsHash(hash[:10]) {
		t.Error("IsHash accepted a prefix")
	}
	if !IsHashPrefix(hash[:10]) {
		t.Error("IsHashPrefix rejected a 10-char prefix")
	}
	if IsHashPrefix("ab") {
		t.Error("IsHashPrefix accepted a 2-char prefix")
	}
	if IsHashPrefix("nothex!!") {
		t.Error("IsHashPrefix accepted non-hex input")
	}
	if got := ShortHash(hash, 16); got != hash[:16] {
		t.Errorf("ShortHash = %q, want %q", got, hash[:16])
	}
	if got := ShortHash(hash, 0); got != hash {
		t.Errorf("ShortHash with n=0 = %q, want full hash", got)
	}
}
