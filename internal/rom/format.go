// Package rom computes content identities for ROM images: it separates a
// format-specific header from the hashed payload, fingerprints the payload,
// and reassembles the original bytes from a captured header.
package rom

import (
	"bytes"
	"fmt"
)

// FormatRaw is the format name for files with no recognized header.
const FormatRaw = "raw"

// Format is a codec that knows how to split a file of one binary format
// into its header and payload regions. The header is captured verbatim so
// the original file can be reassembled byte-exactly; the payload is the
// region covered by the content fingerprint.
type Format interface {
	// Name returns the format identifier stored with a node (e.g. "NES").
	Name() string

	// Detect reports whether data appears to be this format.
	Detect(data []byte) bool

	// Split separates data into (header, payload). It is only called when
	// Detect returned true; it returns an error when the header declares
	// sizes that exceed the buffer.
	Split(data []byte) (header, payload []byte, err error)
}

// formats is the ordered codec registry. Detection runs in order; files no
// codec claims are treated as headerless.
var formats = []Format{nesFormat{}}

// Split runs format detection over data and splits it into header and
// payload. Unknown formats degrade to headerless: the whole file is payload,
// the header is nil, and the format name is FormatRaw. A recognized format
// with a malformed header is an error, not a fallback.
func Split(data []byte) (header, payload []byte, format string, err error) {
	for _, f := range formats {
		if f.Detect(data) {
			header, payload, err = f.Split(data)
			if err != nil {
				return nil, nil, "", fmt.Errorf("%s: %w", f.Name(), err)
			}
			return header, payload, f.Name(), nil
		}
	}
	return nil, data, FormatRaw, nil
}

// Reassemble is the byte-exact inverse of Split for a captured header.
func Reassemble(header, payload []byte) []byte {
	out := make([]byte, 0, len(header)+len(payload))
	out = append(out, header...)
	return append(out, payload...)
}

// nesMagic is the iNES signature at the start of every .nes image.
var nesMagic = []byte("NES\x1a")

const (
	nesHeaderSize  = 16
	nesTrainerSize = 512
	nesPRGUnit     = 16 * 1024
	nesCHRUnit     = 8 * 1024
)

// nesFormat splits iNES cartridge images. The captured header is the
// 16-byte header plus the 512-byte trainer when flag 6 bit 2 is set; the
// payload is PRG + CHR data and anything after it.
type nesFormat struct{}

func (nesFormat) Name() string { return "NES" }

func (nesFormat) Detect(data []byte) bool {
	return len(data) >= nesHeaderSize && bytes.Equal(data[:4], nesMagic)
}

func (nesFormat) Split(data []byte) ([]byte, []byte, error) {
	headerLen := nesHeaderSize
	if data[6]&0x04 != 0 {
		headerLen += nesTrainerSize
	}
	prgSize := int(data[4]) * nesPRGUnit
	chrSize := int(data[5]) * nesCHRUnit
	if len(data) < headerLen+prgSize+chrSize {
		return nil, nil, fmt.Errorf("header declares %d PRG + %d CHR bytes but only %d remain",
			prgSize, chrSize, len(data)-headerLen)
	}
	return data[:headerLen], data[headerLen:], nil
}

// NESInfo holds the fields parsed from a captured iNES header.
type NESInfo struct {
	PRGSize    int
	CHRSize    int
	HasTrainer bool
}

// ParseNESHeader parses a captured raw header back into its declared sizes.
// Returns false if the header is not an iNES header.
func ParseNESHeader(header []byte) (NESInfo, bool) {
	if len(header) < nesHeaderSize || !bytes.Equal(header[:4], nesMagic) {
		return NESInfo{}, false
	}
	return NESInfo{
		PRGSize:    int(header[4]) * nesPRGUnit,
		CHRSize:    int(header[5]) * nesCHRUnit,
		HasTrainer: header[6]&0x04 != 0,
	}, true
}
