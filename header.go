package fcs

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
)

// headerSize is the fixed length of the HEADER segment (FCS 3.1 §3.1).
const headerSize = 58

// offsetFieldWidth is the width in bytes of each of the six HEADER offset
// fields (TEXT/DATA/ANALYSIS begin and end).
const offsetFieldWidth = 8

// header is the decoded fixed 58-byte HEADER prefix.
type header struct {
	Version       string
	TextStart     int
	TextEnd       int
	DataStart     int
	DataEnd       int
	AnalysisStart int
	AnalysisEnd   int
}

var supportedVersions = map[string]bool{
	"FCS2.0": true,
	"FCS3.0": true,
	"FCS3.1": true,
}

// readHeader reads exactly headerSize bytes from r and decodes the HEADER
// segment. It returns ErrMalformedHeader if the magic/version bytes or any
// offset field cannot be parsed.
func readHeader(r io.Reader) (*header, error) {
	buf := make([]byte, headerSize)
	if _, err := io.ReadFull(r, buf); err != nil {
		if err == io.ErrUnexpectedEOF || err == io.EOF {
			return nil, fmt.Errorf("%w: truncated before end of header", ErrMalformedHeader)
		}
		return nil, err
	}

	version := string(buf[0:6])
	if !supportedVersions[version] {
		return nil, fmt.Errorf("%w: unrecognized version %q", ErrMalformedHeader, version)
	}

	// Bytes 6-9 are conventionally spaces but are not validated strictly;
	// some writers pad inconsistently and the standard only requires the
	// version string and offsets to be meaningful.

	h := &header{Version: version[3:6]}
	offsets := make([]int, 6)
	for i := range offsets {
		start := 10 + i*offsetFieldWidth
		field := buf[start : start+offsetFieldWidth]
		trimmed := bytes.TrimSpace(field)
		if len(trimmed) == 0 {
			offsets[i] = 0
			continue
		}
		n, err := strconv.Atoi(string(trimmed))
		if err != nil {
			return nil, fmt.Errorf("%w: offset field %d is not numeric: %q", ErrMalformedHeader, i, trimmed)
		}
		offsets[i] = n
	}

	h.TextStart, h.TextEnd = offsets[0], offsets[1]
	h.DataStart, h.DataEnd = offsets[2], offsets[3]
	h.AnalysisStart, h.AnalysisEnd = offsets[4], offsets[5]

	return h, nil
}

// formatOffset renders an offset right-justified in an 8-byte field, as
// spec.md §3 invariant 7 requires. Values that would overflow the field
// (> 99,999,999) are rendered as "0"; callers must detect this and fall
// back to $BEGIN.../$END... keywords in TEXT instead.
func formatOffset(n int) string {
	if n > 99999999 || n < 0 {
		return fmt.Sprintf("%8s", "0")
	}
	return fmt.Sprintf("%8d", n)
}

// writeHeader renders the 58-byte HEADER segment for the given version and
// offsets. Offsets exceeding the HEADER ceiling are written as 0; the
// caller is responsible for also emitting the corresponding $BEGIN/$END
// keyword in TEXT.
func writeHeader(version string, textStart, textEnd, dataStart, dataEnd, analysisStart, analysisEnd int) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "FCS%-3s", version)
	buf.WriteString("    ")
	buf.WriteString(formatOffset(textStart))
	buf.WriteString(formatOffset(textEnd))
	buf.WriteString(formatOffset(dataStart))
	buf.WriteString(formatOffset(dataEnd))
	buf.WriteString(formatOffset(analysisStart))
	buf.WriteString(formatOffset(analysisEnd))

	out := buf.Bytes()
	if len(out) != headerSize {
		panic(fmt.Sprintf("fcs: internal error: header is %d bytes, want %d", len(out), headerSize))
	}
	return out
}
