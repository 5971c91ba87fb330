package fcs

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"sort"
	"strconv"
)

// placeholderWidth is the fixed width used for the TEXT-segment offset
// placeholders during the Writer's two-pass layout (spec.md §4.8, §9):
// wide enough to hold any offset that can occur after TEXT is laid out,
// breaking the layout-length / offset-width circular dependency.
const placeholderWidth = 20

// WriteOptions configures Write. Use the With* functions to build one.
type WriteOptions struct {
	Delimiter       byte
	Version         string
	DataType        string // "F" (default), "D", "I", or "A"
	ByteOrder       []int  // 1-based permutation; default little-endian
	ExtraText       map[string]string
	Analysis        map[string]string
	TightBitPacking bool
	byteOrderBig    bool
}

// WriteOption mutates a WriteOptions; see WithDelimiter, WithDataType,
// WithBigEndian, WithLittleEndian, WithExtraText, WithAnalysis, and
// WithTightBitPacking.
type WriteOption func(*WriteOptions)

// WithDelimiter overrides the default '|' TEXT delimiter.
func WithDelimiter(d byte) WriteOption {
	return func(o *WriteOptions) { o.Delimiter = d }
}

// WithDataType selects the $DATATYPE written: "F" (default), "D", "I", or
// "A".
func WithDataType(t string) WriteOption {
	return func(o *WriteOptions) { o.DataType = t }
}

// WithBigEndian selects big-endian byte order for the DATA segment.
func WithBigEndian() WriteOption {
	return func(o *WriteOptions) { o.ByteOrder = nil; o.byteOrderBig = true }
}

// WithLittleEndian selects little-endian byte order (the default, so this
// is only useful to override an earlier WithBigEndian in the same option
// list).
func WithLittleEndian() WriteOption {
	return func(o *WriteOptions) { o.ByteOrder = nil; o.byteOrderBig = false }
}

// WithExtraText adds caller-supplied keywords to the TEXT segment. Keys
// are written verbatim (not forced to upper/lower case); values are
// escaped per the TEXT grammar.
func WithExtraText(kv map[string]string) WriteOption {
	return func(o *WriteOptions) { o.ExtraText = kv }
}

// WithAnalysis attaches an ANALYSIS segment, written with the same
// delimiter grammar as TEXT.
func WithAnalysis(kv map[string]string) WriteOption {
	return func(o *WriteOptions) { o.Analysis = kv }
}

// WithTightBitPacking opts an integer write into the non-byte-aligned
// bit-packed layout when a parameter's bit width is not a multiple of 8.
func WithTightBitPacking() WriteOption {
	return func(o *WriteOptions) { o.TightBitPacking = true }
}

// Write encodes events (flat, row-major: event i channel j at
// events[i*len(channels)+j]) and channels into an FCS 3.1 file written to
// sink. It returns ErrInvalidEventShape if len(events) is not a multiple
// of len(channels).
func Write(sink io.Writer, events []float64, channels []Parameter, opts ...WriteOption) error {
	o := WriteOptions{
		Delimiter: '|',
		Version:   "3.1",
		DataType:  "F",
	}
	for _, opt := range opts {
		opt(&o)
	}

	nch := len(channels)
	if nch == 0 {
		return fmt.Errorf("%w: no channels given", ErrInvalidEventShape)
	}
	if len(events)%nch != 0 {
		return fmt.Errorf("%w: %d events is not a multiple of %d channels", ErrInvalidEventShape, len(events), nch)
	}
	eventCount := len(events) / nch

	channels = fillChannelDefaults(channels, o.DataType)

	_, byteOrderLen := elementLayout(o.DataType, channels)
	perm := o.ByteOrder
	if perm == nil {
		perm = identityOrReversePermutation(byteOrderLen, o.byteOrderBig)
	}

	var textBuf bytes.Buffer
	var dataBuf bytes.Buffer
	var analysisBuf bytes.Buffer

	if err := encodeDataSegment(&dataBuf, events, channels, eventCount, o.DataType, perm, o.TightBitPacking); err != nil {
		return err
	}

	if len(o.Analysis) > 0 {
		writeTextSegment(&analysisBuf, o.Delimiter, o.Analysis, sortedKeys(o.Analysis))
	}

	// Pass 1: render TEXT with 20-char placeholder offsets so its own
	// length doesn't depend on the final offset widths.
	textLen := renderText(&textBuf, o, channels, eventCount, perm, placeholderOffsets())

	textStart := headerSize
	textEnd := textStart + textLen - 1
	dataStart := textEnd + 1
	dataEnd := dataStart + dataBuf.Len() - 1
	var analysisStart, analysisEnd int
	if analysisBuf.Len() > 0 {
		analysisStart = dataEnd + 1
		analysisEnd = analysisStart + analysisBuf.Len() - 1
	}

	// Pass 2: re-render TEXT with the real offsets now known. The
	// placeholder width guarantees the length does not change.
	textBuf.Reset()
	realTextLen := renderText(&textBuf, o, channels, eventCount, perm, computedOffsets{
		beginData: dataStart, endData: dataEnd,
		beginAnalysis: analysisStart, endAnalysis: analysisEnd,
	})
	if realTextLen != textLen {
		panic("fcs: internal error: TEXT length changed between layout passes")
	}

	headerDataStart, headerDataEnd, headerAnalysisStart, headerAnalysisEnd := headerOffsetsOrZero(dataStart, dataEnd, analysisStart, analysisEnd)

	headerBytes := writeHeader(o.Version, textStart, textEnd, headerDataStart, headerDataEnd, headerAnalysisStart, headerAnalysisEnd)

	if _, err := sink.Write(headerBytes); err != nil {
		return err
	}
	if _, err := sink.Write(textBuf.Bytes()); err != nil {
		return err
	}
	if _, err := sink.Write(dataBuf.Bytes()); err != nil {
		return err
	}
	if analysisBuf.Len() > 0 {
		if _, err := sink.Write(analysisBuf.Bytes()); err != nil {
			return err
		}
	}

	return nil
}

// fillChannelDefaults fills in BitWidth/Range defaults for channels that
// didn't specify them, per spec.md §4.8: "channel bit widths defaulting
// to 32-bit float".
func fillChannelDefaults(channels []Parameter, dataType string) []Parameter {
	out := make([]Parameter, len(channels))
	for i, c := range channels {
		c.Index = i + 1
		if c.Range == 0 {
			c.Range = 262144
		}
		if c.BitWidth == "" {
			switch dataType {
			case "D":
				c.BitWidth = "64"
			case "F":
				c.BitWidth = "32"
			case "I":
				c.BitWidth = "32"
			case "A":
				// encodeASCIIData only writes the fixed-width layout, so
				// default to the decimal digit width of Range rather than
				// the variable-width "*" marker.
				c.BitWidth = strconv.Itoa(len(strconv.Itoa(c.Range)))
			}
		}
		if c.ShortName == "" {
			c.ShortName = fmt.Sprintf("P%d", c.Index)
		}
		if c.Amplification == "" {
			c.Amplification = "0,0"
		}
		out[i] = c
	}
	return out
}

// elementLayout returns the per-value byte width (for F/D) used to pick a
// default byte-order permutation length; for I/A it returns 0 since each
// parameter may have its own width.
func elementLayout(dataType string, channels []Parameter) (elementBytes, permLen int) {
	switch dataType {
	case "D":
		return 8, 8
	case "F":
		return 4, 4
	default:
		maxW := 4
		for _, c := range channels {
			if w, ok := c.BitWidthInt(); ok && w/8 > maxW {
				maxW = w / 8
			}
		}
		return 0, maxW
	}
}

// headerOffsetsOrZero mirrors formatOffset's overflow rule at the
// decision-point granularity the HEADER writer needs: if any of the four
// DATA/ANALYSIS offsets would overflow the HEADER's 8-byte field, all four
// are written as 0 so the reader is forced to fall back to the TEXT
// $BEGINDATA/$ENDDATA/$BEGINANALYSIS/$ENDANALYSIS keywords together,
// rather than mixing a truncated HEADER value with a correct TEXT one.
func headerOffsetsOrZero(dataStart, dataEnd, analysisStart, analysisEnd int) (hDataStart, hDataEnd, hAnalysisStart, hAnalysisEnd int) {
	overflow := dataStart > 99999999 || dataEnd > 99999999 || analysisStart > 99999999 || analysisEnd > 99999999
	if overflow {
		return 0, 0, 0, 0
	}
	return dataStart, dataEnd, analysisStart, analysisEnd
}

func identityOrReversePermutation(n int, reversed bool) []int {
	perm := make([]int, n)
	for i := range perm {
		if reversed {
			perm[i] = n - i
		} else {
			perm[i] = i + 1
		}
	}
	return perm
}

func encodeDataSegment(w io.Writer, events []float64, channels []Parameter, eventCount int, dataType string, perm []int, tightPacking bool) error {
	switch dataType {
	case "F":
		return encodeFloatData(w, events, byteOrderFromPermOrLE(perm), true)
	case "D":
		return encodeFloatData(w, events, byteOrderFromPermOrLE(perm), false)
	case "I":
		values := make([]uint64, len(events))
		for i, v := range events {
			values[i] = uint64(v)
		}
		return encodeIntData(w, values, channels, eventCount, perm, tightPacking)
	case "A":
		return encodeASCIIData(w, events, channels, eventCount)
	default:
		return &DataTypeError{Value: dataType}
	}
}

// byteOrderFromPermOrLE resolves the Writer's float/double byte order.
// The Writer only ever constructs LE or BE permutations itself
// (identityOrReversePermutation), so the fallback path is unreachable
// except via a caller-supplied WriteOptions.ByteOrder; it defaults to LE.
func byteOrderFromPermOrLE(perm []int) binary.ByteOrder {
	if order, ok := byteOrderFromPermutation(perm); ok {
		return order
	}
	return binary.LittleEndian
}

// placeholderOffsets and computedOffsets let renderText share one code
// path across both layout passes.
type textOffsets struct {
	beginData, endData, beginAnalysis, endAnalysis int
	placeholder                                    bool
}

func placeholderOffsets() textOffsets { return textOffsets{placeholder: true} }

type computedOffsets = textOffsets

func renderText(buf *bytes.Buffer, o WriteOptions, channels []Parameter, eventCount int, perm []int, off textOffsets) int {
	kv := map[string]string{
		"$BEGINANALYSIS": offsetOrPlaceholder(off.beginAnalysis, off.placeholder),
		"$ENDANALYSIS":   offsetOrPlaceholder(off.endAnalysis, off.placeholder),
		"$BEGINDATA":     offsetOrPlaceholder(off.beginData, off.placeholder),
		"$ENDDATA":       offsetOrPlaceholder(off.endData, off.placeholder),
		"$BEGINSTEXT":    "0",
		"$ENDSTEXT":      "0",
		"$BYTEORD":       permutationString(perm),
		"$DATATYPE":      o.DataType,
		"$MODE":          "L",
		"$NEXTDATA":      "0",
		"$PAR":           strconv.Itoa(len(channels)),
		"$TOT":           strconv.Itoa(eventCount),
	}
	for i, c := range channels {
		n := i + 1
		kv[fmt.Sprintf("$P%dB", n)] = c.BitWidth
		kv[fmt.Sprintf("$P%dE", n)] = c.Amplification
		kv[fmt.Sprintf("$P%dN", n)] = c.ShortName
		kv[fmt.Sprintf("$P%dR", n)] = strconv.Itoa(c.Range)
		if c.LongName != "" {
			kv[fmt.Sprintf("$P%dS", n)] = c.LongName
		}
		if c.Gain != nil {
			kv[fmt.Sprintf("$P%dG", n)] = *c.Gain
		}
	}
	for k, v := range o.ExtraText {
		kv[k] = v
	}

	keys := sortedKeys(kv)
	writeTextSegment(buf, o.Delimiter, kv, keys)

	return buf.Len()
}

// offsetOrPlaceholder renders a fixed-width placeholder on the first pass
// (so TEXT length is stable) and the real decimal value on the second.
func offsetOrPlaceholder(v int, placeholder bool) string {
	if placeholder {
		return fmt.Sprintf("%0*d", placeholderWidth, 0)
	}
	s := strconv.Itoa(v)
	if len(s) < placeholderWidth {
		s = fmt.Sprintf("%0*d", placeholderWidth, v)
	}
	return s
}

func permutationString(perm []int) string {
	var sb bytes.Buffer
	for i, p := range perm {
		if i > 0 {
			sb.WriteByte(',')
		}
		fmt.Fprintf(&sb, "%d", p)
	}
	return sb.String()
}

// writeTextSegment writes the delimiter-prefixed key/value stream,
// escaping any embedded delimiter byte by doubling it (spec.md §4.2,
// §4.8).
func writeTextSegment(buf *bytes.Buffer, delimiter byte, kv map[string]string, keys []string) {
	buf.WriteByte(delimiter)
	for _, k := range keys {
		buf.WriteString(escapeDelimiter(k, delimiter))
		buf.WriteByte(delimiter)
		buf.WriteString(escapeDelimiter(kv[k], delimiter))
		buf.WriteByte(delimiter)
	}
}

func escapeDelimiter(s string, delimiter byte) string {
	if bytes.IndexByte([]byte(s), delimiter) < 0 {
		return s
	}
	var out bytes.Buffer
	for i := 0; i < len(s); i++ {
		out.WriteByte(s[i])
		if s[i] == delimiter {
			out.WriteByte(delimiter)
		}
	}
	return out.String()
}

func sortedKeys(kv map[string]string) []string {
	keys := make([]string, 0, len(kv))
	for k := range kv {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

