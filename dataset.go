package fcs

import (
	"fmt"
	"io"
	"iter"
	"reflect"
)

// ByteSource is the positioned, seekable byte provider Read and
// ReadMultiple consume. *os.File and *bytes.Reader both satisfy it.
type ByteSource interface {
	io.Reader
	io.Seeker
}

// DataSet is an immutable view over one FCS data set: the resolved
// metadata, the ordered parameter list, and the flat, row-major
// (event-major) event table. A DataSet is never mutated after
// construction; Write takes independent events/metadata inputs rather
// than a DataSet.
type DataSet struct {
	Version       string
	Text          map[string]string
	ParameterCount int
	EventCount    int
	Channels      []Parameter
	Events        []float64
	Analysis      map[string]string

	// NextDataOffset is the absolute byte offset of the next data set's
	// HEADER, or 0 if this is the last (or only) data set.
	NextDataOffset int

	metadata *Metadata
	warnings []string
}

// Metadata returns the full typed metadata record backing this DataSet,
// including keywords not promoted to DataSet fields.
func (ds *DataSet) Metadata() *Metadata { return ds.metadata }

// Warnings returns non-fatal conditions noted while decoding (duplicate
// TEXT keywords, HEADER/TEXT offset mismatches).
func (ds *DataSet) Warnings() []string { return ds.warnings }

// ReadOptions configures decoding behavior that goes beyond what the FCS
// standard mandates unconditionally.
type ReadOptions struct {
	// TightBitPacking opts into decoding non-byte-aligned $PnB integer
	// rows as a tightly packed bitstream (spec.md §9's explicit opt-in;
	// the default is to reject such files with ErrUnsupportedBitWidth).
	TightBitPacking bool
}

// Read parses the first data set from source using default options.
func Read(source ByteSource) (*DataSet, error) {
	return ReadWithOptions(source, ReadOptions{})
}

// ReadWithOptions parses the first data set from source.
func ReadWithOptions(source ByteSource, opts ReadOptions) (*DataSet, error) {
	ds, _, err := readOneDataSet(source, 0, opts)
	return ds, err
}

// ReadMultiple returns a finite, non-restartable sequence of every data
// set chained through $NEXTDATA, starting with the data set whose HEADER
// is at offset 0 of source. Iteration stops when $NEXTDATA is 0.
//
// Example:
//
//	for ds, err := range fcs.ReadMultiple(f) {
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    fmt.Println(ds.EventCount)
//	}
func ReadMultiple(source ByteSource) iter.Seq2[*DataSet, error] {
	return ReadMultipleWithOptions(source, ReadOptions{})
}

// ReadMultipleWithOptions is ReadMultiple with explicit ReadOptions.
func ReadMultipleWithOptions(source ByteSource, opts ReadOptions) iter.Seq2[*DataSet, error] {
	return func(yield func(*DataSet, error) bool) {
		offset := int64(0)
		for {
			ds, next, err := readOneDataSet(source, offset, opts)
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(ds, nil) {
				return
			}
			if next == 0 {
				return
			}
			offset = int64(next)
		}
	}
}

// readOneDataSet reads the data set whose HEADER begins at byteOffset and
// returns it along with the absolute offset of the next data set (0 if
// none).
func readOneDataSet(source ByteSource, byteOffset int64, opts ReadOptions) (*DataSet, int, error) {
	if _, err := source.Seek(byteOffset, io.SeekStart); err != nil {
		return nil, 0, err
	}

	h, err := readHeader(source)
	if err != nil {
		return nil, 0, err
	}

	if _, err := source.Seek(byteOffset+int64(h.TextStart), io.SeekStart); err != nil {
		return nil, 0, err
	}
	textLen := int64(h.TextEnd-h.TextStart) + 1
	seg, err := parseTextSegment(io.LimitReader(source, textLen))
	if err != nil {
		return nil, 0, err
	}

	m, err := resolveMetadata(h.Version, seg)
	if err != nil {
		return nil, 0, err
	}

	// Supplemental TEXT, if declared, is absorbed into the same keyword
	// map (spec.md §4.3). Keys it redefines follow last-write-wins like
	// any duplicate.
	if m.BeginSupplemental > 0 && m.EndSupplemental > m.BeginSupplemental {
		if _, err := source.Seek(byteOffset+int64(m.BeginSupplemental), io.SeekStart); err != nil {
			return nil, 0, err
		}
		stextLen := int64(m.EndSupplemental-m.BeginSupplemental) + 1
		sseg, err := parseTextSegment(io.LimitReader(source, stextLen))
		if err != nil {
			return nil, 0, err
		}
		for _, k := range sseg.keywords {
			if _, exists := m.raw[k]; !exists {
				m.keywords = append(m.keywords, k)
			}
			m.raw[k] = sseg.kv[k]
		}
		// Supplemental TEXT may itself carry values for fields already
		// scanned; re-scan so promoted fields reflect the merge.
		if err := scanKeywordFields(reflect.ValueOf(m).Elem(), m.raw, -1); err != nil {
			return nil, 0, err
		}
	}

	dataStart, dataEnd, warn := resolveDataOffsets(h, m)
	m.warnings = append(m.warnings, warn...)

	var events []float64
	if dataStart > 0 && dataEnd >= dataStart {
		if _, err := source.Seek(byteOffset+int64(dataStart), io.SeekStart); err != nil {
			return nil, 0, err
		}
		dataLen := int64(dataEnd-dataStart) + 1

		eventCount := m.NumEvents
		elementWidth, fixed := elementWidthFor(m)
		totValue, hasTot := m.raw[normalizeKeyword("$TOT")]
		switch {
		case (!hasTot || totValue == "") && fixed && m.NumParameters > 0:
			// 2.0 F/D file with no $TOT: derive the count from the DATA
			// segment length, which is trivially self-consistent.
			rowWidth := elementWidth * m.NumParameters
			if rowWidth > 0 {
				eventCount = int(dataLen) / rowWidth
			}
		case fixed && m.NumParameters > 0:
			rowWidth := elementWidth * m.NumParameters
			want := int64(rowWidth) * int64(eventCount)
			if want != dataLen {
				return nil, 0, fmt.Errorf("%w: DATA segment is %d bytes, expected $PAR(%d)*$TOT(%d)*element_width(%d)=%d", ErrInconsistentOffsets, dataLen, m.NumParameters, eventCount, elementWidth, want)
			}
		}

		events, err = decodeDataSegment(io.LimitReader(source, dataLen), m, eventCount, opts)
		if err != nil {
			return nil, 0, err
		}
		m.NumEvents = eventCount
	} else {
		events = []float64{}
		m.NumEvents = 0
	}

	var analysis map[string]string
	analysisStart, analysisEnd := resolveAnalysisOffsets(h, m)
	if analysisEnd >= analysisStart && analysisStart > 0 {
		if _, err := source.Seek(byteOffset+int64(analysisStart), io.SeekStart); err != nil {
			return nil, 0, err
		}
		alen := int64(analysisEnd-analysisStart) + 1
		aseg, err := parseTextSegment(io.LimitReader(source, alen))
		if err != nil {
			return nil, 0, err
		}
		analysis = aseg.kv
	}

	ds := &DataSet{
		Version:        m.Version,
		Text:           m.raw,
		ParameterCount: m.NumParameters,
		EventCount:     m.NumEvents,
		Channels:       m.Parameters,
		Events:         events,
		Analysis:       analysis,
		NextDataOffset: m.NextData,
		metadata:       m,
		warnings:       m.warnings,
	}

	return ds, m.NextData, nil
}

// resolveDataOffsets implements the decision rule in spec.md §4.3: HEADER
// wins if its DATA begin is non-zero; otherwise fall back to
// $BEGINDATA/$ENDDATA. A non-zero mismatch between the two is a warning,
// and TEXT wins.
func resolveDataOffsets(h *header, m *Metadata) (start, end int, warnings []string) {
	if h.DataStart != 0 {
		start, end = h.DataStart, h.DataEnd
		if m.BeginData != 0 && (m.BeginData != h.DataStart || m.EndData != h.DataEnd) {
			warnings = append(warnings, fmt.Sprintf("HEADER DATA offsets (%d,%d) disagree with TEXT $BEGINDATA/$ENDDATA (%d,%d); using TEXT", h.DataStart, h.DataEnd, m.BeginData, m.EndData))
			start, end = m.BeginData, m.EndData
		}
		return start, end, warnings
	}
	return m.BeginData, m.EndData, warnings
}

// resolveAnalysisOffsets applies the same HEADER-wins-else-TEXT rule as
// resolveDataOffsets (spec.md §4.3), to the ANALYSIS segment. Unlike
// resolveDataOffsets, a non-zero HEADER ANALYSIS begin offset is used as-is:
// it is not compared with $BEGINANALYSIS/$ENDANALYSIS and no warning is
// recorded.
func resolveAnalysisOffsets(h *header, m *Metadata) (start, end int) {
	if h.AnalysisStart != 0 {
		return h.AnalysisStart, h.AnalysisEnd
	}
	return m.BeginAnalysis, m.EndAnalysis
}

// elementWidthFor returns the fixed per-event-per-parameter byte width for
// F/D data types (used to derive $TOT when it is absent, as FCS 2.0
// allows). Integer and ASCII types have no single fixed width (each
// parameter may differ), so fixed is false for them.
func elementWidthFor(m *Metadata) (width int, fixed bool) {
	switch m.DataType {
	case "F":
		return 4, true
	case "D":
		return 8, true
	default:
		return 0, false
	}
}

// decodeDataSegment dispatches to the DataSegmentDecoder subvariant named
// by $DATATYPE.
func decodeDataSegment(r io.Reader, m *Metadata, eventCount int, opts ReadOptions) ([]float64, error) {
	if m.Mode != "L" {
		return nil, fmt.Errorf("%w: $MODE=%q", ErrUnsupportedMode, m.Mode)
	}

	switch m.DataType {
	case "A":
		return decodeASCIIData(r, m.Parameters, eventCount)
	case "F":
		order, ok := byteOrderFromPermutation(m.ByteOrderPermutation)
		if !ok {
			return nil, fmt.Errorf("fcs: $BYTEORD %v is not a conformant LE/BE ordering for float data", m.ByteOrderPermutation)
		}
		return decodeFloatData(r, m.NumParameters*eventCount, order, true)
	case "D":
		order, ok := byteOrderFromPermutation(m.ByteOrderPermutation)
		if !ok {
			return nil, fmt.Errorf("fcs: $BYTEORD %v is not a conformant LE/BE ordering for double data", m.ByteOrderPermutation)
		}
		return decodeFloatData(r, m.NumParameters*eventCount, order, false)
	case "I":
		raw, err := decodeIntData(r, m.Parameters, eventCount, m.ByteOrderPermutation, opts.TightBitPacking)
		if err != nil {
			return nil, err
		}
		out := make([]float64, len(raw))
		for i, v := range raw {
			out[i] = float64(v)
		}
		return out, nil
	default:
		return nil, &DataTypeError{Value: m.DataType}
	}
}
