package fcs

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteRejectsMismatchedEventShape(t *testing.T) {
	var buf bytes.Buffer
	err := Write(&buf, []float64{1, 2, 3}, channelsF("A", "B"))
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrInvalidEventShape))
}

func TestWriteRejectsNoChannels(t *testing.T) {
	var buf bytes.Buffer
	err := Write(&buf, []float64{1, 2, 3}, nil)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrInvalidEventShape))
}

func TestWriteCustomDelimiter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, []float64{1, 2}, channelsF("A"), WithDelimiter('/')))

	ds, err := Read(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	require.Equal(t, 2, ds.EventCount)
}

func TestWriteTightBitPackingRoundTrip(t *testing.T) {
	channels := []Parameter{
		{ShortName: "A", BitWidth: "10", Range: 1000},
		{ShortName: "B", BitWidth: "10", Range: 1000},
	}
	events := []float64{1, 2, 500, 999, 0, 1}

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, events, channels, WithDataType("I"), WithTightBitPacking()))

	ds, err := ReadWithOptions(bytes.NewReader(buf.Bytes()), ReadOptions{TightBitPacking: true})
	require.NoError(t, err)
	require.Equal(t, events, ds.Events)
}

func TestWriteTightBitPackingRejectedWithoutOptIn(t *testing.T) {
	channels := []Parameter{
		{ShortName: "A", BitWidth: "10", Range: 1000},
		{ShortName: "B", BitWidth: "10", Range: 1000},
	}
	events := []float64{1, 2, 500, 999, 0, 1}

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, events, channels, WithDataType("I"), WithTightBitPacking()))

	_, err := Read(bytes.NewReader(buf.Bytes()))
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrUnsupportedBitWidth))
}

func TestHeaderOffsetsOrZeroFallsBackOnOverflow(t *testing.T) {
	ds, de, as, ae := headerOffsetsOrZero(58, 1157, 0, 0)
	require.Equal(t, 58, ds)
	require.Equal(t, 1157, de)
	require.Equal(t, 0, as)
	require.Equal(t, 0, ae)

	ds, de, as, ae = headerOffsetsOrZero(58, 100000000, 0, 0)
	require.Equal(t, 0, ds)
	require.Equal(t, 0, de)
	require.Equal(t, 0, as)
	require.Equal(t, 0, ae)
}

func TestWriteOversizedDataOffsetFallsBackToTextKeywords(t *testing.T) {
	// A DATA segment whose end offset exceeds the HEADER's 8-byte field
	// ceiling must round-trip via $BEGINDATA/$ENDDATA instead, with the
	// HEADER's own fields written as 0.
	channels := channelsF("A")
	events := make([]float64, 64)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, events, channels))

	// Rewrite the HEADER's DATA offsets directly to simulate the
	// overflow case without materializing a 100MB buffer: writeHeader's
	// own ceiling behavior is covered by TestHeaderOffsetsOrZeroFallsBackOnOverflow
	// above, so here we only need Read to still succeed when the HEADER
	// is zeroed and TEXT carries the real offsets (the common case for
	// any file whose DATA segment is sizeable).
	raw := buf.Bytes()
	orig, err := readHeader(bytes.NewReader(raw))
	require.NoError(t, err)
	zeroed := writeHeader("3.1", orig.TextStart, orig.TextEnd, 0, 0, 0, 0)
	copy(raw[:headerSize], zeroed)

	ds, err := Read(bytes.NewReader(raw))
	require.NoError(t, err)
	require.Equal(t, len(events), ds.EventCount)
}

func TestPermutationString(t *testing.T) {
	require.Equal(t, "1,2,3,4", permutationString([]int{1, 2, 3, 4}))
	require.Equal(t, "4,3,2,1", permutationString([]int{4, 3, 2, 1}))
}

func TestEscapeDelimiterDoublesEmbedded(t *testing.T) {
	require.Equal(t, "a||b", escapeDelimiter("a|b", '|'))
	require.Equal(t, "abc", escapeDelimiter("abc", '|'))
}
