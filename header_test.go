package fcs

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReadHeaderRoundTrip(t *testing.T) {
	raw := writeHeader("3.1", 58, 157, 158, 1157, 0, 0)
	h, err := readHeader(bytes.NewReader(raw))
	require.NoError(t, err)
	require.Equal(t, "3.1", h.Version)
	require.Equal(t, 58, h.TextStart)
	require.Equal(t, 157, h.TextEnd)
	require.Equal(t, 158, h.DataStart)
	require.Equal(t, 1157, h.DataEnd)
	require.Equal(t, 0, h.AnalysisStart)
	require.Equal(t, 0, h.AnalysisEnd)
}

func TestReadHeaderRejectsUnknownVersion(t *testing.T) {
	raw := writeHeader("3.1", 58, 100, 101, 200, 0, 0)
	raw[3] = '9'
	raw[4] = '.'
	raw[5] = '9'
	_, err := readHeader(bytes.NewReader(raw))
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrMalformedHeader))
}

func TestReadHeaderRejectsTruncation(t *testing.T) {
	_, err := readHeader(bytes.NewReader(make([]byte, 10)))
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrMalformedHeader))
}

func TestReadHeaderRejectsNonNumericOffset(t *testing.T) {
	raw := writeHeader("3.1", 58, 100, 101, 200, 0, 0)
	copy(raw[10:18], []byte("XXXXXXXX"))
	_, err := readHeader(bytes.NewReader(raw))
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrMalformedHeader))
}

func TestFormatOffsetOverflowsToZero(t *testing.T) {
	require.Equal(t, "       0", formatOffset(100000000))
	require.Equal(t, "     123", formatOffset(123))
}

func TestWriteHeaderLength(t *testing.T) {
	raw := writeHeader("2.0", 58, 100, 101, 200, 0, 0)
	require.Len(t, raw, headerSize)
	require.Equal(t, "FCS2.0", string(raw[0:6]))
}
