package fcs

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func textOf(t *testing.T, raw string) *textSegment {
	t.Helper()
	seg, err := parseTextSegment(strings.NewReader(raw))
	require.NoError(t, err)
	return seg
}

func TestResolveMetadataBasic(t *testing.T) {
	raw := "|$DATATYPE|F|$BYTEORD|1,2,3,4|$MODE|L|$PAR|2|$TOT|3|" +
		"$P1N|FSC|$P1B|32|$P1R|1024|$P1E|0,0|" +
		"$P2N|SSC|$P2B|32|$P2R|1024|$P2E|0,0|"
	m, err := resolveMetadata("3.1", textOf(t, raw))
	require.NoError(t, err)
	require.Equal(t, "F", m.DataType)
	require.Equal(t, "L", m.Mode)
	require.Equal(t, 2, m.NumParameters)
	require.Equal(t, 3, m.NumEvents)
	require.Len(t, m.Parameters, 2)
	require.Equal(t, "FSC", m.Parameters[0].ShortName)
	require.Equal(t, "SSC", m.Parameters[1].ShortName)
	require.Equal(t, []int{1, 2, 3, 4}, m.ByteOrderPermutation)
}

func TestResolveMetadataMissingRequiredKeyword(t *testing.T) {
	raw := "|$DATATYPE|F|$MODE|L|$PAR|1|$P1N|FSC|$P1B|32|$P1R|1024|"
	_, err := resolveMetadata("3.1", textOf(t, raw))
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrMissingRequiredKeyword))
}

func TestResolveMetadataBadDataType(t *testing.T) {
	raw := "|$DATATYPE|Q|$BYTEORD|1,2,3,4|$MODE|L|$PAR|1|$P1N|FSC|$P1B|32|$P1R|1024|"
	_, err := resolveMetadata("3.1", textOf(t, raw))
	require.Error(t, err)
	var dtErr *DataTypeError
	require.True(t, errors.As(err, &dtErr))
	require.Equal(t, "Q", dtErr.Value)
}

func TestResolveMetadataBadMode(t *testing.T) {
	raw := "|$DATATYPE|F|$BYTEORD|1,2,3,4|$MODE|C|$PAR|1|$P1N|FSC|$P1B|32|$P1R|1024|"
	_, err := resolveMetadata("3.1", textOf(t, raw))
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrUnsupportedMode))
}

func TestResolveMetadataMissingDataTypeIsMissingKeywordNotUnsupported(t *testing.T) {
	raw := "|$BYTEORD|1,2,3,4|$MODE|L|$PAR|1|$TOT|1|$P1N|FSC|$P1B|32|$P1R|1024|"
	_, err := resolveMetadata("3.1", textOf(t, raw))
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrMissingRequiredKeyword))
	var dtErr *DataTypeError
	require.False(t, errors.As(err, &dtErr), "a missing $DATATYPE must not surface as DataTypeError")
}

func TestResolveMetadataMissingModeIsMissingKeyword(t *testing.T) {
	raw := "|$DATATYPE|F|$BYTEORD|1,2,3,4|$PAR|1|$TOT|1|$P1N|FSC|$P1B|32|$P1R|1024|"
	_, err := resolveMetadata("3.1", textOf(t, raw))
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrMissingRequiredKeyword))
	require.False(t, errors.Is(err, ErrUnsupportedMode), "a missing $MODE must not surface as ErrUnsupportedMode")
}

func TestResolveMetadataMissingTotIsVersionAndDataTypeGated(t *testing.T) {
	floatNoTot := "|$DATATYPE|F|$BYTEORD|1,2,3,4|$MODE|L|$PAR|1|$P1N|FSC|$P1B|32|$P1R|1024|"

	// 3.1 requires $TOT regardless of data type.
	_, err := resolveMetadata("3.1", textOf(t, floatNoTot))
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrMissingRequiredKeyword))

	// 2.0 F/D may omit it.
	m, err := resolveMetadata("2.0", textOf(t, floatNoTot))
	require.NoError(t, err)
	require.Equal(t, 0, m.NumEvents)

	// 2.0 I/A may not, since there is no fixed per-event width to derive
	// a count from.
	intNoTot := "|$DATATYPE|I|$BYTEORD|1,2|$MODE|L|$PAR|1|$P1N|FSC|$P1B|16|$P1R|1024|"
	_, err = resolveMetadata("2.0", textOf(t, intNoTot))
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrMissingRequiredKeyword))
}

func TestParseByteOrdPermutations(t *testing.T) {
	perm, err := parseByteOrd("4,3,2,1")
	require.NoError(t, err)
	require.Equal(t, []int{4, 3, 2, 1}, perm)

	_, err = parseByteOrd("1,2,2")
	require.Error(t, err)

	_, err = parseByteOrd("")
	require.Error(t, err)
}

func TestParseAmplification(t *testing.T) {
	decades, offset, err := parseAmplification("4,1")
	require.NoError(t, err)
	require.Equal(t, 4.0, decades)
	require.Equal(t, 1.0, offset)

	_, _, err = parseAmplification("bad")
	require.Error(t, err)
}

func TestBitWidthIntVariableWidth(t *testing.T) {
	p := Parameter{BitWidth: "*"}
	_, ok := p.BitWidthInt()
	require.False(t, ok)

	p = Parameter{BitWidth: "16"}
	w, ok := p.BitWidthInt()
	require.True(t, ok)
	require.Equal(t, 16, w)
}
