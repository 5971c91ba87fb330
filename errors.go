package fcs

import (
	"errors"
	"fmt"
)

// Sentinel error categories. Concrete errors returned by this package wrap
// one of these with errors.Is/errors.As so callers can match on the
// category without caring about the exact message.
var (
	// ErrMalformedHeader indicates the 58-byte HEADER prefix has a bad
	// magic/version string or a non-numeric offset field.
	ErrMalformedHeader = errors.New("fcs: malformed header")

	// ErrMalformedText indicates the TEXT segment has an odd token count,
	// an unterminated delimiter run, or an invalid escape sequence.
	ErrMalformedText = errors.New("fcs: malformed text segment")

	// ErrMissingRequiredKeyword indicates a required standard keyword is
	// absent from the resolved metadata.
	ErrMissingRequiredKeyword = errors.New("fcs: missing required keyword")

	// ErrUnsupportedDataType indicates $DATATYPE is outside {I,F,D,A}.
	ErrUnsupportedDataType = errors.New("fcs: unsupported data type")

	// ErrUnsupportedMode indicates $MODE is not "L" (list mode).
	ErrUnsupportedMode = errors.New("fcs: unsupported mode")

	// ErrUnsupportedBitWidth indicates $PnB is out of range for integer
	// data, or a non-byte-aligned width was encountered without the
	// tight-packing opt-in.
	ErrUnsupportedBitWidth = errors.New("fcs: unsupported bit width")

	// ErrInconsistentOffsets indicates the computed DATA size does not
	// match $PAR * $TOT * element width for a fixed-width data type.
	ErrInconsistentOffsets = errors.New("fcs: inconsistent offsets")

	// ErrTruncatedData indicates the source ended before the declared
	// end offset of a segment.
	ErrTruncatedData = errors.New("fcs: truncated data")

	// ErrInvalidEventShape indicates the Writer was given an events slice
	// whose length isn't divisible by the channel count.
	ErrInvalidEventShape = errors.New("fcs: invalid event shape")
)

// KeywordError reports a problem tied to a specific TEXT keyword.
type KeywordError struct {
	Keyword string
	Err     error
}

func (e *KeywordError) Error() string {
	return fmt.Sprintf("%s %q", e.Err, e.Keyword)
}

func (e *KeywordError) Unwrap() error { return e.Err }

func missingKeyword(keyword string) error {
	return &KeywordError{Keyword: keyword, Err: ErrMissingRequiredKeyword}
}

// DataTypeError reports an unsupported $DATATYPE value.
type DataTypeError struct {
	Value string
}

func (e *DataTypeError) Error() string {
	return fmt.Sprintf("%s: %q", ErrUnsupportedDataType, e.Value)
}

func (e *DataTypeError) Unwrap() error { return ErrUnsupportedDataType }

// BitWidthError reports an unsupported $PnB value for a given parameter.
type BitWidthError struct {
	ParameterIndex int
	BitWidth       int
	Reason         string
}

func (e *BitWidthError) Error() string {
	return fmt.Sprintf("%s: parameter %d has $P%dB=%d: %s", ErrUnsupportedBitWidth, e.ParameterIndex, e.ParameterIndex, e.BitWidth, e.Reason)
}

func (e *BitWidthError) Unwrap() error { return ErrUnsupportedBitWidth }
