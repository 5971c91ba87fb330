package fcs

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// decodeFloatData implements the $DATATYPE=F/D decoders (spec.md §4.6).
// single selects binary32 (float32) vs binary64 (float64) element width.
func decodeFloatData(r io.Reader, n int, order binary.ByteOrder, single bool) ([]float64, error) {
	out := make([]float64, n)
	if n == 0 {
		return out, nil
	}

	if single {
		buf := make([]byte, 4*n)
		if _, err := io.ReadFull(r, buf); err != nil {
			if err == io.ErrUnexpectedEOF || err == io.EOF {
				return nil, fmt.Errorf("%w: float32 segment truncated", ErrTruncatedData)
			}
			return nil, err
		}
		for i := 0; i < n; i++ {
			bits := order.Uint32(buf[i*4 : i*4+4])
			out[i] = float64(math.Float32frombits(bits))
		}
		return out, nil
	}

	buf := make([]byte, 8*n)
	if _, err := io.ReadFull(r, buf); err != nil {
		if err == io.ErrUnexpectedEOF || err == io.EOF {
			return nil, fmt.Errorf("%w: float64 segment truncated", ErrTruncatedData)
		}
		return nil, err
	}
	for i := 0; i < n; i++ {
		bits := order.Uint64(buf[i*8 : i*8+8])
		out[i] = math.Float64frombits(bits)
	}
	return out, nil
}

// encodeFloatData is the Writer-side inverse of decodeFloatData.
func encodeFloatData(w io.Writer, values []float64, order binary.ByteOrder, single bool) error {
	if single {
		buf := make([]byte, 4*len(values))
		for i, v := range values {
			order.PutUint32(buf[i*4:i*4+4], math.Float32bits(float32(v)))
		}
		_, err := w.Write(buf)
		return err
	}

	buf := make([]byte, 8*len(values))
	for i, v := range values {
		order.PutUint64(buf[i*8:i*8+8], math.Float64bits(v))
	}
	_, err := w.Write(buf)
	return err
}
