package fcs

import (
	"encoding/binary"
	"math"

	"github.com/cespare/xxhash/v2"
)

// Checksum returns a content checksum over the flat event table, computed
// with xxhash64 over each value's IEEE-754 binary64 representation in
// little-endian order. Two DataSets with identical Channels and Events
// produce the same checksum regardless of the $DATATYPE or $BYTEORD the
// bytes were originally decoded from, making it useful for round-trip and
// cross-format comparisons that shouldn't be sensitive to encoding choice.
func (ds *DataSet) Checksum() uint64 {
	h := xxhash.New()
	buf := make([]byte, 8)
	for _, v := range ds.Events {
		binary.LittleEndian.PutUint64(buf, math.Float64bits(v))
		h.Write(buf)
	}
	return h.Sum64()
}
