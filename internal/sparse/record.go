package sparse

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// MaxIndices bounds the index count of one perspective.
// A legal position has at most 30 non-king pieces.
const MaxIndices = 64

var (
	ErrShortRecord   = errors.New("sparse: short record")
	ErrCorruptRecord = errors.New("sparse: corrupt record")
)

// Record is one training sample.
//
// Layout, little-endian, no padding:
//
//	target f32 | Nw i32 | Nw x i32 | Nb i32 | Nb x i32
type Record struct {
	Target float32
	White  []int32
	Black  []int32
}

// Size returns the encoded length of r in bytes.
func Size(r *Record) int {
	return 4 * (3 + len(r.White) + len(r.Black))
}

// Validate checks that both index counts fit MaxIndices.
func Validate(r *Record) error {
	if len(r.White) > MaxIndices || len(r.Black) > MaxIndices {
		return fmt.Errorf("%w: index counts %v and %v", ErrCorruptRecord, len(r.White), len(r.Black))
	}
	return nil
}

func AppendRecord(dst []byte, r *Record) []byte {
	dst = binary.LittleEndian.AppendUint32(dst, math.Float32bits(r.Target))
	dst = appendIndices(dst, r.White)
	dst = appendIndices(dst, r.Black)
	return dst
}

func appendIndices(dst []byte, indices []int32) []byte {
	dst = binary.LittleEndian.AppendUint32(dst, uint32(len(indices)))
	for _, index := range indices {
		dst = binary.LittleEndian.AppendUint32(dst, uint32(index))
	}
	return dst
}

// DecodeRecord decodes the record at the start of b and returns the number of bytes consumed.
func DecodeRecord(b []byte) (Record, int, error) {
	if len(b) < 8 {
		return Record{}, 0, ErrShortRecord
	}
	var r = Record{
		Target: math.Float32frombits(binary.LittleEndian.Uint32(b)),
	}
	var n = 4
	var err error
	r.White, n, err = decodeIndices(b, n)
	if err != nil {
		return Record{}, 0, err
	}
	r.Black, n, err = decodeIndices(b, n)
	if err != nil {
		return Record{}, 0, err
	}
	return r, n, nil
}

func decodeIndices(b []byte, n int) ([]int32, int, error) {
	if len(b) < n+4 {
		return nil, 0, ErrShortRecord
	}
	var count, err = checkCount(int32(binary.LittleEndian.Uint32(b[n:])))
	if err != nil {
		return nil, 0, err
	}
	n += 4
	if len(b) < n+4*count {
		return nil, 0, ErrShortRecord
	}
	var indices = make([]int32, count)
	for i := range indices {
		indices[i] = int32(binary.LittleEndian.Uint32(b[n:]))
		n += 4
	}
	return indices, n, nil
}

func checkCount(count int32) (int, error) {
	if count < 0 || count > MaxIndices {
		return 0, fmt.Errorf("%w: index count %v", ErrCorruptRecord, count)
	}
	return int(count), nil
}
