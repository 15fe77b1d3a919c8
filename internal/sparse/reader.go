package sparse

import (
	"bufio"
	"encoding/binary"
	"errors"
	"io"
	"math"
)

// Reader decodes records sequentially.
// A truncated trailing record is treated as the end of the stream.
type Reader struct {
	r         *bufio.Reader
	buf       []byte
	offset    int64
	truncated int64
}

func NewReader(r io.Reader) *Reader {
	return &Reader{
		r:   bufio.NewReaderSize(r, 1<<16),
		buf: make([]byte, 4*(MaxIndices+1)),
	}
}

// Next returns the next complete record or io.EOF.
func (r *Reader) Next() (Record, error) {
	var header = r.buf[:8]
	var n, err = io.ReadFull(r.r, header)
	if err != nil {
		return Record{}, r.end(n, err)
	}
	var read = n
	var rec = Record{
		Target: math.Float32frombits(binary.LittleEndian.Uint32(header)),
	}
	count, err := checkCount(int32(binary.LittleEndian.Uint32(header[4:])))
	if err != nil {
		return Record{}, err
	}
	rec.White, n, err = r.readIndices(count)
	read += n
	if err != nil {
		return Record{}, r.end(read, err)
	}
	n, err = io.ReadFull(r.r, r.buf[:4])
	read += n
	if err != nil {
		return Record{}, r.end(read, err)
	}
	count, err = checkCount(int32(binary.LittleEndian.Uint32(r.buf)))
	if err != nil {
		return Record{}, err
	}
	rec.Black, n, err = r.readIndices(count)
	read += n
	if err != nil {
		return Record{}, r.end(read, err)
	}
	r.offset += int64(read)
	return rec, nil
}

func (r *Reader) readIndices(count int) ([]int32, int, error) {
	var b = r.buf[:4*count]
	var n, err = io.ReadFull(r.r, b)
	if err != nil {
		return nil, n, err
	}
	var indices = make([]int32, count)
	for i := range indices {
		indices[i] = int32(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return indices, n, nil
}

// end maps a short read to io.EOF and remembers the dropped tail length.
func (r *Reader) end(read int, err error) error {
	if err == io.EOF && read == 0 {
		return io.EOF
	}
	if err == io.EOF || errors.Is(err, io.ErrUnexpectedEOF) {
		r.truncated = int64(read)
		return io.EOF
	}
	return err
}

// Offset returns the byte offset of the next record.
func (r *Reader) Offset() int64 {
	return r.offset
}

// Truncated returns the length of a dropped partial trailing record.
func (r *Reader) Truncated() int64 {
	return r.truncated
}

// ReadAll decodes every complete record of r.
func ReadAll(r io.Reader) ([]Record, error) {
	var reader = NewReader(r)
	var result []Record
	for {
		var rec, err = reader.Next()
		if err != nil {
			if err == io.EOF {
				return result, nil
			}
			return result, err
		}
		result = append(result, rec)
	}
}
