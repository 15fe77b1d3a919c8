package sparse

import (
	"bufio"
	"io"
)

// Writer appends records to an underlying stream.
// Records are buffered; call Flush to push complete records to the stream.
type Writer struct {
	w       *bufio.Writer
	buf     []byte
	records int64
	bytes   int64
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{
		w:   bufio.NewWriterSize(w, 1<<16),
		buf: make([]byte, 0, 512),
	}
}

// Write rejects a record the reader would refuse, leaving the stream untouched.
func (w *Writer) Write(r *Record) error {
	if err := Validate(r); err != nil {
		return err
	}
	w.buf = AppendRecord(w.buf[:0], r)
	var _, err = w.w.Write(w.buf)
	if err != nil {
		return err
	}
	w.records++
	w.bytes += int64(len(w.buf))
	return nil
}

func (w *Writer) Flush() error {
	return w.w.Flush()
}

// Records returns the number of records written so far.
func (w *Writer) Records() int64 {
	return w.records
}

// Bytes returns the number of encoded bytes written so far.
func (w *Writer) Bytes() int64 {
	return w.bytes
}
