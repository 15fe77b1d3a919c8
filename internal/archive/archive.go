// Package archive reads and writes dataset files that may be compressed.
// The format is chosen by file extension: ".zst" is zstd, ".lz4" is an lz4 frame, anything else is plain.
package archive

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

type Format int

const (
	Plain Format = iota
	Zstd
	LZ4
)

func FormatOf(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".zst", ".zstd":
		return Zstd
	case ".lz4":
		return LZ4
	}
	return Plain
}

func (f Format) String() string {
	switch f {
	case Zstd:
		return "zstd"
	case LZ4:
		return "lz4"
	}
	return "plain"
}

type readCloser struct {
	io.Reader
	close func() error
}

func (r *readCloser) Close() error {
	return r.close()
}

// Open returns a decompressing reader of path.
func Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	switch FormatOf(path) {
	case Zstd:
		dec, err := zstd.NewReader(bufio.NewReader(f))
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("open zstd %v: %w", path, err)
		}
		return &readCloser{Reader: dec, close: func() error {
			dec.Close()
			return f.Close()
		}}, nil
	case LZ4:
		return &readCloser{Reader: lz4.NewReader(bufio.NewReader(f)), close: f.Close}, nil
	}
	return f, nil
}

type writeCloser struct {
	io.Writer
	close func() error
}

func (w *writeCloser) Close() error {
	return w.close()
}

// Create returns a compressing writer to path. Close flushes the compressor and the file.
func Create(path string) (io.WriteCloser, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	var bw = bufio.NewWriterSize(f, 1<<16)
	var finish = func(err error) error {
		if err == nil {
			err = bw.Flush()
		}
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		return err
	}
	switch FormatOf(path) {
	case Zstd:
		enc, err := zstd.NewWriter(bw, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
		if err != nil {
			f.Close()
			return nil, err
		}
		return &writeCloser{Writer: enc, close: func() error {
			return finish(enc.Close())
		}}, nil
	case LZ4:
		var zw = lz4.NewWriter(bw)
		return &writeCloser{Writer: zw, close: func() error {
			return finish(zw.Close())
		}}, nil
	}
	return &writeCloser{Writer: bw, close: func() error {
		return finish(nil)
	}}, nil
}

// Compress copies src into dst, compressing by the extension of dst.
func Compress(src, dst string) (int64, error) {
	in, err := Open(src)
	if err != nil {
		return 0, err
	}
	defer in.Close()
	out, err := Create(dst)
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(out, in)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return n, fmt.Errorf("compress %v: %w", dst, err)
	}
	return n, nil
}
