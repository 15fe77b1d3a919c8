// Package quant exports a trained Half-KP network as fixed-point int16 tensors.
//
// File layout, little-endian int16, no header:
//
//	feature weights  Hidden x Inputs (row-major, one row per hidden neuron)
//	feature biases   Hidden
//	output weights   1 x 2*Hidden
//	output bias      1
//
// Every value is saturate(round(v * QA)).
package quant

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"golang.org/x/exp/constraints"
)

const QA = 127

type Shape struct {
	Inputs int
	Hidden int
}

var DefaultShape = Shape{Inputs: 40960, Hidden: 256}

// Elements returns the number of int16 values in an exported network.
func (s Shape) Elements() int {
	return s.Hidden*s.Inputs + s.Hidden + 2*s.Hidden + 1
}

// Linear is a dense layer with row-major weights (Out rows of In values).
type Linear struct {
	Out     int
	In      int
	Weights []float32
	Bias    []float32
}

func (l *Linear) validate(name string, out, in int) error {
	if l.Out != out || l.In != in {
		return fmt.Errorf("quant: %v layer is %vx%v, want %vx%v", name, l.Out, l.In, out, in)
	}
	if len(l.Weights) != out*in {
		return fmt.Errorf("quant: %v layer has %v weights, want %v", name, len(l.Weights), out*in)
	}
	if len(l.Bias) != out {
		return fmt.Errorf("quant: %v layer has %v biases, want %v", name, len(l.Bias), out)
	}
	return nil
}

type Stats struct {
	Elements  int
	Saturated int
	NaN       int
}

func saturate[T constraints.Integer | constraints.Float](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Quantize scales v, rounds half away from zero and saturates to int16. NaN maps to 0.
func Quantize[T constraints.Float](v T, scale float64) int16 {
	var x = float64(v) * scale
	if math.IsNaN(x) {
		return 0
	}
	return int16(saturate(math.Round(x), math.MinInt16, math.MaxInt16))
}

type encoder struct {
	w     *bufio.Writer
	buf   []byte
	scale float64
	stats Stats
	err   error
}

func (e *encoder) write(values []float32) {
	if e.err != nil {
		return
	}
	for _, v := range values {
		var x = float64(v) * e.scale
		switch {
		case math.IsNaN(x):
			e.stats.NaN++
		case math.Round(x) > math.MaxInt16 || math.Round(x) < math.MinInt16:
			e.stats.Saturated++
		}
		e.buf = binary.LittleEndian.AppendUint16(e.buf, uint16(Quantize(v, e.scale)))
		if len(e.buf) >= 1<<15 {
			e.flush()
		}
	}
	e.stats.Elements += len(values)
}

func (e *encoder) flush() {
	if e.err != nil {
		return
	}
	_, e.err = e.w.Write(e.buf)
	e.buf = e.buf[:0]
}

// ExportShape validates both layers against shape and writes the network.
func ExportShape(w io.Writer, shape Shape, feature, output Linear, qa float64) (Stats, error) {
	if err := feature.validate("feature", shape.Hidden, shape.Inputs); err != nil {
		return Stats{}, err
	}
	if err := output.validate("output", 1, 2*shape.Hidden); err != nil {
		return Stats{}, err
	}
	var e = &encoder{
		w:     bufio.NewWriterSize(w, 1<<16),
		buf:   make([]byte, 0, 1<<15+2),
		scale: qa,
	}
	e.write(feature.Weights)
	e.write(feature.Bias)
	e.write(output.Weights)
	e.write(output.Bias)
	e.flush()
	if e.err == nil {
		e.err = e.w.Flush()
	}
	return e.stats, e.err
}

// WriteFile replaces path atomically: the network is written to a temporary file in the same directory first.
func WriteFile(path string, shape Shape, feature, output Linear, qa float64) (Stats, error) {
	var stats Stats
	var err = writeAtomic(path, func(w io.Writer) error {
		var err error
		stats, err = ExportShape(w, shape, feature, output, qa)
		return err
	})
	return stats, err
}

// writeAtomic renames a fully written temporary file over path. The result has mode 0644.
func writeAtomic(path string, write func(w io.Writer) error) error {
	f, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp*")
	if err != nil {
		return err
	}
	var tmp = f.Name()
	defer os.Remove(tmp)

	if err = write(f); err != nil {
		f.Close()
		return err
	}
	if err = f.Chmod(0644); err != nil {
		f.Close()
		return err
	}
	if err = f.Sync(); err != nil {
		f.Close()
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
