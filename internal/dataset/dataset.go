package dataset

import (
	"fmt"
	"io"
	"log"

	"github.com/ChizhovVadim/halfkp/internal/archive"
	"github.com/ChizhovVadim/halfkp/internal/halfkp"
	"github.com/ChizhovVadim/halfkp/internal/sparse"
)

// Sample is a densified record, ready for a float trainer.
type Sample struct {
	White  []float32
	Black  []float32
	Target float32
}

func NewSample() Sample {
	return Sample{
		White: make([]float32, halfkp.FeatureSize),
		Black: make([]float32, halfkp.FeatureSize),
	}
}

// RealTarget maps a stored target from [0, 1] to the trainer's range [-2, 2].
func RealTarget(t float32) float32 {
	return (t - 0.5) * 4.0
}

// Densify writes a 0/1 vector for indices into dst and returns the number of ignored out-of-range indices.
func Densify(indices []int32, dst []float32) int {
	clear(dst)
	var ignored int
	for _, index := range indices {
		if index < 0 || int(index) >= len(dst) {
			ignored++
			continue
		}
		dst[index] = 1
	}
	return ignored
}

func densify(rec *sparse.Record, s *Sample) {
	if len(s.White) != halfkp.FeatureSize || len(s.Black) != halfkp.FeatureSize {
		*s = NewSample()
	}
	Densify(rec.White, s.White)
	Densify(rec.Black, s.Black)
	s.Target = RealTarget(rec.Target)
}

// Dataset holds all records of a dataset file in memory.
type Dataset struct {
	records   []sparse.Record
	truncated int64
}

// Load reads every complete record of a plain, zstd or lz4 dataset file.
func Load(path string) (*Dataset, error) {
	r, err := archive.Open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	var reader = sparse.NewReader(r)
	var d = &Dataset{}
	for {
		rec, err := reader.Next()
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("load dataset %v: record %v: %w", path, len(d.records), err)
		}
		d.records = append(d.records, rec)
	}
	d.truncated = reader.Truncated()
	log.Println("loadDataset",
		"filepath", path,
		"records", len(d.records),
		"truncatedBytes", d.truncated)
	return d, nil
}

func (d *Dataset) Len() int {
	return len(d.records)
}

// Truncated reports the length of a partial trailing record that was skipped.
func (d *Dataset) Truncated() int64 {
	return d.truncated
}

func (d *Dataset) Record(i int) sparse.Record {
	return d.records[i]
}

func (d *Dataset) Sample(i int) Sample {
	var s = NewSample()
	d.SampleInto(i, &s)
	return s
}

// SampleInto densifies record i reusing the buffers of s.
func (d *Dataset) SampleInto(i int, s *Sample) {
	densify(&d.records[i], s)
}
