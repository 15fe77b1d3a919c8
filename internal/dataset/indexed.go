package dataset

import (
	"fmt"
	"os"

	"github.com/ChizhovVadim/halfkp/internal/offsetindex"
	"github.com/ChizhovVadim/halfkp/internal/sparse"
)

// IndexedDataset reads records of an uncompressed dataset on demand using an offset index.
type IndexedDataset struct {
	file  *os.File
	index *offsetindex.Index
	count int64
}

// Open syncs the index with the dataset file and returns a random access view of it.
func Open(path string, index *offsetindex.Index) (*IndexedDataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	_, err = index.Sync(path)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("sync offset index: %w", err)
	}
	return &IndexedDataset{
		file:  f,
		index: index,
		count: index.Count(),
	}, nil
}

func (d *IndexedDataset) Close() error {
	return d.file.Close()
}

func (d *IndexedDataset) Len() int {
	return int(d.count)
}

// Record is safe for concurrent use.
func (d *IndexedDataset) Record(i int) (sparse.Record, error) {
	if i < 0 || int64(i) >= d.count {
		return sparse.Record{}, offsetindex.ErrOutOfRange
	}
	start, end, err := d.index.Span(int64(i))
	if err != nil {
		return sparse.Record{}, err
	}
	var buf = make([]byte, end-start)
	_, err = d.file.ReadAt(buf, start)
	if err != nil {
		return sparse.Record{}, fmt.Errorf("read record %v: %w", i, err)
	}
	rec, _, err := sparse.DecodeRecord(buf)
	return rec, err
}

func (d *IndexedDataset) SampleInto(i int, s *Sample) error {
	var rec, err = d.Record(i)
	if err != nil {
		return err
	}
	densify(&rec, s)
	return nil
}
