// Package offsetindex keeps byte offsets of dataset records outside the dataset file,
// so that a headerless record stream can be read at random.
package offsetindex

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/ChizhovVadim/halfkp/internal/sparse"
	"github.com/dgraph-io/badger/v4"
)

var (
	ErrOutOfRange = errors.New("offsetindex: record out of range")
	ErrStale      = errors.New("offsetindex: dataset is shorter than the index")
)

var (
	keyCount = []byte("meta/count")
	keySize  = []byte("meta/size")
)

const recordPrefix = "rec/"

type Index struct {
	db    *badger.DB
	mu    sync.Mutex
	count int64
	size  int64
}

func Open(dir string) (*Index, error) {
	return open(badger.DefaultOptions(dir))
}

// OpenInMemory returns an index that is not persisted.
func OpenInMemory() (*Index, error) {
	return open(badger.DefaultOptions("").WithInMemory(true))
}

func open(opts badger.Options) (*Index, error) {
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open offset index: %w", err)
	}
	var ix = &Index{db: db}
	err = db.View(func(txn *badger.Txn) error {
		var err error
		ix.count, err = readInt(txn, keyCount)
		if err != nil {
			return err
		}
		ix.size, err = readInt(txn, keySize)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return ix, nil
}

func readInt(txn *badger.Txn, key []byte) (int64, error) {
	item, err := txn.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return 0, nil
		}
		return 0, err
	}
	var result int64
	err = item.Value(func(val []byte) error {
		if len(val) != 8 {
			return fmt.Errorf("offsetindex: bad value for %s", key)
		}
		result = int64(binary.LittleEndian.Uint64(val))
		return nil
	})
	return result, err
}

func recordKey(i int64) []byte {
	var key = make([]byte, len(recordPrefix)+8)
	copy(key, recordPrefix)
	binary.BigEndian.PutUint64(key[len(recordPrefix):], uint64(i))
	return key
}

func encodeInt(v int64) []byte {
	return binary.LittleEndian.AppendUint64(nil, uint64(v))
}

func (ix *Index) Close() error {
	return ix.db.Close()
}

// Count returns the number of indexed records.
func (ix *Index) Count() int64 {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.count
}

// Size returns the dataset length covered by the index.
func (ix *Index) Size() int64 {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.size
}

// Append indexes records that start at offsets and end at size.
// Offsets must be increasing and not below the current Size.
func (ix *Index) Append(offsets []int64, size int64) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	var prev = ix.size - 1
	for _, offset := range offsets {
		if offset <= prev || offset >= size {
			return fmt.Errorf("offsetindex: offset %v out of order", offset)
		}
		prev = offset
	}
	if size < ix.size {
		return fmt.Errorf("offsetindex: size %v below indexed size %v", size, ix.size)
	}

	var wb = ix.db.NewWriteBatch()
	defer wb.Cancel()
	for i, offset := range offsets {
		var err = wb.Set(recordKey(ix.count+int64(i)), encodeInt(offset))
		if err != nil {
			return err
		}
	}
	var count = ix.count + int64(len(offsets))
	if err := wb.Set(keyCount, encodeInt(count)); err != nil {
		return err
	}
	if err := wb.Set(keySize, encodeInt(size)); err != nil {
		return err
	}
	if err := wb.Flush(); err != nil {
		return err
	}
	ix.count = count
	ix.size = size
	return nil
}

// Offset returns the byte offset of record i.
func (ix *Index) Offset(i int64) (int64, error) {
	if i < 0 || i >= ix.Count() {
		return 0, ErrOutOfRange
	}
	var result int64
	var err = ix.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(recordKey(i))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			result = int64(binary.LittleEndian.Uint64(val))
			return nil
		})
	})
	return result, err
}

// Span returns the byte range [start, end) of record i.
func (ix *Index) Span(i int64) (int64, int64, error) {
	var start, err = ix.Offset(i)
	if err != nil {
		return 0, 0, err
	}
	if i+1 == ix.Count() {
		return start, ix.Size(), nil
	}
	end, err := ix.Offset(i + 1)
	return start, end, err
}

const syncBatch = 8192

// Sync indexes the records appended to the dataset since the last sync.
// A partial trailing record is left for a later sync.
func (ix *Index) Sync(datasetPath string) (int64, error) {
	var f, err = os.Open(datasetPath)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return 0, err
	}
	var base = ix.Size()
	if fi.Size() < base {
		return 0, ErrStale
	}
	_, err = f.Seek(base, io.SeekStart)
	if err != nil {
		return 0, err
	}

	var reader = sparse.NewReader(f)
	var offsets = make([]int64, 0, syncBatch)
	var added int64
	for {
		var offset = base + reader.Offset()
		_, err = reader.Next()
		if err != nil {
			if err == io.EOF {
				break
			}
			return added, err
		}
		offsets = append(offsets, offset)
		if len(offsets) == syncBatch {
			if err = ix.Append(offsets, base+reader.Offset()); err != nil {
				return added, err
			}
			added += int64(len(offsets))
			offsets = offsets[:0]
		}
	}
	if len(offsets) != 0 {
		if err = ix.Append(offsets, base+reader.Offset()); err != nil {
			return added, err
		}
		added += int64(len(offsets))
	}
	return added, nil
}
