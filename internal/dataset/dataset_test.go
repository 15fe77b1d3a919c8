package dataset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ChizhovVadim/halfkp/internal/archive"
	"github.com/ChizhovVadim/halfkp/internal/halfkp"
	"github.com/ChizhovVadim/halfkp/internal/offsetindex"
	"github.com/ChizhovVadim/halfkp/internal/sparse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testFENs = []string{
	"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1",
	"4k3/8/8/8/4N3/8/8/4K3 w - - 0 1",
	"r1bq1rk1/pp2bppp/2n1pn2/3p4/2PP4/2N1PN2/PP3PPP/R2QKB1R w KQ - 1 8",
	"8/5pk1/6p1/8/3B4/6P1/5PKP/8 b - - 0 40",
}

func testRecords(t *testing.T) []sparse.Record {
	var result []sparse.Record
	for i, fen := range testFENs {
		var pair, err = halfkp.EncodeFEN(fen)
		require.NoError(t, err)
		result = append(result, sparse.Record{
			Target: float32(i) / float32(len(testFENs)-1),
			White:  pair.White,
			Black:  pair.Black,
		})
	}
	return result
}

func writeRecords(t *testing.T, path string, records []sparse.Record, tail []byte) {
	var buf []byte
	for i := range records {
		buf = sparse.AppendRecord(buf, &records[i])
	}
	buf = append(buf, tail...)
	require.NoError(t, os.WriteFile(path, buf, 0644))
}

func countOnes(t *testing.T, v []float32) int {
	var n int
	for _, x := range v {
		if x == 1 {
			n++
		} else {
			require.Zero(t, x)
		}
	}
	return n
}

func TestRealTarget(t *testing.T) {
	assert.Equal(t, float32(-2), RealTarget(0))
	assert.Equal(t, float32(0), RealTarget(0.5))
	assert.Equal(t, float32(2), RealTarget(1))
}

func TestDensify(t *testing.T) {
	var dst = make([]float32, halfkp.FeatureSize)
	dst[7] = 1
	var ignored = Densify([]int32{0, 100, halfkp.FeatureSize - 1, halfkp.FeatureSize, -3}, dst)
	assert.Equal(t, 2, ignored)
	assert.Equal(t, 3, countOnes(t, dst))
	assert.Equal(t, float32(0), dst[7])
	assert.Equal(t, float32(1), dst[halfkp.FeatureSize-1])
}

func TestLoadAndSample(t *testing.T) {
	var path = filepath.Join(t.TempDir(), "data.bin")
	var records = testRecords(t)
	writeRecords(t, path, records, []byte{0, 0, 0x80})

	var d, err = Load(path)
	require.NoError(t, err)
	require.Equal(t, len(records), d.Len())
	assert.Equal(t, int64(3), d.Truncated())

	var s = NewSample()
	for i := range records {
		assert.Equal(t, records[i], d.Record(i))
		d.SampleInto(i, &s)
		assert.Equal(t, len(records[i].White), countOnes(t, s.White))
		assert.Equal(t, len(records[i].Black), countOnes(t, s.Black))
		assert.Equal(t, RealTarget(records[i].Target), s.Target)
	}
	var fresh = d.Sample(1)
	assert.Equal(t, float32(1), fresh.White[2652])
}

func TestLoadCompressed(t *testing.T) {
	var dir = t.TempDir()
	var path = filepath.Join(dir, "data.bin")
	var records = testRecords(t)
	writeRecords(t, path, records, nil)
	for _, name := range []string{"data.bin.zst", "data.bin.lz4"} {
		var dst = filepath.Join(dir, name)
		_, err := archive.Compress(path, dst)
		require.NoError(t, err)
		d, err := Load(dst)
		require.NoError(t, err, name)
		assert.Equal(t, len(records), d.Len(), name)
		assert.Equal(t, records[2], d.Record(2), name)
	}
}

func TestIndexedDataset(t *testing.T) {
	var dir = t.TempDir()
	var path = filepath.Join(dir, "data.bin")
	var records = testRecords(t)
	writeRecords(t, path, records, []byte{9})

	ix, err := offsetindex.OpenInMemory()
	require.NoError(t, err)
	defer ix.Close()
	d, err := Open(path, ix)
	require.NoError(t, err)
	defer d.Close()

	require.Equal(t, len(records), d.Len())
	var s = NewSample()
	for i := len(records) - 1; i >= 0; i-- {
		rec, err := d.Record(i)
		require.NoError(t, err)
		assert.Equal(t, records[i], rec)
		require.NoError(t, d.SampleInto(i, &s))
		assert.Equal(t, RealTarget(records[i].Target), s.Target)
	}
	_, err = d.Record(len(records))
	assert.Equal(t, offsetindex.ErrOutOfRange, err)
}

func TestAnalyze(t *testing.T) {
	var path = filepath.Join(t.TempDir(), "data.bin")
	var records = testRecords(t)
	records = append(records, sparse.Record{Target: 0.5, White: []int32{-1, 5}, Black: []int32{halfkp.FeatureSize}})
	writeRecords(t, path, records, []byte{1, 2})

	var stats, err = Analyze(path)
	require.NoError(t, err)
	assert.Equal(t, int64(len(records)), stats.Records)
	assert.Equal(t, int64(2), stats.TruncatedBytes)
	assert.Equal(t, int64(2), stats.OutOfRange)
	assert.Equal(t, 0.0, stats.MinTarget)
	assert.Equal(t, 1.0, stats.MaxTarget)
	assert.Equal(t, int64(1), stats.PieceCounts[30])
	assert.Equal(t, int64(1), stats.PieceCounts[1])
	assert.NotZero(t, stats.WhiteFeatures)
	assert.NotZero(t, stats.KingSquares)
}
