package dataset

import (
	"io"
	"math"

	"github.com/ChizhovVadim/halfkp/internal/archive"
	"github.com/ChizhovVadim/halfkp/internal/halfkp"
	"github.com/ChizhovVadim/halfkp/internal/sparse"
	"github.com/RoaringBitmap/roaring/v2"
)

type Stats struct {
	Records        int64
	Bytes          int64
	TruncatedBytes int64
	MinTarget      float64
	MaxTarget      float64
	MeanTarget     float64
	// PieceCounts is a histogram of white perspective index counts.
	PieceCounts [sparse.MaxIndices + 1]int64
	OutOfRange  int64
	// WhiteFeatures and BlackFeatures are the distinct features seen per perspective.
	WhiteFeatures uint64
	BlackFeatures uint64
	KingSquares   uint64
}

// Analyze streams a dataset file and summarizes it without keeping records in memory.
func Analyze(path string) (Stats, error) {
	r, err := archive.Open(path)
	if err != nil {
		return Stats{}, err
	}
	defer r.Close()

	var stats = Stats{
		MinTarget: math.Inf(1),
		MaxTarget: math.Inf(-1),
	}
	var white = roaring.New()
	var black = roaring.New()
	var kings = roaring.New()
	var sum float64

	var reader = sparse.NewReader(r)
	for {
		rec, err := reader.Next()
		if err != nil {
			if err == io.EOF {
				break
			}
			return stats, err
		}
		stats.Records++
		var t = float64(rec.Target)
		sum += t
		stats.MinTarget = math.Min(stats.MinTarget, t)
		stats.MaxTarget = math.Max(stats.MaxTarget, t)
		stats.PieceCounts[len(rec.White)]++
		stats.OutOfRange += addFeatures(white, kings, rec.White)
		stats.OutOfRange += addFeatures(black, nil, rec.Black)
	}
	stats.Bytes = reader.Offset()
	stats.TruncatedBytes = reader.Truncated()
	if stats.Records != 0 {
		stats.MeanTarget = sum / float64(stats.Records)
	} else {
		stats.MinTarget, stats.MaxTarget = 0, 0
	}
	stats.WhiteFeatures = white.GetCardinality()
	stats.BlackFeatures = black.GetCardinality()
	stats.KingSquares = kings.GetCardinality()
	return stats, nil
}

func addFeatures(features, kings *roaring.Bitmap, indices []int32) int64 {
	var outOfRange int64
	for _, index := range indices {
		if !halfkp.ValidIndex(index) {
			outOfRange++
			continue
		}
		features.Add(uint32(index))
		if kings != nil {
			kings.Add(uint32(index) / (halfkp.PiecePlanes * halfkp.PieceSquares))
		}
	}
	return outOfRange
}
