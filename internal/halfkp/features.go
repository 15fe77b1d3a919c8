package halfkp

import "github.com/ChizhovVadim/halfkp/pkg/common"

const (
	KingSquares  = 64
	PiecePlanes  = 10
	PieceSquares = 64
	// FeatureSize is the length of one perspective's input vector.
	FeatureSize = KingSquares * PiecePlanes * PieceSquares
)

// PerspectivePair holds the active feature indices of both perspectives,
// one entry per non-king piece, in placement order.
type PerspectivePair struct {
	White []int32
	Black []int32
}

// FeatureIndex maps (king square, piece type, side offset, piece square) to a feature.
// sideOffset is 0 for pieces of the perspective owner and 1 for the opponent's.
func FeatureIndex(king int, pieceType common.PieceType, sideOffset int, sq int) int32 {
	return int32(king*PiecePlanes*PieceSquares + (int(pieceType)+5*sideOffset)*PieceSquares + sq)
}

// DecodeIndex is the inverse of FeatureIndex for a valid index.
func DecodeIndex(index int32) (king int, pieceType common.PieceType, sideOffset int, sq int) {
	var i = int(index)
	sq = i % PieceSquares
	var plane = (i / PieceSquares) % PiecePlanes
	king = i / (PiecePlanes * PieceSquares)
	return king, common.PieceType(plane % 5), plane / 5, sq
}

// FeatureName describes a feature from its perspective, own pieces upper case: "Ke1:Ne4".
func FeatureName(index int32) string {
	if !ValidIndex(index) {
		return "?"
	}
	var king, pieceType, sideOffset, sq = DecodeIndex(index)
	return "K" + common.SquareName(king) + ":" +
		string(common.PieceChar(pieceType, common.Color(sideOffset))) + common.SquareName(sq)
}

func ValidIndex(index int32) bool {
	return index >= 0 && index < FeatureSize
}

// Encode computes both perspectives.
// The black perspective sees the board flipped vertically with colors swapped.
func Encode(pos Position) PerspectivePair {
	var pair, _ = encode(pos)
	return pair
}

// EncodeChecked is Encode that also reports how many out-of-range indices were dropped.
func EncodeChecked(pos Position) (PerspectivePair, int) {
	return encode(pos)
}

func encode(pos Position) (PerspectivePair, int) {
	var pair = PerspectivePair{
		White: make([]int32, 0, len(pos.Pieces)),
		Black: make([]int32, 0, len(pos.Pieces)),
	}
	var dropped int
	var wking = pos.Kings[common.White]
	var bking = common.FlipSquare(pos.Kings[common.Black])
	for _, p := range pos.Pieces {
		var index = FeatureIndex(wking, p.Type, int(p.Color), p.Square)
		if ValidIndex(index) {
			pair.White = append(pair.White, index)
		} else {
			dropped++
		}
		index = FeatureIndex(bking, p.Type, int(p.Color.Opposite()), common.FlipSquare(p.Square))
		if ValidIndex(index) {
			pair.Black = append(pair.Black, index)
		} else {
			dropped++
		}
	}
	return pair, dropped
}

func EncodeFEN(fen string) (PerspectivePair, error) {
	var pos, err = ParseFEN(fen)
	if err != nil {
		return PerspectivePair{}, err
	}
	return Encode(pos), nil
}
