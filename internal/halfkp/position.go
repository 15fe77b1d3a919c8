package halfkp

import "github.com/ChizhovVadim/halfkp/pkg/common"

// Piece is a non-king piece on the board.
type Piece struct {
	Square int
	Color  common.Color
	Type   common.PieceType
}

// Position keeps pieces in placement order: rank 8 to rank 1, file a to file h.
// Kings are tracked separately and never appear in Pieces.
type Position struct {
	Pieces []Piece
	Kings  [2]int
}

// Mirror flips the board vertically and swaps colors.
func Mirror(pos Position) Position {
	var pieces = make([]Piece, len(pos.Pieces))
	for i, p := range pos.Pieces {
		pieces[i] = Piece{
			Square: common.FlipSquare(p.Square),
			Color:  p.Color.Opposite(),
			Type:   p.Type,
		}
	}
	return Position{
		Pieces: pieces,
		Kings: [2]int{
			common.FlipSquare(pos.Kings[common.Black]),
			common.FlipSquare(pos.Kings[common.White]),
		},
	}
}
