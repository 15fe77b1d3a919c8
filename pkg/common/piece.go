package common

type Color int

const (
	White Color = iota
	Black
)

func (c Color) Opposite() Color {
	return c ^ 1
}

func (c Color) String() string {
	if c == White {
		return "white"
	}
	return "black"
}

type PieceType int

// Piece types are numbered from zero so that non-king pieces index feature planes directly.
const (
	Pawn PieceType = iota
	Knight
	Bishop
	Rook
	Queen
	King
)

const pieceChars = "pnbrqk"

// PieceFromChar decodes a FEN piece letter. Upper case is white.
func PieceFromChar(ch byte) (PieceType, Color, bool) {
	var color = White
	if ch >= 'a' && ch <= 'z' {
		color = Black
		ch -= 'a' - 'A'
	}
	for i := 0; i < len(pieceChars); i++ {
		if pieceChars[i]-('a'-'A') == ch {
			return PieceType(i), color, true
		}
	}
	return 0, White, false
}

func PieceChar(pt PieceType, c Color) byte {
	if pt < Pawn || pt > King {
		return '?'
	}
	var ch = pieceChars[pt]
	if c == White {
		ch -= 'a' - 'A'
	}
	return ch
}
