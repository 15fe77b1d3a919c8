package halfkp

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ChizhovVadim/halfkp/pkg/common"
)

var ErrMissingKing = errors.New("missing king")

type ParseError struct {
	FEN string
	Msg string
	Err error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse fen %q: %v", e.FEN, e.Err)
	}
	return fmt.Sprintf("parse fen %q: %s", e.FEN, e.Msg)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ParseFEN parses the placement field of a full FEN string.
// Side to move, castling and the remaining fields are not needed for Half-KP.
func ParseFEN(fen string) (Position, error) {
	var fields = strings.Fields(fen)
	if len(fields) == 0 {
		return Position{}, &ParseError{FEN: fen, Msg: "empty"}
	}
	var pos, err = ParsePlacement(fields[0])
	if err != nil {
		var pe *ParseError
		if errors.As(err, &pe) {
			pe.FEN = fen
		}
		return Position{}, err
	}
	return pos, nil
}

func ParsePlacement(field string) (Position, error) {
	var pos = Position{
		Pieces: make([]Piece, 0, 30),
		Kings:  [2]int{common.SquareNone, common.SquareNone},
	}
	var ranks = strings.Split(field, "/")
	if len(ranks) != 8 {
		return Position{}, &ParseError{FEN: field, Msg: fmt.Sprintf("expected 8 ranks, got %v", len(ranks))}
	}
	for i, rank := range ranks {
		var rankIndex = common.Rank8 - i
		var file = common.FileA
		for j := 0; j < len(rank); j++ {
			var ch = rank[j]
			if ch >= '1' && ch <= '8' {
				file += int(ch - '0')
				if file > 8 {
					return Position{}, &ParseError{FEN: field, Msg: fmt.Sprintf("rank %v overflows", i+1)}
				}
				continue
			}
			var pieceType, color, ok = common.PieceFromChar(ch)
			if !ok {
				return Position{}, &ParseError{FEN: field, Msg: fmt.Sprintf("unexpected character %q", ch)}
			}
			if file >= 8 {
				return Position{}, &ParseError{FEN: field, Msg: fmt.Sprintf("rank %v overflows", i+1)}
			}
			var sq = common.MakeSquare(file, rankIndex)
			file++
			if pieceType == common.King {
				if pos.Kings[color] != common.SquareNone {
					return Position{}, &ParseError{FEN: field, Msg: fmt.Sprintf("duplicate %v king", color)}
				}
				pos.Kings[color] = sq
				continue
			}
			pos.Pieces = append(pos.Pieces, Piece{Square: sq, Color: color, Type: pieceType})
		}
	}
	if pos.Kings[common.White] == common.SquareNone || pos.Kings[common.Black] == common.SquareNone {
		return Position{}, &ParseError{FEN: field, Err: ErrMissingKing}
	}
	return pos, nil
}
