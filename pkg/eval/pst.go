package eval

import "github.com/kestrelchess/engine/pkg/board"

// Piece-square tables, written visually from white's perspective with rank 8
// on the first line. pst indexes them per color so that the tables read the
// same for both sides.

var pstPawnMG = [board.NumSquares]board.Score{
	0, 0, 0, 0, 0, 0, 0, 0,
	-10, 0, 0, 0, 0, 0, 0, -10,
	-10, 0, 0, 0, 0, 0, 0, -10,
	-10, 0, 5, 10, 10, 5, 0, -10,
	-10, 0, 10, 15, 15, 10, 0, -10,
	-10, 0, 5, 10, 10, 5, 0, -10,
	-10, 0, 0, 0, 0, 0, 0, -10,
	0, 0, 0, 0, 0, 0, 0, 0,
}

var pstPawnEG = [board.NumSquares]board.Score{}

var pstKnightMG = [board.NumSquares]board.Score{
	-12, -6, 0, 0, 0, 0, -6, -12,
	-6, 0, 16, 16, 16, 16, 0, -6,
	0, 12, 26, 24, 24, 26, 12, 0,
	-4, 8, 16, 16, 16, 16, 8, -4,
	-8, 4, 12, 12, 12, 12, 4, -8,
	-12, 0, 10, 6, 6, 10, 0, -12,
	-18, -16, -6, -6, -6, -6, -16, -18,
	-22, -20, -16, -16, -16, -16, -20, -22,
}

var pstKnightEG = [board.NumSquares]board.Score{
	-20, -14, -8, -8, -8, -8, -14, -20,
	-14, -8, 4, 4, 4, 4, -8, -14,
	-6, 6, 18, 18, 18, 18, 6, -6,
	-6, 6, 18, 18, 18, 18, 6, -6,
	-8, 4, 16, 16, 16, 16, 4, -8,
	-8, 4, 16, 16, 16, 16, 4, -8,
	-14, -8, 4, 4, 4, 4, -8, -14,
	-22, -16, -10, -10, -10, -10, -16, -22,
}

var pstBishopMG = [board.NumSquares]board.Score{
	-2, -2, -2, 0, 0, -2, -2, -2,
	-4, 4, 4, 2, 2, 4, 4, -4,
	-6, 2, 10, 8, 8, 10, 2, -6,
	-6, 0, 6, 12, 12, 6, 0, -6,
	-6, 0, 6, 12, 12, 6, 0, -6,
	-6, 0, 6, 4, 4, 6, 0, -6,
	-4, 4, -2, -4, -4, -2, 4, -4,
	-2, -6, -10, -12, -12, -10, -6, -2,
}

var pstBishopEG = [board.NumSquares]board.Score{
	-6, -6, -6, -6, -6, -6, -6, -6,
	-6, 0, 0, 0, 0, 0, 0, -6,
	-6, 0, 8, 8, 8, 8, 0, -6,
	-6, 0, 8, 14, 14, 8, 0, -6,
	-6, 0, 8, 14, 14, 8, 0, -6,
	-6, 0, 8, 8, 8, 8, 0, -6,
	-6, 0, 0, 0, 0, 0, 0, -6,
	-6, -6, -6, -6, -6, -6, -6, -6,
}

var pstRookMG = [board.NumSquares]board.Score{
	-4, -4, 0, 4, 4, 0, -4, -4,
	-4, -4, 0, 4, 4, 0, -4, -4,
	-4, -4, 0, 4, 4, 0, -4, -4,
	-4, -4, 0, 4, 4, 0, -4, -4,
	-4, -4, 0, 4, 4, 0, -4, -4,
	-4, -4, 0, 4, 4, 0, -4, -4,
	-4, -4, 0, 4, 4, 0, -4, -4,
	-4, -4, 0, 4, 4, 0, -4, -4,
}

var pstRookEG = [board.NumSquares]board.Score{}

var pstQueenMG = [board.NumSquares]board.Score{
	-2, -2, 0, 2, 2, 0, -2, -2,
	0, 0, 2, 4, 4, 2, 0, 0,
	0, 0, 2, 4, 4, 2, 0, 0,
	0, 0, 2, 4, 4, 2, 0, 0,
	-2, -2, 0, 2, 2, 0, -2, -2,
	-2, -2, 0, 2, 2, 0, -2, -2,
	-4, -4, -2, 0, 0, -2, -4, -4,
	-8, -8, -6, -4, -4, -6, -8, -8,
}

var pstQueenEG = [board.NumSquares]board.Score{
	-8, -6, -4, -2, -2, -4, -6, -8,
	-6, 0, 0, 2, 2, 0, 0, -6,
	-4, 0, 6, 8, 8, 6, 0, -4,
	-2, 2, 8, 12, 12, 8, 2, -2,
	-2, 2, 8, 12, 12, 8, 2, -2,
	-4, 0, 6, 8, 8, 6, 0, -4,
	-6, 0, 0, 2, 2, 0, 0, -6,
	-8, -6, -4, -2, -2, -4, -6, -8,
}

var pstKingMG = [board.NumSquares]board.Score{}

var pstKingEG = [board.NumSquares]board.Score{
	0, 15, 20, 25, 25, 20, 15, 0,
	15, 25, 30, 35, 35, 30, 25, 15,
	20, 30, 35, 40, 40, 35, 30, 20,
	25, 35, 40, 45, 45, 40, 35, 25,
	25, 35, 40, 45, 45, 40, 35, 25,
	20, 30, 35, 40, 40, 35, 30, 20,
	15, 25, 30, 35, 35, 30, 25, 15,
	0, 15, 20, 25, 25, 20, 15, 0,
}

// pstTable[piece][sq] holds the pair for a white piece with the board laid
// out a1=0; black pieces use the vertical mirror.
var pstTable [board.NumPieces][board.NumSquares]Pair

func init() {
	type src struct {
		piece  board.Piece
		mg, eg *[board.NumSquares]board.Score
	}
	for _, s := range []src{
		{board.Pawn, &pstPawnMG, &pstPawnEG},
		{board.Knight, &pstKnightMG, &pstKnightEG},
		{board.Bishop, &pstBishopMG, &pstBishopEG},
		{board.Rook, &pstRookMG, &pstRookEG},
		{board.Queen, &pstQueenMG, &pstQueenEG},
		{board.King, &pstKingMG, &pstKingEG},
	} {
		for sq := board.ZeroSquare; sq < board.NumSquares; sq++ {
			// The literal tables read rank 8 first: visual row i maps to
			// board rank 7-i.
			visual := board.NewSquare(sq.File(), board.Rank8-sq.Rank())
			pstTable[s.piece][sq] = S(s.mg[visual], s.eg[visual])
		}
	}
}

// pst returns the piece-square pair for a piece of the given color.
func pst(c board.Color, piece board.Piece, sq board.Square) Pair {
	if c == board.Black {
		sq = sq.Flip()
	}
	return pstTable[piece][sq]
}
