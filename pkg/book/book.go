// Package book reads Polyglot-format opening books: a sorted sequence of
// 16-byte entries keyed by a position fingerprint.
//
// The key derivation and the random table follow the PolyGlot program by
// Fabien Letouzey so that standard book files work unchanged.
package book

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/kestrelchess/engine/pkg/board"
	"github.com/seekerror/logw"
)

// Indices into the random table beyond the 768 piece-square entries.
const (
	castleOffset = 768
	epOffset     = 772
	stmOffset    = 780
)

const entrySize = 16

// Entry is one book record: a position key, an encoded move and its weight.
// The learn fields are read but unused.
type Entry struct {
	Key    uint64
	Move   board.Move
	Weight uint16
}

// Key computes the Polyglot fingerprint of a position: piece-square codes,
// castling rights, the en passant file (only when an enemy pawn can actually
// capture) and the side to move.
func Key(pos *board.Position) uint64 {
	var key uint64

	for sq := board.ZeroSquare; sq < board.NumSquares; sq++ {
		if c, piece, ok := pos.Square(sq); ok {
			key ^= random64[pieceIndex(c, piece)*64+int(sq)]
		}
	}

	castling := pos.Castling()
	if castling.IsAllowed(board.WhiteKingSideCastle) {
		key ^= random64[castleOffset+0]
	}
	if castling.IsAllowed(board.WhiteQueenSideCastle) {
		key ^= random64[castleOffset+1]
	}
	if castling.IsAllowed(board.BlackKingSideCastle) {
		key ^= random64[castleOffset+2]
	}
	if castling.IsAllowed(board.BlackQueenSideCastle) {
		key ^= random64[castleOffset+3]
	}

	if ep, ok := pos.EnPassant(); ok {
		// The file only counts when a capturing pawn is actually in place.
		them := pos.Turn().Opponent()
		capturers := board.PawnCaptureboard(them, board.BitMask(ep)) & pos.Piece(pos.Turn(), board.Pawn)
		if capturers != 0 {
			key ^= random64[epOffset+int(ep.File())]
		}
	}

	if pos.Turn() == board.White {
		key ^= random64[stmOffset]
	}
	return key
}

// pieceIndex maps to the Polyglot piece numbering: black pawn 0, white pawn
// 1, up to white king 11.
func pieceIndex(c board.Color, p board.Piece) int {
	var kind int
	switch p {
	case board.Pawn:
		kind = 0
	case board.Knight:
		kind = 1
	case board.Bishop:
		kind = 2
	case board.Rook:
		kind = 3
	case board.Queen:
		kind = 4
	case board.King:
		kind = 5
	}
	ix := kind * 2
	if c == board.White {
		ix++
	}
	return ix
}

// Book is an open Polyglot book file.
type Book struct {
	f    *os.File
	size int64 // number of entries
	name string
}

// Open opens a book file. A missing file is an error; callers typically
// disable book use in response.
func Open(ctx context.Context, name string) (*Book, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("failed to open book: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to stat book: %w", err)
	}

	b := &Book{f: f, size: info.Size() / entrySize, name: name}
	logw.Infof(ctx, "Opened book %v with %v entries", name, b.size)
	return b, nil
}

func (b *Book) Close() error {
	return b.f.Close()
}

func (b *Book) Name() string {
	return b.name
}

// readEntry reads the idx'th 16-byte entry: big-endian key, move, weight and
// two learn fields.
func (b *Book) readEntry(idx int64) (Entry, error) {
	var buf [entrySize]byte
	if _, err := b.f.ReadAt(buf[:], idx*entrySize); err != nil {
		return Entry{}, fmt.Errorf("failed to read book entry %v: %w", idx, err)
	}
	return Entry{
		Key:    binary.BigEndian.Uint64(buf[0:8]),
		Move:   decodeMove(binary.BigEndian.Uint16(buf[8:10])),
		Weight: binary.BigEndian.Uint16(buf[10:12]),
	}, nil
}

// decodeMove unpacks the book move encoding: to-square bits 0-5, from-square
// bits 6-11, promotion piece bits 12-14.
func decodeMove(raw uint16) board.Move {
	m := board.Move{
		To:   board.Square(raw & 0x3f),
		From: board.Square(raw >> 6 & 0x3f),
	}
	switch raw >> 12 & 0x7 {
	case 1:
		m.Promotion = board.Knight
	case 2:
		m.Promotion = board.Bishop
	case 3:
		m.Promotion = board.Rook
	case 4:
		m.Promotion = board.Queen
	}
	return m
}

// findFirst locates the first entry with the given key by binary search.
func (b *Book) findFirst(key uint64) (int64, error) {
	var err error
	first := sort.Search(int(b.size), func(i int) bool {
		if err != nil {
			return false
		}
		e, readErr := b.readEntry(int64(i))
		if readErr != nil {
			err = readErr
			return false
		}
		return e.Key >= key
	})
	return int64(first), err
}

// Find returns the book entries for the position, resolved to legal moves.
// Castling moves are converted from the book's king-takes-rook form to the
// king-two-squares form.
func (b *Book) Find(ctx context.Context, pos *board.Position) ([]Entry, error) {
	key := Key(pos)
	idx, err := b.findFirst(key)
	if err != nil {
		return nil, err
	}

	var ret []Entry
	for ; idx < b.size; idx++ {
		e, err := b.readEntry(idx)
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, err
		}
		if e.Key != key {
			break
		}
		if m, ok := resolveMove(pos, e.Move); ok {
			e.Move = m
			ret = append(ret, e)
		}
	}
	return ret, nil
}

// resolveMove matches a decoded book move against the legal moves of the
// position, handling the castling notation difference.
func resolveMove(pos *board.Position, m board.Move) (board.Move, bool) {
	// Castling is rendered as king-to-rook-square in the book format.
	if c, piece, ok := pos.Square(m.From); ok && piece == board.King && c == pos.Turn() {
		switch {
		case m.From == board.E1 && m.To == board.H1:
			m.To = board.G1
		case m.From == board.E1 && m.To == board.A1:
			m.To = board.C1
		case m.From == board.E8 && m.To == board.H8:
			m.To = board.G8
		case m.From == board.E8 && m.To == board.A8:
			m.To = board.C8
		}
	}
	return pos.Find(m)
}
