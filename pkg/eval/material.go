package eval

import "github.com/kestrelchess/engine/pkg/board"

// Piece values in centipawns.
const (
	VPawn   board.Score = 100
	VKnight board.Score = 325
	VBishop board.Score = 325
	VRook   board.Score = 500
	VQueen  board.Score = 925
)

// PieceValue returns the nominal value of a piece; kings have none.
func PieceValue(p board.Piece) board.Score {
	switch p {
	case board.Pawn:
		return VPawn
	case board.Knight:
		return VKnight
	case board.Bishop:
		return VBishop
	case board.Rook:
		return VRook
	case board.Queen:
		return VQueen
	default:
		return 0
	}
}

// Redundancy corrections: the second rook, knight or queen is worth slightly
// less than the first.
const (
	redundantRook   board.Score = -10
	redundantKnight board.Score = -5
	redundantQueen  board.Score = -20
)

// Imbalance classifies the material difference beyond an even trade.
type Imbalance uint8

const (
	ImbalanceNone Imbalance = iota
	ImbalanceMinorWhite
	ImbalanceMajorWhite
	ImbalanceMinorBlack
	ImbalanceMajorBlack
)

// MaterialEntry is the material table payload: the blended material score
// plus the phase and the flags the evaluation dispatches on.
type MaterialEntry struct {
	Key   board.ZobristHash
	Score board.Score
	Phase int

	Endgame     bool
	MatingPower [board.NumColors]bool
	AttackForce [board.NumColors]int
	KingAttack  [board.NumColors]bool // attack force strong enough for a king attack
	Imbalance   Imbalance
}

// HasImbalance returns true iff the imbalance favors the given color.
func (e *MaterialEntry) HasImbalance(c board.Color) bool {
	if c == board.White {
		return e.Imbalance == ImbalanceMinorWhite || e.Imbalance == ImbalanceMajorWhite
	}
	return e.Imbalance == ImbalanceMinorBlack || e.Imbalance == ImbalanceMajorBlack
}

// HasMajorImbalance returns true iff either side is a major exchange up.
func (e *MaterialEntry) HasMajorImbalance() bool {
	return e.Imbalance == ImbalanceMajorWhite || e.Imbalance == ImbalanceMajorBlack
}

// MaterialTable is a direct-mapped cache of material evaluations keyed by the
// material Zobrist. Entries are overwritten unconditionally; correctness is
// ensured by comparing the full key on retrieval.
type MaterialTable struct {
	entries []MaterialEntry
	mask    uint64
}

const materialTableBits = 14

func NewMaterialTable() *MaterialTable {
	n := 1 << materialTableBits
	return &MaterialTable{
		entries: make([]MaterialEntry, n),
		mask:    uint64(n - 1),
	}
}

func (t *MaterialTable) Clear() {
	for i := range t.entries {
		t.entries[i] = MaterialEntry{}
	}
}

func (t *MaterialTable) slot(key board.ZobristHash) *MaterialEntry {
	return &t.entries[uint64(key)&t.mask]
}

// evalMaterial returns the material entry for the position, probing the
// table first.
func (e *Evaluator) evalMaterial(pos *board.Position) *MaterialEntry {
	entry := e.material.slot(pos.MaterialKey())
	if entry.Key == pos.MaterialKey() && entry.Key != 0 {
		return entry
	}

	wpawns := pos.Piece(board.White, board.Pawn).PopCount()
	bpawns := pos.Piece(board.Black, board.Pawn).PopCount()
	wknights := pos.Piece(board.White, board.Knight).PopCount()
	bknights := pos.Piece(board.Black, board.Knight).PopCount()
	wbishops := pos.Piece(board.White, board.Bishop).PopCount()
	bbishops := pos.Piece(board.Black, board.Bishop).PopCount()
	wrooks := pos.Piece(board.White, board.Rook).PopCount()
	brooks := pos.Piece(board.Black, board.Rook).PopCount()
	wqueens := pos.Piece(board.White, board.Queen).PopCount()
	bqueens := pos.Piece(board.Black, board.Queen).PopCount()
	wminors := wknights + wbishops
	bminors := bknights + bbishops
	wpieces := wminors + wrooks + wqueens
	bpieces := bminors + brooks + bqueens

	phase := maxInt(0, MaxPhase-wminors-bminors-wrooks-brooks-2*(wqueens+bqueens))

	var result Pair
	if wknights != bknights {
		result.AddBoth(board.Score(wknights-bknights) * VKnight)
		if wknights > 1 {
			result.AddBoth(redundantKnight)
		}
		if bknights > 1 {
			result.AddBoth(-redundantKnight)
		}
	}
	if wbishops != bbishops {
		result.AddBoth(board.Score(wbishops-bbishops) * VBishop)
	}
	if wrooks != brooks {
		result.AddBoth(board.Score(wrooks-brooks) * VRook)
		if wrooks > 1 {
			result.AddBoth(redundantRook)
		}
		if brooks > 1 {
			result.AddBoth(-redundantRook)
		}
	}
	if wqueens != bqueens {
		result.AddBoth(board.Score(wqueens-bqueens) * VQueen)
		if wqueens > 1 {
			result.AddBoth(redundantQueen)
		}
		if bqueens > 1 {
			result.AddBoth(-redundantQueen)
		}
	}

	// Imbalance classification considers pieces only, before pawns are added.

	imbalance := ImbalanceNone
	balanced := wminors == bminors && wrooks+2*wqueens == brooks+2*bqueens
	if !balanced {
		power := result.Blend(phase)
		switch {
		case power > 450:
			imbalance = ImbalanceMajorWhite
		case power > 100:
			imbalance = ImbalanceMinorWhite
		case power < -450:
			imbalance = ImbalanceMajorBlack
		case power < -100:
			imbalance = ImbalanceMinorBlack
		}
	}

	if wpawns != bpawns {
		result.AddBoth(board.Score(wpawns-bpawns) * VPawn)
	}

	matingW := wrooks > 0 || wqueens > 0 || wminors > 2 || (wminors == 2 && wbishops > 0)
	matingB := brooks > 0 || bqueens > 0 || bminors > 2 || (bminors == 2 && bbishops > 0)

	*entry = MaterialEntry{
		Key:       pos.MaterialKey(),
		Score:     result.Blend(phase),
		Phase:     phase,
		Endgame:   wpawns <= 1 || bpawns <= 1 || !matingW || !matingB,
		Imbalance: imbalance,
	}
	entry.MatingPower[board.White] = matingW
	entry.MatingPower[board.Black] = matingB
	entry.AttackForce[board.White] = 3*wminors + 5*wrooks + 9*wqueens
	entry.AttackForce[board.Black] = 3*bminors + 5*brooks + 9*bqueens
	entry.KingAttack[board.White] = matingW && wqueens > 0 && (wpieces > 2 || wrooks > 0 || wqueens > 1)
	entry.KingAttack[board.Black] = matingB && bqueens > 0 && (bpieces > 2 || brooks > 0 || bqueens > 1)
	return entry
}
