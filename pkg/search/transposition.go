package search

import (
	"context"

	"github.com/kestrelchess/engine/pkg/board"
	"github.com/seekerror/logw"
)

// TranspositionTable is a bucketed hash table of search results. Each slot
// stores (key XOR value, value) so a torn concurrent read is self-detecting;
// within this package the table is used by one search at a time.
//
// Replacement on insertion overwrites an exact key match, otherwise the
// bucket slot scoring worst by depth and age distance.
type TranspositionTable struct {
	entries []ttSlot
	mask    uint64
	age     uint32
	salt    board.ZobristHash
}

const ttBuckets = 4

type ttSlot struct {
	key   uint64 // board key XOR value
	value uint64
}

// Packed value layout, low to high:
//
//	| 0-24  | 25-26 | 27-34 | 35-50          | 51-56 |
//	| move  | bound | depth | score (offset) | age   |
const (
	ttMoveBits  = 25
	ttBoundOff  = ttMoveBits
	ttDepthOff  = ttBoundOff + 2
	ttScoreOff  = ttDepthOff + 8
	ttAgeOff    = ttScoreOff + 16
	ttScoreBase = 1 << 15
)

func packMove(m board.Move) uint64 {
	return uint64(m.From) | uint64(m.To)<<6 | uint64(m.Type)<<12 |
		uint64(m.Moving)<<16 | uint64(m.Promotion)<<19 | uint64(m.Capture)<<22
}

func unpackMove(v uint64) board.Move {
	return board.Move{
		From:      board.Square(v & 0x3f),
		To:        board.Square(v >> 6 & 0x3f),
		Type:      board.MoveType(v >> 12 & 0xf),
		Moving:    board.Piece(v >> 16 & 0x7),
		Promotion: board.Piece(v >> 19 & 0x7),
		Capture:   board.Piece(v >> 22 & 0x7),
	}
}

func encodeTT(age uint32, depth int, score board.Score, m board.Move, bound Bound) uint64 {
	return packMove(m) |
		uint64(bound)<<ttBoundOff |
		uint64(depth&0xff)<<ttDepthOff |
		uint64(uint16(int(score)+ttScoreBase))<<ttScoreOff |
		uint64(age&0x3f)<<ttAgeOff
}

func decodeDepth(v uint64) int {
	return int(v >> ttDepthOff & 0xff)
}

func decodeScore(v uint64) board.Score {
	return board.Score(int(v>>ttScoreOff&0xffff) - ttScoreBase)
}

func decodeBound(v uint64) Bound {
	return Bound(v >> ttBoundOff & 0x3)
}

func decodeAge(v uint64) uint32 {
	return uint32(v >> ttAgeOff & 0x3f)
}

// NewTranspositionTable allocates a power-of-two sized table of about the
// given size in megabytes.
func NewTranspositionTable(ctx context.Context, megabytes uint64) *TranspositionTable {
	if megabytes == 0 {
		megabytes = 1
	}
	n := uint64(1)
	for n<<1 <= megabytes<<20/16 {
		n <<= 1
	}
	logw.Infof(ctx, "Allocating %vMB transposition table with %v entries", megabytes, n)
	return &TranspositionTable{
		entries: make([]ttSlot, n),
		mask:    n - 1,
	}
}

// Clear wipes the table, for a new game.
func (t *TranspositionTable) Clear() {
	for i := range t.entries {
		t.entries[i] = ttSlot{}
	}
	t.age = 0
}

// SetSalt establishes the variant salt applied to every key.
func (t *TranspositionTable) SetSalt(salt board.ZobristHash) {
	t.salt = salt
}

// BumpAge advances the age counter, once per game move, so stale entries
// lose replacement priority.
func (t *TranspositionTable) BumpAge() {
	t.age = (t.age + 1) % 64
}

// Size returns the size of the table in bytes.
func (t *TranspositionTable) Size() uint64 {
	return uint64(len(t.entries)) << 4
}

// Used returns the utilization as a fraction [0;1], sampled.
func (t *TranspositionTable) Used() float64 {
	n := minInt(len(t.entries), 1000)
	used := 0
	for i := 0; i < n; i++ {
		if t.entries[i].value != 0 {
			used++
		}
	}
	return float64(used) / float64(n)
}

// makeScore offsets mate scores by the ply from root so retrieved scores
// remain correct regardless of where in the tree the entry was stored.
func makeScore(score board.Score, ply int) board.Score {
	if score >= board.MateScore-board.MaxPly {
		return score + board.Score(ply)
	}
	if score <= -board.MateScore+board.MaxPly {
		return score - board.Score(ply)
	}
	return score
}

func unmakeScore(score board.Score, ply int) board.Score {
	if score >= board.MateScore-board.MaxPly {
		return score - board.Score(ply)
	}
	if score <= -board.MateScore+board.MaxPly {
		return score + board.Score(ply)
	}
	return score
}

// Store inserts an entry for the key.
func (t *TranspositionTable) Store(key board.ZobristHash, ply, depth int, score board.Score, m board.Move, bound Bound) {
	if t == nil || len(t.entries) == 0 {
		return
	}
	key ^= t.salt
	value := encodeTT(t.age, depth, makeScore(score, ply), m, bound)
	ix := uint64(key) & t.mask

	var victim *ttSlot
	victimScore := -1 << 30
	for i := uint64(0); i < ttBuckets; i++ {
		slot := &t.entries[(ix+i)&t.mask]
		if slot.key^slot.value == uint64(key) {
			slot.value = value
			slot.key = value ^ uint64(key)
			return
		}
		s := 256 - decodeDepth(slot.value)
		ageDiff := int(t.age) - int(decodeAge(slot.value))
		if ageDiff > 0 {
			s += ageDiff * 256
		} else if ageDiff < 0 {
			s += (63 + ageDiff) * 256
		}
		if s > victimScore {
			victimScore = s
			victim = slot
		}
	}
	victim.value = value
	victim.key = value ^ uint64(key)
}

// Probe looks up the key. On a hit it returns the stored move, the
// ply-adjusted score, bound and depth.
func (t *TranspositionTable) Probe(key board.ZobristHash, ply int) (board.Move, board.Score, Bound, int, bool) {
	if t == nil || len(t.entries) == 0 {
		return board.Move{}, 0, 0, 0, false
	}
	key ^= t.salt
	ix := uint64(key) & t.mask
	for i := uint64(0); i < ttBuckets; i++ {
		slot := &t.entries[(ix+i)&t.mask]
		if slot.value != 0 && slot.key^slot.value == uint64(key) {
			v := slot.value
			return unpackMove(v), unmakeScore(decodeScore(v), ply), decodeBound(v), decodeDepth(v), true
		}
	}
	return board.Move{}, 0, 0, 0, false
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
