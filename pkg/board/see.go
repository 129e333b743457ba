package board

// seeValue holds the material values used by static exchange evaluation.
// Minors are equal so BxN and NxB trades fold to zero.
var seeValue = [NumPieces]Score{0, 100, 325, 325, 500, 925, 10000}

// SEEValue returns the exchange value of a piece.
func SEEValue(p Piece) Score {
	return seeValue[p]
}

// SEE computes the net material gain of a capture assuming both sides play
// least-valuable attacker to the target square until no profitable capture
// remains, then negamax-folds the gain sequence. X-ray attackers are added
// as the pieces in front of them are removed.
func (p *Position) SEE(m Move) Score {
	captured := m.Capture
	if m.Type == EnPassant {
		captured = Pawn
	}

	// Shortcut: capturing a more valuable piece can never lose the exchange.

	if captured != NoPiece && seeValue[m.Moving] < seeValue[captured] {
		return seeValue[captured] - seeValue[m.Moving]
	}

	them := p.turn.Opponent()

	// Shortcut: a piece grabbing a pawn defended by a pawn loses material.

	if captured == Pawn && m.Moving != Pawn && m.Moving != King {
		if PawnCaptureboard(them, p.pieces[them][Pawn]).IsSet(m.To) {
			return seeValue[Pawn] - seeValue[m.Moving]
		}
	}

	occ := p.All() &^ BitMask(m.From)
	if m.Type == EnPassant {
		occ &^= BitMask(m.EnPassantCapture())
	}

	var gain [32]Score
	d := 0
	gain[0] = seeValue[captured]
	if m.IsPromotion() {
		gain[0] += seeValue[m.Promotion] - seeValue[Pawn]
	}

	attacker := m.Moving
	if m.IsPromotion() {
		attacker = m.Promotion
	}
	side := them

	for {
		attackers := p.attackers(m.To, occ) & occ & p.Color(side)
		from, piece := p.leastValuableAttacker(attackers, side)
		if piece == NoPiece {
			break
		}

		d++
		gain[d] = seeValue[attacker] - gain[d-1]
		if maxScore(-gain[d-1], gain[d]) < 0 {
			d-- // neither continuation can improve: drop this capture from the fold
			break
		}

		occ &^= BitMask(from)
		attacker = piece
		side = side.Opponent()
	}

	for ; d > 0; d-- {
		gain[d-1] = -maxScore(-gain[d-1], gain[d])
	}
	return gain[0]
}

// leastValuableAttacker returns the square and piece of the cheapest
// attacker of color c within the given attacker set.
func (p *Position) leastValuableAttacker(attackers Bitboard, c Color) (Square, Piece) {
	if attackers == 0 {
		return NoSquare, NoPiece
	}
	for piece := Pawn; piece <= King; piece++ {
		if b := attackers & p.pieces[c][piece]; b != 0 {
			return b.LSB(), piece
		}
	}
	return NoSquare, NoPiece
}

func maxScore(a, b Score) Score {
	if a > b {
		return a
	}
	return b
}
