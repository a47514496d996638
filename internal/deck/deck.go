// internal/deck/deck.go
//
// Card definitions and the per-round deck.
// Responsibilities:
//   - Describe a matchable item (Definition) and one physical card (Card).
//   - Duplicate every definition into a pair of cards with sequential IDs.
//   - Shuffle a deck in place with an unbiased Fisher–Yates permutation.
//
// Notes:
//   - A card's PairKey is the label of its definition, so labels must be unique
//     within one table (enforced by Parse/Load).
//   - Randomness is injected as *rand.Rand so rounds are reproducible under a seed.
package deck

import (
	crand "crypto/rand"
	"encoding/binary"
	"math/rand/v2"
)

// Definition is the static template for one matchable item.
type Definition struct {
	Label string `json:"label"` // display text, doubles as the pair key
	Image string `json:"image"` // visual asset reference
	Color string `json:"color"` // accent color (#rrggbb)
	Sound string `json:"sound"` // sound clip reference
}

// Card is one physical card in a round.
type Card struct {
	ID      int        `json:"id"`
	PairKey string     `json:"pairKey"`
	Def     Definition `json:"def"`
}

// Matches reports whether two cards belong to the same pair.
func (c Card) Matches(o Card) bool { return c.PairKey == o.PairKey }

// Build duplicates the definition table and assigns sequential IDs.
// IDs 0..n-1 are the first copies in table order, n..2n-1 the second copies.
func Build(defs []Definition) []Card {
	n := len(defs)
	cards := make([]Card, 0, 2*n)
	for i := 0; i < 2*n; i++ {
		d := defs[i%n]
		cards = append(cards, Card{ID: i, PairKey: d.Label, Def: d})
	}
	return cards
}

// Shuffle permutes cards in place: for i from the last index down to 1,
// swap with a uniformly chosen index in [0, i].
func Shuffle(cards []Card, r *rand.Rand) {
	for i := len(cards) - 1; i > 0; i-- {
		j := r.IntN(i + 1)
		cards[i], cards[j] = cards[j], cards[i]
	}
}

// New builds and shuffles a fresh deck.
func New(defs []Definition, r *rand.Rand) []Card {
	cards := Build(defs)
	Shuffle(cards, r)
	return cards
}

// NewRand returns a PCG source seeded with seed, or with crypto/rand entropy
// when seed is zero.
func NewRand(seed uint64) *rand.Rand {
	if seed == 0 {
		var b [8]byte
		_, _ = crand.Read(b[:])
		seed = binary.LittleEndian.Uint64(b[:])
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}
