package poseidon

import (
	"bytes"
	"math/big"

	"github.com/bits-and-blooms/bitset"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/icza/bitio"
)

const (
	grainStateBits = 80

	grainFieldPrime = 1 // field type: prime order
	grainSboxPow    = 0 // S-box type: x^alpha
)

// grain is the self-shrinking Grain LFSR used to derive Poseidon constants.
type grain struct {
	state   *bitset.BitSet
	nextBit uint
}

func newGrain(width, fullRounds, partialRounds int) *grain {
	g := &grain{
		state:   bitset.New(grainStateBits),
		nextBit: grainStateBits,
	}

	var offset uint
	appendBits := func(n uint, v uint64) {
		for i := uint(0); i < n; i++ {
			g.state.SetTo(offset+i, (v>>(n-1-i))&1 == 1)
		}
		offset += n
	}
	appendBits(2, grainFieldPrime)
	appendBits(4, grainSboxPow)
	appendBits(12, fr.Bits)
	appendBits(12, uint64(width))
	appendBits(10, uint64(fullRounds))
	appendBits(10, uint64(partialRounds))
	appendBits(30, 1<<30-1)

	// discard the first 160 bits
	for i := 0; i < 20; i++ {
		g.loadNext8Bits()
		g.nextBit = grainStateBits
	}
	return g
}

func (g *grain) bit(i uint) uint8 {
	if g.state.Test(i) {
		return 1
	}
	return 0
}

func (g *grain) loadNext8Bits() {
	var newBits uint8
	for i := uint(0); i < 8; i++ {
		b := g.bit(i+62) ^ g.bit(i+51) ^ g.bit(i+38) ^ g.bit(i+23) ^ g.bit(i+13) ^ g.bit(i)
		newBits |= b << i
	}

	rotated := bitset.New(grainStateBits)
	for i := uint(0); i < grainStateBits; i++ {
		rotated.SetTo(i, g.state.Test((i+8)%grainStateBits))
	}
	g.state = rotated

	g.nextBit -= 8
	for i := uint(0); i < 8; i++ {
		g.state.SetTo(g.nextBit+i, (newBits>>i)&1 == 1)
	}
}

func (g *grain) nextRawBit() bool {
	if g.nextBit == grainStateBits {
		g.loadNext8Bits()
	}
	b := g.state.Test(g.nextBit)
	g.nextBit++
	return b
}

// next returns the next output bit of the self-shrinking generator.
func (g *grain) next() bool {
	for !g.nextRawBit() {
		g.nextRawBit()
	}
	return g.nextRawBit()
}

// nextInteger reads fr.Bits output bits, most significant first.
func (g *grain) nextInteger() *big.Int {
	var buf bytes.Buffer
	w := bitio.NewWriter(&buf)
	w.TryWriteBits(0, 8*fr.Bytes-fr.Bits)
	for i := 0; i < fr.Bits; i++ {
		w.TryWriteBool(g.next())
	}
	if err := w.Close(); err != nil {
		panic(err)
	}
	if w.TryError != nil {
		panic(w.TryError)
	}
	return new(big.Int).SetBytes(buf.Bytes())
}

// nextFieldElement samples a field element by rejection.
func (g *grain) nextFieldElement() fr.Element {
	q := fr.Modulus()
	for {
		v := g.nextInteger()
		if v.Cmp(q) < 0 {
			var e fr.Element
			e.SetBigInt(v)
			return e
		}
	}
}

// nextFieldElementWithoutRejection samples a field element reducing modulo q.
func (g *grain) nextFieldElementWithoutRejection() fr.Element {
	var e fr.Element
	e.SetBigInt(g.nextInteger())
	return e
}
