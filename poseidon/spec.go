// Package poseidon implements the Poseidon permutation and its constant-length sponge
// over the BN254 scalar field.
//
// Round constants and MDS matrices are derived with the Grain LFSR described in the
// Poseidon paper, seeded only by the permutation parameters, so that a prover and a
// verifier obtain bit-identical constants without exchanging them.
package poseidon

import (
	"fmt"
	"strings"
	"sync"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/pkg/errors"
)

const (
	// FullRounds is the total number of full rounds, split evenly before and after the partial rounds.
	FullRounds = 8
	// PartialRounds is the number of rounds applying the S-box to the first state word only.
	PartialRounds = 56
	// Alpha is the S-box exponent.
	Alpha = 5
	// SecureMDS is the number of Cauchy candidates skipped before the MDS matrix is accepted.
	SecureMDS = 0
)

var (
	ErrUnknownVariant = errors.New("unknown poseidon variant")
	ErrMessageLength  = errors.New("invalid message length")
)

// Variant selects the state width and absorption rate of the permutation.
type Variant uint8

const (
	W3R2 Variant = iota + 1
	W9R8
	W12R11
)

// Variants lists every supported variant.
var Variants = []Variant{W3R2, W9R8, W12R11}

func (v Variant) Width() int {
	switch v {
	case W3R2:
		return 3
	case W9R8:
		return 9
	case W12R11:
		return 12
	}
	return 0
}

func (v Variant) Rate() int {
	if w := v.Width(); w > 0 {
		return w - 1
	}
	return 0
}

func (v Variant) Valid() bool { return v.Width() != 0 }

func (v Variant) String() string {
	if !v.Valid() {
		return fmt.Sprintf("Variant(%d)", uint8(v))
	}
	return fmt.Sprintf("w%dr%d", v.Width(), v.Rate())
}

// ParseVariant parses the textual form produced by Variant.String.
func ParseVariant(s string) (Variant, error) {
	for _, v := range Variants {
		if strings.EqualFold(s, v.String()) {
			return v, nil
		}
	}
	return 0, errors.Wrapf(ErrUnknownVariant, "%q", s)
}

// CheckLength returns an error if a message of the given length cannot be absorbed
// in a single constant-length sponge call.
func (v Variant) CheckLength(length int) error {
	if !v.Valid() {
		return ErrUnknownVariant
	}
	if length < 1 || length > v.Rate() {
		return errors.Wrapf(ErrMessageLength, "length %d not in [1, %d] for %s", length, v.Rate(), v)
	}
	return nil
}

// Spec holds the algebraic parameters of one permutation instance.
type Spec struct {
	Variant        Variant
	FullRounds     int
	PartialRounds  int
	RoundConstants [][]fr.Element
	MDS            [][]fr.Element
	MDSInv         [][]fr.Element
}

// NewSpec generates the constants of the given variant from scratch.
func NewSpec(v Variant) (*Spec, error) {
	if !v.Valid() {
		return nil, ErrUnknownVariant
	}
	width := v.Width()
	g := newGrain(width, FullRounds, PartialRounds)

	rc := make([][]fr.Element, FullRounds+PartialRounds)
	for r := range rc {
		rc[r] = make([]fr.Element, width)
		for i := range rc[r] {
			rc[r][i] = g.nextFieldElement()
		}
	}
	mds, mdsInv := generateMDS(g, width, SecureMDS)

	return &Spec{
		Variant:        v,
		FullRounds:     FullRounds,
		PartialRounds:  PartialRounds,
		RoundConstants: rc,
		MDS:            mds,
		MDSInv:         mdsInv,
	}, nil
}

var specs sync.Map // Variant -> *lazySpec

type lazySpec struct {
	once sync.Once
	spec *Spec
	err  error
}

// SpecFor returns the process-wide spec of v, generating it on first use.
// The returned spec must not be modified.
func SpecFor(v Variant) (*Spec, error) {
	if !v.Valid() {
		return nil, ErrUnknownVariant
	}
	l, _ := specs.LoadOrStore(v, new(lazySpec))
	ls := l.(*lazySpec)
	ls.once.Do(func() {
		ls.spec, ls.err = NewSpec(v)
	})
	return ls.spec, ls.err
}

func (s *Spec) Width() int { return s.Variant.Width() }

func (s *Spec) Rate() int { return s.Variant.Rate() }

// Sbox computes x⁵.
func Sbox(x *fr.Element) fr.Element {
	var x2, x4, res fr.Element
	x2.Square(x)
	x4.Square(&x2)
	res.Mul(&x4, x)
	return res
}

// IsFullRound reports whether round r applies the S-box to every state word.
func (s *Spec) IsFullRound(r int) bool {
	half := s.FullRounds / 2
	return r < half || r >= half+s.PartialRounds
}

func (s *Spec) NbRounds() int { return s.FullRounds + s.PartialRounds }

// Permute applies the permutation to state in place.
func (s *Spec) Permute(state []fr.Element) {
	if len(state) != s.Width() {
		panic(fmt.Sprintf("poseidon: state has %d words, %s needs %d", len(state), s.Variant, s.Width()))
	}
	for r := 0; r < s.NbRounds(); r++ {
		for i := range state {
			state[i].Add(&state[i], &s.RoundConstants[r][i])
		}
		if s.IsFullRound(r) {
			for i := range state {
				state[i] = Sbox(&state[i])
			}
		} else {
			state[0] = Sbox(&state[0])
		}
		s.mix(state)
	}
}

func (s *Spec) mix(state []fr.Element) {
	res := make([]fr.Element, len(state))
	var t fr.Element
	for i := range res {
		for j := range state {
			t.Mul(&s.MDS[i][j], &state[j])
			res[i].Add(&res[i], &t)
		}
	}
	copy(state, res)
}
