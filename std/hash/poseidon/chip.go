package poseidon

import (
	"math/big"

	"github.com/consensys/gnark/frontend"
	"github.com/pkg/errors"

	native "github.com/zkpreimage/poseidon-preimage/poseidon"
)

// Chip lays out the permutation gates of one Poseidon variant.
type Chip struct {
	api  frontend.API
	spec *native.Spec

	rc  [][]*big.Int
	mds [][]*big.Int
}

// NewChip returns a chip bound to api using the process-wide constants of v.
func NewChip(api frontend.API, v native.Variant) (*Chip, error) {
	spec, err := native.SpecFor(v)
	if err != nil {
		return nil, err
	}
	c := &Chip{
		api:  api,
		spec: spec,
		rc:   make([][]*big.Int, len(spec.RoundConstants)),
		mds:  make([][]*big.Int, len(spec.MDS)),
	}
	for r, row := range spec.RoundConstants {
		c.rc[r] = make([]*big.Int, len(row))
		for i := range row {
			c.rc[r][i] = row[i].BigInt(new(big.Int))
		}
	}
	for i, row := range spec.MDS {
		c.mds[i] = make([]*big.Int, len(row))
		for j := range row {
			c.mds[i][j] = row[j].BigInt(new(big.Int))
		}
	}
	return c, nil
}

func (c *Chip) Spec() *native.Spec { return c.spec }

// Permute returns the permuted state. The round constants of round r+1 are folded into the
// linear layer of round r.
func (c *Chip) Permute(state []frontend.Variable) ([]frontend.Variable, error) {
	width := c.spec.Width()
	if len(state) != width {
		return nil, errors.Errorf("poseidon: state has %d words, %s needs %d", len(state), c.spec.Variant, width)
	}

	s := make([]frontend.Variable, width)
	for i := range s {
		s[i] = c.api.Add(state[i], c.rc[0][i])
	}

	nbRounds := c.spec.NbRounds()
	for r := 0; r < nbRounds; r++ {
		if c.spec.IsFullRound(r) {
			for i := range s {
				s[i] = c.sbox(s[i])
			}
		} else {
			s[0] = c.sbox(s[0])
		}

		var next []*big.Int
		if r+1 < nbRounds {
			next = c.rc[r+1]
		}
		s = c.mix(s, next)
	}
	return s, nil
}

func (c *Chip) sbox(x frontend.Variable) frontend.Variable {
	x2 := c.api.Mul(x, x)
	x4 := c.api.Mul(x2, x2)
	return c.api.Mul(x4, x)
}

// mix multiplies by the MDS matrix and adds rc when it is not nil.
func (c *Chip) mix(s []frontend.Variable, rc []*big.Int) []frontend.Variable {
	res := make([]frontend.Variable, len(s))
	terms := make([]frontend.Variable, len(s), len(s)+1)
	for i := range res {
		terms = terms[:len(s)]
		for j := range s {
			terms[j] = c.api.Mul(c.mds[i][j], s[j])
		}
		if rc != nil {
			terms = append(terms, rc[i])
		}
		res[i] = c.api.Add(terms[0], terms[1], terms[2:]...)
	}
	return res
}
