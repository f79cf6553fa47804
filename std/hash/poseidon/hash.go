package poseidon

import (
	"math/big"

	"github.com/consensys/gnark/frontend"
	"github.com/pkg/errors"

	native "github.com/zkpreimage/poseidon-preimage/poseidon"
)

// Hasher is the constant-length Poseidon sponge. The message length is fixed when the
// hasher is created and is part of the domain separation.
type Hasher struct {
	chip   *Chip
	length int
	data   []frontend.Variable
}

// NewHasher returns a sponge hashing messages of exactly length words.
func NewHasher(api frontend.API, v native.Variant, length int) (*Hasher, error) {
	if err := v.CheckLength(length); err != nil {
		return nil, err
	}
	chip, err := NewChip(api, v)
	if err != nil {
		return nil, err
	}
	return &Hasher{chip: chip, length: length}, nil
}

// NewPoseidon returns the default sponge: width 3, rate 2, two-word messages.
func NewPoseidon(api frontend.API) *Hasher {
	h, err := NewHasher(api, native.W3R2, 2)
	if err != nil {
		panic(err)
	}
	return h
}

func (h *Hasher) Write(data ...frontend.Variable) {
	h.data = append(h.data, data...)
}

func (h *Hasher) Reset() {
	h.data = nil
}

// Sum hashes the words written so far. It panics if their number differs from the
// configured length.
func (h *Hasher) Sum() frontend.Variable {
	res, err := h.Hash(h.data)
	if err != nil {
		panic(err)
	}
	return res
}

// Hash absorbs message and returns the first word of the final state.
func (h *Hasher) Hash(message []frontend.Variable) (frontend.Variable, error) {
	if len(message) != h.length {
		return nil, errors.Wrapf(native.ErrMessageLength, "got %d words, hasher expects %d", len(message), h.length)
	}
	api := h.chip.api
	spec := h.chip.spec
	rate := spec.Rate()

	state := make([]frontend.Variable, spec.Width())
	for i := range state {
		state[i] = 0
	}
	capacity := native.CapacityElement(h.length)
	state[rate] = capacity.BigInt(new(big.Int))

	padded := make([]frontend.Variable, native.PaddedLength(rate, h.length))
	copy(padded, message)
	for start := 0; start < len(padded); start += rate {
		for i := 0; i < rate; i++ {
			if w := padded[start+i]; w != nil {
				state[i] = api.Add(state[i], w)
			}
		}
		var err error
		if state, err = h.chip.Permute(state); err != nil {
			return nil, err
		}
	}
	return state[0], nil
}
