package poseidon

import (
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
)

// CapacityElement returns the domain separator of a constant-length message of the given
// length, placed in the first capacity word: length·2⁶⁴.
func CapacityElement(length int) fr.Element {
	var e fr.Element
	e.SetBigInt(new(big.Int).Lsh(big.NewInt(int64(length)), 64))
	return e
}

// PaddedLength returns the message length rounded up to a multiple of the rate.
func PaddedLength(rate, length int) int {
	return (length + rate - 1) / rate * rate
}

// Hash computes the constant-length sponge digest of message: the message is zero-padded
// to a multiple of the rate, absorbed one rate-sized chunk per permutation, and the first
// state word is returned.
func Hash(spec *Spec, message []fr.Element) (fr.Element, error) {
	if err := spec.Variant.CheckLength(len(message)); err != nil {
		return fr.Element{}, err
	}
	rate := spec.Rate()

	state := make([]fr.Element, spec.Width())
	state[rate] = CapacityElement(len(message))

	padded := make([]fr.Element, PaddedLength(rate, len(message)))
	copy(padded, message)
	for start := 0; start < len(padded); start += rate {
		for i := 0; i < rate; i++ {
			state[i].Add(&state[i], &padded[start+i])
		}
		spec.Permute(state)
	}
	return state[0], nil
}
