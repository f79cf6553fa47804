package protocol

import (
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/pkg/errors"
)

const limbBytes = 8

// EncodeOutput writes e as four little-endian 64-bit limbs.
func EncodeOutput(e fr.Element) [OutputSize]byte {
	var res [OutputSize]byte
	limbs := e.Bits()
	for i := range res {
		res[i] = byte(limbs[i/limbBytes] >> (uint(i%limbBytes) * 8))
	}
	return res
}

// DecodeOutput reads the field element written by EncodeOutput. Values above the
// modulus are reduced.
func DecodeOutput(b []byte) (fr.Element, error) {
	if len(b) != OutputSize {
		return fr.Element{}, newError(OutputLengthMismatch, errors.Errorf("got %d bytes, want %d", len(b), OutputSize))
	}
	var limbs [fr.Limbs]uint64
	for i, v := range b {
		limbs[i/limbBytes] |= uint64(v) << (uint(i%limbBytes) * 8)
	}
	return fromLimbs(limbs[:]), nil
}

// PackMessage splits preimage into ChunkSize-byte chunks and packs each chunk into one
// word, byte i of a chunk landing in limb i/8 at bit (i%8)*8. Words past the last
// chunk are zero.
func PackMessage(preimage []byte, length int) ([]fr.Element, error) {
	if maxLen := length * ChunkSize; len(preimage) > maxLen {
		return nil, newError(PreimageTooLong, errors.Errorf("preimage is %d bytes, max %d", len(preimage), maxLen))
	}
	res := make([]fr.Element, length)
	for i := 0; i*ChunkSize < len(preimage); i++ {
		end := (i + 1) * ChunkSize
		if end > len(preimage) {
			end = len(preimage)
		}
		chunk := preimage[i*ChunkSize : end]

		limbs := make([]uint64, (len(chunk)+limbBytes-1)/limbBytes)
		for j, v := range chunk {
			limbs[j/limbBytes] |= uint64(v) << (uint(j%limbBytes) * 8)
		}
		res[i] = fromLimbs(limbs)
	}
	return res, nil
}

// fromLimbs reduces the little-endian limbs modulo the field order.
func fromLimbs(limbs []uint64) fr.Element {
	var x, l big.Int
	for i := len(limbs) - 1; i >= 0; i-- {
		x.Lsh(&x, 64)
		x.Or(&x, l.SetUint64(limbs[i]))
	}
	var e fr.Element
	e.SetBigInt(&x)
	return e
}
