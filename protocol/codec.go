package protocol

import (
	"bytes"
	"io"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	kzg "github.com/consensys/gnark-crypto/ecc/bn254/kzg"
	"github.com/consensys/gnark/backend/plonk"
	plonkbn254 "github.com/consensys/gnark/backend/plonk/bn254"
	"github.com/pkg/errors"
)

func encode(w io.WriterTo, bound int, kind Kind) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := w.WriteTo(&buf); err != nil {
		return nil, newError(kind, err)
	}
	if buf.Len() > bound {
		return nil, newError(kind, errors.Errorf("encoded size %d exceeds %d", buf.Len(), bound))
	}
	return buf.Bytes(), nil
}

// decode reads r from b, which must be consumed entirely. scan runs first so that no
// length prefix in b reaches the backend decoder unbounded.
func decode(b []byte, bound int, scan func([]byte) error, r io.ReaderFrom, kind Kind) error {
	if len(b) > bound {
		return newError(kind, errors.Errorf("%d bytes exceeds %d", len(b), bound))
	}
	if err := scan(b); err != nil {
		return newError(kind, err)
	}
	n, err := r.ReadFrom(bytes.NewReader(b))
	if err != nil {
		return newError(kind, err)
	}
	if n != int64(len(b)) {
		return newError(kind, errors.Errorf("%d trailing bytes", int64(len(b))-n))
	}
	return nil
}

// EncodeParams writes the KZG setup in canonical (compressed) form.
func EncodeParams(srs *kzg.SRS) ([]byte, error) {
	return encode(srs, MaxParamsSize, ParamsDecodeFailure)
}

// DecodeParams reads a KZG setup and checks that its points are consecutive powers of
// the secret its verifying key commits to.
func DecodeParams(b []byte) (*kzg.SRS, error) {
	var srs kzg.SRS
	if err := decode(b, MaxParamsSize, scanParams, &srs, ParamsDecodeFailure); err != nil {
		return nil, err
	}
	if len(srs.Pk.G1) == 0 {
		return nil, newError(ParamsDecodeFailure, errors.New("empty setup"))
	}
	if err := checkLines(&srs.Vk); err != nil {
		return nil, newError(ParamsDecodeFailure, err)
	}
	if err := checkPowers(&srs); err != nil {
		return nil, newError(ParamsDecodeFailure, err)
	}
	return &srs, nil
}

func EncodeVerifyingKey(vk plonk.VerifyingKey) ([]byte, error) {
	return encode(vk, MaxVerifyingKeySize, VerifyingKeyDecodeFailure)
}

func DecodeVerifyingKey(b []byte) (plonk.VerifyingKey, error) {
	vk := &plonkbn254.VerifyingKey{}
	if err := decode(b, MaxVerifyingKeySize, scanVerifyingKey, vk, VerifyingKeyDecodeFailure); err != nil {
		return nil, err
	}
	if err := checkLines(&vk.Kzg); err != nil {
		return nil, newError(VerifyingKeyDecodeFailure, err)
	}
	return vk, nil
}

func EncodeProof(proof plonk.Proof) ([]byte, error) {
	return encode(proof, MaxProofSize, ProofDecodeFailure)
}

func DecodeProof(b []byte) (plonk.Proof, error) {
	proof := plonk.NewProof(ecc.BN254)
	if err := decode(b, MaxProofSize, scanProof, proof, ProofDecodeFailure); err != nil {
		return nil, err
	}
	return proof, nil
}

// checkLines rejects a KZG verifying key whose precomputed pairing lines were not
// derived from its G2 points. The encoding carries both.
func checkLines(vk *kzg.VerifyingKey) error {
	for i := range vk.G2 {
		if vk.Lines[i] != bn254.PrecomputeLines(vk.G2[i]) {
			return errors.Errorf("pairing lines of G2[%d] do not match the point", i)
		}
	}
	return nil
}

// checkPowers tests e(Σ rᵢ·G1[i+1], G2[0]) = e(Σ rᵢ·G1[i], G2[1]) for random rᵢ, so that
// every point of the proving key is bound to the verifying key.
func checkPowers(srs *kzg.SRS) error {
	g1 := srs.Pk.G1
	if !g1[0].Equal(&srs.Vk.G1) {
		return errors.New("first point is not the committed generator")
	}
	if len(g1) == 1 {
		return nil
	}
	r := make([]fr.Element, len(g1)-1)
	for i := range r {
		if _, err := r[i].SetRandom(); err != nil {
			return err
		}
	}
	var hi, lo bn254.G1Affine
	if _, err := hi.MultiExp(g1[1:], r, ecc.MultiExpConfig{}); err != nil {
		return err
	}
	if _, err := lo.MultiExp(g1[:len(g1)-1], r, ecc.MultiExpConfig{}); err != nil {
		return err
	}
	lo.Neg(&lo)
	ok, err := bn254.PairingCheck([]bn254.G1Affine{hi, lo}, []bn254.G2Affine{srs.Vk.G2[0], srs.Vk.G2[1]})
	if err != nil {
		return err
	}
	if !ok {
		return errors.New("points are not consecutive powers of the committed secret")
	}
	return nil
}
