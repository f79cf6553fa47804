package protocol

import (
	"hash"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	kzg "github.com/consensys/gnark-crypto/ecc/bn254/kzg"
	"github.com/consensys/gnark/backend"
	"github.com/consensys/gnark/backend/plonk"
	plonkbn254 "github.com/consensys/gnark/backend/plonk/bn254"
	"github.com/consensys/gnark/backend/witness"
	"github.com/pkg/errors"
	"golang.org/x/crypto/blake2b"
)

// newTranscriptHash returns the Fiat-Shamir challenge hash.
func newTranscriptHash() hash.Hash {
	h, err := blake2b.New256(nil)
	if err != nil {
		panic(err)
	}
	return h
}

// ProverOptions returns the options every proof must be produced with.
func ProverOptions() []backend.ProverOption {
	return []backend.ProverOption{
		backend.WithProverChallengeHashFunction(newTranscriptHash()),
	}
}

// VerifierOptions mirrors ProverOptions.
func VerifierOptions() []backend.VerifierOption {
	return []backend.VerifierOption{
		backend.WithVerifierChallengeHashFunction(newTranscriptHash()),
	}
}

// PublicWitness returns the single public input [[output]].
func PublicWitness(output fr.Element) (witness.Witness, error) {
	w, err := witness.New(ecc.BN254.ScalarField())
	if err != nil {
		return nil, err
	}
	values := make(chan any, 1)
	values <- output
	close(values)
	if err := w.Fill(1, 0, values); err != nil {
		return nil, err
	}
	return w, nil
}

// Verify decodes the four artifacts and checks the proof. The output length is
// checked before anything else is decoded.
func Verify(params, vk, proof, output []byte) error {
	out, err := DecodeOutput(output)
	if err != nil {
		return err
	}
	srs, err := DecodeParams(params)
	if err != nil {
		return err
	}
	v, err := DecodeVerifyingKey(vk)
	if err != nil {
		return err
	}
	p, err := DecodeProof(proof)
	if err != nil {
		return err
	}
	return VerifyDecoded(srs, v, p, out)
}

// VerifyDecoded checks proof against vk for the public output. vk must have been
// derived from srs.
func VerifyDecoded(srs *kzg.SRS, vk plonk.VerifyingKey, proof plonk.Proof, output fr.Element) error {
	if err := checkSetup(srs, vk); err != nil {
		return newError(ProofVerificationFailure, err)
	}
	w, err := PublicWitness(output)
	if err != nil {
		return newError(ProofVerificationFailure, err)
	}
	if err := plonk.Verify(proof, vk, w, VerifierOptions()...); err != nil {
		return newError(ProofVerificationFailure, err)
	}
	return nil
}

func checkSetup(srs *kzg.SRS, vk plonk.VerifyingKey) error {
	bvk, ok := vk.(*plonkbn254.VerifyingKey)
	if !ok {
		return errors.Errorf("unexpected verifying key type %T", vk)
	}
	// points and pairing lines alike
	if srs.Vk != bvk.Kzg {
		return errors.New("verifying key was not derived from these params")
	}
	if bvk.NbPublicVariables != 1 {
		return errors.Errorf("verifying key has %d public inputs, want 1", bvk.NbPublicVariables)
	}
	return nil
}
