// Package test holds the end-to-end tests: prove, encode, and verify through the
// on-chain entry point.
package test

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/consensys/gnark-crypto/ecc"
	gnarktest "github.com/consensys/gnark/test"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/zkpreimage/poseidon-preimage/circuit"
	"github.com/zkpreimage/poseidon-preimage/onchain"
	"github.com/zkpreimage/poseidon-preimage/poseidon"
	"github.com/zkpreimage/poseidon-preimage/protocol"
	"github.com/zkpreimage/poseidon-preimage/prover"
)

var (
	helloOnce   sync.Once
	helloResult *prover.Result
	helloErr    error
)

func hello(t *testing.T) *prover.Result {
	t.Helper()
	helloOnce.Do(func() {
		helloResult, helloErr = prover.Prove([]byte("hello"), protocol.DefaultVariant, protocol.DefaultMessageLength)
	})
	require.NoError(t, helloErr)
	return helloResult
}

func slots(a *protocol.Artifacts) onchain.MemorySource {
	return onchain.MemorySource{a.Params, a.VerifyingKey, a.Proof, a.Output[:]}
}

func runEntryPoint(src onchain.Source) (int8, error) {
	e := onchain.New(src, onchain.WithLogger(zerolog.Nop()))
	code := e.Run()
	return code, e.Err()
}

func TestHelloRoundTrip(t *testing.T) {
	res := hello(t)
	a := res.Artifacts

	require.NoError(t, protocol.Verify(a.Params, a.VerifyingKey, a.Proof, a.Output[:]))

	code, err := runEntryPoint(slots(a))
	require.NoError(t, err)
	require.Equal(t, onchain.ExitSuccess, code)

	dir := t.TempDir()
	names := []string{"params.bin", "vk.bin", "proof.bin", "output.bin"}
	for i, name := range names {
		data, err := a.Slot(i)
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), data, 0o600))
	}
	code, err = runEntryPoint(onchain.NewFileSource(
		filepath.Join(dir, names[0]), filepath.Join(dir, names[1]),
		filepath.Join(dir, names[2]), filepath.Join(dir, names[3]),
	))
	require.NoError(t, err)
	require.Equal(t, onchain.ExitSuccess, code)

	data, err := res.Bundle().Marshal()
	require.NoError(t, err)
	b, err := protocol.UnmarshalBundle(data)
	require.NoError(t, err)
	code, err = runEntryPoint(onchain.BundleSource{Bundle: b})
	require.NoError(t, err)
	require.Equal(t, onchain.ExitSuccess, code)
}

func TestHelloDigest(t *testing.T) {
	res := hello(t)

	// "hello" lands little-endian in word 0, word 1 is zero
	message, err := protocol.PackMessage([]byte("hello"), 2)
	require.NoError(t, err)
	require.Equal(t, uint64(0x6f6c6c6568), message[0].Bits()[0])
	require.True(t, message[1].IsZero())

	spec, err := poseidon.SpecFor(poseidon.W3R2)
	require.NoError(t, err)
	digest, err := poseidon.Hash(spec, message)
	require.NoError(t, err)
	require.True(t, digest.Equal(&res.Digest))

	out, err := protocol.DecodeOutput(res.Artifacts.Output[:])
	require.NoError(t, err)
	require.True(t, out.Equal(&digest))

	empty, err := circuit.New(poseidon.W3R2, 2)
	require.NoError(t, err)
	filled, err := empty.Assign(message, digest)
	require.NoError(t, err)
	require.NoError(t, gnarktest.IsSolved(empty, filled, ecc.BN254.ScalarField()))

	// the circuit exposes exactly the public input the verifier rebuilds
	fromCircuit, err := filled.PublicWitness()
	require.NoError(t, err)
	fromOutput, err := protocol.PublicWitness(out)
	require.NoError(t, err)
	a, err := fromCircuit.MarshalBinary()
	require.NoError(t, err)
	b, err := fromOutput.MarshalBinary()
	require.NoError(t, err)
	require.Equal(t, a, b)
}

// positions samples n offsets spread over [0, size), including both ends.
func positions(size, n int) []int {
	if size <= n {
		res := make([]int, size)
		for i := range res {
			res[i] = i
		}
		return res
	}
	res := make([]int, n)
	for i := range res {
		res[i] = i * (size - 1) / (n - 1)
	}
	return res
}

func TestTamperSensitivity(t *testing.T) {
	a := hello(t).Artifacts

	for _, tc := range []struct {
		name string
		slot int
		n    int
	}{
		{"output", protocol.SlotOutput, protocol.OutputSize},
		{"proof", protocol.SlotProof, 24},
		{"vk", protocol.SlotVerifyingKey, 24},
		{"params", protocol.SlotParams, 24},
	} {
		t.Run(tc.name, func(t *testing.T) {
			orig, err := a.Slot(tc.slot)
			require.NoError(t, err)
			for _, pos := range positions(len(orig), tc.n) {
				src := slots(a)
				tampered := append([]byte(nil), orig...)
				tampered[pos] ^= 0x01
				src[tc.slot] = tampered

				code, err := runEntryPoint(src)
				require.Equal(t, onchain.ExitFailure, code, "byte %d of %s", pos, tc.name)
				require.Error(t, err)
			}
		})
	}
}

// sweep flips every byte of orig in turn and expects verify to reject each copy.
func sweep(t *testing.T, orig []byte, verify func([]byte) error) {
	t.Helper()
	tampered := append([]byte(nil), orig...)
	for i := range tampered {
		tampered[i] ^= 0x01
		err := verify(tampered)
		tampered[i] ^= 0x01
		if err == nil {
			t.Fatalf("byte %d of %d flipped and still verifies", i, len(orig))
		}
	}
}

func TestTamperEveryByte(t *testing.T) {
	if testing.Short() {
		t.Skip("exhaustive sweep")
	}
	a := hello(t).Artifacts

	srs, err := protocol.DecodeParams(a.Params)
	require.NoError(t, err)
	vk, err := protocol.DecodeVerifyingKey(a.VerifyingKey)
	require.NoError(t, err)
	proof, err := protocol.DecodeProof(a.Proof)
	require.NoError(t, err)
	out, err := protocol.DecodeOutput(a.Output[:])
	require.NoError(t, err)
	require.NoError(t, protocol.VerifyDecoded(srs, vk, proof, out))

	t.Run("proof", func(t *testing.T) {
		sweep(t, a.Proof, func(b []byte) error {
			p, err := protocol.DecodeProof(b)
			if err != nil {
				require.ErrorIs(t, err, protocol.ErrProofDecodeFailure)
				return err
			}
			return protocol.VerifyDecoded(srs, vk, p, out)
		})
	})
	t.Run("vk", func(t *testing.T) {
		sweep(t, a.VerifyingKey, func(b []byte) error {
			v, err := protocol.DecodeVerifyingKey(b)
			if err != nil {
				require.ErrorIs(t, err, protocol.ErrVerifyingKeyDecodeFailure)
				return err
			}
			return protocol.VerifyDecoded(srs, v, proof, out)
		})
	})
}

func TestOutputLengthGuard(t *testing.T) {
	a := hello(t).Artifacts
	junk := []byte{1, 2, 3}

	for _, n := range []int{0, 1, 31} {
		output := a.Output[:n]

		err := protocol.Verify(a.Params, a.VerifyingKey, a.Proof, output)
		require.ErrorIs(t, err, protocol.ErrOutputLengthMismatch)
		err = protocol.Verify(junk, junk, junk, output)
		require.ErrorIs(t, err, protocol.ErrOutputLengthMismatch)

		src := slots(a)
		src[protocol.SlotOutput] = output
		code, err := runEntryPoint(src)
		require.Equal(t, onchain.ExitFailure, code)
		require.ErrorIs(t, err, protocol.ErrOutputLengthMismatch)
	}

	// longer outputs do not fit the output buffer
	src := slots(a)
	src[protocol.SlotOutput] = append(a.Output[:], 0)
	code, err := runEntryPoint(src)
	require.Equal(t, onchain.ExitFailure, code)
	require.ErrorIs(t, err, protocol.ErrWitnessLoadFailure)
	require.ErrorIs(t, protocol.Verify(a.Params, a.VerifyingKey, a.Proof, src[protocol.SlotOutput]), protocol.ErrOutputLengthMismatch)
}

func TestOversizePreimage(t *testing.T) {
	res, err := prover.Prove(make([]byte, 2*protocol.ChunkSize+1), protocol.DefaultVariant, protocol.DefaultMessageLength)
	require.ErrorIs(t, err, protocol.ErrPreimageTooLong)
	require.Nil(t, res)
}

func TestFullPreimage(t *testing.T) {
	first := hello(t)

	preimage := make([]byte, 2*protocol.ChunkSize)
	for i := range preimage {
		preimage[i] = byte(255 - i)
	}
	res, err := prover.Prove(preimage, protocol.DefaultVariant, protocol.DefaultMessageLength,
		prover.WithParams(first.Artifacts.Params), prover.WithSelfCheck(false))
	require.NoError(t, err)

	code, err := runEntryPoint(slots(res.Artifacts))
	require.NoError(t, err)
	require.Equal(t, onchain.ExitSuccess, code)

	// a valid proof does not attest another session's output
	src := slots(res.Artifacts)
	src[protocol.SlotOutput] = first.Artifacts.Output[:]
	code, err = runEntryPoint(src)
	require.Equal(t, onchain.ExitFailure, code)
	require.ErrorIs(t, err, protocol.ErrProofVerificationFailure)
}

func TestForeignParams(t *testing.T) {
	first := hello(t)

	other, err := prover.Prove([]byte("hello"), protocol.DefaultVariant, protocol.DefaultMessageLength)
	require.NoError(t, err)
	require.NotEqual(t, first.Artifacts.Params, other.Artifacts.Params)
	require.Equal(t, first.Artifacts.Output, other.Artifacts.Output)

	src := slots(first.Artifacts)
	src[protocol.SlotVerifyingKey] = other.Artifacts.VerifyingKey
	code, err := runEntryPoint(src)
	require.Equal(t, onchain.ExitFailure, code)
	require.ErrorIs(t, err, protocol.ErrProofVerificationFailure)

	src = slots(first.Artifacts)
	src[protocol.SlotProof] = other.Artifacts.Proof
	code, _ = runEntryPoint(src)
	require.Equal(t, onchain.ExitFailure, code)
}

func TestConcurrentVerifiers(t *testing.T) {
	a := hello(t).Artifacts

	var wg sync.WaitGroup
	codes := make([]int8, 4)
	for i := range codes {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			codes[i], _ = runEntryPoint(slots(a))
		}(i)
	}
	wg.Wait()
	for _, c := range codes {
		require.Equal(t, onchain.ExitSuccess, c)
	}
}
