package protocol

import (
	"encoding/binary"
	"math/big"
	"testing"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	kzg "github.com/consensys/gnark-crypto/ecc/bn254/kzg"
	"github.com/consensys/gnark/backend/plonk"
	plonkbn254 "github.com/consensys/gnark/backend/plonk/bn254"
	"github.com/stretchr/testify/require"
)

const (
	g1Size = bn254.SizeOfG1AffineCompressed
	g2Size = bn254.SizeOfG2AffineCompressed
)

func testParams(t *testing.T, tau int64) *kzg.SRS {
	t.Helper()
	srs, err := kzg.NewSRS(35, big.NewInt(tau))
	require.NoError(t, err)
	return srs
}

func TestDecodeBoundsSlicePrefixes(t *testing.T) {
	proof, err := EncodeProof(plonk.NewProof(ecc.BN254))
	require.NoError(t, err)
	require.Len(t, proof, 328)
	vk, err := EncodeVerifyingKey(plonk.NewVerifyingKey(ecc.BN254))
	require.NoError(t, err)
	params, err := EncodeParams(&kzg.SRS{})
	require.NoError(t, err)

	decodeProof := func(b []byte) error { _, err := DecodeProof(b); return err }
	decodeVerifyingKey := func(b []byte) error { _, err := DecodeVerifyingKey(b); return err }
	decodeParams := func(b []byte) error { _, err := DecodeParams(b); return err }

	for _, tc := range []struct {
		name   string
		b      []byte
		at     int
		decode func([]byte) error
		kind   error
	}{
		{"claimed values", proof, 8 * g1Size, decodeProof, ErrProofDecodeFailure},
		{"bsb22 commitments", proof, len(proof) - 4, decodeProof, ErrProofDecodeFailure},
		{"qcp", vk, 8 + 3*fr.Bytes + 8 + 8*g1Size, decodeVerifyingKey, ErrVerifyingKeyDecodeFailure},
		{"commitment indexes", vk, len(vk) - 4, decodeVerifyingKey, ErrVerifyingKeyDecodeFailure},
		{"proving key points", params, 0, decodeParams, ErrParamsDecodeFailure},
	} {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, []byte{0, 0, 0, 0}, tc.b[tc.at:tc.at+4])
			for _, n := range []uint32{1 << 31, 0x7f7f7f7f, 0xffffffff} {
				b := append([]byte(nil), tc.b...)
				binary.BigEndian.PutUint32(b[tc.at:], n)
				err := tc.decode(b)
				require.ErrorIs(t, err, tc.kind)
				require.ErrorContains(t, err, "overruns")
			}
		})
	}
}

func TestDecodeProofSurvivesCorruption(t *testing.T) {
	proof, err := EncodeProof(plonk.NewProof(ecc.BN254))
	require.NoError(t, err)

	for i := range proof {
		b := append([]byte(nil), proof...)
		b[i] = 0x7f
		if _, err := DecodeProof(b); err != nil {
			require.ErrorIs(t, err, ErrProofDecodeFailure, "byte %d", i)
		}
	}
}

func TestDecodeParamsChecksSetup(t *testing.T) {
	srs := testParams(t, 42)
	b, err := EncodeParams(srs)
	require.NoError(t, err)
	got, err := DecodeParams(b)
	require.NoError(t, err)
	require.Equal(t, srs.Vk, got.Vk)

	// pairing lines sit at the end of the encoding
	for _, at := range []int{len(b) - linesSize, len(b) - linesSize/2, len(b) - 1} {
		tampered := append([]byte(nil), b...)
		tampered[at] ^= 0x01
		_, err := DecodeParams(tampered)
		require.ErrorIs(t, err, ErrParamsDecodeFailure, "byte %d", at)
	}

	swapped := *srs
	swapped.Pk.G1 = append(swapped.Pk.G1[:0:0], srs.Pk.G1...)
	swapped.Pk.G1[3], swapped.Pk.G1[4] = swapped.Pk.G1[4], swapped.Pk.G1[3]
	b, err = EncodeParams(&swapped)
	require.NoError(t, err)
	_, err = DecodeParams(b)
	require.ErrorIs(t, err, ErrParamsDecodeFailure)
	require.ErrorContains(t, err, "powers")

	shifted := *srs
	shifted.Pk.G1 = srs.Pk.G1[1:]
	b, err = EncodeParams(&shifted)
	require.NoError(t, err)
	_, err = DecodeParams(b)
	require.ErrorIs(t, err, ErrParamsDecodeFailure)
	require.ErrorContains(t, err, "generator")
}

func TestDecodeVerifyingKeyChecksLines(t *testing.T) {
	srs := testParams(t, 42)
	vk := &plonkbn254.VerifyingKey{Kzg: srs.Vk, NbPublicVariables: 1}
	b, err := EncodeVerifyingKey(vk)
	require.NoError(t, err)

	got, err := DecodeVerifyingKey(b)
	require.NoError(t, err)
	require.Equal(t, srs.Vk, got.(*plonkbn254.VerifyingKey).Kzg)
	require.NoError(t, checkSetup(srs, got))

	other := testParams(t, 43)
	require.Error(t, checkSetup(other, got))

	// the lines follow Qcp and the three KZG points
	start := 8 + 3*fr.Bytes + 8 + 8*g1Size + 4 + g1Size + 2*g2Size
	for _, at := range []int{start, start + linesSize/3, start + linesSize - 1} {
		tampered := append([]byte(nil), b...)
		tampered[at] ^= 0x01
		_, err := DecodeVerifyingKey(tampered)
		require.ErrorIs(t, err, ErrVerifyingKeyDecodeFailure, "byte %d", at)
		require.ErrorContains(t, err, "pairing lines")
	}
}

func FuzzDecodeProof(f *testing.F) {
	empty, err := EncodeProof(plonk.NewProof(ecc.BN254))
	if err != nil {
		f.Fatal(err)
	}
	f.Add(empty)
	f.Add([]byte{})
	f.Fuzz(func(t *testing.T, b []byte) {
		if _, err := DecodeProof(b); err != nil {
			require.ErrorIs(t, err, ErrProofDecodeFailure)
		}
	})
}
