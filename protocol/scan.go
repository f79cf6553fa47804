package protocol

import (
	"encoding/binary"

	"github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	kzg "github.com/consensys/gnark-crypto/ecc/bn254/kzg"
	"github.com/pkg/errors"
)

// metadata bits of a serialized point; both zero means uncompressed
const pointMask byte = 0b11 << 6

// linesSize is the raw size of the precomputed pairing lines of a KZG verifying key.
var linesSize = binary.Size(kzg.VerifyingKey{}.Lines)

// scanner walks an encoding the way the backend decoder reads it and rejects any
// slice length prefix that claims more elements than the remaining bytes can hold.
// The decoder allocates from those prefixes before reading a single element.
type scanner struct {
	b   []byte
	off int
	err error
}

func (s *scanner) skip(n int) {
	if s.err != nil {
		return
	}
	if n < 0 || len(s.b)-s.off < n {
		s.err = errors.Errorf("truncated at byte %d", s.off)
		return
	}
	s.off += n
}

func (s *scanner) point(compressed, uncompressed int) {
	if s.err != nil {
		return
	}
	if s.off >= len(s.b) {
		s.err = errors.Errorf("truncated at byte %d", s.off)
		return
	}
	if s.b[s.off]&pointMask == 0 {
		s.skip(uncompressed)
		return
	}
	s.skip(compressed)
}

func (s *scanner) g1() { s.point(bn254.SizeOfG1AffineCompressed, bn254.SizeOfG1AffineUncompressed) }
func (s *scanner) g2() { s.point(bn254.SizeOfG2AffineCompressed, bn254.SizeOfG2AffineUncompressed) }

// length reads a slice prefix whose elements take at least size bytes each.
func (s *scanner) length(size int) int {
	at := s.off
	s.skip(4)
	if s.err != nil {
		return 0
	}
	n := uint64(binary.BigEndian.Uint32(s.b[at:]))
	if n*uint64(size) > uint64(len(s.b)-s.off) {
		s.err = errors.Errorf("slice of %d elements at byte %d overruns the encoding", n, at)
		return 0
	}
	return int(n)
}

func (s *scanner) g1s() {
	for i, n := 0, s.length(bn254.SizeOfG1AffineCompressed); i < n; i++ {
		s.g1()
	}
}

func (s *scanner) frs()     { s.skip(s.length(fr.Bytes) * fr.Bytes) }
func (s *scanner) uint64s() { s.skip(s.length(8) * 8) }

// scanParams mirrors kzg.SRS.ReadFrom.
func scanParams(b []byte) error {
	s := &scanner{b: b}
	s.g1s() // Pk.G1
	s.g2()
	s.g2()
	s.g1()
	s.skip(linesSize)
	return s.err
}

// scanVerifyingKey mirrors the PLONK BN254 VerifyingKey.ReadFrom.
func scanVerifyingKey(b []byte) error {
	s := &scanner{b: b}
	// Size, SizeInv, Generator, NbPublicVariables, CosetShift
	s.skip(8 + fr.Bytes + fr.Bytes + 8 + fr.Bytes)
	// S, Ql, Qr, Qm, Qo, Qk
	for i := 0; i < 3+5; i++ {
		s.g1()
	}
	s.g1s() // Qcp
	s.g1()
	s.g2()
	s.g2()
	s.skip(linesSize)
	s.uint64s() // CommitmentConstraintIndexes
	return s.err
}

// scanProof mirrors the PLONK BN254 Proof.ReadFrom.
func scanProof(b []byte) error {
	s := &scanner{b: b}
	// LRO, Z, H, BatchedProof.H
	for i := 0; i < 3+1+3+1; i++ {
		s.g1()
	}
	s.frs() // BatchedProof.ClaimedValues
	s.g1()
	s.skip(fr.Bytes)
	s.g1s() // Bsb22Commitments
	return s.err
}
