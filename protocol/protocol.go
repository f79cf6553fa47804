// Package protocol holds the byte layout shared by the prover and the on-chain verifier:
// size bounds, field element packing, backend-native encoders and decoders for the
// proving parameters, verifying key and proof, and single-instance verification.
package protocol

import "github.com/zkpreimage/poseidon-preimage/poseidon"

// K is the log2 of the number of rows available to the circuit.
const K = 10

const (
	MaxParamsSize       = 128 << 10
	MaxVerifyingKeySize = 64 << 10
	MaxProofSize        = 32 << 10
	OutputSize          = 32

	// ChunkSize is the number of preimage bytes packed into one message word.
	ChunkSize = 32
)

// Witness slots read by the on-chain entry point.
const (
	SlotParams = iota
	SlotVerifyingKey
	SlotProof
	SlotOutput

	NbSlots
)

// Deployed circuit shape.
const (
	DefaultVariant       = poseidon.W3R2
	DefaultMessageLength = 2
)

// SlotBound returns the maximum size of the witness in slot, or -1 for an unknown slot.
func SlotBound(slot int) int {
	switch slot {
	case SlotParams:
		return MaxParamsSize
	case SlotVerifyingKey:
		return MaxVerifyingKeySize
	case SlotProof:
		return MaxProofSize
	case SlotOutput:
		return OutputSize
	}
	return -1
}
