// Package poseidon provides a ZKP-circuit Poseidon permutation and constant-length sponge.
//
// The gadget reproduces, gate by gate, the native permutation of
// [github.com/zkpreimage/poseidon-preimage/poseidon]: the same round constants, the same
// MDS matrix and the same domain separation, so that a digest computed off-circuit can be
// bound to a public input.
package poseidon
