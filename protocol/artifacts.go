package protocol

import (
	"github.com/blang/semver/v4"
	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/zkpreimage/poseidon-preimage/poseidon"
)

// Artifacts are the four byte strings of one proving session, in slot order.
type Artifacts struct {
	Params       []byte
	VerifyingKey []byte
	Proof        []byte
	Output       [OutputSize]byte
}

// Slot returns the bytes carried in witness slot i.
func (a *Artifacts) Slot(i int) ([]byte, error) {
	switch i {
	case SlotParams:
		return a.Params, nil
	case SlotVerifyingKey:
		return a.VerifyingKey, nil
	case SlotProof:
		return a.Proof, nil
	case SlotOutput:
		return a.Output[:], nil
	}
	return nil, errors.Errorf("no witness slot %d", i)
}

func (a *Artifacts) Verify() error {
	return Verify(a.Params, a.VerifyingKey, a.Proof, a.Output[:])
}

// BundleVersion is the version written into new bundles. Bundles are readable when
// their major version matches.
var BundleVersion = semver.MustParse("1.0.0")

var errIncompatibleBundle = errors.New("incompatible bundle version")

// Bundle carries the artifacts of a session to the execution harness.
type Bundle struct {
	Version      string `cbor:"1,keyasint"`
	Session      string `cbor:"2,keyasint"`
	Variant      string `cbor:"3,keyasint"`
	Length       int    `cbor:"4,keyasint"`
	Params       []byte `cbor:"5,keyasint"`
	VerifyingKey []byte `cbor:"6,keyasint"`
	Proof        []byte `cbor:"7,keyasint"`
	Output       []byte `cbor:"8,keyasint"`
}

func NewBundle(a *Artifacts, session uuid.UUID, v poseidon.Variant, length int) *Bundle {
	return &Bundle{
		Version:      BundleVersion.String(),
		Session:      session.String(),
		Variant:      v.String(),
		Length:       length,
		Params:       a.Params,
		VerifyingKey: a.VerifyingKey,
		Proof:        a.Proof,
		Output:       append([]byte(nil), a.Output[:]...),
	}
}

var (
	bundleEncMode cbor.EncMode
	bundleDecMode cbor.DecMode
)

func init() {
	var err error
	if bundleEncMode, err = cbor.CoreDetEncOptions().EncMode(); err != nil {
		panic(err)
	}
	bundleDecMode, err = cbor.DecOptions{
		DupMapKey:         cbor.DupMapKeyEnforcedAPF,
		MaxNestedLevels:   4,
		MaxMapPairs:       16,
		IndefLength:       cbor.IndefLengthForbidden,
		ExtraReturnErrors: cbor.ExtraDecErrorUnknownField,
	}.DecMode()
	if err != nil {
		panic(err)
	}
}

func (b *Bundle) Marshal() ([]byte, error) {
	return bundleEncMode.Marshal(b)
}

// UnmarshalBundle decodes a bundle and checks its version and shape.
func UnmarshalBundle(data []byte) (*Bundle, error) {
	var b Bundle
	if err := bundleDecMode.Unmarshal(data, &b); err != nil {
		return nil, errors.Wrap(err, "decode bundle")
	}
	v, err := semver.Parse(b.Version)
	if err != nil {
		return nil, errors.Wrap(err, "bundle version")
	}
	if v.Major != BundleVersion.Major {
		return nil, errors.Wrapf(errIncompatibleBundle, "got %s, want %d.x.x", v, BundleVersion.Major)
	}
	if _, err := uuid.Parse(b.Session); err != nil {
		return nil, errors.Wrap(err, "bundle session")
	}
	variant, err := poseidon.ParseVariant(b.Variant)
	if err != nil {
		return nil, err
	}
	if err := variant.CheckLength(b.Length); err != nil {
		return nil, err
	}
	return &b, nil
}

// Artifacts returns the artifacts carried by b.
func (b *Bundle) Artifacts() (*Artifacts, error) {
	if len(b.Output) != OutputSize {
		return nil, newError(OutputLengthMismatch, errors.Errorf("bundle output is %d bytes", len(b.Output)))
	}
	a := &Artifacts{
		Params:       b.Params,
		VerifyingKey: b.VerifyingKey,
		Proof:        b.Proof,
	}
	copy(a.Output[:], b.Output)
	return a, nil
}

// Slot returns the bytes of witness slot i without checking their sizes.
func (b *Bundle) Slot(i int) ([]byte, error) {
	switch i {
	case SlotParams:
		return b.Params, nil
	case SlotVerifyingKey:
		return b.VerifyingKey, nil
	case SlotProof:
		return b.Proof, nil
	case SlotOutput:
		return b.Output, nil
	}
	return nil, errors.Errorf("no witness slot %d", i)
}
