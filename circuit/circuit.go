// Package circuit defines the Poseidon preimage circuit: a private message of L field
// words whose ConstantLength<L> digest is bound to the single public input.
package circuit

import (
	"math/big"
	"time"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark/backend/witness"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/scs"
	"github.com/consensys/gnark/logger"
	"github.com/pkg/errors"

	"github.com/zkpreimage/poseidon-preimage/poseidon"
	stdposeidon "github.com/zkpreimage/poseidon-preimage/std/hash/poseidon"
)

var (
	ErrWitnessUnknown   = errors.New("witness value unknown")
	ErrCircuitTooLarge  = errors.New("circuit does not fit in the evaluation domain")
	errMessageWordCount = errors.New("message word count does not match circuit length")
)

// HashCircuit proves knowledge of Message such that Poseidon(Message) == Output.
type HashCircuit struct {
	Message []frontend.Variable
	Output  frontend.Variable `gnark:",public"`

	variant poseidon.Variant
}

// New returns a circuit for length words hashed with v, with all witnesses absent.
func New(v poseidon.Variant, length int) (*HashCircuit, error) {
	if err := v.CheckLength(length); err != nil {
		return nil, err
	}
	return &HashCircuit{
		Message: make([]frontend.Variable, length),
		variant: v,
	}, nil
}

func (c *HashCircuit) Variant() poseidon.Variant { return c.variant }

// Assign returns a copy of c holding message and output.
func (c *HashCircuit) Assign(message []fr.Element, output fr.Element) (*HashCircuit, error) {
	if len(message) != len(c.Message) {
		return nil, errors.Wrapf(errMessageWordCount, "got %d, want %d", len(message), len(c.Message))
	}
	res := &HashCircuit{
		Message: make([]frontend.Variable, len(message)),
		Output:  output.BigInt(new(big.Int)),
		variant: c.variant,
	}
	for i := range message {
		res.Message[i] = message[i].BigInt(new(big.Int))
	}
	return res, nil
}

// IsFilled reports whether every message word and the output are known.
func (c *HashCircuit) IsFilled() bool {
	if c.Output == nil {
		return false
	}
	for _, m := range c.Message {
		if m == nil {
			return false
		}
	}
	return true
}

// WithoutWitnesses returns the empty circuit of the same shape.
func (c *HashCircuit) WithoutWitnesses() *HashCircuit {
	return &HashCircuit{
		Message: make([]frontend.Variable, len(c.Message)),
		variant: c.variant,
	}
}

// Witness returns the full witness of a filled circuit.
func (c *HashCircuit) Witness() (witness.Witness, error) {
	if !c.IsFilled() {
		return nil, ErrWitnessUnknown
	}
	return frontend.NewWitness(c, ecc.BN254.ScalarField())
}

// PublicWitness returns the public part of the witness: the output alone.
func (c *HashCircuit) PublicWitness() (witness.Witness, error) {
	if c.Output == nil {
		return nil, ErrWitnessUnknown
	}
	return frontend.NewWitness(c, ecc.BN254.ScalarField(), frontend.PublicOnly())
}

func (c *HashCircuit) Define(api frontend.API) error {
	cfg, err := Configure(NewConstraintBuilder(), c.variant, len(c.Message))
	if err != nil {
		return err
	}
	return Synthesize(api, cfg, c)
}

// Synthesize hashes the message words with the permutation of cfg and binds the digest
// to the public output. Words are taken in the order the layout binds them.
func Synthesize(api frontend.API, cfg Config, c *HashCircuit) error {
	if len(c.Message) != cfg.Length {
		return errors.Wrapf(errMessageWordCount, "got %d, want %d", len(c.Message), cfg.Length)
	}
	p := cfg.Permutation
	if len(p.State) != p.Variant.Width() {
		return errors.Errorf("%d state columns for %s", len(p.State), p.Variant)
	}

	message := make([]frontend.Variable, 0, cfg.Length)
	for _, s := range cfg.Layout.Signals() {
		if s == MessageSignal(len(message)) {
			message = append(message, c.Message[len(message)])
		}
	}
	if len(message) != cfg.Length {
		return errors.Errorf("layout binds %d of %d message words", len(message), cfg.Length)
	}

	h, err := stdposeidon.NewHasher(api, p.Variant, cfg.Length)
	if err != nil {
		return err
	}
	digest, err := h.Hash(message)
	if err != nil {
		return err
	}
	api.AssertIsEqual(digest, c.Output)
	return nil
}

// Compile compiles the empty circuit for v and length into a PLONK constraint system.
func Compile(v poseidon.Variant, length int) (constraint.ConstraintSystem, error) {
	c, err := New(v, length)
	if err != nil {
		return nil, err
	}
	log := logger.Logger().With().Str("variant", v.String()).Int("length", length).Logger()

	start := time.Now()
	ccs, err := frontend.Compile(ecc.BN254.ScalarField(), scs.NewBuilder, c)
	if err != nil {
		return nil, errors.Wrap(err, "compile")
	}
	log.Debug().Int("nbConstraints", ccs.GetNbConstraints()).Dur("took", time.Since(start)).Msg("circuit compiled")
	return ccs, nil
}

// DomainSize returns the size of the evaluation domain the PLONK setup will use for ccs.
func DomainSize(ccs constraint.ConstraintSystem) uint64 {
	return ecc.NextPowerOfTwo(uint64(ccs.GetNbConstraints() + ccs.GetNbPublicVariables()))
}

// CheckSize fails with ErrCircuitTooLarge when ccs needs more than 2^k rows.
func CheckSize(ccs constraint.ConstraintSystem, k int) error {
	if n := DomainSize(ccs); n > uint64(1)<<k {
		return errors.Wrapf(ErrCircuitTooLarge, "domain %d, max 2^%d", n, k)
	}
	return nil
}
