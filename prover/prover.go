// Package prover runs the native proving flow: it packs a preimage, hashes it, sets up
// the circuit keys and produces the four artifacts read by the verifier.
package prover

import (
	"crypto/rand"
	"io"
	"math/big"
	"time"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	kzg "github.com/consensys/gnark-crypto/ecc/bn254/kzg"
	"github.com/consensys/gnark/backend/plonk"
	"github.com/consensys/gnark/constraint"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/zkpreimage/poseidon-preimage/circuit"
	"github.com/zkpreimage/poseidon-preimage/poseidon"
	"github.com/zkpreimage/poseidon-preimage/protocol"
)

// Result is the outcome of one proving session.
type Result struct {
	Artifacts *protocol.Artifacts
	Digest    fr.Element
	Session   uuid.UUID
	Variant   poseidon.Variant
	Length    int
}

// Bundle packs the artifacts for transport.
func (r *Result) Bundle() *protocol.Bundle {
	return protocol.NewBundle(r.Artifacts, r.Session, r.Variant, r.Length)
}

// Prove proves knowledge of preimage for its Poseidon digest under variant v with a
// message of length words.
func Prove(preimage []byte, v poseidon.Variant, length int, opts ...Option) (*Result, error) {
	cfg, err := NewConfig(opts...)
	if err != nil {
		return nil, err
	}
	if err := v.CheckLength(length); err != nil {
		return nil, err
	}
	session := uuid.New()
	log := cfg.Log.With().Str("session", session.String()).Str("variant", v.String()).Int("length", length).Logger()

	message, err := protocol.PackMessage(preimage, length)
	if err != nil {
		return nil, err
	}
	spec, err := poseidon.SpecFor(v)
	if err != nil {
		return nil, err
	}
	digest, err := poseidon.Hash(spec, message)
	if err != nil {
		return nil, err
	}

	var (
		ccs constraint.ConstraintSystem
		srs *kzg.SRS
	)
	start := time.Now()
	var g errgroup.Group
	g.Go(func() error {
		var err error
		ccs, err = circuit.Compile(v, length)
		return err
	})
	g.Go(func() error {
		var err error
		if cfg.Params != nil {
			srs, err = protocol.DecodeParams(cfg.Params)
		} else {
			srs, err = NewParams(cfg.K, cfg.Random)
		}
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	log.Debug().Dur("took", time.Since(start)).Int("nbConstraints", ccs.GetNbConstraints()).Msg("circuit compiled, params ready")

	domain := circuit.DomainSize(ccs)
	if uint64(len(srs.Pk.G1)) < domain+3 {
		return nil, errors.Wrapf(circuit.ErrCircuitTooLarge, "params hold %d points, circuit needs %d", len(srs.Pk.G1), domain+3)
	}
	if cfg.Params == nil {
		if err := circuit.CheckSize(ccs, cfg.K); err != nil {
			return nil, err
		}
	}

	start = time.Now()
	lagrange, err := LagrangeParams(srs, domain)
	if err != nil {
		return nil, err
	}
	pk, vk, err := plonk.Setup(ccs, srs, lagrange)
	if err != nil {
		return nil, errors.Wrap(err, "setup")
	}
	log.Debug().Dur("took", time.Since(start)).Uint64("domain", domain).Msg("keys generated")

	empty, err := circuit.New(v, length)
	if err != nil {
		return nil, err
	}
	filled, err := empty.Assign(message, digest)
	if err != nil {
		return nil, err
	}
	fullWitness, err := filled.Witness()
	if err != nil {
		return nil, err
	}

	start = time.Now()
	proof, err := plonk.Prove(ccs, pk, fullWitness, protocol.ProverOptions()...)
	if err != nil {
		return nil, errors.Wrap(err, "prove")
	}
	log.Debug().Dur("took", time.Since(start)).Msg("proof generated")

	artifacts := &protocol.Artifacts{Output: protocol.EncodeOutput(digest)}
	if cfg.Params != nil {
		artifacts.Params = cfg.Params
	} else if artifacts.Params, err = protocol.EncodeParams(srs); err != nil {
		return nil, err
	}
	if artifacts.VerifyingKey, err = protocol.EncodeVerifyingKey(vk); err != nil {
		return nil, err
	}
	if artifacts.Proof, err = protocol.EncodeProof(proof); err != nil {
		return nil, err
	}

	if cfg.SelfCheck {
		if err := artifacts.Verify(); err != nil {
			return nil, errors.Wrap(err, "self check")
		}
	}
	log.Info().
		Int("params", len(artifacts.Params)).
		Int("vk", len(artifacts.VerifyingKey)).
		Int("proof", len(artifacts.Proof)).
		Msg("artifacts ready")

	return &Result{
		Artifacts: artifacts,
		Digest:    digest,
		Session:   session,
		Variant:   v,
		Length:    length,
	}, nil
}

// NewParams samples a KZG setup for circuits of up to 2^k rows. The secret is drawn
// from random and discarded, so the setup is only as trustworthy as the caller.
func NewParams(k int, random io.Reader) (*kzg.SRS, error) {
	var tau *big.Int
	for tau == nil || tau.Sign() == 0 {
		var err error
		if tau, err = rand.Int(random, fr.Modulus()); err != nil {
			return nil, errors.Wrap(err, "sample setup secret")
		}
	}
	srs, err := kzg.NewSRS(uint64(1)<<k+3, tau)
	if err != nil {
		return nil, errors.Wrap(err, "generate params")
	}
	return srs, nil
}

// LagrangeParams returns the first domain points of srs in Lagrange form.
func LagrangeParams(srs *kzg.SRS, domain uint64) (*kzg.SRS, error) {
	if uint64(len(srs.Pk.G1)) < domain {
		return nil, errors.Wrapf(circuit.ErrCircuitTooLarge, "params hold %d points, domain is %d", len(srs.Pk.G1), domain)
	}
	g1, err := kzg.ToLagrangeG1(srs.Pk.G1[:domain])
	if err != nil {
		return nil, errors.Wrap(err, "lagrange params")
	}
	return &kzg.SRS{Pk: kzg.ProvingKey{G1: g1}}, nil
}
