// Package onchain is the verification entry point run by the execution harness. It
// loads the four artifacts into fixed-size buffers, verifies the proof, and reports a
// single exit code.
package onchain

import (
	"fmt"

	"github.com/consensys/gnark/logger"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/zkpreimage/poseidon-preimage/protocol"
)

const (
	ExitSuccess int8 = 0
	ExitFailure int8 = -1
)

// State is a step of the entry point.
type State uint8

const (
	LoadParams State = iota
	LoadVerifyingKey
	LoadProof
	LoadOutput
	Verify
	Success
	Failure
)

var stateNames = [...]string{"LoadParams", "LoadVerifyingKey", "LoadProof", "LoadOutput", "Verify", "Success", "Failure"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", uint8(s))
}

// stateFn runs one step and returns the next, or nil in a terminal state.
type stateFn func(*EntryPoint) stateFn

// EntryPoint verifies one set of artifacts. It runs once.
type EntryPoint struct {
	src Source
	log zerolog.Logger

	params [protocol.MaxParamsSize]byte
	vk     [protocol.MaxVerifyingKeySize]byte
	proof  [protocol.MaxProofSize]byte
	output [protocol.OutputSize]byte
	n      [protocol.NbSlots]int

	state State
	err   error
}

type Option func(*EntryPoint)

// WithLogger sets the debug side channel failure causes are written to.
func WithLogger(l zerolog.Logger) Option {
	return func(e *EntryPoint) {
		e.log = l
	}
}

func New(src Source, opts ...Option) *EntryPoint {
	e := &EntryPoint{
		src: src,
		log: logger.Logger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run loads and verifies the artifacts and returns ExitSuccess or ExitFailure.
// Further calls return the first result.
func (e *EntryPoint) Run() int8 {
	if e.state == LoadParams {
		for fn := stateFn(loadParams); fn != nil; {
			fn = fn(e)
		}
	}
	if e.state == Success {
		return ExitSuccess
	}
	return ExitFailure
}

// Err returns the cause of a failed run.
func (e *EntryPoint) Err() error { return e.err }

// State returns the current state, terminal after Run.
func (e *EntryPoint) State() State { return e.state }

func (e *EntryPoint) fail(err error) stateFn {
	e.err = err
	e.log.Debug().Err(err).Stringer("state", e.state).Msg("verification aborted")
	e.state = Failure
	return nil
}

func (e *EntryPoint) load(slot int, buf []byte, next State, fn stateFn) stateFn {
	n, err := e.src.LoadWitness(buf, slot)
	if err == nil && (n < 0 || n > len(buf)) {
		err = errors.Wrapf(ErrLengthNotEnough, "source reported %d bytes, buffer %d", n, len(buf))
	}
	if err != nil {
		return e.fail(protocol.WrapLoadFailure(slot, err))
	}
	e.n[slot] = n
	e.state = next
	return fn
}

func loadParams(e *EntryPoint) stateFn {
	return e.load(protocol.SlotParams, e.params[:], LoadVerifyingKey, loadVerifyingKey)
}

func loadVerifyingKey(e *EntryPoint) stateFn {
	return e.load(protocol.SlotVerifyingKey, e.vk[:], LoadProof, loadProof)
}

func loadProof(e *EntryPoint) stateFn {
	return e.load(protocol.SlotProof, e.proof[:], LoadOutput, loadOutput)
}

func loadOutput(e *EntryPoint) stateFn {
	return e.load(protocol.SlotOutput, e.output[:], Verify, verify)
}

func verify(e *EntryPoint) stateFn {
	err := protocol.Verify(
		e.params[:e.n[protocol.SlotParams]],
		e.vk[:e.n[protocol.SlotVerifyingKey]],
		e.proof[:e.n[protocol.SlotProof]],
		e.output[:e.n[protocol.SlotOutput]],
	)
	if err != nil {
		return e.fail(err)
	}
	e.state = Success
	e.log.Debug().Msg("verification succeeded")
	return nil
}

// Run verifies the artifacts of src and returns the exit code.
func Run(src Source, opts ...Option) int8 {
	return New(src, opts...).Run()
}
