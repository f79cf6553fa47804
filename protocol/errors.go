package protocol

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies protocol failures.
type Kind uint8

const (
	WitnessLoadFailure Kind = iota + 1
	ParamsDecodeFailure
	VerifyingKeyDecodeFailure
	ProofDecodeFailure
	OutputLengthMismatch
	PreimageTooLong
	ProofVerificationFailure
)

var kindNames = map[Kind]string{
	WitnessLoadFailure:        "witness load failure",
	ParamsDecodeFailure:       "params decode failure",
	VerifyingKeyDecodeFailure: "verifying key decode failure",
	ProofDecodeFailure:        "proof decode failure",
	OutputLengthMismatch:      "output length mismatch",
	PreimageTooLong:           "preimage too long",
	ProofVerificationFailure:  "proof verification failure",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Error is a typed protocol failure carrying its cause.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	return e.Kind.String() + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind when target carries no cause, so the
// sentinels below work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Err == nil && t.Kind == e.Kind
}

func newError(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

var (
	ErrWitnessLoadFailure        = &Error{Kind: WitnessLoadFailure}
	ErrParamsDecodeFailure       = &Error{Kind: ParamsDecodeFailure}
	ErrVerifyingKeyDecodeFailure = &Error{Kind: VerifyingKeyDecodeFailure}
	ErrProofDecodeFailure        = &Error{Kind: ProofDecodeFailure}
	ErrOutputLengthMismatch      = &Error{Kind: OutputLengthMismatch}
	ErrPreimageTooLong           = &Error{Kind: PreimageTooLong}
	ErrProofVerificationFailure  = &Error{Kind: ProofVerificationFailure}
)

// WrapLoadFailure tags err as a witness load failure of slot.
func WrapLoadFailure(slot int, err error) error {
	return newError(WitnessLoadFailure, errors.Wrapf(err, "slot %d", slot))
}
