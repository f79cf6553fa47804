package prover

import (
	"crypto/rand"
	"io"

	"github.com/consensys/gnark/logger"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/zkpreimage/poseidon-preimage/protocol"
)

// Option configures Prove.
type Option func(*Config) error

// Config holds the settings of one proving session.
type Config struct {
	K         int
	Params    []byte
	Log       zerolog.Logger
	SelfCheck bool
	Random    io.Reader
}

// NewConfig returns the default configuration updated by opts.
func NewConfig(opts ...Option) (Config, error) {
	cfg := Config{
		K:         protocol.K,
		Log:       logger.Logger(),
		SelfCheck: true,
		Random:    rand.Reader,
	}
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return Config{}, err
		}
	}
	return cfg, nil
}

// WithK sets the log2 of the circuit row count used when generating params.
func WithK(k int) Option {
	return func(cfg *Config) error {
		if k < 1 || k > 27 {
			return errors.Errorf("k = %d out of range", k)
		}
		cfg.K = k
		return nil
	}
}

// WithParams reuses encoded params instead of generating fresh ones.
func WithParams(params []byte) Option {
	return func(cfg *Config) error {
		if len(params) == 0 {
			return errors.New("empty params")
		}
		cfg.Params = params
		return nil
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(cfg *Config) error {
		cfg.Log = l
		return nil
	}
}

// WithSelfCheck controls whether Prove verifies the encoded artifacts before
// returning them. It is on by default.
func WithSelfCheck(enabled bool) Option {
	return func(cfg *Config) error {
		cfg.SelfCheck = enabled
		return nil
	}
}

// WithRandom sets the randomness used to sample the setup secret.
func WithRandom(r io.Reader) Option {
	return func(cfg *Config) error {
		if r == nil {
			return errors.New("nil random source")
		}
		cfg.Random = r
		return nil
	}
}
