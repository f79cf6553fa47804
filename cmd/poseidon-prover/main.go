// Command poseidon-prover proves knowledge of a preimage of a Poseidon digest and writes
// the artifacts read by poseidon-verifier.
package main

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/consensys/gnark/logger"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/zkpreimage/poseidon-preimage/poseidon"
	"github.com/zkpreimage/poseidon-preimage/protocol"
	"github.com/zkpreimage/poseidon-preimage/prover"
)

const (
	paramsFile = "params.bin"
	vkFile     = "vk.bin"
	proofFile  = "proof.bin"
	outputFile = "output.bin"
	bundleFile = "bundle.cbor"
)

func checkError(err error) {
	if err != nil {
		fmt.Println(err)
		os.Exit(-1)
	}
}

func main() {
	app := &cli.App{
		Name:  "poseidon-prover",
		Usage: "prove knowledge of a Poseidon preimage",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "preimage", Usage: "preimage given as a string"},
			&cli.PathFlag{Name: "preimage-file", Usage: "read the preimage from `FILE`"},
			&cli.StringFlag{Name: "variant", Value: protocol.DefaultVariant.String(), Usage: "w3r2, w9r8 or w12r11"},
			&cli.IntFlag{Name: "length", Value: protocol.DefaultMessageLength, Usage: "message length in field words"},
			&cli.IntFlag{Name: "k", Value: protocol.K, Usage: "log2 of the circuit rows when generating params"},
			&cli.PathFlag{Name: "params", Usage: "reuse params from `FILE`"},
			&cli.PathFlag{Name: "out", Value: ".", Usage: "output `DIR`"},
			&cli.BoolFlag{Name: "bundle", Usage: "also write " + bundleFile},
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}},
		},
		Action: run,
	}
	checkError(app.Run(os.Args))
}

func run(c *cli.Context) error {
	log := logger.Logger()
	if c.Bool("verbose") {
		log = log.Level(zerolog.DebugLevel)
	} else {
		log = log.Level(zerolog.InfoLevel)
	}

	preimage := []byte(c.String("preimage"))
	if path := c.Path("preimage-file"); path != "" {
		var err error
		if preimage, err = os.ReadFile(path); err != nil {
			return err
		}
	}
	variant, err := poseidon.ParseVariant(c.String("variant"))
	if err != nil {
		return err
	}

	opts := []prover.Option{prover.WithK(c.Int("k")), prover.WithLogger(log)}
	if path := c.Path("params"); path != "" {
		params, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		opts = append(opts, prover.WithParams(params))
	}

	res, err := prover.Prove(preimage, variant, c.Int("length"), opts...)
	if err != nil {
		return err
	}

	dir := c.Path("out")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	a := res.Artifacts
	for name, data := range map[string][]byte{
		paramsFile: a.Params,
		vkFile:     a.VerifyingKey,
		proofFile:  a.Proof,
		outputFile: a.Output[:],
	} {
		if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
			return err
		}
	}
	if c.Bool("bundle") {
		data, err := res.Bundle().Marshal()
		if err != nil {
			return err
		}
		if err := os.WriteFile(filepath.Join(dir, bundleFile), data, 0o644); err != nil {
			return err
		}
	}

	fmt.Println("output:", hex.EncodeToString(a.Output[:]))
	fmt.Println("session:", res.Session)
	return nil
}
