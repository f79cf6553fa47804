// Command poseidon-verifier runs the on-chain verification entry point over the files
// written by poseidon-prover and exits with its status.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/consensys/gnark/logger"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/zkpreimage/poseidon-preimage/onchain"
	"github.com/zkpreimage/poseidon-preimage/protocol"
)

func checkError(err error) {
	if err != nil {
		fmt.Println(err)
		os.Exit(-1)
	}
}

func main() {
	app := &cli.App{
		Name:  "poseidon-verifier",
		Usage: "verify a Poseidon preimage proof",
		Flags: []cli.Flag{
			&cli.PathFlag{Name: "dir", Value: ".", Usage: "read params.bin, vk.bin, proof.bin and output.bin from `DIR`"},
			&cli.PathFlag{Name: "bundle", Usage: "read the artifacts from a bundle `FILE` instead"},
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "print the failure cause"},
		},
		Action: run,
	}
	checkError(app.Run(os.Args))
}

func run(c *cli.Context) error {
	log := zerolog.Nop()
	if c.Bool("verbose") {
		log = logger.Logger().Level(zerolog.DebugLevel)
	}

	var src onchain.Source
	if path := c.Path("bundle"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		b, err := protocol.UnmarshalBundle(data)
		if err != nil {
			return err
		}
		src = onchain.BundleSource{Bundle: b}
	} else {
		dir := c.Path("dir")
		src = onchain.NewFileSource(
			filepath.Join(dir, "params.bin"),
			filepath.Join(dir, "vk.bin"),
			filepath.Join(dir, "proof.bin"),
			filepath.Join(dir, "output.bin"),
		)
	}

	if code := onchain.Run(src, onchain.WithLogger(log)); code != onchain.ExitSuccess {
		os.Exit(int(code))
	}
	fmt.Println("Success!")
	return nil
}
