// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/docker/go-units"
	"github.com/spf13/pflag"

	"github.com/bureau-foundation/courier/cmd/courier/cli"
	"github.com/bureau-foundation/courier/lib/content"
	"github.com/bureau-foundation/courier/lib/digest"
)

func hashCommand() *cli.Command {
	var digestName string

	return &cli.Command{
		Name:    "hash",
		Summary: "Chunk files locally and print their root hashes",
		Usage:   "courier hash <file>... [flags]",
		Description: `Split each file into pieces, build its hash tree, and print the
root hash. The root printed here is the address a server announces
for the file, so this is how a publisher learns (or a downloader
pre-computes) the address of local content.`,
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("hash", pflag.ContinueOnError)
			flagSet.StringVar(&digestName, "digest", string(digest.SHA256),
				"digest algorithm (sha256, blake3, blake2b, emoji)")
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) == 0 {
				return fmt.Errorf("at least one file argument required")
			}

			kind, err := digest.ParseKind(digestName)
			if err != nil {
				return err
			}
			digester, err := digest.New(kind)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(os.Stdout, 2, 0, 3, ' ', 0)
			defer tw.Flush()

			for _, path := range args {
				f, err := os.Open(path)
				if err != nil {
					return fmt.Errorf("opening %s: %w", path, err)
				}
				file, err := content.FromReader(digester, f)
				f.Close()
				if err != nil {
					return fmt.Errorf("hashing %s: %w", path, err)
				}

				fmt.Fprintf(tw, "%s\t%d pieces\t%s\t%s\n",
					file.Root(), file.ChunkCount(),
					units.HumanSize(float64(file.ContentLength())), path)
			}
			return nil
		},
	}
}
