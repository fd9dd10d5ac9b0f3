// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package commands builds the courier CLI command tree. The tree
// covers local hashing (no server needed) and the client side of the
// piece protocol: listing a server's catalog, fetching whole files
// with per-piece verification, and pulling single pieces for
// inspection.
package commands

import (
	"fmt"
	"os"

	"github.com/bureau-foundation/courier/cmd/courier/cli"
	"github.com/bureau-foundation/courier/lib/version"
)

// defaultServerURL is the piece server to talk to when --server is
// not given. The COURIER_SERVER environment variable overrides it.
const defaultServerURL = "http://localhost:8080"

func serverDefault() string {
	if url := os.Getenv("COURIER_SERVER"); url != "" {
		return url
	}
	return defaultServerURL
}

// Root builds and returns the complete courier CLI command tree.
func Root() *cli.Command {
	return &cli.Command{
		Name: "courier",
		Description: `Courier: verified chunked file distribution.

Files are split into fixed-size pieces and addressed by the root of a
Merkle tree over the piece hashes. Every piece downloaded from a
server is verified against the root before it is written out, so a
misbehaving server cannot hand back corrupt data undetected.`,
		Subcommands: []*cli.Command{
			hashCommand(),
			listCommand(),
			fetchCommand(),
			pieceCommand(),
			{
				Name:    "version",
				Summary: "Print version information",
				Run: func(args []string) error {
					fmt.Printf("courier %s\n", version.Full())
					return nil
				},
			},
		},
		Examples: []cli.Example{
			{
				Description: "Compute the root hash of a local file",
				Command:     "courier hash model.bin",
			},
			{
				Description: "List files available on a server",
				Command:     "courier list --server http://10.0.0.2:8080",
			},
			{
				Description: "Download and verify a file by its root hash",
				Command:     "courier fetch a3f9b2c1... --output model.bin",
			},
			{
				Description: "Inspect a single verified piece",
				Command:     "courier piece a3f9b2c1... 0 --output piece0.bin",
			},
		},
	}
}
