// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/courier/cmd/courier/cli"
	"github.com/bureau-foundation/courier/lib/httpapi"
)

func pieceCommand() *cli.Command {
	var server string
	var output string

	return &cli.Command{
		Name:    "piece",
		Summary: "Fetch and verify a single piece of a file",
		Usage:   "courier piece <root-hash> <index> [flags]",
		Description: `Fetch one piece of the named file, verify it against the root
hash, and write the raw piece bytes. Useful for spot-checking a
server or debugging piece-level issues.`,
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("piece", pflag.ContinueOnError)
			flagSet.StringVar(&server, "server", serverDefault(), "piece server URL")
			flagSet.StringVar(&output, "output", "-", "output path (\"-\" for stdout)")
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) != 2 {
				return fmt.Errorf("root-hash and index arguments required")
			}
			index, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid piece index %q: %w", args[1], err)
			}

			client := httpapi.NewClient(server)
			ctx := context.Background()

			info, err := findFile(ctx, client, args[0])
			if err != nil {
				return err
			}

			data, err := client.VerifiedPiece(ctx, info, index)
			if err != nil {
				if errors.Is(err, httpapi.ErrVerifyFailed) {
					fmt.Fprintf(os.Stderr, "verification failed: %v\n", err)
					return &cli.ExitError{Code: 2}
				}
				return fmt.Errorf("fetching piece %d of %s: %w", index, info.Hash, err)
			}

			if output == "-" {
				_, err := os.Stdout.Write(data)
				return err
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return fmt.Errorf("writing %s: %w", output, err)
			}
			return nil
		},
	}
}
