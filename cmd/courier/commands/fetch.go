// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/bureau-foundation/courier/cmd/courier/cli"
	"github.com/bureau-foundation/courier/lib/catalog"
	"github.com/bureau-foundation/courier/lib/httpapi"
)

func fetchCommand() *cli.Command {
	var server string
	var output string

	return &cli.Command{
		Name:    "fetch",
		Summary: "Download and verify a file by its root hash",
		Usage:   "courier fetch <root-hash> [flags]",
		Description: `Download every piece of the named file, verify each against the
root hash, and write the reassembled content. The hash argument may
be a unique prefix of the full root hash.

With no --output the content goes to stdout when stdout is a pipe,
or to a file named after the hash when stdout is a terminal.

Exits 2 when a piece fails verification (the server returned data
that does not match the root hash).`,
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("fetch", pflag.ContinueOnError)
			flagSet.StringVar(&server, "server", serverDefault(), "piece server URL")
			flagSet.StringVar(&output, "output", "", "output path (\"-\" for stdout)")
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("exactly one root-hash argument required")
			}

			client := httpapi.NewClient(server)
			ctx := context.Background()

			info, err := findFile(ctx, client, args[0])
			if err != nil {
				return err
			}

			writer, cleanup, err := openOutput(output, info)
			if err != nil {
				return err
			}

			var progress func(done, total int)
			if term.IsTerminal(int(os.Stderr.Fd())) {
				progress = func(done, total int) {
					fmt.Fprintf(os.Stderr, "\rfetched %d/%d pieces", done, total)
					if done == total {
						fmt.Fprintln(os.Stderr)
					}
				}
			}

			if err := client.Download(ctx, info, writer, progress); err != nil {
				cleanup(false)
				if errors.Is(err, httpapi.ErrVerifyFailed) {
					fmt.Fprintf(os.Stderr, "verification failed: %v\n", err)
					return &cli.ExitError{Code: 2}
				}
				return fmt.Errorf("downloading %s: %w", info.Hash, err)
			}
			return cleanup(true)
		},
	}
}

// findFile resolves a root-hash argument (full hex or unique prefix)
// against the server's catalog.
func findFile(ctx context.Context, client *httpapi.Client, hashArg string) (catalog.FileInfo, error) {
	files, err := client.Files(ctx)
	if err != nil {
		return catalog.FileInfo{}, fmt.Errorf("listing files: %w", err)
	}

	var matches []catalog.FileInfo
	for _, file := range files {
		if strings.HasPrefix(file.Hash.String(), hashArg) {
			matches = append(matches, file)
		}
	}
	switch len(matches) {
	case 0:
		return catalog.FileInfo{}, fmt.Errorf("no file with root hash %q on the server", hashArg)
	case 1:
		return matches[0], nil
	default:
		return catalog.FileInfo{}, fmt.Errorf("hash prefix %q is ambiguous (%d matches)", hashArg, len(matches))
	}
}

// openOutput resolves the --output flag to a writer. The returned
// cleanup closes the writer; on failure (keep == false) a partially
// written file is removed.
func openOutput(output string, info catalog.FileInfo) (io.Writer, func(keep bool) error, error) {
	if output == "-" || (output == "" && !term.IsTerminal(int(os.Stdout.Fd()))) {
		return os.Stdout, func(bool) error { return nil }, nil
	}
	if output == "" {
		output = info.Hash.String()[:12] + ".bin"
	}

	f, err := os.Create(output)
	if err != nil {
		return nil, nil, fmt.Errorf("creating %s: %w", output, err)
	}
	cleanup := func(keep bool) error {
		closeErr := f.Close()
		if !keep {
			os.Remove(output)
			return closeErr
		}
		return closeErr
	}
	return f, cleanup, nil
}
