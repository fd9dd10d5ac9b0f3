// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/docker/go-units"
	"github.com/spf13/pflag"

	"github.com/bureau-foundation/courier/cmd/courier/cli"
	"github.com/bureau-foundation/courier/lib/httpapi"
)

func listCommand() *cli.Command {
	var server string

	return &cli.Command{
		Name:    "list",
		Summary: "List files available on a server",
		Usage:   "courier list [flags]",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("list", pflag.ContinueOnError)
			flagSet.StringVar(&server, "server", serverDefault(), "piece server URL")
			return flagSet
		},
		Run: func(args []string) error {
			client := httpapi.NewClient(server)
			files, err := client.Files(context.Background())
			if err != nil {
				return fmt.Errorf("listing files on %s: %w", server, err)
			}

			tw := tabwriter.NewWriter(os.Stdout, 2, 0, 3, ' ', 0)
			fmt.Fprintln(tw, "HASH\tPIECES\tSIZE\tDIGEST")
			for _, file := range files {
				fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n",
					file.Hash, file.Pieces,
					units.HumanSize(float64(file.Bytes)), file.Digest)
			}
			return tw.Flush()
		},
	}
}
