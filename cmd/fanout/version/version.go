// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package version contains the version subcommand.
package version

import (
	"context"
	"fmt"

	"github.com/matt-FFFFFF/fanout"
	"github.com/urfave/cli/v3"
)

// VersionCmd prints the build information.
var VersionCmd = &cli.Command{
	Name:  "version",
	Usage: "Print the version and commit of this binary",
	Action: func(_ context.Context, cmd *cli.Command) error {
		_, err := fmt.Fprintf(cmd.Root().Writer, "fanout %s (commit: %s)\n", fanout.Version, fanout.Commit)
		return err
	},
}
