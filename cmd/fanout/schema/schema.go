// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package schema provides the schema command, which documents the run definition format.
package schema

import (
	"context"
	"fmt"
	"strings"

	"github.com/matt-FFFFFF/fanout/internal/runconfig"
	"github.com/matt-FFFFFF/fanout/internal/schema"
	"github.com/urfave/cli/v3"
)

const formatFlag = "format"

const (
	title       = "fanout run definition"
	description = "Run definitions are YAML (.yaml, .yml) or HCL (.hcl) files passed to fanout run."
)

// NewSchemaCmd returns the command printing the run definition schema.
func NewSchemaCmd() *cli.Command {
	return &cli.Command{
		Name:        "schema",
		Usage:       "Describe the run definition format",
		Description: "Print the run definition schema as a YAML example, Markdown reference or JSON Schema.",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        formatFlag,
				Aliases:     []string{"f"},
				Usage:       "Output format: yaml, markdown, or json",
				DefaultText: "yaml",
				Value:       "yaml",
			},
		},
		Action: actionFunc,
	}
}

func actionFunc(_ context.Context, cmd *cli.Command) error {
	g, err := schema.NewGenerator(title, description, runconfig.Definition{})
	if err != nil {
		return cli.Exit(fmt.Sprintf("Failed to generate schema: %v", err), 1)
	}

	w := cmd.Root().Writer

	switch strings.ToLower(cmd.String(formatFlag)) {
	case "yaml":
		err = g.WriteYAMLExample(w, example())
	case "markdown", "md":
		err = g.WriteMarkdown(w)
	case "json":
		err = g.WriteJSONSchema(w)
	default:
		return cli.Exit(fmt.Sprintf("Invalid format: %s. Valid formats: yaml, markdown, json", cmd.String(formatFlag)), 1)
	}

	if err != nil {
		return cli.Exit(fmt.Sprintf("Failed to write schema: %v", err), 1)
	}

	return nil
}

func example() *runconfig.Definition {
	batch, segment := 20, 100

	return &runconfig.Definition{
		BatchSize:   &batch,
		SegmentSize: &segment,
		ItemNoun:    "log file",
		Command:     `gzip -9 "$ITEM"`,
		BeforeBatch: `echo "compressing $BATCH_ITEMS" >&2`,
		Env:         map[string]string{"GZIP_OPT": "-q"},
		Source: &runconfig.Source{
			Type:    runconfig.SourceFiles,
			Pattern: "logs/*.log",
		},
	}
}
