// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RegDesk Contributors

package main

import (
	"github.com/spf13/cobra"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the RegDesk CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "regdesk",
		Short: "RegDesk - student registration portal",
		Long: `RegDesk is a student self-service registration portal with an
admin console, serving a JSON API backed by PostgreSQL.`,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())

	return cmd
}
