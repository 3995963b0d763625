// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/inkwell/inkwell/internal/config"
	"github.com/inkwell/inkwell/internal/logging"
)

const serviceName = "inkwell"

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the Inkwell CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inkwell",
		Short: "Inkwell - identity and session service",
		Long: `Inkwell registers and authenticates users, issues signed session
tokens and guards the account API behind an authentication gate.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (default: $XDG_CONFIG_HOME/inkwell/config.yaml)")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewStatusCmd())

	return cmd
}

// loadConfig resolves configuration for cmd, letting its changed flags
// override file and environment values.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	return config.Load(config.Options{Path: configFile, Flags: cmd.Flags()})
}

// setupLogging installs the default logger described by cfg.
func setupLogging(cfg *config.Config) (*slog.Logger, error) {
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	return logging.SetDefault(serviceName, version, cfg.Log.Format, level), nil
}
