// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parley Contributors

package main

import (
	"fmt"

	"github.com/parley-chat/parley/internal/config"
	"github.com/parley-chat/parley/internal/secrets"
	parleyerr "github.com/parley-chat/parley/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const redacted = "<redacted>"

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or create the configuration file",
	}

	cmd.AddCommand(
		newConfigShowCmd(),
		newConfigInitCmd(),
	)

	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as YAML",
		Long:  "Print the configuration after defaults, config file, .env and environment are merged. The API key is redacted.",
		Args:  cobra.NoArgs,
		RunE:  runConfigShow,
	}
}

func newConfigInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a commented default config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigInit,
	}

	cmd.Flags().String("path", "", "destination (default ~/.config/parley/parley.yaml)")
	cmd.Flags().Bool("force", false, "overwrite an existing file")

	return cmd
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	v := viper.GetViper()

	cfg, err := config.FromViper(v)
	if err != nil {
		return err
	}

	switch {
	case cfg.Provider.APIKey == "":
	case secrets.IsURI(cfg.Provider.APIKey):
		// References are not secret.
	default:
		cfg.Provider.APIKey = redacted
	}

	out, err := yaml.Marshal(cfg)
	if err != nil {
		return parleyerr.Wrap(err, parleyerr.CodeCLISetupFailure, "rendering config")
	}

	w := cmd.OutOrStdout()
	if used := v.ConfigFileUsed(); used != "" {
		_, _ = fmt.Fprintf(w, "# loaded from %s\n", used)
	}
	_, err = w.Write(out)
	return err
}

func runConfigInit(cmd *cobra.Command, _ []string) error {
	path, _ := cmd.Flags().GetString("path")
	force, _ := cmd.Flags().GetBool("force")

	if path == "" {
		p, err := config.DefaultConfigPath()
		if err != nil {
			return err
		}
		path = p
	}

	if err := config.WriteDefaultConfig(path, force); err != nil {
		return err
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
	return nil
}
