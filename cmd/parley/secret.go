// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parley Contributors

package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/parley-chat/parley/internal/secrets"
	parleyerr "github.com/parley-chat/parley/pkg/errors"
	"github.com/spf13/cobra"
)

// secretStoreFactory creates a secrets.Store. It is a package-level variable
// so tests can substitute a mock implementation.
var secretStoreFactory = func() secrets.Store {
	return secrets.NewKeyringStore()
}

func newSecretCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "secret",
		Short: "Manage the API key stored in the OS keyring",
		Long: "Store or delete the OpenAI API key in the operating system keyring. " +
			"Point provider.api_key at " + secrets.APIKeyURI + " to use it.",
	}

	cmd.AddCommand(
		newSecretSetCmd(),
		newSecretDeleteCmd(),
	)

	return cmd
}

func newSecretSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set [value]",
		Short: "Store the API key (read from stdin when no value is given)",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSecretSet,
	}
}

func newSecretDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete",
		Short: "Delete the stored API key",
		Args:  cobra.NoArgs,
		RunE:  runSecretDelete,
	}
}

func runSecretSet(cmd *cobra.Command, args []string) error {
	var value string
	if len(args) == 1 {
		value = args[0]
	} else {
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && line == "" {
			return parleyerr.Errorf(parleyerr.CodeCLIInputInvalid, "reading API key from stdin: %w", err)
		}
		value = line
	}

	value = strings.TrimSpace(value)
	if value == "" {
		return parleyerr.New(parleyerr.CodeCLIInputInvalid, "API key must not be empty")
	}

	if err := secretStoreFactory().Set(secrets.DefaultService, secrets.APIKeyName, value); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintln(out, "API key stored in the OS keyring.")
	_, _ = fmt.Fprintf(out, "Set provider.api_key: %q in your config to use it.\n", secrets.APIKeyURI)
	return nil
}

func runSecretDelete(cmd *cobra.Command, _ []string) error {
	if err := secretStoreFactory().Delete(secrets.DefaultService, secrets.APIKeyName); err != nil {
		if parleyerr.IsNotFound(err) {
			return parleyerr.New(parleyerr.CodeSecretNotFound, "no API key is stored")
		}
		return err
	}

	_, _ = fmt.Fprintln(cmd.OutOrStdout(), "API key deleted.")
	return nil
}
