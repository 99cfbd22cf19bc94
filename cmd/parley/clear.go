// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parley Contributors

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newClearCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Clear a conversation's history on a running server",
		RunE:  runClear,
	}

	addClientFlags(cmd)
	cmd.Flags().StringP("conversation", "C", "", "conversation id (default \"default\")")

	return cmd
}

func runClear(cmd *cobra.Command, _ []string) error {
	conversationID, _ := cmd.Flags().GetString("conversation")
	if err := newAPIClient(serverAddress(cmd)).clear(cmd.Context(), conversationID); err != nil {
		return err
	}

	if conversationID == "" {
		conversationID = "default"
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Cleared conversation %s\n", conversationID)
	return nil
}
