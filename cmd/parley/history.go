// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parley Contributors

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print a conversation's retained turns from a running server",
		RunE:  runHistory,
	}

	addClientFlags(cmd)
	cmd.Flags().StringP("conversation", "C", "", "conversation id (default \"default\")")

	return cmd
}

func runHistory(cmd *cobra.Command, _ []string) error {
	conversationID, _ := cmd.Flags().GetString("conversation")
	h, err := newAPIClient(serverAddress(cmd)).history(cmd.Context(), conversationID)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(h.Turns) == 0 {
		_, _ = fmt.Fprintf(out, "Conversation %s is empty\n", h.ConversationID)
		return nil
	}
	for _, t := range h.Turns {
		_, _ = fmt.Fprintf(out, "[%s] %s: %s\n", t.Timestamp.Local().Format("15:04:05"), t.Role, t.Content)
	}
	return nil
}
