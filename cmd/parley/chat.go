// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parley Contributors

package main

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func newChatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat [message]",
		Short: "Chat with a running parley server",
		Long:  "Send one message and print the reply, or start an interactive session when no message is given.",
		RunE:  runChat,
	}

	addClientFlags(cmd)
	cmd.Flags().StringP("conversation", "C", "", "conversation id (one-shot default: \"default\"; interactive default: a new id)")

	return cmd
}

func runChat(cmd *cobra.Command, args []string) error {
	client := newAPIClient(serverAddress(cmd))
	conversationID, _ := cmd.Flags().GetString("conversation")

	if len(args) > 0 {
		resp, err := client.chat(cmd.Context(), conversationID, strings.Join(args, " "))
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), resp.Response)
		return err
	}

	if conversationID == "" {
		conversationID = uuid.NewString()
	}

	p := tea.NewProgram(newChatModel(cmd.Context(), client, conversationID),
		tea.WithInput(cmd.InOrStdin()),
		tea.WithOutput(cmd.OutOrStdout()),
		tea.WithContext(cmd.Context()),
	)
	_, err := p.Run()
	return err
}
