// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parley Contributors

package main

import (
	"fmt"

	parleyerr "github.com/parley-chat/parley/pkg/errors"
	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show server status",
		Long:  "Query a running server and report whether it answers with a real model or in demo mode.",
		RunE:  runStatus,
	}

	addClientFlags(cmd)

	return cmd
}

func runStatus(cmd *cobra.Command, _ []string) error {
	addr := serverAddress(cmd)
	out := cmd.OutOrStdout()

	st, err := newAPIClient(addr).status(cmd.Context())
	if err != nil {
		if parleyerr.HasCode(err, parleyerr.CodeCLIServerNotRunning) {
			_, _ = fmt.Fprintf(out, "Parley at %s is not running (connection refused)\n", addr)
			return nil
		}
		_, _ = fmt.Fprintf(out, "Parley at %s: %s\n", addr, err)
		return nil
	}

	mode := "openai"
	if st.DemoMode {
		mode = "demo"
	}
	_, _ = fmt.Fprintf(out, "Parley at %s: %s\n", addr, st.Status)
	_, _ = fmt.Fprintf(out, "  mode:  %s\n", mode)
	_, _ = fmt.Fprintf(out, "  model: %s\n", st.Model)
	return nil
}
