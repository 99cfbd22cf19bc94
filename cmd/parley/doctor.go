// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parley Contributors

package main

import (
	"context"
	"fmt"
	"runtime"

	"github.com/parley-chat/parley/internal/config"
	"github.com/parley-chat/parley/internal/secrets"
	parleyerr "github.com/parley-chat/parley/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newDoctorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Run diagnostics",
		Long:  "Check the binary, configuration, API key source and whether a server is reachable.",
		RunE:  runDoctor,
	}

	addClientFlags(cmd)

	return cmd
}

func runDoctor(cmd *cobra.Command, _ []string) error {
	w := cmd.OutOrStdout()
	addr := serverAddress(cmd)
	v := viper.GetViper()

	checks := []struct {
		name string
		fn   func() string
	}{
		{"Binary", checkBinary},
		{"Config", func() string { return checkConfig(v) }},
		{"API key", func() string { return checkAPIKey(v, secretStoreFactory()) }},
		{"Server", func() string { return checkServer(cmd.Context(), addr) }},
	}

	for _, c := range checks {
		if _, err := fmt.Fprintf(w, "%-12s %s\n", c.name+":", c.fn()); err != nil {
			return err
		}
	}

	return nil
}

func checkBinary() string {
	return fmt.Sprintf("parley %s (%s/%s, %s)", version, runtime.GOOS, runtime.GOARCH, runtime.Version())
}

func checkConfig(v *viper.Viper) string {
	source := "using defaults (no config file found)"
	if used := v.ConfigFileUsed(); used != "" {
		source = "loaded from " + used
		if config.WarnInsecurePermissions(used) {
			source += " (readable by other users, chmod 600 recommended)"
		}
	}

	if _, err := config.FromViper(v); err != nil {
		return source + "; invalid: " + err.Error()
	}
	return source
}

func checkAPIKey(v *viper.Viper, store secrets.Store) string {
	raw := v.GetString("provider.api_key")
	switch {
	case raw == "":
		return "not set, demo mode (canned replies)"
	case secrets.IsURI(raw):
		if _, err := secrets.Resolve(store, raw); err != nil {
			if parleyerr.IsNotFound(err) {
				return fmt.Sprintf("%s is empty (run 'parley secret set')", raw)
			}
			return fmt.Sprintf("error resolving %s: %s", raw, err)
		}
		return "stored in OS keyring (" + raw + ")"
	default:
		return "set in config or environment"
	}
}

func checkServer(ctx context.Context, addr string) string {
	st, err := newAPIClient(addr).status(ctx)
	if err != nil {
		if parleyerr.HasCode(err, parleyerr.CodeCLIServerNotRunning) {
			return fmt.Sprintf("not running at %s (run 'parley serve')", addr)
		}
		return fmt.Sprintf("error: %s", err)
	}

	mode := "model " + st.Model
	if st.DemoMode {
		mode = "demo mode"
	}
	return fmt.Sprintf("%s at %s, %s", st.Status, addr, mode)
}
