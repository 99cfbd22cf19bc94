// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parley Contributors

package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/parley-chat/parley/internal/config"
	"github.com/parley-chat/parley/internal/secrets"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the chat server",
		Long:  "Load configuration, select the response provider and serve the chat API and web page until interrupted.",
		RunE:  runServe,
	}

	cmd.Flags().String("host", "", "override listen host")
	cmd.Flags().Int("port", 0, "override listen port")

	return cmd
}

// loadConfig resolves keyring references and decodes the global viper.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	v := viper.GetViper()

	if cmd.Flags().Lookup("host") != nil && cmd.Flags().Changed("host") {
		host, _ := cmd.Flags().GetString("host")
		v.Set("server.host", host)
	}
	if cmd.Flags().Lookup("port") != nil && cmd.Flags().Changed("port") {
		port, _ := cmd.Flags().GetInt("port")
		v.Set("server.port", port)
	}

	if err := secrets.ResolveViperSecrets(v, secretStoreFactory()); err != nil {
		return nil, err
	}

	cfg, err := config.FromViper(v)
	if err != nil {
		return nil, err
	}

	config.WarnInsecurePermissions(v.ConfigFileUsed())
	return cfg, nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	app, err := WireApp(cfg, version)
	if err != nil {
		return err
	}
	defer func() { _ = app.Close() }()

	printBanner(cmd.OutOrStdout(), cfg)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return app.Start(ctx)
	})
	g.Go(func() error {
		<-ctx.Done()
		slog.Info("shutting down")
		return nil
	})

	return g.Wait()
}

func printBanner(out io.Writer, cfg *config.Config) {
	_, _ = fmt.Fprintln(out, "Parley chat relay")
	if cfg.Demo() {
		_, _ = fmt.Fprintln(out, "  Running in DEMO MODE: replies are canned.")
		_, _ = fmt.Fprintln(out, "  Set OPENAI_API_KEY (or provider.api_key) to use a real model.")
	} else {
		_, _ = fmt.Fprintf(out, "  OpenAI connected, model %s\n", cfg.Provider.Model)
	}
	_, _ = fmt.Fprintf(out, "  Listening on http://%s\n", cfg.Server.Addr())

	slog.Info("server starting",
		"addr", cfg.Server.Addr(),
		"demo", cfg.Demo(),
		"model", cfg.Provider.Model,
		"max_turns", cfg.Conversations.MaxTurns)
}
