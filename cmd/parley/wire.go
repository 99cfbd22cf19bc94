// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parley Contributors

package main

import (
	"context"
	"log/slog"

	"github.com/parley-chat/parley/internal/chat"
	"github.com/parley-chat/parley/internal/config"
	"github.com/parley-chat/parley/internal/provider"
	"github.com/parley-chat/parley/internal/provider/canned"
	openaiprov "github.com/parley-chat/parley/internal/provider/openai"
	"github.com/parley-chat/parley/internal/server"
	"github.com/parley-chat/parley/internal/store"
	parleyerr "github.com/parley-chat/parley/pkg/errors"
)

// App holds the wired subsystems and manages their lifecycle.
type App struct {
	Server       *server.Server
	Orchestrator *chat.Orchestrator
	Provider     provider.Provider
	Store        *store.MemoryStore
}

// selectProvider returns the remote provider when an API key is configured
// and the canned provider otherwise. It runs once at startup.
func selectProvider(cfg *config.Config) (provider.Provider, error) {
	if cfg.Demo() {
		return canned.New(), nil
	}

	temperature := cfg.Provider.Temperature
	p, err := openaiprov.New(openaiprov.Config{
		APIKey:       cfg.Provider.APIKey,
		BaseURL:      cfg.Provider.BaseURL,
		Model:        cfg.Provider.Model,
		SystemPrompt: cfg.Provider.SystemPrompt,
		Temperature:  &temperature,
		MaxTokens:    cfg.Provider.MaxTokens,
		Timeout:      cfg.Provider.Timeout,
	})
	if err != nil {
		return nil, parleyerr.Wrap(err, parleyerr.CodeCLISetupFailure, "creating openai provider",
			parleyerr.FieldProvider("openai"))
	}
	return p, nil
}

// WireApp creates every subsystem from cfg and connects them.
func WireApp(cfg *config.Config, version string) (*App, error) {
	p, err := selectProvider(cfg)
	if err != nil {
		return nil, err
	}

	st := store.NewMemoryStore(cfg.Conversations.MaxTurns)

	orch, err := chat.NewOrchestrator(chat.OrchestratorConfig{
		Store:    st,
		Provider: p,
	})
	if err != nil {
		return nil, parleyerr.Wrap(err, parleyerr.CodeCLISetupFailure, "creating orchestrator")
	}

	srv, err := server.New(server.Config{
		ListenAddr:   cfg.Server.Addr(),
		CORSOrigins:  cfg.Server.CORSOrigins,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		Version:      version,
		Chat:         orch,
	})
	if err != nil {
		orch.Close()
		return nil, parleyerr.Wrap(err, parleyerr.CodeCLISetupFailure, "creating http server")
	}

	return &App{
		Server:       srv,
		Orchestrator: orch,
		Provider:     p,
		Store:        st,
	}, nil
}

// Start serves until ctx is cancelled.
func (a *App) Start(ctx context.Context) error {
	return a.Server.Start(ctx)
}

// Close waits for in-flight turns and releases the conversation lanes.
func (a *App) Close() error {
	a.Orchestrator.Close()
	slog.Debug("app closed", "conversations", a.Store.Conversations())
	return nil
}
