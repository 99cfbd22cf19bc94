// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parley Contributors

package main

import (
	"bytes"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/parley-chat/parley/internal/chat"
	"github.com/parley-chat/parley/internal/provider/canned"
	"github.com/parley-chat/parley/internal/server"
	"github.com/parley-chat/parley/internal/store"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

// newTestRoot returns a root command isolated from the developer's
// environment: fresh viper, empty HOME and working directory, no API key.
func newTestRoot(t *testing.T, args ...string) (*cobra.Command, *bytes.Buffer) {
	t.Helper()

	viper.Reset()
	t.Cleanup(viper.Reset)

	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())
	for _, name := range []string{"OPENAI_API_KEY", "PORT", "PARLEY_PROVIDER_API_KEY", "PARLEY_SERVER_PORT"} {
		t.Setenv(name, "")
	}

	root := NewRootCmd()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	return root, buf
}

// startDemoServer serves the real HTTP API backed by the canned provider.
func startDemoServer(t *testing.T) (*httptest.Server, *store.MemoryStore) {
	t.Helper()

	st := store.NewMemoryStore(store.DefaultMaxTurns)
	orch, err := chat.NewOrchestrator(chat.OrchestratorConfig{Store: st, Provider: canned.New()})
	require.NoError(t, err)
	t.Cleanup(orch.Close)

	srv, err := server.New(server.Config{ListenAddr: "127.0.0.1:0", Chat: orch})
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, st
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

// unsetEnv removes name for the duration of the test. An empty value would
// still count as set for dotenv loading.
func unsetEnv(t *testing.T, name string) {
	t.Helper()
	t.Setenv(name, "")
	require.NoError(t, os.Unsetenv(name))
}
