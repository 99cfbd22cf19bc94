// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parley Contributors

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/parley-chat/parley/internal/chat"
	"github.com/parley-chat/parley/internal/provider/canned"
	"github.com/parley-chat/parley/internal/server"
	parleyerr "github.com/parley-chat/parley/pkg/errors"
)

func main() {
	doc, err := generateDocument()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	outPath := "api/openapi/openapi.json"
	if len(os.Args) > 1 {
		outPath = os.Args[1]
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "error creating output dir: %v\n", err)
		os.Exit(1)
	}

	if err := os.WriteFile(outPath, doc, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "error writing document: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("OpenAPI document written to %s\n", outPath)
}

// generateDocument builds a server with every route registered and returns
// the OpenAPI document huma derives from the handler types. The canned
// provider backs the orchestrator; no handler is invoked.
func generateDocument() ([]byte, error) {
	orch, err := chat.NewOrchestrator(chat.OrchestratorConfig{Provider: canned.New()})
	if err != nil {
		return nil, parleyerr.Errorf(parleyerr.CodeCLISetupFailure, "creating orchestrator: %w", err)
	}
	defer orch.Close()

	srv, err := server.New(server.Config{
		ListenAddr: "127.0.0.1:0",
		Chat:       orch,
	})
	if err != nil {
		return nil, parleyerr.Errorf(parleyerr.CodeCLISetupFailure, "creating server: %w", err)
	}

	return json.MarshalIndent(srv.API().OpenAPI(), "", "  ")
}
