// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parley Contributors

package server

import (
	"context"

	"github.com/parley-chat/parley/internal/chat"
	"github.com/parley-chat/parley/internal/store"
	"github.com/parley-chat/parley/pkg/health"
)

// ChatService is the conversation engine behind the HTTP routes.
// *chat.Orchestrator implements it.
type ChatService interface {
	HandleTurn(ctx context.Context, conversationID, userText string) (*chat.Reply, error)
	Reset(conversationID string)
	History(conversationID string) []store.Turn
	Status() chat.Status
	Health() health.Metrics
}

var _ ChatService = (*chat.Orchestrator)(nil)
