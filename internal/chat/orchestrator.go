// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parley Contributors

// Package chat runs conversation turns: it records the user's message,
// asks the active provider for a reply and records that reply, one turn at
// a time per conversation.
package chat

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/parley-chat/parley/internal/provider"
	"github.com/parley-chat/parley/internal/store"
	parleyerr "github.com/parley-chat/parley/pkg/errors"
	"github.com/parley-chat/parley/pkg/health"
)

// Reply is the outcome of one turn.
type Reply struct {
	ConversationID string
	Text           string
	Timestamp      time.Time
	Demo           bool
}

// Status describes the active provider.
type Status struct {
	Remote bool
	Demo   bool
	Model  string
}

// OrchestratorConfig holds the Orchestrator's dependencies.
type OrchestratorConfig struct {
	Store    store.ConversationStore
	Provider provider.Provider
}

// Orchestrator is safe for concurrent use. Turns on the same conversation
// are applied in submission order; turns on different conversations run in
// parallel.
type Orchestrator struct {
	store    store.ConversationStore
	provider provider.Provider
	lanes    *LanePool
	nowFunc  func() time.Time
}

// NewOrchestrator validates cfg and returns a ready Orchestrator. A nil
// Store selects an in-memory store with the default retention limit.
func NewOrchestrator(cfg OrchestratorConfig) (*Orchestrator, error) {
	if cfg.Provider == nil {
		return nil, parleyerr.New(parleyerr.CodeChatTurnFailure, "orchestrator requires a provider")
	}
	st := cfg.Store
	if st == nil {
		st = store.NewMemoryStore(store.DefaultMaxTurns)
	}

	return &Orchestrator{
		store:    st,
		provider: cfg.Provider,
		lanes:    NewLanePool(),
		nowFunc:  time.Now,
	}, nil
}

// HandleTurn appends userText to the conversation, obtains the provider's
// reply to the retained history and appends that reply. Blank text is
// rejected with an invalid-input error and leaves the store untouched. An
// empty conversationID selects store.DefaultConversationID.
//
// Once the turn starts it runs to completion even if ctx is cancelled, so a
// user turn is never left without its reply.
func (o *Orchestrator) HandleTurn(ctx context.Context, conversationID, userText string) (*Reply, error) {
	text := strings.TrimSpace(userText)
	if text == "" {
		return nil, parleyerr.New(parleyerr.CodeChatTurnInvalidInput, "Message is required",
			parleyerr.FieldConversationID(conversationID))
	}
	if conversationID == "" {
		conversationID = store.DefaultConversationID
	}

	var reply *Reply
	err := o.inLane(ctx, conversationID, func() {
		reply = o.runTurn(context.WithoutCancel(ctx), conversationID, text)
	})
	if err != nil {
		if parleyerr.CodeOf(err) == "" {
			err = parleyerr.Wrap(err, parleyerr.CodeChatTurnFailure, "turn was not run",
				parleyerr.FieldConversationID(conversationID))
		}
		return nil, err
	}
	return reply, nil
}

func (o *Orchestrator) runTurn(ctx context.Context, conversationID, text string) *Reply {
	start := o.nowFunc()

	o.store.Append(conversationID, store.NewTurn(store.RoleUser, text))
	answer := o.provider.Reply(ctx, o.store.Turns(conversationID))
	o.store.Append(conversationID, store.NewTurn(store.RoleAssistant, answer))

	slog.Debug("turn completed",
		"conversation_id", conversationID,
		"provider", o.provider.Name(),
		"model", o.provider.Model(),
		"retained", o.store.Len(conversationID),
		"duration", time.Since(start))

	return &Reply{
		ConversationID: conversationID,
		Text:           answer,
		Timestamp:      o.nowFunc(),
		Demo:           o.provider.Demo(),
	}
}

// inLane runs fn on the conversation's lane, after any turn already queued
// there.
func (o *Orchestrator) inLane(ctx context.Context, conversationID string, fn func()) error {
	lane := o.lanes.Acquire(conversationID)
	defer o.lanes.Release(lane)
	return lane.Submit(ctx, func(_ context.Context) error {
		fn()
		return nil
	})
}

// Reset empties the conversation. A turn already in flight finishes first,
// so the clear never leaves a reply without its user turn. Resetting an
// unknown conversation is a no-op.
func (o *Orchestrator) Reset(conversationID string) {
	if conversationID == "" {
		conversationID = store.DefaultConversationID
	}
	wipe := func() { o.store.Clear(conversationID) }
	if err := o.inLane(context.Background(), conversationID, wipe); err != nil {
		// Lanes are gone only after Close has drained them.
		wipe()
	}
	slog.Debug("conversation cleared", "conversation_id", conversationID)
}

// Status reports whether replies come from the remote model or the canned
// table.
func (o *Orchestrator) Status() Status {
	return Status{
		Remote: !o.provider.Demo(),
		Demo:   o.provider.Demo(),
		Model:  o.provider.Model(),
	}
}

// Health returns the active provider's health snapshot.
func (o *Orchestrator) Health() health.Metrics {
	return provider.Metrics(o.provider)
}

// History returns a copy of the conversation's retained turns.
func (o *Orchestrator) History(conversationID string) []store.Turn {
	if conversationID == "" {
		conversationID = store.DefaultConversationID
	}
	return o.store.Turns(conversationID)
}

// Close waits for queued turns to finish and stops all conversation lanes.
func (o *Orchestrator) Close() {
	o.lanes.Close()
}
