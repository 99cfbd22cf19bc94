// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parley Contributors

package server

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/parley-chat/parley/internal/store"
	"github.com/parley-chat/parley/pkg/health"
)

func (s *Server) registerRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "send-message",
		Method:      http.MethodPost,
		Path:        "/api/chat",
		Summary:     "Send a message and receive the assistant's reply",
		Tags:        []string{"chat"},
		Errors:      []int{http.StatusBadRequest},
	}, s.handleChat)

	huma.Register(s.api, huma.Operation{
		OperationID: "clear-conversation",
		Method:      http.MethodPost,
		Path:        "/api/clear",
		Summary:     "Clear a conversation's history",
		Tags:        []string{"chat"},
	}, s.handleClear)

	huma.Register(s.api, huma.Operation{
		OperationID: "get-history",
		Method:      http.MethodGet,
		Path:        "/api/history",
		Summary:     "List a conversation's retained turns, oldest first",
		Tags:        []string{"chat"},
	}, s.handleHistory)

	huma.Register(s.api, huma.Operation{
		OperationID: "status",
		Method:      http.MethodGet,
		Path:        "/api/status",
		Summary:     "Report whether replies are model-generated or canned",
		Tags:        []string{"system"},
	}, s.handleStatus)

	huma.Register(s.api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
		Tags:        []string{"system"},
	}, s.handleHealth)
}

// --- Request/Response types for huma ---

type chatRequestBody struct {
	_              struct{} `json:"-" additionalProperties:"true"`
	Message        string   `json:"message,omitempty" doc:"User message"`
	ConversationID string   `json:"conversation_id,omitempty" doc:"Conversation to continue; \"default\" when omitted"`
}

type chatInput struct {
	Body *chatRequestBody `required:"false"`
}

type chatOutput struct {
	Body struct {
		Response  string    `json:"response" doc:"Assistant reply"`
		Timestamp time.Time `json:"timestamp" doc:"When the reply was produced"`
		DemoMode  bool      `json:"demo_mode" doc:"True when the reply is canned"`
	}
}

type clearRequestBody struct {
	_              struct{} `json:"-" additionalProperties:"true"`
	ConversationID string   `json:"conversation_id,omitempty" doc:"Conversation to clear; \"default\" when omitted"`
}

type clearInput struct {
	Body *clearRequestBody `required:"false"`
}

type clearOutput struct {
	Body struct {
		Success bool `json:"success"`
	}
}

type historyInput struct {
	ConversationID string `query:"conversation_id" doc:"Conversation to list; \"default\" when omitted"`
}

type historyTurn struct {
	Role      string    `json:"role" enum:"user,assistant"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

type historyOutput struct {
	Body struct {
		ConversationID string        `json:"conversation_id"`
		Turns          []historyTurn `json:"turns"`
	}
}

type statusOutput struct {
	Body struct {
		Status   string `json:"status" example:"operational"`
		DemoMode bool   `json:"demo_mode"`
		Model    string `json:"model" example:"gpt-3.5-turbo" doc:"Model identifier, or \"demo\""`
	}
}

// HealthBody is the JSON body of the health endpoint response.
type HealthBody struct {
	Status   string         `json:"status" example:"ok"`
	Provider health.Metrics `json:"provider"`
}

type healthOutput struct {
	Body HealthBody
}

// --- Handlers ---

func (s *Server) handleChat(ctx context.Context, input *chatInput) (*chatOutput, error) {
	var message, conversationID string
	if input.Body != nil {
		message = input.Body.Message
		conversationID = input.Body.ConversationID
	}

	reply, err := s.chat.HandleTurn(ctx, conversationID, message)
	if err != nil {
		return nil, toAPIError(err, "chat")
	}

	out := &chatOutput{}
	out.Body.Response = reply.Text
	out.Body.Timestamp = reply.Timestamp
	out.Body.DemoMode = reply.Demo
	return out, nil
}

func (s *Server) handleClear(_ context.Context, input *clearInput) (*clearOutput, error) {
	var conversationID string
	if input.Body != nil {
		conversationID = input.Body.ConversationID
	}

	s.chat.Reset(conversationID)

	out := &clearOutput{}
	out.Body.Success = true
	return out, nil
}

func (s *Server) handleHistory(_ context.Context, input *historyInput) (*historyOutput, error) {
	conversationID := input.ConversationID
	if conversationID == "" {
		conversationID = store.DefaultConversationID
	}

	turns := s.chat.History(conversationID)

	out := &historyOutput{}
	out.Body.ConversationID = conversationID
	out.Body.Turns = make([]historyTurn, 0, len(turns))
	for _, t := range turns {
		out.Body.Turns = append(out.Body.Turns, historyTurn{
			Role:      string(t.Role),
			Content:   t.Content,
			Timestamp: t.CreatedAt,
		})
	}
	return out, nil
}

func (s *Server) handleStatus(_ context.Context, _ *struct{}) (*statusOutput, error) {
	st := s.chat.Status()

	out := &statusOutput{}
	out.Body.Status = "operational"
	out.Body.DemoMode = st.Demo
	out.Body.Model = st.Model
	return out, nil
}

func (s *Server) handleHealth(_ context.Context, _ *struct{}) (*healthOutput, error) {
	return &healthOutput{Body: HealthBody{Status: "ok", Provider: s.chat.Health()}}, nil
}
