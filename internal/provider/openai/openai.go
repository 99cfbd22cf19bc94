// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parley Contributors

package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/shared"
	"github.com/parley-chat/parley/internal/provider"
	"github.com/parley-chat/parley/internal/store"
	parleyerr "github.com/parley-chat/parley/pkg/errors"
	"github.com/parley-chat/parley/pkg/health"
)

const (
	DefaultModel       = "gpt-3.5-turbo"
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 500
	DefaultTimeout     = 30 * time.Second
)

// unknownError is reported when the upstream failure carries no description.
const unknownError = "Unknown error"

// Config holds OpenAI provider configuration. Zero values select the
// package defaults; a nil Temperature selects DefaultTemperature so that an
// explicit 0 is honored.
type Config struct {
	APIKey       string
	BaseURL      string // optional, useful for testing against a mock server
	Model        string
	SystemPrompt string
	Temperature  *float64
	MaxTokens    int
	Timeout      time.Duration
}

func (c Config) withDefaults() Config {
	if c.Model == "" {
		c.Model = DefaultModel
	}
	if c.SystemPrompt == "" {
		c.SystemPrompt = provider.DefaultSystemPrompt
	}
	if c.Temperature == nil {
		t := DefaultTemperature
		c.Temperature = &t
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = DefaultMaxTokens
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	return c
}

// Provider implements provider.Provider using the OpenAI Chat Completions API.
// One client, and so one connection pool, is shared by every request.
type Provider struct {
	client openaisdk.Client
	config Config
	health *provider.HealthTracker
}

var (
	_ provider.Provider       = (*Provider)(nil)
	_ provider.HealthReporter = (*Provider)(nil)
)

// New creates a new OpenAI provider. Returns an error if the API key is missing.
func New(cfg Config) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, parleyerr.New(parleyerr.CodeProviderRequestInvalid, "openai: missing api_key in config")
	}
	cfg = cfg.withDefaults()

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithRequestTimeout(cfg.Timeout),
		// Retries would stretch a turn past the configured timeout.
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	tracker, err := provider.NewHealthTracker("openai", provider.DefaultHealthCooldown)
	if err != nil {
		return nil, err
	}

	return &Provider{
		client: openaisdk.NewClient(opts...),
		config: cfg,
		health: tracker,
	}, nil
}

func (p *Provider) Name() string  { return "openai" }
func (p *Provider) Model() string { return p.config.Model }
func (p *Provider) Demo() bool    { return false }

// Reply sends the conversation to the completion endpoint. Any failure,
// including a panic in the SDK, is returned as "Error: <description>".
func (p *Provider) Reply(ctx context.Context, turns []store.Turn) (reply string) {
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			slog.Error("openai provider panic recovered",
				"panic", r,
				"stack", string(debug.Stack()))
			err := parleyerr.Errorf(parleyerr.CodeProviderUpstreamFailure, "panic: %v", r)
			p.health.RecordFailure(err)
			reply = errorReply(fmt.Sprintf("%v", r))
		}
	}()

	text, err := p.complete(ctx, turns)
	if err != nil {
		classified := parleyerr.With(classify(err),
			parleyerr.FieldProvider(p.Name()),
			parleyerr.FieldModel(p.config.Model))
		p.health.RecordFailure(classified)
		p.logFailure(classified, time.Since(start))
		return errorReply(describe(err))
	}

	p.health.RecordSuccess()
	slog.Debug("chat completion succeeded",
		"provider", p.Name(),
		"model", p.config.Model,
		"duration", time.Since(start))
	return text
}

// logFailure picks the level and hint for a classified upstream failure.
func (p *Provider) logFailure(err error, elapsed time.Duration) {
	attrs := []any{
		"provider", p.Name(),
		"model", p.config.Model,
		"code", parleyerr.CodeOf(err),
		"duration", elapsed,
		"error", err,
	}

	switch {
	case parleyerr.IsUnauthorized(err):
		slog.Error("chat completion rejected, check provider.api_key", attrs...)
	case parleyerr.IsRateLimited(err):
		slog.Warn("chat completion rate limited", attrs...)
	case parleyerr.IsTimeout(err):
		slog.Warn("chat completion timed out", append(attrs, "timeout", p.config.Timeout)...)
	default:
		slog.Warn("chat completion failed", attrs...)
	}
}

// HealthMetrics reports the outcome history of upstream calls.
func (p *Provider) HealthMetrics() health.Metrics {
	return p.health.HealthMetrics()
}

// complete performs one bounded chat completion call and returns the first
// choice's content verbatim.
func (p *Provider) complete(ctx context.Context, turns []store.Turn) (string, error) {
	params, err := buildParams(p.config, turns)
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, p.config.Timeout)
	defer cancel()

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", &payloadError{message: upstreamMessage(resp.RawJSON())}
	}
	return resp.Choices[0].Message.Content, nil
}

// buildParams converts the conversation into SDK request parameters with the
// system prompt prepended.
func buildParams(cfg Config, turns []store.Turn) (openaisdk.ChatCompletionNewParams, error) {
	msgs, err := convertMessages(turns, cfg.SystemPrompt)
	if err != nil {
		return openaisdk.ChatCompletionNewParams{}, err
	}

	return openaisdk.ChatCompletionNewParams{
		Model:       shared.ChatModel(cfg.Model),
		Messages:    msgs,
		Temperature: param.NewOpt(*cfg.Temperature),
		MaxTokens:   param.NewOpt(int64(cfg.MaxTokens)),
	}, nil
}

// convertMessages transforms turns into OpenAI SDK message params.
// The system prompt is prepended as a system message if present.
func convertMessages(turns []store.Turn, systemPrompt string) ([]openaisdk.ChatCompletionMessageParamUnion, error) {
	result := make([]openaisdk.ChatCompletionMessageParamUnion, 0, len(turns)+1)

	if systemPrompt != "" {
		result = append(result, openaisdk.SystemMessage(systemPrompt))
	}

	for _, turn := range turns {
		switch turn.Role {
		case store.RoleUser:
			result = append(result, openaisdk.UserMessage(turn.Content))
		case store.RoleAssistant:
			result = append(result, openaisdk.AssistantMessage(turn.Content))
		case store.RoleSystem:
			result = append(result, openaisdk.SystemMessage(turn.Content))
		default:
			return nil, parleyerr.Errorf(parleyerr.CodeProviderRequestInvalid, "openai: unsupported turn role %q", turn.Role)
		}
	}

	return result, nil
}

// payloadError is a 2xx response that carried no completion choices.
type payloadError struct {
	message string
}

func (e *payloadError) Error() string { return e.message }

// classify attaches an error code to an upstream failure for logging and
// health tracking. The reply text stays coarse.
func classify(err error) error {
	var apiErr *openaisdk.Error
	var payloadErr *payloadError

	switch {
	case parleyerr.CodeOf(err) != "":
		return err
	case errors.Is(err, context.DeadlineExceeded):
		return parleyerr.Wrap(err, parleyerr.CodeProviderUpstreamTimeout, "chat completion timed out")
	case errors.As(err, &payloadErr):
		return parleyerr.Wrap(err, parleyerr.CodeProviderResponseInvalid, "chat completion returned no choices")
	case errors.As(err, &apiErr):
		switch apiErr.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return parleyerr.Wrap(err, parleyerr.CodeProviderUpstreamUnauthorized, "chat completion rejected credentials")
		case http.StatusTooManyRequests:
			return parleyerr.Wrap(err, parleyerr.CodeProviderUpstreamRateLimited, "chat completion rate limited")
		case http.StatusRequestTimeout, http.StatusGatewayTimeout:
			return parleyerr.Wrap(err, parleyerr.CodeProviderUpstreamTimeout, "chat completion timed out")
		}
		return parleyerr.Wrap(err, parleyerr.CodeProviderUpstreamFailure, "chat completion failed")
	default:
		return parleyerr.Wrap(err, parleyerr.CodeProviderUpstreamFailure, "chat completion failed")
	}
}

// describe returns the human-readable description embedded in the reply.
// Provider-reported errors use the provider's own message, or "Unknown
// error" when the payload has none; the SDK's error text carries the
// endpoint URL and is never shown.
func describe(err error) string {
	var apiErr *openaisdk.Error
	if errors.As(err, &apiErr) {
		if apiErr.Message != "" {
			return apiErr.Message
		}
		return upstreamMessage(apiErr.RawJSON())
	}
	return err.Error()
}

// upstreamMessage extracts the error description from either
// {"error":{"message":...}} or {"message":...}.
func upstreamMessage(raw string) string {
	var payload struct {
		Message string `json:"message"`
		Error   *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if raw == "" || json.Unmarshal([]byte(raw), &payload) != nil {
		return unknownError
	}
	if payload.Error != nil && payload.Error.Message != "" {
		return payload.Error.Message
	}
	if payload.Message != "" {
		return payload.Message
	}
	return unknownError
}

func errorReply(description string) string {
	return "Error: " + description
}
