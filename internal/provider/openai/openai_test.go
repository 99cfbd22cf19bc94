// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parley Contributors

package openai_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/parley-chat/parley/internal/provider"
	"github.com/parley-chat/parley/internal/provider/openai"
	"github.com/parley-chat/parley/internal/store"
	parleyerr "github.com/parley-chat/parley/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Compile-time interface satisfaction check.
var _ provider.Provider = (*openai.Provider)(nil)

// completionRequest mirrors the JSON body sent to /chat/completions.
type completionRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
	Temperature *float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
}

// fakeEndpoint serves /chat/completions with the given handler and records
// the last decoded request.
type fakeEndpoint struct {
	server   *httptest.Server
	last     atomic.Pointer[completionRequest]
	lastAuth atomic.Value
	calls    atomic.Int32
}

func newFakeEndpoint(t *testing.T, respond func(w http.ResponseWriter, r *http.Request)) *fakeEndpoint {
	t.Helper()
	fe := &fakeEndpoint{}
	fe.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fe.calls.Add(1)
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		var req completionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err == nil {
			fe.last.Store(&req)
		}
		fe.lastAuth.Store(r.Header.Get("Authorization"))
		respond(w, r)
	}))
	t.Cleanup(fe.server.Close)
	return fe
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func successBody(content string) string {
	b, _ := json.Marshal(map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 1700000000,
		"model":   "gpt-3.5-turbo",
		"choices": []map[string]any{{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]any{"role": "assistant", "content": content},
		}},
	})
	return string(b)
}

func newProvider(t *testing.T, fe *fakeEndpoint, mutate ...func(*openai.Config)) *openai.Provider {
	t.Helper()
	cfg := openai.Config{
		APIKey:  "test-key-not-real",
		BaseURL: fe.server.URL + "/",
	}
	for _, m := range mutate {
		m(&cfg)
	}
	p, err := openai.New(cfg)
	require.NoError(t, err)
	return p
}

func userTurns(texts ...string) []store.Turn {
	turns := make([]store.Turn, 0, len(texts))
	for _, text := range texts {
		turns = append(turns, store.NewTurn(store.RoleUser, text))
	}
	return turns
}

func TestOpenAIProvider_MissingAPIKey(t *testing.T) {
	_, err := openai.New(openai.Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api_key")
	assert.True(t, parleyerr.HasCode(err, parleyerr.CodeProviderRequestInvalid))
}

func TestOpenAIProvider_Metadata(t *testing.T) {
	p, err := openai.New(openai.Config{APIKey: "k"})
	require.NoError(t, err)

	assert.Equal(t, "openai", p.Name())
	assert.Equal(t, openai.DefaultModel, p.Model())
	assert.False(t, p.Demo())
	assert.True(t, p.HealthMetrics().Available)
}

func TestOpenAIProvider_ReplySuccess(t *testing.T) {
	fe := newFakeEndpoint(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, successBody("  Hi! How can I help?\n"))
	})
	p := newProvider(t, fe)

	turns := []store.Turn{
		store.NewTurn(store.RoleUser, "Hello"),
		store.NewTurn(store.RoleAssistant, "Hi there"),
		store.NewTurn(store.RoleUser, "Who are you?"),
	}
	reply := p.Reply(context.Background(), turns)

	assert.Equal(t, "  Hi! How can I help?\n", reply, "reply must be returned verbatim")

	req := fe.last.Load()
	require.NotNil(t, req)
	assert.Equal(t, openai.DefaultModel, req.Model)
	require.NotNil(t, req.Temperature)
	assert.InDelta(t, 0.7, *req.Temperature, 1e-9)
	assert.Equal(t, 500, req.MaxTokens)
	assert.Equal(t, "Bearer test-key-not-real", fe.lastAuth.Load())

	require.Len(t, req.Messages, 4)
	assert.Equal(t, "system", req.Messages[0].Role)
	assert.Equal(t, provider.DefaultSystemPrompt, req.Messages[0].Content)
	assert.Equal(t, "user", req.Messages[1].Role)
	assert.Equal(t, "Hello", req.Messages[1].Content)
	assert.Equal(t, "assistant", req.Messages[2].Role)
	assert.Equal(t, "user", req.Messages[3].Role)
	assert.Equal(t, "Who are you?", req.Messages[3].Content)

	m := p.HealthMetrics()
	assert.Equal(t, int64(1), m.SuccessCount)
	assert.True(t, m.Available)
}

func TestOpenAIProvider_CustomModelAndPrompt(t *testing.T) {
	fe := newFakeEndpoint(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, successBody("ok"))
	})
	p := newProvider(t, fe, func(c *openai.Config) {
		c.Model = "gpt-4.1-mini"
		c.SystemPrompt = "Be terse."
		c.MaxTokens = 64
	})

	assert.Equal(t, "ok", p.Reply(context.Background(), userTurns("hi")))

	req := fe.last.Load()
	require.NotNil(t, req)
	assert.Equal(t, "gpt-4.1-mini", req.Model)
	assert.Equal(t, "Be terse.", req.Messages[0].Content)
	assert.Equal(t, 64, req.MaxTokens)
}

func TestOpenAIProvider_ProviderErrorBecomesText(t *testing.T) {
	fe := newFakeEndpoint(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusUnauthorized,
			`{"error":{"message":"Incorrect API key provided","type":"invalid_request_error","param":null,"code":"invalid_api_key"}}`)
	})
	p := newProvider(t, fe)

	reply := p.Reply(context.Background(), userTurns("hello"))

	assert.True(t, strings.HasPrefix(reply, "Error: "), reply)
	assert.Contains(t, reply, "Incorrect API key provided")
	assert.Equal(t, int32(1), fe.calls.Load(), "retries are disabled")

	m := p.HealthMetrics()
	assert.False(t, m.Available)
	assert.Equal(t, int64(1), m.FailureCount)
	assert.Equal(t, string(parleyerr.CodeProviderUpstreamUnauthorized), m.LastErrorCode)
}

func TestOpenAIProvider_UnauthorizedIsLoggedAsError(t *testing.T) {
	var logs bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&logs, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	fe := newFakeEndpoint(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusUnauthorized, `{"error":{"message":"Incorrect API key provided"}}`)
	})
	p := newProvider(t, fe)
	p.Reply(context.Background(), userTurns("hello"))

	var record map[string]any
	require.NoError(t, json.Unmarshal(logs.Bytes(), &record), logs.String())
	assert.Equal(t, "ERROR", record["level"])
	assert.Equal(t, "chat completion rejected, check provider.api_key", record["msg"])
	assert.Equal(t, p.Model(), record["model"])
	assert.Equal(t, string(parleyerr.CodeProviderUpstreamUnauthorized), record["code"])
}

func TestOpenAIProvider_RateLimitIsClassified(t *testing.T) {
	fe := newFakeEndpoint(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusTooManyRequests, `{"error":{"message":"Rate limit reached"}}`)
	})
	p := newProvider(t, fe)

	reply := p.Reply(context.Background(), userTurns("hello"))

	assert.Contains(t, reply, "Rate limit reached")
	assert.Equal(t, string(parleyerr.CodeProviderUpstreamRateLimited), p.HealthMetrics().LastErrorCode)
}

func TestOpenAIProvider_ErrorPayloadWithoutChoices(t *testing.T) {
	fe := newFakeEndpoint(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, `{"error":{"message":"You exceeded your current quota"}}`)
	})
	p := newProvider(t, fe)

	reply := p.Reply(context.Background(), userTurns("hello"))
	assert.Equal(t, "Error: You exceeded your current quota", reply)
	assert.Equal(t, string(parleyerr.CodeProviderResponseInvalid), p.HealthMetrics().LastErrorCode)
}

func TestOpenAIProvider_ErrorStatusWithoutMessage(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "empty error object", body: `{"error":{}}`},
		{name: "blank message", body: `{"error":{"message":"","type":"server_error"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fe := newFakeEndpoint(t, func(w http.ResponseWriter, _ *http.Request) {
				writeJSON(w, http.StatusInternalServerError, tt.body)
			})
			p := newProvider(t, fe)

			reply := p.Reply(context.Background(), userTurns("hello"))

			assert.Equal(t, "Error: Unknown error", reply)
			assert.NotContains(t, reply, fe.server.URL)
			assert.Equal(t, string(parleyerr.CodeProviderUpstreamFailure), p.HealthMetrics().LastErrorCode)
		})
	}
}

func TestOpenAIProvider_EmptyChoices(t *testing.T) {
	fe := newFakeEndpoint(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, `{"id":"x","object":"chat.completion","choices":[]}`)
	})
	p := newProvider(t, fe)

	assert.Equal(t, "Error: Unknown error", p.Reply(context.Background(), userTurns("hello")))
}

func TestOpenAIProvider_MalformedPayload(t *testing.T) {
	fe := newFakeEndpoint(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, `{not json`)
	})
	p := newProvider(t, fe)

	reply := p.Reply(context.Background(), userTurns("hello"))
	assert.True(t, strings.HasPrefix(reply, "Error: "), reply)
}

func TestOpenAIProvider_TimeoutBecomesText(t *testing.T) {
	fe := newFakeEndpoint(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
			writeJSON(w, http.StatusOK, successBody("too late"))
		}
	})
	p := newProvider(t, fe, func(c *openai.Config) {
		c.Timeout = 50 * time.Millisecond
	})

	start := time.Now()
	reply := p.Reply(context.Background(), userTurns("hello"))

	assert.True(t, strings.HasPrefix(reply, "Error: "), reply)
	assert.Less(t, time.Since(start), time.Second, "the call must be bounded by the timeout")
	assert.Equal(t, string(parleyerr.CodeProviderUpstreamTimeout), p.HealthMetrics().LastErrorCode)
}

func TestOpenAIProvider_TransportFailure(t *testing.T) {
	fe := newFakeEndpoint(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, successBody("unreachable"))
	})
	p := newProvider(t, fe)
	fe.server.Close()

	reply := p.Reply(context.Background(), userTurns("hello"))
	assert.True(t, strings.HasPrefix(reply, "Error: "), reply)
	assert.Equal(t, string(parleyerr.CodeProviderUpstreamFailure), p.HealthMetrics().LastErrorCode)
}

func TestBuildParams(t *testing.T) {
	params, err := openai.BuildParams(openai.Config{}, []store.Turn{
		store.NewTurn(store.RoleUser, "question"),
		store.NewTurn(store.RoleAssistant, "answer"),
	})
	require.NoError(t, err)

	assert.Equal(t, openai.DefaultModel, string(params.Model))
	assert.InDelta(t, openai.DefaultTemperature, params.Temperature.Value, 1e-9)
	assert.Equal(t, int64(openai.DefaultMaxTokens), params.MaxTokens.Value)

	require.Len(t, params.Messages, 3)
	require.NotNil(t, params.Messages[0].OfSystem)
	assert.Equal(t, provider.DefaultSystemPrompt, params.Messages[0].OfSystem.Content.OfString.Value)
	require.NotNil(t, params.Messages[1].OfUser)
	assert.Equal(t, "question", params.Messages[1].OfUser.Content.OfString.Value)
	require.NotNil(t, params.Messages[2].OfAssistant)
	assert.Equal(t, "answer", params.Messages[2].OfAssistant.Content.OfString.Value)
}

func TestBuildParams_ZeroTemperatureIsSent(t *testing.T) {
	zero := 0.0
	params, err := openai.BuildParams(openai.Config{Temperature: &zero}, userTurns("hi"))
	require.NoError(t, err)

	assert.True(t, params.Temperature.Valid())
	assert.Zero(t, params.Temperature.Value)
}

func TestOpenAIProvider_ZeroTemperatureOnTheWire(t *testing.T) {
	fe := newFakeEndpoint(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, successBody("ok"))
	})
	zero := 0.0
	p := newProvider(t, fe, func(c *openai.Config) { c.Temperature = &zero })

	require.Equal(t, "ok", p.Reply(context.Background(), userTurns("hi")))

	req := fe.last.Load()
	require.NotNil(t, req)
	require.NotNil(t, req.Temperature, "temperature 0 must be sent, not omitted")
	assert.Zero(t, *req.Temperature)
}

func TestBuildParams_RejectsUnknownRole(t *testing.T) {
	_, err := openai.BuildParams(openai.Config{}, []store.Turn{
		{ID: "1", Role: "tool", Content: "x", CreatedAt: time.Now()},
	})
	require.Error(t, err)
	assert.True(t, parleyerr.HasCode(err, parleyerr.CodeProviderRequestInvalid))
}

func TestClassify_PreservesExistingCode(t *testing.T) {
	err := parleyerr.New(parleyerr.CodeProviderRequestInvalid, "bad role")
	assert.Equal(t, parleyerr.CodeProviderRequestInvalid, parleyerr.CodeOf(openai.Classify(err)))
}

func TestClassify_DeadlineExceeded(t *testing.T) {
	err := openai.Classify(context.DeadlineExceeded)
	assert.True(t, parleyerr.IsTimeout(err))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestUpstreamMessage(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{raw: `{"error":{"message":"nested"}}`, want: "nested"},
		{raw: `{"message":"flat"}`, want: "flat"},
		{raw: `{"error":{}}`, want: "Unknown error"},
		{raw: `not json`, want: "Unknown error"},
		{raw: ``, want: "Unknown error"},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, openai.UpstreamMessage(tt.raw))
		})
	}
}
