// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parley Contributors

package provider

import (
	"context"

	"github.com/parley-chat/parley/internal/store"
	"github.com/parley-chat/parley/pkg/health"
)

// DefaultSystemPrompt is the persona sent ahead of every conversation.
const DefaultSystemPrompt = "You are a helpful, friendly AI assistant. " +
	"You give clear, concise answers and have a warm conversational tone. " +
	"If you don't know something, you say so honestly."

// DemoModel is reported as the model identifier while the canned provider is
// active.
const DemoModel = "demo"

// Provider turns a conversation into the next assistant reply.
//
// Reply is total: implementations never return an error and never panic
// into the caller. Upstream failures are reported as reply text.
type Provider interface {
	// Name is a short identifier used in logs, e.g. "openai".
	Name() string

	// Model is the model identifier reported by the status endpoint.
	Model() string

	// Demo reports whether replies are canned rather than model-generated.
	Demo() bool

	// Reply produces the assistant's answer to turns, which holds the
	// retained conversation ending with the latest user turn.
	Reply(ctx context.Context, turns []store.Turn) string
}

// HealthReporter is implemented by providers that track upstream health.
type HealthReporter interface {
	HealthMetrics() health.Metrics
}

// Metrics returns p's health snapshot. Providers without upstream
// dependencies are always available.
func Metrics(p Provider) health.Metrics {
	if hr, ok := p.(HealthReporter); ok {
		return hr.HealthMetrics()
	}
	return health.Metrics{Provider: p.Name(), Available: true}
}
