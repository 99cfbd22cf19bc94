// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parley Contributors

package openai

import (
	openaisdk "github.com/openai/openai-go"
	"github.com/parley-chat/parley/internal/store"
)

// BuildParams exposes buildParams for white-box testing.
var BuildParams = func(cfg Config, turns []store.Turn) (openaisdk.ChatCompletionNewParams, error) {
	return buildParams(cfg.withDefaults(), turns)
}

// Classify exposes classify for white-box testing.
var Classify = classify

// UpstreamMessage exposes upstreamMessage for white-box testing.
var UpstreamMessage = upstreamMessage
