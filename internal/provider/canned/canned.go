// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parley Contributors

// Package canned answers chat turns from a fixed table of keyword rules. It
// is the demo-mode provider used when no API key is configured.
package canned

import (
	"context"
	"fmt"
	"strings"

	"github.com/parley-chat/parley/internal/provider"
	"github.com/parley-chat/parley/internal/store"
)

// Rule pairs a predicate over the latest user text with the reply it
// produces. Rules are evaluated in order and the first match wins.
type Rule struct {
	Name string
	// Match receives the lower-cased text and the text as typed.
	Match   func(lower, original string) bool
	Respond func(original string) string
}

const (
	greetingReply = "Hello! 👋 I'm your AI assistant. I'm running in demo mode right now, but I can still show you how the interface works. What would you like to chat about?"

	wellbeingReply = "I'm doing great, thanks for asking! As an AI, I don't have feelings in the human sense, but I'm functioning well and ready to help you. What's on your mind?"

	helpReply = `I can help with lots of things! In full mode (with an API key), I can:

• Answer questions on almost any topic
• Help with writing and editing
• Explain complex concepts
• Have conversations about ideas
• Assist with problem-solving

Right now I'm in demo mode, so my responses are pre-written. Add an OpenAI API key to unlock the full experience!`

	codingReply = `I love talking about code! In full mode, I can:

• Explain programming concepts
• Help debug code
• Suggest improvements
• Write code snippets
• Discuss best practices

This is demo mode, but with an API key I can actually help you write and understand code!`

	weatherReply = "I'm an AI assistant, not a weather service! But I'd be happy to chat about climate, meteorology, or recommend ways to check the weather. What interests you?"

	thanksReply = "You're welcome! Happy to help. Is there anything else you'd like to know?"

	questionReply = "That's a great question! In full mode, I'd give you a detailed answer about that. Right now I'm running in demo mode without an OpenAI API key, so my responses are limited. Add OPENAI_API_KEY to your .env file for the full AI experience!"

	echoTemplate = "I understand you're saying: \"%s\"\n\nThis is a demo response. With an OpenAI API key, I'd provide a thoughtful, contextual reply. The interface you're seeing works exactly the same way - just add your API key to unlock full AI capabilities!"
)

// DefaultRules is the demo rule table in priority order.
var DefaultRules = []Rule{
	{Name: "greeting", Match: containsAny("hello", "hi", "hey"), Respond: fixed(greetingReply)},
	{Name: "wellbeing", Match: containsAny("how are you"), Respond: fixed(wellbeingReply)},
	{Name: "help", Match: containsAny("help", "can you", "what can"), Respond: fixed(helpReply)},
	{Name: "coding", Match: containsAny("code", "programming", "python"), Respond: fixed(codingReply)},
	{Name: "weather", Match: containsAny("weather"), Respond: fixed(weatherReply)},
	{Name: "thanks", Match: containsAny("thank", "thanks"), Respond: fixed(thanksReply)},
	{Name: "question", Match: func(_, original string) bool { return strings.Contains(original, "?") }, Respond: fixed(questionReply)},
	{Name: "echo", Match: func(_, _ string) bool { return true }, Respond: echo},
}

// Provider is the demo-mode provider.Provider. It performs no I/O and is safe
// for concurrent use.
type Provider struct {
	rules []Rule
}

var _ provider.Provider = (*Provider)(nil)

// New returns a Provider using DefaultRules.
func New() *Provider {
	return NewWithRules(DefaultRules)
}

// NewWithRules returns a Provider evaluating rules in order. The table should
// end with a catch-all rule; when nothing matches the echo reply is used.
func NewWithRules(rules []Rule) *Provider {
	return &Provider{rules: rules}
}

func (p *Provider) Name() string  { return "canned" }
func (p *Provider) Model() string { return provider.DemoModel }
func (p *Provider) Demo() bool    { return true }

// Reply answers the latest user turn in turns.
func (p *Provider) Reply(_ context.Context, turns []store.Turn) string {
	_, reply := p.Match(store.LastUserContent(turns))
	return reply
}

// Match returns the name of the first rule matching text together with its
// reply.
func (p *Provider) Match(text string) (rule, reply string) {
	lower := strings.ToLower(text)
	for _, r := range p.rules {
		if r.Match(lower, text) {
			return r.Name, r.Respond(text)
		}
	}
	return "echo", echo(text)
}

func containsAny(keywords ...string) func(lower, original string) bool {
	return func(lower, _ string) bool {
		for _, k := range keywords {
			if strings.Contains(lower, k) {
				return true
			}
		}
		return false
	}
}

func fixed(reply string) func(string) string {
	return func(string) string { return reply }
}

func echo(original string) string {
	return fmt.Sprintf(echoTemplate, original)
}
