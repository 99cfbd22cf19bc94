// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parley Contributors

package store

import (
	"sync"
)

// conversation guards one turn history with its own lock so writers to
// different conversations never contend.
type conversation struct {
	mu    sync.Mutex
	turns []Turn
}

// MemoryStore is a process-local ConversationStore. Nothing survives a
// restart.
type MemoryStore struct {
	maxTurns int

	mu            sync.RWMutex
	conversations map[string]*conversation
}

var _ ConversationStore = (*MemoryStore)(nil)

// NewMemoryStore returns an empty store retaining at most maxTurns turns per
// conversation. A non-positive maxTurns selects DefaultMaxTurns.
func NewMemoryStore(maxTurns int) *MemoryStore {
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}
	return &MemoryStore{
		maxTurns:      maxTurns,
		conversations: make(map[string]*conversation),
	}
}

// MaxTurns returns the retention limit.
func (s *MemoryStore) MaxTurns() int {
	return s.maxTurns
}

// lookup returns the conversation for id, or nil when it has never been
// written.
func (s *MemoryStore) lookup(id string) *conversation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conversations[id]
}

// getOrCreate returns the conversation for id, creating it on first use.
func (s *MemoryStore) getOrCreate(id string) *conversation {
	if c := s.lookup(id); c != nil {
		return c
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Another writer may have created it between the two locks.
	if c, ok := s.conversations[id]; ok {
		return c
	}
	c := &conversation{}
	s.conversations[id] = c
	return c
}

func (s *MemoryStore) Append(conversationID string, turn Turn) {
	c := s.getOrCreate(conversationID)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.turns = append(c.turns, turn)
	if over := len(c.turns) - s.maxTurns; over > 0 {
		// Copy so the dropped prefix can be collected.
		kept := make([]Turn, s.maxTurns)
		copy(kept, c.turns[over:])
		c.turns = kept
	}
}

func (s *MemoryStore) Turns(conversationID string) []Turn {
	c := s.lookup(conversationID)
	if c == nil {
		return []Turn{}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Turn, len(c.turns))
	copy(out, c.turns)
	return out
}

func (s *MemoryStore) Clear(conversationID string) {
	c := s.lookup(conversationID)
	if c == nil {
		return
	}

	c.mu.Lock()
	c.turns = nil
	c.mu.Unlock()
}

func (s *MemoryStore) Len(conversationID string) int {
	c := s.lookup(conversationID)
	if c == nil {
		return 0
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.turns)
}

func (s *MemoryStore) Conversations() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.conversations)
}
