// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parley Contributors

package store

// DefaultConversationID is used when a caller does not name a conversation.
const DefaultConversationID = "default"

// DefaultMaxTurns is the number of turns retained per conversation.
const DefaultMaxTurns = 20

// ConversationStore holds the retained turn history for every conversation.
//
// Implementations must serialize mutations to the same conversation while
// allowing different conversations to proceed independently.
type ConversationStore interface {
	// Append adds turn to the end of the conversation, creating it if needed,
	// and discards the oldest turns once the retention limit is exceeded.
	Append(conversationID string, turn Turn)

	// Turns returns a copy of the retained turns in append order. An unknown
	// conversation yields an empty slice.
	Turns(conversationID string) []Turn

	// Clear empties the conversation. Unknown conversations are ignored.
	Clear(conversationID string)

	// Len reports how many turns the conversation currently retains.
	Len(conversationID string) int

	// Conversations reports how many conversations have been created.
	Conversations() int
}
