// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for the chat workspace.
package model

// =============================================================================
// TRANSCRIPT TYPE
// =============================================================================

// Transcript holds the messages currently rendered on the chat surface,
// in document order, with O(1) lookup by ID. It is the single source of
// truth for "does this message still exist" checks: a fragment addressed
// to an ID the transcript no longer tracks is dropped by the caller.
type Transcript struct {
	messages []*Message
	byID     map[string]*Message
}

// NewTranscript creates an empty transcript.
func NewTranscript() *Transcript {
	return &Transcript{
		byID: make(map[string]*Message),
	}
}

// Append adds a message to the end of the transcript.
func (t *Transcript) Append(msg *Message) {
	if msg == nil {
		return
	}
	t.messages = append(t.messages, msg)
	t.byID[msg.ID] = msg
}

// ByID returns the message with the given ID, or nil if not tracked.
func (t *Transcript) ByID(id string) *Message {
	return t.byID[id]
}

// Has reports whether the transcript tracks the given message ID.
func (t *Transcript) Has(id string) bool {
	_, ok := t.byID[id]
	return ok
}

// Messages returns the messages in document order. The returned slice is
// shared; callers must not mutate it.
func (t *Transcript) Messages() []*Message {
	return t.messages
}

// Last returns the most recent message, or nil if empty.
func (t *Transcript) Last() *Message {
	if len(t.messages) == 0 {
		return nil
	}
	return t.messages[len(t.messages)-1]
}

// AssistantIDs returns the IDs of all assistant messages in document order.
func (t *Transcript) AssistantIDs() []string {
	var ids []string
	for _, msg := range t.messages {
		if msg.Role == RoleAssistant {
			ids = append(ids, msg.ID)
		}
	}
	return ids
}

// Len returns the number of messages.
func (t *Transcript) Len() int {
	return len(t.messages)
}

// IsEmpty returns true if there are no messages.
func (t *Transcript) IsEmpty() bool {
	return len(t.messages) == 0
}

// Clear removes every message. Used on session boundaries.
func (t *Transcript) Clear() {
	t.messages = nil
	t.byID = make(map[string]*Message)
}
