// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for the chat workspace.
package model

import (
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Assistant"
	default:
		return string(r)
	}
}

// =============================================================================
// TONE TYPE
// =============================================================================

// Tone is a coarse style tag attached to a completed assistant message.
// It drives cosmetic styling only and is set at most once, after the
// response has finished streaming.
type Tone string

const (
	ToneNone    Tone = ""
	ToneCalm    Tone = "calm"
	ToneExcited Tone = "excited"
	ToneSerious Tone = "serious"
	TonePlayful Tone = "playful"
)

// ParseTone returns the Tone for a string, or ToneNone if unrecognized.
func ParseTone(s string) Tone {
	switch Tone(s) {
	case ToneCalm, ToneExcited, ToneSerious, TonePlayful:
		return Tone(s)
	default:
		return ToneNone
	}
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message represents a single turn in the conversation.
//
// Content is the source text of the turn: final for user messages, set on
// stream completion for assistant messages (the in-flight accumulation
// lives in the stream buffer store, not here). Rendered is the derived
// display projection and is replaced wholesale on every re-render.
type Message struct {
	// Identity
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Timestamp time.Time `json:"timestamp"`

	// Content
	Content  string `json:"content"`
	Rendered string `json:"-"`

	// Streaming state (assistant turns only, not persisted)
	Streaming bool `json:"-"`

	// Tone styling (assistant turns only)
	tone Tone
}

// NewUserMessage creates a user message with its final content.
func NewUserMessage(content string) *Message {
	return &Message{
		ID:        generateID(),
		Role:      RoleUser,
		Content:   content,
		Timestamp: time.Now(),
	}
}

// NewAssistantMessage creates an empty assistant placeholder that will be
// filled in as the response streams.
func NewAssistantMessage() *Message {
	return &Message{
		ID:        generateID(),
		Role:      RoleAssistant,
		Timestamp: time.Now(),
		Streaming: true,
	}
}

// =============================================================================
// MESSAGE METHODS
// =============================================================================

// Finalize records the completed content and ends the streaming state.
func (m *Message) Finalize(content string) {
	m.Content = content
	m.Streaming = false
}

// SetTone attaches a tone to the message. The tone is write-once: the
// first non-empty value wins and later calls report false.
func (m *Message) SetTone(t Tone) bool {
	if t == ToneNone || m.tone != ToneNone {
		return false
	}
	m.tone = t
	return true
}

// Tone returns the attached tone, or ToneNone.
func (m *Message) Tone() Tone {
	return m.tone
}

// Preview returns a truncated preview of the message content.
// Uses rune-based truncation to handle Unicode correctly.
func (m *Message) Preview(maxLen int) string {
	runes := []rune(m.Content)
	if len(runes) <= maxLen {
		return m.Content
	}
	return string(runes[:maxLen-3]) + "..."
}

// IsEmpty returns true if the message has no content.
func (m *Message) IsEmpty() bool {
	return len(m.Content) == 0
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// generateID creates a unique message ID.
func generateID() string {
	return "msg_" + uuid.NewString()
}
