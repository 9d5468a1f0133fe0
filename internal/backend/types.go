// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

import "time"

// =============================================================================
// WIRE TYPES
// =============================================================================

// ChatMessage is one turn in the conversation sent upstream.
type ChatMessage struct {
	Role    string `json:"role"` // "system", "user", "assistant"
	Content string `json:"content"`
}

// ChatRequest is the OpenAI-compatible chat completion request body.
type ChatRequest struct {
	Model    string        `json:"model"`
	Messages []ChatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

// StreamChunk is one parsed fragment of a streaming response.
type StreamChunk struct {
	Content string
	Done    bool
	Error   error
}

// apiError is the error envelope OpenAI-compatible providers return.
type apiError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// =============================================================================
// UI-FACING TYPES
// =============================================================================

// SessionInfo describes a stored session for the session picker.
type SessionInfo struct {
	ID        string
	Title     string
	CreatedAt time.Time
	Current   bool
}

// HistoryMessage is a replayed message from a stored session.
type HistoryMessage struct {
	Role    string
	Content string
}

// UploadItem is one attachment handed to UploadFiles: a filename plus
// its content as a data URI or raw base64 payload.
type UploadItem struct {
	Name string
	Data string
}

// UploadResult reports the outcome for one uploaded file.
type UploadResult struct {
	Name string
	Path string
	Err  error
}

// =============================================================================
// PUSHER
// =============================================================================

// Pusher is the surface the bridge pushes stream events through. The
// UI implements it on top of tea.Program.Send so delivery is safe from
// any goroutine.
//
// targetID addresses a specific message buffer; empty string means the
// currently streaming message.
type Pusher interface {
	// ReceiveChunk delivers one response fragment.
	ReceiveChunk(text, targetID string)

	// StreamComplete signals the end of the active stream, carrying the
	// tone classified from the full response ("" when none).
	StreamComplete(tone string)

	// ReceiveError delivers a user-facing failure message.
	ReceiveError(message string)
}
