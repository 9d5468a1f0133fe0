// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Message types for the chat view.
//
// Categories:
//   - Streaming: ChunkMsg, StreamDoneMsg, StreamFailedMsg
//   - Sessions: SessionListMsg, SessionCreatedMsg, SessionSwitchedMsg,
//     SessionDeletedMsg, HistoryLoadedMsg
//   - Config: ConfigReloadedMsg
//   - Status: StatusMsg
package chat

import (
	"github.com/loomchat/loom/internal/backend"
	"github.com/loomchat/loom/internal/config"
)

// =============================================================================
// STREAMING MESSAGES
// =============================================================================

// ChunkMsg carries one streamed response fragment. TargetID addresses a
// specific assistant message; empty means the currently streaming one.
type ChunkMsg struct {
	Text     string
	TargetID string
}

// StreamDoneMsg signals that the active stream finished. Tone is the
// backend's style classification of the full response ("" = none).
type StreamDoneMsg struct {
	Tone string
}

// StreamFailedMsg signals that the active stream ended with an error.
type StreamFailedMsg struct {
	Message string
}

// =============================================================================
// SESSION MESSAGES
// =============================================================================

// SessionListMsg delivers the stored sessions for the picker overlay.
type SessionListMsg struct {
	Sessions []backend.SessionInfo
	Err      error
}

// SessionCreatedMsg signals that a fresh session is now current.
type SessionCreatedMsg struct {
	Info backend.SessionInfo
	Err  error
}

// SessionSwitchedMsg delivers the replay history after a session switch.
type SessionSwitchedMsg struct {
	ID      string
	History []backend.HistoryMessage
	Err     error
}

// SessionDeletedMsg signals that a session was removed. History carries
// the replay for whichever session became current.
type SessionDeletedMsg struct {
	ID      string
	History []backend.HistoryMessage
	Err     error
}

// HistoryLoadedMsg delivers the current session's history at startup.
type HistoryLoadedMsg struct {
	History []backend.HistoryMessage
	Err     error
}

// =============================================================================
// CONFIG / STATUS MESSAGES
// =============================================================================

// ConfigReloadedMsg is pushed when the config file changes on disk.
type ConfigReloadedMsg struct {
	Config *config.Config
}

// StatusMsg shows a transient line in the status bar.
type StatusMsg struct {
	Text string
}

// =============================================================================
// CONSTRUCTOR HELPERS
// =============================================================================

// NewChunkMsg creates a streamed fragment message.
func NewChunkMsg(text, targetID string) ChunkMsg {
	return ChunkMsg{Text: text, TargetID: targetID}
}

// NewStreamDoneMsg creates a stream completion message.
func NewStreamDoneMsg(tone string) StreamDoneMsg {
	return StreamDoneMsg{Tone: tone}
}

// NewStreamFailedMsg creates a stream failure message.
func NewStreamFailedMsg(message string) StreamFailedMsg {
	return StreamFailedMsg{Message: message}
}

// NewStatusMsg creates a transient status line message.
func NewStatusMsg(text string) StatusMsg {
	return StatusMsg{Text: text}
}
