// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	tea "github.com/charmbracelet/bubbletea"
)

// =============================================================================
// PROGRAM PUSHER
// =============================================================================

// ProgramPusher adapts a Bubble Tea program's Send to the backend push
// surface. Backend goroutines call it; Send hands the message to the
// single-threaded Update loop, so no locking happens here.
type ProgramPusher struct {
	send func(tea.Msg)
}

// NewPusher wraps a running program.
func NewPusher(p *tea.Program) *ProgramPusher {
	return &ProgramPusher{send: p.Send}
}

// NewPusherFunc wraps an arbitrary send function. Used in tests.
func NewPusherFunc(send func(tea.Msg)) *ProgramPusher {
	return &ProgramPusher{send: send}
}

// ReceiveChunk forwards a streamed fragment.
func (p *ProgramPusher) ReceiveChunk(text, targetID string) {
	p.send(NewChunkMsg(text, targetID))
}

// StreamComplete forwards stream completion with its tone tag.
func (p *ProgramPusher) StreamComplete(tone string) {
	p.send(NewStreamDoneMsg(tone))
}

// ReceiveError forwards a stream failure.
func (p *ProgramPusher) ReceiveError(message string) {
	p.send(NewStreamFailedMsg(message))
}
