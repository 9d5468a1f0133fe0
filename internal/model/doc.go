// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for the chat workspace.
//
// # Key Types
//
//   - Message: a single conversational turn (user or assistant)
//   - Role: the sender of a message
//   - Tone: an optional style tag attached to a completed assistant turn
//   - Transcript: the ordered set of messages currently on screen
//
// Messages are created when a turn begins: user turns carry their final
// content immediately, assistant turns start as empty placeholders that
// are filled in as the response streams. The Transcript is the in-memory
// rendering surface; it owns the messages and is emptied wholesale on a
// session boundary.
package model
