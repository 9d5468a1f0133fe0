// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat is the Bubble Tea model for the chat workspace.
//
// It wires the streaming buffer store, the markdown renderer, the
// checkpoint index, and the typing cadence classifier behind a single
// Update loop. Backend goroutines never touch the model directly: they
// push ChunkMsg / StreamDoneMsg / StreamFailedMsg values through the
// program's Send, and the loop folds them into the transcript.
package chat
