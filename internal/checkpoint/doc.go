// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package checkpoint maintains the bookmark rail that mirrors assistant
// messages.
//
// Every assistant message gets exactly one marker, created when the turn
// begins (not lazily on first bookmark) and removed only on a session
// boundary — the marker set is always a bijection with the assistant
// messages on the rendering surface. Markers carry a user-toggled
// bookmark flag, a short preview of the rendered answer for tooltips, and
// an exclusive "active in viewport" flag driven by the scroll
// synchronizer.
//
// All operations on unknown message IDs are silent no-ops; the index must
// tolerate being addressed about messages that no longer exist.
package checkpoint
