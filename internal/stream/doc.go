// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package stream owns the accumulation state for in-flight assistant
// responses.
//
// The BufferStore maps message IDs to accumulated text and enforces the
// at-most-one-active-stream invariant: at any time a single stream is
// "active" and receives unaddressed fragments. Beginning a new stream
// while another is unresolved silently orphans the older one — unaddressed
// fragments follow the newest stream (last writer wins). This mirrors the
// behavior of the workspace this engine replaces and is deliberate, not a
// bug to fix.
//
// Expected-but-stale conditions (fragments for a cleared session, unknown
// IDs, completion of an already-complete buffer) are silent no-ops; the
// store never errors on them.
package stream
