// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package stream owns the accumulation state for in-flight assistant
// responses.
package stream

import (
	"strings"
	"sync"
)

// =============================================================================
// BUFFER
// =============================================================================

// buffer accumulates fragments for one message.
// PERFORMANCE: strings.Builder avoids quadratic allocations during streaming.
type buffer struct {
	content  strings.Builder
	complete bool
}

// =============================================================================
// BUFFER STORE
// =============================================================================

// SurfaceGuard reports whether the rendering surface still tracks a
// message ID. When it returns false, appends addressed to that ID are
// dropped instead of creating (or resurrecting) a buffer. A nil guard
// accepts every ID.
type SurfaceGuard func(messageID string) bool

// BufferStore maps message IDs to accumulated stream text.
//
// Thread-safety: the UI loop is single-threaded, but fragments arrive
// from backend goroutines, so every operation is mutex-serialized — the
// at-most-one-active-stream and immutability invariants are not safe
// under concurrent mutation otherwise.
type BufferStore struct {
	mu       sync.Mutex
	buffers  map[string]*buffer
	activeID string
	guard    SurfaceGuard
}

// NewBufferStore creates an empty store. The guard may be nil.
func NewBufferStore(guard SurfaceGuard) *BufferStore {
	return &BufferStore{
		buffers: make(map[string]*buffer),
		guard:   guard,
	}
}

// Begin registers a new empty buffer for messageID and marks it the sole
// active stream. If another stream is still active it is orphaned: its
// buffer remains readable, but unaddressed fragments now target the new
// stream. Last writer wins — see the package comment.
func (s *BufferStore) Begin(messageID string) {
	if messageID == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.buffers[messageID] = &buffer{}
	s.activeID = messageID
}

// Append concatenates text onto the buffer for messageID and returns the
// new accumulated text. An empty messageID addresses the currently active
// stream. The buffer is created if absent (out-of-order delivery), unless
// the surface guard rejects the ID — a fragment for a message that no
// longer exists is silently dropped. Appends to a completed buffer are
// no-ops.
func (s *BufferStore) Append(messageID, text string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := messageID
	if id == "" {
		id = s.activeID
	}
	if id == "" {
		return "", false
	}
	if s.guard != nil && !s.guard(id) {
		return "", false
	}

	buf, ok := s.buffers[id]
	if !ok {
		buf = &buffer{}
		s.buffers[id] = buf
	}
	if buf.complete {
		return buf.content.String(), false
	}

	buf.content.WriteString(text)
	return buf.content.String(), true
}

// Complete marks the buffer for messageID immutable and clears the active
// pointer if messageID was the active stream. An empty messageID resolves
// to the active stream. Returns the final accumulated text, and false if
// no such buffer exists.
func (s *BufferStore) Complete(messageID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := messageID
	if id == "" {
		id = s.activeID
	}

	buf, ok := s.buffers[id]
	if !ok {
		return "", false
	}

	buf.complete = true
	if s.activeID == id {
		s.activeID = ""
	}
	return buf.content.String(), true
}

// Get returns the accumulated text for messageID.
func (s *BufferStore) Get(messageID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	buf, ok := s.buffers[messageID]
	if !ok {
		return "", false
	}
	return buf.content.String(), true
}

// ActiveID returns the ID of the active stream, or "" when none is
// accepting unaddressed fragments.
func (s *BufferStore) ActiveID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeID
}

// IsComplete reports whether the buffer for messageID has been sealed.
func (s *BufferStore) IsComplete(messageID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	buf, ok := s.buffers[messageID]
	return ok && buf.complete
}

// Len returns the number of tracked buffers.
func (s *BufferStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buffers)
}

// ClearAll removes every buffer and the active pointer. Used on session
// boundaries; in-flight fragments for old IDs become no-ops through the
// surface guard.
func (s *BufferStore) ClearAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.buffers = make(map[string]*buffer)
	s.activeID = ""
}
