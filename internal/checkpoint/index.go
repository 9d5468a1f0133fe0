// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package checkpoint

import (
	"regexp"
	"strings"
	"sync"
)

const (
	// PreviewLimit is the maximum preview length in runes before
	// truncation.
	PreviewLimit = 30

	// PreviewLoading is the placeholder shown while an answer streams.
	PreviewLoading = "Loading..."

	// PreviewFallback is used when the rendered answer is empty.
	PreviewFallback = "Answer"
)

// =============================================================================
// MARKER
// =============================================================================

// Marker is a UI bookmark paired 1:1 with an assistant message.
type Marker struct {
	MessageID  string
	Bookmarked bool
	Preview    string
	Active     bool
}

// =============================================================================
// INDEX
// =============================================================================

// Index holds the checkpoint markers in document order.
//
// Thread-safety: mutations come from the UI loop, but preview refreshes
// can be triggered off the stream-completion path, so all operations are
// mutex-serialized.
type Index struct {
	mu      sync.Mutex
	order   []string
	markers map[string]*Marker
}

// NewIndex creates an empty checkpoint index.
func NewIndex() *Index {
	return &Index{
		markers: make(map[string]*Marker),
	}
}

// CreateMarker registers a marker for messageID. Called exactly once per
// assistant message, at creation time; a second call for the same ID is
// a no-op so the bijection is never broken by duplicates.
func (x *Index) CreateMarker(messageID string) {
	if messageID == "" {
		return
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	if _, exists := x.markers[messageID]; exists {
		return
	}
	x.markers[messageID] = &Marker{
		MessageID: messageID,
		Preview:   PreviewLoading,
	}
	x.order = append(x.order, messageID)
}

// RefreshPreview recomputes the marker's preview from the message's
// rendered text: the first PreviewLimit runes plus an ellipsis when
// longer, the trimmed text when shorter, or PreviewFallback when empty.
// Called once after stream completion, not per fragment. Unknown IDs are
// no-ops.
func (x *Index) RefreshPreview(messageID, renderedText string) {
	x.mu.Lock()
	defer x.mu.Unlock()

	m, ok := x.markers[messageID]
	if !ok {
		return
	}
	m.Preview = MakePreview(renderedText)
}

// Toggle flips the bookmark flag for messageID and returns the new state.
// No other marker is affected. Unknown IDs are no-ops.
func (x *Index) Toggle(messageID string) bool {
	x.mu.Lock()
	defer x.mu.Unlock()

	m, ok := x.markers[messageID]
	if !ok {
		return false
	}
	m.Bookmarked = !m.Bookmarked
	return m.Bookmarked
}

// SetActive marks messageID's marker active and every other marker
// inactive — clear-then-set keeps the exclusivity invariant even if
// state was ever inconsistent. Unknown IDs leave all state untouched.
func (x *Index) SetActive(messageID string) {
	x.mu.Lock()
	defer x.mu.Unlock()

	if _, ok := x.markers[messageID]; !ok {
		return
	}
	for _, m := range x.markers {
		m.Active = false
	}
	x.markers[messageID].Active = true
}

// ClearActive deactivates every marker (the "or none" state).
func (x *Index) ClearActive() {
	x.mu.Lock()
	defer x.mu.Unlock()

	for _, m := range x.markers {
		m.Active = false
	}
}

// ActiveID returns the ID of the active marker, or "".
func (x *Index) ActiveID() string {
	x.mu.Lock()
	defer x.mu.Unlock()

	for _, m := range x.markers {
		if m.Active {
			return m.MessageID
		}
	}
	return ""
}

// Get returns a copy of the marker for messageID.
func (x *Index) Get(messageID string) (Marker, bool) {
	x.mu.Lock()
	defer x.mu.Unlock()

	m, ok := x.markers[messageID]
	if !ok {
		return Marker{}, false
	}
	return *m, true
}

// Markers returns copies of all markers in document order.
func (x *Index) Markers() []Marker {
	x.mu.Lock()
	defer x.mu.Unlock()

	out := make([]Marker, 0, len(x.order))
	for _, id := range x.order {
		out = append(out, *x.markers[id])
	}
	return out
}

// Len returns the number of markers.
func (x *Index) Len() int {
	x.mu.Lock()
	defer x.mu.Unlock()
	return len(x.markers)
}

// ClearAll removes every marker. Used on session boundaries.
func (x *Index) ClearAll() {
	x.mu.Lock()
	defer x.mu.Unlock()

	x.order = nil
	x.markers = make(map[string]*Marker)
}

// =============================================================================
// PREVIEW DERIVATION
// =============================================================================

// ansiPattern matches SGR escape sequences left in rendered text.
var ansiPattern = regexp.MustCompile("\x1b\\[[0-9;]*m")

// MakePreview derives tooltip text from rendered message text.
func MakePreview(renderedText string) string {
	text := ansiPattern.ReplaceAllString(renderedText, "")
	text = strings.Join(strings.Fields(text), " ")
	if text == "" {
		return PreviewFallback
	}
	runes := []rune(text)
	if len(runes) > PreviewLimit {
		return string(runes[:PreviewLimit]) + "…"
	}
	return text
}
