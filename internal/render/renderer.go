// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package render projects accumulated message source into display text.
package render

import (
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
)

// DefaultWrapWidth is used when no width has been set yet.
const DefaultWrapWidth = 80

// =============================================================================
// RENDERER
// =============================================================================

// Renderer converts lightweight markup source to display text at a given
// wrap width.
//
// The single-entry memo only dedupes back-to-back renders of identical
// input (streaming re-renders the whole buffer on every fragment); it is
// keyed by the exact source and width, so it can never serve output stale
// against a mutated buffer.
type Renderer struct {
	mu    sync.Mutex
	width int
	tr    *glamour.TermRenderer

	memoSrc   string
	memoWidth int
	memoOut   string
	memoValid bool
}

// New creates a markdown renderer wrapping at width. The glamour style is
// auto-detected from the terminal background.
func New(width int) *Renderer {
	r := &Renderer{width: clampWidth(width)}
	r.tr = newTermRenderer(r.width)
	return r
}

// NewPlain creates a renderer that performs no markup conversion. Used in
// tests and when no terminal styling is available.
func NewPlain(width int) *Renderer {
	return &Renderer{width: clampWidth(width)}
}

// SetWidth updates the wrap width, rebuilding the underlying renderer
// when it changes.
func (r *Renderer) SetWidth(width int) {
	width = clampWidth(width)

	r.mu.Lock()
	defer r.mu.Unlock()

	if width == r.width {
		return
	}
	r.width = width
	r.memoValid = false
	if r.tr != nil {
		r.tr = newTermRenderer(width)
	}
}

// Width returns the current wrap width.
func (r *Renderer) Width() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.width
}

// Render projects source to display text. Idempotent: equal source and
// width always produce equal output, and the output replaces (never
// appends to) any previous display state.
func (r *Renderer) Render(source string) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.memoValid && source == r.memoSrc && r.width == r.memoWidth {
		return r.memoOut
	}

	out := source
	if r.tr != nil {
		if rendered, err := r.tr.Render(source); err == nil {
			// Glamour pads with a trailing blank line; the surface owns
			// inter-message spacing.
			out = strings.TrimRight(rendered, "\n")
		}
	}

	r.memoSrc = source
	r.memoWidth = r.width
	r.memoOut = out
	r.memoValid = true
	return out
}

// =============================================================================
// HELPERS
// =============================================================================

// newTermRenderer builds a glamour renderer, or nil when the environment
// cannot support one (the projection then passes source through).
func newTermRenderer(width int) *glamour.TermRenderer {
	tr, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil
	}
	return tr
}

func clampWidth(width int) int {
	if width <= 0 {
		return DefaultWrapWidth
	}
	return width
}
