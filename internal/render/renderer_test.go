// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"testing"

	"github.com/loomchat/loom/internal/stream"
)

func TestRenderIsIdempotent(t *testing.T) {
	r := NewPlain(80)

	first := r.Render("Hello world")
	second := r.Render("Hello world")
	third := r.Render("Hello world")

	if first != second || second != third {
		t.Error("Repeated renders of the same source must be identical")
	}
}

func TestStreamedProjectionEqualsWholeRender(t *testing.T) {
	r := NewPlain(80)
	s := stream.NewBufferStore(nil)
	s.Begin("m")

	// Re-render the full buffer after every fragment, the way the UI does.
	var display string
	for _, frag := range []string{"He", "llo", " world"} {
		acc, _ := s.Append("m", frag)
		display = r.Render(acc)
	}

	if want := r.Render("Hello world"); display != want {
		t.Errorf("Streamed projection = %q, want %q (single render of the full text)", display, want)
	}
}

func TestRenderReplacesDoesNotAppend(t *testing.T) {
	r := NewPlain(80)

	r.Render("first")
	out := r.Render("second")

	if out != "second" {
		t.Errorf("Render must replace prior display state, got %q", out)
	}
}

func TestMemoInvalidatedByChangedSource(t *testing.T) {
	r := NewPlain(80)

	a := r.Render("a")
	b := r.Render("b")
	a2 := r.Render("a")

	if a != "a" || b != "b" || a2 != "a" {
		t.Errorf("Memo served stale output: %q %q %q", a, b, a2)
	}
}

func TestSetWidthInvalidatesMemo(t *testing.T) {
	r := NewPlain(80)
	r.Render("stable")

	r.SetWidth(40)
	if r.Width() != 40 {
		t.Errorf("Width = %d, want 40", r.Width())
	}

	// Plain projection is width-independent, but the memo must not be
	// trusted across a width change.
	if out := r.Render("stable"); out != "stable" {
		t.Errorf("Render after width change = %q", out)
	}
}

func TestClampWidth(t *testing.T) {
	r := NewPlain(0)
	if r.Width() != DefaultWrapWidth {
		t.Errorf("Zero width should clamp to %d, got %d", DefaultWrapWidth, r.Width())
	}

	r.SetWidth(-5)
	if r.Width() != DefaultWrapWidth {
		t.Errorf("Negative width should clamp to %d, got %d", DefaultWrapWidth, r.Width())
	}
}

func TestEmptySourceRendersEmpty(t *testing.T) {
	r := NewPlain(80)
	if out := r.Render(""); out != "" {
		t.Errorf("Empty source should render empty, got %q", out)
	}
}
