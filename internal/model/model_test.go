// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"strings"
	"testing"
)

// =============================================================================
// MESSAGE TESTS
// =============================================================================

func TestNewUserMessage(t *testing.T) {
	msg := NewUserMessage("hello")

	if msg.Role != RoleUser {
		t.Errorf("Expected role user, got %s", msg.Role)
	}
	if msg.Content != "hello" {
		t.Errorf("Expected content 'hello', got '%s'", msg.Content)
	}
	if msg.Streaming {
		t.Error("User messages should not be streaming")
	}
	if msg.ID == "" {
		t.Error("Message should have an ID")
	}
}

func TestNewAssistantMessage(t *testing.T) {
	msg := NewAssistantMessage()

	if msg.Role != RoleAssistant {
		t.Errorf("Expected role assistant, got %s", msg.Role)
	}
	if !msg.Streaming {
		t.Error("New assistant messages should be streaming")
	}
	if !msg.IsEmpty() {
		t.Error("New assistant messages should be empty placeholders")
	}
}

func TestMessageIDsUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		msg := NewAssistantMessage()
		if seen[msg.ID] {
			t.Fatalf("Duplicate message ID: %s", msg.ID)
		}
		seen[msg.ID] = true
	}
}

func TestFinalize(t *testing.T) {
	msg := NewAssistantMessage()
	msg.Finalize("done")

	if msg.Streaming {
		t.Error("Finalized message should not be streaming")
	}
	if msg.Content != "done" {
		t.Errorf("Expected content 'done', got '%s'", msg.Content)
	}
}

func TestSetToneWriteOnce(t *testing.T) {
	msg := NewAssistantMessage()

	if msg.Tone() != ToneNone {
		t.Error("New message should have no tone")
	}
	if !msg.SetTone(ToneCalm) {
		t.Error("First SetTone should succeed")
	}
	if msg.SetTone(ToneExcited) {
		t.Error("Second SetTone should be rejected")
	}
	if msg.Tone() != ToneCalm {
		t.Errorf("Expected tone calm, got %s", msg.Tone())
	}
}

func TestSetToneNoneIsNoop(t *testing.T) {
	msg := NewAssistantMessage()
	if msg.SetTone(ToneNone) {
		t.Error("Setting ToneNone should be a no-op")
	}
	// An empty tone must not consume the write-once slot.
	if !msg.SetTone(TonePlayful) {
		t.Error("SetTone after a ToneNone no-op should still succeed")
	}
}

func TestParseTone(t *testing.T) {
	tests := []struct {
		in   string
		want Tone
	}{
		{"calm", ToneCalm},
		{"excited", ToneExcited},
		{"serious", ToneSerious},
		{"playful", TonePlayful},
		{"", ToneNone},
		{"angry", ToneNone},
	}

	for _, tt := range tests {
		if got := ParseTone(tt.in); got != tt.want {
			t.Errorf("ParseTone(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMessagePreview(t *testing.T) {
	msg := NewUserMessage(strings.Repeat("a", 100))
	preview := msg.Preview(50)

	if len([]rune(preview)) != 50 {
		t.Errorf("Expected preview of 50 runes, got %d", len([]rune(preview)))
	}
	if !strings.HasSuffix(preview, "...") {
		t.Error("Truncated preview should end with ...")
	}

	short := NewUserMessage("hi")
	if short.Preview(50) != "hi" {
		t.Error("Short content should be returned unmodified")
	}
}

func TestMessagePreviewUnicode(t *testing.T) {
	msg := NewUserMessage(strings.Repeat("世", 40))
	preview := msg.Preview(10)
	if len([]rune(preview)) != 10 {
		t.Errorf("Expected 10 runes, got %d", len([]rune(preview)))
	}
}

// =============================================================================
// TRANSCRIPT TESTS
// =============================================================================

func TestTranscriptAppendAndLookup(t *testing.T) {
	tr := NewTranscript()
	u := NewUserMessage("hi")
	a := NewAssistantMessage()

	tr.Append(u)
	tr.Append(a)

	if tr.Len() != 2 {
		t.Fatalf("Expected 2 messages, got %d", tr.Len())
	}
	if tr.ByID(a.ID) != a {
		t.Error("ByID should return the appended assistant message")
	}
	if tr.ByID("msg_unknown") != nil {
		t.Error("ByID for unknown ID should return nil")
	}
	if !tr.Has(u.ID) {
		t.Error("Has should report tracked IDs")
	}
	if tr.Last() != a {
		t.Error("Last should return the most recent message")
	}
}

func TestTranscriptAssistantIDs(t *testing.T) {
	tr := NewTranscript()
	tr.Append(NewUserMessage("one"))
	a1 := NewAssistantMessage()
	tr.Append(a1)
	tr.Append(NewUserMessage("two"))
	a2 := NewAssistantMessage()
	tr.Append(a2)

	ids := tr.AssistantIDs()
	if len(ids) != 2 {
		t.Fatalf("Expected 2 assistant IDs, got %d", len(ids))
	}
	if ids[0] != a1.ID || ids[1] != a2.ID {
		t.Error("AssistantIDs should preserve document order")
	}
}

func TestTranscriptClear(t *testing.T) {
	tr := NewTranscript()
	msg := NewUserMessage("hi")
	tr.Append(msg)

	tr.Clear()

	if !tr.IsEmpty() {
		t.Error("Transcript should be empty after Clear")
	}
	if tr.ByID(msg.ID) != nil {
		t.Error("Cleared messages should not be resolvable by ID")
	}
	if tr.Last() != nil {
		t.Error("Last on empty transcript should be nil")
	}
}
