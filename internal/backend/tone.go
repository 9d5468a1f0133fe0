// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

import "strings"

// =============================================================================
// TONE CLASSIFICATION
// =============================================================================

// ClassifyTone derives a display tone from a completed response. The
// heuristic is deliberately cheap: it runs once per response on the
// full text, never per fragment. Returns "" when nothing stands out.
func ClassifyTone(text string) string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return ""
	}

	lower := strings.ToLower(trimmed)

	exclaims := strings.Count(trimmed, "!")
	switch {
	case exclaims >= 3:
		return "excited"
	case containsAny(lower, playfulCues):
		return "playful"
	case containsAny(lower, seriousCues):
		return "serious"
	case exclaims == 0 && len([]rune(trimmed)) > 400:
		return "calm"
	}
	return ""
}

var playfulCues = []string{
	"just kidding", "fun fact", ":)", ":-)", "haha", "😄", "🎉",
}

var seriousCues = []string{
	"warning", "caution", "important:", "be careful", "do not", "critical",
}

func containsAny(s string, cues []string) bool {
	for _, cue := range cues {
		if strings.Contains(s, cue) {
			return true
		}
	}
	return false
}
