// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import "testing"

func TestNewThemeInitializesStyles(t *testing.T) {
	th := NewTheme()

	if th.UserBubble.GetPaddingLeft() != 1 {
		t.Error("user bubble should have horizontal padding")
	}
	if !th.MarkerActive.GetBold() {
		t.Error("active marker should be bold")
	}
	if !th.CadenceSlow.GetBold() || !th.CadenceFast.GetBold() {
		t.Error("cadence indicators should be bold")
	}
}

func TestToneStyleFallsBackToNeutral(t *testing.T) {
	th := NewTheme()

	base := th.AssistantBase.GetBorderTopForeground()
	if got := th.ToneStyle("").GetBorderTopForeground(); got != base {
		t.Error("empty tone should keep the neutral border")
	}
	if got := th.ToneStyle("confused").GetBorderTopForeground(); got != base {
		t.Error("unknown tone should keep the neutral border")
	}
	if got := th.ToneStyle("excited").GetBorderTopForeground(); got == base {
		t.Error("excited tone should tint the border")
	}
}

func TestSetSize(t *testing.T) {
	th := NewTheme()
	th.SetSize(120, 40)
	if th.Width != 120 || th.Height != 40 {
		t.Errorf("size = %dx%d", th.Width, th.Height)
	}
}
